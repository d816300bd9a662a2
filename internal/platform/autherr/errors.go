// Package autherr defines the typed errors returned by the authentication, switching and
// authorization code paths, and their mapping to HTTP and gRPC status classes.
package autherr

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is the machine-readable identifier of an auth error. It is what API clients branch on.
type Code string

const (
	CodeInvalidCredentials            Code = "invalid_credentials"
	CodeAccountLocked                 Code = "account_locked"
	CodeSessionNotFound               Code = "session_not_found"
	CodeUnauthenticated               Code = "unauthenticated"
	CodeOrganizationSelectionRequired Code = "organization_selection_required"
	CodeForbiddenOrganization         Code = "forbidden_organization"
	CodePermissionDenied              Code = "permission_denied"
	CodeTemporaryUnavailable          Code = "temporary_unavailable"
)

// Error is a typed auth error. Two errors match under errors.Is when their codes are equal,
// so wrapped causes never change how the route layer classifies them.
type Error struct {
	Code    Code
	Message string
	// Err is the underlying cause; never rendered to clients.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels. Messages are intentionally generic; they are safe to show to end users.
var (
	ErrInvalidCredentials            = &Error{Code: CodeInvalidCredentials, Message: "invalid email or password"}
	ErrAccountLocked                 = &Error{Code: CodeAccountLocked, Message: "account is locked"}
	ErrSessionNotFound               = &Error{Code: CodeSessionNotFound, Message: "session not found or expired"}
	ErrUnauthenticated               = &Error{Code: CodeUnauthenticated, Message: "authentication required"}
	ErrOrganizationSelectionRequired = &Error{Code: CodeOrganizationSelectionRequired, Message: "select an organization to continue"}
	ErrForbiddenOrganization         = &Error{Code: CodeForbiddenOrganization, Message: "access to this organization is not allowed"}
	ErrPermissionDenied              = &Error{Code: CodePermissionDenied, Message: "your role does not allow this action"}
	ErrTemporaryUnavailable          = &Error{Code: CodeTemporaryUnavailable, Message: "service temporarily unavailable"}
)

// Temporary wraps cause as a TemporaryUnavailable error.
func Temporary(cause error) error {
	return &Error{Code: CodeTemporaryUnavailable, Message: ErrTemporaryUnavailable.Message, Err: cause}
}

// CodeOf returns the code of err, or "" when err is not an auth error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether the caller may retry the operation with backoff.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeTemporaryUnavailable
}

// FromStore classifies an error returned by a session, membership or credential store call.
// Deadlines, cancellations of the store timeout and connection failures become
// TemporaryUnavailable; anything else is returned unchanged.
func FromStore(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return Temporary(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Temporary(err)
	}
	return err
}

// HTTPStatus returns the HTTP status class for err. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidCredentials, CodeSessionNotFound, CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeAccountLocked, CodeOrganizationSelectionRequired, CodeForbiddenOrganization, CodePermissionDenied:
		return http.StatusForbidden
	case CodeTemporaryUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode returns the gRPC status code for err. Unknown errors map to Internal.
func GRPCCode(err error) codes.Code {
	switch CodeOf(err) {
	case CodeInvalidCredentials, CodeSessionNotFound, CodeUnauthenticated:
		return codes.Unauthenticated
	case CodeAccountLocked, CodeOrganizationSelectionRequired, CodeForbiddenOrganization, CodePermissionDenied:
		return codes.PermissionDenied
	case CodeTemporaryUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
