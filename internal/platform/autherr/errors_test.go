package autherr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("switch: %w", &Error{Code: CodeForbiddenOrganization, Message: "x", Err: errors.New("cause")})
	if !errors.Is(wrapped, ErrForbiddenOrganization) {
		t.Fatal("wrapped forbidden error should match ErrForbiddenOrganization")
	}
	if errors.Is(wrapped, ErrOrganizationSelectionRequired) {
		t.Fatal("forbidden error must not match selection-required")
	}
}

func TestTemporary(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Temporary(cause)
	if !errors.Is(err, ErrTemporaryUnavailable) {
		t.Fatal("Temporary should match ErrTemporaryUnavailable")
	}
	if !errors.Is(err, cause) {
		t.Fatal("Temporary should unwrap to its cause")
	}
	if !IsRetryable(err) {
		t.Fatal("TemporaryUnavailable should be retryable")
	}
	if IsRetryable(ErrForbiddenOrganization) {
		t.Fatal("ForbiddenOrganization must not be retryable")
	}
}

func TestFromStore(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		temporary bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("get session: %w", context.DeadlineExceeded), true},
		{"plain", errors.New("syntax error"), false},
		{"already typed", ErrSessionNotFound, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromStore(tc.err)
			if tc.err == nil {
				if got != nil {
					t.Fatalf("FromStore(nil) = %v, want nil", got)
				}
				return
			}
			if errors.Is(got, ErrTemporaryUnavailable) != tc.temporary {
				t.Errorf("FromStore(%v) temporary = %v, want %v", tc.err, !tc.temporary, tc.temporary)
			}
		})
	}
}

func TestStatusMapping(t *testing.T) {
	testCases := []struct {
		err      error
		httpCode int
		grpcCode codes.Code
	}{
		{ErrInvalidCredentials, http.StatusUnauthorized, codes.Unauthenticated},
		{ErrAccountLocked, http.StatusForbidden, codes.PermissionDenied},
		{ErrSessionNotFound, http.StatusUnauthorized, codes.Unauthenticated},
		{ErrUnauthenticated, http.StatusUnauthorized, codes.Unauthenticated},
		{ErrOrganizationSelectionRequired, http.StatusForbidden, codes.PermissionDenied},
		{ErrForbiddenOrganization, http.StatusForbidden, codes.PermissionDenied},
		{ErrPermissionDenied, http.StatusForbidden, codes.PermissionDenied},
		{ErrTemporaryUnavailable, http.StatusServiceUnavailable, codes.Unavailable},
		{errors.New("boom"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			if got := HTTPStatus(tc.err); got != tc.httpCode {
				t.Errorf("HTTPStatus = %d, want %d", got, tc.httpCode)
			}
			if got := GRPCCode(tc.err); got != tc.grpcCode {
				t.Errorf("GRPCCode = %v, want %v", got, tc.grpcCode)
			}
		})
	}
}
