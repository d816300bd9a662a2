package interceptors

import (
	"context"

	"gym-tenancy/backend/internal/authz"
)

// GetUserID returns the identity id of the authorized caller and true if AuthUnary ran; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	ac, ok := authz.FromContext(ctx)
	if !ok {
		return "", false
	}
	return ac.IdentityID, true
}

// GetOrgID returns the organization the call was authorized against. It is "" when the
// caller has not selected one.
func GetOrgID(ctx context.Context) (string, bool) {
	ac, ok := authz.FromContext(ctx)
	if !ok {
		return "", false
	}
	return ac.OrganizationID, true
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	ac, ok := authz.FromContext(ctx)
	if !ok {
		return "", false
	}
	return ac.SessionID, true
}
