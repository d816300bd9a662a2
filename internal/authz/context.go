package authz

import (
	"context"

	"gym-tenancy/backend/internal/membership/domain"
)

// Context is the resolved authorization context of one request. Handlers obtain it only
// through FromContext; there is no process-wide current user.
type Context struct {
	IdentityID string
	SessionID  string
	// OrganizationID is empty for AnyContext requirements.
	OrganizationID string
	Role           domain.Role
	// CrossTenant is set when a super-admin was let into an organization they are not
	// scoped to. The access has been audited.
	CrossTenant bool
}

type contextKey struct{ name string }

var authzContextKey = contextKey{"authz_context"}

// WithContext returns a copy of ctx carrying ac.
func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, authzContextKey, ac)
}

// FromContext returns the authorization context stored by WithContext.
func FromContext(ctx context.Context) (*Context, bool) {
	ac, ok := ctx.Value(authzContextKey).(*Context)
	return ac, ok && ac != nil
}
