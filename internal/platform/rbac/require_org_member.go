// Package rbac guards organization-scoped handlers using the authorization context resolved by
// the gate.
package rbac

import (
	"context"

	"gym-tenancy/backend/internal/authz"
	"gym-tenancy/backend/internal/platform/autherr"
)

// RequireOrgMember ensures the request carries an authorization context scoped to an organization.
// Returns the context on success; ErrUnauthenticated or ErrOrganizationSelectionRequired otherwise.
func RequireOrgMember(ctx context.Context) (*authz.Context, error) {
	ac, ok := authz.FromContext(ctx)
	if !ok || ac.IdentityID == "" {
		return nil, autherr.ErrUnauthenticated
	}
	if ac.OrganizationID == "" {
		return nil, autherr.ErrOrganizationSelectionRequired
	}
	return ac, nil
}
