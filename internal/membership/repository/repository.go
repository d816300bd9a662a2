package repository

import (
	"context"
	"errors"

	"gym-tenancy/backend/internal/membership/domain"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
)

// ErrDuplicate is returned by CreateMembership when the (user, org) pair already has a membership.
var ErrDuplicate = errors.New("membership already exists")

// Repository defines persistence for memberships.
type Repository interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	// ListOrganizationsByUser returns the active organizations the user holds memberships in, ordered by name.
	ListOrganizationsByUser(ctx context.Context, userID string) ([]*orgdomain.Org, error)
	// Exists reports whether the user holds a membership in the organization and the organization is active.
	Exists(ctx context.Context, userID, orgID string) (bool, error)
	// HasAny reports whether the user holds at least one membership in an active organization.
	HasAny(ctx context.Context, userID string) (bool, error)
	ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error)
	CreateMembership(ctx context.Context, m *domain.Membership) error
	// DeleteByUserAndOrg removes the membership. Returns false when there was none.
	DeleteByUserAndOrg(ctx context.Context, userID, orgID string) (bool, error)
}
