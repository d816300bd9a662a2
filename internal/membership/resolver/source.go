package resolver

import (
	"context"

	"gym-tenancy/backend/internal/membership/domain"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
	userdomain "gym-tenancy/backend/internal/user/domain"
)

// MembershipSource is one place an identity's gym associations are recorded.
// Sources never report inactive organizations.
type MembershipSource interface {
	// Organizations returns the organizations u belongs to through this source, ordered by name.
	Organizations(ctx context.Context, u *userdomain.User) ([]*orgdomain.Org, error)
	// Holds reports whether u belongs to orgID through this source.
	Holds(ctx context.Context, u *userdomain.User, orgID string) (bool, error)
	// HasAny reports whether this source records any organization for u.
	HasAny(ctx context.Context, u *userdomain.User) (bool, error)
	// Role returns u's role in orgID, with ok false when u does not belong to it through this source.
	Role(ctx context.Context, u *userdomain.User, orgID string) (role domain.Role, ok bool, err error)
}

// MembershipStore is the subset of the membership repository used by ExplicitTable.
type MembershipStore interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	ListOrganizationsByUser(ctx context.Context, userID string) ([]*orgdomain.Org, error)
	Exists(ctx context.Context, userID, orgID string) (bool, error)
	HasAny(ctx context.Context, userID string) (bool, error)
}

// OrgStore is the subset of the organization repository used by DirectAssignment.
type OrgStore interface {
	GetOrganizationByID(ctx context.Context, id string) (*orgdomain.Org, error)
}

// ExplicitTable resolves memberships from the memberships table.
type ExplicitTable struct {
	store MembershipStore
}

// NewExplicitTable returns a source backed by store.
func NewExplicitTable(store MembershipStore) *ExplicitTable {
	return &ExplicitTable{store: store}
}

func (s *ExplicitTable) Organizations(ctx context.Context, u *userdomain.User) ([]*orgdomain.Org, error) {
	return s.store.ListOrganizationsByUser(ctx, u.ID)
}

func (s *ExplicitTable) Holds(ctx context.Context, u *userdomain.User, orgID string) (bool, error) {
	return s.store.Exists(ctx, u.ID, orgID)
}

func (s *ExplicitTable) HasAny(ctx context.Context, u *userdomain.User) (bool, error) {
	return s.store.HasAny(ctx, u.ID)
}

func (s *ExplicitTable) Role(ctx context.Context, u *userdomain.User, orgID string) (domain.Role, bool, error) {
	ok, err := s.store.Exists(ctx, u.ID, orgID)
	if err != nil || !ok {
		return "", false, err
	}
	m, err := s.store.GetMembershipByUserAndOrg(ctx, u.ID, orgID)
	if err != nil || m == nil {
		return "", false, err
	}
	return m.Role, true, nil
}

// DirectAssignment resolves the single gym denormalized onto the user record (users.gym_id).
type DirectAssignment struct {
	orgs OrgStore
}

// NewDirectAssignment returns a source backed by the user's gym_id and orgs.
func NewDirectAssignment(orgs OrgStore) *DirectAssignment {
	return &DirectAssignment{orgs: orgs}
}

func (s *DirectAssignment) assigned(ctx context.Context, u *userdomain.User) (*orgdomain.Org, error) {
	if u.GymID == "" {
		return nil, nil
	}
	o, err := s.orgs.GetOrganizationByID(ctx, u.GymID)
	if err != nil || o == nil || !o.Active {
		return nil, err
	}
	return o, nil
}

func (s *DirectAssignment) Organizations(ctx context.Context, u *userdomain.User) ([]*orgdomain.Org, error) {
	o, err := s.assigned(ctx, u)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return []*orgdomain.Org{}, nil
	}
	return []*orgdomain.Org{o}, nil
}

func (s *DirectAssignment) Holds(ctx context.Context, u *userdomain.User, orgID string) (bool, error) {
	if u.GymID == "" || u.GymID != orgID {
		return false, nil
	}
	o, err := s.assigned(ctx, u)
	return o != nil, err
}

func (s *DirectAssignment) HasAny(ctx context.Context, u *userdomain.User) (bool, error) {
	o, err := s.assigned(ctx, u)
	return o != nil, err
}

func (s *DirectAssignment) Role(ctx context.Context, u *userdomain.User, orgID string) (domain.Role, bool, error) {
	ok, err := s.Holds(ctx, u, orgID)
	if err != nil || !ok {
		return "", false, err
	}
	return domain.RoleFromUserType(u.Type), true, nil
}
