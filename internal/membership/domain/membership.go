package domain

import (
	"time"

	userdomain "gym-tenancy/backend/internal/user/domain"
)

// Membership links a user to an organization with a per-organization role.
// At most one membership exists per (UserID, OrgID).
type Membership struct {
	ID        string
	UserID    string
	OrgID     string
	Role      Role
	CreatedAt time.Time
}

// Role is what an identity acts as inside one organization. The same user may be a trainer in one
// gym and an organization-admin in another.
type Role string

const (
	RoleMember            Role = "member"
	RoleTrainer           Role = "trainer"
	RoleOrganizationAdmin Role = "organization-admin"
	// RoleSuperAdmin is never stored on a membership; it is the role reported for cross-tenant access.
	RoleSuperAdmin Role = "super-admin"
)

// Valid reports whether r may be stored on a membership.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleTrainer, RoleOrganizationAdmin:
		return true
	}
	return false
}

// RoleFromUserType returns the role implied by an account-wide user type, used for direct gym
// assignments that have no membership row.
func RoleFromUserType(t userdomain.UserType) Role {
	return Role(t)
}
