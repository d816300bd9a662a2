// Package seed loads the sample gyms and accounts used for local development and by the
// cross-package tests. Ids are fixed so clients and tests can refer to them directly.
package seed

import (
	"context"
	"fmt"
	"time"

	membershipdomain "gym-tenancy/backend/internal/membership/domain"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
	userdomain "gym-tenancy/backend/internal/user/domain"
)

// Password is the password of every seeded account.
const Password = "password123"

const (
	GymAID = "00000000-0000-4000-a000-00000000000a"
	GymBID = "00000000-0000-4000-a000-00000000000b"
	GymCID = "00000000-0000-4000-a000-00000000000c"

	AdminID         = "00000000-0000-4000-b000-000000000001"
	DirectMemberID  = "00000000-0000-4000-b000-000000000002"
	TrainerID       = "00000000-0000-4000-b000-000000000003"
	SuperAdminID    = "00000000-0000-4000-b000-000000000004"
	NoGymMemberID   = "00000000-0000-4000-b000-000000000005"
	AdminEmail      = "admin@x.com"
	DirectEmail     = "member@x.com"
	TrainerEmail    = "trainer@x.com"
	SuperAdminEmail = "root@x.com"
	NoGymEmail      = "drifter@x.com"
)

// UserStore, OrgStore and MembershipStore are the write paths seeding needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

type OrgStore interface {
	CreateOrganization(ctx context.Context, o *orgdomain.Org) error
}

type MembershipStore interface {
	CreateMembership(ctx context.Context, m *membershipdomain.Membership) error
}

// PasswordHasher hashes the shared seed password.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
}

// Stores groups the repositories seeded by Load.
type Stores struct {
	Users       UserStore
	Orgs        OrgStore
	Memberships MembershipStore
}

// Load inserts the sample data:
//   - GymA, GymB and GymC (all active);
//   - admin@x.com, organization-admin of GymA and GymB;
//   - member@x.com, a member directly assigned to GymA with no membership rows;
//   - trainer@x.com, trainer in GymB and GymC;
//   - root@x.com, super-admin with no memberships;
//   - drifter@x.com, a member with no gym at all.
//
// Load reports applied=false without writing when admin@x.com already exists.
func Load(ctx context.Context, st Stores, hasher PasswordHasher, now time.Time) (applied bool, err error) {
	existing, err := st.Users.GetByEmail(ctx, AdminEmail)
	if err != nil {
		return false, fmt.Errorf("seed check: %w", err)
	}
	if existing != nil {
		return false, nil
	}
	hash, err := hasher.Hash([]byte(Password))
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	orgs := []*orgdomain.Org{
		{ID: GymAID, Name: "GymA", Address: orgdomain.Address{Street: "1 Iron St", City: "Springfield", Country: "US"}, Active: true, CreatedAt: now},
		{ID: GymBID, Name: "GymB", Address: orgdomain.Address{Street: "2 Barbell Ave", City: "Shelbyville", Country: "US"}, Active: true, CreatedAt: now},
		{ID: GymCID, Name: "GymC", Address: orgdomain.Address{Street: "3 Kettlebell Rd", City: "Ogdenville", Country: "US"}, Active: true, CreatedAt: now},
	}
	for _, o := range orgs {
		if err := st.Orgs.CreateOrganization(ctx, o); err != nil {
			return false, fmt.Errorf("create org %s: %w", o.Name, err)
		}
	}

	users := []*userdomain.User{
		{ID: AdminID, Email: AdminEmail, Name: "Gym Admin", Type: userdomain.UserTypeOrganizationAdmin},
		{ID: DirectMemberID, Email: DirectEmail, Name: "Direct Member", Type: userdomain.UserTypeMember, GymID: GymAID},
		{ID: TrainerID, Email: TrainerEmail, Name: "Travelling Trainer", Type: userdomain.UserTypeTrainer},
		{ID: SuperAdminID, Email: SuperAdminEmail, Name: "Platform Admin", Type: userdomain.UserTypeSuperAdmin},
		{ID: NoGymMemberID, Email: NoGymEmail, Name: "No Gym Yet", Type: userdomain.UserTypeMember},
	}
	for _, u := range users {
		u.PasswordHash = hash
		u.Status = userdomain.UserStatusActive
		u.CreatedAt = now
		u.UpdatedAt = now
		if err := st.Users.Create(ctx, u); err != nil {
			return false, fmt.Errorf("create user %s: %w", u.Email, err)
		}
	}

	memberships := []*membershipdomain.Membership{
		{ID: "00000000-0000-4000-c000-000000000001", UserID: AdminID, OrgID: GymAID, Role: membershipdomain.RoleOrganizationAdmin},
		{ID: "00000000-0000-4000-c000-000000000002", UserID: AdminID, OrgID: GymBID, Role: membershipdomain.RoleOrganizationAdmin},
		{ID: "00000000-0000-4000-c000-000000000003", UserID: TrainerID, OrgID: GymBID, Role: membershipdomain.RoleTrainer},
		{ID: "00000000-0000-4000-c000-000000000004", UserID: TrainerID, OrgID: GymCID, Role: membershipdomain.RoleTrainer},
	}
	for _, m := range memberships {
		m.CreatedAt = now
		if err := st.Memberships.CreateMembership(ctx, m); err != nil {
			return false, fmt.Errorf("create membership %s/%s: %w", m.UserID, m.OrgID, err)
		}
	}
	return true, nil
}
