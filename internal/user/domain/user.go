package domain

import (
	"errors"
	"strings"
	"time"
)

// User is an authenticated principal: one login identity that may act in one or more gyms.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Type         UserType
	// GymID is the denormalized direct gym assignment used by members and trainers. Empty when unset.
	GymID     string
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserType is the account-wide role chosen at registration.
type UserType string

const (
	UserTypeMember            UserType = "member"
	UserTypeTrainer           UserType = "trainer"
	UserTypeOrganizationAdmin UserType = "organization-admin"
	UserTypeSuperAdmin        UserType = "super-admin"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeMember, UserTypeTrainer, UserTypeOrganizationAdmin, UserTypeSuperAdmin:
		return true
	}
	return false
}

// ParseUserType normalizes s (case-insensitive, "_" accepted for "-") into a UserType.
func ParseUserType(s string) (UserType, bool) {
	t := UserType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	return t, t.Valid()
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusLocked   UserStatus = "locked"
	UserStatusDisabled UserStatus = "disabled"
)

// NormalizeEmail lower-cases and trims email; emails are stored and looked up in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if !u.Type.Valid() {
		return errors.New("invalid user type")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
