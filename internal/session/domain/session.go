package domain

import "time"

// Session is one authenticated login. It carries at most one active organization.
type Session struct {
	ID     string
	UserID string
	// ActiveOrgID is empty when no organization is selected. When set, the user holds a
	// membership in it (enforced when it is written).
	ActiveOrgID string
	// TokenHash is the SHA-256 hash of the issued bearer token; the raw token is never stored.
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time // nil when not revoked
	LastSeenAt *time.Time
}

// Live reports whether the session is neither revoked nor expired at now.
func (s *Session) Live(now time.Time) bool {
	return s != nil && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// HasActiveOrg reports whether an organization is selected.
func (s *Session) HasActiveOrg() bool {
	return s.ActiveOrgID != ""
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.RevokedAt != nil {
		t := *s.RevokedAt
		cp.RevokedAt = &t
	}
	if s.LastSeenAt != nil {
		t := *s.LastSeenAt
		cp.LastSeenAt = &t
	}
	return &cp
}
