package domain

import (
	"testing"
	"time"
)

func TestSession_Live(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	revoked := now.Add(-time.Minute)
	testCases := []struct {
		name string
		s    *Session
		want bool
	}{
		{"nil", nil, false},
		{"live", &Session{ExpiresAt: now.Add(time.Hour)}, true},
		{"expired", &Session{ExpiresAt: now.Add(-time.Second)}, false},
		{"expires exactly now", &Session{ExpiresAt: now}, false},
		{"revoked", &Session{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.s.Live(now); got != tc.want {
				t.Errorf("Live = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSession_CloneIsDeep(t *testing.T) {
	at := time.Now()
	s := &Session{ID: "s1", RevokedAt: &at, LastSeenAt: &at}
	cp := s.Clone()
	*cp.RevokedAt = at.Add(time.Hour)
	if !s.RevokedAt.Equal(at) {
		t.Error("Clone must not share RevokedAt")
	}
	cp.ActiveOrgID = "org"
	if s.ActiveOrgID != "" {
		t.Error("Clone must not share fields")
	}
}
