package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gym-tenancy/backend/internal/session/domain"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newSession(id, userID, activeOrg string) *domain.Session {
	return &domain.Session{
		ID:          id,
		UserID:      userID,
		ActiveOrgID: activeOrg,
		TokenHash:   "hash-" + id,
		CreatedAt:   testNow,
		ExpiresAt:   testNow.Add(time.Hour),
	}
}

func staticCheck(members map[string][]string) MembershipCheck {
	return func(_ context.Context, userID, orgID string) (bool, error) {
		for _, o := range members[userID] {
			if o == orgID {
				return true, nil
			}
		}
		return false, nil
	}
}

func TestMemoryRepository_CreateGet(t *testing.T) {
	r := NewMemoryRepository(nil)
	ctx := context.Background()
	if err := r.Create(ctx, newSession("s1", "u1", "")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	s, err := r.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if s == nil || s.UserID != "u1" {
		t.Fatalf("GetByID = %+v, want session of u1", s)
	}
	missing, err := r.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = (%v, %v), want (nil, nil)", missing, err)
	}

	s.ActiveOrgID = "mutated"
	again, _ := r.GetByID(ctx, "s1")
	if again.ActiveOrgID != "" {
		t.Error("GetByID must return a copy")
	}
}

func TestMemoryRepository_ReplaceActiveOrg(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name    string
		setup   func(r *MemoryRepository)
		org     string
		now     time.Time
		wantErr error
	}{
		{"member", func(r *MemoryRepository) { _ = r.Create(ctx, newSession("s1", "u1", "")) }, "gym-a", testNow, nil},
		{"not a member", func(r *MemoryRepository) { _ = r.Create(ctx, newSession("s1", "u1", "")) }, "gym-c", testNow, ErrNotMember},
		{"missing session", func(r *MemoryRepository) {}, "gym-a", testNow, ErrNotLive},
		{"expired", func(r *MemoryRepository) { _ = r.Create(ctx, newSession("s1", "u1", "")) }, "gym-a", testNow.Add(2 * time.Hour), ErrNotLive},
		{"revoked", func(r *MemoryRepository) {
			_ = r.Create(ctx, newSession("s1", "u1", ""))
			_ = r.Revoke(ctx, "s1", testNow)
		}, "gym-a", testNow, ErrNotLive},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewMemoryRepository(staticCheck(map[string][]string{"u1": {"gym-a", "gym-b"}}))
			tc.setup(r)
			s, err := r.ReplaceActiveOrg(ctx, "s1", tc.org, tc.now)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ReplaceActiveOrg err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr != nil {
				return
			}
			if s.ActiveOrgID != tc.org {
				t.Errorf("ActiveOrgID = %q, want %q", s.ActiveOrgID, tc.org)
			}
			stored, _ := r.GetByID(ctx, "s1")
			if stored.ActiveOrgID != tc.org {
				t.Errorf("stored ActiveOrgID = %q, want %q", stored.ActiveOrgID, tc.org)
			}
		})
	}
}

func TestMemoryRepository_ReplaceActiveOrg_FailureLeavesSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(staticCheck(map[string][]string{"u1": {"gym-a"}}))
	_ = r.Create(ctx, newSession("s1", "u1", "gym-a"))

	if _, err := r.ReplaceActiveOrg(ctx, "s1", "gym-c", testNow); !errors.Is(err, ErrNotMember) {
		t.Fatalf("err = %v, want ErrNotMember", err)
	}
	s, _ := r.GetByID(ctx, "s1")
	if s.ActiveOrgID != "gym-a" {
		t.Errorf("ActiveOrgID = %q, want unchanged gym-a", s.ActiveOrgID)
	}
}

func TestMemoryRepository_CheckErrorPropagates(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("membership store down")
	r := NewMemoryRepository(func(context.Context, string, string) (bool, error) { return false, boom })
	_ = r.Create(ctx, newSession("s1", "u1", ""))
	if _, err := r.ReplaceActiveOrg(ctx, "s1", "gym-a", testNow); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestMemoryRepository_RevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(nil)
	_ = r.Create(ctx, newSession("s1", "u1", ""))

	first := testNow.Add(time.Minute)
	if err := r.Revoke(ctx, "s1", first); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := r.Revoke(ctx, "s1", first.Add(time.Minute)); err != nil {
		t.Fatalf("second Revoke: %v", err)
	}
	if err := r.Revoke(ctx, "unknown", first); err != nil {
		t.Fatalf("Revoke(unknown): %v", err)
	}
	s, _ := r.GetByID(ctx, "s1")
	if s.RevokedAt == nil || !s.RevokedAt.Equal(first) {
		t.Errorf("RevokedAt = %v, want first revocation time %v", s.RevokedAt, first)
	}
}

func TestMemoryRepository_RevokeByUserAndActiveOrg(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(nil)
	_ = r.Create(ctx, newSession("s1", "u1", "gym-a"))
	_ = r.Create(ctx, newSession("s2", "u1", "gym-a"))
	_ = r.Create(ctx, newSession("s3", "u1", "gym-b"))
	_ = r.Create(ctx, newSession("s4", "u2", "gym-a"))

	n, err := r.RevokeByUserAndActiveOrg(ctx, "u1", "gym-a", testNow)
	if err != nil {
		t.Fatalf("RevokeByUserAndActiveOrg: %v", err)
	}
	if n != 2 {
		t.Errorf("revoked %d sessions, want 2", n)
	}
	for id, wantLive := range map[string]bool{"s1": false, "s2": false, "s3": true, "s4": true} {
		s, _ := r.GetByID(ctx, id)
		if s.Live(testNow) != wantLive {
			t.Errorf("%s live = %v, want %v", id, !wantLive, wantLive)
		}
	}
}

func TestMemoryRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(nil)
	expired := newSession("expired", "u1", "")
	expired.ExpiresAt = testNow.Add(-time.Minute)
	_ = r.Create(ctx, expired)
	_ = r.Create(ctx, newSession("revoked", "u1", ""))
	_ = r.Revoke(ctx, "revoked", testNow.Add(-time.Second))
	_ = r.Create(ctx, newSession("live", "u1", ""))

	n, err := r.DeleteExpired(ctx, testNow)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	if s, _ := r.GetByID(ctx, "live"); s == nil {
		t.Error("live session must survive the purge")
	}
}

func TestMemoryRepository_UpdateLastSeen(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(nil)
	_ = r.Create(ctx, newSession("s1", "u1", ""))
	at := testNow.Add(5 * time.Minute)
	if err := r.UpdateLastSeen(ctx, "s1", at); err != nil {
		t.Fatalf("UpdateLastSeen: %v", err)
	}
	s, _ := r.GetByID(ctx, "s1")
	if s.LastSeenAt == nil || !s.LastSeenAt.Equal(at) {
		t.Errorf("LastSeenAt = %v, want %v", s.LastSeenAt, at)
	}
}

func TestMemoryRepository_ConcurrentSwitchesAreIsolated(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository(staticCheck(map[string][]string{"u1": {"gym-a", "gym-b"}}))
	const sessions = 64
	for i := 0; i < sessions; i++ {
		_ = r.Create(ctx, newSession(fmt.Sprintf("s%d", i), "u1", ""))
	}

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			org := "gym-a"
			if i%2 == 1 {
				org = "gym-b"
			}
			if _, err := r.ReplaceActiveOrg(ctx, fmt.Sprintf("s%d", i), org, testNow); err != nil {
				t.Errorf("ReplaceActiveOrg s%d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < sessions; i++ {
		want := "gym-a"
		if i%2 == 1 {
			want = "gym-b"
		}
		s, _ := r.GetByID(ctx, fmt.Sprintf("s%d", i))
		if s.ActiveOrgID != want {
			t.Errorf("s%d ActiveOrgID = %q, want %q", i, s.ActiveOrgID, want)
		}
	}
}

func TestMemoryRepository_LogoutSwitchRace(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		r := NewMemoryRepository(staticCheck(map[string][]string{"u1": {"gym-a"}}))
		_ = r.Create(ctx, newSession("s1", "u1", ""))

		var wg sync.WaitGroup
		var switchErr error
		wg.Add(2)
		go func() { defer wg.Done(); _, switchErr = r.ReplaceActiveOrg(ctx, "s1", "gym-a", testNow) }()
		go func() { defer wg.Done(); _ = r.Revoke(ctx, "s1", testNow) }()
		wg.Wait()

		s, _ := r.GetByID(ctx, "s1")
		if s.Live(testNow) {
			t.Fatal("session must be revoked after logout")
		}
		if switchErr != nil && !errors.Is(switchErr, ErrNotLive) {
			t.Fatalf("switch err = %v, want nil or ErrNotLive", switchErr)
		}
	}
}
