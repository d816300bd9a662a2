package tenancy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gym-tenancy/backend/internal/audit"
	auditrepo "gym-tenancy/backend/internal/audit/repository"
	"gym-tenancy/backend/internal/authz"
	"gym-tenancy/backend/internal/authz/cache"
	"gym-tenancy/backend/internal/membership/domain"
	"gym-tenancy/backend/internal/membership/resolver"
	"gym-tenancy/backend/internal/platform/autherr"
	"gym-tenancy/backend/internal/security"
	"gym-tenancy/backend/internal/seed"
	sessiondomain "gym-tenancy/backend/internal/session/domain"
	sessionrepo "gym-tenancy/backend/internal/session/repository"
)

type harness struct {
	ctrl     *Controller
	gate     *authz.Gate
	stores   *seed.MemoryStores
	sessions *sessionrepo.MemoryRepository
	tokens   *security.TokenProvider
	cache    *cache.LRU
	audit    *auditrepo.MemoryRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	stores, err := seed.LoadMemory(context.Background(), security.NewHasher(4))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	res := resolver.New(stores.Users, resolver.NewExplicitTable(stores.Memberships), resolver.NewDirectAssignment(stores.Orgs), time.Second)
	sessions := sessionrepo.NewMemoryRepository(func(ctx context.Context, userID, orgID string) (bool, error) {
		return res.IsMember(ctx, userID, orgID)
	})
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	roleCache := cache.NewLRU(64, time.Minute)
	auditRepo := auditrepo.NewMemoryRepository()
	auditLogger := audit.NewLogger(auditRepo, nil, nil)
	gate := authz.NewGate(tokens, sessions, stores.Users, res, roleCache, auditLogger, nil, authz.Options{StoreTimeout: time.Second})
	ctrl := NewController(Deps{
		Auth:         gate,
		Roles:        res,
		Sessions:     sessions,
		Memberships:  stores.Memberships,
		Users:        stores.Users,
		Orgs:         stores.Orgs,
		Cache:        roleCache,
		Audit:        auditLogger,
		StoreTimeout: time.Second,
	})
	return &harness{ctrl: ctrl, gate: gate, stores: stores, sessions: sessions, tokens: tokens, cache: roleCache, audit: auditRepo}
}

func (h *harness) session(t *testing.T, id, userID, activeOrg string) string {
	t.Helper()
	now := time.Now().UTC()
	token, err := h.tokens.IssueSession(id, userID, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	err = h.sessions.Create(context.Background(), &sessiondomain.Session{
		ID: id, UserID: userID, ActiveOrgID: activeOrg, TokenHash: security.HashToken(token),
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}
	return token
}

func (h *harness) activeOrg(t *testing.T, sessionID string) string {
	t.Helper()
	s, err := h.sessions.GetByID(context.Background(), sessionID)
	if err != nil || s == nil {
		t.Fatalf("GetByID(%s) = (%v, %v)", sessionID, s, err)
	}
	return s.ActiveOrgID
}

func TestSetActive_SelectThenForbidden(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.session(t, "s-admin", seed.AdminID, "")

	if _, err := h.gate.Authorize(ctx, token, authz.ActiveOrganization()); !errors.Is(err, autherr.ErrOrganizationSelectionRequired) {
		t.Fatalf("Authorize before select err = %v, want ErrOrganizationSelectionRequired", err)
	}

	s, err := h.ctrl.SetActive(ctx, token, seed.GymAID)
	if err != nil {
		t.Fatalf("SetActive(GymA): %v", err)
	}
	if s.ActiveOrgID != seed.GymAID {
		t.Fatalf("ActiveOrgID = %q, want GymA", s.ActiveOrgID)
	}
	ac, err := h.gate.Authorize(ctx, token, authz.ActiveOrganization())
	if err != nil {
		t.Fatalf("Authorize after select: %v", err)
	}
	if ac.IdentityID != seed.AdminID || ac.OrganizationID != seed.GymAID || ac.Role != domain.RoleOrganizationAdmin {
		t.Fatalf("context = %+v, want admin in GymA as organization-admin", ac)
	}

	if _, err := h.ctrl.SetActive(ctx, token, seed.GymCID); !errors.Is(err, autherr.ErrForbiddenOrganization) {
		t.Fatalf("SetActive(GymC) err = %v, want ErrForbiddenOrganization", err)
	}
	if got := h.activeOrg(t, "s-admin"); got != seed.GymAID {
		t.Fatalf("active org after forbidden switch = %q, want GymA", got)
	}
}

func TestSetActive_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.session(t, "s-trainer", seed.TrainerID, seed.GymBID)

	testCases := []struct {
		name    string
		token   string
		orgID   string
		wantErr error
	}{
		{"not a member", token, seed.GymAID, autherr.ErrForbiddenOrganization},
		{"unknown organization", token, "00000000-0000-4000-a000-0000000000ff", autherr.ErrForbiddenOrganization},
		{"empty organization", token, "", autherr.ErrForbiddenOrganization},
		{"empty token", "", seed.GymBID, autherr.ErrSessionNotFound},
		{"malformed token", "garbage", seed.GymBID, autherr.ErrSessionNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.ctrl.SetActive(ctx, tc.token, tc.orgID); !errors.Is(err, tc.wantErr) {
				t.Fatalf("SetActive err = %v, want %v", err, tc.wantErr)
			}
			if got := h.activeOrg(t, "s-trainer"); got != seed.GymBID {
				t.Fatalf("active org = %q, want unchanged GymB", got)
			}
		})
	}
}

func TestSetActive_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.session(t, "s-admin", seed.AdminID, seed.GymAID)
	h.cache.Set(ctx, seed.AdminID, seed.GymAID, domain.RoleOrganizationAdmin)

	for i := 0; i < 2; i++ {
		s, err := h.ctrl.SetActive(ctx, token, seed.GymAID)
		if err != nil {
			t.Fatalf("SetActive #%d: %v", i, err)
		}
		if s.ActiveOrgID != seed.GymAID {
			t.Fatalf("ActiveOrgID = %q, want GymA", s.ActiveOrgID)
		}
	}
	if _, ok := h.cache.Get(ctx, seed.AdminID, seed.GymAID); !ok {
		t.Error("selecting the active organization again must not invalidate the cache")
	}
	for _, e := range h.audit.Entries() {
		if e.Action == audit.ActionSwitchOrganization {
			t.Fatal("no-op switch must not be audited")
		}
	}
}

func TestSetActive_InvalidatesCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.session(t, "s-admin", seed.AdminID, seed.GymAID)
	h.cache.Set(ctx, seed.AdminID, seed.GymAID, domain.RoleOrganizationAdmin)
	h.cache.Set(ctx, seed.AdminID, seed.GymBID, domain.RoleOrganizationAdmin)

	if _, err := h.ctrl.SetActive(ctx, token, seed.GymBID); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, ok := h.cache.Get(ctx, seed.AdminID, seed.GymAID); ok {
		t.Error("old organization still cached")
	}
	if _, ok := h.cache.Get(ctx, seed.AdminID, seed.GymBID); ok {
		t.Error("new organization still cached")
	}
}

func TestSetActive_IsolatedPerToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.session(t, "s-1", seed.AdminID, "")
	second := h.session(t, "s-2", seed.AdminID, "")

	if _, err := h.ctrl.SetActive(ctx, first, seed.GymAID); err != nil {
		t.Fatalf("SetActive(first): %v", err)
	}
	if _, err := h.ctrl.SetActive(ctx, second, seed.GymBID); err != nil {
		t.Fatalf("SetActive(second): %v", err)
	}
	if got := h.activeOrg(t, "s-1"); got != seed.GymAID {
		t.Errorf("first session active = %q, want GymA", got)
	}
	if got := h.activeOrg(t, "s-2"); got != seed.GymBID {
		t.Errorf("second session active = %q, want GymB", got)
	}
}

func TestSetActive_RevokedOrExpiredSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	revoked := h.session(t, "s-revoked", seed.AdminID, "")
	if err := h.sessions.Revoke(ctx, "s-revoked", time.Now()); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := h.ctrl.SetActive(ctx, revoked, seed.GymAID); !errors.Is(err, autherr.ErrSessionNotFound) {
		t.Errorf("SetActive(revoked) err = %v, want ErrSessionNotFound", err)
	}

	expired, err := h.tokens.IssueSession("s-expired", seed.AdminID, time.Now().Add(-time.Second))
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if _, err := h.ctrl.SetActive(ctx, expired, seed.GymAID); !errors.Is(err, autherr.ErrSessionNotFound) {
		t.Errorf("SetActive(expired) err = %v, want ErrSessionNotFound", err)
	}
}

func TestSetActive_ConcurrentSwitchesLandOnAMembership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.session(t, "s-admin", seed.AdminID, "")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		org := seed.GymAID
		if i%2 == 1 {
			org = seed.GymBID
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.ctrl.SetActive(ctx, token, org); err != nil {
				t.Errorf("SetActive: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := h.activeOrg(t, "s-admin"); got != seed.GymAID && got != seed.GymBID {
		t.Fatalf("active org = %q, want GymA or GymB", got)
	}
}

func TestRevokeMember_ForceExpiresActiveSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	inB := h.session(t, "s-in-b", seed.AdminID, seed.GymBID)
	inA := h.session(t, "s-in-a", seed.AdminID, seed.GymAID)
	h.cache.Set(ctx, seed.AdminID, seed.GymBID, domain.RoleOrganizationAdmin)
	actor := &authz.Context{IdentityID: seed.SuperAdminID}

	n, err := h.ctrl.RevokeMember(ctx, actor, seed.GymBID, seed.AdminID)
	if err != nil {
		t.Fatalf("RevokeMember: %v", err)
	}
	if n != 1 {
		t.Errorf("sessions revoked = %d, want 1", n)
	}
	if _, ok := h.cache.Get(ctx, seed.AdminID, seed.GymBID); ok {
		t.Error("revoked membership still cached")
	}
	if _, err := h.gate.Authorize(ctx, inB, authz.AnyContext()); !errors.Is(err, autherr.ErrSessionNotFound) {
		t.Errorf("session active in revoked org: err = %v, want ErrSessionNotFound", err)
	}
	if _, err := h.gate.Authorize(ctx, inA, authz.ActiveOrganization()); err != nil {
		t.Errorf("session active in another org: %v", err)
	}
	if _, err := h.ctrl.SetActive(ctx, inA, seed.GymBID); !errors.Is(err, autherr.ErrForbiddenOrganization) {
		t.Errorf("SetActive(revoked org) err = %v, want ErrForbiddenOrganization", err)
	}
	if _, err := h.ctrl.RevokeMember(ctx, actor, seed.GymBID, seed.AdminID); !errors.Is(err, ErrNotMember) {
		t.Errorf("second RevokeMember err = %v, want ErrNotMember", err)
	}
}

func TestAddMember(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	actor := &authz.Context{IdentityID: seed.AdminID, OrganizationID: seed.GymAID}

	testCases := []struct {
		name    string
		orgID   string
		userID  string
		role    domain.Role
		wantErr error
	}{
		{"trainer joins GymA", seed.GymAID, seed.TrainerID, domain.RoleTrainer, nil},
		{"duplicate", seed.GymAID, seed.TrainerID, domain.RoleTrainer, ErrAlreadyMember},
		{"invalid role", seed.GymAID, seed.NoGymMemberID, domain.RoleSuperAdmin, ErrInvalidRole},
		{"unknown user", seed.GymAID, "00000000-0000-4000-b000-0000000000ff", domain.RoleMember, ErrUnknownUser},
		{"unknown org", "00000000-0000-4000-a000-0000000000ff", seed.NoGymMemberID, domain.RoleMember, ErrUnknownOrganization},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := h.ctrl.AddMember(ctx, actor, tc.orgID, tc.userID, tc.role)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("AddMember err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddMember: %v", err)
			}
			if m.ID == "" || m.Role != tc.role {
				t.Fatalf("membership = %+v", m)
			}
		})
	}

	members, err := h.ctrl.ListMembers(ctx, seed.GymAID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	var found bool
	for _, m := range members {
		if m.UserID == seed.TrainerID && m.Role == domain.RoleTrainer {
			found = true
		}
	}
	if !found {
		t.Fatalf("ListMembers(GymA) = %+v, want trainer listed", members)
	}
}

func TestSetActive_ReselectRechecksMembership(t *testing.T) {
	testCases := []struct {
		name   string
		userID string
		lose   func(ctx context.Context, h *harness) error
	}{
		{"membership deleted", seed.AdminID, func(ctx context.Context, h *harness) error {
			_, err := h.stores.Memberships.DeleteByUserAndOrg(ctx, seed.AdminID, seed.GymAID)
			return err
		}},
		{"organization deactivated", seed.DirectMemberID, func(ctx context.Context, h *harness) error {
			return h.stores.Orgs.SetActive(ctx, seed.GymAID, false)
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			token := h.session(t, "s-stale", tc.userID, "")

			if _, err := h.ctrl.SetActive(ctx, token, seed.GymAID); err != nil {
				t.Fatalf("SetActive(GymA): %v", err)
			}
			if err := tc.lose(ctx, h); err != nil {
				t.Fatalf("drop membership: %v", err)
			}
			if _, err := h.ctrl.SetActive(ctx, token, seed.GymAID); !errors.Is(err, autherr.ErrForbiddenOrganization) {
				t.Fatalf("SetActive(GymA) again err = %v, want ErrForbiddenOrganization", err)
			}
			if got := h.activeOrg(t, "s-stale"); got != seed.GymAID {
				t.Fatalf("active org = %q, want unchanged GymA", got)
			}
		})
	}
}

type failingCache struct{ cache.Noop }

func (failingCache) Invalidate(context.Context, string, string) error {
	return errors.New("redis: connection refused")
}

func TestCacheInvalidationFailureChangesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d := h.ctrl.d
	d.Cache = failingCache{}
	ctrl := NewController(d)
	token := h.session(t, "s-admin", seed.AdminID, seed.GymAID)

	if _, err := ctrl.SetActive(ctx, token, seed.GymBID); !errors.Is(err, autherr.ErrTemporaryUnavailable) {
		t.Fatalf("SetActive err = %v, want ErrTemporaryUnavailable", err)
	}
	if got := h.activeOrg(t, "s-admin"); got != seed.GymAID {
		t.Fatalf("active org = %q, want unchanged GymA", got)
	}

	actor := &authz.Context{IdentityID: seed.SuperAdminID}
	if _, err := ctrl.RevokeMember(ctx, actor, seed.GymAID, seed.AdminID); !errors.Is(err, autherr.ErrTemporaryUnavailable) {
		t.Fatalf("RevokeMember err = %v, want ErrTemporaryUnavailable", err)
	}
	if _, err := h.gate.Authorize(ctx, token, authz.ActiveOrganization()); err != nil {
		t.Fatalf("session after failed revoke: %v", err)
	}
}
