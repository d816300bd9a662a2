package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gym-tenancy/backend/internal/audit/domain"
	auditrepo "gym-tenancy/backend/internal/audit/repository"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	mu        sync.Mutex
	entries   []*domain.AuditLog
	createErr error
	ctxErr    error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErr = ctx.Err()
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func(context.Context) string { return "192.168.1.1" }, nil)

	logger.LogEvent(context.Background(), "gym-a", "user-1", ActionSwitchOrganization, ResourceSession, `{"from":"gym-b"}`)

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.OrgID != "gym-a" {
		t.Errorf("org_id = %q, want %q", entry.OrgID, "gym-a")
	}
	if entry.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", entry.UserID, "user-1")
	}
	if entry.Action != ActionSwitchOrganization {
		t.Errorf("action = %q, want %q", entry.Action, ActionSwitchOrganization)
	}
	if entry.Resource != ResourceSession {
		t.Errorf("resource = %q, want %q", entry.Resource, ResourceSession)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.Metadata != `{"from":"gym-b"}` {
		t.Errorf("metadata = %q", entry.Metadata)
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry CreatedAt should be set")
	}
}

func TestLogger_LogEvent_NilIPExtractor(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil, nil).LogEvent(context.Background(), "gym-a", "user-1", ActionLogout, ResourceSession, "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want %q", repo.entries[0].IP, "unknown")
	}
}

func TestLogger_LogEvent_SentinelOrgID(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil, nil).LogEvent(context.Background(), "", "", ActionLoginFailure, ResourceAuthentication, "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.entries[0].OrgID != SentinelOrgID {
		t.Errorf("org_id = %q, want %q", repo.entries[0].OrgID, SentinelOrgID)
	}
}

func TestLogger_LogEvent_CanceledRequestStillWrites(t *testing.T) {
	repo := &mockAuditRepo{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewLogger(repo, nil, nil).LogEvent(ctx, "gym-a", "user-1", ActionLogout, ResourceSession, "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if repo.ctxErr != nil {
		t.Errorf("repository saw canceled context: %v", repo.ctxErr)
	}
}

func TestLogger_LogEvent_RepositoryErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := &mockAuditRepo{createErr: errors.New("database error")}

	NewLogger(repo, nil, zap.New(core)).LogEvent(context.Background(), "gym-a", "user-1", ActionLogout, ResourceSession, "")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["action"]; got != ActionLogout {
		t.Errorf("logged action = %v, want %q", got, ActionLogout)
	}
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	// no-op when repo is nil
	NewLogger(nil, nil, nil).LogEvent(context.Background(), "gym-a", "user-1", ActionLogout, ResourceSession, "")
}

func TestLogger_MemoryRepository(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	logger := NewLogger(repo, nil, nil)
	ctx := context.Background()
	logger.LogEvent(ctx, "gym-a", "u1", ActionMembershipAdded, ResourceMembership, "")
	logger.LogEvent(ctx, "gym-b", "u1", ActionMembershipAdded, ResourceMembership, "")
	logger.LogEvent(ctx, "gym-a", "u2", ActionMembershipRevoked, ResourceMembership, "")

	list, err := repo.ListByOrg(ctx, "gym-a", 10, 0)
	if err != nil {
		t.Fatalf("ListByOrg: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByOrg returned %d entries, want 2", len(list))
	}
	if len(repo.Entries()) != 3 {
		t.Errorf("Entries returned %d, want 3", len(repo.Entries()))
	}
}

func TestFirstIP(t *testing.T) {
	empty := func(context.Context) string { return "" }
	fixed := func(ip string) IPExtractor { return func(context.Context) string { return ip } }
	testCases := []struct {
		name       string
		extractors []IPExtractor
		want       string
	}{
		{"none", nil, ""},
		{"first wins", []IPExtractor{fixed("10.0.0.1"), fixed("10.0.0.2")}, "10.0.0.1"},
		{"skips empty", []IPExtractor{empty, nil, fixed("10.0.0.2")}, "10.0.0.2"},
		{"all empty", []IPExtractor{empty, empty}, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FirstIP(tc.extractors...)(context.Background()); got != tc.want {
				t.Errorf("FirstIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLogger_LogEvent_EmptyIPRecordedAsUnknown(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	NewLogger(repo, func(context.Context) string { return "" }, nil).
		LogEvent(context.Background(), "gym-a", "u1", ActionLogout, ResourceSession, "")
	if got := repo.Entries()[0].IP; got != "unknown" {
		t.Errorf("IP = %q, want unknown", got)
	}
}
