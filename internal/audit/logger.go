// Package audit records security-relevant events (logins, logouts, organization switches,
// membership changes and cross-tenant access) to the audit log.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gym-tenancy/backend/internal/audit/domain"
	auditrepo "gym-tenancy/backend/internal/audit/repository"
)

// SentinelOrgID is the org_id used for audit events that have no org (e.g. login_failure, logout with invalid token).
const SentinelOrgID = "_system"

// Actions written by the auth, switch and authorization paths.
const (
	ActionLoginSuccess       = "login_success"
	ActionLoginFailure       = "login_failure"
	ActionLogout             = "logout"
	ActionSwitchOrganization = "switch_organization"
	ActionMembershipAdded    = "membership_added"
	ActionMembershipRevoked  = "membership_revoked"
	ActionCrossTenantAccess  = "cross_tenant_access"
	ActionRPC                = "rpc"
)

// Resources named in audit entries.
const (
	ResourceAuthentication = "authentication"
	ResourceSession        = "session"
	ResourceMembership     = "membership"
	ResourceOrganization   = "organization"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// FirstIP returns an IPExtractor that tries each extractor in order and returns the first non-empty IP.
func FirstIP(extractors ...IPExtractor) IPExtractor {
	return func(ctx context.Context) string {
		for _, ex := range extractors {
			if ex == nil {
				continue
			}
			if ip := ex(ctx); ip != "" {
				return ip
			}
		}
		return ""
	}
}

// AuditLogger writes a single audit event with explicit action/resource. Used by auth and session code paths.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         *zap.Logger
	timeout     time.Duration
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown". log may be nil.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log, timeout: 2 * time.Second}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
// The write is detached from ctx cancellation so a client disconnect does not drop the entry.
func (l *Logger) LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := ""
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if ip == "" {
		ip = "unknown"
	}
	if orgID == "" {
		orgID = SentinelOrgID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()
	if err := l.repo.Create(wctx, entry); err != nil {
		l.log.Warn("audit: failed to log event",
			zap.String("action", action), zap.String("resource", resource), zap.Error(err))
	}
}
