package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"gym-tenancy/backend/internal/audit"
)

const auditScope = "gym-tenancy/backend/audit"

// recordEmitter is the part of otellog.Logger the audit mirror needs.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// AuditMirror passes audit events to the durable audit logger and emits a copy as an OTel log record,
// so security events reach the collector alongside traces.
type AuditMirror struct {
	next   audit.AuditLogger
	logger recordEmitter
	now    func() time.Time
}

// MirrorAudit wraps next with an AuditMirror on provider. If provider is nil, next is returned unchanged.
func MirrorAudit(next audit.AuditLogger, provider *sdklog.LoggerProvider) audit.AuditLogger {
	if provider == nil {
		return next
	}
	return newAuditMirror(next, provider.Logger(auditScope))
}

func newAuditMirror(next audit.AuditLogger, logger recordEmitter) *AuditMirror {
	return &AuditMirror{next: next, logger: logger, now: time.Now}
}

// LogEvent implements audit.AuditLogger.
func (m *AuditMirror) LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if m.next != nil {
		m.next.LogEvent(ctx, orgID, userID, action, resource, metadata)
	}
	rec := otellog.Record{}
	rec.SetTimestamp(m.now().UTC())
	rec.SetSeverity(severityFor(action))
	rec.SetBody(otellog.StringValue(action))
	rec.AddAttributes(
		otellog.String("audit.action", action),
		otellog.String("audit.resource", resource),
	)
	if orgID != "" {
		rec.AddAttributes(otellog.String("org_id", orgID))
	}
	if userID != "" {
		rec.AddAttributes(otellog.String("user_id", userID))
	}
	if metadata != "" {
		rec.AddAttributes(otellog.String("audit.metadata", metadata))
	}
	m.logger.Emit(ctx, rec)
}

// severityFor raises failed logins and cross-tenant access above routine events.
func severityFor(action string) otellog.Severity {
	switch action {
	case audit.ActionLoginFailure, audit.ActionCrossTenantAccess:
		return otellog.SeverityWarn
	default:
		return otellog.SeverityInfo
	}
}
