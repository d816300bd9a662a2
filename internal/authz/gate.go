// Package authz resolves bearer tokens into an authorization context scoped to the session's
// active organization.
package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"gym-tenancy/backend/internal/audit"
	"gym-tenancy/backend/internal/authz/cache"
	"gym-tenancy/backend/internal/membership/domain"
	"gym-tenancy/backend/internal/platform/autherr"
	"gym-tenancy/backend/internal/platform/storecall"
	"gym-tenancy/backend/internal/security"
	sessiondomain "gym-tenancy/backend/internal/session/domain"
	userdomain "gym-tenancy/backend/internal/user/domain"
)

var tracer = otel.Tracer("gym-tenancy/backend/internal/authz")

// TokenValidator validates session bearer tokens.
type TokenValidator interface {
	ValidateSession(token string) (sessionID, userID string, err error)
}

// SessionStore is the subset of the session repository the gate reads.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}

// UserStore loads identities by id.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// RoleResolver answers the identity's role in an organization.
type RoleResolver interface {
	RoleForUser(ctx context.Context, u *userdomain.User, orgID string) (domain.Role, bool, error)
}

// Options tunes a Gate. Zero values fall back to defaults.
type Options struct {
	// StoreTimeout bounds each store call.
	StoreTimeout time.Duration
	// LastSeenInterval throttles last_seen_at writes per session.
	LastSeenInterval time.Duration
	Now              func() time.Time
}

// Gate authorizes requests. Safe for concurrent use.
type Gate struct {
	tokens   TokenValidator
	sessions SessionStore
	users    UserStore
	roles    RoleResolver
	cache    cache.RoleCache
	audit    audit.AuditLogger
	log      *zap.Logger

	timeout          time.Duration
	lastSeenInterval time.Duration
	now              func() time.Time
}

// NewGate returns a Gate. roleCache and auditLogger may be nil.
func NewGate(tokens TokenValidator, sessions SessionStore, users UserStore, roles RoleResolver,
	roleCache cache.RoleCache, auditLogger audit.AuditLogger, log *zap.Logger, opts Options) *Gate {
	if roleCache == nil {
		roleCache = cache.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LastSeenInterval <= 0 {
		opts.LastSeenInterval = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gate{
		tokens:           tokens,
		sessions:         sessions,
		users:            users,
		roles:            roles,
		cache:            roleCache,
		audit:            auditLogger,
		log:              log,
		timeout:          opts.StoreTimeout,
		lastSeenInterval: opts.LastSeenInterval,
		now:              opts.Now,
	}
}

// Principal is a live session together with its identity.
type Principal struct {
	User    *userdomain.User
	Session *sessiondomain.Session
}

// Authenticate resolves token to a live session and an enabled identity without looking at
// organizations. It returns ErrUnauthenticated for a missing or malformed token and
// ErrSessionNotFound when the session is absent, expired or revoked.
func (g *Gate) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, autherr.ErrUnauthenticated
	}
	sessionID, userID, err := g.tokens.ValidateSession(token)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, autherr.ErrSessionNotFound
		}
		return nil, autherr.ErrUnauthenticated
	}
	s, err := storecall.Do(ctx, g.timeout, func(ctx context.Context) (*sessiondomain.Session, error) {
		return g.sessions.GetByID(ctx, sessionID)
	})
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	now := g.now()
	if s == nil || !s.Live(now) || s.UserID != userID || !security.TokenHashEqual(token, s.TokenHash) {
		return nil, autherr.ErrSessionNotFound
	}
	u, err := storecall.Do(ctx, g.timeout, func(ctx context.Context) (*userdomain.User, error) {
		return g.users.GetByID(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if u == nil || u.Status == userdomain.UserStatusDisabled {
		return nil, autherr.ErrSessionNotFound
	}
	g.touch(ctx, s, now)
	return &Principal{User: u, Session: s}, nil
}

func (g *Gate) touch(ctx context.Context, s *sessiondomain.Session, now time.Time) {
	if s.LastSeenAt != nil && now.Sub(*s.LastSeenAt) < g.lastSeenInterval {
		return
	}
	err := storecall.Exec(ctx, g.timeout, func(ctx context.Context) error {
		return g.sessions.UpdateLastSeen(ctx, s.ID, now)
	})
	if err != nil {
		g.log.Debug("authz: update last seen failed", zap.String("session_id", s.ID), zap.Error(err))
	}
}

// Authorize resolves token and checks it against req. On success the returned Context carries
// the identity, the organization the request is scoped to and the role held there.
func (g *Gate) Authorize(ctx context.Context, token string, req Requirement) (*Context, error) {
	ctx, span := tracer.Start(ctx, "authz.Authorize")
	defer span.End()
	p, err := g.Authenticate(ctx, token)
	if err == nil {
		return g.decide(ctx, span, p, req)
	}
	g.record(span, req, nil, err)
	return nil, err
}

// AuthorizePrincipal checks an already authenticated principal against req.
func (g *Gate) AuthorizePrincipal(ctx context.Context, p *Principal, req Requirement) (*Context, error) {
	ctx, span := tracer.Start(ctx, "authz.AuthorizePrincipal")
	defer span.End()
	return g.decide(ctx, span, p, req)
}

func (g *Gate) decide(ctx context.Context, span trace.Span, p *Principal, req Requirement) (*Context, error) {
	ac, err := g.check(ctx, p, req)
	g.record(span, req, ac, err)
	if err != nil {
		return nil, err
	}
	return ac, nil
}

func (g *Gate) record(span trace.Span, req Requirement, ac *Context, err error) {
	span.SetAttributes(attribute.String("authz.requirement", req.String()))
	outcome := "allow"
	if err != nil {
		outcome = string(autherr.CodeOf(err))
		if outcome == "" {
			outcome = "error"
		}
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetAttributes(
			attribute.String("authz.identity_id", ac.IdentityID),
			attribute.String("authz.organization_id", ac.OrganizationID),
			attribute.Bool("authz.cross_tenant", ac.CrossTenant),
		)
	}
	decisionCounter.WithLabelValues(modeLabel(req.Mode), outcome).Inc()
}

func (g *Gate) check(ctx context.Context, p *Principal, req Requirement) (*Context, error) {
	ac := &Context{IdentityID: p.User.ID, SessionID: p.Session.ID}
	active := p.Session.ActiveOrgID
	superAdmin := p.User.Type == userdomain.UserTypeSuperAdmin

	switch req.Mode {
	case ModeAnyContext:
		if active == "" {
			if superAdmin {
				ac.Role = domain.RoleSuperAdmin
			}
			return ac, nil
		}
		role, ok, err := g.roleFor(ctx, p.User, active)
		if err != nil {
			return nil, err
		}
		switch {
		case superAdmin && !ok:
			return g.crossTenant(ctx, ac, active, "no membership in active organization"), nil
		case !ok:
			// The active organization is no longer held; report no selection.
			return ac, nil
		}
		ac.OrganizationID = active
		ac.Role = role
		if superAdmin {
			ac.Role = domain.RoleSuperAdmin
		}
		return ac, nil

	case ModePinnedOrganization:
		if req.OrgID == "" {
			return nil, autherr.ErrForbiddenOrganization
		}
		if req.OrgID != active {
			if superAdmin {
				return g.crossTenant(ctx, ac, req.OrgID, "pinned organization differs from active"), nil
			}
			if active == "" {
				return nil, autherr.ErrOrganizationSelectionRequired
			}
			return nil, autherr.ErrForbiddenOrganization
		}

	case ModeActiveOrganization:
		if active == "" {
			return nil, autherr.ErrOrganizationSelectionRequired
		}

	default:
		return nil, fmt.Errorf("authz: unknown requirement mode %d", req.Mode)
	}

	role, ok, err := g.roleFor(ctx, p.User, active)
	if err != nil {
		return nil, err
	}
	if !ok {
		if superAdmin {
			return g.crossTenant(ctx, ac, active, "no membership in active organization"), nil
		}
		return nil, autherr.ErrForbiddenOrganization
	}
	ac.OrganizationID = active
	ac.Role = role
	if superAdmin {
		ac.Role = domain.RoleSuperAdmin
	}
	return ac, nil
}

// crossTenant grants a super-admin access to orgID and records it.
func (g *Gate) crossTenant(ctx context.Context, ac *Context, orgID, reason string) *Context {
	ac.OrganizationID = orgID
	ac.Role = domain.RoleSuperAdmin
	ac.CrossTenant = true
	crossTenantCounter.Inc()
	g.log.Info("authz: cross-tenant access",
		zap.String("identity_id", ac.IdentityID),
		zap.String("organization_id", orgID),
		zap.String("reason", reason))
	if g.audit != nil {
		g.audit.LogEvent(ctx, orgID, ac.IdentityID, audit.ActionCrossTenantAccess, audit.ResourceOrganization, reason)
	}
	return ac
}

func (g *Gate) roleFor(ctx context.Context, u *userdomain.User, orgID string) (domain.Role, bool, error) {
	if role, ok := g.cache.Get(ctx, u.ID, orgID); ok {
		roleCacheCounter.WithLabelValues("hit").Inc()
		return role, true, nil
	}
	roleCacheCounter.WithLabelValues("miss").Inc()
	role, ok, err := g.roles.RoleForUser(ctx, u, orgID)
	if err != nil {
		return "", false, fmt.Errorf("resolve role: %w", autherr.FromStore(err))
	}
	if ok {
		g.cache.Set(ctx, u.ID, orgID, role)
	}
	return role, ok, nil
}
