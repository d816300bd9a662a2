// Package service implements login, logout and session context queries on top of the
// credential verifier, the session store and the membership resolver.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"gym-tenancy/backend/internal/audit"
	"gym-tenancy/backend/internal/authz"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
	"gym-tenancy/backend/internal/platform/autherr"
	"gym-tenancy/backend/internal/platform/storecall"
	"gym-tenancy/backend/internal/security"
	sessiondomain "gym-tenancy/backend/internal/session/domain"
	userdomain "gym-tenancy/backend/internal/user/domain"
)

var loginCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gym",
	Subsystem: "auth",
	Name:      "logins_total",
	Help:      "The total number of login attempts by outcome",
}, []string{"outcome"})

// SessionRepo is the subset of the session repository the auth service needs.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	Revoke(ctx context.Context, id string, at time.Time) error
}

// TokenIssuer issues and parses session bearer tokens.
type TokenIssuer interface {
	IssueSession(sessionID, userID string, expiresAt time.Time) (string, error)
	ValidateSession(token string) (sessionID, userID string, err error)
}

// MembershipLister lists the organizations an identity may act in, ordered by name.
type MembershipLister interface {
	ListForUser(ctx context.Context, u *userdomain.User) ([]*orgdomain.Org, error)
}

// Gate authorizes bearer tokens.
type Gate interface {
	Authenticate(ctx context.Context, token string) (*authz.Principal, error)
	AuthorizePrincipal(ctx context.Context, p *authz.Principal, req authz.Requirement) (*authz.Context, error)
}

// LoginResult is the outcome of a successful Login.
type LoginResult struct {
	Token   string
	User    *userdomain.User
	Session *sessiondomain.Session
	// Organizations are the organizations the identity may select, ordered by name.
	Organizations []*orgdomain.Org
}

// CurrentContext describes who a session acts as and where.
type CurrentContext struct {
	User    *userdomain.User
	Session *sessiondomain.Session
	Authz   *authz.Context
}

// AuthService implements login, logout and session context queries.
type AuthService struct {
	verifier *Verifier
	sessions SessionRepo
	members  MembershipLister
	tokens   TokenIssuer
	gate     Gate
	audit    audit.AuditLogger
	log      *zap.Logger

	sessionTTL time.Duration
	timeout    time.Duration
	now        func() time.Time
}

// Config holds the AuthService settings.
type Config struct {
	SessionTTL   time.Duration
	StoreTimeout time.Duration
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(
	verifier *Verifier,
	sessions SessionRepo,
	members MembershipLister,
	tokens TokenIssuer,
	gate Gate,
	auditLogger audit.AuditLogger,
	log *zap.Logger,
	cfg Config,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	return &AuthService{
		verifier:   verifier,
		sessions:   sessions,
		members:    members,
		tokens:     tokens,
		gate:       gate,
		audit:      auditLogger,
		log:        log,
		sessionTTL: cfg.SessionTTL,
		timeout:    cfg.StoreTimeout,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Login verifies credentials and opens a session. userType, when non-empty, must match the
// identity's account type; a mismatch is reported as ErrInvalidCredentials.
//
// When the identity can act in exactly one organization that organization becomes active.
// Super-admins and identities with zero or several organizations start without one.
func (s *AuthService) Login(ctx context.Context, email, password, userType string) (*LoginResult, error) {
	u, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if userType != "" {
		t, ok := userdomain.ParseUserType(userType)
		if !ok || t != u.Type {
			s.verifier.fail(ctx, u.ID, "user type mismatch")
			return nil, autherr.ErrInvalidCredentials
		}
	}

	orgs, err := s.members.ListForUser(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", autherr.FromStore(err))
	}
	var active string
	if len(orgs) == 1 && u.Type != userdomain.UserTypeSuperAdmin {
		active = orgs[0].ID
	}

	now := s.now()
	sess := &sessiondomain.Session{
		ID:          uuid.New().String(),
		UserID:      u.ID,
		ActiveOrgID: active,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.sessionTTL),
	}
	token, err := s.tokens.IssueSession(sess.ID, u.ID, sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	sess.TokenHash = security.HashToken(token)
	err = storecall.Exec(ctx, s.timeout, func(ctx context.Context) error {
		return s.sessions.Create(ctx, sess)
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	loginCounter.WithLabelValues("success").Inc()
	s.log.Info("auth: login",
		zap.String("user_id", u.ID),
		zap.String("session_id", sess.ID),
		zap.String("active_org_id", active),
		zap.Int("organizations", len(orgs)))
	if s.audit != nil {
		s.audit.LogEvent(ctx, active, u.ID, audit.ActionLoginSuccess, audit.ResourceAuthentication, "")
	}
	return &LoginResult{Token: token, User: u, Session: sess, Organizations: orgs}, nil
}

// Logout revokes the session of token. It succeeds for tokens whose session is already gone,
// expired or revoked, so repeating it is harmless.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sessionID, userID, err := s.tokens.ValidateSession(token)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil
		}
		return autherr.ErrUnauthenticated
	}
	sess, err := storecall.Do(ctx, s.timeout, func(ctx context.Context) (*sessiondomain.Session, error) {
		return s.sessions.GetByID(ctx, sessionID)
	})
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.UserID != userID || !security.TokenHashEqual(token, sess.TokenHash) {
		return nil
	}
	if sess.RevokedAt != nil {
		return nil
	}
	err = storecall.Exec(ctx, s.timeout, func(ctx context.Context) error {
		return s.sessions.Revoke(ctx, sessionID, s.now())
	})
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if s.audit != nil {
		s.audit.LogEvent(ctx, sess.ActiveOrgID, userID, audit.ActionLogout, audit.ResourceSession, "")
	}
	return nil
}

// ListAvailableOrganizations returns the organizations the session's identity may select.
func (s *AuthService) ListAvailableOrganizations(ctx context.Context, token string) ([]*orgdomain.Org, error) {
	p, err := s.gate.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	orgs, err := s.members.ListForUser(ctx, p.User)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", autherr.FromStore(err))
	}
	return orgs, nil
}

// GetCurrentContext returns the identity, session and resolved organization context of token.
// A session without an active organization is not an error here.
func (s *AuthService) GetCurrentContext(ctx context.Context, token string) (*CurrentContext, error) {
	p, err := s.gate.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	ac, err := s.gate.AuthorizePrincipal(ctx, p, authz.AnyContext())
	if err != nil {
		return nil, err
	}
	return &CurrentContext{User: p.User, Session: p.Session, Authz: ac}, nil
}
