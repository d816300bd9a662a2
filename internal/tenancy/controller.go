// Package tenancy changes which organization a session acts in and maintains the memberships
// that decide which organizations are allowed.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"gym-tenancy/backend/internal/audit"
	"gym-tenancy/backend/internal/authz"
	"gym-tenancy/backend/internal/authz/cache"
	"gym-tenancy/backend/internal/membership/domain"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
	"gym-tenancy/backend/internal/platform/autherr"
	"gym-tenancy/backend/internal/platform/storecall"
	sessiondomain "gym-tenancy/backend/internal/session/domain"
	sessionrepo "gym-tenancy/backend/internal/session/repository"
	userdomain "gym-tenancy/backend/internal/user/domain"
)

var tracer = otel.Tracer("gym-tenancy/backend/internal/tenancy")

var switchCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gym",
	Subsystem: "tenancy",
	Name:      "switches_total",
	Help:      "The total number of active organization switches by outcome",
}, []string{"outcome"})

// Authenticator resolves a bearer token to its live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*authz.Principal, error)
}

// RoleResolver answers the identity's role in an organization.
type RoleResolver interface {
	RoleForUser(ctx context.Context, u *userdomain.User, orgID string) (domain.Role, bool, error)
}

// SessionWriter is the subset of the session repository the controller writes through.
type SessionWriter interface {
	ReplaceActiveOrg(ctx context.Context, id, orgID string, now time.Time) (*sessiondomain.Session, error)
	RevokeByUserAndActiveOrg(ctx context.Context, userID, orgID string, at time.Time) (int64, error)
}

// MembershipStore is the membership persistence used for adding and revoking members.
type MembershipStore interface {
	ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error)
	CreateMembership(ctx context.Context, m *domain.Membership) error
	DeleteByUserAndOrg(ctx context.Context, userID, orgID string) (bool, error)
}

// UserStore loads identities by id.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// OrgStore loads organizations by id.
type OrgStore interface {
	GetOrganizationByID(ctx context.Context, id string) (*orgdomain.Org, error)
}

// Deps groups the collaborators of a Controller.
type Deps struct {
	Auth        Authenticator
	Roles       RoleResolver
	Sessions    SessionWriter
	Memberships MembershipStore
	Users       UserStore
	Orgs        OrgStore
	// Cache is the authorization role cache invalidated on every change; nil means none.
	Cache cache.RoleCache
	Audit audit.AuditLogger
	Log   *zap.Logger
	// StoreTimeout bounds each store call.
	StoreTimeout time.Duration
	Now          func() time.Time
}

// Controller is the only writer of a session's active organization. Safe for concurrent use.
type Controller struct {
	d Deps
}

// NewController returns a Controller.
func NewController(d Deps) *Controller {
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Controller{d: d}
}

// SetActive makes orgID the active organization of the session identified by token.
//
// The caller must currently belong to orgID; membership is checked on every call and again by
// the store in the same write. Selecting the organization that is already active succeeds
// without writing. On failure the session is left unchanged. Cached roles for the previous and
// the new organization are invalidated before the write; if that fails the session is left
// unchanged and TemporaryUnavailable is returned.
func (c *Controller) SetActive(ctx context.Context, token, orgID string) (*sessiondomain.Session, error) {
	ctx, span := tracer.Start(ctx, "tenancy.SetActive")
	defer span.End()
	span.SetAttributes(attribute.String("tenancy.organization_id", orgID))

	s, changed, err := c.setActive(ctx, token, orgID)
	outcome := "switched"
	switch {
	case err != nil:
		outcome = string(autherr.CodeOf(err))
		if outcome == "" {
			outcome = "error"
		}
		span.SetStatus(codes.Error, outcome)
	case !changed:
		outcome = "unchanged"
	}
	switchCounter.WithLabelValues(outcome).Inc()
	return s, err
}

func (c *Controller) setActive(ctx context.Context, token, orgID string) (*sessiondomain.Session, bool, error) {
	p, err := c.d.Auth.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, autherr.ErrUnauthenticated) {
			return nil, false, autherr.ErrSessionNotFound
		}
		return nil, false, err
	}
	if orgID == "" {
		return nil, false, autherr.ErrForbiddenOrganization
	}
	_, ok, err := c.d.Roles.RoleForUser(ctx, p.User, orgID)
	if err != nil {
		return nil, false, fmt.Errorf("check membership: %w", autherr.FromStore(err))
	}
	if !ok {
		return nil, false, autherr.ErrForbiddenOrganization
	}
	previous := p.Session.ActiveOrgID
	if previous == orgID {
		return p.Session, false, nil
	}

	if err := c.invalidate(ctx, p.User.ID, previous, orgID); err != nil {
		return nil, false, err
	}
	updated, err := storecall.Do(ctx, c.d.StoreTimeout, func(ctx context.Context) (*sessiondomain.Session, error) {
		return c.d.Sessions.ReplaceActiveOrg(ctx, p.Session.ID, orgID, c.d.Now())
	})
	switch {
	case errors.Is(err, sessionrepo.ErrNotLive):
		return nil, false, autherr.ErrSessionNotFound
	case errors.Is(err, sessionrepo.ErrNotMember):
		return nil, false, autherr.ErrForbiddenOrganization
	case err != nil:
		return nil, false, fmt.Errorf("replace active organization: %w", err)
	}

	c.d.Log.Info("tenancy: active organization switched",
		zap.String("identity_id", p.User.ID),
		zap.String("session_id", p.Session.ID),
		zap.String("from", previous),
		zap.String("to", orgID))
	if c.d.Audit != nil {
		c.d.Audit.LogEvent(ctx, orgID, p.User.ID, audit.ActionSwitchOrganization, audit.ResourceSession, "from="+previous)
	}
	return updated, true, nil
}

// invalidate drops cached roles of identityID in each non-empty org. A failure is returned as
// TemporaryUnavailable so the caller can abort before changing anything.
func (c *Controller) invalidate(ctx context.Context, identityID string, orgIDs ...string) error {
	for _, orgID := range orgIDs {
		if orgID == "" {
			continue
		}
		err := storecall.Exec(ctx, c.d.StoreTimeout, func(ctx context.Context) error {
			return c.d.Cache.Invalidate(ctx, identityID, orgID)
		})
		if err != nil {
			c.d.Log.Warn("tenancy: role cache invalidation failed",
				zap.String("identity_id", identityID), zap.String("organization_id", orgID), zap.Error(err))
			return fmt.Errorf("invalidate role cache: %w", autherr.Temporary(err))
		}
	}
	return nil
}
