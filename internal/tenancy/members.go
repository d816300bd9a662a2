package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gym-tenancy/backend/internal/audit"
	"gym-tenancy/backend/internal/authz"
	"gym-tenancy/backend/internal/membership/domain"
	membershiprepo "gym-tenancy/backend/internal/membership/repository"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
	"gym-tenancy/backend/internal/platform/storecall"
	userdomain "gym-tenancy/backend/internal/user/domain"
)

var (
	ErrUnknownOrganization = errors.New("organization not found")
	ErrUnknownUser         = errors.New("user not found")
	ErrInvalidRole         = errors.New("invalid membership role")
	ErrAlreadyMember       = errors.New("user is already a member of the organization")
	ErrNotMember           = errors.New("user is not a member of the organization")
)

// Organization returns the active organization orgID, or ErrUnknownOrganization.
func (c *Controller) Organization(ctx context.Context, orgID string) (*orgdomain.Org, error) {
	o, err := storecall.Do(ctx, c.d.StoreTimeout, func(ctx context.Context) (*orgdomain.Org, error) {
		return c.d.Orgs.GetOrganizationByID(ctx, orgID)
	})
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	if o == nil || !o.Active {
		return nil, ErrUnknownOrganization
	}
	return o, nil
}

// ListMembers returns the explicit memberships of orgID.
func (c *Controller) ListMembers(ctx context.Context, orgID string) ([]*domain.Membership, error) {
	if _, err := c.Organization(ctx, orgID); err != nil {
		return nil, err
	}
	ms, err := storecall.Do(ctx, c.d.StoreTimeout, func(ctx context.Context) ([]*domain.Membership, error) {
		return c.d.Memberships.ListMembershipsByOrg(ctx, orgID)
	})
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if ms == nil {
		ms = []*domain.Membership{}
	}
	return ms, nil
}

// AddMember grants userID role in orgID on behalf of actor.
func (c *Controller) AddMember(ctx context.Context, actor *authz.Context, orgID, userID string, role domain.Role) (*domain.Membership, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if _, err := c.Organization(ctx, orgID); err != nil {
		return nil, err
	}
	u, err := storecall.Do(ctx, c.d.StoreTimeout, func(ctx context.Context) (*userdomain.User, error) {
		return c.d.Users.GetByID(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, ErrUnknownUser
	}
	m := &domain.Membership{
		ID:        uuid.New().String(),
		UserID:    userID,
		OrgID:     orgID,
		Role:      role,
		CreatedAt: c.d.Now(),
	}
	err = storecall.Exec(ctx, c.d.StoreTimeout, func(ctx context.Context) error {
		return c.d.Memberships.CreateMembership(ctx, m)
	})
	if errors.Is(err, membershiprepo.ErrDuplicate) {
		return nil, ErrAlreadyMember
	}
	if err != nil {
		return nil, fmt.Errorf("create membership: %w", err)
	}
	// A direct assignment may have been cached under a different role.
	_ = c.invalidate(ctx, userID, orgID)
	if c.d.Audit != nil {
		c.d.Audit.LogEvent(ctx, orgID, actorID(actor), audit.ActionMembershipAdded, audit.ResourceMembership,
			"user="+userID+" role="+string(role))
	}
	return m, nil
}

// RevokeMember removes userID's membership in orgID. Every live session of userID whose active
// organization is orgID is revoked. Cached roles are dropped before the membership is deleted;
// if that fails nothing changes and TemporaryUnavailable is returned. It returns the number of
// sessions revoked.
func (c *Controller) RevokeMember(ctx context.Context, actor *authz.Context, orgID, userID string) (int64, error) {
	if err := c.invalidate(ctx, userID, orgID); err != nil {
		return 0, err
	}
	deleted, err := storecall.Do(ctx, c.d.StoreTimeout, func(ctx context.Context) (bool, error) {
		return c.d.Memberships.DeleteByUserAndOrg(ctx, userID, orgID)
	})
	if err != nil {
		return 0, fmt.Errorf("delete membership: %w", err)
	}
	if !deleted {
		return 0, ErrNotMember
	}
	// A role cached between the first invalidation and the delete is dropped here; it would
	// otherwise live until the cache TTL.
	_ = c.invalidate(ctx, userID, orgID)
	revoked, err := storecall.Do(ctx, c.d.StoreTimeout, func(ctx context.Context) (int64, error) {
		return c.d.Sessions.RevokeByUserAndActiveOrg(ctx, userID, orgID, c.d.Now())
	})
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	c.d.Log.Info("tenancy: membership revoked",
		zap.String("organization_id", orgID),
		zap.String("user_id", userID),
		zap.Int64("sessions_revoked", revoked))
	if c.d.Audit != nil {
		c.d.Audit.LogEvent(ctx, orgID, actorID(actor), audit.ActionMembershipRevoked, audit.ResourceMembership,
			fmt.Sprintf("user=%s sessions_revoked=%d", userID, revoked))
	}
	return revoked, nil
}

func actorID(actor *authz.Context) string {
	if actor == nil {
		return ""
	}
	return actor.IdentityID
}
