// Package resolver answers which organizations an identity belongs to and in what role.
//
// Memberships come from one or more MembershipSource implementations picked by user type.
// Sources are consulted in order and the first one that records any organization for the
// identity is authoritative, so a member's direct gym assignment only counts when no explicit
// membership exists.
package resolver

import (
	"context"
	"sort"
	"time"

	"gym-tenancy/backend/internal/membership/domain"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
	"gym-tenancy/backend/internal/platform/storecall"
	userdomain "gym-tenancy/backend/internal/user/domain"
)

// UserStore loads identities by id.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Resolver resolves organization memberships. Safe for concurrent use.
type Resolver struct {
	users    UserStore
	explicit MembershipSource
	direct   MembershipSource
	timeout  time.Duration
}

// New returns a Resolver. timeout bounds each store call; 0 disables the bound.
func New(users UserStore, explicit, direct MembershipSource, timeout time.Duration) *Resolver {
	return &Resolver{users: users, explicit: explicit, direct: direct, timeout: timeout}
}

// SourcesFor returns the sources consulted for u, in priority order.
func (r *Resolver) SourcesFor(u *userdomain.User) []MembershipSource {
	switch u.Type {
	case userdomain.UserTypeMember, userdomain.UserTypeTrainer:
		return []MembershipSource{r.explicit, r.direct}
	default:
		return []MembershipSource{r.explicit}
	}
}

func (r *Resolver) user(ctx context.Context, identityID string) (*userdomain.User, error) {
	return storecall.Do(ctx, r.timeout, func(ctx context.Context) (*userdomain.User, error) {
		return r.users.GetByID(ctx, identityID)
	})
}

// ListMemberships returns the active organizations identityID belongs to, ordered by name
// with no duplicates. An unknown identity or one without memberships yields an empty list.
func (r *Resolver) ListMemberships(ctx context.Context, identityID string) ([]*orgdomain.Org, error) {
	u, err := r.user(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return []*orgdomain.Org{}, nil
	}
	return r.ListForUser(ctx, u)
}

// ListForUser is ListMemberships for an already loaded identity.
func (r *Resolver) ListForUser(ctx context.Context, u *userdomain.User) ([]*orgdomain.Org, error) {
	for _, src := range r.SourcesFor(u) {
		orgs, err := storecall.Do(ctx, r.timeout, func(ctx context.Context) ([]*orgdomain.Org, error) {
			return src.Organizations(ctx, u)
		})
		if err != nil {
			return nil, err
		}
		if len(orgs) > 0 {
			return dedupeSorted(orgs), nil
		}
	}
	return []*orgdomain.Org{}, nil
}

// IsMember reports whether identityID currently belongs to orgID.
func (r *Resolver) IsMember(ctx context.Context, identityID, orgID string) (bool, error) {
	_, ok, err := r.RoleIn(ctx, identityID, orgID)
	return ok, err
}

// RoleIn returns identityID's role in orgID. ok is false when the identity does not belong to it.
func (r *Resolver) RoleIn(ctx context.Context, identityID, orgID string) (domain.Role, bool, error) {
	u, err := r.user(ctx, identityID)
	if err != nil || u == nil {
		return "", false, err
	}
	return r.RoleForUser(ctx, u, orgID)
}

// RoleForUser is RoleIn for an already loaded identity.
func (r *Resolver) RoleForUser(ctx context.Context, u *userdomain.User, orgID string) (domain.Role, bool, error) {
	if orgID == "" {
		return "", false, nil
	}
	for _, src := range r.SourcesFor(u) {
		role, ok, err := r.role(ctx, src, u, orgID)
		if err != nil || ok {
			return role, ok, err
		}
		hasAny, err := storecall.Do(ctx, r.timeout, func(ctx context.Context) (bool, error) {
			return src.HasAny(ctx, u)
		})
		if err != nil {
			return "", false, err
		}
		if hasAny {
			// Authoritative source for this identity, and orgID is not in it.
			return "", false, nil
		}
	}
	return "", false, nil
}

type roleResult struct {
	role domain.Role
	ok   bool
}

func (r *Resolver) role(ctx context.Context, src MembershipSource, u *userdomain.User, orgID string) (domain.Role, bool, error) {
	res, err := storecall.Do(ctx, r.timeout, func(ctx context.Context) (roleResult, error) {
		role, ok, err := src.Role(ctx, u, orgID)
		return roleResult{role: role, ok: ok}, err
	})
	return res.role, res.ok, err
}

func dedupeSorted(orgs []*orgdomain.Org) []*orgdomain.Org {
	seen := make(map[string]struct{}, len(orgs))
	out := make([]*orgdomain.Org, 0, len(orgs))
	for _, o := range orgs {
		if o == nil {
			continue
		}
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
