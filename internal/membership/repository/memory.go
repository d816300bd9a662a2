package repository

import (
	"context"
	"sort"
	"sync"

	"gym-tenancy/backend/internal/membership/domain"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
)

// OrgLookup resolves organizations for joins in MemoryRepository.
type OrgLookup interface {
	GetOrganizationByID(ctx context.Context, id string) (*orgdomain.Org, error)
}

type memKey struct{ userID, orgID string }

// MemoryRepository is an in-memory Repository used when no database is configured and in tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	byKey map[memKey]*domain.Membership
	orgs  OrgLookup
}

// NewMemoryRepository returns an empty in-memory membership repository joined against orgs.
func NewMemoryRepository(orgs OrgLookup) *MemoryRepository {
	return &MemoryRepository{byKey: make(map[memKey]*domain.Membership), orgs: orgs}
}

// GetMembershipByUserAndOrg returns a copy of the membership, or nil if not found.
func (r *MemoryRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byKey[memKey{userID, orgID}]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

// ListOrganizationsByUser returns the active organizations userID belongs to, ordered by name then id.
func (r *MemoryRepository) ListOrganizationsByUser(ctx context.Context, userID string) ([]*orgdomain.Org, error) {
	r.mu.RLock()
	var orgIDs []string
	for k := range r.byKey {
		if k.userID == userID {
			orgIDs = append(orgIDs, k.orgID)
		}
	}
	r.mu.RUnlock()
	out := make([]*orgdomain.Org, 0, len(orgIDs))
	for _, id := range orgIDs {
		o, err := r.orgs.GetOrganizationByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if o != nil && o.Active {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Exists reports whether userID belongs to the active organization orgID.
func (r *MemoryRepository) Exists(ctx context.Context, userID, orgID string) (bool, error) {
	r.mu.RLock()
	_, ok := r.byKey[memKey{userID, orgID}]
	r.mu.RUnlock()
	if !ok {
		return false, nil
	}
	o, err := r.orgs.GetOrganizationByID(ctx, orgID)
	if err != nil {
		return false, err
	}
	return o != nil && o.Active, nil
}

// HasAny reports whether userID belongs to at least one active organization.
func (r *MemoryRepository) HasAny(ctx context.Context, userID string) (bool, error) {
	orgs, err := r.ListOrganizationsByUser(ctx, userID)
	return len(orgs) > 0, err
}

// ListMembershipsByOrg returns copies of all memberships for orgID, oldest first.
func (r *MemoryRepository) ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Membership, 0)
	for k, m := range r.byKey {
		if k.orgID == orgID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateMembership stores a copy of m. Returns ErrDuplicate when the pair already exists.
func (r *MemoryRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := memKey{m.UserID, m.OrgID}
	if _, ok := r.byKey[k]; ok {
		return ErrDuplicate
	}
	cp := *m
	r.byKey[k] = &cp
	return nil
}

// DeleteByUserAndOrg removes the membership and reports whether it existed.
func (r *MemoryRepository) DeleteByUserAndOrg(ctx context.Context, userID, orgID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := memKey{userID, orgID}
	if _, ok := r.byKey[k]; !ok {
		return false, nil
	}
	delete(r.byKey, k)
	return true, nil
}
