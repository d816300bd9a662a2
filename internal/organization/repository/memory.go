package repository

import (
	"context"
	"sync"

	"gym-tenancy/backend/internal/organization/domain"
)

// MemoryRepository is an in-memory Repository used when no database is configured and in tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	orgs map[string]*domain.Org
}

// NewMemoryRepository returns an empty in-memory organization repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orgs: make(map[string]*domain.Org)}
}

// GetOrganizationByID returns a copy of the organization for id, or nil if not found.
func (r *MemoryRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orgs[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

// CreateOrganization stores a copy of o.
func (r *MemoryRepository) CreateOrganization(ctx context.Context, o *domain.Org) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orgs[o.ID] = &cp
	return nil
}

// SetActive flips the organization's active flag. Unknown ids are ignored.
func (r *MemoryRepository) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orgs[id]; ok {
		o.Active = active
	}
	return nil
}
