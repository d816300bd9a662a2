package seed

import (
	"context"
	"time"

	membershiprepo "gym-tenancy/backend/internal/membership/repository"
	orgrepo "gym-tenancy/backend/internal/organization/repository"
	userrepo "gym-tenancy/backend/internal/user/repository"
)

// MemoryStores holds in-memory repositories, e.g. for running the server without Postgres.
type MemoryStores struct {
	Users       *userrepo.MemoryRepository
	Orgs        *orgrepo.MemoryRepository
	Memberships *membershiprepo.MemoryRepository
}

// NewMemoryStores returns empty, mutually joined in-memory repositories.
func NewMemoryStores() *MemoryStores {
	orgs := orgrepo.NewMemoryRepository()
	return &MemoryStores{
		Users:       userrepo.NewMemoryRepository(),
		Orgs:        orgs,
		Memberships: membershiprepo.NewMemoryRepository(orgs),
	}
}

// Stores returns m as seedable Stores.
func (m *MemoryStores) Stores() Stores {
	return Stores{Users: m.Users, Orgs: m.Orgs, Memberships: m.Memberships}
}

// LoadMemory returns in-memory repositories populated by Load.
func LoadMemory(ctx context.Context, hasher PasswordHasher) (*MemoryStores, error) {
	m := NewMemoryStores()
	if _, err := Load(ctx, m.Stores(), hasher, time.Now().UTC()); err != nil {
		return nil, err
	}
	return m, nil
}
