package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"gym-tenancy/backend/internal/user/domain"
)

// ErrEmailTaken is returned by MemoryRepository.Create when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// MemoryRepository is an in-memory Repository used when no database is configured and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

// NewMemoryRepository returns an empty in-memory user repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*domain.User), byEmail: make(map[string]string)}
}

// GetByID returns a copy of the user for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// GetByEmail returns a copy of the user with the given email, or nil if not found.
func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// Create stores a copy of u. Returns ErrEmailTaken when the email is already registered.
func (r *MemoryRepository) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := domain.NormalizeEmail(u.Email)
	if _, ok := r.byEmail[email]; ok {
		return ErrEmailTaken
	}
	cp := *u
	cp.Email = email
	r.byID[u.ID] = &cp
	r.byEmail[email] = u.ID
	return nil
}

// UpdatePasswordHash replaces the password hash for id. Unknown ids are ignored.
func (r *MemoryRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.PasswordHash = hash
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// SetStatus sets the account status for id. Unknown ids are ignored.
func (r *MemoryRepository) SetStatus(ctx context.Context, id string, status domain.UserStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.Status = status
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}
