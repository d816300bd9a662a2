package repository

import (
	"context"

	"gym-tenancy/backend/internal/user/domain"
)

// Repository defines persistence for users (the credential store).
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// UpdatePasswordHash replaces the stored hash, e.g. after a password reset.
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetStatus(ctx context.Context, id string, status domain.UserStatus) error
}
