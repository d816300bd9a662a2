package repository

import (
	"context"

	"gym-tenancy/backend/internal/organization/domain"
)

// Repository defines persistence for organizations.
type Repository interface {
	GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error)
	CreateOrganization(ctx context.Context, o *domain.Org) error
	SetActive(ctx context.Context, id string, active bool) error
}
