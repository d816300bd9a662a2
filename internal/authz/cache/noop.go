package cache

import (
	"context"

	"gym-tenancy/backend/internal/membership/domain"
)

// Noop caches nothing; every lookup goes to the membership store.
type Noop struct{}

var _ RoleCache = Noop{}

// Get implements RoleCache.
func (Noop) Get(context.Context, string, string) (domain.Role, bool) {
	return "", false
}

// Set implements RoleCache.
func (Noop) Set(context.Context, string, string, domain.Role) {}

// Invalidate implements RoleCache.
func (Noop) Invalidate(context.Context, string, string) error {
	return nil
}
