package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"gym-tenancy/backend/internal/membership/domain"
)

// LRU is an in-process, size-bounded role cache whose entries expire after ttl.
type LRU struct {
	cache *expirable.LRU[string, domain.Role]
}

var _ RoleCache = (*LRU)(nil)

// NewLRU returns an LRU holding at most size entries (at least 1).
func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = 1
	}
	return &LRU{cache: expirable.NewLRU[string, domain.Role](size, nil, ttl)}
}

// Get implements RoleCache.
func (c *LRU) Get(_ context.Context, identityID, orgID string) (domain.Role, bool) {
	return c.cache.Get(Key(identityID, orgID))
}

// Set implements RoleCache.
func (c *LRU) Set(_ context.Context, identityID, orgID string, role domain.Role) {
	c.cache.Add(Key(identityID, orgID), role)
}

// Invalidate implements RoleCache.
func (c *LRU) Invalidate(_ context.Context, identityID, orgID string) error {
	c.cache.Remove(Key(identityID, orgID))
	return nil
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	return c.cache.Len()
}
