package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"gym-tenancy/backend/internal/membership/domain"
)

// Redis is a role cache shared by every server instance.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ RoleCache = (*Redis)(nil)

// NewRedis returns a Redis-backed role cache whose entries expire after ttl.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Get implements RoleCache. Redis errors are treated as misses.
func (c *Redis) Get(ctx context.Context, identityID, orgID string) (domain.Role, bool) {
	v, err := c.client.Get(ctx, Key(identityID, orgID)).Result()
	if err != nil {
		return "", false
	}
	return domain.Role(v), true
}

// Set implements RoleCache. Failures are ignored; the next lookup falls through to the store.
func (c *Redis) Set(ctx context.Context, identityID, orgID string, role domain.Role) {
	c.client.Set(ctx, Key(identityID, orgID), string(role), c.ttl)
}

// Invalidate implements RoleCache.
func (c *Redis) Invalidate(ctx context.Context, identityID, orgID string) error {
	return c.client.Del(ctx, Key(identityID, orgID)).Err()
}
