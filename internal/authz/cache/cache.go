// Package cache caches (identity, organization) → role lookups made by the authorization gate.
// Sessions are never cached; only role resolution is.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gym-tenancy/backend/internal/membership/domain"
)

// RoleCache stores the role an identity holds in an organization.
type RoleCache interface {
	Get(ctx context.Context, identityID, orgID string) (role domain.Role, ok bool)
	Set(ctx context.Context, identityID, orgID string, role domain.Role)
	// Invalidate drops the entry. It returns once the entry is gone for every reader.
	Invalidate(ctx context.Context, identityID, orgID string) error
}

// Key returns the cache key for an (identity, organization) pair.
func Key(identityID, orgID string) string {
	return "authz:role:" + identityID + ":" + orgID
}

// Backends accepted by New.
const (
	BackendLRU   = "lru"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// New returns the RoleCache for backend. client is required for BackendRedis.
func New(backend string, size int, ttl time.Duration, client redis.Cmdable) (RoleCache, error) {
	switch backend {
	case BackendLRU, "":
		return NewLRU(size, ttl), nil
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("authz cache: redis backend needs a client")
		}
		return NewRedis(client, ttl), nil
	case BackendNone:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("authz cache: unknown backend %q", backend)
	}
}
