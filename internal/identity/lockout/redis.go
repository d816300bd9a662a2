package lockout

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	userdomain "gym-tenancy/backend/internal/user/domain"
)

const redisKeyPrefix = "lockout:failures:"

// RedisPolicy counts failed logins per user in Redis. The counter expires window after the
// first failure, so the lock lifts on its own. maxAttempts <= 0 disables locking.
type RedisPolicy struct {
	client      redis.Cmdable
	maxAttempts int
	window      time.Duration
}

// NewRedisPolicy returns a Redis-backed failure counter.
func NewRedisPolicy(client redis.Cmdable, maxAttempts int, window time.Duration) *RedisPolicy {
	return &RedisPolicy{client: client, maxAttempts: maxAttempts, window: window}
}

func redisKey(u *userdomain.User) string {
	return redisKeyPrefix + u.ID
}

// Locked reports whether the user reached maxAttempts failures within the window.
func (p *RedisPolicy) Locked(ctx context.Context, u *userdomain.User) (bool, error) {
	if p.maxAttempts <= 0 {
		return false, nil
	}
	n, err := p.client.Get(ctx, redisKey(u)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n >= p.maxAttempts, nil
}

// RecordFailure increments the counter and starts the window on the first failure.
func (p *RedisPolicy) RecordFailure(ctx context.Context, u *userdomain.User) error {
	if p.maxAttempts <= 0 {
		return nil
	}
	key := redisKey(u)
	pipe := p.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, p.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	return incr.Err()
}

// Reset clears the counter after a successful login.
func (p *RedisPolicy) Reset(ctx context.Context, u *userdomain.User) error {
	return p.client.Del(ctx, redisKey(u)).Err()
}
