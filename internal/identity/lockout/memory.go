package lockout

import (
	"context"
	"sync"
	"time"

	userdomain "gym-tenancy/backend/internal/user/domain"
)

type failures struct {
	count int
	until time.Time
}

// MemoryPolicy is the in-process counterpart of RedisPolicy, used when Redis is not configured.
// Counters are per process, so behind a load balancer the effective limit is per instance.
type MemoryPolicy struct {
	mu          sync.Mutex
	m           map[string]failures
	maxAttempts int
	window      time.Duration
	nowF        func() time.Time
}

// NewMemoryPolicy returns an in-memory failure counter. maxAttempts <= 0 disables locking.
func NewMemoryPolicy(maxAttempts int, window time.Duration) *MemoryPolicy {
	return &MemoryPolicy{
		m:           make(map[string]failures),
		maxAttempts: maxAttempts,
		window:      window,
		nowF:        time.Now,
	}
}

func (p *MemoryPolicy) current(id string) failures {
	f, ok := p.m[id]
	if ok && !p.nowF().Before(f.until) {
		delete(p.m, id)
		return failures{}
	}
	return f
}

func (p *MemoryPolicy) Locked(_ context.Context, u *userdomain.User) (bool, error) {
	if p.maxAttempts <= 0 {
		return false, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current(u.ID).count >= p.maxAttempts, nil
}

func (p *MemoryPolicy) RecordFailure(_ context.Context, u *userdomain.User) error {
	if p.maxAttempts <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.current(u.ID)
	if f.count == 0 {
		f.until = p.nowF().Add(p.window)
	}
	f.count++
	p.m[u.ID] = f
	return nil
}

func (p *MemoryPolicy) Reset(_ context.Context, u *userdomain.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, u.ID)
	return nil
}
