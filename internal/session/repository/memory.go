package repository

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"gym-tenancy/backend/internal/session/domain"
)

const memoryShards = 32

// MembershipCheck reports whether userID currently belongs to orgID.
type MembershipCheck func(ctx context.Context, userID, orgID string) (bool, error)

type shard struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

// MemoryRepository is an in-memory Repository. Sessions are spread over shards by an xxhash
// of the session id, so switches on different sessions do not contend on one lock.
type MemoryRepository struct {
	shards [memoryShards]shard
	check  MembershipCheck
}

// NewMemoryRepository returns an empty in-memory session store. check, when non-nil, is run
// under the session's shard lock by ReplaceActiveOrg.
func NewMemoryRepository(check MembershipCheck) *MemoryRepository {
	r := &MemoryRepository{check: check}
	for i := range r.shards {
		r.shards[i].sessions = make(map[string]*domain.Session)
	}
	return r
}

func (r *MemoryRepository) shardFor(id string) *shard {
	return &r.shards[xxhash.Sum64String(id)%memoryShards]
}

// Create stores a copy of s.
func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	sh := r.shardFor(s.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.sessions[s.ID] = s.Clone()
	return nil
}

// GetByID returns a copy of the session for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	sh := r.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.sessions[id].Clone(), nil
}

// ReplaceActiveOrg sets the active organization while holding the shard lock, so a concurrent
// Revoke of the same session is ordered strictly before or after it.
func (r *MemoryRepository) ReplaceActiveOrg(ctx context.Context, id, orgID string, now time.Time) (*domain.Session, error) {
	sh := r.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.sessions[id]
	if !ok || !s.Live(now) {
		return nil, ErrNotLive
	}
	if r.check != nil {
		member, err := r.check(ctx, s.UserID, orgID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, ErrNotMember
		}
	}
	s.ActiveOrgID = orgID
	return s.Clone(), nil
}

// Revoke marks the session revoked. Unknown or already revoked sessions are left unchanged.
func (r *MemoryRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	sh := r.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.sessions[id]; ok && s.RevokedAt == nil {
		t := at
		s.RevokedAt = &t
	}
	return nil
}

// RevokeByUserAndActiveOrg revokes the user's live sessions whose active organization is orgID.
func (r *MemoryRepository) RevokeByUserAndActiveOrg(ctx context.Context, userID, orgID string, at time.Time) (int64, error) {
	var n int64
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for _, s := range sh.sessions {
			if s.UserID == userID && s.ActiveOrgID == orgID && s.Live(at) {
				t := at
				s.RevokedAt = &t
				n++
			}
		}
		sh.mu.Unlock()
	}
	return n, nil
}

// DeleteExpired removes sessions that expired or were revoked before cutoff.
func (r *MemoryRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for id, s := range sh.sessions {
			if !s.ExpiresAt.After(cutoff) || (s.RevokedAt != nil && !s.RevokedAt.After(cutoff)) {
				delete(sh.sessions, id)
				n++
			}
		}
		sh.mu.Unlock()
	}
	return n, nil
}

// UpdateLastSeen sets the session's last-seen timestamp. Unknown ids are ignored.
func (r *MemoryRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	sh := r.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.sessions[id]; ok {
		t := at
		s.LastSeenAt = &t
	}
	return nil
}
