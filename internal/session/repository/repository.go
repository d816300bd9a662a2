package repository

import (
	"context"
	"errors"
	"time"

	"gym-tenancy/backend/internal/session/domain"
)

var (
	// ErrNotLive is returned by ReplaceActiveOrg when the session is missing, revoked or expired.
	ErrNotLive = errors.New("session not live")
	// ErrNotMember is returned by ReplaceActiveOrg when the membership check made with the
	// write no longer holds (e.g. revoked between the caller's check and the update).
	ErrNotMember = errors.New("membership no longer held")
)

// Repository defines persistence for sessions.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetByID returns the session for id whether or not it is live, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ReplaceActiveOrg atomically sets the active organization of a live session, re-checking
	// membership in the same step, and returns the updated session.
	ReplaceActiveOrg(ctx context.Context, id, orgID string, now time.Time) (*domain.Session, error)
	// Revoke marks the session revoked. Revoking an already revoked or unknown session is a no-op.
	Revoke(ctx context.Context, id string, at time.Time) error
	// RevokeByUserAndActiveOrg revokes every live session of userID whose active organization is orgID.
	RevokeByUserAndActiveOrg(ctx context.Context, userID, orgID string, at time.Time) (int64, error)
	// DeleteExpired removes sessions that expired or were revoked before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}
