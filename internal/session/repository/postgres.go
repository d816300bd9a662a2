package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"gym-tenancy/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, active_org_id, token_hash, created_at, expires_at, revoked_at, last_seen_at`

type sessionRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	ActiveOrgID sql.NullString `db:"active_org_id"`
	TokenHash   string         `db:"token_hash"`
	CreatedAt   time.Time      `db:"created_at"`
	ExpiresAt   time.Time      `db:"expires_at"`
	RevokedAt   sql.NullTime   `db:"revoked_at"`
	LastSeenAt  sql.NullTime   `db:"last_seen_at"`
}

// replaceActiveOrgSQL switches the active organization in one statement. The row is only
// updated while the session is live and the user still belongs to the active organization $2,
// either through a membership row or, for members and trainers without any membership in an
// active organization, through users.gym_id.
const replaceActiveOrgSQL = `
UPDATE sessions s
   SET active_org_id = $2
 WHERE s.id = $1
   AND s.revoked_at IS NULL
   AND s.expires_at > $3
   AND EXISTS (
     SELECT 1 FROM organizations o
      WHERE o.id = $2 AND o.active
        AND (
          EXISTS (SELECT 1 FROM memberships m WHERE m.user_id = s.user_id AND m.org_id = o.id)
          OR EXISTS (
            SELECT 1 FROM users u
             WHERE u.id = s.user_id
               AND u.gym_id = o.id
               AND u.user_type IN ('member', 'trainer')
               AND NOT EXISTS (
                 SELECT 1 FROM memberships m2
                   JOIN organizations o2 ON o2.id = m2.org_id
                  WHERE m2.user_id = u.id AND o2.active))))
RETURNING ` + sessionColumns

type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.UserID, nullString(s.ActiveOrgID), s.TokenHash, s.CreatedAt, s.ExpiresAt,
		timeToNullTime(s.RevokedAt), timeToNullTime(s.LastSeenAt),
	)
	return err
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToDomain(&row), nil
}

// ReplaceActiveOrg sets active_org_id with a single guarded UPDATE. When no row is updated it
// reads the session back to tell ErrNotLive from ErrNotMember.
func (r *PostgresRepository) ReplaceActiveOrg(ctx context.Context, id, orgID string, now time.Time) (*domain.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, replaceActiveOrgSQL, id, orgID, now)
	if err == nil {
		return rowToDomain(&row), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Live(now) {
		return nil, ErrNotLive
	}
	return nil, ErrNotMember
}

// Revoke marks the session with the given id as revoked. Already revoked sessions keep their original revoked_at.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	return err
}

// RevokeByUserAndActiveOrg revokes the user's live sessions whose active organization is orgID.
func (r *PostgresRepository) RevokeByUserAndActiveOrg(ctx context.Context, userID, orgID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $3
		  WHERE user_id = $1 AND active_org_id = $2 AND revoked_at IS NULL AND expires_at > $3`,
		userID, orgID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes sessions that expired or were revoked before cutoff.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= $1 OR (revoked_at IS NOT NULL AND revoked_at <= $1)`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateLastSeen sets the session's last-seen timestamp for the given id.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at = $2 WHERE id = $1`, id, at)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func rowToDomain(row *sessionRow) *domain.Session {
	s := &domain.Session{
		ID:         row.ID,
		UserID:     row.UserID,
		TokenHash:  row.TokenHash,
		CreatedAt:  row.CreatedAt,
		ExpiresAt:  row.ExpiresAt,
		RevokedAt:  nullTimeToPtr(row.RevokedAt),
		LastSeenAt: nullTimeToPtr(row.LastSeenAt),
	}
	if row.ActiveOrgID.Valid {
		s.ActiveOrgID = row.ActiveOrgID.String
	}
	return s
}
