package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"gym-tenancy/backend/internal/membership/domain"
	orgdomain "gym-tenancy/backend/internal/organization/domain"
	orgrepo "gym-tenancy/backend/internal/organization/repository"
)

const membershipColumns = `id, user_id, org_id, role, created_at`

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

type membershipRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	OrgID     string    `db:"org_id"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetMembershipByUserAndOrg returns the membership for the given user and org, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	var row membershipRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 AND org_id = $2`, userID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rowToDomain(&row), nil
}

// ListOrganizationsByUser returns the active organizations the user belongs to, ordered by name then id.
// Returns an empty slice (not an error) when there are none.
func (r *PostgresRepository) ListOrganizationsByUser(ctx context.Context, userID string) ([]*orgdomain.Org, error) {
	var rows []orgrepo.OrgRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+orgrepo.OrgColumns+`
		   FROM memberships m
		   JOIN organizations o ON o.id = m.org_id
		  WHERE m.user_id = $1 AND o.active
		  ORDER BY o.name, o.id`, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*orgdomain.Org, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Exists reports whether the user has a membership in orgID and the organization is active.
// The lookup is served by the unique (user_id, org_id) index.
func (r *PostgresRepository) Exists(ctx context.Context, userID, orgID string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		`SELECT EXISTS (
		   SELECT 1 FROM memberships m
		     JOIN organizations o ON o.id = m.org_id
		    WHERE m.user_id = $1 AND m.org_id = $2 AND o.active)`, userID, orgID)
	return ok, err
}

// HasAny reports whether the user has at least one membership in an active organization.
func (r *PostgresRepository) HasAny(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		`SELECT EXISTS (
		   SELECT 1 FROM memberships m
		     JOIN organizations o ON o.id = m.org_id
		    WHERE m.user_id = $1 AND o.active)`, userID)
	return ok, err
}

// ListMembershipsByOrg returns all memberships for the given org. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error) {
	var rows []membershipRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+membershipColumns+` FROM memberships WHERE org_id = $1 ORDER BY created_at, id`, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Membership, len(rows))
	for i := range rows {
		out[i] = rowToDomain(&rows[i])
	}
	return out, nil
}

// CreateMembership persists the membership to the database. The membership must have ID set.
// Returns ErrDuplicate when the user already belongs to the organization.
func (r *PostgresRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO memberships (`+membershipColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.UserID, m.OrgID, string(m.Role), m.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}

// DeleteByUserAndOrg removes the membership and reports whether a row was deleted.
func (r *PostgresRepository) DeleteByUserAndOrg(ctx context.Context, userID, orgID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memberships WHERE user_id = $1 AND org_id = $2`, userID, orgID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func rowToDomain(row *membershipRow) *domain.Membership {
	return &domain.Membership{
		ID:        row.ID,
		UserID:    row.UserID,
		OrgID:     row.OrgID,
		Role:      domain.Role(row.Role),
		CreatedAt: row.CreatedAt,
	}
}
