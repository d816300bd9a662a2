package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"gym-tenancy/backend/internal/organization/domain"
)

// OrgColumns is the column list shared by queries that scan into OrgRow (also used by membership joins).
const OrgColumns = `o.id, o.name, o.street, o.city, o.state, o.postal_code, o.country, o.active, o.created_at`

// OrgRow is the scan target for an organizations row.
type OrgRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Street     string    `db:"street"`
	City       string    `db:"city"`
	State      string    `db:"state"`
	PostalCode string    `db:"postal_code"`
	Country    string    `db:"country"`
	Active     bool      `db:"active"`
	CreatedAt  time.Time `db:"created_at"`
}

// ToDomain converts the row to a domain organization.
func (row *OrgRow) ToDomain() *domain.Org {
	return &domain.Org{
		ID:   row.ID,
		Name: row.Name,
		Address: domain.Address{
			Street:     row.Street,
			City:       row.City,
			State:      row.State,
			PostalCode: row.PostalCode,
			Country:    row.Country,
		},
		Active:    row.Active,
		CreatedAt: row.CreatedAt,
	}
}

type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetOrganizationByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	var row OrgRow
	err := r.db.GetContext(ctx, &row, `SELECT `+OrgColumns+` FROM organizations o WHERE o.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// CreateOrganization persists the organization. The organization must have ID set.
func (r *PostgresRepository) CreateOrganization(ctx context.Context, o *domain.Org) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, street, city, state, postal_code, country, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.Name, o.Address.Street, o.Address.City, o.Address.State, o.Address.PostalCode, o.Address.Country,
		o.Active, o.CreatedAt,
	)
	return err
}

// SetActive flips the organization's active flag.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE organizations SET active = $2 WHERE id = $1`, id, active)
	return err
}
