package repository

import (
	"context"
	"database/sql"
	"errors"

	"creator-access-gate/internal/creator/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a creator repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the creator for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Creator, error) {
	var c domain.Creator
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM creators WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts c. The creator must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Creator) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO creators (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.Slug, c.CreatedAt,
	)
	return err
}
