package repository

import (
	"context"
	"database/sql"

	"creator-access-gate/internal/audit/domain"
)

const selectEventViews = `
SELECT e.id, e.credential_id, e.creator_id, e.source_address, e.agent_descriptor, e.occurred_at,
       COALESCE(c.name, '` + domain.UnknownCreator + `'), COALESCE(c.slug, '')
  FROM access_events e
  LEFT JOIN creators c ON c.id = e.creator_id`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an access event repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the event. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.AccessEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_events (id, credential_id, creator_id, source_address, agent_descriptor, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.CredentialID, e.ResourceID, e.SourceAddress, e.AgentDescriptor, e.OccurredAt,
	)
	return err
}

// ListRecent returns up to limit events, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*domain.EventView, error) {
	rows, err := r.db.QueryContext(ctx, selectEventViews+` ORDER BY e.occurred_at DESC, e.id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return scanEventViews(rows)
}

// ListByResource returns up to limit events for resourceID, newest first.
func (r *PostgresRepository) ListByResource(ctx context.Context, resourceID string, limit int) ([]*domain.EventView, error) {
	rows, err := r.db.QueryContext(ctx,
		selectEventViews+` WHERE e.creator_id = $1 ORDER BY e.occurred_at DESC, e.id LIMIT $2`, resourceID, limit)
	if err != nil {
		return nil, err
	}
	return scanEventViews(rows)
}

func scanEventViews(rows *sql.Rows) ([]*domain.EventView, error) {
	defer rows.Close()
	var out []*domain.EventView
	for rows.Next() {
		var v domain.EventView
		if err := rows.Scan(&v.ID, &v.CredentialID, &v.ResourceID, &v.SourceAddress, &v.AgentDescriptor,
			&v.OccurredAt, &v.CreatorName, &v.CreatorSlug); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
