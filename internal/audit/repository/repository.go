package repository

import (
	"context"

	"creator-access-gate/internal/audit/domain"
)

// Repository defines persistence for access events. There is no update or delete.
type Repository interface {
	Create(ctx context.Context, e *domain.AccessEvent) error
	// ListRecent returns the newest events first, joined with their creator.
	ListRecent(ctx context.Context, limit int) ([]*domain.EventView, error)
	// ListByResource returns the newest events for one resource first.
	ListByResource(ctx context.Context, resourceID string, limit int) ([]*domain.EventView, error)
}
