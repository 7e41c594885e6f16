package repository

import (
	"context"

	"creator-access-gate/internal/creator/domain"
)

// Repository defines persistence for creators.
type Repository interface {
	// GetByID returns the creator for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Creator, error)
	Create(ctx context.Context, c *domain.Creator) error
}
