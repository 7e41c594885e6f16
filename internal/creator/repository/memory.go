package repository

import (
	"context"
	"errors"
	"sync"

	"creator-access-gate/internal/creator/domain"
)

// ErrDuplicate is returned by the memory repository when an id or slug is already taken.
var ErrDuplicate = errors.New("creator already exists")

// MemoryRepository is an in-process creator store for development and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	creators map[string]domain.Creator
}

// NewMemoryRepository returns an empty in-memory creator repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{creators: make(map[string]domain.Creator)}
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Creator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.creators[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *MemoryRepository) Create(_ context.Context, c *domain.Creator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creators[c.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range r.creators {
		if existing.Slug == c.Slug {
			return ErrDuplicate
		}
	}
	r.creators[c.ID] = *c
	return nil
}
