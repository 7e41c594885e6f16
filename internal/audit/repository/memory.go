package repository

import (
	"context"
	"sort"
	"sync"

	"creator-access-gate/internal/audit/domain"
	creatordomain "creator-access-gate/internal/creator/domain"
)

// CreatorLookup resolves a creator for the joined view. It returns nil for an unknown id.
type CreatorLookup interface {
	GetByID(ctx context.Context, id string) (*creatordomain.Creator, error)
}

// MemoryRepository keeps access events in process.
type MemoryRepository struct {
	mu       sync.RWMutex
	events   []domain.AccessEvent
	creators CreatorLookup
}

// NewMemoryRepository returns an empty in-memory event repository. creators may be nil,
// in which case every event shows domain.UnknownCreator.
func NewMemoryRepository(creators CreatorLookup) *MemoryRepository {
	return &MemoryRepository{creators: creators}
}

func (r *MemoryRepository) Create(ctx context.Context, e *domain.AccessEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *MemoryRepository) ListRecent(ctx context.Context, limit int) ([]*domain.EventView, error) {
	return r.list(ctx, "", limit)
}

func (r *MemoryRepository) ListByResource(ctx context.Context, resourceID string, limit int) ([]*domain.EventView, error) {
	return r.list(ctx, resourceID, limit)
}

// Count returns the number of stored events.
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

func (r *MemoryRepository) list(ctx context.Context, resourceID string, limit int) ([]*domain.EventView, error) {
	r.mu.RLock()
	matched := make([]domain.AccessEvent, 0, len(r.events))
	for _, e := range r.events {
		if resourceID == "" || e.ResourceID == resourceID {
			matched = append(matched, e)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].OccurredAt.After(matched[j].OccurredAt)
		}
		return matched[i].ID < matched[j].ID
	})
	if limit >= 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*domain.EventView, 0, len(matched))
	for _, e := range matched {
		v := &domain.EventView{AccessEvent: e, CreatorName: domain.UnknownCreator}
		if r.creators != nil {
			c, err := r.creators.GetByID(ctx, e.ResourceID)
			if err != nil {
				return nil, err
			}
			if c != nil {
				v.CreatorName = c.Name
				v.CreatorSlug = c.Slug
			}
		}
		out = append(out, v)
	}
	return out, nil
}
