package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"creator-access-gate/internal/credential/domain"
)

// MemoryRepository keeps credentials in process. A single mutex serialises Consume so
// check-and-increment is atomic, matching the Postgres conditional update.
type MemoryRepository struct {
	mu    sync.Mutex
	creds map[string]*domain.Credential
}

// NewMemoryRepository returns an empty in-memory credential repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{creds: make(map[string]*domain.Credential)}
}

func (r *MemoryRepository) ListByResource(_ context.Context, resourceID string) ([]*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Credential
	for _, c := range r.creds {
		if c.ResourceID == resourceID {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Credential, 0, len(r.creds))
	for _, c := range r.creds {
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[id]
	if !ok {
		return nil, nil
	}
	return clone(c), nil
}

func (r *MemoryRepository) Create(_ context.Context, c *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creds[c.ID]; ok {
		return domain.ErrInvalidInput
	}
	r.creds[c.ID] = clone(c)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creds[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.creds, id)
	return nil
}

func (r *MemoryRepository) Consume(ctx context.Context, id string, now time.Time) (*domain.Credential, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[id]
	if !ok || !domain.IsRedeemable(c, now) {
		return nil, false, nil
	}
	c.UseCount++
	return clone(c), true, nil
}

func clone(c *domain.Credential) *domain.Credential {
	cp := *c
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		cp.ExpiresAt = &t
	}
	return &cp
}
