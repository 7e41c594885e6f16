package repository

import (
	"context"
	"errors"
	"time"

	"creator-access-gate/internal/credential/domain"
)

// ErrCorruptPolicy reports a stored row whose mode and max_uses do not form a valid policy.
// It is a server-side fault, not caller input.
var ErrCorruptPolicy = errors.New("credential: corrupt stored policy")

// Repository defines persistence for credentials. The store is the sole arbiter of
// consumption: Consume must check the policy and increment in one atomic step.
type Repository interface {
	// ListByResource returns the resource's credentials ordered by creation time, then id.
	ListByResource(ctx context.Context, resourceID string) ([]*domain.Credential, error)
	// List returns every credential, newest first.
	List(ctx context.Context) ([]*domain.Credential, error)
	// GetByID returns the credential for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
	Create(ctx context.Context, c *domain.Credential) error
	// Delete removes the credential. Returns domain.ErrNotFound when no row matched.
	Delete(ctx context.Context, id string) error
	// Consume increments useCount if and only if the credential is still redeemable at now.
	// Returns the updated credential and true, or (nil, false, nil) when the policy no longer holds.
	Consume(ctx context.Context, id string, now time.Time) (*domain.Credential, bool, error)
}
