// Package service implements operator-side credential management: issue, list and delete.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	creatordomain "creator-access-gate/internal/creator/domain"
	"creator-access-gate/internal/credential/domain"
	"creator-access-gate/internal/security"
)

// CredentialRepo is the subset of the credential repository the service needs.
type CredentialRepo interface {
	ListByResource(ctx context.Context, resourceID string) ([]*domain.Credential, error)
	List(ctx context.Context) ([]*domain.Credential, error)
	Create(ctx context.Context, c *domain.Credential) error
	Delete(ctx context.Context, id string) error
}

// CreatorRepo resolves the resource a credential is issued for.
type CreatorRepo interface {
	GetByID(ctx context.Context, id string) (*creatordomain.Creator, error)
}

// maxSecretBytes is bcrypt's input limit; longer secrets are rejected rather than truncated.
const maxSecretBytes = 72

// IssueInput describes a credential to create. Secret may be empty, in which case one is generated.
type IssueInput struct {
	ResourceID string
	Secret     string
	Mode       string
	ExpiresAt  *time.Time
	MaxUses    *int
}

// IssueResult carries the stored credential and the plaintext secret. The secret is only
// available here; it is never persisted or retrievable afterwards.
type IssueResult struct {
	Credential *domain.Credential
	Secret     string
	Generated  bool
}

// Service issues, lists and deletes credentials.
type Service struct {
	creds    CredentialRepo
	creators CreatorRepo
	hasher   *security.Hasher
	nowF     func() time.Time
}

// New returns a credential Service.
func New(creds CredentialRepo, creators CreatorRepo, hasher *security.Hasher) *Service {
	return &Service{creds: creds, creators: creators, hasher: hasher, nowF: time.Now}
}

// Issue validates in, hashes the secret and stores a new credential with useCount 0.
// Returns domain.ErrInvalidInput for a malformed request and domain.ErrNotFound for an unknown resource.
func (s *Service) Issue(ctx context.Context, in IssueInput) (*IssueResult, error) {
	rid, err := uuid.Parse(in.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: resourceId must be a uuid", domain.ErrInvalidInput)
	}
	in.ResourceID = rid.String()
	policy, err := domain.NewPolicy(strings.TrimSpace(in.Mode), in.MaxUses)
	if err != nil {
		return nil, err
	}
	if len(in.Secret) > maxSecretBytes {
		return nil, fmt.Errorf("%w: secret must be at most %d bytes", domain.ErrInvalidInput, maxSecretBytes)
	}

	creator, err := s.creators.GetByID(ctx, in.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("lookup creator: %w", err)
	}
	if creator == nil {
		return nil, domain.ErrNotFound
	}

	secret := in.Secret
	generated := false
	if secret == "" {
		secret, err = security.GenerateSecret(security.DefaultSecretLength)
		if err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
		generated = true
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	var expiresAt *time.Time
	if in.ExpiresAt != nil {
		t := in.ExpiresAt.UTC()
		expiresAt = &t
	}
	c := &domain.Credential{
		ID:         uuid.New().String(),
		ResourceID: in.ResourceID,
		SecretHash: hash,
		Policy:     policy,
		ExpiresAt:  expiresAt,
		CreatedAt:  s.nowF().UTC(),
	}
	if err := s.creds.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}
	return &IssueResult{Credential: c, Secret: secret, Generated: generated}, nil
}

// List returns credentials for resourceID, or all credentials when resourceID is empty.
func (s *Service) List(ctx context.Context, resourceID string) ([]*domain.Credential, error) {
	if resourceID == "" {
		return s.creds.List(ctx)
	}
	rid, err := uuid.Parse(resourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: resourceId must be a uuid", domain.ErrInvalidInput)
	}
	return s.creds.ListByResource(ctx, rid.String())
}

// Delete removes the credential with id. Access events that reference it are kept.
func (s *Service) Delete(ctx context.Context, id string) error {
	cid, err := uuid.Parse(id)
	if err != nil {
		return domain.ErrNotFound
	}
	return s.creds.Delete(ctx, cid.String())
}

// Now returns the service clock, used to compute admin status badges consistently.
func (s *Service) Now() time.Time {
	return s.nowF()
}
