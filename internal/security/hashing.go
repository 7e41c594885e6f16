package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptySecret is returned when hashing an empty secret.
var ErrEmptySecret = errors.New("empty secret")

// Hasher hashes and verifies credential secrets using bcrypt. Callers must not log or
// persist plaintext secrets.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to bcrypt's valid range.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of secret suitable for storage.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies secret against the stored hash. Returns nil if they match;
// bcrypt.ErrMismatchedHashAndPassword on mismatch, or another error for a malformed hash.
func (h *Hasher) Compare(hash, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
}

// Matches reports whether secret matches hash. A malformed hash never matches.
func (h *Hasher) Matches(hash, secret string) bool {
	return h.Compare(hash, secret) == nil
}
