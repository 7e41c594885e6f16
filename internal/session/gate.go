// Package session issues and checks session grants: signed, self-contained tokens that admit
// the bearer to one resource until they expire. There is no server-side session row.
package session

import (
	"errors"
	"time"

	"creator-access-gate/internal/security"
)

// DefaultGrantTTL is the grant lifetime used when the redeemed credential has no expiry.
const DefaultGrantTTL = 24 * time.Hour

// ErrGrantExpired is returned when a grant would expire at or before the time it is issued.
var ErrGrantExpired = errors.New("grant expiry is not in the future")

// Grant is an issued session grant.
type Grant struct {
	Token      string
	ResourceID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Gate mints and verifies grants. Check never touches storage.
type Gate struct {
	tokens        *security.TokenProvider
	defaultTTL    time.Duration
	secureCookies bool
	nowF          func() time.Time
}

// NewGate returns a Gate signing with tokens. defaultTTL <= 0 falls back to DefaultGrantTTL.
// secureCookies sets the Secure attribute on grant cookies (production).
func NewGate(tokens *security.TokenProvider, defaultTTL time.Duration, secureCookies bool) *Gate {
	if defaultTTL <= 0 {
		defaultTTL = DefaultGrantTTL
	}
	return &Gate{tokens: tokens, defaultTTL: defaultTTL, secureCookies: secureCookies, nowF: time.Now}
}

// Grant issues a grant for resourceID valid for ttl, or the gate's default when ttl <= 0.
func (g *Gate) Grant(resourceID string, ttl time.Duration) (*Grant, error) {
	if ttl <= 0 {
		ttl = g.defaultTTL
	}
	return g.GrantUntil(resourceID, g.nowF().Add(ttl))
}

// GrantUntil issues a grant for resourceID expiring at expiresAt.
func (g *Gate) GrantUntil(resourceID string, expiresAt time.Time) (*Grant, error) {
	now := g.nowF().UTC()
	expiresAt = expiresAt.UTC().Truncate(time.Second)
	if !expiresAt.After(now) {
		return nil, ErrGrantExpired
	}
	token, _, err := g.tokens.IssueGrant(resourceID, expiresAt)
	if err != nil {
		return nil, err
	}
	return &Grant{Token: token, ResourceID: resourceID, IssuedAt: now, ExpiresAt: expiresAt}, nil
}

// Check reports whether token is a valid, unexpired grant for exactly resourceID.
func (g *Gate) Check(token, resourceID string) bool {
	if token == "" || resourceID == "" {
		return false
	}
	subject, _, err := g.tokens.ValidateGrant(token)
	if err != nil {
		return false
	}
	return subject == resourceID
}

// DefaultTTL returns the lifetime used for grants from credentials without an expiry.
func (g *Gate) DefaultTTL() time.Duration {
	return g.defaultTTL
}
