package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared by the credential repository and service; the HTTP layer maps them to status codes.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// Mode is the stored form of a credential policy.
type Mode string

const (
	ModeSingleUse Mode = "single-use"
	ModeMultiUse  Mode = "multi-use"
)

// Policy is a tagged variant: single-use, or multi-use with an optional positive cap.
// The zero value is not valid; build one with SingleUse, MultiUse or NewPolicy.
type Policy struct {
	mode    Mode
	maxUses *int
}

// SingleUse returns the policy for a credential that may be redeemed exactly once.
func SingleUse() Policy {
	return Policy{mode: ModeSingleUse}
}

// MultiUse returns a multi-use policy. A nil maxUses means unlimited; otherwise it must be >= 1.
func MultiUse(maxUses *int) (Policy, error) {
	if maxUses == nil {
		return Policy{mode: ModeMultiUse}, nil
	}
	if *maxUses < 1 {
		return Policy{}, fmt.Errorf("%w: maxUses must be at least 1", ErrInvalidInput)
	}
	n := *maxUses
	return Policy{mode: ModeMultiUse, maxUses: &n}, nil
}

// NewPolicy builds a Policy from its stored form. maxUses on a single-use policy is rejected.
func NewPolicy(mode string, maxUses *int) (Policy, error) {
	switch Mode(mode) {
	case ModeSingleUse:
		if maxUses != nil {
			return Policy{}, fmt.Errorf("%w: maxUses is only valid for multi-use credentials", ErrInvalidInput)
		}
		return SingleUse(), nil
	case ModeMultiUse:
		return MultiUse(maxUses)
	case "":
		return Policy{}, fmt.Errorf("%w: mode is required", ErrInvalidInput)
	default:
		return Policy{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, mode)
	}
}

// Mode returns the stored mode.
func (p Policy) Mode() Mode { return p.mode }

// MaxUses returns the cap and true when the policy is capped multi-use.
func (p Policy) MaxUses() (int, bool) {
	if p.maxUses == nil {
		return 0, false
	}
	return *p.maxUses, true
}

// IsSingleUse reports whether the policy allows a single redemption.
func (p Policy) IsSingleUse() bool { return p.mode == ModeSingleUse }

// Credential is a bearer secret granting access to one resource (creator).
type Credential struct {
	ID         string
	ResourceID string
	SecretHash string
	Policy     Policy
	ExpiresAt  *time.Time // nil means no expiry
	UseCount   int
	CreatedAt  time.Time
}

// Status is the admin-facing summary of a credential's redeemability.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusExhausted Status = "exhausted"
)

// IsRedeemable reports whether c may be consumed at now. The same predicate is
// enforced by the store's conditional consume; the two must stay in step.
func IsRedeemable(c *Credential, now time.Time) bool {
	if c == nil {
		return false
	}
	return !isExpired(c, now) && !isExhausted(c)
}

// CredentialStatus classifies c at now. Expiry takes precedence over exhaustion.
func CredentialStatus(c *Credential, now time.Time) Status {
	switch {
	case isExpired(c, now):
		return StatusExpired
	case isExhausted(c):
		return StatusExhausted
	default:
		return StatusActive
	}
}

func isExpired(c *Credential, now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

func isExhausted(c *Credential) bool {
	if c.Policy.IsSingleUse() {
		return c.UseCount > 0
	}
	if limit, ok := c.Policy.MaxUses(); ok {
		return c.UseCount >= limit
	}
	return false
}
