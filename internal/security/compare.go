package security

import (
	"crypto/sha256"
	"crypto/subtle"
)

// SharedSecretEqual compares a presented shared secret against the expected one in constant time.
// Both values are hashed first so the comparison does not leak the expected length.
// An empty expected secret never matches.
func SharedSecretEqual(provided, expected string) bool {
	if expected == "" {
		return false
	}
	p := sha256.Sum256([]byte(provided))
	e := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(p[:], e[:]) == 1
}
