package security

import (
	"crypto/rand"
	"math/big"
)

// secretAlphabet avoids characters that are easy to confuse when read aloud or copied by hand.
const secretAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"

// DefaultSecretLength is the length of secrets generated for operators who do not supply one.
const DefaultSecretLength = 12

// GenerateSecret returns a random secret of n characters drawn from secretAlphabet using crypto/rand.
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		n = DefaultSecretLength
	}
	max := big.NewInt(int64(len(secretAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = secretAlphabet[idx.Int64()]
	}
	return string(out), nil
}
