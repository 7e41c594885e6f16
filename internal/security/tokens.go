package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or signed by another key.
	ErrInvalidToken = errors.New("invalid token")
)

// GrantClaims holds JWT claims for a session grant. Subject is the resource id the bearer redeemed
// a credential for; the grant deliberately carries no reference to the credential used.
type GrantClaims struct {
	jwt.RegisteredClaims
}

// TokenProvider issues and validates session grant JWTs using RS256 or ES256 (private/public key).
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	nowF       func() time.Time
}

// NewTokenProvider returns a TokenProvider that signs with the given private key (RS256 or ES256).
// issuer and audience are set on claims and validated on every check.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		nowF:       time.Now,
	}
}

// IssueGrant signs a grant for resourceID valid until expiresAt. Returns the token and its jti.
func (p *TokenProvider) IssueGrant(resourceID string, expiresAt time.Time) (token, jti string, err error) {
	if resourceID == "" {
		return "", "", ErrInvalidToken
	}
	jti, err = generateJTI()
	if err != nil {
		return "", "", err
	}
	now := p.nowF().UTC()
	claims := GrantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   resourceID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt.UTC()),
		},
	}
	token, err = p.sign(claims)
	return token, jti, err
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

// ValidateGrant parses and validates a grant (signature, exp, iss, aud).
// Returns the resource id and expiry, or ErrInvalidToken.
func (p *TokenProvider) ValidateGrant(tokenString string) (resourceID string, expiresAt time.Time, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &GrantClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return p.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithTimeFunc(p.nowF), jwt.WithExpirationRequired())
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*GrantClaims)
	if !ok || !token.Valid {
		return "", time.Time{}, ErrInvalidToken
	}
	if claims.Issuer != p.issuer || !slices.Contains(claims.Audience, p.audience) {
		return "", time.Time{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return "", time.Time{}, ErrInvalidToken
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
