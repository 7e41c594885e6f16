package security

import (
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidateGrant(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	token, jti, err := p.IssueGrant("res-1", exp)
	if err != nil {
		t.Fatalf("IssueGrant: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatal("token or jti empty")
	}

	rid, gotExp, err := p.ValidateGrant(token)
	if err != nil {
		t.Fatalf("ValidateGrant: %v", err)
	}
	if rid != "res-1" {
		t.Errorf("resourceID = %q, want res-1", rid)
	}
	if !gotExp.Equal(exp) {
		t.Errorf("expiresAt = %v, want %v", gotExp, exp)
	}
}

func TestTokenProvider_UniqueJTI(t *testing.T) {
	p, _ := NewTestTokenProvider()
	exp := time.Now().Add(time.Hour)
	_, a, _ := p.IssueGrant("res-1", exp)
	_, b, _ := p.IssueGrant("res-1", exp)
	if a == b {
		t.Error("jti should differ between grants")
	}
}

func TestTokenProvider_EmptyResource(t *testing.T) {
	p, _ := NewTestTokenProvider()
	if _, _, err := p.IssueGrant("", time.Now().Add(time.Hour)); err != ErrInvalidToken {
		t.Errorf("want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateGrantInvalid(t *testing.T) {
	p, _ := NewTestTokenProvider()
	if _, _, err := p.ValidateGrant("invalid-token"); err != ErrInvalidToken {
		t.Errorf("want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateGrantExpired(t *testing.T) {
	p, _ := NewTestTokenProvider()
	token, _, err := p.IssueGrant("res-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueGrant: %v", err)
	}
	p.nowF = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, _, err := p.ValidateGrant(token); err != ErrInvalidToken {
		t.Errorf("expired grant: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateGrantOtherKey(t *testing.T) {
	p1, _ := NewTestTokenProvider()
	p2, _ := NewTestTokenProvider()
	token, _, err := p1.IssueGrant("res-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueGrant: %v", err)
	}
	if _, _, err := p2.ValidateGrant(token); err != ErrInvalidToken {
		t.Errorf("foreign key: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateGrantWrongAudienceOrIssuer(t *testing.T) {
	signer, pub, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	issuer := NewTokenProvider(signer, pub, "creator-gate", "other-app")
	verifier := NewTokenProvider(signer, pub, "creator-gate", "creator-gallery")
	token, _, _ := issuer.IssueGrant("res-1", time.Now().Add(time.Hour))
	if _, _, err := verifier.ValidateGrant(token); err != ErrInvalidToken {
		t.Errorf("wrong audience: want ErrInvalidToken, got %v", err)
	}

	issuer = NewTokenProvider(signer, pub, "someone-else", "creator-gallery")
	token, _, _ = issuer.IssueGrant("res-1", time.Now().Add(time.Hour))
	if _, _, err := verifier.ValidateGrant(token); err != ErrInvalidToken {
		t.Errorf("wrong issuer: want ErrInvalidToken, got %v", err)
	}
}
