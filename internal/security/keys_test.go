package security

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateSigningKey_ES256(t *testing.T) {
	signer, pub, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	if signer == nil || pub == nil {
		t.Fatal("nil key")
	}
	if alg := KeyAlg(pub); alg != "ES256" {
		t.Errorf("KeyAlg = %q, want ES256", alg)
	}
}

func TestEncodeAndParseKeyPair_Inline(t *testing.T) {
	signer, _, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	privPEM, pubPEM, err := encodeKeyPairPEM(signer)
	if err != nil {
		t.Fatalf("encodeKeyPairPEM: %v", err)
	}
	priv, err := ParsePrivateKey(privPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if KeyAlg(priv.Public()) != "ES256" || KeyAlg(pub) != "ES256" {
		t.Error("parsed keys should be ES256")
	}
}

func TestLoadPEM_InlineWithLiteralNewlines(t *testing.T) {
	signer, _, _ := GenerateSigningKey()
	privPEM, _, err := encodeKeyPairPEM(signer)
	if err != nil {
		t.Fatalf("encodeKeyPairPEM: %v", err)
	}
	escaped := strings.ReplaceAll(strings.TrimSpace(privPEM), "\n", `\n`)
	if _, err := ParsePrivateKey(escaped); err != nil {
		t.Fatalf("ParsePrivateKey with literal \\n: %v", err)
	}
}

func TestLoadPEM_FilePath(t *testing.T) {
	signer, _, _ := GenerateSigningKey()
	_, pubPEM, err := encodeKeyPairPEM(signer)
	if err != nil {
		t.Fatalf("encodeKeyPairPEM: %v", err)
	}
	path := filepath.Join(t.TempDir(), "grant.pub")
	if err := os.WriteFile(path, []byte(pubPEM), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ParsePublicKey(path); err != nil {
		t.Fatalf("ParsePublicKey from file: %v", err)
	}
}

func TestLoadPEM_Empty(t *testing.T) {
	if _, err := LoadPEM("   "); err != ErrInvalidKey {
		t.Errorf("LoadPEM blank: want ErrInvalidKey, got %v", err)
	}
}

func TestParsePrivateKey_NotPEM(t *testing.T) {
	if _, err := ParsePrivateKey("-----BEGIN garbage"); err != ErrInvalidKey {
		t.Errorf("want ErrInvalidKey, got %v", err)
	}
}

func TestParsePrivateKey_RSAPKCS1(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	signer, err := ParsePrivateKey(string(block))
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if KeyAlg(signer.Public()) != "RS256" {
		t.Errorf("KeyAlg = %q, want RS256", KeyAlg(signer.Public()))
	}
}

func TestKeyAlg_Unknown(t *testing.T) {
	if alg := KeyAlg("not a key"); alg != "" {
		t.Errorf("KeyAlg = %q, want empty", alg)
	}
}

// encodeKeyPairPEM returns PKCS#8 private and PKIX public PEM blocks for signer.
func encodeKeyPairPEM(signer crypto.Signer) (privPEM, pubPEM string, err error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(signer)
	if err != nil {
		return "", "", err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(signer.Public())
	if err != nil {
		return "", "", err
	}
	privPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))
	pubPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
	return privPEM, pubPEM, nil
}
