package security

// NewTestTokenProvider returns a TokenProvider backed by a freshly generated P-256 key.
// For unit tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	signer, pub, err := GenerateSigningKey()
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(signer, pub, "test-issuer", "test-audience"), nil
}
