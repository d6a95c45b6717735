package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/auth"
)

// TestIssuer is the issuer CreateTestVerifier accepts and GenerateTestJWT signs with.
const TestIssuer = "https://login.test.local/realms/registry"

const testKeyID = "test-key-id"

// CreateTestVerifier creates a verifier that trusts a freshly generated key.
// It returns the verifier and the private key to sign test tokens
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)
	verifier := auth.NewVerifier(
		auth.Config{Issuer: TestIssuer},
		auth.StaticKeys{testKeyID: publicKey},
	)
	return verifier, privateKey
}
