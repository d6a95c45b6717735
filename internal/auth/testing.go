package auth

import (
	"context"
	"crypto/rsa"
	"errors"
)

// ContextWithPrincipal adds a principal to the context for testing purposes
// This is exported to allow other packages to create test contexts
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// StaticKeys is a fixed kid -> key set, used in tests instead of a JWKS endpoint.
type StaticKeys map[string]*rsa.PublicKey

func (s StaticKeys) Get(kid string) (*rsa.PublicKey, error) {
	if k, ok := s[kid]; ok {
		return k, nil
	}
	return nil, errors.New("jwks: key not found")
}
