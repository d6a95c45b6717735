package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Principal holds identity extracted from a validated token.
type Principal struct {
	UserID   string
	Username string
	Roles    []string
	Claims   jwt.MapClaims
}

var (
	ErrNoToken       = errors.New("no token provided")
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidIssuer = errors.New("invalid issuer")
	ErrMissingSub    = errors.New("missing sub claim")
)

// TokenVerifier turns a raw bearer token into a Principal.
type TokenVerifier interface {
	ParseAndVerifyToken(tokenString string) (*Principal, error)
}

type Verifier struct {
	cfg  Config
	keys KeySource
}

var _ TokenVerifier = (*Verifier)(nil)

// NewVerifier constructs a verifier with config and a key source.
func NewVerifier(cfg Config, keys KeySource) *Verifier {
	return &Verifier{cfg: cfg, keys: keys}
}

// ParseAndVerifyToken verifies a bearer token, validates issuer/exp and returns Principal.
func (v *Verifier) ParseAndVerifyToken(tokenString string) (*Principal, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrNoToken
	}
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		// enforce RS256
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrInvalidToken
		}
		return v.keys.Get(kid)
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if iss, _ := claims["iss"].(string); iss != v.cfg.Issuer {
		return nil, ErrInvalidIssuer
	}
	// exp is required, jwt.Parse only checks it when present
	if !claims.VerifyExpiresAt(jwt.TimeFunc().Unix(), true) {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSub
	}

	username, _ := claims["preferred_username"].(string)

	return &Principal{
		UserID:   sub,
		Username: username,
		Roles:    extractRoles(claims),
		Claims:   claims,
	}, nil
}

// extractRoles reads realm_access.roles (Keycloak) and the top-level roles
// claim (Entra ID app roles).
func extractRoles(claims jwt.MapClaims) []string {
	var roles []string
	appendAll := func(v interface{}) {
		rr, ok := v.([]interface{})
		if !ok {
			return
		}
		for _, r := range rr {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	if ra, ok := claims["realm_access"].(map[string]interface{}); ok {
		appendAll(ra["roles"])
	}
	appendAll(claims["roles"])
	return roles
}
