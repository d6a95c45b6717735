package auth

import (
	"time"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/config"
)

// Config holds auth configuration
type Config struct {
	Issuer      string
	JWKSURL     string
	JWKSRefresh time.Duration
}

// ConfigFrom picks the operator API auth settings out of the service config.
func ConfigFrom(cfg config.AuthConfig) Config {
	return Config{
		Issuer:  cfg.Issuer,
		JWKSURL: cfg.JWKSURL,
	}
}
