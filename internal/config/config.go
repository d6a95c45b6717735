package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RegistryConfig holds the credentials and endpoints of the matching registry.
type RegistryConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	ResourceID   string
	UserAgent    string
	IdentityURL  string
	APIURL       string
	Timeout      time.Duration
	PageSize     int
}

// DatabaseConfig holds the connection settings of the donor store.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns a lib/pq key/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig configures bearer token verification on the operator API.
type AuthConfig struct {
	Issuer          string
	JWKSURL         string
	PermissionsFile string
}

// Config is built once at process start and handed to every component.
type Config struct {
	Registry    RegistryConfig
	Database    DatabaseConfig
	Log         LogConfig
	Auth        AuthConfig
	RabbitMQURL string
	RedisURL    string
	LockTTL     time.Duration
	HTTPAddr    string
	CORSOrigins []string
}

var keys = []string{
	"REGISTRY_TENANT_ID",
	"REGISTRY_CLIENT_ID",
	"REGISTRY_CLIENT_SECRET",
	"REGISTRY_RESOURCE_ID",
	"REGISTRY_USER_AGENT",
	"REGISTRY_IDENTITY_URL",
	"REGISTRY_API_URL",
	"REGISTRY_TIMEOUT",
	"REGISTRY_PAGE_SIZE",
	"DB_HOST",
	"DB_PORT",
	"DB_USER",
	"DB_PASSWORD",
	"DB_NAME",
	"DB_SSLMODE",
	"RABBITMQ_URL",
	"REDIS_URL",
	"LOCK_TTL",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"HTTP_ADDR",
	"AUTH_ISSUER",
	"AUTH_JWKS_URL",
	"PERMISSIONS_FILE",
	"CORS_ORIGINS",
}

// Load reads an optional .env file from the working directory and overlays
// the process environment on top of it.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("REGISTRY_USER_AGENT", "registry-sync/1.0")
	v.SetDefault("REGISTRY_IDENTITY_URL", "https://login.microsoftonline.com")
	v.SetDefault("REGISTRY_API_URL", "https://sandbox-search-api.wmda.info/api/v2")
	v.SetDefault("REGISTRY_TIMEOUT", "30s")
	v.SetDefault("REGISTRY_PAGE_SIZE", 100)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("LOCK_TTL", "2m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("PERMISSIONS_FILE", "permissions.yml")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env is fine, the environment alone is enough.
	_ = v.ReadInConfig()

	cfg := &Config{
		Registry: RegistryConfig{
			TenantID:     v.GetString("REGISTRY_TENANT_ID"),
			ClientID:     v.GetString("REGISTRY_CLIENT_ID"),
			ClientSecret: v.GetString("REGISTRY_CLIENT_SECRET"),
			ResourceID:   v.GetString("REGISTRY_RESOURCE_ID"),
			UserAgent:    v.GetString("REGISTRY_USER_AGENT"),
			IdentityURL:  strings.TrimSuffix(v.GetString("REGISTRY_IDENTITY_URL"), "/"),
			APIURL:       strings.TrimSuffix(v.GetString("REGISTRY_API_URL"), "/"),
			Timeout:      v.GetDuration("REGISTRY_TIMEOUT"),
			PageSize:     v.GetInt("REGISTRY_PAGE_SIZE"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Auth: AuthConfig{
			Issuer:          v.GetString("AUTH_ISSUER"),
			JWKSURL:         v.GetString("AUTH_JWKS_URL"),
			PermissionsFile: v.GetString("PERMISSIONS_FILE"),
		},
		RabbitMQURL: v.GetString("RABBITMQ_URL"),
		RedisURL:    v.GetString("REDIS_URL"),
		LockTTL:     v.GetDuration("LOCK_TTL"),
		HTTPAddr:    v.GetString("HTTP_ADDR"),
	}

	for _, origin := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	return cfg, nil
}

// Validate checks the settings every registry workflow needs.
func (c *Config) Validate() error {
	var missing []string
	if c.Registry.TenantID == "" {
		missing = append(missing, "REGISTRY_TENANT_ID")
	}
	if c.Registry.ClientID == "" {
		missing = append(missing, "REGISTRY_CLIENT_ID")
	}
	if c.Registry.ClientSecret == "" {
		missing = append(missing, "REGISTRY_CLIENT_SECRET")
	}
	if c.Registry.ResourceID == "" {
		missing = append(missing, "REGISTRY_RESOURCE_ID")
	}
	if c.Database.User == "" || c.Database.Name == "" {
		missing = append(missing, "DB_USER/DB_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Registry.PageSize < 1 {
		return errors.New("REGISTRY_PAGE_SIZE must be positive")
	}
	if c.Registry.Timeout <= 0 {
		return errors.New("REGISTRY_TIMEOUT must be positive")
	}
	return nil
}

// ValidateAPI additionally checks the operator API auth settings.
func (c *Config) ValidateAPI() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Auth.Issuer == "" || c.Auth.JWKSURL == "" {
		return errors.New("AUTH_ISSUER and AUTH_JWKS_URL are required for the operator API")
	}
	return nil
}
