package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	Version     string `envconfig:"VERSION" default:"dev"`

	// EncryptionKey protects values at rest (organization secret keys,
	// provider OAuth tokens). 64 hex characters, decoded to 32 bytes.
	EncryptionKey string `envconfig:"ENCRYPTION_KEY" required:"true"`
	// TokenSecret keys the embed bearer tokens. Arbitrary length; the token
	// codec derives a 32-byte key from it.
	TokenSecret string `envconfig:"TOKEN_SECRET" required:"true"`

	BcryptCost      int           `envconfig:"BCRYPT_COST" default:"10"`
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"168h"`
	AuthTokenTTL    time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"168h"`
	TimestampMaxAge time.Duration `envconfig:"TIMESTAMP_MAX_AGE" default:"5m"`

	CookieDomain string `envconfig:"COOKIE_DOMAIN" default:""`
	CookieSecure bool   `envconfig:"COOKIE_SECURE" default:"true"`

	// Device-flow settings for the AI coding provider the PR worker talks to.
	OAuthClientID      string `envconfig:"OAUTH_CLIENT_ID" default:""`
	OAuthDeviceAuthURL string `envconfig:"OAUTH_DEVICE_AUTH_URL" default:""`
	OAuthTokenURL      string `envconfig:"OAUTH_TOKEN_URL" default:""`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.EncryptionKeyBytes(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EncryptionKeyBytes decodes the hex encryption key into the 32 raw bytes the
// cipher expects.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
