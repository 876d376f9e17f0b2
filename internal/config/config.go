// Package config builds the immutable process configuration from environment
// variables. Business logic never reads the environment directly; everything
// is injected from here.
package config

import (
	"fmt"
	"os"
	"strings"
)

const minSecretLen = 32

// OAuthClient is one provider's client-credential pair. An unset pair gates
// that provider's availability, it is not an error.
type OAuthClient struct {
	ID     string
	Secret string
}

// Configured reports whether both halves of the pair are present.
func (c OAuthClient) Configured() bool {
	return c.ID != "" && c.Secret != ""
}

// Config holds all runtime configuration.
type Config struct {
	Host    string
	Port    string
	AppURL  string // external base URL used to build OAuth redirect URIs
	DBPath  string
	Catalog string // optional YAML provider-catalog override

	SigningSecret    string // state tokens, >=32 bytes
	EncryptionSecret string // credential vault, >=32 bytes

	Google   OAuthClient
	Meta     OAuthClient
	LinkedIn OAuthClient
}

// Load reads configuration from the environment. The signing and encryption
// secrets are validated here so that later failures can only be per-request.
func Load() (*Config, error) {
	cfg := &Config{
		Host:    getEnv("HOST", "127.0.0.1"),
		Port:    getEnv("PORT", "8080"),
		DBPath:  getEnv("DB_PATH", "pulsedash.db"),
		Catalog: os.Getenv("PROVIDER_CATALOG"),

		SigningSecret:    os.Getenv("JWT_SECRET"),
		EncryptionSecret: os.Getenv("ENCRYPTION_KEY"),

		Google: OAuthClient{
			ID:     os.Getenv("GOOGLE_CLIENT_ID"),
			Secret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		},
		Meta: OAuthClient{
			ID:     os.Getenv("META_APP_ID"),
			Secret: os.Getenv("META_APP_SECRET"),
		},
		LinkedIn: OAuthClient{
			ID:     os.Getenv("LINKEDIN_CLIENT_ID"),
			Secret: os.Getenv("LINKEDIN_CLIENT_SECRET"),
		},
	}

	cfg.AppURL = strings.TrimRight(getEnv("APP_URL", "http://"+cfg.Host+":"+cfg.Port), "/")

	if len(cfg.SigningSecret) < minSecretLen {
		return nil, fmt.Errorf("JWT_SECRET must be set and at least %d characters", minSecretLen)
	}
	if len(cfg.EncryptionSecret) < minSecretLen {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be set and at least %d characters", minSecretLen)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
