// Copyright (c) 2026 Quire. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, token issuer) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Revocation backends

const (
	RevocationStoreMemory = "memory"
	RevocationStoreRedis  = "redis"
)

// # Configuration Schema

// Config holds all runtime configuration for the Quire API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value store (Redis). Required only for the redis revocation backend.
	RedisURL string `env:"REDIS_URL"`

	// Token signing. The two secrets must differ.
	AccessTokenSecret  string `env:"ACCESS_TOKEN_SECRET,required"`
	RefreshTokenSecret string `env:"REFRESH_TOKEN_SECRET,required"`
	TokenIssuer        string `env:"TOKEN_ISSUER" envDefault:"quire.app"`

	// Revocation registry backend and in-process sweep cadence
	RevocationStore         string        `env:"REVOCATION_STORE"          envDefault:"memory"`
	RevocationSweepInterval time.Duration `env:"REVOCATION_SWEEP_INTERVAL" envDefault:"10m"`

	// Session cookies
	CookieSecure   bool   `env:"COOKIE_SECURE"   envDefault:"true"`
	CookieSameSite string `env:"COOKIE_SAMESITE" envDefault:"lax"`
	CookieDomain   string `env:"COOKIE_DOMAIN"`

	// TrustProxy takes the client address from X-Real-IP or X-Forwarded-For.
	// Enable only when every request arrives through a proxy that sets them,
	// otherwise clients can pick their own rate-limit bucket.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	// Cross-Origin Resource Sharing
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the rules that span more than one field.
func (c *Config) Validate() error {
	var problems []error

	if c.AccessTokenSecret == c.RefreshTokenSecret {
		problems = append(problems, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}

	switch c.RevocationStore {
	case RevocationStoreMemory:
	case RevocationStoreRedis:
		if c.RedisURL == "" {
			problems = append(problems, errors.New("REDIS_URL is required when REVOCATION_STORE=redis"))
		}
	default:
		problems = append(problems, fmt.Errorf("REVOCATION_STORE must be %q or %q, got %q",
			RevocationStoreMemory, RevocationStoreRedis, c.RevocationStore))
	}

	if c.RevocationSweepInterval <= 0 {
		problems = append(problems, errors.New("REVOCATION_SWEEP_INTERVAL must be positive"))
	}

	if _, ok := parseSameSite(c.CookieSameSite); !ok {
		problems = append(problems, fmt.Errorf("COOKIE_SAMESITE must be lax, strict or none, got %q", c.CookieSameSite))
	}

	if c.IsProduction() && !c.CookieSecure {
		problems = append(problems, errors.New("COOKIE_SECURE must be true when ENVIRONMENT=production"))
	}

	if err := errors.Join(problems...); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SameSite returns the cookie SameSite mode. Invalid values were rejected by Validate.
func (c *Config) SameSite() http.SameSite {
	mode, _ := parseSameSite(c.CookieSameSite)
	return mode
}

func parseSameSite(value string) (http.SameSite, bool) {
	switch strings.ToLower(value) {
	case "lax", "":
		return http.SameSiteLaxMode, true
	case "strict":
		return http.SameSiteStrictMode, true
	case "none":
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteDefaultMode, false
}
