// Package config handles loading application configuration from environment
// variables. All settings have sensible defaults for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application settings loaded from environment variables.
type Config struct {
	Port               string        `env:"PORT" envDefault:"8080"`
	DatabasePath       string        `env:"DATABASE_PATH" envDefault:"./setlive.db"`
	JWTSecret          string        `env:"JWT_SECRET" envDefault:"change-me-in-production"` // #nosec G101 -- intentional dev default
	TokenDuration      time.Duration `env:"TOKEN_DURATION" envDefault:"12h"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173,http://localhost:3000"`
	TrustedProxies     []string      `env:"TRUSTED_PROXIES"`
	SentryDSN          string        `env:"SENTRY_DSN"`
	SentryEnvironment  string        `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
}

// Load reads configuration from environment variables, using defaults where
// not set.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
