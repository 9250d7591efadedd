package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables (and an optional .env file)
// using the github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - backend.go: bundled backend credentials, HTTP client and token verification
//   - storage.go: local storage, Redis and Postgres configuration
//   - observability.go: logging and metrics configuration
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, debug level).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Backend holds the bundled fallback credentials and client settings.
	Backend BackendConfig

	// Tokens controls access-token verification.
	Tokens TokenConfig

	// Session controls the device session lifecycle.
	Session SessionConfig

	// Storage selects where the device persists credentials and sessions.
	Storage  StorageConfig
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Postgres DBConfig    `envPrefix:"DB_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.detectDevMode()

	c.Backend.Sanitize()
	c.Tokens.Sanitize()
	c.Session.Sanitize()
	c.Storage.Sanitize()
	c.Observability.Sanitize(c.IsDev)
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (set by the mobile tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
