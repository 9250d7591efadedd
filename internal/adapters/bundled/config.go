// Package bundled exposes the credentials shipped with the application build as a
// read-only fallback configuration.
package bundled

import (
	"github.com/greenhands/greenhands-shell/config"
	"github.com/greenhands/greenhands-shell/internal/domain/connection"
)

// Config is an immutable key-value view captured once per process.
type Config struct {
	values map[string]string
}

// FromBackend captures the bundled backend credentials. Empty values are omitted.
func FromBackend(cfg config.BackendConfig) *Config {
	return FromMap(map[string]string{
		connection.StorageKeyURL:     cfg.URL,
		connection.StorageKeyAnonKey: cfg.AnonKey,
	})
}

// FromMap copies values, dropping empty ones.
func FromMap(values map[string]string) *Config {
	c := &Config{values: make(map[string]string, len(values))}
	for k, v := range values {
		if v != "" {
			c.values[k] = v
		}
	}
	return c
}

// Lookup implements ports.FallbackConfig.
func (c *Config) Lookup(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.values[key]
	return v, ok
}
