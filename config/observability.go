package config

import (
	"log/slog"
	"strings"
)

// ObservabilityConfig groups configuration that controls logging and metrics.
type ObservabilityConfig struct {
	Logging LoggingConfig
	Metrics MetricsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize(isDev bool) {
	c.Logging.Sanitize(isDev)
	c.Metrics.Sanitize()
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Sanitize normalises level and format; dev mode defaults to debug text logs.
func (c *LoggingConfig) Sanitize(isDev bool) {
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if isDev && c.Level == "info" {
		c.Level = "debug"
	}
	if isDev && c.Format == "json" {
		c.Format = "text"
	}
	if c.Format != "text" {
		c.Format = "json"
	}
}

// SlogLevel converts Level into a slog.Level, defaulting to info.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MetricsConfig controls the Prometheus endpoint exposed by long-running commands.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the endpoint.
	Addr string `env:"METRICS_ADDR" envDefault:""`
}

// Sanitize trims the listen address.
func (c *MetricsConfig) Sanitize() {
	c.Addr = strings.TrimSpace(c.Addr)
}

// IsEnabled returns true when the metrics endpoint should be served.
func (c MetricsConfig) IsEnabled() bool {
	return c.Addr != ""
}
