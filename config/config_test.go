package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func parse(t *testing.T, vars map[string]string) AppConfig {
	t.Helper()
	var cfg AppConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "production")
	cfg := parse(t, map[string]string{})
	cfg.Sanitize()

	if cfg.IsDev {
		t.Fatalf("expected production mode")
	}
	if cfg.Backend.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Backend.Timeout)
	}
	if cfg.Storage.Driver != StorageDriverFile {
		t.Fatalf("unexpected storage driver %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Path == "" {
		t.Fatalf("expected default storage path")
	}
	if cfg.Tokens.Mode != TokenVerificationNone {
		t.Fatalf("unexpected token mode %q", cfg.Tokens.Mode)
	}
	if cfg.Session.RefreshMargin != time.Minute || !cfg.Session.AutoRefresh {
		t.Fatalf("unexpected session config %+v", cfg.Session)
	}
	if cfg.Observability.Logging.Format != "json" || cfg.Observability.Logging.SlogLevel() != slog.LevelInfo {
		t.Fatalf("unexpected logging config %+v", cfg.Observability.Logging)
	}
	if cfg.Observability.Metrics.IsEnabled() {
		t.Fatalf("metrics must be disabled by default")
	}
}

func TestAppConfig_ParseBackendEnv(t *testing.T) {
	cfg := parse(t, map[string]string{
		"SUPABASE_URL":      " https://x.test/ ",
		"SUPABASE_ANON_KEY": " k1 ",
		"HTTP_TIMEOUT":      "3s",
	})
	cfg.Sanitize()

	expected := BackendConfig{URL: "https://x.test", AnonKey: "k1", Timeout: 3 * time.Second}
	if !reflect.DeepEqual(cfg.Backend, expected) {
		t.Fatalf("unexpected backend configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Backend)
	}
}

func TestAppConfig_InvalidEnums(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{name: "storage driver", vars: map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{name: "token verification", vars: map[string]string{"TOKEN_VERIFICATION": "magic"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg AppConfig
			if err := env.ParseWithOptions(&cfg, env.Options{Environment: tt.vars}); err == nil {
				t.Fatalf("expected parse error")
			}
		})
	}
}

func TestTokenConfig_Sanitize(t *testing.T) {
	tests := []struct {
		name string
		in   TokenConfig
		want TokenVerification
	}{
		{name: "hmac without secret", in: TokenConfig{Mode: TokenVerificationHMAC}, want: TokenVerificationNone},
		{name: "hmac with secret", in: TokenConfig{Mode: TokenVerificationHMAC, JWTSecret: "s"}, want: TokenVerificationHMAC},
		{name: "jwks", in: TokenConfig{Mode: TokenVerificationJWKS}, want: TokenVerificationJWKS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.in
			c.Sanitize()
			if c.Mode != tt.want {
				t.Fatalf("mode = %q, want %q", c.Mode, tt.want)
			}
		})
	}
}

func TestTokenConfig_DerivedURLs(t *testing.T) {
	c := TokenConfig{}
	if got := c.JWKSURLFor("https://x.test/"); got != "https://x.test/auth/v1/.well-known/jwks.json" {
		t.Fatalf("unexpected jwks url %q", got)
	}
	if got := c.IssuerFor("https://x.test"); got != "https://x.test/auth/v1" {
		t.Fatalf("unexpected issuer %q", got)
	}
	c.JWKSURL = "https://keys.test/jwks"
	if got := c.JWKSURLFor("https://x.test"); got != "https://keys.test/jwks" {
		t.Fatalf("configured jwks url must win, got %q", got)
	}
}

func TestAppConfig_DevModeLogging(t *testing.T) {
	cfg := parse(t, map[string]string{"DEV": "true"})
	cfg.Sanitize()

	if cfg.Observability.Logging.Format != "text" {
		t.Fatalf("dev mode should log text, got %q", cfg.Observability.Logging.Format)
	}
	if cfg.Observability.Logging.SlogLevel() != slog.LevelDebug {
		t.Fatalf("dev mode should log at debug")
	}
}

func TestAppConfig_DevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := parse(t, map[string]string{})
	cfg.Sanitize()
	if !cfg.IsDev {
		t.Fatalf("NODE_ENV=development must enable dev mode")
	}
}

func TestAppConfig_RedisStorage(t *testing.T) {
	cfg := parse(t, map[string]string{
		"STORAGE_DRIVER":    "redis",
		"STORAGE_NAMESPACE": "kiosk-1",
		"REDIS_URI":         "redis://localhost:6379/2",
	})
	cfg.Sanitize()

	if cfg.Storage.Driver != StorageDriverRedis || cfg.Storage.Namespace != "kiosk-1" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Redis.URI != "redis://localhost:6379/2" {
		t.Fatalf("unexpected redis uri %q", cfg.Redis.URI)
	}
}
