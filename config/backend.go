package config

import (
	"fmt"
	"strings"
	"time"
)

// BackendConfig contains the credentials bundled with the application build and
// the HTTP client settings used to reach the backend.
// The bundled pair is only used when local storage holds no credentials.
type BackendConfig struct {
	URL     string        `env:"SUPABASE_URL"`
	AnonKey string        `env:"SUPABASE_ANON_KEY"`
	Timeout time.Duration `env:"HTTP_TIMEOUT"      envDefault:"10s"`
}

// Sanitize trims the bundled values and enforces a positive timeout.
func (c *BackendConfig) Sanitize() {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.AnonKey = strings.TrimSpace(c.AnonKey)
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// TokenVerification selects how access tokens are checked.
type TokenVerification string

const (
	// TokenVerificationNone trusts the identity service response.
	TokenVerificationNone TokenVerification = "none"
	// TokenVerificationJWKS verifies asymmetric signatures against the project's JWKS.
	TokenVerificationJWKS TokenVerification = "jwks"
	// TokenVerificationHMAC verifies HS256 signatures with the project's JWT secret.
	TokenVerificationHMAC TokenVerification = "hmac"
)

// UnmarshalText implements encoding.TextUnmarshaler for TokenVerification.
func (v *TokenVerification) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	switch s {
	case "", "none":
		*v = TokenVerificationNone
		return nil
	case "jwks", "hmac":
		*v = TokenVerification(s)
		return nil
	default:
		return fmt.Errorf("invalid TokenVerification: %q (valid options: none, jwks, hmac)", s)
	}
}

// TokenConfig controls access-token verification.
type TokenConfig struct {
	Mode      TokenVerification `env:"TOKEN_VERIFICATION"  envDefault:"none"`
	JWTSecret string            `env:"SUPABASE_JWT_SECRET"`
	JWKSURL   string            `env:"SUPABASE_JWKS_URL"`
	Issuer    string            `env:"SUPABASE_JWT_ISSUER"`
	Audience  string            `env:"SUPABASE_JWT_AUDIENCE" envDefault:"authenticated"`
}

// Sanitize disables verification when the selected mode lacks its material.
// JWKS URL and issuer left empty are derived per backend from its URL.
func (c *TokenConfig) Sanitize() {
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	c.JWKSURL = strings.TrimSpace(c.JWKSURL)
	c.Issuer = strings.TrimSpace(c.Issuer)
	switch c.Mode {
	case TokenVerificationHMAC:
		if c.JWTSecret == "" {
			c.Mode = TokenVerificationNone
		}
	case TokenVerificationJWKS, TokenVerificationNone:
	default:
		c.Mode = TokenVerificationNone
	}
}

// JWKSURLFor returns the configured JWKS URL or the one served by backendURL.
func (c TokenConfig) JWKSURLFor(backendURL string) string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return strings.TrimRight(backendURL, "/") + "/auth/v1/.well-known/jwks.json"
}

// IssuerFor returns the configured issuer or the one used by backendURL.
func (c TokenConfig) IssuerFor(backendURL string) string {
	if c.Issuer != "" {
		return c.Issuer
	}
	return strings.TrimRight(backendURL, "/") + "/auth/v1"
}

// SessionConfig controls the device session lifecycle.
type SessionConfig struct {
	// RefreshMargin is how long before expiry the access token is refreshed.
	RefreshMargin time.Duration `env:"SESSION_REFRESH_MARGIN" envDefault:"60s"`
	// AutoRefresh enables the background refresh loop in long-running commands.
	AutoRefresh bool `env:"SESSION_AUTO_REFRESH" envDefault:"true"`
}

// Sanitize enforces a non-negative refresh margin.
func (c *SessionConfig) Sanitize() {
	if c.RefreshMargin < 0 {
		c.RefreshMargin = 0
	}
}
