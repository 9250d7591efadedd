// Package tokens verifies access tokens issued by the identity service.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/greenhands/greenhands-shell/config"
	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
	"github.com/greenhands/greenhands-shell/internal/ports"
)

// accessClaims is the subset of Supabase access-token claims the shell reads.
type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (c accessClaims) domain() domainauth.TokenClaims {
	out := domainauth.TokenClaims{Subject: c.Subject, Email: c.Email, Role: c.Role}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}

// OIDCVerifier checks asymmetric signatures against a JWKS.
type OIDCVerifier struct {
	verifier *gooidc.IDTokenVerifier
}

// OIDCVerifierConfig configures an OIDCVerifier.
type OIDCVerifierConfig struct {
	Issuer   string
	Audience string
	// KeySet defaults to a remote key set fetched from JWKSURL.
	KeySet     gooidc.KeySet
	JWKSURL    string
	HTTPClient *http.Client
	Now        func() time.Time
}

// NewOIDCVerifier builds a verifier. The remote key set is fetched lazily.
func NewOIDCVerifier(cfg OIDCVerifierConfig) (*OIDCVerifier, error) {
	keys := cfg.KeySet
	if keys == nil {
		if cfg.JWKSURL == "" {
			return nil, errors.New("jwks URL is required")
		}
		ctx := context.Background()
		if cfg.HTTPClient != nil {
			ctx = gooidc.ClientContext(ctx, cfg.HTTPClient)
		}
		keys = gooidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
	}

	oc := &gooidc.Config{
		ClientID:             cfg.Audience,
		SkipClientIDCheck:    cfg.Audience == "",
		SkipIssuerCheck:      cfg.Issuer == "",
		SupportedSigningAlgs: []string{gooidc.RS256, gooidc.ES256},
		Now:                  cfg.Now,
	}
	return &OIDCVerifier{verifier: gooidc.NewVerifier(cfg.Issuer, keys, oc)}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, accessToken string) (domainauth.TokenClaims, error) {
	tok, err := v.verifier.Verify(ctx, accessToken)
	if err != nil {
		return domainauth.TokenClaims{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "access token rejected")
	}
	var claims accessClaims
	if err := tok.Claims(&claims); err != nil {
		return domainauth.TokenClaims{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "access token claims unreadable")
	}
	out := claims.domain()
	out.Subject = tok.Subject
	out.ExpiresAt = tok.Expiry
	return out, nil
}

// HMACVerifier checks HS256 signatures with the project's JWT secret.
type HMACVerifier struct {
	secret   []byte
	audience string
	issuer   string
	now      func() time.Time
}

// NewHMACVerifier builds a verifier for secret.
func NewHMACVerifier(secret, audience, issuer string) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &HMACVerifier{secret: []byte(secret), audience: audience, issuer: issuer, now: time.Now}, nil
}

func (v *HMACVerifier) Verify(_ context.Context, accessToken string) (domainauth.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims accessClaims
	_, err := jwt.ParseWithClaims(accessToken, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domainauth.TokenClaims{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "access token rejected")
	}
	return claims.domain(), nil
}

// FromConfig returns the verifier selected by cfg for the backend at backendURL,
// or nil when verification is disabled.
func FromConfig(cfg config.TokenConfig, backendURL string, hc *http.Client) (ports.TokenVerifier, error) {
	switch cfg.Mode {
	case config.TokenVerificationHMAC:
		v, err := NewHMACVerifier(cfg.JWTSecret, cfg.Audience, cfg.IssuerFor(backendURL))
		if err != nil {
			return nil, err
		}
		return v, nil
	case config.TokenVerificationJWKS:
		v, err := NewOIDCVerifier(OIDCVerifierConfig{
			Issuer:     cfg.IssuerFor(backendURL),
			Audience:   cfg.Audience,
			JWKSURL:    cfg.JWKSURLFor(backendURL),
			HTTPClient: hc,
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	case config.TokenVerificationNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported token verification mode %q", cfg.Mode)
	}
}
