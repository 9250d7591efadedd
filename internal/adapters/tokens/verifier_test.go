package tokens

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/greenhands/greenhands-shell/config"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer = "https://x.test/auth/v1"
	testSecret = "super-secret-jwt-token-with-at-least-32-characters"
)

func claimsFor(sub string, exp time.Time) accessClaims {
	return accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		},
		Email: "lea@example.com",
		Role:  "authenticated",
	}
}

func signHS256(t *testing.T, secret string, c accessClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestHMACVerifier(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, "authenticated", testIssuer)
	require.NoError(t, err)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	t.Run("valid", func(t *testing.T) {
		got, err := v.Verify(ctx, signHS256(t, testSecret, claimsFor("u1", exp)))
		require.NoError(t, err)
		assert.Equal(t, "u1", got.Subject)
		assert.Equal(t, "lea@example.com", got.Email)
		assert.True(t, got.ExpiresAt.Equal(exp))
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Verify(ctx, signHS256(t, "another-secret-another-secret-another", claimsFor("u1", exp)))
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("expired", func(t *testing.T) {
		_, err := v.Verify(ctx, signHS256(t, testSecret, claimsFor("u1", time.Now().Add(-time.Minute))))
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := claimsFor("u1", exp)
		c.Audience = jwt.ClaimStrings{"anon"}
		_, err := v.Verify(ctx, signHS256(t, testSecret, c))
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify(ctx, "not-a-jwt")
		assert.True(t, apperrors.IsUnauthorized(err))
	})
}

func TestNewHMACVerifier_RequiresSecret(t *testing.T) {
	_, err := NewHMACVerifier("", "authenticated", "")
	assert.Error(t, err)
}

func TestOIDCVerifier_StaticKeys(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	v, err := NewOIDCVerifier(OIDCVerifierConfig{
		Issuer:   testIssuer,
		Audience: "authenticated",
		KeySet:   &gooidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}},
	})
	require.NoError(t, err)

	sign := func(c accessClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, c).SignedString(key)
		require.NoError(t, err)
		return s
	}
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, err := v.Verify(ctx, sign(claimsFor("u1", exp)))
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Subject)
	assert.Equal(t, "lea@example.com", got.Email)
	assert.True(t, got.ExpiresAt.Equal(exp))

	bad := claimsFor("u1", exp)
	bad.Issuer = "https://evil.test/auth/v1"
	_, err = v.Verify(ctx, sign(bad))
	assert.True(t, apperrors.IsUnauthorized(err))

	// HS256 tokens are not accepted by the asymmetric verifier.
	_, err = v.Verify(ctx, signHS256(t, testSecret, claimsFor("u1", exp)))
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestNewOIDCVerifier_RequiresKeys(t *testing.T) {
	_, err := NewOIDCVerifier(OIDCVerifierConfig{Issuer: testIssuer})
	assert.Error(t, err)
}

func TestFromConfig(t *testing.T) {
	v, err := FromConfig(config.TokenConfig{Mode: config.TokenVerificationNone}, "https://x.test", nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = FromConfig(config.TokenConfig{Mode: config.TokenVerificationHMAC, JWTSecret: testSecret, Audience: "authenticated"}, "https://x.test", nil)
	require.NoError(t, err)
	require.IsType(t, &HMACVerifier{}, v)

	// Issuer is derived from the backend URL.
	exp := time.Now().Add(time.Hour)
	_, err = v.Verify(context.Background(), signHS256(t, testSecret, claimsFor("u1", exp)))
	require.NoError(t, err)

	v, err = FromConfig(config.TokenConfig{Mode: config.TokenVerificationJWKS, Audience: "authenticated"}, "https://x.test", nil)
	require.NoError(t, err)
	assert.IsType(t, &OIDCVerifier{}, v)

	_, err = FromConfig(config.TokenConfig{Mode: config.TokenVerificationHMAC}, "https://x.test", nil)
	assert.Error(t, err)
}
