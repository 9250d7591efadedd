package supabase

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
	"golang.org/x/oauth2"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (r tokenResponse) session(now time.Time) (domainauth.Session, error) {
	if r.AccessToken == "" || r.User.ID == "" {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeUnavailable, "backend returned an incomplete session")
	}
	sess := domainauth.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		User:         domainauth.User{ID: r.User.ID, Email: r.User.Email},
	}
	switch {
	case r.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(r.ExpiresAt, 0).UTC()
	case r.ExpiresIn > 0:
		sess.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second).UTC()
	}
	return sess, nil
}

func (c *Client) grant(ctx context.Context, grantType string, body any) (domainauth.Session, error) {
	var resp tokenResponse
	err := c.do(ctx, c.authHTTP, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {grantType}},
		body:   body,
	}, &resp)
	if err != nil {
		return domainauth.Session{}, err
	}
	return resp.session(c.now())
}

// SignIn performs the password grant.
func (c *Client) SignIn(ctx context.Context, email, password string) (domainauth.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domainauth.Session{}, apperrors.Validation("email and password are required")
	}
	return c.grant(ctx, "password", map[string]string{"email": email, "password": password})
}

// Refresh performs the refresh-token grant.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (domainauth.Session, error) {
	if refreshToken == "" {
		return domainauth.Session{}, apperrors.Unauthorized("no refresh token")
	}
	return c.grant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

// SignOut revokes the session's refresh tokens. A token the server no longer knows
// counts as signed out.
func (c *Client) SignOut(ctx context.Context, sess domainauth.Session) error {
	if sess.AccessToken == "" {
		return nil
	}
	hc := c.bearerClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: sess.AccessToken, TokenType: "Bearer"}))
	err := c.do(ctx, hc, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		query:  url.Values{"scope": {"global"}},
	}, nil)
	if apperrors.IsUnauthorized(err) || apperrors.IsNotFound(err) {
		return nil
	}
	return err
}

// Probe checks the credentials with one request to the auth settings endpoint.
func (c *Client) Probe(ctx context.Context) error {
	return c.do(ctx, c.authHTTP, request{method: http.MethodGet, path: "/auth/v1/settings"}, nil)
}
