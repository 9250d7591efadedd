// Package supabase implements the backend ports against a Supabase project:
// GoTrue for authentication and PostgREST for the profiles table.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	"github.com/greenhands/greenhands-shell/internal/domain/connection"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
	"github.com/greenhands/greenhands-shell/internal/ports"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Options configures a Client.
type Options struct {
	Credentials connection.Credentials
	// Transport is the base round tripper; defaults to http.DefaultTransport.
	Transport http.RoundTripper
	Timeout   time.Duration
	Logger    *slog.Logger
	// Now is used to compute session expiry; defaults to time.Now.
	Now func() time.Time
}

// Client is a ports.Backend bound to one project URL and anon key.
type Client struct {
	baseURL    *url.URL
	anonKey    string
	sessionKey string
	timeout    time.Duration
	base       http.RoundTripper
	logger     *slog.Logger
	now        func() time.Time

	// auth calls always authenticate with the anon key.
	authHTTP *http.Client
	// rest calls carry the installed session's access token, or the anon key.
	restHTTP *http.Client
	tokens   *sessionTokenSource
	profiles *ProfileStore
}

var _ ports.Backend = (*Client)(nil)

// New validates the credentials and builds a client. It performs no I/O.
func New(opts Options) (*Client, error) {
	creds := opts.Credentials.Trimmed()
	u, err := ParseURL(creds.URL)
	if err != nil {
		return nil, err
	}
	if creds.Key == "" {
		return nil, apperrors.ValidationField("key", "anon key is required")
	}

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		baseURL:    u,
		anonKey:    creds.Key,
		sessionKey: sessionKeyFor(u),
		timeout:    timeout,
		base:       &apiKeyTransport{key: creds.Key, base: base},
		logger:     logger.With("component", "supabase", "host", u.Host),
		now:        now,
		tokens:     &sessionTokenSource{anonKey: creds.Key},
	}
	c.authHTTP = c.bearerClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Key, TokenType: "Bearer"}))
	c.restHTTP = c.bearerClient(c.tokens)
	c.profiles = &ProfileStore{c: c}
	return c, nil
}

// NewFactory returns a ports.BackendFactory producing clients that share transport settings.
func NewFactory(opts Options) ports.BackendFactory {
	return ports.BackendFactoryFunc(func(creds connection.Credentials) (ports.Backend, error) {
		o := opts
		o.Credentials = creds
		return New(o)
	})
}

// ParseURL checks that raw is an absolute http(s) URL and strips trailing slashes.
func ParseURL(raw string) (*url.URL, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return nil, apperrors.ValidationField("url", "backend URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, apperrors.ValidationField("url", fmt.Sprintf("invalid backend URL %q", raw))
	}
	return u, nil
}

// sessionKeyFor mirrors the storage key used by the Supabase client libraries.
func sessionKeyFor(u *url.URL) string {
	ref := strings.Split(u.Hostname(), ".")[0]
	return "sb-" + ref + "-auth-token"
}

// SessionKey implements ports.Backend.
func (c *Client) SessionKey() string { return c.sessionKey }

// URL returns the project URL.
func (c *Client) URL() string { return c.baseURL.String() }

// Profiles implements ports.Backend.
func (c *Client) Profiles() ports.ProfileRepository { return c.profiles }

// UseSession implements ports.Backend.
func (c *Client) UseSession(sess *domainauth.Session) {
	c.tokens.set(sess)
}

func (c *Client) bearerClient(src oauth2.TokenSource) *http.Client {
	return &http.Client{
		Timeout:   c.timeout,
		Transport: &oauth2.Transport{Source: src, Base: c.base},
	}
}

// apiKeyTransport adds the project's apikey header required by the API gateway.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("apikey", t.key)
	return t.base.RoundTrip(r)
}

// sessionTokenSource yields the installed session's access token, or the anon key.
// Refresh is owned by the auth gateway, so tokens carry no expiry here.
type sessionTokenSource struct {
	mu      sync.RWMutex
	anonKey string
	access  string
}

func (s *sessionTokenSource) set(sess *domainauth.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess == nil {
		s.access = ""
		return
	}
	s.access = sess.AccessToken
}

func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok := s.anonKey
	if s.access != "" {
		tok = s.access
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

// do sends req and decodes a 2xx JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, hc *http.Client, req request, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + req.path
	if req.query != nil {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		c.logger.DebugContext(ctx, "backend request failed", "method", req.method, "path", req.path, "error", err)
		return transportError(err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "backend request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return transportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(req.path, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "unexpected response from backend")
	}
	return nil
}
