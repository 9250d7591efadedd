package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
	"github.com/greenhands/greenhands-shell/internal/observability/metrics"
	"github.com/greenhands/greenhands-shell/internal/ports"
)

const (
	defaultRefreshMargin = time.Minute
	defaultEventBuffer   = 16
	// idleRefreshPoll is how often the refresh loop looks for a new session.
	idleRefreshPoll = 30 * time.Second
	// refreshRetryDelay is the wait after a refresh that failed for a transient reason.
	refreshRetryDelay = 5 * time.Second
)

// BackendSource hands out the client for the active configuration.
type BackendSource interface {
	Backend(ctx context.Context) (ports.Backend, error)
}

// VerifierFactory returns the token verifier for a project URL; a nil verifier disables verification.
type VerifierFactory func(backendURL string) (ports.TokenVerifier, error)

// AuthSettings tunes AuthService.
type AuthSettings struct {
	RefreshMargin time.Duration    // Optional: refresh this long before expiry (default 1m)
	Verifiers     VerifierFactory  // Optional: nil skips access-token verification
	Now           func() time.Time // Optional: clock override for tests
	EventBuffer   int              // Optional: session event channel capacity (default 16)
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Backends  BackendSource      // Required
	Storage   ports.LocalStorage // Required: where the session is persisted
	Settings  AuthSettings
	Telemetry Telemetry
}

// AuthService owns the device session. Every change to it is published, in order, on the
// channel returned by Events.
type AuthService struct {
	backends BackendSource
	storage  ports.LocalStorage
	margin   time.Duration
	now      func() time.Time
	buffer   int
	logger   *slog.Logger
	metrics  *metrics.Recorder

	newVerifier VerifierFactory
	verifierMu  sync.Mutex
	verifiers   map[string]ports.TokenVerifier

	// mu is held across a state change and the matching event send.
	mu      sync.Mutex
	session *domainauth.Session
	events  chan domainauth.SessionEvent

	done      chan struct{}
	closeOnce sync.Once
}

// NewAuthService constructs an AuthService with no session.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Backends == nil {
		panic("AuthService requires Backends")
	}
	if opts.Storage == nil {
		panic("AuthService requires Storage")
	}
	s := &AuthService{
		backends:    opts.Backends,
		storage:     opts.Storage,
		margin:      opts.Settings.RefreshMargin,
		now:         opts.Settings.Now,
		buffer:      opts.Settings.EventBuffer,
		newVerifier: opts.Settings.Verifiers,
		verifiers:   make(map[string]ports.TokenVerifier),
		logger:      opts.Telemetry.logger("auth"),
		metrics:     opts.Telemetry.Metrics,
		done:        make(chan struct{}),
	}
	if s.margin <= 0 {
		s.margin = defaultRefreshMargin
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.buffer <= 0 {
		s.buffer = defaultEventBuffer
	}
	return s
}

// Events returns the session-change channel. Events emitted before the first call are dropped;
// the channel is never closed, a consumer stops on its own context.
func (s *AuthService) Events() <-chan domainauth.SessionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		s.events = make(chan domainauth.SessionEvent, s.buffer)
	}
	return s.events
}

// Close releases any sender blocked on a full channel. Later events are dropped.
func (s *AuthService) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// emitLocked must be called with mu held.
func (s *AuthService) emitLocked(typ domainauth.SessionEventType) {
	s.metrics.SessionEvent(string(typ))
	if s.events == nil {
		return
	}
	ev := domainauth.SessionEvent{Type: typ}
	if s.session != nil {
		cp := *s.session
		ev.Session = &cp
	}
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// CurrentSession returns a copy of the session, or nil when signed out.
func (s *AuthService) CurrentSession() *domainauth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

// Restore loads the persisted session and emits INITIAL_SESSION, with or without a session.
// An unconfigured backend is not an error.
func (s *AuthService) Restore(ctx context.Context) error {
	b, err := s.backends.Backend(ctx)
	if err != nil {
		s.mu.Lock()
		s.session = nil
		s.emitLocked(domainauth.EventInitialSession)
		s.mu.Unlock()
		if errors.Is(err, ErrNotConfigured) {
			s.logger.InfoContext(ctx, "backend not configured, starting signed out")
			return nil
		}
		return fmt.Errorf("restore session: %w", err)
	}

	sess := s.loadStored(ctx, b)
	if sess != nil && sess.ExpiresWithin(s.now(), s.margin) {
		refreshed, err := b.Refresh(ctx, sess.RefreshToken)
		switch {
		case err == nil:
			sess = &refreshed
			if err := s.save(ctx, b, refreshed); err != nil {
				s.logger.WarnContext(ctx, "persist refreshed session", "error", err)
			}
		case apperrors.IsUnauthorized(err):
			s.logger.InfoContext(ctx, "stored session rejected, starting signed out", "user_id", sess.UserID())
			if err := s.storage.Remove(ctx, b.SessionKey()); err != nil {
				s.logger.WarnContext(ctx, "remove rejected session", "error", err)
			}
			sess = nil
		default:
			// Keep the session; the refresh loop retries.
			s.logger.WarnContext(ctx, "refresh stored session", "user_id", sess.UserID(), "error", err)
			s.metrics.Error("auth", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
	b.UseSession(sess)
	s.emitLocked(domainauth.EventInitialSession)
	return nil
}

func (s *AuthService) loadStored(ctx context.Context, b ports.Backend) *domainauth.Session {
	raw, ok, err := s.storage.Get(ctx, b.SessionKey())
	if err != nil {
		s.logger.WarnContext(ctx, "read stored session", "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var sess domainauth.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.AccessToken == "" || sess.UserID() == "" {
		s.logger.WarnContext(ctx, "discarding unreadable stored session", "error", err)
		if err := s.storage.Remove(ctx, b.SessionKey()); err != nil {
			s.logger.WarnContext(ctx, "remove unreadable session", "error", err)
		}
		return nil
	}
	return &sess
}

func (s *AuthService) save(ctx context.Context, b ports.Backend, sess domainauth.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.storage.SetMany(ctx, map[string]string{b.SessionKey(): string(raw)})
}

// SignIn exchanges email and password for a session and emits SIGNED_IN.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (domainauth.Session, error) {
	b, err := s.backends.Backend(ctx)
	if err != nil {
		return domainauth.Session{}, err
	}
	sess, err := b.SignIn(ctx, email, password)
	if err != nil {
		return domainauth.Session{}, err
	}
	if err := s.verify(ctx, b.URL(), sess); err != nil {
		return domainauth.Session{}, err
	}
	if err := s.save(ctx, b, sess); err != nil {
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Could not save the session on this device.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &sess
	b.UseSession(&sess)
	s.emitLocked(domainauth.EventSignedIn)
	s.logger.InfoContext(ctx, "signed in", "user_id", sess.UserID())
	return sess, nil
}

// SignOut revokes the session remotely, forgets it locally and always emits SIGNED_OUT.
// The returned error reports what could not be done; the device is signed out regardless.
func (s *AuthService) SignOut(ctx context.Context) error {
	cur := s.CurrentSession()

	var errs []error
	b, err := s.backends.Backend(ctx)
	if err != nil && !errors.Is(err, ErrNotConfigured) {
		errs = append(errs, err)
	}
	if b != nil {
		if cur != nil {
			if err := b.SignOut(ctx, *cur); err != nil {
				s.logger.WarnContext(ctx, "remote sign-out failed", "user_id", cur.UserID(), "error", err)
				errs = append(errs, err)
			}
		}
		if err := s.storage.Remove(ctx, b.SessionKey()); err != nil {
			errs = append(errs, fmt.Errorf("remove stored session: %w", err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	if b != nil {
		b.UseSession(nil)
	}
	s.emitLocked(domainauth.EventSignedOut)
	if cur != nil {
		s.logger.InfoContext(ctx, "signed out", "user_id", cur.UserID())
	}
	return errors.Join(errs...)
}

// Refresh exchanges the refresh token for a new session and emits TOKEN_REFRESHED.
// A rejected refresh token signs the device out. Without a session it does nothing.
func (s *AuthService) Refresh(ctx context.Context) error {
	cur := s.CurrentSession()
	if cur == nil {
		return nil
	}
	b, err := s.backends.Backend(ctx)
	if err != nil {
		return err
	}
	next, err := b.Refresh(ctx, cur.RefreshToken)
	if err != nil {
		if apperrors.IsUnauthorized(err) {
			s.logger.InfoContext(ctx, "refresh token rejected, signing out", "user_id", cur.UserID())
			s.signOutLocal(ctx, b, cur.RefreshToken)
		}
		return err
	}
	if err := s.verify(ctx, b.URL(), next); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A sign-out or another refresh won the race.
	if s.session == nil || s.session.RefreshToken != cur.RefreshToken {
		return nil
	}
	if err := s.save(ctx, b, next); err != nil {
		s.logger.WarnContext(ctx, "persist refreshed session", "error", err)
	}
	s.session = &next
	b.UseSession(&next)
	s.emitLocked(domainauth.EventTokenRefreshed)
	s.logger.DebugContext(ctx, "session refreshed", "user_id", next.UserID(), "expires_at", next.ExpiresAt)
	return nil
}

func (s *AuthService) signOutLocal(ctx context.Context, b ports.Backend, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.RefreshToken != refreshToken {
		return
	}
	if err := s.storage.Remove(ctx, b.SessionKey()); err != nil {
		s.logger.WarnContext(ctx, "remove stored session", "error", err)
	}
	s.session = nil
	b.UseSession(nil)
	s.emitLocked(domainauth.EventSignedOut)
}

// RunAutoRefresh refreshes the session shortly before it expires until ctx is done.
func (s *AuthService) RunAutoRefresh(ctx context.Context) error {
	wait := s.untilRefresh()
	for {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		cur := s.CurrentSession()
		if cur == nil || !cur.ExpiresWithin(s.now(), s.margin) {
			wait = s.untilRefresh()
			continue
		}
		if err := s.Refresh(ctx); err != nil && !apperrors.IsUnauthorized(err) {
			s.logger.WarnContext(ctx, "automatic refresh failed", "error", err)
			s.metrics.Error("auth", err)
			wait = refreshRetryDelay
			continue
		}
		wait = s.untilRefresh()
	}
}

func (s *AuthService) untilRefresh() time.Duration {
	cur := s.CurrentSession()
	if cur == nil || cur.ExpiresAt.IsZero() {
		return idleRefreshPoll
	}
	d := cur.ExpiresAt.Add(-s.margin).Sub(s.now())
	if d < 0 {
		return 0
	}
	return min(d, idleRefreshPoll)
}

// Profiles returns the profile store of the active backend running as the current user.
func (s *AuthService) Profiles(ctx context.Context) (ports.ProfileRepository, error) {
	b, err := s.backends.Backend(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	b.UseSession(s.session)
	s.mu.Unlock()
	return b.Profiles(), nil
}

func (s *AuthService) verify(ctx context.Context, backendURL string, sess domainauth.Session) error {
	v, err := s.verifierFor(backendURL)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Token verification is misconfigured.")
	}
	if v == nil {
		return nil
	}
	claims, err := v.Verify(ctx, sess.AccessToken)
	if err != nil {
		s.metrics.Error("auth", err)
		return apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "The access token could not be verified.")
	}
	if claims.Subject != sess.UserID() {
		return apperrors.Unauthorized("The access token does not belong to the signed-in user.")
	}
	return nil
}

func (s *AuthService) verifierFor(backendURL string) (ports.TokenVerifier, error) {
	if s.newVerifier == nil {
		return nil, nil
	}
	s.verifierMu.Lock()
	defer s.verifierMu.Unlock()
	if v, ok := s.verifiers[backendURL]; ok {
		return v, nil
	}
	v, err := s.newVerifier(backendURL)
	if err != nil {
		return nil, err
	}
	s.verifiers[backendURL] = v
	return v, nil
}
