package service

import (
	"context"
	"log/slog"
	"sync"

	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
	"github.com/greenhands/greenhands-shell/internal/observability/metrics"
	"github.com/greenhands/greenhands-shell/internal/ports"
)

// ProfileSource returns the profile store reachable with the current session.
type ProfileSource interface {
	Profiles(ctx context.Context) (ports.ProfileRepository, error)
}

// SessionGateway is what the SessionManager needs from the auth gateway.
type SessionGateway interface {
	ProfileSource
	Events() <-chan domainauth.SessionEvent
	SignOut(ctx context.Context) error
}

// SessionState is a snapshot of the SessionManager.
type SessionState struct {
	Session *domainauth.Session
	Profile *domainauth.Profile
	// Loading is true until the first event arrives and while a profile load is in flight.
	Loading bool
	// Ready is true once the initial session event was handled.
	Ready      bool
	Generation uint64
}

// UserID returns the user of the session, or "".
func (s SessionState) UserID() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.UserID()
}

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Gateway   SessionGateway // Required
	Telemetry Telemetry
}

// SessionManager follows session events and keeps the signed-in user's profile loaded.
// Profile loads are tagged with a generation; a result whose generation is no longer current
// is discarded.
type SessionManager struct {
	gateway SessionGateway
	events  <-chan domainauth.SessionEvent
	logger  *slog.Logger
	metrics *metrics.Recorder

	mu    sync.Mutex
	state SessionState
	subs  []chan SessionState
	// changed is closed and replaced on every state change.
	changed chan struct{}
}

// NewSessionManager subscribes to the gateway's events immediately so none are missed
// between construction and Run.
func NewSessionManager(opts SessionManagerOptions) *SessionManager {
	if opts.Gateway == nil {
		panic("SessionManager requires Gateway")
	}
	return &SessionManager{
		gateway: opts.Gateway,
		events:  opts.Gateway.Events(),
		logger:  opts.Telemetry.logger("session_manager"),
		metrics: opts.Telemetry.Metrics,
		state:   SessionState{Loading: true},
		changed: make(chan struct{}),
	}
}

// Run consumes session events in order until ctx is done.
func (m *SessionManager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.events:
			m.handle(ctx, ev)
		}
	}
}

func (m *SessionManager) handle(ctx context.Context, ev domainauth.SessionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Generation++
	m.state.Ready = true
	gen := m.state.Generation
	m.logger.DebugContext(ctx, "session event", "event", ev.Type, "generation", gen)

	if ev.Session == nil {
		m.state.Session = nil
		m.state.Profile = nil
		m.state.Loading = false
		m.publishLocked()
		return
	}

	sess := *ev.Session
	m.state.Session = &sess
	if m.state.Profile != nil && m.state.Profile.ID != sess.UserID() {
		m.state.Profile = nil
	}
	m.state.Loading = true
	m.publishLocked()
	go m.load(context.WithoutCancel(ctx), gen, sess.UserID())
}

func (m *SessionManager) load(ctx context.Context, gen uint64, userID string) {
	profile, err := m.fetch(ctx, userID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.state.Generation {
		m.logger.DebugContext(ctx, "discarding stale profile load", "user_id", userID, "generation", gen, "current", m.state.Generation)
		m.metrics.ProfileLoad(metrics.LoadDiscarded)
		return
	}

	switch {
	case err == nil:
		m.state.Profile = &profile
		m.metrics.ProfileLoad(metrics.LoadOK)
	case apperrors.IsNotFound(err):
		m.logger.WarnContext(ctx, "signed-in user has no profile", "user_id", userID)
		m.state.Profile = nil
		m.metrics.ProfileLoad(metrics.LoadNotFound)
	default:
		m.logger.ErrorContext(ctx, "load profile", "user_id", userID, "error", err)
		m.state.Profile = nil
		m.metrics.ProfileLoad(metrics.LoadError)
		m.metrics.Error("session_manager", err)
	}
	m.state.Loading = false
	m.publishLocked()
}

func (m *SessionManager) fetch(ctx context.Context, userID string) (domainauth.Profile, error) {
	repo, err := m.gateway.Profiles(ctx)
	if err != nil {
		return domainauth.Profile{}, err
	}
	return repo.GetByID(ctx, userID)
}

// SignOut signs out through the gateway and clears local state whatever the outcome.
func (m *SessionManager) SignOut(ctx context.Context) error {
	err := m.gateway.SignOut(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Generation++
	m.state.Session = nil
	m.state.Profile = nil
	m.state.Loading = false
	m.publishLocked()
	return err
}

// RefreshProfile reloads the current user's profile. Without a session it does nothing.
func (m *SessionManager) RefreshProfile(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Session == nil {
		return
	}
	m.state.Generation++
	m.state.Loading = true
	gen, userID := m.state.Generation, m.state.Session.UserID()
	m.publishLocked()
	go m.load(context.WithoutCancel(ctx), gen, userID)
}

// Snapshot returns the current state without blocking on I/O.
func (m *SessionManager) Snapshot() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *SessionManager) snapshotLocked() SessionState {
	st := m.state
	if st.Session != nil {
		cp := *st.Session
		st.Session = &cp
	}
	if st.Profile != nil {
		cp := *st.Profile
		st.Profile = &cp
	}
	return st
}

// CurrentSession returns the last known session.
func (m *SessionManager) CurrentSession() *domainauth.Session { return m.Snapshot().Session }

// CurrentProfile returns the last known profile.
func (m *SessionManager) CurrentProfile() *domainauth.Profile { return m.Snapshot().Profile }

// Loading reports whether state is still settling.
func (m *SessionManager) Loading() bool { return m.Snapshot().Loading }

// Subscribe returns a channel holding the latest state. A slow reader only misses
// intermediate states, never the last one.
func (m *SessionManager) Subscribe() <-chan SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan SessionState, 1)
	ch <- m.snapshotLocked()
	m.subs = append(m.subs, ch)
	return ch
}

func (m *SessionManager) publishLocked() {
	st := m.snapshotLocked()
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
	close(m.changed)
	m.changed = make(chan struct{})
}

// WaitSettled blocks until the initial event was handled and no profile load is in flight.
func (m *SessionManager) WaitSettled(ctx context.Context) (SessionState, error) {
	for {
		m.mu.Lock()
		st := m.snapshotLocked()
		changed := m.changed
		m.mu.Unlock()
		if st.Ready && !st.Loading {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-changed:
		}
	}
}
