// Package auth contains simple hand-written test doubles for the shell ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/greenhands/greenhands-shell/internal/domain/auth"
	"github.com/greenhands/greenhands-shell/internal/domain/connection"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
	"github.com/greenhands/greenhands-shell/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.LocalStorage      = (*MemoryStorage)(nil)
	_ ports.ProfileRepository = (*MemoryProfiles)(nil)
	_ ports.LeaderPromoter    = (*AtomicProfiles)(nil)
	_ ports.Backend           = (*FakeBackend)(nil)
)

// MemoryStorage is an in-memory LocalStorage. The *Err fields force failures.
type MemoryStorage struct {
	mu        sync.Mutex
	values    map[string]string
	GetErr    error
	SetErr    error
	RemoveErr error
}

// NewMemoryStorage creates a MemoryStorage seeded with values.
func NewMemoryStorage(values map[string]string) *MemoryStorage {
	m := &MemoryStorage{values: make(map[string]string)}
	maps.Copy(m.values, values)
	return m
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) SetMany(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	maps.Copy(m.values, values)
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Values returns a copy of the stored values.
func (m *MemoryStorage) Values() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.values)
}

// MemoryProfiles is an in-memory ProfileRepository without atomic promotion,
// behaving like the REST profile store.
type MemoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]auth.Profile

	// GetFunc overrides GetByID when set.
	GetFunc func(ctx context.Context, id string) (auth.Profile, error)
	// OnList runs after ListByRoles computed its result and before it returns.
	OnList    func()
	ListErr   error
	UpdateErr error
	updates   int
}

// NewMemoryProfiles creates a repository holding profiles.
func NewMemoryProfiles(profiles ...auth.Profile) *MemoryProfiles {
	m := &MemoryProfiles{profiles: make(map[string]auth.Profile)}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *MemoryProfiles) GetByID(ctx context.Context, id string) (auth.Profile, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return auth.Profile{}, apperrors.NotFoundf("profile %s not found", id)
	}
	return p, nil
}

func (m *MemoryProfiles) Update(_ context.Context, id string, upd auth.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return apperrors.NotFoundf("profile %s not found", id)
	}
	m.profiles[id] = applyUpdate(p, upd)
	m.updates++
	return nil
}

func applyUpdate(p auth.Profile, upd auth.ProfileUpdate) auth.Profile {
	if upd.Role != nil {
		p.Role = *upd.Role
	}
	if upd.Approved != nil {
		p.Approved = *upd.Approved
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	return p
}

func (m *MemoryProfiles) ListByRoles(_ context.Context, roles []auth.Role, limit int) ([]auth.Profile, error) {
	m.mu.Lock()
	if m.ListErr != nil {
		m.mu.Unlock()
		return nil, m.ListErr
	}
	out := m.byRolesLocked(roles, limit)
	onList := m.OnList
	m.mu.Unlock()

	if onList != nil {
		onList()
	}
	return out, nil
}

func (m *MemoryProfiles) byRolesLocked(roles []auth.Role, limit int) []auth.Profile {
	var out []auth.Profile
	for _, p := range m.profiles {
		if slices.Contains(roles, p.Role) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b auth.Profile) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Put inserts or replaces a profile.
func (m *MemoryProfiles) Put(p auth.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

// Profile returns the stored profile for id.
func (m *MemoryProfiles) Profile(id string) (auth.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	return p, ok
}

// Updates returns how many updates were applied.
func (m *MemoryProfiles) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

// Leaders returns the ids of every team_leader or admin.
func (m *MemoryProfiles) Leaders() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, p := range m.byRolesLocked(auth.LeaderRoles, 0) {
		ids = append(ids, p.ID)
	}
	return ids
}

// AtomicProfiles adds check-and-promote as one step, like the Postgres repository.
type AtomicProfiles struct {
	*MemoryProfiles
}

func (a AtomicProfiles) PromoteIfNoLeader(_ context.Context, id string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.UpdateErr != nil {
		return false, a.UpdateErr
	}
	if len(a.byRolesLocked(auth.LeaderRoles, 1)) > 0 {
		return false, nil
	}
	p, ok := a.profiles[id]
	if !ok {
		return false, nil
	}
	a.profiles[id] = applyUpdate(p, auth.LeaderPromotion())
	a.updates++
	return true, nil
}

// NewSession builds a session for userID expiring at exp.
func NewSession(userID string, exp time.Time) auth.Session {
	return auth.Session{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		TokenType:    "bearer",
		ExpiresAt:    exp,
		User:         auth.User{ID: userID, Email: userID + "@example.com"},
	}
}

// FakeBackend is a scriptable ports.Backend. Unset funcs succeed with defaults.
type FakeBackend struct {
	Creds connection.Credentials
	Repo  ports.ProfileRepository

	SignInFunc  func(ctx context.Context, email, password string) (auth.Session, error)
	RefreshFunc func(ctx context.Context, refreshToken string) (auth.Session, error)
	SignOutFunc func(ctx context.Context, sess auth.Session) error
	ProbeFunc   func(ctx context.Context) error

	mu           sync.Mutex
	installed    *auth.Session
	signOutCalls int
	refreshCalls int
}

// NewFakeBackend creates a FakeBackend for creds serving repo.
func NewFakeBackend(creds connection.Credentials, repo ports.ProfileRepository) *FakeBackend {
	return &FakeBackend{Creds: creds, Repo: repo}
}

func (f *FakeBackend) SignIn(ctx context.Context, email, password string) (auth.Session, error) {
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, email, password)
	}
	if email == "" || password == "" {
		return auth.Session{}, apperrors.Validation("Email and password are required.")
	}
	return NewSession("user-"+email, time.Now().Add(time.Hour)), nil
}

func (f *FakeBackend) Refresh(ctx context.Context, refreshToken string) (auth.Session, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	if f.RefreshFunc != nil {
		return f.RefreshFunc(ctx, refreshToken)
	}
	return auth.Session{}, apperrors.Unauthorized("Invalid Refresh Token")
}

func (f *FakeBackend) SignOut(ctx context.Context, sess auth.Session) error {
	f.mu.Lock()
	f.signOutCalls++
	f.mu.Unlock()
	if f.SignOutFunc != nil {
		return f.SignOutFunc(ctx, sess)
	}
	return nil
}

func (f *FakeBackend) Probe(ctx context.Context) error {
	if f.ProbeFunc != nil {
		return f.ProbeFunc(ctx)
	}
	return nil
}

func (f *FakeBackend) Profiles() ports.ProfileRepository { return f.Repo }

func (f *FakeBackend) UseSession(sess *auth.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sess == nil {
		f.installed = nil
		return
	}
	cp := *sess
	f.installed = &cp
}

func (f *FakeBackend) SessionKey() string { return "sb-fake-auth-token" }

func (f *FakeBackend) URL() string { return f.Creds.URL }

// Installed returns the session installed with UseSession.
func (f *FakeBackend) Installed() *auth.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.installed
}

// SignOutCalls returns how many remote sign-outs were attempted.
func (f *FakeBackend) SignOutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutCalls
}

// RefreshCalls returns how many refreshes were attempted.
func (f *FakeBackend) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// StaticBackends always hands out the same backend, or Err.
type StaticBackends struct {
	Handle ports.Backend
	Err    error
}

// Backend implements service.BackendSource.
func (s StaticBackends) Backend(context.Context) (ports.Backend, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Handle, nil
}

// FixedVerifier returns Claims or Err for every token.
type FixedVerifier struct {
	Claims auth.TokenClaims
	Err    error
}

// Verify implements ports.TokenVerifier.
func (v FixedVerifier) Verify(context.Context, string) (auth.TokenClaims, error) {
	return v.Claims, v.Err
}
