package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/greenhands/greenhands-shell/internal/domain/connection"
	apperrors "github.com/greenhands/greenhands-shell/internal/errors"
	"github.com/greenhands/greenhands-shell/internal/observability/metrics"
	"github.com/greenhands/greenhands-shell/internal/ports"
)

// ErrNotConfigured is returned by Backend when no credentials are available.
var ErrNotConfigured = errors.New("backend not configured")

const notConfiguredMessage = "Backend URL and anon key are not configured. " +
	"Save them with `greenhands config set` or set SUPABASE_URL and SUPABASE_ANON_KEY."

// ConfigSources are where credentials are looked up, in order.
type ConfigSources struct {
	Storage  ports.LocalStorage   // Required: persisted device storage
	Fallback ports.FallbackConfig // Optional: configuration bundled with the build
}

// ConfigResolverOptions groups dependencies for ConfigResolver.
type ConfigResolverOptions struct {
	Sources   ConfigSources
	Factory   ports.BackendFactory // Required: builds backend clients without I/O
	Telemetry Telemetry
}

// ConfigResolver owns the resolved connection status and the backend handle derived from it.
// Both are replaced together: every change to the status bumps a version, and a cached
// handle is only served while its version is current.
type ConfigResolver struct {
	storage  ports.LocalStorage
	fallback ports.FallbackConfig
	factory  ports.BackendFactory
	logger   *slog.Logger
	metrics  *metrics.Recorder

	mu            sync.RWMutex
	resolved      bool
	status        connection.Status
	version       uint64
	handle        ports.Backend
	handleVersion uint64

	builds singleflight.Group
}

// NewConfigResolver constructs a ConfigResolver. The status is unknown until Resolve runs.
func NewConfigResolver(opts ConfigResolverOptions) *ConfigResolver {
	if opts.Sources.Storage == nil {
		panic("ConfigResolver requires Storage")
	}
	if opts.Factory == nil {
		panic("ConfigResolver requires Factory")
	}
	return &ConfigResolver{
		storage:  opts.Sources.Storage,
		fallback: opts.Sources.Fallback,
		factory:  opts.Factory,
		logger:   opts.Telemetry.logger("config_resolver"),
		metrics:  opts.Telemetry.Metrics,
	}
}

// Status returns the last resolved status and whether resolution has happened yet.
func (r *ConfigResolver) Status() (connection.Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status, r.resolved
}

// Version returns the current configuration version.
func (r *ConfigResolver) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Resolve looks for credentials in storage, then in the bundled configuration.
// It never fails: a storage read error is logged and treated as empty storage.
func (r *ConfigResolver) Resolve(ctx context.Context) connection.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	creds, found := r.readStorage(ctx)
	var next connection.Status
	switch {
	case found:
		next = connection.ConfiguredFrom(connection.SourceStorage, creds)
		r.version++
	default:
		next = r.readFallback()
		if next != r.status {
			r.version++
		}
	}

	r.status = next
	r.resolved = true
	r.metrics.ConfigOp("resolve", nil)
	r.logger.DebugContext(ctx, "configuration resolved", "status", next, "version", r.version)
	return next
}

func (r *ConfigResolver) readStorage(ctx context.Context) (connection.Credentials, bool) {
	url, okURL, err := r.storage.Get(ctx, connection.StorageKeyURL)
	if err != nil {
		r.logger.WarnContext(ctx, "read stored backend url", "error", err)
		r.metrics.Error("config_resolver", err)
		return connection.Credentials{}, false
	}
	key, okKey, err := r.storage.Get(ctx, connection.StorageKeyAnonKey)
	if err != nil {
		r.logger.WarnContext(ctx, "read stored anon key", "error", err)
		r.metrics.Error("config_resolver", err)
		return connection.Credentials{}, false
	}
	creds := connection.Credentials{URL: url, Key: key}.Trimmed()
	if okURL != okKey || (okURL && !creds.Complete()) {
		r.logger.WarnContext(ctx, "stored backend credentials incomplete, ignoring them")
	}
	return creds, okURL && okKey && creds.Complete()
}

func (r *ConfigResolver) readFallback() connection.Status {
	if r.fallback == nil {
		return connection.NotConfigured(notConfiguredMessage)
	}
	url, _ := r.fallback.Lookup(connection.StorageKeyURL)
	key, _ := r.fallback.Lookup(connection.StorageKeyAnonKey)
	creds := connection.Credentials{URL: url, Key: key}.Trimmed()
	if !creds.Complete() {
		return connection.NotConfigured(notConfiguredMessage)
	}
	return connection.ConfiguredFrom(connection.SourceBundled, creds)
}

// Validate builds a throwaway client for creds and performs one probe round trip.
// Persisted state is never touched.
func (r *ConfigResolver) Validate(ctx context.Context, creds connection.Credentials) (err error) {
	defer func() { r.metrics.ConfigOp("validate", err) }()

	creds = creds.Trimmed()
	if !creds.Complete() {
		return apperrors.Validation("Both the backend URL and the anon key are required.")
	}
	b, err := r.factory.New(creds)
	if err != nil {
		return err
	}
	if err := b.Probe(ctx); err != nil {
		r.logger.InfoContext(ctx, "candidate configuration rejected", "credentials", creds, "error", err)
		return err
	}
	return nil
}

// Persist stores creds and makes them the active configuration. The write lock is held
// across the storage write and the status swap so no reader sees a mixed pair.
func (r *ConfigResolver) Persist(ctx context.Context, creds connection.Credentials) (err error) {
	defer func() { r.metrics.ConfigOp("persist", err) }()

	creds = creds.Trimmed()
	if !creds.Complete() {
		return apperrors.Validation("Both the backend URL and the anon key are required.")
	}
	// Reject values no client could be built from.
	if _, err := r.factory.New(creds); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.storage.SetMany(ctx, map[string]string{
		connection.StorageKeyURL:     creds.URL,
		connection.StorageKeyAnonKey: creds.Key,
	}); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Could not save the configuration.")
	}
	r.swapLocked(connection.ConfiguredFrom(connection.SourceStorage, creds))
	r.logger.InfoContext(ctx, "configuration saved", "credentials", creds, "version", r.version)
	return nil
}

// Clear removes the stored credentials and marks the backend not configured.
func (r *ConfigResolver) Clear(ctx context.Context) (err error) {
	defer func() { r.metrics.ConfigOp("clear", err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.storage.Remove(ctx, connection.StorageKeyURL, connection.StorageKeyAnonKey); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Could not reset the configuration.")
	}
	r.swapLocked(connection.NotConfigured(notConfiguredMessage))
	r.logger.InfoContext(ctx, "configuration cleared", "version", r.version)
	return nil
}

func (r *ConfigResolver) swapLocked(next connection.Status) {
	r.status = next
	r.resolved = true
	r.version++
	r.handle = nil
}

// Backend returns the client for the active configuration, building it on first use
// after each change. Concurrent first calls share one build.
func (r *ConfigResolver) Backend(ctx context.Context) (ports.Backend, error) {
	r.mu.RLock()
	resolved := r.resolved
	r.mu.RUnlock()
	if !resolved {
		r.Resolve(ctx)
	}

	r.mu.RLock()
	if !r.status.Configured {
		r.mu.RUnlock()
		return nil, ErrNotConfigured
	}
	if r.handle != nil && r.handleVersion == r.version {
		h := r.handle
		r.mu.RUnlock()
		return h, nil
	}
	creds, version := r.status.Credentials, r.version
	r.mu.RUnlock()

	v, err, _ := r.builds.Do(strconv.FormatUint(version, 10), func() (any, error) {
		b, err := r.factory.New(creds)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		// A change landed while building: hand this client to its callers but do not cache it.
		if r.version == version {
			r.handle = b
			r.handleVersion = version
		}
		return b, nil
	})
	if err != nil {
		r.metrics.Error("config_resolver", err)
		return nil, err
	}
	return v.(ports.Backend), nil
}
