package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/greenhands/greenhands-shell/config"
	"github.com/greenhands/greenhands-shell/internal/adapters/bundled"
	"github.com/greenhands/greenhands-shell/internal/adapters/supabase"
	"github.com/greenhands/greenhands-shell/internal/adapters/tokens"
	"github.com/greenhands/greenhands-shell/internal/domain/routing"
	"github.com/greenhands/greenhands-shell/internal/observability/metrics"
	"github.com/greenhands/greenhands-shell/internal/ports"
	"github.com/greenhands/greenhands-shell/internal/service"
)

// ShellDeps are the infrastructure pieces a Shell is assembled from.
type ShellDeps struct {
	Config  config.AppConfig
	Storage ports.LocalStorage
	// Factory defaults to the Supabase client factory.
	Factory ports.BackendFactory
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// Shell holds the wired core services of one process.
type Shell struct {
	Config    config.AppConfig
	Resolver  *service.ConfigResolver
	Auth      *service.AuthService
	Sessions  *service.SessionManager
	Bootstrap *service.LeaderBootstrapper
	Router    *service.StartupRouter
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
}

// NewShell wires the services. Nothing touches the network until Start.
func NewShell(deps ShellDeps) *Shell {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	tel := service.Telemetry{Logger: logger, Metrics: deps.Metrics}

	factory := deps.Factory
	if factory == nil {
		factory = supabase.NewFactory(supabase.Options{Timeout: cfg.Backend.Timeout, Logger: logger})
	}

	resolver := service.NewConfigResolver(service.ConfigResolverOptions{
		Sources: service.ConfigSources{
			Storage:  deps.Storage,
			Fallback: bundled.FromBackend(cfg.Backend),
		},
		Factory:   factory,
		Telemetry: tel,
	})

	auth := service.NewAuthService(service.AuthServiceOptions{
		Backends: resolver,
		Storage:  deps.Storage,
		Settings: service.AuthSettings{
			RefreshMargin: cfg.Session.RefreshMargin,
			Verifiers:     verifierFactory(cfg),
		},
		Telemetry: tel,
	})
	sessions := service.NewSessionManager(service.SessionManagerOptions{Gateway: auth, Telemetry: tel})
	boot := service.NewLeaderBootstrapper(service.LeaderBootstrapperOptions{Profiles: auth, Telemetry: tel})
	router := service.NewStartupRouter(service.StartupRouterOptions{
		Sessions:     sessions,
		Bootstrapper: boot,
		Telemetry:    tel,
	})

	return &Shell{
		Config:    cfg,
		Resolver:  resolver,
		Auth:      auth,
		Sessions:  sessions,
		Bootstrap: boot,
		Router:    router,
		Metrics:   deps.Metrics,
		Logger:    logger,
	}
}

// verifierFactory returns nil when tokens are not verified. An unset mode counts as none.
func verifierFactory(cfg config.AppConfig) service.VerifierFactory {
	switch cfg.Tokens.Mode {
	case "", config.TokenVerificationNone:
		return nil
	}
	hc := &http.Client{Timeout: cfg.Backend.Timeout}
	return func(backendURL string) (ports.TokenVerifier, error) {
		return tokens.FromConfig(cfg.Tokens, backendURL, hc)
	}
}

// Start resolves the configuration and restores the persisted session.
func (s *Shell) Start(ctx context.Context) error {
	st := s.Resolver.Resolve(ctx)
	if !st.Configured {
		s.Logger.WarnContext(ctx, "backend not configured", "status", st)
	}
	return s.Auth.Restore(ctx)
}

// Run starts the session loop, the auto-refresh loop and the router loop, then Start.
// It returns when ctx is done or a loop fails.
func (s *Shell) Run(ctx context.Context, onDecision func(routing.Outcome)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Sessions.Run(ctx) })
	g.Go(func() error { return s.Router.Run(ctx, onDecision) })
	if s.Config.Session.AutoRefresh {
		g.Go(func() error { return s.Auth.RunAutoRefresh(ctx) })
	}
	g.Go(func() error {
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("start shell: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.Auth.Close()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
