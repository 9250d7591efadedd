package service

import (
	"context"
	"log/slog"

	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	"github.com/greenhands/greenhands-shell/internal/observability/metrics"
	"github.com/greenhands/greenhands-shell/internal/ports"
)

// StaticProfiles serves a fixed repository, for callers that hold one directly.
type StaticProfiles struct {
	Repo ports.ProfileRepository
}

// Profiles implements ProfileSource.
func (s StaticProfiles) Profiles(context.Context) (ports.ProfileRepository, error) {
	return s.Repo, nil
}

// LeaderBootstrapperOptions groups dependencies for LeaderBootstrapper.
type LeaderBootstrapperOptions struct {
	Profiles  ProfileSource // Required
	Telemetry Telemetry
}

// LeaderBootstrapper promotes the first registered user to team leader when the fleet has
// no leader or admin yet.
type LeaderBootstrapper struct {
	profiles ProfileSource
	logger   *slog.Logger
	metrics  *metrics.Recorder
}

// NewLeaderBootstrapper constructs a LeaderBootstrapper.
func NewLeaderBootstrapper(opts LeaderBootstrapperOptions) *LeaderBootstrapper {
	if opts.Profiles == nil {
		panic("LeaderBootstrapper requires Profiles")
	}
	return &LeaderBootstrapper{
		profiles: opts.Profiles,
		logger:   opts.Telemetry.logger("bootstrap"),
		metrics:  opts.Telemetry.Metrics,
	}
}

// BootstrapResult is the outcome of one first-leader check.
type BootstrapResult string

const (
	BootstrapPromoted     BootstrapResult = metrics.BootstrapPromoted
	BootstrapLeaderExists BootstrapResult = metrics.BootstrapLeaderExists
	BootstrapFailed       BootstrapResult = metrics.BootstrapFailed
)

// Bootstrap reports whether userID was promoted. Failures are logged and reported as false.
func (b *LeaderBootstrapper) Bootstrap(ctx context.Context, userID string) bool {
	return b.Attempt(ctx, userID) == BootstrapPromoted
}

// Attempt runs the first-leader check for userID. Errors are logged and reported as
// BootstrapFailed; the user is never promoted on a failed check.
//
// Against a repository without LeaderPromoter the existence check and the update are two
// separate calls: two first users signing in at the same moment can both be promoted.
func (b *LeaderBootstrapper) Attempt(ctx context.Context, userID string) BootstrapResult {
	promoted, err := b.bootstrap(ctx, userID)
	var res BootstrapResult
	switch {
	case err != nil:
		b.logger.ErrorContext(ctx, "first-leader bootstrap failed", "user_id", userID, "error", err)
		b.metrics.Error("bootstrap", err)
		res = BootstrapFailed
	case promoted:
		b.logger.InfoContext(ctx, "promoted first user to team leader", "user_id", userID)
		res = BootstrapPromoted
	default:
		b.logger.DebugContext(ctx, "leader already exists", "user_id", userID)
		res = BootstrapLeaderExists
	}
	b.metrics.Bootstrap(string(res))
	return res
}

func (b *LeaderBootstrapper) bootstrap(ctx context.Context, userID string) (bool, error) {
	repo, err := b.profiles.Profiles(ctx)
	if err != nil {
		return false, err
	}
	if p, ok := repo.(ports.LeaderPromoter); ok {
		return p.PromoteIfNoLeader(ctx, userID)
	}

	leaders, err := repo.ListByRoles(ctx, domainauth.LeaderRoles, 1)
	if err != nil {
		return false, err
	}
	if len(leaders) > 0 {
		return false, nil
	}
	if err := repo.Update(ctx, userID, domainauth.LeaderPromotion()); err != nil {
		return false, err
	}
	return true, nil
}
