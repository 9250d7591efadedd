package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/greenhands/greenhands-shell/internal/domain/routing"
	"github.com/greenhands/greenhands-shell/internal/observability/metrics"
)

// SessionView is the part of SessionManager the router reads from.
type SessionView interface {
	Subscribe() <-chan SessionState
	RefreshProfile(ctx context.Context)
}

// Bootstrapper runs the first-leader check for a user.
type Bootstrapper interface {
	Attempt(ctx context.Context, userID string) BootstrapResult
}

// StartupRouterOptions groups dependencies for StartupRouter.
type StartupRouterOptions struct {
	Sessions     SessionView  // Required
	Bootstrapper Bootstrapper // Required
	Telemetry    Telemetry
}

// StartupRouter turns session state into the shell's top-level destination.
type StartupRouter struct {
	sessions  SessionView
	bootstrap Bootstrapper
	logger    *slog.Logger
	metrics   *metrics.Recorder

	mu      sync.Mutex
	settled map[string]BootstrapResult
	// bootMu serializes bootstrap runs so one user is never bootstrapped twice.
	bootMu sync.Mutex
}

// NewStartupRouter constructs a StartupRouter.
func NewStartupRouter(opts StartupRouterOptions) *StartupRouter {
	if opts.Sessions == nil {
		panic("StartupRouter requires Sessions")
	}
	if opts.Bootstrapper == nil {
		panic("StartupRouter requires Bootstrapper")
	}
	return &StartupRouter{
		sessions:  opts.Sessions,
		bootstrap: opts.Bootstrapper,
		logger:    opts.Telemetry.logger("router"),
		metrics:   opts.Telemetry.Metrics,
		settled:   make(map[string]BootstrapResult),
	}
}

// Settled reports whether the bootstrap check already ran for userID in this process.
func (r *StartupRouter) Settled(userID string) bool {
	_, ok := r.result(userID)
	return ok
}

func (r *StartupRouter) result(userID string) (BootstrapResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.settled[userID]
	return res, ok
}

func (r *StartupRouter) markSettled(userID string, res BootstrapResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settled[userID] = res
}

// Evaluate decides where the shell goes for st. A needs-bootstrap outcome is resolved here:
// after a promotion the profile is reloaded and the result is awaiting; a failed check
// routes to login for the rest of the process.
func (r *StartupRouter) Evaluate(ctx context.Context, st SessionState) routing.Outcome {
	userID := st.UserID()
	var res BootstrapResult
	settled := false
	if userID != "" {
		res, settled = r.result(userID)
	}
	in := routing.Input{
		Loading:          st.Loading || !st.Ready,
		SessionPresent:   st.Session != nil,
		Profile:          st.Profile,
		BootstrapSettled: settled,
		BootstrapFailed:  res == BootstrapFailed,
	}
	out := routing.Decide(in)

	if out.Decision == routing.DecisionNeedsBootstrap {
		res = r.runBootstrap(ctx, userID)
		if res == BootstrapPromoted {
			r.sessions.RefreshProfile(ctx)
			out = routing.Outcome{Decision: routing.DecisionAwaiting, Reason: routing.ReasonBootstrap}
			r.record(ctx, userID, out)
			return out
		}
		in.BootstrapSettled = true
		in.BootstrapFailed = res == BootstrapFailed
		out = routing.Decide(in)
	}

	r.record(ctx, userID, out)
	return out
}

func (r *StartupRouter) runBootstrap(ctx context.Context, userID string) BootstrapResult {
	r.bootMu.Lock()
	defer r.bootMu.Unlock()
	if res, ok := r.result(userID); ok {
		// A concurrent evaluation already ran it and reloads the promoted profile.
		if res == BootstrapPromoted {
			return BootstrapLeaderExists
		}
		return res
	}
	res := r.bootstrap.Attempt(ctx, userID)
	r.markSettled(userID, res)
	return res
}

func (r *StartupRouter) record(ctx context.Context, userID string, out routing.Outcome) {
	r.metrics.RouteDecision(string(out.Decision), out.Reason)
	switch out.Reason {
	case routing.ReasonUnknownRole:
		r.logger.ErrorContext(ctx, "profile has an unknown role, routing to login", "user_id", userID, "role", out.Role)
	case routing.ReasonBootstrapFailed:
		r.logger.WarnContext(ctx, "first-leader check failed, routing to login", "user_id", userID)
	case routing.ReasonProfileMissing:
		r.logger.WarnContext(ctx, "signed-in user has no profile, routing to login", "user_id", userID)
	default:
		r.logger.DebugContext(ctx, "route decided", "user_id", userID, "decision", out.Decision, "reason", out.Reason)
	}
}

// Run evaluates every state change until ctx is done and calls onDecision with each final
// decision that differs from the previous one.
func (r *StartupRouter) Run(ctx context.Context, onDecision func(routing.Outcome)) error {
	updates := r.sessions.Subscribe()
	var last routing.Decision
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st := <-updates:
			out := r.Evaluate(ctx, st)
			if !out.Decision.Final() || out.Decision == last {
				continue
			}
			last = out.Decision
			onDecision(out)
		}
	}
}
