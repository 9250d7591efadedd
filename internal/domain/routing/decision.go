// Package routing computes the top-level destination of the shell from session and profile state.
// Decide is pure; orchestration (bootstrap, profile refresh) lives in internal/service.
package routing

import (
	"github.com/greenhands/greenhands-shell/internal/domain/auth"
)

// Decision is the computed top-level destination.
type Decision string

const (
	// DecisionAwaiting means no decision can be made yet (state still loading).
	DecisionAwaiting            Decision = "awaiting"
	DecisionGotoLogin           Decision = "goto-login"
	DecisionGotoAdminHome       Decision = "goto-admin-home"
	DecisionGotoDriverDashboard Decision = "goto-driver-dashboard"
	DecisionNeedsBootstrap      Decision = "needs-bootstrap"
)

// Final reports whether d is a navigation destination.
func (d Decision) Final() bool {
	switch d {
	case DecisionGotoLogin, DecisionGotoAdminHome, DecisionGotoDriverDashboard:
		return true
	default:
		return false
	}
}

// Reasons attached to outcomes worth logging.
const (
	ReasonLoading         = "loading"
	ReasonNoSession       = "no session"
	ReasonProfileMissing  = "profile missing"
	ReasonUnknownRole     = "unknown role"
	ReasonRole            = "role"
	ReasonBootstrap       = "bootstrap pending"
	// ReasonBootstrapFailed means the first-leader check could not complete.
	ReasonBootstrapFailed = "bootstrap failed"
)

// Input is everything a routing decision depends on.
type Input struct {
	Loading        bool
	SessionPresent bool
	Profile        *auth.Profile
	// BootstrapSettled is true once the first-leader check ran for the session's user.
	BootstrapSettled bool
	// BootstrapFailed is true when that check failed; the user is sent to login.
	BootstrapFailed bool
}

// Outcome is a decision with the reason that produced it.
type Outcome struct {
	Decision Decision
	Reason   string
	Role     auth.Role
}

// Anomaly reports whether the outcome is a defensive fallback (data-integrity problem).
func (o Outcome) Anomaly() bool {
	switch o.Reason {
	case ReasonProfileMissing, ReasonUnknownRole, ReasonBootstrapFailed:
		return true
	default:
		return false
	}
}

// Decide maps the input onto exactly one outcome.
func Decide(in Input) Outcome {
	switch {
	case in.Loading:
		return Outcome{Decision: DecisionAwaiting, Reason: ReasonLoading}
	case !in.SessionPresent:
		return Outcome{Decision: DecisionGotoLogin, Reason: ReasonNoSession}
	case in.Profile == nil:
		// Registration incomplete; there is no profile completion screen yet.
		return Outcome{Decision: DecisionGotoLogin, Reason: ReasonProfileMissing}
	case !in.BootstrapSettled:
		return Outcome{Decision: DecisionNeedsBootstrap, Reason: ReasonBootstrap, Role: in.Profile.Role}
	case in.BootstrapFailed:
		return Outcome{Decision: DecisionGotoLogin, Reason: ReasonBootstrapFailed, Role: in.Profile.Role}
	}
	return dispatch(in.Profile.Role)
}

func dispatch(role auth.Role) Outcome {
	switch role {
	case auth.RoleAdmin, auth.RoleTeamLeader:
		return Outcome{Decision: DecisionGotoAdminHome, Reason: ReasonRole, Role: role}
	case auth.RoleDriver:
		return Outcome{Decision: DecisionGotoDriverDashboard, Reason: ReasonRole, Role: role}
	default:
		return Outcome{Decision: DecisionGotoLogin, Reason: ReasonUnknownRole, Role: role}
	}
}
