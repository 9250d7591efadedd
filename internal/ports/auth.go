// Package ports defines interfaces (hexagonal ports) for the shell core.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.
package ports

import (
	"context"

	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
)

// Authenticator talks to the remote identity service.
type Authenticator interface {
	// SignIn exchanges email and password for a session.
	SignIn(ctx context.Context, email, password string) (domainauth.Session, error)

	// SignOut revokes the session remotely.
	SignOut(ctx context.Context, sess domainauth.Session) error

	// Refresh exchanges a refresh token for a new session.
	Refresh(ctx context.Context, refreshToken string) (domainauth.Session, error)
}

// ProfileReader loads a single profile.
type ProfileReader interface {
	// GetByID returns the profile or an error satisfying errors.IsNotFound.
	GetByID(ctx context.Context, id string) (domainauth.Profile, error)
}

// ProfileRepository is the remote profile store contract.
type ProfileRepository interface {
	ProfileReader

	// Update applies a partial update to the profile identified by id.
	Update(ctx context.Context, id string, upd domainauth.ProfileUpdate) error

	// ListByRoles returns up to limit profiles whose role is one of roles.
	ListByRoles(ctx context.Context, roles []domainauth.Role, limit int) ([]domainauth.Profile, error)
}

// LeaderPromoter is implemented by repositories that can promote the first leader atomically.
type LeaderPromoter interface {
	// PromoteIfNoLeader promotes id to team_leader only when no leader or admin exists,
	// as a single atomic step. It reports whether the promotion happened.
	PromoteIfNoLeader(ctx context.Context, id string) (bool, error)
}

// TokenVerifier verifies access tokens issued by the identity service.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (domainauth.TokenClaims, error)
}
