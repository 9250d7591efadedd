// Package auth contains domain-level types for authentication, sessions and user profiles.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"strings"
	"time"
)

// Role represents a user's role in the fleet.
// Keep string form: it is stored verbatim in the profiles table.
type Role string

const (
	RoleDriver     Role = "driver"
	RoleTeamLeader Role = "team_leader"
	RoleAdmin      Role = "admin"
)

// LeaderRoles lists the roles that grant access to the administrative home.
var LeaderRoles = []Role{RoleTeamLeader, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDriver, RoleTeamLeader, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsLeader reports whether r is team_leader or admin.
func (r Role) IsLeader() bool {
	return r == RoleTeamLeader || r == RoleAdmin
}

// Profile statuses written by this core.
const (
	ProfileStatusPending = "pending"
	ProfileStatusActive  = "active"
)

// Profile is the domain record describing a user's role and status, keyed by user identity.
// PIN fields back the future driver PIN login and carry no behavior yet.
type Profile struct {
	ID             string     `json:"id"`
	Role           Role       `json:"role"`
	Phone          string     `json:"phone"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Approved       bool       `json:"approved"`
	Status         string     `json:"status"`
	PinHash        *string    `json:"pin_hash"`
	PinAttempts    int        `json:"pin_attempts"`
	PinLockedUntil *time.Time `json:"pin_locked_until"`
	CreatedAt      time.Time  `json:"created_at"`
}

// FullName joins first and last name.
func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	Role     *Role   `json:"role,omitempty"`
	Approved *bool   `json:"approved,omitempty"`
	Status   *string `json:"status,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Role == nil && u.Approved == nil && u.Status == nil
}

// LeaderPromotion returns the update applied to the first registered user.
func LeaderPromotion() ProfileUpdate {
	role := RoleTeamLeader
	approved := true
	status := ProfileStatusActive
	return ProfileUpdate{Role: &role, Approved: &approved, Status: &status}
}

// User is the identity attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the authenticated connection state of this device.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// UserID returns the identity the session belongs to.
func (s Session) UserID() string { return s.User.ID }

// ExpiresWithin reports whether the access token expires before now+margin.
// A zero expiry never expires.
func (s Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

// TokenClaims are the verified claims of an access token.
type TokenClaims struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// SessionEventType names a session change.
type SessionEventType string

const (
	EventInitialSession SessionEventType = "INITIAL_SESSION"
	EventSignedIn       SessionEventType = "SIGNED_IN"
	EventSignedOut      SessionEventType = "SIGNED_OUT"
	EventTokenRefreshed SessionEventType = "TOKEN_REFRESHED"
)

// SessionEvent is pushed in order onto the session-change channel.
// Session is nil when the device has no session after the change.
type SessionEvent struct {
	Type    SessionEventType
	Session *Session
}
