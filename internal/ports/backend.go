package ports

import (
	"context"

	domainauth "github.com/greenhands/greenhands-shell/internal/domain/auth"
	"github.com/greenhands/greenhands-shell/internal/domain/connection"
)

// Backend is a client bound to one pair of backend credentials.
type Backend interface {
	Authenticator

	// Profiles returns the profile store reached through this client.
	Profiles() ProfileRepository

	// Probe performs one lightweight round trip to check the credentials.
	Probe(ctx context.Context) error

	// UseSession makes subsequent data calls run as the session's user; nil reverts to the anon key.
	UseSession(sess *domainauth.Session)

	// SessionKey is the local storage key under which this project's session is persisted.
	SessionKey() string

	// URL is the project URL the client is bound to.
	URL() string
}

// BackendFactory builds backend clients from credentials. It must not perform I/O.
type BackendFactory interface {
	New(creds connection.Credentials) (Backend, error)
}

// BackendFactoryFunc adapts a function to BackendFactory.
type BackendFactoryFunc func(creds connection.Credentials) (Backend, error)

// New implements BackendFactory.
func (f BackendFactoryFunc) New(creds connection.Credentials) (Backend, error) { return f(creds) }
