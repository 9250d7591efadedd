package service

import (
	"log/slog"
	"sync/atomic"

	"github.com/greenhands/greenhands-shell/internal/adapters/bundled"
	"github.com/greenhands/greenhands-shell/internal/domain/connection"
	fakes "github.com/greenhands/greenhands-shell/internal/mocks/auth"
	"github.com/greenhands/greenhands-shell/internal/ports"
)

func quietTelemetry() Telemetry {
	return Telemetry{Logger: slog.New(slog.DiscardHandler)}
}

// countingFactory builds FakeBackends and counts builds.
type countingFactory struct {
	repo   ports.ProfileRepository
	builds atomic.Int32
}

func (f *countingFactory) New(creds connection.Credentials) (ports.Backend, error) {
	f.builds.Add(1)
	return fakes.NewFakeBackend(creds, f.repo), nil
}

func newTestResolver(storage ports.LocalStorage, fallback map[string]string, factory ports.BackendFactory) *ConfigResolver {
	var fb ports.FallbackConfig
	if fallback != nil {
		fb = bundled.FromMap(fallback)
	}
	return NewConfigResolver(ConfigResolverOptions{
		Sources:   ConfigSources{Storage: storage, Fallback: fb},
		Factory:   factory,
		Telemetry: quietTelemetry(),
	})
}

func storedCreds(url, key string) map[string]string {
	return map[string]string{
		connection.StorageKeyURL:     url,
		connection.StorageKeyAnonKey: key,
	}
}
