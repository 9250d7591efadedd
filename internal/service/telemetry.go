package service

import (
	"log/slog"

	"github.com/greenhands/greenhands-shell/internal/observability/metrics"
)

// Telemetry groups the optional observability dependencies shared by services.
type Telemetry struct {
	Logger  *slog.Logger      // Optional: defaults to slog.Default()
	Metrics *metrics.Recorder // Optional: nil records nothing
}

func (t Telemetry) logger(component string) *slog.Logger {
	l := t.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", component)
}
