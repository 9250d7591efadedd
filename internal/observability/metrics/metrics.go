// Package metrics exposes Prometheus counters for the shell core.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	obserrors "github.com/greenhands/greenhands-shell/internal/observability/errors"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"

	// Profile load outcomes.
	LoadOK        = "ok"
	LoadNotFound  = "not_found"
	LoadError     = "error"
	LoadDiscarded = "discarded"

	// Bootstrap outcomes.
	BootstrapPromoted     = "promoted"
	BootstrapLeaderExists = "leader_exists"
	BootstrapFailed       = "failed"
)

// Recorder owns the shell's collectors.
type Recorder struct {
	registry *prometheus.Registry

	routeDecisions *prometheus.CounterVec
	bootstrap      *prometheus.CounterVec
	profileLoads   *prometheus.CounterVec
	configOps      *prometheus.CounterVec
	sessionEvents  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
}

// New creates a Recorder with its own registry, including Go runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the shell's collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	r := &Recorder{
		registry: reg,
		routeDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhands_route_decisions_total",
			Help: "Startup routing decisions by destination and reason",
		}, []string{"decision", "reason"}),
		bootstrap: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhands_bootstrap_total",
			Help: "First-leader bootstrap attempts by outcome",
		}, []string{"result"}),
		profileLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhands_profile_loads_total",
			Help: "Profile loads by outcome, including superseded loads that were discarded",
		}, []string{"result"}),
		configOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhands_config_operations_total",
			Help: "Configuration resolver operations by kind and result",
		}, []string{"op", "result"}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhands_session_events_total",
			Help: "Session change events published by type",
		}, []string{"type"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhands_errors_total",
			Help: "Errors observed by component and class",
		}, []string{"component", "class"}),
	}
	reg.MustRegister(r.routeDecisions, r.bootstrap, r.profileLoads, r.configOps, r.sessionEvents, r.errorsTotal)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RouteDecision counts a routing decision.
func (r *Recorder) RouteDecision(decision, reason string) {
	if r == nil {
		return
	}
	r.routeDecisions.WithLabelValues(decision, reason).Inc()
}

// Bootstrap counts a bootstrap outcome.
func (r *Recorder) Bootstrap(result string) {
	if r == nil {
		return
	}
	r.bootstrap.WithLabelValues(result).Inc()
}

// ProfileLoad counts a profile load outcome.
func (r *Recorder) ProfileLoad(result string) {
	if r == nil {
		return
	}
	r.profileLoads.WithLabelValues(result).Inc()
}

// ConfigOp counts a resolver operation.
func (r *Recorder) ConfigOp(op string, err error) {
	if r == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	r.configOps.WithLabelValues(op, result).Inc()
}

// SessionEvent counts a published session event.
func (r *Recorder) SessionEvent(eventType string) {
	if r == nil {
		return
	}
	r.sessionEvents.WithLabelValues(eventType).Inc()
}

// Error counts err under component using its classified label.
func (r *Recorder) Error(component string, err error) {
	if r == nil || err == nil {
		return
	}
	r.errorsTotal.WithLabelValues(component, obserrors.Classify(err)).Inc()
}
