package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler attempt outcomes.
const (
	OutcomeHandled  = "handled"
	OutcomeDeclined = "declined"
	OutcomeFailed   = "failed"
)

// OtherKind labels captures of kinds that were never declared, keeping the
// label set bounded.
const OtherKind = "other"

// Metrics holds the capture pipeline counters on a dedicated registry, so
// several instances (one per test) never collide on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	Captures        *prometheus.CounterVec
	HandlerAttempts *prometheus.CounterVec
	Unhandled       prometheus.Counter
	StorageFailures *prometheus.CounterVec
	Expired         prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "errortrail",
			Name:      "captures_total",
			Help:      "Failures routed through the capture dispatcher, by kind.",
		}, []string{"kind"}),
		HandlerAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "errortrail",
			Name:      "handler_attempts_total",
			Help:      "Handler invocations, by handler name and outcome.",
		}, []string{"handler", "outcome"}),
		Unhandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "errortrail",
			Name:      "unhandled_total",
			Help:      "Captures that no registered handler accepted.",
		}),
		StorageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "errortrail",
			Name:      "storage_failures_total",
			Help:      "Error store failures seen by the dispatcher, by operation.",
		}, []string{"op"}),
		Expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "errortrail",
			Name:      "expired_records_total",
			Help:      "Records removed by retention.",
		}),
	}

	m.registry.MustRegister(m.Captures, m.HandlerAttempts, m.Unhandled, m.StorageFailures, m.Expired)

	return m
}

// Registry exposes the underlying registry, mostly for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
