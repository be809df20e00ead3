package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bridge.
type Metrics struct {
	registry *prometheus.Registry

	// Delegation metrics
	DelegationsTotal    *prometheus.CounterVec
	DelegationDuration  *prometheus.HistogramVec
	DelegationTimeouts  *prometheus.CounterVec
	SpawnFailuresTotal  *prometheus.CounterVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCleared prometheus.Counter
}

// NewMetrics creates and registers all metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		DelegationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "duet_delegations_total",
				Help: "Total number of delegations per assistant",
			},
			[]string{"assistant", "status"},
		),
		DelegationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "duet_delegation_duration_seconds",
				Help:    "Duration of delegated CLI invocations in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"assistant"},
		),
		DelegationTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "duet_delegation_timeouts_total",
				Help: "Total number of delegations that hit the timeout",
			},
			[]string{"assistant"},
		),
		SpawnFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "duet_spawn_failures_total",
				Help: "Total number of failed CLI process spawns",
			},
			[]string{"assistant"},
		),

		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "duet_sessions_active",
				Help: "Number of persisted session records",
			},
		),
		SessionsCleared: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "duet_sessions_cleared_total",
				Help: "Total number of session records cleared",
			},
		),
	}

	m.registerMetrics()

	return m
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.DelegationsTotal)
	m.registry.MustRegister(m.DelegationDuration)
	m.registry.MustRegister(m.DelegationTimeouts)
	m.registry.MustRegister(m.SpawnFailuresTotal)
	m.registry.MustRegister(m.SessionsActive)
	m.registry.MustRegister(m.SessionsCleared)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
