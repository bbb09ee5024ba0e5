// Package metrics exposes Prometheus instruments for the decision loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all instruments. Each instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	// Decision cycle
	CyclesTotal    *prometheus.CounterVec
	CyclesSkipped  prometheus.Counter
	CycleDuration  prometheus.Histogram
	LastScore      prometheus.Gauge
	LastCycleEpoch prometheus.Gauge

	// Trades
	TradesTotal   *prometheus.CounterVec
	FailuresTotal *prometheus.CounterVec

	// Push channel
	Observers        prometheus.Gauge
	EventsDelivered  *prometheus.CounterVec
	ObserversDropped prometheus.Counter

	// Control surface
	BotRunning     prometheus.Gauge
	APIRequests    *prometheus.CounterVec
	APIRateLimited prometheus.Counter
}

// New creates a Metrics instance registered on a fresh registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "astroswap"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Decision cycles completed by chosen action",
		}, []string{"action"}),
		CyclesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "skipped_total",
			Help:      "Timer ticks dropped because a cycle was still running",
		}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Wall time of one decision cycle",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		}),
		LastScore: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "last_score",
			Help:      "Score of the latest analysis",
		}),
		LastCycleEpoch: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the latest completed cycle",
		}),

		TradesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "executed_total",
			Help:      "Trades executed by kind",
		}, []string{"kind"}),
		FailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "failures_total",
			Help:      "Caught trade-path failures by context and kind",
		}, []string{"context", "kind"}),

		Observers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "observers",
			Help:      "Currently registered observers",
		}),
		EventsDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "events_total",
			Help:      "Events broadcast by type",
		}, []string{"type"}),
		ObserversDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "observers_dropped_total",
			Help:      "Observers deregistered after a failed delivery",
		}),

		BotRunning: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running",
			Help:      "1 while the scheduler is running",
		}),
		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Control API requests by path and status code",
		}, []string{"path", "code"}),
		APIRateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Control API requests rejected by the rate limiter",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
