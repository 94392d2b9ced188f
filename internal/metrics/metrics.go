// Package metrics exposes Prometheus instrumentation for the raffle daemon.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the daemon's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Entries         prometheus.Counter
	EntriesRejected prometheus.Counter
	Upkeeps         prometheus.Counter
	Draws           prometheus.Counter
	EscrowFunded    prometheus.Counter
	EscrowReleased  prometheus.Counter
	Events          *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Entries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raffle_entries_total",
			Help: "Accepted raffle entries.",
		}),
		EntriesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raffle_entries_rejected_total",
			Help: "Rejected raffle entries.",
		}),
		Upkeeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raffle_upkeeps_total",
			Help: "Successful upkeep transitions.",
		}),
		Draws: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raffle_draws_total",
			Help: "Completed raffle draws.",
		}),
		EscrowFunded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raffle_escrow_funded_total",
			Help: "Donation matches escrowed.",
		}),
		EscrowReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raffle_escrow_released_total",
			Help: "Donation matches released to the winning charity.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raffle_events_total",
			Help: "Engine events by topic.",
		}, []string{"topic"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "In-flight HTTP requests.",
		}),
	}

	m.registry.MustRegister(
		m.Entries,
		m.EntriesRejected,
		m.Upkeeps,
		m.Draws,
		m.EscrowFunded,
		m.EscrowReleased,
		m.Events,
		m.HTTPRequests,
		m.HTTPDuration,
		m.HTTPInFlight,
	)
	return m
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Publish implements the engine's event publisher by counting topics.
func (m *Metrics) Publish(_ context.Context, topic string, _ map[string]any) error {
	m.Events.WithLabelValues(topic).Inc()
	return nil
}
