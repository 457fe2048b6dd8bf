package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	registry *prometheus.Registry

	// Load metrics
	LoadsTotal   *prometheus.CounterVec
	LoadDuration prometheus.Histogram

	// Generate metrics
	GeneratesTotal   *prometheus.CounterVec
	GenerateDuration prometheus.Histogram

	// Session metrics
	SessionsActive     prometheus.Gauge
	SweepsTotal        prometheus.Counter
	SessionsSweptTotal prometheus.Counter
}

// New creates and registers all metrics
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "template_loads_total",
				Help: "Total number of template load requests",
			},
			[]string{"status"},
		),
		LoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "template_load_duration_seconds",
				Help:    "Duration of template load requests",
				Buckets: prometheus.DefBuckets,
			},
		),

		GeneratesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "project_generates_total",
				Help: "Total number of project generation requests",
			},
			[]string{"status"},
		),
		GenerateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "project_generate_duration_seconds",
				Help:    "Duration of project generation requests",
				Buckets: prometheus.DefBuckets,
			},
		),

		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "template_sessions_active",
				Help: "Number of loaded template sessions currently in the store",
			},
		),
		SweepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "session_sweeps_total",
				Help: "Total number of expiry sweeps run",
			},
		),
		SessionsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sessions_swept_total",
				Help: "Total number of expired sessions reclaimed by the sweeper",
			},
		),
	}

	registry.MustRegister(
		m.LoadsTotal,
		m.LoadDuration,
		m.GeneratesTotal,
		m.GenerateDuration,
		m.SessionsActive,
		m.SweepsTotal,
		m.SessionsSweptTotal,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
