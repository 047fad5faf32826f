// Package metrics exposes the Prometheus collectors of the server.
// All methods are safe on a nil *Metrics so that collaborators can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memeswipe"

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	decisions       *prometheus.CounterVec
	compensations   *prometheus.CounterVec
	assetOperations *prometheus.HistogramVec
}

// New returns a new Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Submitted decisions by direction and outcome.",
		}, []string{"direction", "outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Compensating asset deletions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		assetOperations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "asset_operation_duration_seconds",
			Help:      "Duration of asset store calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.decisions,
		m.compensations,
		m.assetOperations,
	)
	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Decision counts a decision submission.
func (m *Metrics) Decision(direction, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(direction, outcome).Inc()
}

// Compensation counts a compensating deletion.
func (m *Metrics) Compensation(stage string, err error) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(stage, outcome(err)).Inc()
}

// ObserveAsset records the duration of an asset store call started at start.
func (m *Metrics) ObserveAsset(backend, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.assetOperations.WithLabelValues(backend, operation, outcome(err)).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
