// Package metrics exposes discovery cycle metrics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
	"gitlab.com/fbworkers.net/internal/domain"
)

const namespace = "worker_discovery"

var _ secondary.DiscoveryMetrics = (*DiscoveryMetrics)(nil)

type DiscoveryMetrics struct {
	registry *prometheus.Registry

	cycles   *prometheus.CounterVec
	skipped  prometheus.Counter
	workers  prometheus.Gauge
	duration *prometheus.HistogramVec
}

// NewDiscoveryMetrics registers the discovery collectors on a private registry.
func NewDiscoveryMetrics() *DiscoveryMetrics {
	m := &DiscoveryMetrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed discovery cycles by source and result.",
		}, []string{"source", "result"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_skipped_total",
			Help:      "Ticks skipped because a cycle was still running.",
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Workers published by the last cycle.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of discovery cycles.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"source"}),
	}

	m.registry.MustRegister(m.cycles, m.skipped, m.workers, m.duration)
	return m
}

func (m *DiscoveryMetrics) ObserveCycle(cycle *domain.DiscoveryCycle) {
	result := "ok"
	if cycle.Failed() {
		result = "error"
	}
	source := string(cycle.Source)

	m.cycles.WithLabelValues(source, result).Inc()
	m.workers.Set(float64(cycle.Workers.Len()))
	m.duration.WithLabelValues(source).Observe(cycle.Duration.Seconds())
}

func (m *DiscoveryMetrics) ObserveSkippedCycle() {
	m.skipped.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *DiscoveryMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
