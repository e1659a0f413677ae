package metrics

import (
	"time"

	"github.com/marmos91/dittobrowse/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// sourceMetrics is the Prometheus implementation of registry.Metrics.
//
// Requests are labelled by source name. Source names come from configuration,
// so cardinality stays bounded.
type sourceMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	itemsTotal      *prometheus.CounterVec
	sources         prometheus.Gauge
}

// NewSourceMetrics creates a new Prometheus-backed registry.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSourceMetrics() registry.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newSourceMetrics(GetRegistry())
}

func newSourceMetrics(reg prometheus.Registerer) *sourceMetrics {
	return &sourceMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittobrowse_source_requests_total",
				Help: "Total number of listing requests by source and status",
			},
			[]string{"source", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittobrowse_source_request_duration_seconds",
				Help: "Duration of listing requests in seconds, including rate limiter waits",
				Buckets: []float64{
					0.01,  // 10ms
					0.025, // 25ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.25,  // 250ms
					0.5,   // 500ms
					1.0,   // 1s
					2.5,   // 2.5s
					5.0,   // 5s
					10.0,  // 10s
					30.0,  // 30s
				},
			},
			[]string{"source"},
		),
		itemsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittobrowse_source_items_total",
				Help: "Total number of items listed by source",
			},
			[]string{"source"},
		),
		sources: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittobrowse_sources",
				Help: "Number of registered sources",
			},
		),
	}
}

// ObserveRequest implements registry.Metrics.ObserveRequest
func (m *sourceMetrics) ObserveRequest(source string, items int, duration time.Duration, err error) {
	m.requestsTotal.WithLabelValues(source, fetchStatus(err)).Inc()
	m.requestDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err == nil {
		m.itemsTotal.WithLabelValues(source).Add(float64(items))
	}
}

// RecordSources implements registry.Metrics.RecordSources
func (m *sourceMetrics) RecordSources(count int) {
	m.sources.Set(float64(count))
}
