package metrics

import (
	"errors"
	"time"

	"github.com/marmos91/dittobrowse/pkg/folder"
	"github.com/marmos91/dittobrowse/pkg/loader"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// loaderMetrics is the Prometheus implementation of loader.Metrics.
//
// This implementation collects metrics about folder loaders including:
//   - Hit, miss and join counts per loader mode
//   - Fetch latency, page sizes and outcomes
//   - Evictions and invalidations
//   - Resident page count
type loaderMetrics struct {
	lookups       *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchItems    *prometheus.HistogramVec
	evictions     *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	residentPages prometheus.Gauge
}

// NewLoaderMetrics creates a new Prometheus-backed loader.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes loaders to use the built-in no-op implementation.
func NewLoaderMetrics() loader.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newLoaderMetrics(GetRegistry())
}

func newLoaderMetrics(reg prometheus.Registerer) *loaderMetrics {
	return &loaderMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittobrowse_loader_lookups_total",
				Help: "Total number of item lookups by loader mode and result (hit, miss, join)",
			},
			[]string{"mode", "result"},
		),
		fetches: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittobrowse_loader_fetches_total",
				Help: "Total number of page fetches by loader mode and status",
			},
			[]string{"mode", "status"},
		),
		fetchDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittobrowse_loader_fetch_duration_seconds",
				Help: "Duration of page fetches in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.25,  // 250ms
					0.5,   // 500ms
					1.0,   // 1s
					2.5,   // 2.5s
					10.0,  // 10s
				},
			},
			[]string{"mode"},
		),
		fetchItems: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittobrowse_loader_fetch_items",
				Help:    "Number of items returned by successful page fetches",
				Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
			},
			[]string{"mode"},
		),
		evictions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittobrowse_loader_evictions_total",
				Help: "Total number of evicted pages by state at eviction (pending, resolved)",
			},
			[]string{"state"},
		),
		invalidations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittobrowse_loader_invalidations_total",
				Help: "Total number of wholesale loader invalidations by mode",
			},
			[]string{"mode"},
		),
		residentPages: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittobrowse_loader_resident_pages",
				Help: "Resident pages summed over every open cached loader",
			},
		),
	}
}

// RecordHit implements loader.Metrics.RecordHit
func (m *loaderMetrics) RecordHit(mode string) {
	m.lookups.WithLabelValues(mode, "hit").Inc()
}

// RecordMiss implements loader.Metrics.RecordMiss
func (m *loaderMetrics) RecordMiss(mode string) {
	m.lookups.WithLabelValues(mode, "miss").Inc()
}

// RecordJoin implements loader.Metrics.RecordJoin
func (m *loaderMetrics) RecordJoin(mode string) {
	m.lookups.WithLabelValues(mode, "join").Inc()
}

// ObserveFetch implements loader.Metrics.ObserveFetch
func (m *loaderMetrics) ObserveFetch(mode string, items int, duration time.Duration, err error) {
	status := fetchStatus(err)
	m.fetches.WithLabelValues(mode, status).Inc()
	m.fetchDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if status == "success" {
		m.fetchItems.WithLabelValues(mode).Observe(float64(items))
	}
}

// RecordEviction implements loader.Metrics.RecordEviction
func (m *loaderMetrics) RecordEviction(wasPending bool) {
	state := "resolved"
	if wasPending {
		state = "pending"
	}
	m.evictions.WithLabelValues(state).Inc()
}

// RecordInvalidation implements loader.Metrics.RecordInvalidation
func (m *loaderMetrics) RecordInvalidation(mode string) {
	m.invalidations.WithLabelValues(mode).Inc()
}

// AddResidentPages implements loader.Metrics.AddResidentPages
func (m *loaderMetrics) AddResidentPages(delta int) {
	m.residentPages.Add(float64(delta))
}

// fetchStatus maps a fetch error to a low-cardinality status label.
func fetchStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, folder.ErrFetchCancelled):
		return "cancelled"
	case errors.Is(err, folder.ErrInvalidCursor):
		return "invalid_cursor"
	case errors.Is(err, folder.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
