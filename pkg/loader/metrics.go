package loader

import (
	"time"
)

// Loader modes used as metric labels.
const (
	ModeCached     = "cached"
	ModeSequential = "sequential"
)

// Metrics provides observability for folder loaders.
//
// Implementations can use this interface to collect cache hit ratios, fetch
// latency and eviction activity. This is optional - if not provided, metrics
// collection is skipped.
//
// Example implementations:
//   - Prometheus metrics (pkg/metrics)
//   - In-memory counters for testing
type Metrics interface {
	// RecordHit records a position served from a resident page.
	RecordHit(mode string)

	// RecordMiss records a position that required a fetch.
	RecordMiss(mode string)

	// RecordJoin records a caller that joined an in-flight fetch instead of
	// starting its own.
	RecordJoin(mode string)

	// ObserveFetch records a completed fetch.
	ObserveFetch(mode string, items int, duration time.Duration, err error)

	// RecordEviction records a page evicted from the cache.
	RecordEviction(wasPending bool)

	// RecordInvalidation records a wholesale cache invalidation.
	RecordInvalidation(mode string)

	// AddResidentPages adjusts the resident page count summed over every
	// cached loader. delta is negative when pages leave a cache.
	AddResidentPages(delta int)
}

// noopMetrics is the default no-op metrics implementation.
type noopMetrics struct{}

func (noopMetrics) RecordHit(string) {}
func (noopMetrics) RecordMiss(string) {}
func (noopMetrics) RecordJoin(string) {}
func (noopMetrics) ObserveFetch(string, int, time.Duration, error) {}
func (noopMetrics) RecordEviction(bool) {}
func (noopMetrics) RecordInvalidation(string) {}
func (noopMetrics) AddResidentPages(int) {}
