// Package metrics provides Prometheus metrics for loaders and sources.
//
// All metrics are optional: when the registry is not initialized the
// constructors return nil and components fall back to no-op implementations.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	reg.SetMetrics(metrics.NewSourceMetrics())
//	cfg.Metrics = metrics.NewLoaderMetrics()
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry, written once by InitRegistry.
	promRegistry *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// This must be called before creating any metrics instances. It's safe to call
// multiple times - subsequent calls are ignored.
//
// If not called, GetRegistry() will return nil and all metrics constructors
// will return no-op implementations.
//
// Thread safety:
// sync.Once provides the necessary memory barriers to ensure the registry
// write is visible to all subsequent reads.
func InitRegistry() {
	registryOnce.Do(func() {
		promRegistry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry.
//
// Returns nil if InitRegistry() has not been called, indicating metrics
// are disabled.
//
// Thread safety:
// Safe to call concurrently. The sync.Once in InitRegistry() provides
// a happens-before relationship ensuring the registry value is visible.
func GetRegistry() *prometheus.Registry {
	return promRegistry
}

// IsEnabled returns true if metrics collection is enabled.
//
// Metrics are enabled if InitRegistry() has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
