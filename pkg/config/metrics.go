package config

import (
	"github.com/marmos91/dittobrowse/pkg/loader"
	"github.com/marmos91/dittobrowse/pkg/metrics"
	"github.com/marmos91/dittobrowse/pkg/registry"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Loader collects loader metrics (nil if disabled; loaders use a no-op)
	Loader loader.Metrics

	// Sources collects per-source request metrics (nil if disabled)
	Sources registry.Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed loader and source metrics
//
// If metrics are disabled every field is nil and components skip collection.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server:  metrics.NewServer(serverConfig(cfg.Metrics)),
		Loader:  metrics.NewLoaderMetrics(),
		Sources: metrics.NewSourceMetrics(),
	}
}

// serverConfig maps the metrics section to the server settings.
func serverConfig(cfg MetricsConfig) metrics.ServerConfig {
	return metrics.ServerConfig{Host: cfg.Host, Port: cfg.Port}
}
