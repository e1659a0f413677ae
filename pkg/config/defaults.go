package config

import (
	"path/filepath"
	"strings"

	"github.com/marmos91/dittobrowse/pkg/folder"
	"github.com/marmos91/dittobrowse/pkg/loader"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Provider-specific defaults are handled by the providers
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyLoaderDefaults(&cfg.Loader)
	applyBrowseDefaults(&cfg.Browse)
	applyMetricsDefaults(&cfg.Metrics)

	// Without sources there is nothing to browse; start with a scratch list.
	if len(cfg.Sources) == 0 {
		cfg.Sources = []SourceConfig{
			{
				Name:   "scratch",
				Type:   SourceMemory,
				Memory: map[string]any{"name": "Scratch"},
			},
		}
	}

	applySourceDefaults(cfg.Sources)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyLoaderDefaults sets loader sizing defaults.
func applyLoaderDefaults(cfg *LoaderConfig) {
	if cfg.PageSize == 0 {
		cfg.PageSize = loader.DefaultPageSize
	}
	if cfg.MaxResidentPages == 0 {
		cfg.MaxResidentPages = loader.DefaultMaxResidentPages
	}
	if cfg.SequentialPageSize == 0 {
		cfg.SequentialPageSize = loader.DefaultSequentialPageSize
	}
}

// applyBrowseDefaults sets session defaults. A sort field without an order
// sorts ascending.
func applyBrowseDefaults(cfg *BrowseConfig) {
	if cfg.SortField != "" && cfg.SortOrder == "" {
		cfg.SortOrder = folder.SortAscending
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applySourceDefaults initializes the type-specific section of every source.
func applySourceDefaults(sources []SourceConfig) {
	for i := range sources {
		src := &sources[i]

		if src.Type == SourceMemory && src.Memory == nil {
			src.Memory = make(map[string]any)
		}
		if src.Type == SourceFilesystem && src.Filesystem == nil {
			src.Filesystem = make(map[string]any)
		}
		if src.Type == SourceBadger && src.Badger == nil {
			src.Badger = make(map[string]any)
		}

		// Burst defaults to the sustained rate
		if src.RateLimit.RequestsPerSecond > 0 && src.RateLimit.Burst == 0 {
			src.RateLimit.Burst = src.RateLimit.RequestsPerSecond
		}
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
//
// The default configuration browses the current directory and keeps
// favorites in a BadgerDB collection under the configuration directory.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Sources: []SourceConfig{
			{
				Name:       "local",
				Type:       SourceFilesystem,
				Filesystem: map[string]any{"root": ".", "watch": true},
			},
			{
				Name: "lists",
				Type: SourceBadger,
				Badger: map[string]any{
					"db_path":     filepath.Join(getConfigDir(), "lists"),
					"collections": []string{"favorites"},
				},
			},
		},
		Browse: BrowseConfig{
			SortField:     folder.SortByName,
			FavoritesPath: "lists/favorites",
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
