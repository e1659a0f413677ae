package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Source types accepted in sources[].type.
const (
	SourceMemory     = "memory"
	SourceFilesystem = "filesystem"
	SourceS3         = "s3"
	SourceAzure      = "azure"
	SourceHTTP       = "http"
	SourceBadger     = "badger"
)

// Config represents the complete dittobrowse configuration.
//
// This structure captures all configurable aspects of a browsing session:
//   - Logging configuration
//   - Loader sizing (page size, resident pages)
//   - Source definitions (one storage backend each)
//   - Browse defaults (sort selection, favorites)
//   - Metrics exposition
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTOBROWSE_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
//
// Source Configuration Pattern:
// Each provider defines its own configuration type. A source carries one
// type-specific section (e.g. filesystem, s3) and only the section matching
// the selected type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Loader sizes the page caches of every opened folder
	Loader LoaderConfig `mapstructure:"loader" yaml:"loader"`

	// Sources defines the named storage backends. The first path element of
	// every browsed path names one of them.
	Sources []SourceConfig `mapstructure:"sources" yaml:"sources" validate:"dive"`

	// Browse contains session defaults
	Browse BrowseConfig `mapstructure:"browse" yaml:"browse"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// LoaderConfig sizes folder loaders.
type LoaderConfig struct {
	// PageSize is the number of items per page of offset-addressable folders
	PageSize int `mapstructure:"page_size" yaml:"page_size" validate:"gte=1"`

	// MaxResidentPages bounds the page cache of offset-addressable folders
	MaxResidentPages int `mapstructure:"max_resident_pages" yaml:"max_resident_pages" validate:"gte=1"`

	// SequentialPageSize is the page size requested from cursor-addressable
	// folders (object stores, cursor APIs)
	SequentialPageSize int `mapstructure:"sequential_page_size" yaml:"sequential_page_size" validate:"gte=1"`
}

// SourceConfig defines a single named source.
type SourceConfig struct {
	// Name is the first path element of the source (e.g. "photos")
	Name string `mapstructure:"name" yaml:"name" validate:"required,excludesall=/"`

	// Type selects the provider implementation
	// Valid values: memory, filesystem, s3, azure, http, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory filesystem s3 azure http badger"`

	// RateLimit throttles page fetches across every folder of the source
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit,omitempty"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`

	// Azure contains Azure Blob Storage configuration
	// Only used when Type = "azure"
	Azure map[string]any `mapstructure:"azure" yaml:"azure,omitempty"`

	// HTTP contains listing API configuration
	// Only used when Type = "http"
	HTTP map[string]any `mapstructure:"http" yaml:"http,omitempty"`

	// Badger contains BadgerDB collection configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`
}

// RateLimitConfig configures a token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained fetch rate. Zero disables limiting.
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the bucket capacity (0 = RequestsPerSecond)
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// BrowseConfig contains session defaults.
type BrowseConfig struct {
	// SortField is the initial sort field. Empty keeps the source order.
	// Valid values: name, updatedTime, size, type
	SortField string `mapstructure:"sort_field" yaml:"sort_field" validate:"omitempty,oneof=name updatedTime size type"`

	// SortOrder is the initial sort order
	// Valid values: a (ascending), d (descending)
	SortOrder string `mapstructure:"sort_order" yaml:"sort_order" validate:"omitempty,oneof=a d"`

	// FavoritesPath is the logical path of the collection that receives
	// favorites (e.g. "lists/favorites"). Empty disables favorites.
	FavoritesPath string `mapstructure:"favorites_path" yaml:"favorites_path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the HTTP endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port of the metrics endpoint
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`

	// Host is the listen address of the metrics endpoint (e.g. "127.0.0.1").
	// Empty listens on all interfaces.
	Host string `mapstructure:"host" yaml:"host,omitempty" validate:"omitempty,hostname|ip"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOBROWSE_*)
//  2. Configuration file
//  3. Default values
//
// A missing configuration file is not an error: the defaults are returned.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the DITTOBROWSE_ prefix and underscores.
	// Example: DITTOBROWSE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTOBROWSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/dittobrowse/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittobrowse")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittobrowse")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
