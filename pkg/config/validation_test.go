package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidSourceType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Sources[0].Type = "ftp"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid source type")
	}
	if !strings.Contains(err.Error(), "Sources[0].Type") {
		t.Errorf("Expected error to name the field, got: %v", err)
	}
}

func TestValidate_SourceNameWithSlash(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Sources[0].Name = "media/photos"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for a source name containing '/'")
	}
	if !strings.Contains(err.Error(), "excludesall") {
		t.Errorf("Expected 'excludesall' validation error, got: %v", err)
	}
}

func TestValidate_EmptySourceName(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Sources[0].Name = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for empty source name")
	}
}

func TestValidate_NoSources(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Sources = nil
	cfg.Browse.FavoritesPath = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error when no sources are configured")
	}
	if !strings.Contains(err.Error(), "at least one source") {
		t.Errorf("Expected 'at least one source' error, got: %v", err)
	}
}

func TestValidate_DuplicateSourceNames(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Sources[1].Name = cfg.Sources[0].Name

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for duplicate source names")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Expected 'duplicate' error, got: %v", err)
	}
}

func TestValidate_FavoritesSourceMustExist(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Browse.FavoritesPath = "missing/favorites"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for favorites in an unknown source")
	}
	if !strings.Contains(err.Error(), "favorites_path") {
		t.Errorf("Expected 'favorites_path' error, got: %v", err)
	}
}

func TestValidate_InvalidSort(t *testing.T) {
	tests := []struct {
		name  string
		field string
		order string
	}{
		{"unknown field", "color", "a"},
		{"unknown order", "name", "up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Browse.SortField = tt.field
			cfg.Browse.SortOrder = tt.order

			if err := Validate(cfg); err == nil {
				t.Fatal("Expected validation error")
			}
		})
	}
}

func TestValidate_InvalidLoaderSizes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LoaderConfig)
	}{
		{"zero page size", func(c *LoaderConfig) { c.PageSize = 0 }},
		{"negative resident pages", func(c *LoaderConfig) { c.MaxResidentPages = -1 }},
		{"zero sequential page size", func(c *LoaderConfig) { c.SequentialPageSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg.Loader)

			if err := Validate(cfg); err == nil {
				t.Fatal("Expected validation error")
			}
		})
	}
}

func TestValidate_InvalidMetricsPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Port = 70000

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for port above 65535")
	}
}

func TestValidate_MetricsHost(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Host = "127.0.0.1"
	if err := Validate(cfg); err != nil {
		t.Fatalf("Expected an IP host to validate, got %v", err)
	}

	cfg.Metrics.Host = "not a host!"
	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for a malformed metrics host")
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	levels := []string{"debug", "INFO", "Warn", "error"}

	for _, level := range levels {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level
		ApplyDefaults(cfg)

		if err := Validate(cfg); err != nil {
			t.Errorf("Level %q should be valid after normalization, got: %v", level, err)
		}
	}
}
