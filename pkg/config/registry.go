package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/pkg/browser"
	"github.com/marmos91/dittobrowse/pkg/loader"
	"github.com/marmos91/dittobrowse/pkg/registry"
)

// InitializeRegistry creates a fully configured Registry from the provided configuration.
//
// Every source is created through CreateProvider and added with its rate
// limit. If any source fails, the providers created so far are closed.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Complete configuration loaded from config file
//   - m: Optional source metrics (nil = no metrics)
//
// Returns:
//   - *registry.Registry: Fully initialized registry
//   - error: If a provider cannot be created or a source is rejected
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	reg, err := config.InitializeRegistry(ctx, cfg, nil)
//	if err != nil {
//	    log.Fatalf("Failed to initialize registry: %v", err)
//	}
func InitializeRegistry(ctx context.Context, cfg *Config, m registry.Metrics) (*registry.Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no sources configured: at least one source is required")
	}

	logger.Debug("Initializing registry from configuration")

	reg := registry.NewRegistry()
	if m != nil {
		reg.SetMetrics(m)
	}

	for i := range cfg.Sources {
		srcCfg := &cfg.Sources[i]
		logger.Debug("Creating source %q (type: %s)", srcCfg.Name, srcCfg.Type)

		provider, err := CreateProvider(ctx, srcCfg)
		if err != nil {
			_ = reg.Close()
			return nil, fmt.Errorf("failed to create source %q: %w", srcCfg.Name, err)
		}

		err = reg.AddSource(&registry.SourceConfig{
			Name:              srcCfg.Name,
			Type:              srcCfg.Type,
			Provider:          provider,
			RequestsPerSecond: srcCfg.RateLimit.RequestsPerSecond,
			Burst:             srcCfg.RateLimit.Burst,
		})
		if err != nil {
			_ = provider.Close()
			_ = reg.Close()
			return nil, fmt.Errorf("failed to add source %q: %w", srcCfg.Name, err)
		}
	}

	logger.Debug("Registered %d source(s)", reg.CountSources())
	return reg, nil
}

// LoaderSettings converts the loader section into a loader configuration.
// m may be nil.
func (c *Config) LoaderSettings(m loader.Metrics) loader.Config {
	return loader.Config{
		PageSize:           c.Loader.PageSize,
		MaxResidentPages:   c.Loader.MaxResidentPages,
		SequentialPageSize: c.Loader.SequentialPageSize,
		Metrics:            m,
	}
}

// SessionConfig returns the browser session configuration. m may be nil.
func (c *Config) SessionConfig(m loader.Metrics) browser.Config {
	return browser.Config{
		Loader:        c.LoaderSettings(m),
		FavoritesPath: c.Browse.FavoritesPath,
		SortField:     c.Browse.SortField,
		SortOrder:     c.Browse.SortOrder,
	}
}
