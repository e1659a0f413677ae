package config

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/pkg/folder"
	"github.com/marmos91/dittobrowse/pkg/folder/azure"
	"github.com/marmos91/dittobrowse/pkg/folder/badger"
	"github.com/marmos91/dittobrowse/pkg/folder/fs"
	"github.com/marmos91/dittobrowse/pkg/folder/httpapi"
	"github.com/marmos91/dittobrowse/pkg/folder/memory"
	"github.com/marmos91/dittobrowse/pkg/folder/s3"
	"github.com/mitchellh/mapstructure"
)

// CreateProvider creates the provider of a source based on configuration.
//
// This factory function uses the Type field to determine which provider
// implementation to create, then decodes the type-specific configuration from
// the corresponding map and passes it to the provider's constructor.
//
// Supported types:
//   - "memory": pkg/folder/memory (in-memory list, optionally seeded with items)
//   - "filesystem": pkg/folder/fs (local directory tree)
//   - "s3": pkg/folder/s3 (Amazon S3 or compatible storage)
//   - "azure": pkg/folder/azure (Azure Blob Storage container)
//   - "http": pkg/folder/httpapi (JSON listing API)
//   - "badger": pkg/folder/badger (persistent collections)
//
// Parameters:
//   - ctx: Context for initialization operations (bucket/container checks)
//   - cfg: Source configuration
//
// Returns:
//   - folder.Provider: Initialized provider
//   - error: Configuration or initialization error
func CreateProvider(ctx context.Context, cfg *SourceConfig) (folder.Provider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SourceMemory:
		return createMemoryProvider(cfg.Memory)
	case SourceFilesystem:
		return createFilesystemProvider(ctx, cfg.Filesystem)
	case SourceS3:
		return createS3Provider(ctx, cfg.S3)
	case SourceAzure:
		return createAzureProvider(ctx, cfg.Azure)
	case SourceHTTP:
		return createHTTPProvider(cfg.HTTP)
	case SourceBadger:
		return createBadgerProvider(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown source type: %q", cfg.Type)
	}
}

// decodeOptions decodes a type-specific section into out and validates it.
//
// Input is weakly typed so that values coming from environment variables
// ("true", "30") decode into their target types. Durations accept Go
// duration strings ("30s") and times accept RFC 3339.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(options); err != nil {
		return err
	}
	if err := validate.Struct(out); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// memoryItemConfig seeds a memory source with one item.
type memoryItemConfig struct {
	Name        string    `mapstructure:"name" validate:"required"`
	Type        string    `mapstructure:"type"`
	Size        int64     `mapstructure:"size"`
	Path        string    `mapstructure:"path"`
	URL         string    `mapstructure:"url"`
	Thumbnail   string    `mapstructure:"thumbnail_url"`
	UpdatedTime time.Time `mapstructure:"updated_time"`
}

// createMemoryProvider creates an in-memory list.
func createMemoryProvider(options map[string]any) (folder.Provider, error) {
	type MemorySourceConfig struct {
		memory.Config `mapstructure:",squash"`
		Items         []memoryItemConfig `mapstructure:"items" validate:"dive"`
	}

	var srcCfg MemorySourceConfig
	if err := decodeOptions(options, &srcCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory source config: %w", err)
	}

	items := make([]folder.ContentInfo, 0, len(srcCfg.Items))
	for _, it := range srcCfg.Items {
		item := folder.ContentInfo{
			Name:        it.Name,
			Type:        it.Type,
			Size:        it.Size,
			Path:        it.Path,
			UpdatedTime: it.UpdatedTime,
		}
		if item.Type == "" {
			item.Type = folder.TypeByExtension(it.Name)
		}
		if it.URL != "" {
			item.Content = folder.URLSource(it.URL)
		}
		if it.Thumbnail != "" {
			item.Thumbnail = folder.URLSource(it.Thumbnail)
		}
		items = append(items, item)
	}

	return memory.NewProvider(srcCfg.Config, items...), nil
}

// createFilesystemProvider creates a provider over a local directory.
func createFilesystemProvider(ctx context.Context, options map[string]any) (folder.Provider, error) {
	var fsCfg fs.Config
	if err := decodeOptions(options, &fsCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem source config: %w", err)
	}

	provider, err := fs.NewProvider(ctx, fsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem provider: %w", err)
	}
	return provider, nil
}

// createS3Provider creates a provider over an S3 bucket.
func createS3Provider(ctx context.Context, options map[string]any) (folder.Provider, error) {
	var clientCfg s3.ClientConfig
	if err := decodeOptions(options, &clientCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 source config: %w", err)
	}

	// ========================================================================
	// Step 1: Create S3 Client
	// ========================================================================

	client, err := s3.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Create S3 Provider
	// ========================================================================

	provider, err := s3.NewProvider(ctx, s3.ProviderConfig{
		Client:    client,
		Bucket:    clientCfg.Bucket,
		KeyPrefix: clientCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 provider: %w", err)
	}

	logger.Info("S3 source initialized: bucket=%s, region=%s, prefix=%s",
		clientCfg.Bucket, clientCfg.Region, clientCfg.KeyPrefix)

	return provider, nil
}

// createAzureProvider creates a provider over an Azure Blob Storage container.
func createAzureProvider(ctx context.Context, options map[string]any) (folder.Provider, error) {
	var clientCfg azure.ClientConfig
	if err := decodeOptions(options, &clientCfg); err != nil {
		return nil, fmt.Errorf("failed to decode azure source config: %w", err)
	}

	client, err := azure.NewClient(clientCfg)
	if err != nil {
		return nil, err
	}

	provider, err := azure.NewProvider(ctx, client, clientCfg.Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure provider: %w", err)
	}

	logger.Info("Azure source initialized: container=%s, prefix=%s", clientCfg.Container, clientCfg.Prefix)
	return provider, nil
}

// createHTTPProvider creates a provider over a JSON listing API.
func createHTTPProvider(options map[string]any) (folder.Provider, error) {
	var httpCfg httpapi.Config
	if err := decodeOptions(options, &httpCfg); err != nil {
		return nil, fmt.Errorf("failed to decode http source config: %w", err)
	}

	provider, err := httpapi.NewProvider(httpCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create http provider: %w", err)
	}
	return provider, nil
}

// createBadgerProvider creates a provider over BadgerDB collections.
func createBadgerProvider(ctx context.Context, options map[string]any) (folder.Provider, error) {
	var badgerCfg badger.Config
	if err := decodeOptions(options, &badgerCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger source config: %w", err)
	}

	provider, err := badger.NewProvider(ctx, badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger provider: %w", err)
	}
	return provider, nil
}
