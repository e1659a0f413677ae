package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/dittobrowse/pkg/folder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProvider_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &SourceConfig{
		Name: "demo",
		Type: SourceMemory,
		Memory: map[string]any{
			"name":         "Demo",
			"report_total": "true",
			"items": []any{
				map[string]any{"name": "beach.jpg", "url": "https://example.com/beach.jpg", "size": 1024},
				map[string]any{"name": "album", "type": folder.TypeFolder, "path": "photos/album"},
				map[string]any{"name": "clip", "type": "video/mp4", "updated_time": "2024-06-01T10:00:00Z"},
			},
		},
	}

	p, err := CreateProvider(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	f, err := p.Open(ctx, folder.Location{Source: "demo"})
	require.NoError(t, err)

	res, err := f.GetFiles(ctx, folder.ListRequest{PageSize: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, 3, res.Total)

	assert.Equal(t, "image/jpeg", res.Items[0].Type, "type is guessed from the name")
	assert.Equal(t, int64(1024), res.Items[0].Size)
	assert.Equal(t, folder.SourceURL, res.Items[0].Content.Kind)
	assert.Equal(t, "photos/album", res.Items[1].Path)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), res.Items[2].UpdatedTime.UTC())
}

func TestCreateProvider_MemoryInvalidItem(t *testing.T) {
	cfg := &SourceConfig{
		Name:   "demo",
		Type:   SourceMemory,
		Memory: map[string]any{"items": []any{map[string]any{"type": "image/png"}}},
	}

	_, err := CreateProvider(context.Background(), cfg)
	assert.ErrorContains(t, err, "required", "items need a name")
}

func TestCreateProvider_Filesystem(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.png"), []byte("png"), 0644))

	p, err := CreateProvider(ctx, &SourceConfig{
		Name:       "local",
		Type:       SourceFilesystem,
		Filesystem: map[string]any{"root": root},
	})
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	f, err := p.Open(ctx, folder.Location{Source: "local"})
	require.NoError(t, err)
	res, err := f.GetFiles(ctx, folder.ListRequest{PageSize: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "a.png", res.Items[0].Name)
}

func TestCreateProvider_FilesystemMissingRoot(t *testing.T) {
	_, err := CreateProvider(context.Background(), &SourceConfig{
		Name:       "local",
		Type:       SourceFilesystem,
		Filesystem: map[string]any{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Root")
}

func TestCreateProvider_Badger(t *testing.T) {
	ctx := context.Background()
	p, err := CreateProvider(ctx, &SourceConfig{
		Name:   "lists",
		Type:   SourceBadger,
		Badger: map[string]any{"in_memory": true, "collections": []any{"favorites"}},
	})
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	f, err := p.Open(ctx, folder.Location{Source: "lists", Sub: "favorites"})
	require.NoError(t, err)
	_, ok := f.(folder.ItemStore)
	assert.True(t, ok)
}

func TestCreateProvider_BadgerRequiresPath(t *testing.T) {
	_, err := CreateProvider(context.Background(), &SourceConfig{
		Name:   "lists",
		Type:   SourceBadger,
		Badger: map[string]any{},
	})
	assert.ErrorContains(t, err, "required_without")
}

func TestCreateProvider_HTTPDecodesDurations(t *testing.T) {
	_, err := CreateProvider(context.Background(), &SourceConfig{
		Name: "api",
		Type: SourceHTTP,
		HTTP: map[string]any{"base_url": "https://media.example.com/api", "timeout": "15s", "retry_max": "2"},
	})
	require.NoError(t, err)

	_, err = CreateProvider(context.Background(), &SourceConfig{
		Name: "api",
		Type: SourceHTTP,
		HTTP: map[string]any{"base_url": "not a url"},
	})
	assert.Error(t, err)
}

func TestCreateProvider_S3RequiresBucket(t *testing.T) {
	_, err := CreateProvider(context.Background(), &SourceConfig{
		Name: "cloud",
		Type: SourceS3,
		S3:   map[string]any{"region": "eu-west-1"},
	})
	assert.ErrorContains(t, err, "Bucket")
}

func TestCreateProvider_AzureRequiresContainer(t *testing.T) {
	_, err := CreateProvider(context.Background(), &SourceConfig{
		Name:  "blobs",
		Type:  SourceAzure,
		Azure: map[string]any{"account_name": "media"},
	})
	assert.ErrorContains(t, err, "Container")
}

func TestCreateProvider_UnknownType(t *testing.T) {
	_, err := CreateProvider(context.Background(), &SourceConfig{Name: "x", Type: "ftp"})
	assert.ErrorContains(t, err, "unknown source type")
}

func TestCreateProvider_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CreateProvider(ctx, &SourceConfig{Name: "demo", Type: SourceMemory})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInitializeRegistry(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Sources: []SourceConfig{
			{Name: "local", Type: SourceFilesystem, Filesystem: map[string]any{"root": t.TempDir()}},
			{Name: "scratch", Type: SourceMemory, RateLimit: RateLimitConfig{RequestsPerSecond: 10}},
		},
	}
	ApplyDefaults(cfg)
	require.NoError(t, Validate(cfg))

	reg, err := InitializeRegistry(ctx, cfg, nil)
	require.NoError(t, err)
	defer func() { _ = reg.Close() }()

	assert.Equal(t, []string{"local", "scratch"}, reg.ListSources())

	_, loc, err := reg.Open(ctx, "scratch")
	require.NoError(t, err)
	assert.Equal(t, "scratch", loc.Source)
}

func TestInitializeRegistry_FailingSource(t *testing.T) {
	cfg := &Config{
		Sources: []SourceConfig{
			{Name: "scratch", Type: SourceMemory},
			{Name: "broken", Type: SourceFilesystem, Filesystem: map[string]any{"root": filepath.Join(t.TempDir(), "missing")}},
		},
	}

	_, err := InitializeRegistry(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"broken"`)
}

func TestSessionConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	sc := cfg.SessionConfig(nil)
	assert.Equal(t, cfg.Loader.PageSize, sc.Loader.PageSize)
	assert.Equal(t, cfg.Loader.SequentialPageSize, sc.Loader.SequentialPageSize)
	assert.Equal(t, "lists/favorites", sc.FavoritesPath)
	assert.Equal(t, folder.SortByName, sc.SortField)
	assert.Equal(t, folder.SortAscending, sc.SortOrder)
}

func TestServerConfig_PassesHost(t *testing.T) {
	sc := serverConfig(MetricsConfig{Enabled: true, Host: "127.0.0.1", Port: 9300})
	assert.Equal(t, "127.0.0.1", sc.Host)
	assert.Equal(t, 9300, sc.Port)
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	res := InitializeMetrics(GetDefaultConfig())
	assert.Nil(t, res.Server)
	assert.Nil(t, res.Loader)
	assert.Nil(t, res.Sources)
}
