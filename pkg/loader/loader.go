// Package loader hides folder fetch latency behind bounded, cancellable
// caches.
//
// Two loaders exist:
//   - CachedFolderLoader: random access over offset-addressable folders,
//     backed by a bounded LRU page cache with single-flight fetches and
//     cancellation of evicted in-flight pages.
//   - ArrayFolderLoader: forward-only access over cursor-addressable folders,
//     accumulating every fetched item in an append-only sequence.
//
// New picks the right one for a folder.
package loader

import (
	"context"

	"github.com/marmos91/dittobrowse/pkg/folder"
	"github.com/marmos91/dittobrowse/pkg/loader/pagecache"
)

// Default sizing.
const (
	DefaultPageSize           = 40
	DefaultMaxResidentPages   = pagecache.DefaultMaxPages
	DefaultSequentialPageSize = 200
)

// Loader exposes a folder item by item.
//
// Thread Safety:
// All methods are safe for concurrent use. Concurrent Get calls for items of
// the same not-yet-fetched page share a single fetch.
type Loader interface {
	// Get returns the item at position.
	//
	// Returns:
	//   - item, nil: the item
	//   - nil, nil: the position is in range but the page holds no such item
	//   - nil, error: folder.ErrOutOfRange when position < 0 or position >= a
	//     known size; a folder.ErrFetchFailed error when the fetch failed
	Get(ctx context.Context, position int) (*folder.ContentInfo, error)

	// GetInfo fetches the first page if needed and returns the folder
	// metadata, with folder-supplied fields taking precedence.
	GetInfo(ctx context.Context) (*folder.Info, error)

	// Size returns the known item count, or folder.UnknownSize. Without a
	// total from the folder it is a lower bound that grows as pages arrive.
	Size() int

	// SetOnUpdate installs the update callback, replacing any previous one.
	// It runs after invalidations and, for sequential loaders, after every
	// appended page. nil removes it.
	SetOnUpdate(fn func())

	// Invalidate discards every cached item, cancelling pending fetches, and
	// re-derives the size from the folder metadata when available.
	Invalidate(ctx context.Context) error

	// Reset is Invalidate plus forgetting size and representative thumbnail.
	Reset()

	// Close cancels pending fetches and detaches from folder notifications.
	Close()

	// Folder returns the backing folder.
	Folder() folder.Folder

	// Path returns the path the loader was opened for.
	Path() string
}

// Config controls loader sizing and behavior.
type Config struct {
	// PageSize is the page size of random-access loaders.
	PageSize int

	// MaxResidentPages bounds the page cache of random-access loaders.
	MaxResidentPages int

	// SequentialPageSize is the page size of sequential loaders.
	SequentialPageSize int

	// Options are passed through to every fetch.
	Options folder.Options

	// Metrics collects loader metrics. nil disables collection.
	Metrics Metrics
}

// DefaultConfig returns the stock loader configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:           DefaultPageSize,
		MaxResidentPages:   DefaultMaxResidentPages,
		SequentialPageSize: DefaultSequentialPageSize,
	}
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxResidentPages <= 0 {
		c.MaxResidentPages = DefaultMaxResidentPages
	}
	if c.SequentialPageSize <= 0 {
		c.SequentialPageSize = DefaultSequentialPageSize
	}
	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
}

// New creates the loader suited to f: an ArrayFolderLoader for sequential
// (cursor-addressable) folders, a CachedFolderLoader otherwise.
func New(f folder.Folder, path string, cfg Config) Loader {
	if folder.IsSequential(f) {
		return NewArrayFolderLoader(f, path, cfg)
	}
	return NewCachedFolderLoader(f, path, cfg)
}
