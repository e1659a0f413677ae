// Package registry manages the named storage sources and resolves logical
// paths ("source/sub/path") to folders.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/internal/ratelimiter"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// Registry manages all named sources. It provides thread-safe registration
// and lookup, and opens folders by logical path.
//
// The empty path is the root: a virtual folder listing every source.
//
// Example usage:
//
//	reg := NewRegistry()
//	reg.AddSource(&SourceConfig{Name: "local", Type: "filesystem", Provider: fsProvider})
//	reg.AddSource(&SourceConfig{Name: "cloud", Type: "s3", Provider: s3Provider, RequestsPerSecond: 5})
//
//	f, loc, _ := reg.Open(ctx, "cloud/2024/summer")
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*Source
	metrics Metrics

	subMu   sync.Mutex
	subs    map[uint64]func()
	nextSub uint64
}

// Metrics observes the requests sent to each source.
//
// This is optional. pkg/metrics provides a Prometheus implementation.
type Metrics interface {
	// ObserveRequest records one page fetch of a source, including the time
	// spent waiting for the source's rate limiter.
	ObserveRequest(source string, items int, duration time.Duration, err error)

	// RecordSources records the number of registered sources.
	RecordSources(count int)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]*Source),
		subs:    make(map[uint64]func()),
	}
}

// SetMetrics installs m for folders opened from now on. nil disables
// collection.
func (r *Registry) SetMetrics(m Metrics) {
	r.mu.Lock()
	r.metrics = m
	count := len(r.sources)
	r.mu.Unlock()

	if m != nil {
		m.RecordSources(count)
	}
}

// AddSource registers a new source.
//
// Returns an error if:
// - The name is empty or contains "/"
// - The provider is nil
// - A source with the same name already exists
func (r *Registry) AddSource(config *SourceConfig) error {
	if config.Name == "" {
		return fmt.Errorf("cannot add source with empty name")
	}
	if strings.Contains(config.Name, "/") {
		return fmt.Errorf("source name %q must not contain '/'", config.Name)
	}
	if config.Provider == nil {
		return fmt.Errorf("cannot add source %q with nil provider", config.Name)
	}

	r.mu.Lock()
	if _, exists := r.sources[config.Name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("source %q already exists", config.Name)
	}

	src := &Source{
		Name:     config.Name,
		Type:     config.Type,
		Provider: config.Provider,
	}
	if config.RequestsPerSecond > 0 {
		src.limiter = ratelimiter.New(config.RequestsPerSecond, config.Burst)
	}
	r.sources[config.Name] = src
	count, m := len(r.sources), r.metrics
	r.mu.Unlock()

	if m != nil {
		m.RecordSources(count)
	}
	logger.Debug("Registered source %q (type %s)", config.Name, config.Type)
	r.notify()
	return nil
}

// RemoveSource removes a source from the registry and returns it.
// Note: This does NOT close the provider; the caller owns it from now on.
func (r *Registry) RemoveSource(name string) (*Source, error) {
	r.mu.Lock()
	src, exists := r.sources[name]
	if !exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("source %q: %w", name, folder.ErrNotFound)
	}
	delete(r.sources, name)
	count, m := len(r.sources), r.metrics
	r.mu.Unlock()

	if m != nil {
		m.RecordSources(count)
	}
	r.notify()
	return src, nil
}

// GetSource retrieves a source by name.
func (r *Registry) GetSource(name string) (*Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, exists := r.sources[name]
	if !exists {
		return nil, fmt.Errorf("source %q: %w", name, folder.ErrNotFound)
	}
	return src, nil
}

// ListSources returns all source names in sorted order.
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CountSources returns the number of registered sources.
func (r *Registry) CountSources() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// Open resolves a logical path to a folder.
//
// The first path element names the source; the rest is passed to its
// provider. Folders of rate-limited sources share the source's budget.
//
// Returns:
//   - folder.Folder: The opened folder
//   - folder.Location: The normalized location of the folder
//   - error: Unknown source (folder.ErrNotFound) or provider failure
func (r *Registry) Open(ctx context.Context, path string) (folder.Folder, folder.Location, error) {
	loc := folder.SplitPath(path)
	if loc.Source == "" {
		return &rootFolder{registry: r}, loc, nil
	}

	src, err := r.GetSource(loc.Source)
	if err != nil {
		return nil, loc, err
	}

	f, err := src.Provider.Open(ctx, loc)
	if err != nil {
		return nil, loc, fmt.Errorf("open %q: %w", loc.Path(), err)
	}

	r.mu.RLock()
	m := r.metrics
	r.mu.RUnlock()

	var observe folder.ObserveFunc
	if m != nil {
		name := src.Name
		observe = func(items int, duration time.Duration, err error) {
			m.ObserveRequest(name, items, duration, err)
		}
	}
	return folder.Instrument(f, src.limiter, observe), loc, nil
}

// Close closes every provider and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	sources := r.sources
	r.sources = make(map[string]*Source)
	r.mu.Unlock()

	var errs []error
	for name, src := range sources {
		if err := src.Provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe runs fn whenever a source is added or removed.
func (r *Registry) Subscribe(fn func()) func() {
	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.subMu.Lock()
			delete(r.subs, id)
			r.subMu.Unlock()
		})
	}
}

func (r *Registry) notify() {
	r.subMu.Lock()
	fns := make([]func(), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// ============================================================================
// Root Folder
// ============================================================================

// rootFolder lists the sources.
//
// Implemented Interfaces:
//   - folder.Folder
//   - folder.InfoProvider
//   - folder.ParentPathProvider
//   - folder.Notifier
type rootFolder struct {
	registry *Registry
}

func (f *rootFolder) GetFiles(ctx context.Context, req folder.ListRequest) (*folder.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	offset, err := folder.RequestOffset(req)
	if err != nil {
		return nil, err
	}

	names := f.registry.ListSources()
	items := make([]folder.ContentInfo, 0, len(names))
	for _, name := range names {
		items = append(items, folder.ContentInfo{
			Name: name,
			Type: folder.TypeFolder,
			Size: folder.UnknownSize,
			Path: name,
		})
	}
	folder.SortItems(items, req.Options)
	return folder.PageOf(items, offset, req.PageSize, true), nil
}

func (f *rootFolder) GetInfo(ctx context.Context) (*folder.Info, error) {
	return &folder.Info{
		Type: folder.TypeFolder,
		Name: "",
		Path: "",
		Size: f.registry.CountSources(),
	}, nil
}

// ParentPath is "": the root has no parent.
func (f *rootFolder) ParentPath() string {
	return ""
}

func (f *rootFolder) Subscribe(fn func()) func() {
	return f.registry.Subscribe(fn)
}
