// Package memory implements an in-memory folder.
//
// It serves three purposes:
//   - Ephemeral collections (favorites without a persistent store)
//   - Fixtures for tests and demos
//   - A controllable double for loader tests (call counting, fetch hooks)
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// FetchHook runs at the start of every GetFiles call. Returning an error fails
// the fetch; blocking on ctx simulates a slow provider.
type FetchHook func(ctx context.Context, req folder.ListRequest) error

// Config configures a MemoryFolder.
type Config struct {
	// Name and Path describe the folder itself.
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`

	// Sequential makes the folder cursor-addressable. Cursors are opaque
	// tokens that stay valid until the folder changes.
	Sequential bool `mapstructure:"sequential"`

	// ReportTotal makes every page carry the total item count.
	ReportTotal bool `mapstructure:"report_total"`

	// ReadOnly rejects AddItem/RemoveItem.
	ReadOnly bool `mapstructure:"read_only"`
}

// MemoryFolder implements folder.Folder over a slice held in memory.
//
// Implemented Interfaces:
//   - folder.Folder
//   - folder.InfoProvider
//   - folder.ParentPathProvider
//   - folder.SequentialFolder
//   - folder.Notifier
//   - folder.ItemStore
//
// Thread Safety:
// All operations are protected by a sync.RWMutex.
type MemoryFolder struct {
	cfg Config

	mu    sync.RWMutex
	items []folder.ContentInfo

	// cursors maps issued tokens to offsets. Cleared whenever items change.
	cursors map[string]int

	hook  FetchHook
	calls atomic.Int64

	subMu       sync.Mutex
	subscribers map[uint64]func()
	nextSub     uint64
}

// NewMemoryFolder creates a folder holding a copy of items.
func NewMemoryFolder(cfg Config, items ...folder.ContentInfo) *MemoryFolder {
	return &MemoryFolder{
		cfg:         cfg,
		items:       slices.Clone(items),
		cursors:     make(map[string]int),
		subscribers: make(map[uint64]func()),
	}
}

// ============================================================================
// Folder Interface Implementation
// ============================================================================

// GetFiles returns one page.
//
// Offset-addressable folders honor req.Offset. Sequential folders honor
// req.Cursor and reject tokens they did not issue with folder.ErrInvalidCursor.
func (f *MemoryFolder) GetFiles(ctx context.Context, req folder.ListRequest) (*folder.ListResult, error) {
	f.calls.Add(1)

	f.mu.RLock()
	hook := f.hook
	f.mu.RUnlock()

	if hook != nil {
		if err := hook(ctx, req); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	offset := req.Offset
	if f.cfg.Sequential {
		if req.Cursor != "" {
			o, ok := f.cursors[req.Cursor]
			if !ok {
				return nil, fmt.Errorf("memory folder %q cursor %q: %w", f.cfg.Path, req.Cursor, folder.ErrInvalidCursor)
			}
			offset = o
		} else {
			offset = 0
		}
	}

	items := slices.Clone(f.items)
	folder.SortItems(items, req.Options)
	res := folder.PageOf(items, offset, req.PageSize, f.cfg.ReportTotal)

	if f.cfg.Sequential && res.HasMore() {
		token := uuid.NewString()
		f.cursors[token] = offset + len(res.Items)
		res.Next = token
	}
	return res, nil
}

// GetInfo returns the configured name and path with the current item count.
func (f *MemoryFolder) GetInfo(ctx context.Context) (*folder.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	info := &folder.Info{
		Type: folder.TypeFolder,
		Name: f.cfg.Name,
		Path: f.cfg.Path,
		Size: folder.UnknownSize,
	}
	if f.cfg.ReportTotal {
		info.Size = len(f.items)
	}
	return info, nil
}

// ParentPath returns the parent of the configured path, or "" for roots.
func (f *MemoryFolder) ParentPath() string {
	return folder.ParentOf(f.cfg.Path)
}

// SequentialAccess reports whether the folder only supports cursor paging.
func (f *MemoryFolder) SequentialAccess() bool {
	return f.cfg.Sequential
}

// ============================================================================
// Mutation
// ============================================================================

// SetItems replaces the whole listing and notifies subscribers.
func (f *MemoryFolder) SetItems(items ...folder.ContentInfo) {
	f.mu.Lock()
	f.items = slices.Clone(items)
	clear(f.cursors)
	f.mu.Unlock()
	f.notify()
}

// AddItem appends item, replacing an existing item with the same name.
func (f *MemoryFolder) AddItem(ctx context.Context, item folder.ContentInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.cfg.ReadOnly {
		return fmt.Errorf("memory folder %q: %w", f.cfg.Path, folder.ErrReadOnly)
	}

	f.mu.Lock()
	if i := f.indexLocked(item.Name); i >= 0 {
		f.items[i] = item
	} else {
		f.items = append(f.items, item)
	}
	clear(f.cursors)
	f.mu.Unlock()

	f.notify()
	return nil
}

// RemoveItem removes the item with the same name as item.
func (f *MemoryFolder) RemoveItem(ctx context.Context, item folder.ContentInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.cfg.ReadOnly {
		return fmt.Errorf("memory folder %q: %w", f.cfg.Path, folder.ErrReadOnly)
	}

	f.mu.Lock()
	i := f.indexLocked(item.Name)
	if i < 0 {
		f.mu.Unlock()
		return fmt.Errorf("item %q: %w", item.Name, folder.ErrNotFound)
	}
	f.items = slices.Delete(f.items, i, i+1)
	clear(f.cursors)
	f.mu.Unlock()

	f.notify()
	return nil
}

func (f *MemoryFolder) indexLocked(name string) int {
	return slices.IndexFunc(f.items, func(it folder.ContentInfo) bool { return it.Name == name })
}

// ============================================================================
// Notification
// ============================================================================

// Subscribe registers fn to run after every mutation.
func (f *MemoryFolder) Subscribe(fn func()) func() {
	f.subMu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subscribers[id] = fn
	f.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.subMu.Lock()
			delete(f.subscribers, id)
			f.subMu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (f *MemoryFolder) Subscribers() int {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	return len(f.subscribers)
}

func (f *MemoryFolder) notify() {
	f.subMu.Lock()
	fns := make([]func(), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		fns = append(fns, fn)
	}
	f.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// ============================================================================
// Test Support
// ============================================================================

// SetFetchHook installs hook, replacing any previous one. nil removes it.
func (f *MemoryFolder) SetFetchHook(hook FetchHook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = hook
}

// Calls returns the number of GetFiles calls so far.
func (f *MemoryFolder) Calls() int {
	return int(f.calls.Load())
}

// Len returns the number of items.
func (f *MemoryFolder) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}
