// Package browser implements a browsing session over the registered sources.
//
// A Session shows one folder at a time through a loader. Activating an item
// either navigates (folders, lists, tags, archives) or starts playback with a
// cursor that walks the image, video and audio items of the folder. The session also keeps
// the sort selection and writes favorites to a configured collection.
package browser

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/pkg/cursor"
	"github.com/marmos91/dittobrowse/pkg/folder"
	"github.com/marmos91/dittobrowse/pkg/loader"
)

// SortFields lists the sort fields a session accepts, in menu order.
var SortFields = []string{
	folder.SortByName,
	folder.SortByUpdatedTime,
	folder.SortBySize,
	folder.SortByType,
}

// Opener resolves logical paths to folders. *registry.Registry implements it.
type Opener interface {
	Open(ctx context.Context, path string) (folder.Folder, folder.Location, error)
}

// Config configures a Session.
type Config struct {
	// Loader is the base loader configuration. Its Options are replaced by
	// the session's sort selection.
	Loader loader.Config

	// FavoritesPath is the logical path of a writable collection
	// (e.g. "lists/favorites"). Empty disables favorites.
	FavoritesPath string

	// SortField and SortOrder are the initial sort selection.
	SortField string
	SortOrder string
}

// ActivationKind tells what Activate did.
type ActivationKind int

const (
	// Navigated means the session now shows the activated container.
	Navigated ActivationKind = iota

	// Play means the item should be played; Cursor walks its neighbors.
	Play
)

// Activation is the result of Activate.
type Activation struct {
	Kind ActivationKind

	// Path is the folder opened (Navigated).
	Path string

	// Item is the item to play, with thumbnail substitution applied (Play).
	Item *folder.ContentInfo

	// Cursor is positioned on Item and moves between image, video and audio
	// items only (Play).
	Cursor *cursor.Cursor
}

// Session is one browsing window.
//
// Thread Safety:
// Safe for concurrent use. Navigation calls replace the loader atomically;
// a cursor returned by Activate keeps using the loader it was created with.
type Session struct {
	opener Opener
	cfg    Config

	mu        sync.Mutex
	path      string
	loader    loader.Loader
	current   folder.ContentInfo
	sortField string
	sortOrder string
	onUpdate  func()
}

// New creates a session. Call Open to show a folder.
func New(opener Opener, cfg Config) *Session {
	return &Session{
		opener:    opener,
		cfg:       cfg,
		sortField: cfg.SortField,
		sortOrder: cfg.SortOrder,
	}
}

// ============================================================================
// Navigation
// ============================================================================

// Open shows the folder at path, replacing the current one.
//
// The folder metadata is fetched right away to name the session; a metadata
// failure is logged and the path is used as the name.
func (s *Session) Open(ctx context.Context, path string) error {
	f, loc, err := s.opener.Open(ctx, path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	cfg := s.cfg.Loader
	cfg.Options = folder.Options{SortField: s.sortField, SortOrder: s.sortOrder}
	s.mu.Unlock()

	l := loader.New(f, loc.Path(), cfg)
	current := folder.ContentInfo{Type: folder.TypeFolder, Path: loc.Path(), Name: loc.Path()}

	info, err := l.GetInfo(ctx)
	if err != nil {
		logger.Warn("Browser: info for %q: %v", loc.Path(), err)
	} else {
		current.Name = info.Name
		current.Thumbnail = info.Thumbnail
	}

	s.mu.Lock()
	old := s.loader
	s.path = loc.Path()
	s.loader = l
	s.current = current
	s.mu.Unlock()

	if old != nil {
		old.SetOnUpdate(nil)
		old.Close()
	}
	l.SetOnUpdate(s.relay)

	logger.Debug("Browser: opened %q (%d items known)", loc.Path(), l.Size())
	s.relay()
	return nil
}

// Activate acts on the item at position.
//
// Containers (folder, list, tag) and archives are opened in place, using the
// item's Path or else the current path joined with its name. Every other item
// is returned for playback; items without content but with a thumbnail URL
// are played as their thumbnail.
func (s *Session) Activate(ctx context.Context, position int) (*Activation, error) {
	s.mu.Lock()
	l, path := s.loader, s.path
	s.mu.Unlock()
	if l == nil {
		return nil, fmt.Errorf("no folder open: %w", folder.ErrNotFound)
	}

	item, err := l.Get(ctx, position)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("no item at %d: %w", position, folder.ErrNotFound)
	}

	if folder.IsContainer(item.Type) || item.Type == folder.TypeArchive {
		target := item.Path
		if target == "" {
			target = folder.JoinPath(path, item.Name)
		}
		if err := s.Open(ctx, target); err != nil {
			return nil, err
		}
		return &Activation{Kind: Navigated, Path: s.Path()}, nil
	}

	play := *item
	if sub, ok := folder.PlayableThumbnail(play); ok {
		play = sub
	}
	return &Activation{
		Kind:   Play,
		Item:   &play,
		Cursor: cursor.New(l, position, cursor.Media()),
	}, nil
}

// Parent opens the parent of the current folder, or the root.
func (s *Session) Parent(ctx context.Context) error {
	s.mu.Lock()
	l, path := s.loader, s.path
	s.mu.Unlock()

	parent := folder.ParentOf(path)
	if l != nil {
		if p, ok := l.Folder().(folder.ParentPathProvider); ok {
			parent = p.ParentPath()
		}
	}
	return s.Open(ctx, parent)
}

// Sort selects a sort field and reopens the current folder. Choosing the
// field that is already sorted ascending flips it to descending; anything
// else sorts ascending.
func (s *Session) Sort(ctx context.Context, field string) error {
	if !slices.Contains(SortFields, field) {
		return fmt.Errorf("unknown sort field %q", field)
	}

	s.mu.Lock()
	order := folder.SortAscending
	if s.sortField == field && s.sortOrder == folder.SortAscending {
		order = folder.SortDescending
	}
	s.sortField, s.sortOrder = field, order
	path := s.path
	s.mu.Unlock()

	return s.Open(ctx, path)
}

// Reload drops every cached item of the current folder.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	l := s.loader
	s.mu.Unlock()
	if l == nil {
		return nil
	}
	return l.Invalidate(ctx)
}

// ============================================================================
// Favorites
// ============================================================================

// AddFavorite stores the current folder in the favorites collection.
func (s *Session) AddFavorite(ctx context.Context) error {
	store, item, err := s.favorites(ctx)
	if err != nil {
		return err
	}
	return store.AddItem(ctx, item)
}

// RemoveFavorite removes the current folder from the favorites collection.
func (s *Session) RemoveFavorite(ctx context.Context) error {
	store, item, err := s.favorites(ctx)
	if err != nil {
		return err
	}
	return store.RemoveItem(ctx, item)
}

func (s *Session) favorites(ctx context.Context) (folder.ItemStore, folder.ContentInfo, error) {
	if s.cfg.FavoritesPath == "" {
		return nil, folder.ContentInfo{}, fmt.Errorf("favorites: %w", folder.ErrNotSupported)
	}

	f, _, err := s.opener.Open(ctx, s.cfg.FavoritesPath)
	if err != nil {
		return nil, folder.ContentInfo{}, fmt.Errorf("open favorites: %w", err)
	}
	store, ok := f.(folder.ItemStore)
	if !ok {
		return nil, folder.ContentInfo{}, fmt.Errorf("favorites %q: %w", s.cfg.FavoritesPath, folder.ErrNotSupported)
	}
	return store, s.Current(), nil
}

// ============================================================================
// State
// ============================================================================

// Path returns the logical path of the current folder.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Title returns the display name of the current folder.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Name
}

// Current returns the current folder as an item (what AddFavorite stores).
func (s *Session) Current() folder.ContentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Loader returns the loader of the current folder, or nil before Open.
func (s *Session) Loader() loader.Loader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loader
}

// SortSelection returns the current sort field and order.
func (s *Session) SortSelection() (field, order string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortField, s.sortOrder
}

// SetOnUpdate installs the callback run after every Open and whenever the
// current loader reports new or invalidated items. nil removes it.
func (s *Session) SetOnUpdate(fn func()) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

func (s *Session) relay() {
	s.mu.Lock()
	fn := s.onUpdate
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Close releases the current loader.
func (s *Session) Close() {
	s.mu.Lock()
	l := s.loader
	s.loader = nil
	s.mu.Unlock()

	if l != nil {
		l.SetOnUpdate(nil)
		l.Close()
	}
}
