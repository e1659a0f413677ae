// Package badger implements persistent item collections (favorites, tag
// lists) stored in BadgerDB.
//
// One database holds any number of named collections. The provider root lists
// the collections; each collection is an offset-addressable folder whose
// items keep insertion order and that reports its total. Collections are
// writable through folder.ItemStore and signal changes through
// folder.Notifier.
package badger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// Config configures a badger collection provider.
type Config struct {
	// DBPath is the directory where BadgerDB stores its files.
	// Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path" validate:"required_without=InMemory"`

	// InMemory keeps the database in memory (tests, demos).
	InMemory bool `mapstructure:"in_memory"`

	// Collections are created at startup if missing.
	Collections []string `mapstructure:"collections"`

	// ReadOnly rejects AddItem/RemoveItem.
	ReadOnly bool `mapstructure:"read_only"`
}

// Provider exposes the collections of one database.
//
// Thread Safety:
// BadgerDB transactions serialize writers. The provider only adds a mutex
// for its subscriber table.
type Provider struct {
	db       *badger.DB
	readOnly bool

	subMu   sync.Mutex
	subs    map[string]map[uint64]func()
	nextSub uint64
}

// NewProvider opens the database and creates the configured collections.
//
// Parameters:
//   - ctx: Context for cancellation (checked before opening the database)
//   - cfg: Provider configuration
//
// Returns:
//   - *Provider: Initialized provider (Close releases the database)
//   - error: Invalid collection name, database open failure, or context
//     cancelled
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, name := range cfg.Collections {
		if err := validateName(name); err != nil {
			return nil, err
		}
	}

	opts := badger.DefaultOptions(cfg.DBPath)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING) // Reduce log noise
	opts = opts.WithCompression(options.None)    // Records are small

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	p := &Provider{
		db:       db,
		readOnly: cfg.ReadOnly,
		subs:     make(map[string]map[uint64]func()),
	}

	if len(cfg.Collections) > 0 {
		err = db.Update(func(txn *badger.Txn) error {
			for _, name := range cfg.Collections {
				if err := txn.Set(keyCollection(name), nil); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create collections: %w", err)
		}
	}
	return p, nil
}

// Open returns the root (list of collections) or one collection.
func (p *Provider) Open(ctx context.Context, loc folder.Location) (folder.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := folder.JoinPath(loc.Sub)
	if name == "" {
		return &rootFolder{provider: p, loc: loc}, nil
	}
	if strings.Contains(name, "/") {
		return nil, fmt.Errorf("collection %q: %w", loc.Path(), folder.ErrNotFound)
	}

	exists, err := p.collectionExists(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("collection %q: %w", loc.Path(), folder.ErrNotFound)
	}
	return &Collection{provider: p, loc: loc, name: name}, nil
}

// CreateCollection registers an empty collection. Existing collections are
// left untouched.
func (p *Provider) CreateCollection(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}
	if p.readOnly {
		return fmt.Errorf("collection %q: %w", name, folder.ErrReadOnly)
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyCollection(name), nil)
	})
}

// Close closes the database.
func (p *Provider) Close() error {
	return p.db.Close()
}

func (p *Provider) collectionExists(name string) (bool, error) {
	err := p.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyCollection(name))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("lookup collection %q: %w", name, err)
	}
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

// ============================================================================
// Root Folder
// ============================================================================

// rootFolder lists the collections as TypeList items.
type rootFolder struct {
	provider *Provider
	loc      folder.Location
}

func (r *rootFolder) GetFiles(ctx context.Context, req folder.ListRequest) (*folder.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	offset, err := folder.RequestOffset(req)
	if err != nil {
		return nil, err
	}

	var items []folder.ContentInfo
	err = r.provider.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixCollection)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			name := string(it.Item().Key()[len(prefixCollection):])
			items = append(items, folder.ContentInfo{
				Name: name,
				Type: folder.TypeList,
				Size: folder.UnknownSize,
				Path: r.loc.Child(name).Path(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	folder.SortItems(items, req.Options)
	return folder.PageOf(items, offset, req.PageSize, true), nil
}

func (r *rootFolder) ParentPath() string {
	return r.loc.ParentPath()
}

// ============================================================================
// Collection
// ============================================================================

// Collection is one persistent item list.
//
// Implemented Interfaces:
//   - folder.Folder
//   - folder.InfoProvider
//   - folder.ParentPathProvider
//   - folder.Notifier
//   - folder.ItemStore
type Collection struct {
	provider *Provider
	loc      folder.Location
	name     string
}

// GetFiles returns one page in insertion order, or sorted when the options
// name a sort field.
//
// Unsorted pages are read straight from a prefix scan that decodes only the
// requested window; sorting has to load the whole collection.
func (c *Collection) GetFiles(ctx context.Context, req folder.ListRequest) (*folder.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	offset, err := folder.RequestOffset(req)
	if err != nil {
		return nil, err
	}

	if req.Options.SortField != "" {
		all, _, err := c.scan(ctx, 0, -1)
		if err != nil {
			return nil, err
		}
		folder.SortItems(all, req.Options)
		return folder.PageOf(all, offset, req.PageSize, true), nil
	}

	items, total, err := c.scan(ctx, offset, req.PageSize)
	if err != nil {
		return nil, err
	}
	res := &folder.ListResult{Items: items, Total: total}
	if end := offset + len(items); len(items) > 0 && end < total {
		res.Next = strconv.Itoa(end)
	}
	return res, nil
}

// scan decodes up to limit items starting at offset (limit < 0 means all)
// and counts the whole collection.
func (c *Collection) scan(ctx context.Context, offset, limit int) ([]folder.ContentInfo, int, error) {
	items := []folder.ContentInfo{}
	total := 0

	err := c.provider.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyItemPrefix(c.name)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			// Check context periodically
			if total%100 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			if total >= offset && (limit < 0 || len(items) < limit) {
				err := it.Item().Value(func(val []byte) error {
					item, err := decodeItem(val)
					if err != nil {
						return err
					}
					items = append(items, item)
					return nil
				})
				if err != nil {
					return err
				}
			}
			total++
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan collection %q: %w", c.name, err)
	}
	return items, total, nil
}

// GetInfo returns the collection name and item count.
func (c *Collection) GetInfo(ctx context.Context) (*folder.Info, error) {
	_, total, err := c.scan(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	return &folder.Info{
		Type: folder.TypeList,
		Name: c.name,
		Path: c.loc.Path(),
		Size: total,
	}, nil
}

// ParentPath returns the logical parent path (the provider root).
func (c *Collection) ParentPath() string {
	return c.loc.ParentPath()
}

// AddItem appends item, replacing an item with the same name in place.
func (c *Collection) AddItem(ctx context.Context, item folder.ContentInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.provider.readOnly {
		return fmt.Errorf("collection %q: %w", c.name, folder.ErrReadOnly)
	}
	if item.Name == "" {
		return fmt.Errorf("item name is required")
	}

	val, err := encodeItem(item)
	if err != nil {
		return err
	}

	err = c.provider.db.Update(func(txn *badger.Txn) error {
		seq, found, err := lookupSeq(txn, c.name, item.Name)
		if err != nil {
			return err
		}
		if !found {
			if seq, err = nextSeq(txn, c.name); err != nil {
				return err
			}
			if err := txn.Set(keyName(c.name, item.Name), encodeSeq(seq)); err != nil {
				return err
			}
		}
		return txn.Set(keyItem(c.name, seq), val)
	})
	if err != nil {
		return fmt.Errorf("add %q to collection %q: %w", item.Name, c.name, err)
	}

	logger.Debug("Collection %q: stored %q", c.name, item.Name)
	c.provider.notify(c.name)
	return nil
}

// RemoveItem deletes the item with the same name as item.
func (c *Collection) RemoveItem(ctx context.Context, item folder.ContentInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.provider.readOnly {
		return fmt.Errorf("collection %q: %w", c.name, folder.ErrReadOnly)
	}

	err := c.provider.db.Update(func(txn *badger.Txn) error {
		seq, found, err := lookupSeq(txn, c.name, item.Name)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("item %q: %w", item.Name, folder.ErrNotFound)
		}
		if err := txn.Delete(keyName(c.name, item.Name)); err != nil {
			return err
		}
		return txn.Delete(keyItem(c.name, seq))
	})
	if err != nil {
		return err
	}

	logger.Debug("Collection %q: removed %q", c.name, item.Name)
	c.provider.notify(c.name)
	return nil
}

// Subscribe runs fn after every change to this collection.
func (c *Collection) Subscribe(fn func()) func() {
	return c.provider.subscribe(c.name, fn)
}

func lookupSeq(txn *badger.Txn, collection, name string) (uint64, bool, error) {
	item, err := txn.Get(keyName(collection, name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var seq uint64
	err = item.Value(func(val []byte) error {
		seq, err = decodeSeq(val)
		return err
	})
	return seq, err == nil, err
}

func nextSeq(txn *badger.Txn, collection string) (uint64, error) {
	var seq uint64
	item, err := txn.Get(keySequence(collection))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		err = item.Value(func(val []byte) error {
			seq, err = decodeSeq(val)
			return err
		})
		if err != nil {
			return 0, err
		}
	}
	if err := txn.Set(keySequence(collection), encodeSeq(seq+1)); err != nil {
		return 0, err
	}
	return seq, nil
}

// ============================================================================
// Notification
// ============================================================================

func (p *Provider) subscribe(collection string, fn func()) func() {
	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	set, ok := p.subs[collection]
	if !ok {
		set = make(map[uint64]func())
		p.subs[collection] = set
	}
	set[id] = fn
	p.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.subMu.Lock()
			defer p.subMu.Unlock()
			delete(p.subs[collection], id)
			if len(p.subs[collection]) == 0 {
				delete(p.subs, collection)
			}
		})
	}
}

func (p *Provider) notify(collection string) {
	p.subMu.Lock()
	fns := make([]func(), 0, len(p.subs[collection]))
	for _, fn := range p.subs[collection] {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
