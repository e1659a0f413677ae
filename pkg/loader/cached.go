package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/pkg/folder"
	"github.com/marmos91/dittobrowse/pkg/loader/pagecache"
)

// CachedFolderLoader gives random access to an offset-addressable folder.
//
// Items are fetched a page at a time (Config.PageSize items) and kept in a
// bounded LRU page cache (Config.MaxResidentPages pages).
//
// Fetch Lifecycle:
//  1. Get maps a position to a page and looks the page up
//  2. Resolved pages are served immediately and become most recently used
//  3. Pending pages are joined: the caller waits for the fetch already in flight
//  4. Absent pages evict least-recently-used pages until there is room,
//     cancelling evicted fetches, then start a new fetch
//
// The fetch runs on its own goroutine under a context derived from the loader
// lifetime, not from the caller. A caller whose context ends stops waiting but
// the fetch continues for the other waiters; only eviction, invalidation or
// Close cancel it.
//
// Thread Safety:
// Safe for concurrent use. The single-flight lookup and the eviction decision
// happen under one mutex so interleaved requests never start duplicate
// fetches for the same page.
type CachedFolderLoader struct {
	*base
	pages *pagecache.Cache[[]folder.ContentInfo]

	// reported is this loader's share of the resident pages gauge.
	reported int
}

// NewCachedFolderLoader creates a random-access loader over f.
//
// If f implements folder.Notifier the loader invalidates itself whenever the
// folder reports a change.
func NewCachedFolderLoader(f folder.Folder, path string, cfg Config) *CachedFolderLoader {
	l := &CachedFolderLoader{base: newBase(f, path, cfg, ModeCached)}
	l.pages = pagecache.New[[]folder.ContentInfo](l.cfg.MaxResidentPages)
	l.watch(l.Invalidate)
	return l
}

// PageSize returns the configured page size.
func (l *CachedFolderLoader) PageSize() int {
	return l.cfg.PageSize
}

// ResidentPages returns the resident page indexes, pending ones included,
// from least to most recently used.
func (l *CachedFolderLoader) ResidentPages() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pages.Indexes()
}

// PageState returns the cache state of page index.
func (l *CachedFolderLoader) PageState(index int) pagecache.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pages.State(index)
}

// Get returns the item at position. See Loader.Get.
func (l *CachedFolderLoader) Get(ctx context.Context, position int) (*folder.ContentInfo, error) {
	l.mu.Lock()
	if err := l.checkRangeLocked(position); err != nil {
		l.mu.Unlock()
		return nil, err
	}

	page := position / l.cfg.PageSize
	offset := position % l.cfg.PageSize

	if items, ok := l.pages.Get(page); ok {
		l.mu.Unlock()
		l.cfg.Metrics.RecordHit(ModeCached)
		return itemAt(items, offset), nil
	}

	if fl, ok := l.pages.Flight(page); ok {
		l.mu.Unlock()
		l.cfg.Metrics.RecordJoin(ModeCached)
		items, err := fl.Wait(ctx)
		if err != nil {
			return nil, err
		}
		return itemAt(items, offset), nil
	}

	evicted := l.pages.MakeRoom()
	fetchCtx, cancel := context.WithCancel(l.ctx)
	fl := pagecache.NewFlight[[]folder.ContentInfo](cancel)
	l.pages.StartPending(page, fl)
	gen := l.generation
	l.publishResidentLocked()
	l.mu.Unlock()

	for _, ev := range evicted {
		l.cfg.Metrics.RecordEviction(ev.WasPending)
		if ev.WasPending {
			logger.Debug("Loader %q: evicted page %d while in flight, fetch cancelled", l.path, ev.Index)
		} else {
			logger.Debug("Loader %q: evicted page %d", l.path, ev.Index)
		}
	}
	l.cfg.Metrics.RecordMiss(ModeCached)

	go l.fetch(fetchCtx, page, fl, gen)

	items, err := fl.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return itemAt(items, offset), nil
}

// fetch retrieves one page and settles its flight.
//
// The cache is updated before waiters are woken so that a caller returning
// from Wait and immediately asking again sees the resolved page.
func (l *CachedFolderLoader) fetch(ctx context.Context, page int, fl *pagecache.Flight[[]folder.ContentInfo], gen uint64) {
	start := time.Now()
	req := folder.ListRequest{
		Offset:   page * l.cfg.PageSize,
		PageSize: l.cfg.PageSize,
		Options:  l.cfg.Options,
	}

	logger.Debug("Loader %q: fetching page %d (offset=%d)", l.path, page, req.Offset)
	res, err := l.folder.GetFiles(ctx, req)
	err = classifyFetchError(ctx, res, err)

	var items []folder.ContentInfo
	if err == nil {
		items = res.Items
	}
	l.cfg.Metrics.ObserveFetch(ModeCached, len(items), time.Since(start), err)

	l.mu.Lock()
	if err != nil {
		l.pages.Discard(page, fl)
	} else {
		l.pages.Resolve(page, fl, items)
		if gen == l.generation && !l.closed {
			l.updateSizeLocked(res, req.Offset+len(items))
			l.captureThumbnailLocked(items)
		}
	}
	l.publishResidentLocked()
	size := l.size
	l.mu.Unlock()

	switch {
	case err == nil:
		logger.Debug("Loader %q: page %d resolved: items=%d size=%d duration=%s",
			l.path, page, len(items), size, time.Since(start))
	case errors.Is(err, folder.ErrFetchCancelled):
		logger.Debug("Loader %q: page %d fetch cancelled", l.path, page)
	default:
		logger.Warn("Loader %q: page %d fetch failed: %v", l.path, page, err)
	}

	fl.Settle(items, err)
}

// GetInfo returns folder metadata. See Loader.GetInfo.
func (l *CachedFolderLoader) GetInfo(ctx context.Context) (*folder.Info, error) {
	return l.getInfo(ctx, l.Get)
}

// Invalidate drops every cached page, cancelling pending fetches, then
// notifies the update callback. See Loader.Invalidate.
//
// The cache is cleared even when the folder metadata lookup fails; the lookup
// error is returned afterwards.
func (l *CachedFolderLoader) Invalidate(ctx context.Context) error {
	info, infoErr := l.folderInfo(ctx)
	if infoErr != nil {
		info = nil
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return folder.ErrClosed
	}
	cancelled := l.pages.Clear()
	l.applyInvalidationLocked(info)
	l.publishResidentLocked()
	size := l.size
	l.mu.Unlock()

	l.cfg.Metrics.RecordInvalidation(ModeCached)
	logger.Debug("Loader %q: invalidated (cancelled=%d size=%d)", l.path, cancelled, size)

	l.notify()

	if infoErr != nil {
		return fmt.Errorf("folder info %q: %w", l.path, infoErr)
	}
	return nil
}

// Reset drops every cached page and forgets size and thumbnail.
func (l *CachedFolderLoader) Reset() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.pages.Clear()
	l.resetLocked()
	l.publishResidentLocked()
	l.mu.Unlock()

	l.cfg.Metrics.RecordInvalidation(ModeCached)
	l.notify()
}

// Close cancels every pending fetch and detaches from folder notifications.
// Subsequent Get calls fail with folder.ErrClosed.
func (l *CachedFolderLoader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closeLocked() {
		return
	}
	l.pages.Clear()
	l.publishResidentLocked()
}

// publishResidentLocked moves the resident pages gauge by the change since
// the last call. Called with l.mu held so updates from one loader never
// reorder.
func (l *CachedFolderLoader) publishResidentLocked() {
	n := l.pages.Len()
	if n == l.reported {
		return
	}
	l.cfg.Metrics.AddResidentPages(n - l.reported)
	l.reported = n
}

// itemAt returns a pointer to items[offset], or nil past the end of a short
// page.
func itemAt(items []folder.ContentInfo, offset int) *folder.ContentInfo {
	if offset < 0 || offset >= len(items) {
		return nil
	}
	return &items[offset]
}
