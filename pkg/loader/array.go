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

// ArrayFolderLoader gives forward-only access to a cursor-addressable folder.
//
// Every fetched item is kept in an append-only sequence; nothing is evicted.
// Pages of Config.SequentialPageSize items are requested with the cursor
// returned by the previous page. At most one page load is in flight; callers
// arriving while it runs wait for it.
//
// The update callback runs after every appended page so that views can grow
// their item count.
//
// Thread Safety:
// Safe for concurrent use.
type ArrayFolderLoader struct {
	*base

	items     []folder.ContentInfo
	next      string
	exhausted bool

	// loading is the in-flight page load, nil when idle.
	loading *pagecache.Flight[struct{}]
}

// NewArrayFolderLoader creates a sequential loader over f.
func NewArrayFolderLoader(f folder.Folder, path string, cfg Config) *ArrayFolderLoader {
	l := &ArrayFolderLoader{base: newBase(f, path, cfg, ModeSequential)}
	l.watch(l.Invalidate)
	return l
}

// Loaded returns the number of items fetched so far.
func (l *ArrayFolderLoader) Loaded() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Get returns the item at position, loading pages until position is covered
// or the folder is exhausted. See Loader.Get.
func (l *ArrayFolderLoader) Get(ctx context.Context, position int) (*folder.ContentInfo, error) {
	l.mu.Lock()
	if err := l.checkRangeLocked(position); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	if position < len(l.items) {
		item := &l.items[position]
		l.mu.Unlock()
		l.cfg.Metrics.RecordHit(ModeSequential)
		return item, nil
	}
	l.mu.Unlock()

	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return nil, folder.ErrClosed
		}
		if position < len(l.items) {
			item := &l.items[position]
			l.mu.Unlock()
			return item, nil
		}
		if l.exhausted {
			l.mu.Unlock()
			return nil, nil
		}

		fl := l.loading
		if fl == nil {
			fetchCtx, cancel := context.WithCancel(l.ctx)
			fl = pagecache.NewFlight[struct{}](cancel)
			l.loading = fl
			go l.loadNext(fetchCtx, fl, l.generation, l.next, len(l.items))
			l.cfg.Metrics.RecordMiss(ModeSequential)
		} else {
			l.cfg.Metrics.RecordJoin(ModeSequential)
		}
		l.mu.Unlock()

		if _, err := fl.Wait(ctx); err != nil {
			return nil, err
		}
	}
}

// loadNext fetches the page following cursor and appends it.
func (l *ArrayFolderLoader) loadNext(ctx context.Context, fl *pagecache.Flight[struct{}], gen uint64, cursor string, loaded int) {
	start := time.Now()
	req := folder.ListRequest{
		Offset:   loaded,
		Cursor:   cursor,
		PageSize: l.cfg.SequentialPageSize,
		Options:  l.cfg.Options,
	}

	logger.Debug("Loader %q: fetching sequential page at %d", l.path, loaded)
	res, err := l.folder.GetFiles(ctx, req)
	err = classifyFetchError(ctx, res, err)

	items := 0
	if err == nil {
		items = len(res.Items)
	}
	l.cfg.Metrics.ObserveFetch(ModeSequential, items, time.Since(start), err)

	appended := false
	l.mu.Lock()
	if l.loading == fl {
		l.loading = nil
	}
	if err == nil && gen == l.generation && !l.closed {
		l.items = append(l.items, res.Items...)
		l.next = res.Next
		// An empty page ends the listing even if the folder claims more.
		l.exhausted = !res.HasMore() || len(res.Items) == 0
		l.updateSizeLocked(res, len(l.items))
		l.captureThumbnailLocked(res.Items)
		appended = true
	}
	size := l.size
	l.mu.Unlock()

	switch {
	case err == nil && appended:
		logger.Debug("Loader %q: appended %d items (size=%d)", l.path, items, size)
	case err == nil:
		logger.Debug("Loader %q: dropped stale sequential page", l.path)
	case errors.Is(err, folder.ErrFetchCancelled):
		logger.Debug("Loader %q: sequential fetch cancelled", l.path)
	default:
		logger.Warn("Loader %q: sequential fetch failed: %v", l.path, err)
	}

	fl.Settle(struct{}{}, err)

	if appended {
		l.notify()
	}
}

// GetInfo returns folder metadata. See Loader.GetInfo.
func (l *ArrayFolderLoader) GetInfo(ctx context.Context) (*folder.Info, error) {
	return l.getInfo(ctx, l.Get)
}

// Invalidate drops every loaded item, cancels the in-flight load and restarts
// from the beginning of the folder on the next Get.
func (l *ArrayFolderLoader) Invalidate(ctx context.Context) error {
	info, infoErr := l.folderInfo(ctx)
	if infoErr != nil {
		info = nil
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return folder.ErrClosed
	}
	l.dropLocked()
	l.applyInvalidationLocked(info)
	l.mu.Unlock()

	l.cfg.Metrics.RecordInvalidation(ModeSequential)
	logger.Debug("Loader %q: invalidated", l.path)
	l.notify()

	if infoErr != nil {
		return fmt.Errorf("folder info %q: %w", l.path, infoErr)
	}
	return nil
}

// Reset drops every loaded item and forgets size and thumbnail.
func (l *ArrayFolderLoader) Reset() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.dropLocked()
	l.resetLocked()
	l.mu.Unlock()

	l.cfg.Metrics.RecordInvalidation(ModeSequential)
	l.notify()
}

// Close cancels the in-flight load and detaches from folder notifications.
func (l *ArrayFolderLoader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closeLocked() {
		return
	}
	l.dropLocked()
}

// dropLocked forgets loaded items and cancels the in-flight load.
// Must be called with l.mu held.
func (l *ArrayFolderLoader) dropLocked() {
	if l.loading != nil {
		l.loading.Cancel()
		l.loading = nil
	}
	l.items = nil
	l.next = ""
	l.exhausted = false
}
