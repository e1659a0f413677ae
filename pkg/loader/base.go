package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// base holds the state shared by both loaders: the backing folder, the live
// size, the representative thumbnail and the update callback.
//
// Every field below mu is guarded by mu. Loaders embed base and use the same
// mutex for their own cache so that size updates and cache mutations are
// observed together.
type base struct {
	folder folder.Folder
	path   string
	cfg    Config
	mode   string

	// ctx outlives individual callers; every fetch context derives from it
	// so that Close cancels all transfers.
	ctx  context.Context
	stop context.CancelFunc

	unsubscribe func()

	mu sync.Mutex

	// size is folder.UnknownSize until a fetch reports a total or a page
	// arrives. Without totals it only grows, except right after an
	// invalidation (sizeProvisional) when the next page may lower it.
	size            int
	sizeProvisional bool

	// thumbnail is the first item thumbnail seen; set once.
	thumbnail folder.Source

	// generation increments on invalidation; fetches started under an
	// older generation must not update size or thumbnail.
	generation uint64

	closed   bool
	onUpdate func()
}

func newBase(f folder.Folder, path string, cfg Config, mode string) *base {
	cfg.applyDefaults()
	ctx, stop := context.WithCancel(context.Background())
	return &base{
		folder: f,
		path:   path,
		cfg:    cfg,
		mode:   mode,
		ctx:    ctx,
		stop:   stop,
		size:   folder.UnknownSize,
	}
}

// watch subscribes invalidate to the folder change notification, if any.
func (b *base) watch(invalidate func(ctx context.Context) error) {
	n, ok := b.folder.(folder.Notifier)
	if !ok {
		return
	}
	b.unsubscribe = n.Subscribe(func() {
		// Notifiers may call back while holding their own locks.
		go func() {
			if err := invalidate(b.ctx); err != nil && b.ctx.Err() == nil {
				logger.Warn("Invalidate %q after folder update: %v", b.path, err)
			}
		}()
	})
}

// Size returns the live item count or folder.UnknownSize.
func (b *base) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Folder returns the backing folder.
func (b *base) Folder() folder.Folder {
	return b.folder
}

// Path returns the loader path.
func (b *base) Path() string {
	return b.path
}

// SetOnUpdate installs the update callback.
func (b *base) SetOnUpdate(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onUpdate = fn
}

func (b *base) notify() {
	b.mu.Lock()
	fn := b.onUpdate
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// checkRangeLocked validates position against the known size.
// Must be called with b.mu held.
func (b *base) checkRangeLocked(position int) error {
	if b.closed {
		return folder.ErrClosed
	}
	if position < 0 || (b.size >= 0 && position >= b.size) {
		return fmt.Errorf("position %d (size %d): %w", position, b.size, folder.ErrOutOfRange)
	}
	return nil
}

// updateSizeLocked applies a fetch result to size. coveredEnd is the index
// just past the last item the result delivered.
//
// A reported total always wins, even when it shrinks the folder. Otherwise
// the size is the lower bound coveredEnd (+1 when more pages exist).
// Must be called with b.mu held.
func (b *base) updateSizeLocked(res *folder.ListResult, coveredEnd int) {
	if res.Total >= 0 {
		b.size = res.Total
		b.sizeProvisional = false
		return
	}

	inferred := coveredEnd
	if res.HasMore() {
		inferred++
	}
	if b.sizeProvisional || inferred > b.size {
		b.size = inferred
	}
	b.sizeProvisional = false
}

// captureThumbnailLocked records the first item thumbnail as the folder's
// own, once. Must be called with b.mu held.
func (b *base) captureThumbnailLocked(items []folder.ContentInfo) {
	if b.thumbnail.Available() || len(items) == 0 {
		return
	}
	if items[0].Thumbnail.Available() {
		b.thumbnail = items[0].Thumbnail
	}
}

// folderInfo asks the folder for its own metadata. Folders without the
// capability yield nil.
func (b *base) folderInfo(ctx context.Context) (*folder.Info, error) {
	p, ok := b.folder.(folder.InfoProvider)
	if !ok {
		return nil, nil
	}
	return p.GetInfo(ctx)
}

// applyInvalidationLocked resets size bookkeeping after a cache wipe.
// Must be called with b.mu held.
func (b *base) applyInvalidationLocked(info *folder.Info) {
	b.generation++
	if info != nil && info.Size > 0 {
		b.size = info.Size
		b.sizeProvisional = false
		return
	}
	b.sizeProvisional = true
}

// resetLocked forgets everything derived from fetches.
// Must be called with b.mu held.
func (b *base) resetLocked() {
	b.generation++
	b.size = folder.UnknownSize
	b.sizeProvisional = false
	b.thumbnail = folder.Source{}
}

// getInfo implements Loader.GetInfo on top of the loader's Get.
func (b *base) getInfo(ctx context.Context, get func(context.Context, int) (*folder.ContentInfo, error)) (*folder.Info, error) {
	if _, err := get(ctx, 0); err != nil && !errors.Is(err, folder.ErrOutOfRange) {
		return nil, err
	}

	fi, err := b.folderInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("folder info %q: %w", b.path, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if fi != nil && fi.Size > 0 {
		b.size = fi.Size
		b.sizeProvisional = false
	}

	info := &folder.Info{
		Type:      folder.TypeFolder,
		Name:      b.path,
		Path:      b.path,
		Size:      b.size,
		Thumbnail: b.thumbnail,
	}
	if fi == nil {
		return info, nil
	}

	if fi.Type != "" {
		info.Type = fi.Type
	}
	if fi.Name != "" {
		info.Name = fi.Name
	}
	if fi.Path != "" {
		info.Path = fi.Path
	}
	if fi.Thumbnail.Available() {
		info.Thumbnail = fi.Thumbnail
	}
	return info, nil
}

// closeLocked marks the loader closed and detaches it. It reports false when
// the loader was already closed. Must be called with b.mu held.
func (b *base) closeLocked() bool {
	if b.closed {
		return false
	}
	b.closed = true
	b.stop()
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	return true
}

// classifyFetchError turns a provider outcome into the loader error taxonomy.
// Any fetch whose context was cancelled counts as cancelled, even when the
// provider returned data.
func classifyFetchError(ctx context.Context, res *folder.ListResult, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if err != nil {
			return folder.CancelledError(err)
		}
		return folder.CancelledError(ctxErr)
	}
	if err != nil {
		return folder.FetchError(err)
	}
	if res == nil {
		return folder.FetchError(errors.New("folder returned no result"))
	}
	return nil
}
