package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marmos91/dittobrowse/pkg/folder"
	"github.com/marmos91/dittobrowse/pkg/folder/memory"
	"github.com/marmos91/dittobrowse/pkg/loader/pagecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

const waitFor = 2 * time.Second

func testItems(n int) []folder.ContentInfo {
	items := make([]folder.ContentInfo, n)
	for i := range items {
		items[i] = folder.ContentInfo{
			Name: fmt.Sprintf("item-%04d", i),
			Type: "image/jpeg",
			Size: int64(i),
		}
	}
	return items
}

func newMemory(n int, cfg memory.Config) *memory.MemoryFolder {
	if cfg.Path == "" {
		cfg.Path = "/test"
	}
	return memory.NewMemoryFolder(cfg, testItems(n)...)
}

func cachedConfig(maxPages int, m Metrics) Config {
	cfg := DefaultConfig()
	cfg.MaxResidentPages = maxPages
	cfg.Metrics = m
	return cfg
}

// blockUntil returns a fetch hook that blocks matching requests until release
// is closed or the fetch is cancelled.
func blockUntil(release <-chan struct{}, match func(folder.ListRequest) bool) memory.FetchHook {
	return func(ctx context.Context, req folder.ListRequest) error {
		if match != nil && !match(req) {
			return nil
		}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// countingMetrics records loader metrics for assertions.
type countingMetrics struct {
	hits             atomic.Int64
	misses           atomic.Int64
	joins            atomic.Int64
	fetches          atomic.Int64
	failedFetches    atomic.Int64
	evictions        atomic.Int64
	pendingEvictions atomic.Int64
	invalidations    atomic.Int64
	resident         atomic.Int64
}

func (m *countingMetrics) RecordHit(string) { m.hits.Add(1) }
func (m *countingMetrics) RecordMiss(string) { m.misses.Add(1) }
func (m *countingMetrics) RecordJoin(string) { m.joins.Add(1) }

func (m *countingMetrics) ObserveFetch(_ string, _ int, _ time.Duration, err error) {
	m.fetches.Add(1)
	if err != nil {
		m.failedFetches.Add(1)
	}
}

func (m *countingMetrics) RecordEviction(wasPending bool) {
	m.evictions.Add(1)
	if wasPending {
		m.pendingEvictions.Add(1)
	}
}

func (m *countingMetrics) RecordInvalidation(string) { m.invalidations.Add(1) }
func (m *countingMetrics) AddResidentPages(n int) { m.resident.Add(int64(n)) }

// folderFunc adapts a function to folder.Folder.
type folderFunc func(ctx context.Context, req folder.ListRequest) (*folder.ListResult, error)

func (f folderFunc) GetFiles(ctx context.Context, req folder.ListRequest) (*folder.ListResult, error) {
	return f(ctx, req)
}

// ============================================================================
// Selection
// ============================================================================

func TestNew_SelectsLoaderByAccessMode(t *testing.T) {
	l := New(newMemory(10, memory.Config{}), "/test", DefaultConfig())
	defer l.Close()
	assert.IsType(t, &CachedFolderLoader{}, l)

	s := New(newMemory(10, memory.Config{Sequential: true}), "/test", DefaultConfig())
	defer s.Close()
	assert.IsType(t, &ArrayFolderLoader{}, s)
}

// ============================================================================
// CachedFolderLoader Tests
// ============================================================================

func TestCachedLoader_GetFetchesPageOnce(t *testing.T) {
	ctx := context.Background()
	f := newMemory(100, memory.Config{})
	l := NewCachedFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	assert.Equal(t, folder.UnknownSize, l.Size())

	item, err := l.Get(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "item-0005", item.Name)
	assert.Equal(t, 1, f.Calls())
	assert.Equal(t, 41, l.Size(), "one full page plus the next-page placeholder")

	item, err = l.Get(ctx, 39)
	require.NoError(t, err)
	assert.Equal(t, "item-0039", item.Name)
	assert.Equal(t, 1, f.Calls())
}

func TestCachedLoader_SizeInferredWithoutTotal(t *testing.T) {
	ctx := context.Background()
	f := newMemory(3*40+15, memory.Config{})
	l := NewCachedFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	for page, want := range []int{41, 81, 121, 135} {
		_, err := l.Get(ctx, page*40)
		require.NoError(t, err)
		assert.Equal(t, want, l.Size(), "after page %d", page)
	}

	_, err := l.Get(ctx, 135)
	assert.ErrorIs(t, err, folder.ErrOutOfRange)
}

func TestCachedLoader_SizeNeverShrinksWithoutTotal(t *testing.T) {
	ctx := context.Background()
	f := newMemory(3*40+15, memory.Config{})
	l := NewCachedFolderLoader(f, "/test", cachedConfig(10, nil))
	defer l.Close()

	for _, pos := range []int{0, 40, 80, 120} {
		_, err := l.Get(ctx, pos)
		require.NoError(t, err)
	}
	require.Equal(t, 135, l.Size())

	// Page 0 refetched after eviction would infer 41; size must stay.
	l.mu.Lock()
	l.pages.Clear()
	l.mu.Unlock()
	_, err := l.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 135, l.Size())
}

func TestCachedLoader_TotalAdopted(t *testing.T) {
	ctx := context.Background()
	f := newMemory(1000, memory.Config{ReportTotal: true})
	l := NewCachedFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	_, err := l.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1000, l.Size())

	item, err := l.Get(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, "item-0999", item.Name)

	_, err = l.Get(ctx, 1000)
	assert.ErrorIs(t, err, folder.ErrOutOfRange)
}

func TestCachedLoader_OutOfRange(t *testing.T) {
	ctx := context.Background()
	f := newMemory(10, memory.Config{ReportTotal: true})
	l := NewCachedFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	_, err := l.Get(ctx, -1)
	assert.ErrorIs(t, err, folder.ErrOutOfRange)
	assert.Equal(t, 0, f.Calls(), "out of range positions never fetch")

	_, err = l.Get(ctx, 0)
	require.NoError(t, err)

	_, err = l.Get(ctx, 10)
	assert.ErrorIs(t, err, folder.ErrOutOfRange)
	assert.Equal(t, 1, f.Calls())
}

func TestCachedLoader_MissingItemInRangeIsNil(t *testing.T) {
	ctx := context.Background()
	f := folderFunc(func(_ context.Context, req folder.ListRequest) (*folder.ListResult, error) {
		// Claims 45 items but only ever delivers 42.
		items := testItems(42)
		res := folder.PageOf(items, req.Offset, req.PageSize, false)
		res.Total = 45
		return res, nil
	})
	l := NewCachedFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	item, err := l.Get(ctx, 44)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, 45, l.Size())
}

func TestCachedLoader_LRUEviction(t *testing.T) {
	ctx := context.Background()
	m := &countingMetrics{}
	f := newMemory(200, memory.Config{ReportTotal: true})
	l := NewCachedFolderLoader(f, "/test", cachedConfig(2, m))
	defer l.Close()

	for _, pos := range []int{0, 40, 0, 80} {
		_, err := l.Get(ctx, pos)
		require.NoError(t, err)
	}

	// Page 0 was touched after page 1, so page 1 is the victim.
	assert.Equal(t, []int{0, 2}, l.ResidentPages())
	assert.Equal(t, 3, f.Calls())
	assert.Equal(t, int64(1), m.evictions.Load())
	assert.Equal(t, int64(1), m.hits.Load())

	_, err := l.Get(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Calls(), "evicted page must be fetched again")
	assert.LessOrEqual(t, len(l.ResidentPages()), 2)
}

func TestCachedLoader_ConcurrentGetsShareOneFetch(t *testing.T) {
	ctx := context.Background()
	m := &countingMetrics{}
	release := make(chan struct{})
	f := newMemory(100, memory.Config{})
	f.SetFetchHook(blockUntil(release, nil))
	l := NewCachedFolderLoader(f, "/test", cachedConfig(10, m))
	defer l.Close()

	const callers = 10
	var wg sync.WaitGroup
	results := make([]*folder.ContentInfo, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = l.Get(ctx, 5)
		}(i)
	}

	require.Eventually(t, func() bool {
		return m.misses.Load() == 1 && m.joins.Load() == callers-1
	}, waitFor, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, f.Calls())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "item-0005", results[i].Name)
	}
}

func TestCachedLoader_FailedFetchLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend unavailable")
	f := newMemory(100, memory.Config{})
	f.SetFetchHook(func(context.Context, folder.ListRequest) error { return boom })
	l := NewCachedFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	_, err := l.Get(ctx, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, folder.ErrFetchFailed)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, folder.ErrFetchCancelled)
	assert.Equal(t, pagecache.Absent, l.PageState(0))
	assert.Equal(t, folder.UnknownSize, l.Size())

	f.SetFetchHook(nil)
	item, err := l.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "item-0003", item.Name)
	assert.Equal(t, 2, f.Calls())
}

func TestCachedLoader_EvictionCancelsPendingFetch(t *testing.T) {
	ctx := context.Background()
	m := &countingMetrics{}
	f := newMemory(100, memory.Config{ReportTotal: true})
	f.SetFetchHook(blockUntil(make(chan struct{}), func(req folder.ListRequest) bool {
		return req.Offset == 0
	}))
	l := NewCachedFolderLoader(f, "/test", cachedConfig(1, m))
	defer l.Close()

	errc := make(chan error, 1)
	go func() {
		_, err := l.Get(ctx, 0)
		errc <- err
	}()
	require.Eventually(t, func() bool {
		return l.PageState(0) == pagecache.Pending
	}, waitFor, time.Millisecond)

	item, err := l.Get(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, "item-0040", item.Name)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, folder.ErrFetchCancelled)
		assert.ErrorIs(t, err, folder.ErrFetchFailed)
	case <-time.After(waitFor):
		t.Fatal("evicted fetch was not cancelled")
	}

	assert.Equal(t, pagecache.Absent, l.PageState(0), "cancelled page must not be resurrected")
	assert.Equal(t, []int{1}, l.ResidentPages())
	assert.Equal(t, int64(1), m.pendingEvictions.Load())
}

func TestCachedLoader_CallerCancelDoesNotCancelSharedFetch(t *testing.T) {
	release := make(chan struct{})
	f := newMemory(100, memory.Config{})
	f.SetFetchHook(blockUntil(release, nil))
	l := NewCachedFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := l.Get(ctx, 0)
		errc <- err
	}()
	require.Eventually(t, func() bool {
		return l.PageState(0) == pagecache.Pending
	}, waitFor, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, pagecache.Pending, l.PageState(0))

	close(release)
	require.Eventually(t, func() bool {
		return l.PageState(0) == pagecache.Resolved
	}, waitFor, time.Millisecond)

	item, err := l.Get(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "item-0000", item.Name)
	assert.Equal(t, 1, f.Calls())
}

func TestCachedLoader_ResidentPagesBounded(t *testing.T) {
	ctx := context.Background()
	f := newMemory(40*30, memory.Config{ReportTotal: true})
	l := NewCachedFolderLoader(f, "/test", cachedConfig(3, nil))
	defer l.Close()

	for pos := 0; pos < 40*30; pos += 17 {
		_, err := l.Get(ctx, pos)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(l.ResidentPages()), 3)
	}
}

func TestCachedLoader_ResidentGaugeTracksEveryLoader(t *testing.T) {
	ctx := context.Background()
	m := &countingMetrics{}
	a := NewCachedFolderLoader(newMemory(40*20, memory.Config{ReportTotal: true}), "/a", cachedConfig(3, m))
	b := NewCachedFolderLoader(newMemory(40*20, memory.Config{ReportTotal: true}), "/b", cachedConfig(4, m))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for pos := w * 13; pos < 40*20; pos += 97 {
				_, _ = a.Get(ctx, pos)
				_, _ = b.Get(ctx, pos)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int64(len(a.ResidentPages())+len(b.ResidentPages())), m.resident.Load())

	require.NoError(t, a.Invalidate(ctx))
	assert.Equal(t, int64(len(b.ResidentPages())), m.resident.Load())

	b.Close()
	a.Close()
	assert.Equal(t, int64(0), m.resident.Load())
}

func TestCachedLoader_GetInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		items := testItems(3)
		items[0].Thumbnail = folder.URLSource("http://thumbs/0.jpg")
		f := folderFunc(func(_ context.Context, req folder.ListRequest) (*folder.ListResult, error) {
			return folder.PageOf(items, req.Offset, req.PageSize, false), nil
		})
		l := NewCachedFolderLoader(f, "/photos", DefaultConfig())
		defer l.Close()

		info, err := l.GetInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, folder.TypeFolder, info.Type)
		assert.Equal(t, "/photos", info.Name)
		assert.Equal(t, "/photos", info.Path)
		assert.Equal(t, 3, info.Size)
		assert.Equal(t, "http://thumbs/0.jpg", info.Thumbnail.URL)
	})

	t.Run("FolderFieldsTakePrecedence", func(t *testing.T) {
		f := newMemory(5, memory.Config{Name: "Holiday", Path: "/photos/holiday", ReportTotal: true})
		l := NewCachedFolderLoader(f, "/photos/holiday", DefaultConfig())
		defer l.Close()

		info, err := l.GetInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Holiday", info.Name)
		assert.Equal(t, 5, info.Size)
		assert.Equal(t, 5, l.Size())
	})

	t.Run("EmptyFolder", func(t *testing.T) {
		f := newMemory(0, memory.Config{})
		l := NewCachedFolderLoader(f, "/empty", DefaultConfig())
		defer l.Close()

		info, err := l.GetInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, info.Size)
		assert.False(t, info.Thumbnail.Available())
	})
}

func TestCachedLoader_ThumbnailSetOnce(t *testing.T) {
	ctx := context.Background()
	items := testItems(80)
	items[40].Thumbnail = folder.URLSource("http://thumbs/40.jpg")
	items[0].Thumbnail = folder.URLSource("http://thumbs/0.jpg")
	f := newMemory(0, memory.Config{})
	f.SetItems(items...)
	l := NewCachedFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	_, err := l.Get(ctx, 0)
	require.NoError(t, err)
	_, err = l.Get(ctx, 40)
	require.NoError(t, err)

	info, err := l.GetInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://thumbs/0.jpg", info.Thumbnail.URL)
}

func TestCachedLoader_InvalidateOnFolderUpdate(t *testing.T) {
	ctx := context.Background()
	f := newMemory(100, memory.Config{})
	l := NewCachedFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	var updates atomic.Int64
	l.SetOnUpdate(func() { updates.Add(1) })

	_, err := l.Get(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 41, l.Size())

	f.SetItems(testItems(10)...)
	require.Eventually(t, func() bool { return updates.Load() == 1 }, waitFor, time.Millisecond)
	assert.Empty(t, l.ResidentPages())

	// The first page after an invalidation may lower the size.
	_, err = l.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, l.Size())
}

func TestCachedLoader_InvalidateCancelsPending(t *testing.T) {
	ctx := context.Background()
	f := newMemory(100, memory.Config{})
	f.SetFetchHook(blockUntil(make(chan struct{}), nil))
	l := NewCachedFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	errc := make(chan error, 1)
	go func() {
		_, err := l.Get(ctx, 0)
		errc <- err
	}()
	require.Eventually(t, func() bool {
		return l.PageState(0) == pagecache.Pending
	}, waitFor, time.Millisecond)

	require.NoError(t, l.Invalidate(ctx))
	assert.ErrorIs(t, <-errc, folder.ErrFetchCancelled)
	assert.Equal(t, pagecache.Absent, l.PageState(0))
}

func TestCachedLoader_Reset(t *testing.T) {
	ctx := context.Background()
	items := testItems(10)
	items[0].Thumbnail = folder.URLSource("http://thumbs/0.jpg")
	f := newMemory(0, memory.Config{})
	f.SetItems(items...)
	l := NewCachedFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	_, err := l.Get(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 10, l.Size())

	l.Reset()
	assert.Equal(t, folder.UnknownSize, l.Size())
	assert.Empty(t, l.ResidentPages())
	assert.False(t, l.thumbnail.Available())
}

func TestCachedLoader_Close(t *testing.T) {
	ctx := context.Background()
	f := newMemory(10, memory.Config{})
	l := NewCachedFolderLoader(f, "/test", DefaultConfig())
	require.Equal(t, 1, f.Subscribers())

	l.Close()
	l.Close()
	assert.Equal(t, 0, f.Subscribers())

	_, err := l.Get(ctx, 0)
	assert.ErrorIs(t, err, folder.ErrClosed)
	assert.ErrorIs(t, l.Invalidate(ctx), folder.ErrClosed)
}

// ============================================================================
// ArrayFolderLoader Tests
// ============================================================================

func TestArrayLoader_LoadsForward(t *testing.T) {
	ctx := context.Background()
	f := newMemory(450, memory.Config{Sequential: true})
	l := NewArrayFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	item, err := l.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "item-0000", item.Name)
	assert.Equal(t, 1, f.Calls())
	assert.Equal(t, 201, l.Size())

	_, err = l.Get(ctx, 401)
	assert.ErrorIs(t, err, folder.ErrOutOfRange, "positions past the known bound are rejected")

	item, err = l.Get(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, "item-0200", item.Name)
	assert.Equal(t, 401, l.Size())

	item, err = l.Get(ctx, 400)
	require.NoError(t, err)
	assert.Equal(t, "item-0400", item.Name)
	assert.Equal(t, 450, l.Size())
	assert.Equal(t, 3, f.Calls())

	_, err = l.Get(ctx, 449)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Calls(), "loaded items are never refetched")

	_, err = l.Get(ctx, 450)
	assert.ErrorIs(t, err, folder.ErrOutOfRange)
}

func TestArrayLoader_LoadsUntilCovered(t *testing.T) {
	ctx := context.Background()
	f := newMemory(450, memory.Config{Sequential: true, ReportTotal: true})
	l := NewArrayFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	_, err := l.Get(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 450, l.Size())

	item, err := l.Get(ctx, 449)
	require.NoError(t, err)
	assert.Equal(t, "item-0449", item.Name)
	assert.Equal(t, 3, f.Calls())
	assert.Equal(t, 450, l.Loaded())
}

func TestArrayLoader_ExhaustedDoesNotRefetch(t *testing.T) {
	ctx := context.Background()
	f := folderFunc(func(_ context.Context, req folder.ListRequest) (*folder.ListResult, error) {
		// Claims 20 items but the listing ends after 10.
		res := folder.PageOf(testItems(10), 0, req.PageSize, false)
		res.Total = 20
		return res, nil
	})
	l := NewArrayFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	item, err := l.Get(ctx, 15)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, 10, l.Loaded())

	item, err = l.Get(ctx, 16)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, 10, l.Loaded(), "an exhausted listing is not reloaded from the start")
}

func TestArrayLoader_OnUpdateAfterEveryPage(t *testing.T) {
	ctx := context.Background()
	f := newMemory(450, memory.Config{Sequential: true, ReportTotal: true})
	l := NewArrayFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	var updates atomic.Int64
	l.SetOnUpdate(func() { updates.Add(1) })

	_, err := l.Get(ctx, 449)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updates.Load())
}

func TestArrayLoader_ConcurrentGetsShareLoad(t *testing.T) {
	ctx := context.Background()
	m := &countingMetrics{}
	release := make(chan struct{})
	f := newMemory(50, memory.Config{Sequential: true})
	f.SetFetchHook(blockUntil(release, nil))
	cfg := DefaultConfig()
	cfg.Metrics = m
	l := NewArrayFolderLoader(f, "/test", cfg)
	defer l.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := l.Get(ctx, 0)
			if assert.NoError(t, err) {
				assert.Equal(t, "item-0000", item.Name)
			}
		}()
	}

	require.Eventually(t, func() bool { return m.joins.Load() == 4 }, waitFor, time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, 1, f.Calls())
}

func TestArrayLoader_FailureIsRetried(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("rate limited")
	f := newMemory(10, memory.Config{Sequential: true})
	f.SetFetchHook(func(context.Context, folder.ListRequest) error { return boom })
	l := NewArrayFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	_, err := l.Get(ctx, 0)
	assert.ErrorIs(t, err, folder.ErrFetchFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, l.Loaded())

	f.SetFetchHook(nil)
	item, err := l.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "item-0000", item.Name)
}

func TestArrayLoader_InvalidateRestarts(t *testing.T) {
	ctx := context.Background()
	f := newMemory(10, memory.Config{Sequential: true})
	l := NewArrayFolderLoader(f, "/test", DefaultConfig())
	defer l.Close()

	var updates atomic.Int64
	l.SetOnUpdate(func() { updates.Add(1) })

	_, err := l.Get(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 10, l.Loaded())
	require.Equal(t, int64(1), updates.Load())

	replacement := testItems(3)
	replacement[0].Name = "fresh"
	f.SetItems(replacement...)

	require.Eventually(t, func() bool { return updates.Load() == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, 0, l.Loaded())

	item, err := l.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "fresh", item.Name)
	assert.Equal(t, 3, l.Size())
}

func TestArrayLoader_Close(t *testing.T) {
	f := newMemory(10, memory.Config{Sequential: true})
	l := NewArrayFolderLoader(f, "/test", DefaultConfig())
	l.Close()

	_, err := l.Get(context.Background(), 0)
	assert.ErrorIs(t, err, folder.ErrClosed)
	assert.Equal(t, 0, f.Subscribers())
}
