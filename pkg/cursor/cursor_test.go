package cursor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/marmos91/dittobrowse/pkg/folder"
	"github.com/marmos91/dittobrowse/pkg/folder/memory"
	"github.com/marmos91/dittobrowse/pkg/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

func typed(types ...string) []folder.ContentInfo {
	items := make([]folder.ContentInfo, len(types))
	for i, t := range types {
		items[i] = folder.ContentInfo{Name: fmt.Sprintf("%d-%s", i, t), Type: t}
	}
	return items
}

func newLoader(t *testing.T, cfg memory.Config, items ...folder.ContentInfo) loader.Loader {
	t.Helper()
	cfg.Path = "/test"
	l := loader.New(memory.NewMemoryFolder(cfg, items...), "/test", loader.DefaultConfig())
	t.Cleanup(l.Close)
	return l
}

// ============================================================================
// MoveOffset Tests
// ============================================================================

func TestMoveOffset_PredicateScenario(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t, memory.Config{}, typed("text/plain", "image/png", "text/plain", "image/jpeg")...)
	c := New(l, BeforeStart, TypePrefix("image"))

	var reported []int
	c.SetOnPositionChange(func(p int) { reported = append(reported, p) })

	item, err := c.MoveOffset(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 1, c.Position())
	assert.Equal(t, "image/png", item.Type)

	item, err = c.MoveOffset(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 3, c.Position())

	item, err = c.MoveOffset(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, 4, c.Position(), "running off the end parks at size")

	assert.Equal(t, []int{1, 3}, reported)
}

func TestMoveOffset_BackwardRunsOffStart(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t, memory.Config{}, typed("text/plain", "image/png", "text/plain", "image/jpeg")...)
	c := New(l, 4, TypePrefix("image"))

	// Size is unknown until something is fetched.
	_, err := l.Get(ctx, 0)
	require.NoError(t, err)

	item, err := c.MoveOffset(ctx, -1)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 3, c.Position())

	item, err = c.MoveOffset(ctx, -1)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 1, c.Position())

	item, err = c.MoveOffset(ctx, -1)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, BeforeStart, c.Position())

	// Re-entering from the start sentinel resumes forward.
	item, err = c.MoveOffset(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 1, c.Position())
}

func TestMoveOffset_NoPredicateIsSequential(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t, memory.Config{}, typed("a/x", "b/y", "c/z")...)
	c := New(l, BeforeStart, nil)

	for want := 0; want < 3; want++ {
		item, err := c.Next(ctx)
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, want, c.Position())
	}
	item, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, 3, c.Position())

	item, err = c.Prev(ctx)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 2, c.Position())
}

func TestMoveOffset_JumpsOnceThenScans(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t, memory.Config{ReportTotal: true}, typed("image/a", "image/b", "text/c", "text/d", "image/e", "image/f")...)
	c := New(l, 0, Media())

	// Jump 2 lands on a text item, then the scan continues by one.
	item, err := c.MoveOffset(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 4, c.Position())
}

func TestMoveOffset_ZeroRechecksCurrent(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t, memory.Config{}, typed("text/a", "image/b")...)
	c := New(l, 0, Media())

	item, err := c.MoveOffset(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 1, c.Position())

	item, err = c.MoveOffset(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 1, c.Position(), "a matching current item is returned in place")
}

func TestMoveOffset_EmptyFolder(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t, memory.Config{})
	c := New(l, BeforeStart, nil)

	item, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, 0, c.Position())
}

func TestMoveOffset_AcrossPages(t *testing.T) {
	ctx := context.Background()
	types := make([]string, 130)
	for i := range types {
		types[i] = "text/plain"
	}
	types[125] = "video/mp4"
	l := newLoader(t, memory.Config{}, typed(types...)...)
	c := New(l, BeforeStart, Media())

	item, err := c.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 125, c.Position())

	item, err = c.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, 130, c.Position())
}

func TestMoveOffset_SequentialLoader(t *testing.T) {
	ctx := context.Background()
	types := make([]string, 450)
	for i := range types {
		types[i] = "text/plain"
	}
	types[420] = "audio/mpeg"
	l := newLoader(t, memory.Config{Sequential: true}, typed(types...)...)
	c := New(l, BeforeStart, Media())

	item, err := c.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 420, c.Position())
}

func TestMoveOffset_FetchErrorKeepsPosition(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("offline")
	f := memory.NewMemoryFolder(memory.Config{Path: "/test"}, typed("text/a", "image/b")...)
	f.SetFetchHook(func(context.Context, folder.ListRequest) error { return boom })
	l := loader.New(f, "/test", loader.DefaultConfig())
	defer l.Close()
	c := New(l, BeforeStart, Media())

	_, err := c.Next(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, folder.ErrFetchFailed)
	assert.Equal(t, 0, c.Position())

	f.SetFetchHook(nil)
	item, err := c.MoveOffset(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 1, c.Position())
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t, memory.Config{ReportTotal: true}, typed("image/a", "image/b")...)
	c := New(l, 1, nil)

	item, err := c.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "1-image/b", item.Name)

	_, err = c.Next(ctx)
	require.NoError(t, err)
	item, err = c.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, item)
}

// ============================================================================
// Predicate Tests
// ============================================================================

func TestPredicates(t *testing.T) {
	png := &folder.ContentInfo{Name: "Holiday.PNG", Type: "image/png"}
	txt := &folder.ContentInfo{Name: "notes.txt", Type: "text/plain"}
	doc := &folder.ContentInfo{
		Name:      "slides",
		Type:      "application/vnd.google-apps.presentation",
		Thumbnail: folder.URLSource("https://lh3.googleusercontent.com/abc=s220"),
	}

	glob, err := Glob("*.{png,jpg}")
	require.NoError(t, err)

	tests := []struct {
		name string
		pred Predicate
		item *folder.ContentInfo
		want bool
	}{
		{"MediaImage", Media(), png, true},
		{"MediaText", Media(), txt, false},
		{"PlayableThumbnail", Playable(), doc, true},
		{"PlayableText", Playable(), txt, false},
		{"TypePrefix", TypePrefix("text"), txt, true},
		{"GlobCaseInsensitive", glob, png, true},
		{"GlobMiss", glob, txt, false},
		{"And", And(Media(), glob), png, true},
		{"AndMiss", And(Media(), TypePrefix("video")), png, false},
		{"Or", Or(TypePrefix("video"), TypePrefix("text")), txt, true},
		{"OrMiss", Or(TypePrefix("video")), txt, false},
		{"Not", Not(Media()), txt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred(tt.item))
		})
	}
}

func TestGlob_InvalidPattern(t *testing.T) {
	_, err := Glob("[unterminated")
	assert.Error(t, err)
}
