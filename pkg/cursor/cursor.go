// Package cursor implements a filtered, bidirectional position over a loader.
//
// A Cursor scans a loader item by item in either direction until it finds an
// item accepted by its predicate. Skipped items are never buffered; the
// loader's page cache is the only storage involved.
//
// Sentinel Positions:
//   - -1: ran off the start (before the first item)
//   - Size(): ran off the end (after the last item)
//
// A sentinel is not an error. Moving again from a sentinel re-enters the range
// from that edge.
package cursor

import (
	"context"
	"errors"

	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/pkg/folder"
	"github.com/marmos91/dittobrowse/pkg/loader"
)

// BeforeStart is the sentinel position of a cursor that ran off the start.
const BeforeStart = -1

// Cursor is a filtered position over a loader.
//
// Thread Safety:
// A Cursor is NOT safe for concurrent use. Callers serialize their own
// navigation; the underlying loader is shared safely.
type Cursor struct {
	loader    loader.Loader
	position  int
	predicate Predicate

	onPositionChange func(position int)
}

// New creates a cursor at position. A nil predicate accepts every item.
//
// The position is not validated; the first MoveOffset clamps it to a sentinel
// when it lies outside the loader's range.
func New(l loader.Loader, position int, predicate Predicate) *Cursor {
	return &Cursor{
		loader:    l,
		position:  position,
		predicate: predicate,
	}
}

// Position returns the current position, possibly a sentinel.
func (c *Cursor) Position() int {
	return c.position
}

// Loader returns the loader the cursor walks.
func (c *Cursor) Loader() loader.Loader {
	return c.loader
}

// SetOnPositionChange installs the callback run whenever MoveOffset lands on
// a matching item. nil removes it.
func (c *Cursor) SetOnPositionChange(fn func(position int)) {
	c.onPositionChange = fn
}

// Current returns the item at the current position without moving, or nil at
// a sentinel.
func (c *Cursor) Current(ctx context.Context) (*folder.ContentInfo, error) {
	if c.position < 0 {
		return nil, nil
	}
	size := c.loader.Size()
	if size >= 0 && c.position >= size {
		return nil, nil
	}
	return c.loader.Get(ctx, c.position)
}

// MoveOffset jumps by delta once, then scans one item at a time in the
// direction of delta until an item satisfies the predicate.
//
// A delta of 0 re-checks the current item and scans forward from it. The
// magnitude of delta only affects the initial jump: MoveOffset(5) skips four
// items unconditionally and then behaves like MoveOffset(1).
//
// Returns:
//   - item, nil: the landing item; the position-change callback has run
//   - nil, nil: the scan ran off an end; Position is -1 or the loader size
//   - nil, error: a fetch failed; Position is left at the failing item so a
//     retry resumes from there
func (c *Cursor) MoveOffset(ctx context.Context, delta int) (*folder.ContentInfo, error) {
	step := 1
	if delta < 0 {
		step = -1
	}

	c.position += delta
	for {
		if c.position < 0 {
			c.position = BeforeStart
			return nil, nil
		}
		// Size may still be unknown; Get then fetches and establishes it.
		if size := c.loader.Size(); size >= 0 && c.position >= size {
			c.position = size
			return nil, nil
		}

		item, err := c.loader.Get(ctx, c.position)
		if errors.Is(err, folder.ErrOutOfRange) {
			// The size shrank underneath us; the bounds check above settles it.
			continue
		}
		if err != nil {
			logger.Debug("Cursor %q: get %d failed: %v", c.loader.Path(), c.position, err)
			return nil, err
		}

		if item != nil && (c.predicate == nil || c.predicate(item)) {
			if c.onPositionChange != nil {
				c.onPositionChange(c.position)
			}
			return item, nil
		}
		c.position += step
	}
}

// Next moves to the next matching item.
func (c *Cursor) Next(ctx context.Context) (*folder.ContentInfo, error) {
	return c.MoveOffset(ctx, 1)
}

// Prev moves to the previous matching item.
func (c *Cursor) Prev(ctx context.Context) (*folder.ContentInfo, error) {
	return c.MoveOffset(ctx, -1)
}
