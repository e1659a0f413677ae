// Package pagecache provides the bounded page cache used by random-access
// folder loaders.
//
// The cache maps a page index to exactly one slot. A slot is either pending
// (an in-flight Flight carrying its cancellation handle) or resolved (the
// fetched page). The two states are never conflated: a page index is never
// resolved and pending at the same time.
//
// Cache Strategy:
//   - Recency order kept in an explicit doubly-linked list (container/list)
//   - Resolved hits move the page to the most-recently-used end
//   - Before a new page is registered, pages are evicted from the
//     least-recently-used end until there is room for it
//   - Evicting a pending page cancels its fetch
//
// Thread Safety:
// Cache is NOT safe for concurrent use. The owning loader serializes access
// with its own mutex so that single-flight checks and eviction decisions are
// atomic with respect to interleaved requests.
package pagecache

import (
	"container/list"
)

// DefaultMaxPages is the resident page bound used when none is configured.
const DefaultMaxPages = 10

// State is the state of a cache slot.
type State int

const (
	// Absent means the page is not resident.
	Absent State = iota

	// Pending means a fetch for the page is in flight.
	Pending

	// Resolved means the page has been fetched.
	Resolved
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	default:
		return "absent"
	}
}

// slot is the tagged per-page state. Exactly one of flight/resolved applies.
type slot[V any] struct {
	index    int
	flight   *Flight[V]
	value    V
	resolved bool
	node     *list.Element
}

// Evicted describes a page removed to make room for a new one.
type Evicted struct {
	Index int

	// WasPending is true when the page was still being fetched and its
	// fetch has been cancelled.
	WasPending bool
}

// Cache is a bounded LRU mapping from page index to page state.
type Cache[V any] struct {
	maxPages int
	slots    map[int]*slot[V]
	lru      *list.List // front = least recently used, back = most recently used
}

// New creates an empty cache holding at most maxPages pages.
// Values below 1 select DefaultMaxPages.
func New[V any](maxPages int) *Cache[V] {
	if maxPages < 1 {
		maxPages = DefaultMaxPages
	}
	return &Cache[V]{
		maxPages: maxPages,
		slots:    make(map[int]*slot[V]),
		lru:      list.New(),
	}
}

// MaxPages returns the resident page bound.
func (c *Cache[V]) MaxPages() int {
	return c.maxPages
}

// Len returns the number of resident pages, pending ones included.
func (c *Cache[V]) Len() int {
	return len(c.slots)
}

// State returns the state of page index without touching it.
func (c *Cache[V]) State(index int) State {
	s, ok := c.slots[index]
	switch {
	case !ok:
		return Absent
	case s.resolved:
		return Resolved
	default:
		return Pending
	}
}

// Get returns the resolved page and moves it to the most-recently-used end.
// Pending and absent pages report false and are not touched.
func (c *Cache[V]) Get(index int) (V, bool) {
	s, ok := c.slots[index]
	if !ok || !s.resolved {
		var zero V
		return zero, false
	}
	c.lru.MoveToBack(s.node)
	return s.value, true
}

// Flight returns the in-flight fetch for a pending page.
func (c *Cache[V]) Flight(index int) (*Flight[V], bool) {
	s, ok := c.slots[index]
	if !ok || s.resolved {
		return nil, false
	}
	return s.flight, true
}

// MakeRoom evicts least-recently-used pages while the cache is at capacity,
// cancelling the fetch of every evicted pending page.
//
// Only pages already resident are considered, so a caller that registers its
// page right after MakeRoom can never have that page evicted by its own pass.
func (c *Cache[V]) MakeRoom() []Evicted {
	var evicted []Evicted
	for len(c.slots) >= c.maxPages {
		front := c.lru.Front()
		if front == nil {
			break
		}
		s := front.Value.(*slot[V])
		c.removeSlot(s)

		ev := Evicted{Index: s.index}
		if !s.resolved {
			ev.WasPending = true
			s.flight.Cancel()
		}
		evicted = append(evicted, ev)
	}
	return evicted
}

// StartPending registers flight as the pending slot of page index at the
// most-recently-used end. Any previous slot for index is replaced (and
// cancelled if pending); callers normally check State first.
func (c *Cache[V]) StartPending(index int, flight *Flight[V]) {
	if old, ok := c.slots[index]; ok {
		c.removeSlot(old)
		if !old.resolved {
			old.flight.Cancel()
		}
	}
	s := &slot[V]{index: index, flight: flight}
	s.node = c.lru.PushBack(s)
	c.slots[index] = s
}

// Resolve turns the pending slot owned by flight into a resolved page.
//
// It reports false, leaving the cache untouched, when the slot for index is
// no longer the one created for flight (the page was evicted or cleared while
// in flight). A late completion therefore never resurrects an evicted page.
func (c *Cache[V]) Resolve(index int, flight *Flight[V], value V) bool {
	s, ok := c.slots[index]
	if !ok || s.resolved || s.flight != flight {
		return false
	}
	s.value = value
	s.resolved = true
	s.flight = nil
	return true
}

// Discard removes the pending slot owned by flight, typically after its fetch
// failed. It reports whether a slot was removed.
func (c *Cache[V]) Discard(index int, flight *Flight[V]) bool {
	s, ok := c.slots[index]
	if !ok || s.resolved || s.flight != flight {
		return false
	}
	c.removeSlot(s)
	return true
}

// Clear drops every page, cancelling pending fetches. It returns the number
// of pending fetches cancelled.
func (c *Cache[V]) Clear() int {
	cancelled := 0
	for _, s := range c.slots {
		if !s.resolved {
			s.flight.Cancel()
			cancelled++
		}
	}
	c.slots = make(map[int]*slot[V])
	c.lru.Init()
	return cancelled
}

// Indexes returns resident page indexes from least to most recently used.
func (c *Cache[V]) Indexes() []int {
	out := make([]int, 0, c.lru.Len())
	for e := c.lru.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*slot[V]).index)
	}
	return out
}

func (c *Cache[V]) removeSlot(s *slot[V]) {
	c.lru.Remove(s.node)
	delete(c.slots, s.index)
}
