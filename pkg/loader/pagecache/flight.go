package pagecache

import (
	"context"
	"sync"
	"sync/atomic"
)

// Flight is one in-flight fetch shared by every caller that asked for the
// same resource before it settled (single-flight).
//
// A Flight settles exactly once. All waiters observe the same value and the
// same error, never a mix.
type Flight[V any] struct {
	done      chan struct{}
	once      sync.Once
	value     V
	err       error
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// NewFlight creates a pending flight. cancel stops the underlying transfer
// and may be nil.
func NewFlight[V any](cancel context.CancelFunc) *Flight[V] {
	return &Flight[V]{
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Cancel requests cancellation of the underlying fetch. The flight still
// settles through Settle; the fetcher decides the final error.
func (f *Flight[V]) Cancel() {
	f.cancelled.Store(true)
	if f.cancel != nil {
		f.cancel()
	}
}

// Cancelled reports whether Cancel was called.
func (f *Flight[V]) Cancelled() bool {
	return f.cancelled.Load()
}

// Settle records the outcome and wakes every waiter. Later calls are ignored.
// The cancellation handle is released once the flight has settled.
func (f *Flight[V]) Settle(value V, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
		if f.cancel != nil {
			f.cancel()
		}
	})
}

// Done is closed once the flight has settled.
func (f *Flight[V]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the flight settles or ctx is done.
//
// A waiter giving up does not cancel the flight: other callers may still be
// waiting on it.
func (f *Flight[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}
