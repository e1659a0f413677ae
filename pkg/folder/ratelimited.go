package folder

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittobrowse/internal/ratelimiter"
)

// RateLimitedFolder throttles GetFiles calls of the wrapped folder.
//
// Waiting for a token honors the fetch context, so a page evicted while its
// fetch is still queued behind the limiter is cancelled without ever reaching
// the provider. Optional capabilities of the wrapped folder stay reachable
// through Unwrap.
type RateLimitedFolder struct {
	Folder
	limiter *ratelimiter.RateLimiter
	observe ObserveFunc
}

// ObserveFunc receives the outcome of every GetFiles call that went through
// an instrumented folder, including the time spent waiting for a token.
type ObserveFunc func(items int, duration time.Duration, err error)

// RateLimited wraps f so that at most requestsPerSecond fetches (with the
// given burst) reach it. A zero rate returns f unchanged.
func RateLimited(f Folder, requestsPerSecond, burst uint) Folder {
	if requestsPerSecond == 0 {
		return f
	}
	if burst == 0 {
		burst = requestsPerSecond
	}
	return &RateLimitedFolder{
		Folder:  f,
		limiter: ratelimiter.New(requestsPerSecond, burst),
	}
}

// Instrument wraps f with an optional limiter and an optional observer. The
// registry passes one limiter to every folder of a source so that they all
// draw from the same request budget. With neither, f is returned unchanged.
func Instrument(f Folder, limiter *ratelimiter.RateLimiter, observe ObserveFunc) Folder {
	if limiter == nil && observe == nil {
		return f
	}
	return &RateLimitedFolder{Folder: f, limiter: limiter, observe: observe}
}

// GetFiles waits for a token and forwards the request.
func (r *RateLimitedFolder) GetFiles(ctx context.Context, req ListRequest) (*ListResult, error) {
	start := time.Now()
	res, err := r.getFiles(ctx, req)
	if r.observe != nil {
		items := 0
		if res != nil {
			items = len(res.Items)
		}
		r.observe(items, time.Since(start), err)
	}
	return res, err
}

func (r *RateLimitedFolder) getFiles(ctx context.Context, req ListRequest) (*ListResult, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}
	return r.Folder.GetFiles(ctx, req)
}

// Unwrap returns the wrapped folder.
func (r *RateLimitedFolder) Unwrap() Folder {
	return r.Folder
}

// SequentialAccess forwards to the wrapped folder.
func (r *RateLimitedFolder) SequentialAccess() bool {
	return IsSequential(r.Folder)
}

// GetInfo forwards to the wrapped folder when it provides metadata.
func (r *RateLimitedFolder) GetInfo(ctx context.Context) (*Info, error) {
	if p, ok := r.Folder.(InfoProvider); ok {
		return p.GetInfo(ctx)
	}
	return nil, nil
}

// ParentPath forwards to the wrapped folder.
func (r *RateLimitedFolder) ParentPath() string {
	if p, ok := r.Folder.(ParentPathProvider); ok {
		return p.ParentPath()
	}
	return ""
}

// Subscribe forwards to the wrapped folder. Folders without change
// notification never invoke fn.
func (r *RateLimitedFolder) Subscribe(fn func()) func() {
	if n, ok := r.Folder.(Notifier); ok {
		return n.Subscribe(fn)
	}
	return func() {}
}

// AddItem forwards to the wrapped folder when it is a writable collection.
func (r *RateLimitedFolder) AddItem(ctx context.Context, item ContentInfo) error {
	if s, ok := r.Folder.(ItemStore); ok {
		return s.AddItem(ctx, item)
	}
	return ErrNotSupported
}

// RemoveItem forwards to the wrapped folder when it is a writable collection.
func (r *RateLimitedFolder) RemoveItem(ctx context.Context, item ContentInfo) error {
	if s, ok := r.Folder.(ItemStore); ok {
		return s.RemoveItem(ctx, item)
	}
	return ErrNotSupported
}
