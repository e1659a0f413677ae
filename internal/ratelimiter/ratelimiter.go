package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles page fetches sent to a storage provider using the
// token bucket algorithm.
//
// Remote listing APIs (object stores, cloud drives) commonly enforce request
// quotas. Bursts of cache misses, such as a grid scrolling quickly through a
// large folder, are smoothed to the configured sustained rate while still
// allowing a short burst for the first screen of items.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing requestsPerSecond sustained fetches with
// the given burst capacity.
//
// Special cases:
//   - requestsPerSecond = 0: no limiting
//   - burst = 0: burst equals requestsPerSecond
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether a fetch may start now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
//
// Returns the context error when the fetch was cancelled while queued.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Limit returns the configured sustained rate in fetches per second.
// Unlimited limiters report 0.
func (r *RateLimiter) Limit() float64 {
	if r.limiter.Limit() == rate.Inf {
		return 0
	}
	return float64(r.limiter.Limit())
}

// Burst returns the bucket capacity.
func (r *RateLimiter) Burst() int {
	return r.limiter.Burst()
}
