package registry

import (
	"github.com/marmos91/dittobrowse/internal/ratelimiter"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// Source is a configured, named storage backend:
// - A source name (the first element of every logical path below it)
// - The provider that opens its folders
// - An optional request budget shared by all its folders
//
// A provider may back a single source only; closing the registry closes it.
type Source struct {
	Name     string
	Type     string // Provider type as configured (filesystem, s3, ...)
	Provider folder.Provider

	// limiter throttles GetFiles for every folder of the source. Nil means
	// unlimited.
	limiter *ratelimiter.RateLimiter
}

// SourceConfig describes a source to add.
type SourceConfig struct {
	Name     string
	Type     string
	Provider folder.Provider

	// RequestsPerSecond limits page fetches across the whole source.
	// Zero disables limiting.
	RequestsPerSecond uint

	// Burst is the token bucket capacity (0 = RequestsPerSecond).
	Burst uint
}
