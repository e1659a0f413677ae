package folder

import "errors"

// ============================================================================
// Standard Folder Errors
// ============================================================================

// These errors give loaders, cursors and the CLI a consistent way to detect
// common failure conditions regardless of the provider.
//
// Usage Pattern:
//
//	item, err := l.Get(ctx, pos)
//	if errors.Is(err, folder.ErrOutOfRange) {
//	    // ran past the known end
//	}
//
// Error Wrapping:
// Providers wrap these errors with additional context:
//
//	return nil, fmt.Errorf("list %s: %w", prefix, folder.ErrNotFound)

var (
	// ErrOutOfRange indicates a negative position or one at or beyond a
	// known size. Never retried.
	ErrOutOfRange = errors.New("position out of range")

	// ErrFetchFailed indicates the provider rejected a page fetch.
	//
	// The affected page is not cached; the next access re-attempts the fetch.
	// Every caller that shared the fetch receives the same error.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrFetchCancelled indicates the fetch was cancelled, typically because
	// its page was evicted while still pending. It is always reported
	// together with ErrFetchFailed.
	ErrFetchCancelled = errors.New("fetch cancelled")

	// ErrNotFound indicates the folder or path does not exist.
	ErrNotFound = errors.New("folder not found")

	// ErrNotSupported indicates the provider lacks an optional capability.
	ErrNotSupported = errors.New("operation not supported")

	// ErrReadOnly indicates a write to a read-only collection.
	ErrReadOnly = errors.New("folder is read-only")

	// ErrClosed indicates the loader or provider has been closed.
	ErrClosed = errors.New("closed")

	// ErrInvalidCursor indicates a continuation token the provider did not
	// issue.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// FetchError wraps a provider error so that it matches ErrFetchFailed while
// keeping the original cause reachable through errors.Is/As.
func FetchError(cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, ErrFetchFailed) {
		return cause
	}
	return errors.Join(ErrFetchFailed, cause)
}

// CancelledError reports a fetch that was cancelled before it settled.
func CancelledError(cause error) error {
	if cause == nil {
		return errors.Join(ErrFetchFailed, ErrFetchCancelled)
	}
	return errors.Join(ErrFetchFailed, ErrFetchCancelled, cause)
}
