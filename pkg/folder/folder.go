// Package folder defines the listing capability consumed by the loaders.
//
// A Folder is a logical directory backed by some storage provider (local
// filesystem, object store, HTTP API, embedded database). The loaders in
// pkg/loader only ever talk to this interface; they never know which concrete
// provider sits behind it.
package folder

import (
	"context"
	"io"
	"strings"
	"time"
)

// UnknownSize is reported in ListResult.Total and Info.Size when the provider
// does not know how many items a folder holds.
const UnknownSize = -1

// ============================================================================
// Folder Interface
// ============================================================================

// Folder provides paginated item listings for a logical directory.
//
// Two delivery modes exist:
//   - Offset-addressable: ListRequest.Offset selects the first item of the
//     page. Any page can be fetched at any time (random access).
//   - Cursor-addressable: ListRequest.Cursor carries the opaque token returned
//     in the previous ListResult.Next. Only forward traversal is possible.
//     Such folders implement SequentialFolder and report true.
//
// Cancellation:
// The context is the cancellation token of the fetch. Implementations should
// observe it best-effort and stop transferring data when it is cancelled.
// Returning partial data after cancellation is allowed; the loader discards it.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Fetches for different pages may be issued and complete in any order.
type Folder interface {
	// GetFiles returns one page of items.
	//
	// Parameters:
	//   - ctx: Cancellation token for the fetch
	//   - req: Offset or cursor, page size and passthrough options
	//
	// Returns:
	//   - *ListResult: Items plus continuation information
	//   - error: Provider failure or context error
	GetFiles(ctx context.Context, req ListRequest) (*ListResult, error)
}

// ListRequest describes one page fetch.
type ListRequest struct {
	// Offset is the index of the first item (offset-addressable folders).
	Offset int

	// Cursor is the continuation token from the previous page
	// (cursor-addressable folders). Empty means "start".
	Cursor string

	// PageSize is the maximum number of items to return.
	PageSize int

	// Options carries sort/filter hints. The loaders never interpret them.
	Options Options
}

// ListResult is one page returned by GetFiles.
type ListResult struct {
	// Items in listing order.
	Items []ContentInfo

	// Next is the continuation token for the following page.
	// Empty means there is no further page. Offset-addressable folders set it
	// to any non-empty value when more items exist.
	Next string

	// Total is the total number of items in the folder, or UnknownSize.
	Total int
}

// HasMore reports whether another page is known to exist.
func (r *ListResult) HasMore() bool {
	return r.Next != ""
}

// Options are passthrough listing hints.
type Options struct {
	// SortField is one of SortByName, SortByUpdatedTime, SortBySize, SortByType
	// or empty for provider order.
	SortField string

	// SortOrder is SortAscending or SortDescending.
	SortOrder string

	// Extra carries provider-specific hints.
	Extra map[string]string
}

// Sort fields and orders understood by the bundled providers.
const (
	SortByName        = "name"
	SortByUpdatedTime = "updatedTime"
	SortBySize        = "size"
	SortByType        = "type"

	SortAscending  = "a"
	SortDescending = "d"
)

// Descending reports whether the options ask for reverse order.
func (o Options) Descending() bool {
	return o.SortOrder == SortDescending
}

// ============================================================================
// Optional Capabilities
// ============================================================================

// InfoProvider is implemented by folders that know their own metadata.
type InfoProvider interface {
	GetInfo(ctx context.Context) (*Info, error)
}

// ParentPathProvider is implemented by folders that can name their parent.
// An empty string means the folder is a root.
type ParentPathProvider interface {
	ParentPath() string
}

// SequentialFolder marks cursor-addressable folders.
type SequentialFolder interface {
	SequentialAccess() bool
}

// Notifier is implemented by folders that can signal "contents changed".
//
// The callback may be invoked from any goroutine. The returned function
// removes the subscription and is safe to call more than once.
type Notifier interface {
	Subscribe(fn func()) (unsubscribe func())
}

// ItemStore is implemented by writable collections (favorites, tags).
type ItemStore interface {
	AddItem(ctx context.Context, item ContentInfo) error
	RemoveItem(ctx context.Context, item ContentInfo) error
}

// IsSequential reports whether f only supports forward cursor pagination.
func IsSequential(f Folder) bool {
	s, ok := f.(SequentialFolder)
	return ok && s.SequentialAccess()
}

// ============================================================================
// Items
// ============================================================================

// Info describes a folder as a whole.
//
// Zero values mean "not supplied". Loaders only trust a positive Size;
// providers that do not know the count leave it at 0 or UnknownSize.
type Info struct {
	Type      string
	Name      string
	Path      string
	Size      int
	Thumbnail Source
}

// ContentInfo describes one listed item.
//
// ContentInfo values are immutable once returned by a Folder. Loaders hand
// out pointers into their cached pages; callers must not modify them.
type ContentInfo struct {
	// Name is the display name.
	Name string

	// Type is a MIME-like type or one of the structural types
	// (TypeFolder, TypeList, TypeTag, TypeArchive).
	Type string

	// Size in bytes, or UnknownSize.
	Size int64

	// UpdatedTime is the modification time; zero when unknown.
	UpdatedTime time.Time

	// Path overrides navigation when the item is opened. Optional.
	Path string

	// Thumbnail is how to obtain a preview image.
	Thumbnail Source

	// Content is how to obtain the item bytes.
	Content Source
}

// SourceKind discriminates Source.
type SourceKind int

const (
	// SourceNone means the bytes cannot be obtained.
	SourceNone SourceKind = iota

	// SourceURL means the bytes live at Source.URL.
	SourceURL

	// SourceDeferred means the bytes are produced by Source.Fetch.
	SourceDeferred
)

// FetchFunc produces item bytes on demand. The caller closes the reader.
type FetchFunc func(ctx context.Context) (io.ReadCloser, error)

// Source is one of the two ways to obtain bytes: a direct URL or a deferred
// fetch capability.
type Source struct {
	Kind  SourceKind
	URL   string
	Fetch FetchFunc
}

// URLSource returns a direct URL source. An empty URL yields SourceNone.
func URLSource(url string) Source {
	if url == "" {
		return Source{}
	}
	return Source{Kind: SourceURL, URL: url}
}

// DeferredSource returns a deferred fetch source.
func DeferredSource(fetch FetchFunc) Source {
	if fetch == nil {
		return Source{}
	}
	return Source{Kind: SourceDeferred, Fetch: fetch}
}

// Available reports whether the source can produce bytes.
func (s Source) Available() bool {
	switch s.Kind {
	case SourceURL:
		return s.URL != ""
	case SourceDeferred:
		return s.Fetch != nil
	default:
		return false
	}
}

// ============================================================================
// Providers and Locations
// ============================================================================

// Location addresses a folder: the name of the provider it lives in plus a
// "/"-separated path inside that provider. The zero Location is the root that
// lists every provider.
type Location struct {
	Source string
	Sub    string
}

// Path returns the logical path "source/sub".
func (l Location) Path() string {
	return JoinPath(l.Source, l.Sub)
}

// Child returns the location of the entry name inside l.
func (l Location) Child(name string) Location {
	if l.Source == "" {
		return Location{Source: name}
	}
	return Location{Source: l.Source, Sub: JoinPath(l.Sub, name)}
}

// ParentPath returns the logical path of the parent folder, or "" when the
// parent is the root.
func (l Location) ParentPath() string {
	return ParentOf(l.Path())
}

// Provider opens folders of one configured storage backend.
type Provider interface {
	// Open returns the folder at loc. loc.Sub is "" for the provider root.
	Open(ctx context.Context, loc Location) (Folder, error)

	// Close releases provider resources.
	Close() error
}

// JoinPath joins logical path elements with "/", dropping empty elements and
// stray separators.
func JoinPath(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		for _, p := range strings.Split(e, "/") {
			if p != "" && p != "." {
				parts = append(parts, p)
			}
		}
	}
	return strings.Join(parts, "/")
}

// ParentOf returns the parent of a logical path, "" for top-level paths.
func ParentOf(p string) string {
	p = JoinPath(p)
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// SplitPath splits a logical path into its provider name and the path inside
// that provider.
func SplitPath(p string) Location {
	p = JoinPath(p)
	source, sub, _ := strings.Cut(p, "/")
	return Location{Source: source, Sub: sub}
}
