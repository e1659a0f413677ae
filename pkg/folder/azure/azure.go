// Package azure implements folders backed by an Azure Blob Storage container.
//
// Blob names are "/"-separated paths below an optional prefix. A hierarchy
// listing with the "/" delimiter yields the blobs of a folder plus its
// sub-folders as blob prefixes. Listings continue through opaque markers, so
// every folder is sequential.
package azure

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// Provider exposes a container (or a prefix of it) as a folder tree.
//
// Thread Safety:
// Safe for concurrent use; the container client is.
type Provider struct {
	client Client
	prefix string
}

// NewProvider creates an Azure provider and verifies the container exists.
//
// Parameters:
//   - ctx: Context for the access check
//   - client: Container client (see NewClient)
//   - prefix: Optional blob name prefix
//
// Returns:
//   - *Provider: Initialized provider
//   - error: Missing client, container access failure, or context cancelled
func NewProvider(ctx context.Context, client Client, prefix string) (*Provider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("azure container client is required")
	}
	if err := client.Exists(ctx); err != nil {
		return nil, fmt.Errorf("failed to access container: %w", err)
	}

	prefix = folder.JoinPath(prefix)
	if prefix != "" {
		prefix += "/"
	}
	return &Provider{client: client, prefix: prefix}, nil
}

// Open returns the folder for loc. Empty virtual directories do not exist.
func (p *Provider) Open(ctx context.Context, loc folder.Location) (folder.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := p.prefix
	if sub := folder.JoinPath(loc.Sub); sub != "" {
		prefix += sub + "/"

		seg, err := p.client.ListPage(ctx, prefix, "", 1)
		if err != nil {
			return nil, fmt.Errorf("probe %q: %w", prefix, err)
		}
		if seg.Segment == nil || (len(seg.Segment.BlobItems) == 0 && len(seg.Segment.BlobPrefixes) == 0) {
			return nil, fmt.Errorf("folder %q: %w", loc.Path(), folder.ErrNotFound)
		}
	}

	return &BlobFolder{provider: p, loc: loc, prefix: prefix}, nil
}

// Close is a no-op; the client holds no per-provider resources.
func (p *Provider) Close() error {
	return nil
}

// BlobFolder is one virtual directory of the container.
//
// Implemented Interfaces:
//   - folder.Folder
//   - folder.SequentialFolder
//   - folder.InfoProvider
//   - folder.ParentPathProvider
type BlobFolder struct {
	provider *Provider
	loc      folder.Location
	prefix   string
}

// SequentialAccess is always true: hierarchy listings only page forward.
func (f *BlobFolder) SequentialAccess() bool {
	return true
}

// GetFiles lists one page. req.Cursor is the marker of the previous page.
func (f *BlobFolder) GetFiles(ctx context.Context, req folder.ListRequest) (*folder.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seg, err := f.provider.client.ListPage(ctx, f.prefix, req.Cursor, int32(req.PageSize))
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", f.prefix, err)
	}

	res := &folder.ListResult{Total: folder.UnknownSize}
	if seg.Segment != nil {
		res.Items = make([]folder.ContentInfo, 0, len(seg.Segment.BlobPrefixes)+len(seg.Segment.BlobItems))
		for _, bp := range seg.Segment.BlobPrefixes {
			if bp == nil {
				continue
			}
			name := strings.TrimSuffix(strings.TrimPrefix(deref(bp.Name, ""), f.prefix), "/")
			if name == "" {
				continue
			}
			res.Items = append(res.Items, folder.ContentInfo{
				Name: name,
				Type: folder.TypeFolder,
				Size: folder.UnknownSize,
				Path: f.loc.Child(name).Path(),
			})
		}
		for _, b := range seg.Segment.BlobItems {
			if item, ok := f.blobItem(b); ok {
				res.Items = append(res.Items, item)
			}
		}
	}

	res.Next = deref(seg.NextMarker, "")
	return res, nil
}

func (f *BlobFolder) blobItem(b *container.BlobItem) (folder.ContentInfo, bool) {
	if b == nil || b.Name == nil {
		return folder.ContentInfo{}, false
	}
	key := *b.Name
	name := strings.TrimPrefix(key, f.prefix)
	if name == "" || strings.HasSuffix(name, "/") {
		return folder.ContentInfo{}, false
	}

	item := folder.ContentInfo{
		Name:    name,
		Size:    folder.UnknownSize,
		Content: folder.DeferredSource(f.provider.download(key)),
	}
	if props := b.Properties; props != nil {
		item.Size = deref(props.ContentLength, folder.UnknownSize)
		item.UpdatedTime = deref(props.LastModified, item.UpdatedTime)
		if ct := deref(props.ContentType, ""); ct != "" && ct != "application/octet-stream" {
			item.Type, _, _ = strings.Cut(ct, ";")
		}
	}
	if item.Type == "" {
		item.Type = folder.TypeByExtension(name)
	}
	if folder.MediaKind(item.Type) == folder.MediaImage {
		item.Thumbnail = item.Content
	}
	return item, true
}

// GetInfo returns the folder name; blob counts are unknown.
func (f *BlobFolder) GetInfo(ctx context.Context) (*folder.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := f.loc.Source
	if f.loc.Sub != "" {
		name = path.Base(f.loc.Sub)
	}
	return &folder.Info{
		Type: folder.TypeFolder,
		Name: name,
		Path: f.loc.Path(),
		Size: folder.UnknownSize,
	}, nil
}

// ParentPath returns the logical parent path.
func (f *BlobFolder) ParentPath() string {
	return f.loc.ParentPath()
}

func (p *Provider) download(name string) folder.FetchFunc {
	return func(ctx context.Context) (io.ReadCloser, error) {
		rc, err := p.client.Download(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("download %q: %w", name, err)
		}
		return rc, nil
	}
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
