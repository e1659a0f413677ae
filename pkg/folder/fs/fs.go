// Package fs implements folders backed by a local directory tree.
package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// Config configures a filesystem provider.
type Config struct {
	// Root is the directory exposed as the provider root.
	Root string `mapstructure:"root" validate:"required"`

	// ShowHidden lists dot-files.
	ShowHidden bool `mapstructure:"show_hidden"`

	// Watch enables change notification through fsnotify.
	Watch bool `mapstructure:"watch"`
}

// Provider exposes a local directory tree.
//
// Thread Safety:
// Safe for concurrent use. Directory listings are re-read on every fetch, so
// the filesystem is the only state.
type Provider struct {
	cfg     Config
	root    string
	watcher *watcher
}

// NewProvider creates a filesystem provider rooted at cfg.Root.
//
// Parameters:
//   - ctx: Context for cancellation (checked before touching the filesystem)
//   - cfg: Provider configuration
//
// Returns:
//   - *Provider: Initialized provider
//   - error: Root missing, not a directory, watcher setup failure, or context
//     cancelled
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", cfg.Root, err)
	}
	st, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("root %q: %w", root, folder.ErrNotFound)
		}
		return nil, fmt.Errorf("stat root %q: %w", root, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", root)
	}

	p := &Provider{cfg: cfg, root: root}
	if cfg.Watch {
		w, err := newWatcher()
		if err != nil {
			return nil, err
		}
		p.watcher = w
	}
	return p, nil
}

// Open returns the folder at loc.Sub below the root. Paths into a zip file
// ("album.zip" or "album.zip/2024") open a ZipFolder.
func (p *Provider) Open(ctx context.Context, loc folder.Location) (folder.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := p.resolve(loc.Sub)
	if err != nil {
		return nil, err
	}
	if st, err := os.Stat(dir); err == nil && st.IsDir() {
		return &FSFolder{provider: p, loc: loc, dir: dir}, nil
	}

	if file, inner, ok := p.locateArchive(loc.Sub); ok {
		return p.openArchive(ctx, loc, file, inner)
	}
	return nil, fmt.Errorf("folder %q: %w", loc.Path(), folder.ErrNotFound)
}

// Close stops the watcher, if any.
func (p *Provider) Close() error {
	if p.watcher != nil {
		return p.watcher.close()
	}
	return nil
}

// resolve maps a logical sub path to a directory, refusing to leave the root.
func (p *Provider) resolve(sub string) (string, error) {
	sub = folder.JoinPath(sub)
	for _, part := range strings.Split(sub, "/") {
		if part == ".." {
			return "", fmt.Errorf("path %q escapes the root: %w", sub, folder.ErrNotFound)
		}
	}
	return filepath.Join(p.root, filepath.FromSlash(sub)), nil
}

// ============================================================================
// FSFolder
// ============================================================================

// FSFolder is one directory. It is offset-addressable and reports totals.
//
// Implemented Interfaces:
//   - folder.Folder
//   - folder.InfoProvider
//   - folder.ParentPathProvider
//   - folder.Notifier (no-op unless the provider watches)
type FSFolder struct {
	provider *Provider
	loc      folder.Location
	dir      string
}

// GetFiles lists the directory and returns one page.
//
// MIME detection reads file headers, so it only runs for the items on the
// requested page (or for every file when sorting by type). The context is
// checked between files.
func (f *FSFolder) GetFiles(ctx context.Context, req folder.ListRequest) (*folder.ListResult, error) {
	// ========================================================================
	// Step 1: Read the directory
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	offset, err := folder.RequestOffset(req)
	if err != nil {
		return nil, err
	}

	items, err := f.readDir()
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Sort and slice the page
	// ========================================================================

	if req.Options.SortField == folder.SortByType {
		if err := f.detectTypes(ctx, items); err != nil {
			return nil, err
		}
	}
	folder.SortItems(items, req.Options)
	res := folder.PageOf(items, offset, req.PageSize, true)

	// ========================================================================
	// Step 3: Detect types for the page
	// ========================================================================

	if err := f.detectTypes(ctx, res.Items); err != nil {
		return nil, err
	}
	return res, nil
}

// readDir lists visible entries with stat information but no MIME type.
func (f *FSFolder) readDir() ([]folder.ContentInfo, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("folder %q: %w", f.loc.Path(), folder.ErrNotFound)
		}
		return nil, fmt.Errorf("read dir %q: %w", f.dir, err)
	}

	items := make([]folder.ContentInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !f.provider.cfg.ShowHidden && strings.HasPrefix(name, ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}

		item := folder.ContentInfo{
			Name:        name,
			UpdatedTime: info.ModTime(),
			Size:        info.Size(),
		}
		if e.IsDir() {
			item.Type = folder.TypeFolder
			item.Size = folder.UnknownSize
			item.Path = f.loc.Child(name).Path()
		}
		items = append(items, item)
	}
	return items, nil
}

// detectTypes fills Type, Content and Thumbnail of file items in place.
func (f *FSFolder) detectTypes(ctx context.Context, items []folder.ContentInfo) error {
	for i := range items {
		if items[i].Type != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		full := filepath.Join(f.dir, items[i].Name)
		items[i].Type = detectType(full)
		items[i].Content = folder.DeferredSource(openFile(full))
		if folder.MediaKind(items[i].Type) == folder.MediaImage {
			items[i].Thumbnail = items[i].Content
		}
		if items[i].Type == folder.TypeArchive {
			items[i].Path = f.loc.Child(items[i].Name).Path()
		}
	}
	return nil
}

// detectType sniffs the file header. Zip files are reported as archives and
// open as ZipFolders.
func detectType(path string) string {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		logger.Debug("Detect type of %q: %v", path, err)
		return "application/octet-stream"
	}
	if m.Is("application/zip") {
		return folder.TypeArchive
	}
	t, _, _ := strings.Cut(m.String(), ";")
	return strings.TrimSpace(t)
}

func openFile(path string) folder.FetchFunc {
	return func(ctx context.Context) (io.ReadCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.Open(path)
	}
}

// GetInfo returns the directory name and entry count.
func (f *FSFolder) GetInfo(ctx context.Context) (*folder.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items, err := f.readDir()
	if err != nil {
		return nil, err
	}

	name := f.loc.Source
	if f.loc.Sub != "" {
		name = filepath.Base(f.dir)
	}
	return &folder.Info{
		Type: folder.TypeFolder,
		Name: name,
		Path: f.loc.Path(),
		Size: len(items),
	}, nil
}

// ParentPath returns the logical parent path.
func (f *FSFolder) ParentPath() string {
	return f.loc.ParentPath()
}

// Subscribe runs fn whenever an entry of the directory changes. Without a
// watcher it never fires.
func (f *FSFolder) Subscribe(fn func()) func() {
	if f.provider.watcher == nil {
		return func() {}
	}
	unsubscribe, err := f.provider.watcher.subscribe(f.dir, fn)
	if err != nil {
		logger.Warn("Watch %q: %v", f.dir, err)
		return func() {}
	}
	return unsubscribe
}
