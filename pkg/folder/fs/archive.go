package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// locateArchive finds the zip file that sub points into. It returns the file
// on disk and the directory inside the archive ("" for its top level).
func (p *Provider) locateArchive(sub string) (string, string, bool) {
	sub = folder.JoinPath(sub)
	if sub == "" {
		return "", "", false
	}

	parts := strings.Split(sub, "/")
	for i := 1; i <= len(parts); i++ {
		file := filepath.Join(p.root, filepath.FromSlash(strings.Join(parts[:i], "/")))
		st, err := os.Stat(file)
		if err != nil {
			return "", "", false
		}
		if st.IsDir() {
			continue
		}
		if detectType(file) != folder.TypeArchive {
			return "", "", false
		}
		return file, strings.Join(parts[i:], "/"), true
	}
	return "", "", false
}

// openArchive opens the directory inner of the zip file at file.
func (p *Provider) openArchive(ctx context.Context, loc folder.Location, file, inner string) (folder.Folder, error) {
	z := &ZipFolder{provider: p, loc: loc, file: file, inner: inner}
	if inner == "" {
		return z, nil
	}

	// Directories inside a zip exist only through the entries below them.
	if _, err := z.list(ctx); err != nil {
		return nil, err
	}
	return z, nil
}

// ============================================================================
// ZipFolder
// ============================================================================

// ZipFolder is one directory level of a zip archive. It is offset-addressable
// and reports totals. The archive is reopened on every listing so a replaced
// file is picked up without invalidation.
//
// Implemented Interfaces:
//   - folder.Folder
//   - folder.InfoProvider
//   - folder.ParentPathProvider
type ZipFolder struct {
	provider *Provider
	loc      folder.Location
	file     string
	inner    string
}

// GetFiles lists the entries directly below the folder and returns one page.
func (z *ZipFolder) GetFiles(ctx context.Context, req folder.ListRequest) (*folder.ListResult, error) {
	offset, err := folder.RequestOffset(req)
	if err != nil {
		return nil, err
	}

	items, err := z.list(ctx)
	if err != nil {
		return nil, err
	}
	folder.SortItems(items, req.Options)
	return folder.PageOf(items, offset, req.PageSize, true), nil
}

// list reads the central directory and folds nested entries into their first
// directory level. Missing inner directories are ErrNotFound.
func (z *ZipFolder) list(ctx context.Context) ([]folder.ContentInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := zip.OpenReader(z.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("archive %q: %w", z.loc.Path(), folder.ErrNotFound)
		}
		return nil, fmt.Errorf("open archive %q: %w", z.file, err)
	}
	defer r.Close()

	prefix := ""
	if z.inner != "" {
		prefix = z.inner + "/"
	}

	var items []folder.ContentInfo
	dirs := make(map[string]bool)
	found := z.inner == ""
	for _, f := range r.File {
		name := folder.JoinPath(f.Name)
		if name == z.inner && z.inner != "" {
			found = found || f.FileInfo().IsDir()
			continue
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		found = true

		rel := strings.TrimPrefix(name, prefix)
		first, _, nested := strings.Cut(rel, "/")
		if !z.provider.cfg.ShowHidden && (strings.HasPrefix(first, ".") || first == "__MACOSX") {
			continue
		}

		if nested || f.FileInfo().IsDir() {
			if dirs[first] {
				continue
			}
			dirs[first] = true
			items = append(items, folder.ContentInfo{
				Name:        first,
				Type:        folder.TypeFolder,
				Size:        folder.UnknownSize,
				Path:        z.loc.Child(first).Path(),
				UpdatedTime: f.Modified,
			})
			continue
		}

		item := folder.ContentInfo{
			Name:        first,
			Type:        folder.TypeByExtension(first),
			Size:        int64(f.UncompressedSize64),
			UpdatedTime: f.Modified,
			Content:     folder.DeferredSource(z.openEntry(name)),
		}
		if folder.MediaKind(item.Type) == folder.MediaImage {
			item.Thumbnail = item.Content
		}
		items = append(items, item)
	}

	if !found {
		return nil, fmt.Errorf("folder %q: %w", z.loc.Path(), folder.ErrNotFound)
	}
	return items, nil
}

// openEntry returns a fetch that streams one entry. The archive stays open
// until the returned reader is closed.
func (z *ZipFolder) openEntry(name string) folder.FetchFunc {
	return func(ctx context.Context) (io.ReadCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r, err := zip.OpenReader(z.file)
		if err != nil {
			return nil, fmt.Errorf("open archive %q: %w", z.file, err)
		}
		for _, f := range r.File {
			if folder.JoinPath(f.Name) != name {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				_ = r.Close()
				return nil, fmt.Errorf("open entry %q: %w", name, err)
			}
			return &entryReader{ReadCloser: rc, archive: r}, nil
		}
		_ = r.Close()
		return nil, fmt.Errorf("entry %q: %w", name, folder.ErrNotFound)
	}
}

// entryReader closes the archive together with the entry.
type entryReader struct {
	io.ReadCloser
	archive io.Closer
}

func (e *entryReader) Close() error {
	err := e.ReadCloser.Close()
	if cerr := e.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

// GetInfo returns the archive or directory name and its entry count.
func (z *ZipFolder) GetInfo(ctx context.Context) (*folder.Info, error) {
	items, err := z.list(ctx)
	if err != nil {
		return nil, err
	}

	info := &folder.Info{
		Type: folder.TypeArchive,
		Name: filepath.Base(z.file),
		Path: z.loc.Path(),
		Size: len(items),
	}
	if z.inner != "" {
		info.Type = folder.TypeFolder
		info.Name = path.Base(z.inner)
	}
	return info, nil
}

// ParentPath returns the logical parent path. The parent of the archive's
// top level is the directory holding the zip file.
func (z *ZipFolder) ParentPath() string {
	return z.loc.ParentPath()
}
