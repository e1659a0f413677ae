package testing

import (
	"context"
	"fmt"

	"github.com/marmos91/dittobrowse/pkg/folder"
)

// maxPages guards ListAll against providers that never stop announcing more.
const maxPages = 10000

// ListAll walks every page of f and returns the concatenated items. It uses
// cursors for sequential folders and offsets otherwise.
func ListAll(ctx context.Context, f folder.Folder, pageSize int, opts folder.Options) ([]folder.ContentInfo, error) {
	sequential := folder.IsSequential(f)
	var (
		all    []folder.ContentInfo
		cursor string
	)

	for page := 0; page < maxPages; page++ {
		req := folder.ListRequest{PageSize: pageSize, Options: opts}
		if sequential {
			req.Cursor = cursor
		} else {
			req.Offset = len(all)
		}

		res, err := f.GetFiles(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, res.Items...)
		if !res.HasMore() || len(res.Items) == 0 {
			return all, nil
		}
		cursor = res.Next
	}
	return nil, fmt.Errorf("listing did not terminate after %d pages", maxPages)
}

// Names returns the item names in order.
func Names(items []folder.ContentInfo) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return names
}
