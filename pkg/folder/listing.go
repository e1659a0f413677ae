package folder

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// SortItems sorts items in place according to opts.
//
// Unknown or empty sort fields leave the provider order untouched. Ties keep
// their original relative order.
func SortItems(items []ContentInfo, opts Options) {
	var less func(a, b ContentInfo) int
	switch opts.SortField {
	case SortByName:
		less = func(a, b ContentInfo) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case SortByUpdatedTime:
		less = func(a, b ContentInfo) int {
			return a.UpdatedTime.Compare(b.UpdatedTime)
		}
	case SortBySize:
		less = func(a, b ContentInfo) int {
			return cmp.Compare(a.Size, b.Size)
		}
	case SortByType:
		less = func(a, b ContentInfo) int {
			return cmp.Compare(a.Type, b.Type)
		}
	default:
		return
	}

	if opts.Descending() {
		slices.SortStableFunc(items, func(a, b ContentInfo) int { return less(b, a) })
		return
	}
	slices.SortStableFunc(items, less)
}

// PageOf slices one offset-addressed page out of a fully materialized listing.
//
// Next is set to the offset of the following page when more items exist, so
// the result also serves cursor-addressed callers that echo it back through
// ParseOffsetCursor. Total is reported only when withTotal is set.
func PageOf(items []ContentInfo, offset, pageSize int, withTotal bool) *ListResult {
	res := &ListResult{Total: UnknownSize}
	if withTotal {
		res.Total = len(items)
	}
	if offset < 0 || offset >= len(items) || pageSize <= 0 {
		res.Items = []ContentInfo{}
		return res
	}

	end := min(offset+pageSize, len(items))
	res.Items = slices.Clone(items[offset:end])
	if end < len(items) {
		res.Next = strconv.Itoa(end)
	}
	return res
}

// ParseOffsetCursor decodes a cursor produced by PageOf. An empty cursor is
// offset 0.
func ParseOffsetCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 0 {
		return 0, ErrInvalidCursor
	}
	return n, nil
}

// RequestOffset returns the offset a request addresses, decoding the cursor
// when one is present.
func RequestOffset(req ListRequest) (int, error) {
	if req.Cursor != "" {
		return ParseOffsetCursor(req.Cursor)
	}
	return req.Offset, nil
}
