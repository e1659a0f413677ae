package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/dittobrowse/pkg/folder"
)

// newTable returns a tab-aligned writer for listings.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// writeItemHeader writes the column titles of writeItem.
func writeItemHeader(w io.Writer) {
	fmt.Fprintln(w, "#\tNAME\tTYPE\tSIZE\tMODIFIED")
}

// writeItem writes one listing row.
func writeItem(w io.Writer, position int, item *folder.ContentInfo) {
	name := item.Name
	if folder.IsContainer(item.Type) {
		name += "/"
	}
	fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", position, name, item.Type, formatSize(item), formatTime(item))
}

// formatSize renders the item size for humans. Containers and unknown
// sizes render as "-".
func formatSize(item *folder.ContentInfo) string {
	if item.Size < 0 || folder.IsStructural(item.Type) {
		return "-"
	}
	return humanize.Bytes(uint64(item.Size))
}

// formatTime renders the update time relative to now, or "-" when unknown.
func formatTime(item *folder.ContentInfo) string {
	if item.UpdatedTime.IsZero() {
		return "-"
	}
	return humanize.Time(item.UpdatedTime)
}

// formatCount renders an item count, "unknown" for folder.UnknownSize.
func formatCount(n int) string {
	if n < 0 {
		return "unknown"
	}
	return humanize.Comma(int64(n))
}
