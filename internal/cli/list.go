package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/marmos91/dittobrowse/pkg/browser"
	"github.com/marmos91/dittobrowse/pkg/cursor"
	"github.com/marmos91/dittobrowse/pkg/folder"
	"github.com/spf13/cobra"
)

func newListCmd(opts *options) *cobra.Command {
	var (
		sortField string
		sortOrder string
		limit     int
	)

	cmd := &cobra.Command{
		Use:     "ls [PATH]",
		Aliases: []string{"list"},
		Short:   "List the items of a folder",
		Long: `List the items of a folder.

Without a path the configured sources are listed. Sorting is applied by the
source when it supports it.

Examples:
  dittobrowse ls
  dittobrowse ls local/photos --sort updatedTime --order d
  dittobrowse ls local/photos --limit 20`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, cleanup, err := opts.openSession(ctx, pathArg(args))
			if err != nil {
				return err
			}
			defer cleanup()

			if sortField != "" {
				if err := applySort(ctx, s, sortField, sortOrder); err != nil {
					return err
				}
			}

			return listItems(ctx, cmd.OutOrStdout(), newListCursor(s), limit)
		},
	}

	cmd.Flags().StringVarP(&sortField, "sort", "s", "", "Sort field (name, updatedTime, size, type)")
	cmd.Flags().StringVarP(&sortOrder, "order", "o", folder.SortAscending, "Sort order (a, d)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of items to print (0 = all)")

	return cmd
}

// applySort brings the session to the requested field and order.
//
// Session.Sort toggles the order when the field is already selected
// ascending, so at most two calls reach any selection.
func applySort(ctx context.Context, s *browser.Session, field, order string) error {
	if order != folder.SortAscending && order != folder.SortDescending {
		return fmt.Errorf("invalid sort order %q: must be %q or %q", order, folder.SortAscending, folder.SortDescending)
	}

	for i := 0; i < 2; i++ {
		if f, o := s.SortSelection(); f == field && o == order {
			return nil
		}
		if err := s.Sort(ctx, field); err != nil {
			return err
		}
	}
	return nil
}

// newListCursor returns an unfiltered cursor before the first item of the
// session's folder.
func newListCursor(s *browser.Session) *cursor.Cursor {
	return cursor.New(s.Loader(), cursor.BeforeStart, nil)
}

// listItems prints the items c lands on, moving forward. limit <= 0 prints
// every item.
func listItems(ctx context.Context, w io.Writer, c *cursor.Cursor, limit int) error {
	tw := newTable(w)
	writeItemHeader(tw)

	for n := 0; limit <= 0 || n < limit; n++ {
		item, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if item == nil {
			break
		}
		writeItem(tw, c.Position(), item)
	}
	return tw.Flush()
}

func newInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info [PATH]",
		Short: "Show folder metadata",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, cleanup, err := opts.openSession(ctx, pathArg(args))
			if err != nil {
				return err
			}
			defer cleanup()

			l := s.Loader()
			info, err := l.GetInfo(ctx)
			if err != nil {
				return err
			}

			mode := "random access"
			if folder.IsSequential(l.Folder()) {
				mode = "sequential"
			}
			field, order := s.SortSelection()
			if field == "" {
				field, order = "source order", "-"
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "Name:\t%s\n", info.Name)
			fmt.Fprintf(tw, "Path:\t%s\n", s.Path())
			fmt.Fprintf(tw, "Type:\t%s\n", info.Type)
			fmt.Fprintf(tw, "Items:\t%s\n", formatCount(info.Size))
			fmt.Fprintf(tw, "Access:\t%s\n", mode)
			fmt.Fprintf(tw, "Sort:\t%s (%s)\n", field, order)
			fmt.Fprintf(tw, "Thumbnail:\t%s\n", describeSource(info.Thumbnail))
			return tw.Flush()
		},
	}
}

// describeSource renders how the bytes of a source are obtained.
func describeSource(src folder.Source) string {
	switch src.Kind {
	case folder.SourceURL:
		return src.URL
	case folder.SourceDeferred:
		return "(fetched on demand)"
	default:
		return "-"
	}
}
