package cli

import (
	"context"
	"fmt"

	"github.com/marmos91/dittobrowse/pkg/browser"
	"github.com/marmos91/dittobrowse/pkg/cursor"
	"github.com/spf13/cobra"
)

// walkFlags select the items a walk accepts.
type walkFlags struct {
	glob     string
	typ      string
	media    bool
	playable bool
	start    int
	reverse  bool
	limit    int
}

// predicate combines the selected filters. nil accepts every item.
func (f *walkFlags) predicate() (cursor.Predicate, error) {
	var preds []cursor.Predicate
	if f.glob != "" {
		p, err := cursor.Glob(f.glob)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if f.typ != "" {
		preds = append(preds, cursor.TypePrefix(f.typ))
	}
	if f.media {
		preds = append(preds, cursor.Media())
	}
	if f.playable {
		preds = append(preds, cursor.Playable())
	}

	switch len(preds) {
	case 0:
		return nil, nil
	case 1:
		return preds[0], nil
	default:
		return cursor.And(preds...), nil
	}
}

func newWalkCmd(opts *options) *cobra.Command {
	flags := &walkFlags{}

	cmd := &cobra.Command{
		Use:   "walk [PATH]",
		Short: "Walk the items of a folder that match filters",
		Long: `Walk the items of a folder with a filtered cursor.

The cursor skips items rejected by the filters and stops at either end of
the folder. Filters combine with AND.

Examples:
  dittobrowse walk local/photos --media
  dittobrowse walk local/photos --glob '*.jpg' --limit 10
  dittobrowse walk local/music --type audio/ --reverse`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pred, err := flags.predicate()
			if err != nil {
				return err
			}

			s, cleanup, err := opts.openSession(ctx, pathArg(args))
			if err != nil {
				return err
			}
			defer cleanup()

			c, err := startCursor(ctx, s, flags, pred)
			if err != nil {
				return err
			}
			return walkItems(ctx, cmd, c, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.glob, "glob", "g", "", "Accept items whose name matches a glob pattern (supports **)")
	cmd.Flags().StringVarP(&flags.typ, "type", "t", "", "Accept items whose type starts with a prefix (e.g. image/)")
	cmd.Flags().BoolVar(&flags.media, "media", false, "Accept images, videos and audio only")
	cmd.Flags().BoolVar(&flags.playable, "playable", false, "Accept playable items only")
	cmd.Flags().IntVar(&flags.start, "start", -1, "Position to walk from, exclusive (default: the edge the walk starts at)")
	cmd.Flags().BoolVarP(&flags.reverse, "reverse", "r", false, "Walk backwards")
	cmd.Flags().IntVarP(&flags.limit, "limit", "n", 0, "Maximum number of items to print (0 = all)")

	return cmd
}

// startCursor creates the cursor of a walk.
//
// A reverse walk without --start begins after the last known item; the first
// page is fetched so that the size is known.
func startCursor(ctx context.Context, s *browser.Session, flags *walkFlags, pred cursor.Predicate) (*cursor.Cursor, error) {
	l := s.Loader()
	start := flags.start
	if flags.reverse && start < 0 {
		if _, err := l.GetInfo(ctx); err != nil {
			return nil, err
		}
		start = max(l.Size(), 0)
	}
	return cursor.New(l, start, pred), nil
}

// walkItems prints the items the cursor lands on until it runs off an end.
func walkItems(ctx context.Context, cmd *cobra.Command, c *cursor.Cursor, flags *walkFlags) error {
	tw := newTable(cmd.OutOrStdout())
	writeItemHeader(tw)

	move := c.Next
	if flags.reverse {
		move = c.Prev
	}

	for n := 0; flags.limit <= 0 || n < flags.limit; n++ {
		item, err := move(ctx)
		if err != nil {
			_ = tw.Flush()
			return fmt.Errorf("walk stopped at %d: %w", c.Position(), err)
		}
		if item == nil {
			break
		}
		writeItem(tw, c.Position(), item)
	}
	return tw.Flush()
}
