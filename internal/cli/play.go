package cli

import (
	"fmt"
	"strconv"

	"github.com/marmos91/dittobrowse/pkg/browser"
	"github.com/spf13/cobra"
)

func newPlayCmd(opts *options) *cobra.Command {
	var next int

	cmd := &cobra.Command{
		Use:   "play PATH POSITION",
		Short: "Activate an item as a viewer would",
		Long: `Activate the item at POSITION of the folder at PATH.

Containers are opened and listed. Any other item is resolved for playback:
its content source is printed, followed by the next playable items in the
folder (what a viewer's "next" button would show).

Examples:
  dittobrowse play local/photos 0
  dittobrowse play local/photos 12 --next 5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			position, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[1], err)
			}

			s, cleanup, err := opts.openSession(ctx, args[0])
			if err != nil {
				return err
			}
			defer cleanup()

			act, err := s.Activate(ctx, position)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if act.Kind == browser.Navigated {
				fmt.Fprintf(out, "Opened %s (%s)\n", act.Path, s.Title())
				return listItems(ctx, out, newListCursor(s), next)
			}

			tw := newTable(out)
			fmt.Fprintf(tw, "Name:\t%s\n", act.Item.Name)
			fmt.Fprintf(tw, "Type:\t%s\n", act.Item.Type)
			fmt.Fprintf(tw, "Size:\t%s\n", formatSize(act.Item))
			fmt.Fprintf(tw, "Content:\t%s\n", describeSource(act.Item.Content))
			if err := tw.Flush(); err != nil {
				return err
			}

			if next <= 0 {
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Up next:")
			return listItems(ctx, out, act.Cursor, next)
		},
	}

	cmd.Flags().IntVarP(&next, "next", "n", 5, "Number of following items to show")

	return cmd
}
