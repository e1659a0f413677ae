package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFavoritesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage the favorites collection",
		Long: `Manage the favorites collection named by browse.favorites_path.

The collection must live in a writable source (memory or badger). Memory
sources forget their items when the process exits.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add PATH",
		Short: "Add a folder to the favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := opts.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.AddFavorite(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) to %s\n", s.Path(), s.Title(), opts.cfg.Browse.FavoritesPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm PATH",
		Aliases: []string{"remove"},
		Short:   "Remove a folder from the favorites",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := opts.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cleanup()

			if err := s.RemoveFavorite(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s\n", s.Path(), opts.cfg.Browse.FavoritesPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List the favorites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.Browse.FavoritesPath == "" {
				return fmt.Errorf("favorites are disabled: set browse.favorites_path")
			}

			s, cleanup, err := opts.openSession(cmd.Context(), opts.cfg.Browse.FavoritesPath)
			if err != nil {
				return err
			}
			defer cleanup()

			return listItems(cmd.Context(), cmd.OutOrStdout(), newListCursor(s), 0)
		},
	})

	return cmd
}
