package cli

import (
	"fmt"

	"github.com/marmos91/dittobrowse/pkg/config"
	"github.com/spf13/cobra"
)

func newInitCmd(opts *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a commented default configuration file.

The file goes to --config when given, otherwise to
$XDG_CONFIG_HOME/dittobrowse/config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.cfgFile
			var err error
			if path == "" {
				path, err = config.InitConfig(force)
			} else {
				err = config.InitConfigToPath(path, force)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration file")

	return cmd
}
