package cli

import (
	"fmt"

	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/pkg/config"
	"github.com/spf13/cobra"
)

func newSourcesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured sources",
		Long: `List the configured sources.

Every source is initialized, so a source that cannot be reached (missing
bucket, unreadable directory) fails the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.openRegistry(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() {
				if err := reg.Close(); err != nil {
					logger.Warn("Failed to close sources: %v", err)
				}
			}()

			byName := make(map[string]*config.SourceConfig, len(opts.cfg.Sources))
			for i := range opts.cfg.Sources {
				byName[opts.cfg.Sources[i].Name] = &opts.cfg.Sources[i]
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "NAME\tTYPE\tRATE LIMIT")
			for _, name := range reg.ListSources() {
				src, err := reg.GetSource(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", src.Name, src.Type, formatRateLimit(byName[name]))
			}
			return tw.Flush()
		},
	}
}

// formatRateLimit renders a source's rate limit, "-" when unlimited.
func formatRateLimit(src *config.SourceConfig) string {
	if src == nil || src.RateLimit.RequestsPerSecond == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/s (burst %d)", src.RateLimit.RequestsPerSecond, src.RateLimit.Burst)
}
