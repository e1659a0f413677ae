package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/pkg/browser"
	"github.com/marmos91/dittobrowse/pkg/config"
	"github.com/marmos91/dittobrowse/pkg/cursor"
	"github.com/spf13/cobra"
)

func newMetricsCmd(opts *options) *cobra.Command {
	var (
		paths    []string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Serve Prometheus metrics while crawling folders",
		Long: `Serve the Prometheus endpoint configured in the metrics section.

Every --walk path is crawled through a loader once per --interval, so the
loader and source metrics reflect real traffic. Stop with Ctrl+C.

Examples:
  dittobrowse metrics --walk local --walk local/photos --interval 1m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			res := config.InitializeMetrics(opts.cfg)
			if res.Server == nil {
				return fmt.Errorf("metrics are disabled: set metrics.enabled to true")
			}

			reg, err := opts.openRegistry(ctx, res.Sources)
			if err != nil {
				return err
			}
			defer func() {
				if err := reg.Close(); err != nil {
					logger.Warn("Failed to close sources: %v", err)
				}
			}()

			if len(paths) > 0 {
				sessionCfg := opts.cfg.SessionConfig(res.Loader)
				go crawlLoop(ctx, reg, sessionCfg, paths, interval)
			}

			return res.Server.Start(ctx)
		},
	}

	cmd.Flags().StringArrayVarP(&paths, "walk", "w", nil, "Folder to crawl periodically (repeatable)")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "Time between crawls")

	return cmd
}

// crawlLoop crawls paths immediately and then once per interval until ctx
// is cancelled.
func crawlLoop(ctx context.Context, opener browser.Opener, cfg browser.Config, paths []string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, path := range paths {
			n, err := crawl(ctx, opener, cfg, path)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				logger.Warn("Crawl of %q failed after %d items: %v", path, n, err)
				continue
			}
			logger.Info("Crawled %q: %d items", path, n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// crawl walks every item of the folder at path and returns how many it saw.
func crawl(ctx context.Context, opener browser.Opener, cfg browser.Config, path string) (int, error) {
	s := browser.New(opener, cfg)
	defer s.Close()

	if err := s.Open(ctx, path); err != nil {
		return 0, err
	}

	c := cursor.New(s.Loader(), cursor.BeforeStart, nil)
	n := 0
	for {
		item, err := c.Next(ctx)
		if err != nil {
			return n, err
		}
		if item == nil {
			return n, nil
		}
		n++
	}
}
