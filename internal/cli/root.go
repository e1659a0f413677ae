// Package cli provides the command-line interface for dittobrowse.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/marmos91/dittobrowse/internal/logger"
	"github.com/marmos91/dittobrowse/pkg/browser"
	"github.com/marmos91/dittobrowse/pkg/config"
	"github.com/marmos91/dittobrowse/pkg/registry"
	"github.com/spf13/cobra"
)

// Version information, overridden at build time via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// options holds the global flags and the state built from them.
type options struct {
	cfgFile string
	verbose bool

	cfg *config.Config
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "dittobrowse",
		Short: "Browse media folders across local and remote storage",
		Long: `dittobrowse ` + Version + ` - Built: ` + BuildTime + `
Browse folders of local directories, object stores and listing APIs through
paged, cached loaders.

Every path starts with a source name from the configuration file
(e.g. "photos/2024/summer"). The empty path lists the sources.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// init must work without a valid configuration.
			if cmd.Name() == "init" {
				return nil
			}
			return opts.load()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "Configuration file path (default: $XDG_CONFIG_HOME/dittobrowse/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = Version + " (" + BuildTime + ")"

	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newInfoCmd(opts))
	rootCmd.AddCommand(newWalkCmd(opts))
	rootCmd.AddCommand(newPlayCmd(opts))
	rootCmd.AddCommand(newFavoritesCmd(opts))
	rootCmd.AddCommand(newSourcesCmd(opts))
	rootCmd.AddCommand(newMetricsCmd(opts))
	rootCmd.AddCommand(newInitCmd(opts))

	return rootCmd
}

// Execute runs the CLI with a context cancelled by SIGINT and SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}

// load reads the configuration and configures logging from it.
func (o *options) load() error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to set log output: %w", err)
	}
	if o.verbose {
		logger.SetLevel("DEBUG")
	}

	o.cfg = cfg
	return nil
}

// openRegistry creates the registry of the configured sources. m may be nil.
func (o *options) openRegistry(ctx context.Context, m registry.Metrics) (*registry.Registry, error) {
	return config.InitializeRegistry(ctx, o.cfg, m)
}

// openSession creates a session showing path. The returned cleanup closes
// the session and the registry.
func (o *options) openSession(ctx context.Context, path string) (*browser.Session, func(), error) {
	reg, err := o.openRegistry(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	s := browser.New(reg, o.cfg.SessionConfig(nil))
	cleanup := func() {
		s.Close()
		if err := reg.Close(); err != nil {
			logger.Warn("Failed to close sources: %v", err)
		}
	}

	if err := s.Open(ctx, strings.Trim(path, "/")); err != nil {
		cleanup()
		return nil, nil, err
	}
	return s, cleanup, nil
}

// pathArg returns the first argument or the root path.
func pathArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
