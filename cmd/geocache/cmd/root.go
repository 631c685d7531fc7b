// Package cmd provides the CLI commands for geocache.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mapknit/geocache/internal/config"
	"github.com/mapknit/geocache/internal/logging"
	"github.com/mapknit/geocache/internal/ui"
	"github.com/mapknit/geocache/pkg/version"
)

// defaultLogMaxFiles caps rotated log files when a file path is
// configured but config.LoggingConfig carries no count of its own.
const defaultLogMaxFiles = 5

var (
	cfgDir   string
	noColor  bool
	logLevel string

	cfg            *config.Config
	logger         *slog.Logger
	styles         ui.Styles
	loggingCleanup func()
)

// NewRootCmd creates the root command for the geocache CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "geocache",
		Short:   "Coalesce engine and posting-list store for forward geocoding",
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(cfgDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if logLevel != "" {
				loaded.Logging.Level = logLevel
			}
			cfg = loaded

			if cfg.Logging.FilePath != "" {
				setupLogger, cleanup, err := logging.Setup(logging.Config{
					Level:         cfg.Logging.Level,
					FilePath:      cfg.Logging.FilePath,
					MaxSizeMB:     cfg.Logging.MaxSizeMB,
					MaxFiles:      defaultLogMaxFiles,
					WriteToStderr: true,
				})
				if err != nil {
					return fmt.Errorf("setting up file logging: %w", err)
				}
				logger = setupLogger
				loggingCleanup = cleanup
			} else {
				logger = logging.SetupStderrOnly(cfg.Logging.Level)
			}

			styles = ui.AutoStyles(cmd.OutOrStdout(), noColor)
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if loggingCleanup != nil {
				loggingCleanup()
				loggingCleanup = nil
			}
			return nil
		},
	}
	root.SetVersionTemplate("geocache version {{.Version}}\n")

	root.PersistentFlags().StringVar(&cfgDir, "config-dir", ".", "directory to look for .geocache.yaml in")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colorized output")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(newPackCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newMatchCmd())
	root.AddCommand(newCoalesceCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
