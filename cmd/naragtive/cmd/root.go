// Package cmd provides the CLI commands for naragtive.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/naragtive/naragtive/internal/app"
	"github.com/naragtive/naragtive/internal/config"
	"github.com/naragtive/naragtive/internal/logging"
	"github.com/naragtive/naragtive/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the naragtive CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "naragtive",
		Short: "Semantic search over narrative archives",
		Long: `Naragtive searches narrative scene archives with two-stage
retrieval: embedding similarity first, optional cross-encoder
reranking second.

Register a store with 'naragtive stores register', then search it
with 'naragtive search' or interactively with 'naragtive tui'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("naragtive version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.naragtive/logs/")
	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newTuiCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newStoresCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogging(*cobra.Command, []string) error {
	lcfg := logging.DefaultConfig()
	if cfg, err := config.Load(); err == nil {
		lcfg.Level = cfg.Logging.Level
		if cfg.Logging.MaxSizeMB > 0 {
			lcfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		}
		if cfg.Logging.MaxFiles > 0 {
			lcfg.MaxFiles = cfg.Logging.MaxFiles
		}
	}
	if debugMode {
		lcfg.Level = "debug"
	}

	logger, cleanup, err := logging.Setup(lcfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	slog.SetDefault(logger)
	loggingCleanup = cleanup
	return nil
}

// newApp loads configuration and wires the engine. Callers own the
// returned App and must Close it.
func newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg)
}
