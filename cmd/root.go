package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jayjongcheolpark/chat2md/internal/config"
	"github.com/jayjongcheolpark/chat2md/internal/engine"
	"github.com/jayjongcheolpark/chat2md/internal/logger"
	"github.com/jayjongcheolpark/chat2md/internal/state"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "chat2md",
	Short: "Mirror Claude Code chat transcripts into daily Markdown files",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Configure(verbose)

		// Load and merge config files.
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		local, err := config.LoadLocal()
		if err != nil {
			return fmt.Errorf("loading local config: %w", err)
		}
		cfg = config.Merge(global, local)

		if err := cfg.ExpandPaths(); err != nil {
			return fmt.Errorf("expanding configured paths: %w", err)
		}
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

// newEngine wires an engine over freshly loaded state and history.
func newEngine() (*engine.Engine, error) {
	store, err := state.NewStore()
	if err != nil {
		return nil, err
	}
	store.Load()

	history, err := state.NewHistory()
	if err != nil {
		return nil, err
	}
	history.Load()

	return engine.New(engine.Options{
		SourceRoot:   cfg.SourceRoot,
		DestRoot:     cfg.DestRoot,
		MinSizeBytes: cfg.MinSizeBytes,
		MaxAge:       cfg.MaxAge(),
	}, store, history), nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
