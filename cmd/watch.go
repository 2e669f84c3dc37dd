package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jayjongcheolpark/chat2md/internal/discover"
	"github.com/jayjongcheolpark/chat2md/internal/engine"
	"github.com/jayjongcheolpark/chat2md/internal/logger"
)

// debounceDelay batches bursts of filesystem events into one pass. Claude
// writes several lines in quick succession when a turn finishes.
const debounceDelay = 2 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the transcript tree and sync continuously",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if !cfg.SyncEnabled() {
			cmd.Println("sync is disabled in the configuration")
			return nil
		}

		e, err := newEngine()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// One pass up front so the watcher starts from a current baseline.
		if err := e.SyncNow(); err != nil && !errors.Is(err, engine.ErrSyncInFlight) {
			logger.Warnf("initial sync: %v", err)
		}

		e.StartPeriodicSync(cfg.Interval())
		defer e.StopPeriodicSync()

		events := make(chan string, 64)
		go func() {
			err := discover.Watch(ctx, cfg.SourceRoot, func(path string) {
				select {
				case events <- path:
				default:
				}
			})
			if err != nil && ctx.Err() == nil {
				logger.Errorf("watching %s: %v", cfg.SourceRoot, err)
			}
		}()

		cmd.Printf("Watching %s (interval %s). Press Ctrl+C to stop.\n", cfg.SourceRoot, cfg.Interval())

		var timer *time.Timer
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				cmd.Println("\nStopping.")
				return nil
			case path := <-events:
				logger.Debugf("transcript activity: %s", path)
				if timer == nil {
					timer = time.NewTimer(debounceDelay)
					debounce = timer.C
				} else {
					timer.Reset(debounceDelay)
				}
			case <-debounce:
				timer = nil
				debounce = nil
				if err := e.SyncNow(); err != nil && !errors.Is(err, engine.ErrSyncInFlight) {
					logger.Warnf("event-driven sync: %v", err)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
