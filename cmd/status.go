package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jayjongcheolpark/chat2md/internal/engine"
	"github.com/jayjongcheolpark/chat2md/internal/project"
	"github.com/jayjongcheolpark/chat2md/internal/state"
	"github.com/jayjongcheolpark/chat2md/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync state and the most recent run",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := loadSnapshot()
		if err != nil {
			return err
		}

		cmd.Printf("State: %s\n", st.State)
		if st.LastSync.IsZero() {
			cmd.Println("Last sync: never")
		} else {
			cmd.Printf("Last sync: %s (%s ago)\n",
				st.LastSync.Format(time.RFC3339),
				time.Since(st.LastSync).Round(time.Second))
		}
		if st.LastError != "" {
			cmd.Printf("Last error: %s\n", st.LastError)
		}
		cmd.Printf("Tracked files: %d\n", st.TrackedFiles)
		cmd.Printf("Runs remembered: %d\n", len(st.History))
		cmd.Printf("Source: %s\n", cfg.SourceRoot)
		cmd.Printf("Destination: %s\n", cfg.DestRoot)
		if !cfg.SyncEnabled() {
			cmd.Println("Sync is disabled in the configuration.")
		}
		return nil
	},
}

// loadSnapshot rebuilds a status snapshot and the tracked session rows
// from the persisted state, the way a fresh process sees them.
func loadSnapshot() (engine.Status, []tui.SessionRow, error) {
	store, err := state.NewStore()
	if err != nil {
		return engine.Status{}, nil, err
	}
	store.Load()

	history, err := state.NewHistory()
	if err != nil {
		return engine.Status{}, nil, err
	}
	history.Load()

	st := engine.Status{
		State:        engine.StateIdle,
		TrackedFiles: store.Count(),
		History:      history.Recent(0),
	}
	if last, ok := history.Last(); ok {
		st.LastSync = last.Timestamp
		if last.Status == state.StatusFailure {
			st.State = engine.StateError
			st.LastError = last.Message
		}
	}

	resolver := project.NewResolver()
	var rows []tui.SessionRow
	for path, session := range store.Sessions() {
		rows = append(rows, tui.SessionRow{
			Path:       path,
			Project:    resolver.Resolve(path),
			LastLine:   session.LastSyncedLine,
			LastSynced: session.LastSyncedTimestamp,
		})
	}
	return st, rows, nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
