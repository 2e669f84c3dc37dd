package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jayjongcheolpark/chat2md/internal/state"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass now",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.SyncEnabled() {
			cmd.Println("sync is disabled in the configuration")
			return nil
		}

		e, err := newEngine()
		if err != nil {
			return err
		}
		start := time.Now()
		if err := e.SyncNow(); err != nil {
			return err
		}

		st := e.Status()
		if len(st.History) > 0 && st.History[0].Status == state.StatusSuccess {
			cmd.Printf("Synced %d file(s) to %s in %s\n",
				st.History[0].FilesCount, cfg.DestRoot, time.Since(start).Round(time.Millisecond))
		} else {
			cmd.Println("Nothing new to sync.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
