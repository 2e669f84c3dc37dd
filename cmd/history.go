package cmd

import (
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/jayjongcheolpark/chat2md/internal/state"
	"github.com/jayjongcheolpark/chat2md/internal/tui"
)

var (
	plainHistory bool
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, rows, err := loadSnapshot()
		if err != nil {
			return err
		}

		if plainHistory || !term.IsTerminal(os.Stdout.Fd()) {
			printHistory(cmd, st.History)
			return nil
		}
		return tui.Run(st, rows)
	},
}

// printHistory writes the runs as plain text, newest first.
func printHistory(cmd *cobra.Command, entries []state.SyncHistoryEntry) {
	if len(entries) == 0 {
		cmd.Println("no recorded runs")
		return
	}
	if historyLimit > 0 && historyLimit < len(entries) {
		entries = entries[:historyLimit]
	}
	for _, entry := range entries {
		ts := entry.Timestamp.Format("2006-01-02 15:04:05")
		switch entry.Status {
		case state.StatusSuccess:
			cmd.Printf("%s  ok    %d file(s)\n", ts, entry.FilesCount)
		case state.StatusFailure:
			cmd.Printf("%s  fail  %s\n", ts, entry.Message)
		default:
			cmd.Printf("%s  skip\n", ts)
		}
	}
}

func init() {
	historyCmd.Flags().BoolVar(&plainHistory, "plain", false, "print plain text instead of the dashboard")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show at most n runs (0 = all)")
	rootCmd.AddCommand(historyCmd)
}
