package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jayjongcheolpark/chat2md/internal/state"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear sync state and re-export from scratch",
	Long: `Reset clears every recorded offset and the run history, then runs one
fresh pass. Exported Markdown files are left in place, so transcripts are
appended again from line zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine()
		if err != nil {
			return err
		}
		if err := e.ResetState(); err != nil {
			return err
		}

		st := e.Status()
		if len(st.History) > 0 && st.History[0].Status == state.StatusSuccess {
			cmd.Printf("State cleared. Re-exported %d file(s).\n", st.History[0].FilesCount)
		} else {
			cmd.Println("State cleared.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
