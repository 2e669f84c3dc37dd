package cmd

import (
	"sort"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List tracked transcripts and their sync offsets",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, rows, err := loadSnapshot()
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			cmd.Println("no tracked transcripts")
			return nil
		}

		sort.Slice(rows, func(i, j int) bool { return rows[i].LastSynced.After(rows[j].LastSynced) })
		for _, row := range rows {
			cmd.Printf("%s  %-24s line %d\n", row.LastSynced.Format("2006-01-02 15:04"), row.Project, row.LastLine)
			cmd.Printf("                  %s\n", row.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}
