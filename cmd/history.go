package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/journal"
)

var (
	flagHistoryLimit   int
	flagHistorySession string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent delivery attempts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()

		var entries []journal.Entry
		if flagHistorySession != "" {
			entries, err = j.ForSession(cmd.Context(), flagHistorySession, flagHistoryLimit)
		} else {
			entries, err = j.Recent(cmd.Context(), flagHistoryLimit)
		}
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "TIME\tSESSION\tMODE\tCHANNEL\tRESULT")
		for _, e := range entries {
			result := "ok"
			if !e.Success {
				result = "error: " + e.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.At.Local().Format(time.DateTime), e.SessionID, e.Mode, e.Channel, result)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "entries to show (0 for all)")
	historyCmd.Flags().StringVar(&flagHistorySession, "session", "", "only this session id")
	rootCmd.AddCommand(historyCmd)
}
