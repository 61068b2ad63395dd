package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/model"
)

var flagHistory int

var captureCmd = &cobra.Command{
	Use:   "capture <pane-id>",
	Short: "Capture the content of a pane",
	Long: `Capture the content of a tmux pane and print it to stdout.

With --history N the capture starts N lines back in the scrollback.

This is pure transport: no interpretation of the content. Pipe it into
"pane-relay parse" to classify it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := model.PaneID(args[0])

		content, err := newMux().CapturePane(cmd.Context(), target, flagHistory)
		if err != nil {
			return fmt.Errorf("failed to capture pane %q: %w", target, err)
		}

		fmt.Fprint(os.Stdout, content)
		return nil
	},
}

func init() {
	captureCmd.Flags().IntVar(&flagHistory, "history", 0, "scrollback lines to include")
	paneCmd.AddCommand(captureCmd)
}
