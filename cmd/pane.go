package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/mux"
)

var (
	flagNoEnter    bool
	flagHorizontal bool
	flagWidth      int
	flagHeight     int
)

var paneCmd = &cobra.Command{
	Use:   "pane",
	Short: "Inspect and drive tmux panes",
}

var paneSendCmd = &cobra.Command{
	Use:   "send <pane-id> <text>...",
	Short: "Type text into a pane and press Enter",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := model.PaneID(args[0])
		text := strings.Join(args[1:], " ")
		m := newMux()
		if flagNoEnter {
			return m.SendKeys(cmd.Context(), id, text)
		}
		return m.SendKeysEnter(cmd.Context(), id, text)
	},
}

var paneSplitCmd = &cobra.Command{
	Use:   "split <window-id>",
	Short: "Split a window and print the new pane id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := mux.SplitVertical
		if flagHorizontal {
			dir = mux.SplitHorizontal
		}
		p, err := newMux().SplitWindow(cmd.Context(), model.WindowID(args[0]), dir)
		if err != nil {
			return fmt.Errorf("failed to split window %q: %w", args[0], err)
		}
		fmt.Println(p.ID)
		return nil
	},
}

var paneKillCmd = &cobra.Command{
	Use:   "kill <pane-id>",
	Short: "Kill a pane",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return newMux().KillPane(cmd.Context(), model.PaneID(args[0]))
	},
}

var paneResizeCmd = &cobra.Command{
	Use:   "resize <pane-id>",
	Short: "Resize a pane",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagWidth <= 0 && flagHeight <= 0 {
			return fmt.Errorf("need --width or --height")
		}
		return newMux().ResizePane(cmd.Context(), model.PaneID(args[0]), flagWidth, flagHeight)
	},
}

func init() {
	paneSendCmd.Flags().BoolVar(&flagNoEnter, "no-enter", false, "type the text without pressing Enter")
	paneSplitCmd.Flags().BoolVar(&flagHorizontal, "horizontal", false, "split side by side instead of top and bottom")
	paneResizeCmd.Flags().IntVar(&flagWidth, "width", 0, "new width in columns")
	paneResizeCmd.Flags().IntVar(&flagHeight, "height", 0, "new height in rows")

	paneCmd.AddCommand(paneSendCmd, paneSplitCmd, paneKillCmd, paneResizeCmd)
	rootCmd.AddCommand(paneCmd)
}
