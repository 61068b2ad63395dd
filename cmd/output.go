package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/model"
)

var (
	flagTail     int
	flagFromLine int
	flagPaneLog  bool
)

var outputCmd = &cobra.Command{
	Use:   "output",
	Short: "Read session logs written by tmux pipe-pane",
}

var outputReadCmd = &cobra.Command{
	Use:   "read <session-id>",
	Short: "Print a session log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := newLogReader()
		if flagPaneLog {
			content, err := r.ReadPane(model.PaneID(args[0]))
			if err != nil {
				return err
			}
			fmt.Print(content)
			return nil
		}
		if flagFromLine > 0 {
			lines, err := r.From(model.SessionID(args[0]), flagFromLine)
			if err != nil {
				return err
			}
			printLines(lines)
			return nil
		}
		content, err := r.Read(model.SessionID(args[0]))
		if err != nil {
			return err
		}
		fmt.Print(content)
		return nil
	},
}

var outputTailCmd = &cobra.Command{
	Use:   "tail <session-id>",
	Short: "Print the last lines of a session log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := newLogReader().Tail(model.SessionID(args[0]), flagTail)
		if err != nil {
			return err
		}
		printLines(lines)
		return nil
	},
}

var outputWatchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Follow a session log until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		emit := func(line string) { fmt.Println(line) }
		r := newLogReader()
		var err error
		if flagPaneLog {
			err = r.WatchPane(ctx, model.PaneID(args[0]), emit)
		} else {
			err = r.Watch(ctx, model.SessionID(args[0]), emit)
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var outputSearchCmd = &cobra.Command{
	Use:   "search <session-id> <text>",
	Short: "Print log lines containing text",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := newLogReader().Search(model.SessionID(args[0]), args[1])
		if err != nil {
			return err
		}
		printLines(lines)
		return nil
	},
}

func init() {
	outputReadCmd.Flags().IntVar(&flagFromLine, "from", 0, "skip this many lines")
	outputReadCmd.Flags().BoolVar(&flagPaneLog, "pane", false, "argument is a pane id")
	outputWatchCmd.Flags().BoolVar(&flagPaneLog, "pane", false, "argument is a pane id")
	outputTailCmd.Flags().IntVarP(&flagTail, "lines", "n", 20, "number of lines")

	outputCmd.AddCommand(outputReadCmd, outputTailCmd, outputWatchCmd, outputSearchCmd)
	rootCmd.AddCommand(outputCmd)
}

func printLines(lines []string) {
	for _, l := range lines {
		fmt.Println(l)
	}
}
