package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/model"
)

var (
	flagQueuePane   string
	flagQueuePrompt bool
	flagQueueAgent  string
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Stage messages on disk for later delivery",
}

var queueEnqueueCmd = &cobra.Command{
	Use:   "enqueue <session> <text>...",
	Short: "Queue a message for a session's pane",
	Long: `Queue a message for a tmux session. The destination is the session's first
pane, or "<session>:0.0" when the session is not running. --pane picks the
destination explicitly. With --prompt the text is also written to the pane's
prompt file with a metadata header.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := newQueue()
		if err != nil {
			return err
		}
		session, text := args[0], strings.Join(args[1:], " ")

		var id string
		switch {
		case flagQueuePrompt:
			id, err = q.SendPrompt(cmd.Context(), session, text, flagQueueAgent)
		case flagQueuePane != "":
			var qm model.QueuedMessage
			qm, err = q.Enqueue(model.Message{PaneID: model.PaneID(flagQueuePane), Content: text})
			id = qm.Message.ID
		default:
			id, err = q.SendMessage(cmd.Context(), session, text)
		}
		if err != nil {
			return fmt.Errorf("enqueue failed: %w", err)
		}
		fmt.Println(id)
		return nil
	},
}

var queueFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Deliver every queued message without bumping retry counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := newQueue()
		if err != nil {
			return err
		}
		if _, err := q.Load(); err != nil {
			return err
		}
		return drain(cmd, q)
	},
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Bump the retry count of every queued message that has retries left",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := newQueue()
		if err != nil {
			return err
		}
		n, err := q.RetryFailed()
		if err != nil {
			return err
		}
		fmt.Printf("retried %d\n", n)
		return nil
	},
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queued and failed message counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := newQueue()
		if err != nil {
			return err
		}
		if _, err := q.Load(); err != nil {
			return err
		}
		s, err := q.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("pending %d\nqueued  %d\nfailed  %d\n", s.Pending, s.Queued, s.Failed)
		return nil
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every queued message",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := newQueue()
		if err != nil {
			return err
		}
		return q.Clear()
	},
}

func init() {
	queueEnqueueCmd.Flags().StringVar(&flagQueuePane, "pane", "", "destination pane id")
	queueEnqueueCmd.Flags().BoolVar(&flagQueuePrompt, "prompt", false, "also write the pane's prompt file")
	queueEnqueueCmd.Flags().StringVar(&flagQueueAgent, "agent", "", "agent name recorded in the prompt header")

	queueCmd.AddCommand(queueEnqueueCmd, queueFlushCmd, queueRetryCmd, queueStatsCmd, queueClearCmd)
	rootCmd.AddCommand(queueCmd)
}
