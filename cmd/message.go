package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/delivery"
)

var flagPrompt bool

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Deliver messages to agent sessions",
}

var messageSendCmd = &cobra.Command{
	Use:   "send <session-id> <text>...",
	Short: "Deliver a message now, through the agent API or the terminal",
	Long: `Deliver a message to an agent session immediately.

In auto mode the agent API is tried first and the terminal is used when the
agent is unreachable or fails. In agent mode a failure is reported. In
terminal mode the text is typed into the tmux session that belongs to the
session id: the identity map is consulted first, then live sessions are
searched by name.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		router, closeFn, err := newRouter(currentMode())
		if err != nil {
			return err
		}
		defer closeFn()

		kind := delivery.KindMessage
		if flagPrompt {
			kind = delivery.KindPrompt
		}
		res, err := router.Deliver(cmd.Context(), delivery.Request{
			SessionID: args[0],
			Content:   strings.Join(args[1:], " "),
			Kind:      kind,
		})
		if err != nil {
			return fmt.Errorf("delivery failed: %w", err)
		}
		if res.Channel == delivery.ChannelTerminal {
			fmt.Printf("delivered via terminal to %s (%s)\n", res.PaneID, res.SessionName)
		} else {
			fmt.Println("delivered via agent")
		}
		return nil
	},
}

var messageDeliverCmd = &cobra.Command{
	Use:   "deliver",
	Short: "Retry the queue and type every pending message into its pane",
	Long: `Run a retry sweep over the queue directory, then deliver every pending
message into its pane. Each retried message has its retry count bumped; a
message that reaches the retry limit is kept on disk as failed and is not
delivered again. Delivered messages are removed from disk.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := newQueue()
		if err != nil {
			return err
		}
		n, err := q.RetryFailed()
		if err != nil {
			return fmt.Errorf("retry sweep: %w", err)
		}
		slog.Debug("retry sweep", "retried", n)
		return drain(cmd, q)
	},
}

func init() {
	messageSendCmd.Flags().BoolVar(&flagPrompt, "prompt", false, "use the agent's prompt endpoint instead of message")
	messageCmd.AddCommand(messageSendCmd, messageDeliverCmd)
	rootCmd.AddCommand(messageCmd)
}

func drain(cmd *cobra.Command, src delivery.Source) error {
	router, closeFn, err := newRouter(delivery.ModeTerminal)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := router.Drain(cmd.Context(), src)
	fmt.Printf("delivered %d, failed %d\n", res.Delivered, res.Failed)
	return err
}
