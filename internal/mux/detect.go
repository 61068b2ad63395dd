package mux

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// InsideTmux reports whether the current process runs inside a tmux client.
func InsideTmux() bool {
	return os.Getenv("TMUX") != ""
}

// Available checks that the tmux binary exists and that a server answers.
// It returns an error of kind KindNotConnected when no server is running.
func (c *Client) Available(ctx context.Context) error {
	if _, ok := c.runner.(ExecRunner); ok {
		if _, err := exec.LookPath(binary); err != nil {
			return &Error{Kind: KindProcess, Msg: "tmux binary not found", Err: err}
		}
	}
	if _, err := c.Execute(ctx, Command{Verb: "list-sessions", Target: ServerTarget()}); err != nil {
		return fmt.Errorf("tmux not available: %w", err)
	}
	return nil
}
