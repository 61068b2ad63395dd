package agent

import (
	"context"
	"time"
)

// WatchMessages polls a session's transcript and calls fn once for every
// message id it has not seen before, oldest first. Poll errors are logged and
// retried on the next tick. It returns ctx.Err() when ctx is done.
func (c *Client) WatchMessages(ctx context.Context, sessionID string, fn func(Message)) error {
	seen := make(map[string]struct{})
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		msgs, err := c.Messages(ctx, sessionID, 0)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("polling agent messages", "session_id", sessionID, "error", err)
		}
		for _, m := range msgs {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			fn(m)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
