package delivery

import (
	"context"
	"fmt"

	"github.com/timvw/pane-relay/internal/model"
)

// Source is a queue the router can drain.
type Source interface {
	Dequeue() (model.QueuedMessage, bool)
	Remove(m model.Message) error
}

// DrainResult counts the outcome of a Drain.
type DrainResult struct {
	Delivered int
	Failed    int
}

// Drain types every queued message into its pane. A message's file is removed
// only after it was delivered; failed messages stay on disk for a later retry
// sweep. Drain stops early when ctx is done.
func (r *Router) Drain(ctx context.Context, src Source) (DrainResult, error) {
	var res DrainResult
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		qm, ok := src.Dequeue()
		if !ok {
			return res, nil
		}
		m := qm.Message
		req := Request{SessionID: string(m.PaneID), Content: m.Content, MessageID: m.ID}

		err := r.terminal.SendKeysEnter(ctx, m.PaneID, m.Content)
		if err != nil {
			err = fmt.Errorf("delivering %s to %s: %w", m.ID, m.PaneID, err)
		}
		r.record(ctx, req, ModeTerminal, ChannelTerminal, err)
		if err != nil {
			res.Failed++
			r.logger.Warn("queued delivery failed", "message_id", m.ID, "pane_id", m.PaneID, "retries", qm.Retries, "error", err)
			continue
		}

		if err := src.Remove(m); err != nil {
			return res, fmt.Errorf("removing delivered message %s: %w", m.ID, err)
		}
		res.Delivered++
	}
}
