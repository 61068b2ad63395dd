package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/mux"
	"github.com/timvw/pane-relay/internal/prompt"
)

// PaneResolver finds the default pane for a session name. *mux.Client
// satisfies it.
type PaneResolver interface {
	FindPaneBySessionName(ctx context.Context, name string) (model.Pane, bool, error)
}

// PromptWriter writes a prompt file for a pane. *prompt.Writer satisfies it.
type PromptWriter interface {
	WriteWithMetadata(pane model.PaneID, text string, meta prompt.Metadata) error
}

// DefaultPane is the pane used when a session's panes cannot be resolved.
func DefaultPane(session string) model.PaneID {
	return model.PaneID(session + ":0.0")
}

// ResolvePane returns the first pane of the named session, falling back to
// "<session>:0.0" when no resolver is set or the session is not live.
func (q *Queue) ResolvePane(ctx context.Context, session string) model.PaneID {
	if q.resolver == nil {
		return DefaultPane(session)
	}
	p, ok, err := q.resolver.FindPaneBySessionName(ctx, session)
	if err != nil {
		q.logger.Debug("pane lookup failed, using default pane", "session", session, "error", err)
		return DefaultPane(session)
	}
	if !ok {
		return DefaultPane(session)
	}
	return p.ID
}

// SendMessage enqueues content for the session's default pane and returns
// the new message id.
func (q *Queue) SendMessage(ctx context.Context, session, content string) (string, error) {
	qm, err := q.Enqueue(model.Message{
		PaneID:  q.ResolvePane(ctx, session),
		Content: content,
	})
	if err != nil {
		return "", err
	}
	return qm.Message.ID, nil
}

// SendCommand enqueues a pane-targeted multiplexer command as a message.
// Other target kinds are rejected with mux.ErrInvalidState.
func (q *Queue) SendCommand(ctx context.Context, session string, cmd mux.Command) (string, error) {
	if cmd.Target.Kind != mux.TargetPane {
		return "", &mux.Error{Kind: mux.KindInvalidState, Msg: fmt.Sprintf("command target %s not supported", cmd.Target.Kind)}
	}
	parts := append([]string{"send-keys", "-t", cmd.Target.ID, cmd.Verb}, cmd.Args...)
	return q.SendMessage(ctx, session, strings.Join(parts, " "))
}

// SendPrompt writes the prompt file for the session's default pane with a
// metadata header, then enqueues the prompt as a message.
func (q *Queue) SendPrompt(ctx context.Context, session, text, agent string) (string, error) {
	if q.prompts == nil {
		return "", errors.New("queue: no prompt writer configured")
	}
	pane := q.ResolvePane(ctx, session)
	meta := prompt.Metadata{Session: model.SessionID(session), Timestamp: q.now(), Agent: agent}
	if err := q.prompts.WriteWithMetadata(pane, text, meta); err != nil {
		return "", err
	}
	qm, err := q.Enqueue(model.Message{PaneID: pane, Content: text})
	if err != nil {
		return "", err
	}
	return qm.Message.ID, nil
}
