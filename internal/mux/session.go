package mux

import (
	"context"
	"fmt"
	"strings"

	"github.com/timvw/pane-relay/internal/model"
)

// ListSessions returns every session with its windows and panes.
// Each level is a separate subprocess call.
func (c *Client) ListSessions(ctx context.Context) ([]model.Session, error) {
	out, err := c.output(ctx, "list-sessions", ServerTarget(), "-F", sessionFormat)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var sessions []model.Session
	for _, line := range splitLines(out) {
		parts := strings.Split(line, ":")
		if len(parts) < 3 {
			continue
		}
		s := model.Session{
			ID:       model.SessionID(parts[0]),
			Name:     parts[1],
			Attached: parts[2] != "0",
		}
		s.Windows, err = c.ListWindows(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// GetSession returns the session with the given id.
func (c *Client) GetSession(ctx context.Context, id model.SessionID) (model.Session, error) {
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return model.Session{}, err
	}
	for _, s := range sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Session{}, newError(KindNotFound, "session %q not found", id)
}

// FindSession returns the session whose id or name equals key. Ids win.
func (c *Client) FindSession(ctx context.Context, key string) (model.Session, bool, error) {
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return model.Session{}, false, err
	}
	for _, s := range sessions {
		if string(s.ID) == key {
			return s, true, nil
		}
	}
	for _, s := range sessions {
		if s.Name == key {
			return s, true, nil
		}
	}
	return model.Session{}, false, nil
}

// NewSession creates a detached session and returns it.
func (c *Client) NewSession(ctx context.Context, name string) (model.Session, error) {
	if err := c.run(ctx, "new-session", ServerTarget(), "-s", name, "-d"); err != nil {
		return model.Session{}, fmt.Errorf("new session %q: %w", name, err)
	}
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return model.Session{}, err
	}
	for _, s := range sessions {
		if s.Name == name {
			return s, nil
		}
	}
	return model.Session{}, newError(KindNotFound, "session %q not found after creation", name)
}

// KillSession destroys a session.
func (c *Client) KillSession(ctx context.Context, id model.SessionID) error {
	if err := c.run(ctx, "kill-session", SessionTarget(string(id))); err != nil {
		return fmt.Errorf("kill session %s: %w", id, err)
	}
	return nil
}

// AttachSession attaches the current terminal to a session.
func (c *Client) AttachSession(ctx context.Context, id model.SessionID) error {
	if err := c.run(ctx, "attach-session", SessionTarget(string(id))); err != nil {
		return fmt.Errorf("attach session %s: %w", id, err)
	}
	return nil
}

// DetachSession detaches every client attached to a session.
func (c *Client) DetachSession(ctx context.Context, id model.SessionID) error {
	if err := c.run(ctx, "detach-client", SessionTarget(string(id))); err != nil {
		return fmt.Errorf("detach session %s: %w", id, err)
	}
	return nil
}

// RenameSession renames a session and returns the refreshed snapshot.
func (c *Client) RenameSession(ctx context.Context, id model.SessionID, name string) (model.Session, error) {
	if err := c.run(ctx, "rename-session", SessionTarget(string(id)), name); err != nil {
		return model.Session{}, fmt.Errorf("rename session %s: %w", id, err)
	}
	return c.GetSession(ctx, id)
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
