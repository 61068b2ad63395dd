package mux

import (
	"context"
	"fmt"
	"strings"

	"github.com/timvw/pane-relay/internal/model"
)

// ListWindows returns the windows of a session, each with its panes.
func (c *Client) ListWindows(ctx context.Context, session model.SessionID) ([]model.Window, error) {
	out, err := c.output(ctx, "list-windows", SessionTarget(string(session)), "-F", windowFormat)
	if err != nil {
		return nil, fmt.Errorf("list windows of %s: %w", session, err)
	}

	var windows []model.Window
	for _, line := range splitLines(out) {
		parts := strings.Split(line, ":")
		if len(parts) < 3 {
			continue
		}
		w := model.Window{
			ID:        model.WindowID(parts[0]),
			SessionID: session,
			Name:      parts[1],
			Active:    parts[2] == "1",
		}
		w.Panes, err = c.listPanes(ctx, session, w.ID)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// GetWindow returns a window by id. The owning session is taken from the id
// when it carries an "@" separator; otherwise every session is searched.
func (c *Client) GetWindow(ctx context.Context, id model.WindowID) (model.Window, error) {
	var windows []model.Window
	if s := id.Session(); s != "" {
		ws, err := c.ListWindows(ctx, s)
		if err != nil {
			return model.Window{}, err
		}
		windows = ws
	} else {
		sessions, err := c.ListSessions(ctx)
		if err != nil {
			return model.Window{}, err
		}
		for _, s := range sessions {
			windows = append(windows, s.Windows...)
		}
	}
	for _, w := range windows {
		if w.ID == id {
			return w, nil
		}
	}
	return model.Window{}, newError(KindNotFound, "window %q not found", id)
}

// NewWindow creates a detached window in session and returns it.
func (c *Client) NewWindow(ctx context.Context, session model.SessionID, name string) (model.Window, error) {
	if err := c.run(ctx, "new-window", SessionTarget(string(session)), "-n", name, "-d"); err != nil {
		return model.Window{}, fmt.Errorf("new window %q: %w", name, err)
	}
	windows, err := c.ListWindows(ctx, session)
	if err != nil {
		return model.Window{}, err
	}
	for _, w := range windows {
		if w.Name == name {
			return w, nil
		}
	}
	return model.Window{}, newError(KindNotFound, "window %q not found after creation", name)
}

// KillWindow destroys a window.
func (c *Client) KillWindow(ctx context.Context, id model.WindowID) error {
	if err := c.run(ctx, "kill-window", WindowTarget(string(id))); err != nil {
		return fmt.Errorf("kill window %s: %w", id, err)
	}
	return nil
}

// SelectWindow makes a window current in its session.
func (c *Client) SelectWindow(ctx context.Context, id model.WindowID) error {
	if err := c.run(ctx, "select-window", WindowTarget(string(id))); err != nil {
		return fmt.Errorf("select window %s: %w", id, err)
	}
	return nil
}

// RenameWindow renames a window and returns the refreshed snapshot.
func (c *Client) RenameWindow(ctx context.Context, id model.WindowID, name string) (model.Window, error) {
	if err := c.run(ctx, "rename-window", WindowTarget(string(id)), name); err != nil {
		return model.Window{}, fmt.Errorf("rename window %s: %w", id, err)
	}
	return c.GetWindow(ctx, id)
}

// LastWindow selects the previously current window of a session.
func (c *Client) LastWindow(ctx context.Context, session model.SessionID) error {
	return c.sessionNav(ctx, "last-window", session)
}

// NextWindow selects the next window of a session.
func (c *Client) NextWindow(ctx context.Context, session model.SessionID) error {
	return c.sessionNav(ctx, "next-window", session)
}

// PreviousWindow selects the previous window of a session.
func (c *Client) PreviousWindow(ctx context.Context, session model.SessionID) error {
	return c.sessionNav(ctx, "previous-window", session)
}

func (c *Client) sessionNav(ctx context.Context, verb string, session model.SessionID) error {
	if err := c.run(ctx, verb, SessionTarget(string(session))); err != nil {
		return fmt.Errorf("%s %s: %w", verb, session, err)
	}
	return nil
}
