package mux

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/timvw/pane-relay/internal/model"
)

// SplitDirection selects how split-window divides a pane.
type SplitDirection int

const (
	// SplitVertical stacks the new pane below ("-v").
	SplitVertical SplitDirection = iota
	// SplitHorizontal places the new pane beside ("-h").
	SplitHorizontal
)

func (d SplitDirection) flag() string {
	if d == SplitHorizontal {
		return "-h"
	}
	return "-v"
}

// ListPanes returns the panes of a window. The session back-reference is
// recovered from the window id when possible.
func (c *Client) ListPanes(ctx context.Context, window model.WindowID) ([]model.Pane, error) {
	return c.listPanes(ctx, window.Session(), window)
}

func (c *Client) listPanes(ctx context.Context, session model.SessionID, window model.WindowID) ([]model.Pane, error) {
	out, err := c.output(ctx, "list-panes", WindowTarget(string(window)), "-F", paneFormat)
	if err != nil {
		return nil, fmt.Errorf("list panes of %s: %w", window, err)
	}

	var panes []model.Pane
	for _, line := range splitLines(out) {
		p, ok := parsePaneLine(line)
		if !ok {
			continue
		}
		p.WindowID = window
		p.SessionID = session
		panes = append(panes, p)
	}
	return panes, nil
}

// parsePaneLine parses "id:path:pid:active". A path containing ':' is
// rejoined from the middle fields.
func parsePaneLine(line string) (model.Pane, bool) {
	parts := strings.Split(line, ":")
	if len(parts) < 4 {
		return model.Pane{}, false
	}
	n := len(parts)
	pid, err := strconv.Atoi(parts[n-2])
	if err != nil || pid < 0 {
		pid = 0
	}
	return model.Pane{
		ID:          model.PaneID(parts[0]),
		CurrentPath: strings.Join(parts[1:n-2], ":"),
		PID:         pid,
		Active:      parts[n-1] == "1",
	}, true
}

// GetPane returns a pane by id. The window is taken from the id when it
// carries a "%" separator; otherwise every session is searched.
func (c *Client) GetPane(ctx context.Context, id model.PaneID) (model.Pane, error) {
	var panes []model.Pane
	if w := id.Window(); w != "" {
		ps, err := c.ListPanes(ctx, w)
		if err != nil {
			return model.Pane{}, err
		}
		panes = ps
	} else {
		sessions, err := c.ListSessions(ctx)
		if err != nil {
			return model.Pane{}, err
		}
		for _, s := range sessions {
			for _, w := range s.Windows {
				panes = append(panes, w.Panes...)
			}
		}
	}
	for _, p := range panes {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Pane{}, newError(KindNotFound, "pane %q not found", id)
}

// NewPane splits a window vertically and returns the new pane.
func (c *Client) NewPane(ctx context.Context, window model.WindowID) (model.Pane, error) {
	return c.SplitWindow(ctx, window, SplitVertical)
}

// SplitWindow splits a window in the given direction and returns the last
// pane of the refreshed listing, which is where tmux appends the new one.
func (c *Client) SplitWindow(ctx context.Context, window model.WindowID, dir SplitDirection) (model.Pane, error) {
	if err := c.run(ctx, "split-window", WindowTarget(string(window)), "-d", dir.flag()); err != nil {
		return model.Pane{}, fmt.Errorf("split window %s: %w", window, err)
	}
	panes, err := c.ListPanes(ctx, window)
	if err != nil {
		return model.Pane{}, err
	}
	if len(panes) == 0 {
		return model.Pane{}, newError(KindNotFound, "pane not found after creation in %s", window)
	}
	return panes[len(panes)-1], nil
}

// KillPane destroys a pane.
func (c *Client) KillPane(ctx context.Context, id model.PaneID) error {
	if err := c.run(ctx, "kill-pane", PaneTarget(string(id))); err != nil {
		return fmt.Errorf("kill pane %s: %w", id, err)
	}
	return nil
}

// SelectPane makes a pane active in its window.
func (c *Client) SelectPane(ctx context.Context, id model.PaneID) error {
	if err := c.run(ctx, "select-pane", PaneTarget(string(id))); err != nil {
		return fmt.Errorf("select pane %s: %w", id, err)
	}
	return nil
}

// ResizePane sets a pane's width and/or height. A zero dimension is left
// unchanged; each set dimension is its own resize-pane call.
func (c *Client) ResizePane(ctx context.Context, id model.PaneID, width, height int) error {
	if width > 0 {
		if err := c.run(ctx, "resize-pane", PaneTarget(string(id)), "-x", strconv.Itoa(width)); err != nil {
			return fmt.Errorf("resize pane %s width: %w", id, err)
		}
	}
	if height > 0 {
		if err := c.run(ctx, "resize-pane", PaneTarget(string(id)), "-y", strconv.Itoa(height)); err != nil {
			return fmt.Errorf("resize pane %s height: %w", id, err)
		}
	}
	return nil
}

// SendKeys types keys into a pane without submitting them.
func (c *Client) SendKeys(ctx context.Context, id model.PaneID, keys string) error {
	if err := c.run(ctx, "send-keys", PaneTarget(string(id)), keys); err != nil {
		return fmt.Errorf("send keys to %s: %w", id, err)
	}
	return nil
}

// SendKeysEnter types keys and then sends a separate Enter key. The two
// calls are not atomic: a failure between them leaves the text unsubmitted.
func (c *Client) SendKeysEnter(ctx context.Context, id model.PaneID, keys string) error {
	if err := c.SendKeys(ctx, id, keys); err != nil {
		return err
	}
	return c.SendKeys(ctx, id, "Enter")
}

// CapturePane returns the visible content of a pane. A positive history
// includes that many lines of scrollback ("-S -<n>").
func (c *Client) CapturePane(ctx context.Context, id model.PaneID, history int) (string, error) {
	args := []string{"-p"}
	if history > 0 {
		args = append(args, "-S", "-"+strconv.Itoa(history))
	}
	out, err := c.output(ctx, "capture-pane", PaneTarget(string(id)), args...)
	if err != nil {
		return "", fmt.Errorf("capture pane %s: %w", id, err)
	}
	return out, nil
}

// FindPaneBySessionName returns the first pane of the first window of the
// session with the given name.
func (c *Client) FindPaneBySessionName(ctx context.Context, name string) (model.Pane, bool, error) {
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return model.Pane{}, false, err
	}
	for _, s := range sessions {
		if s.Name != name {
			continue
		}
		p, ok := s.FirstPane()
		return p, ok, nil
	}
	return model.Pane{}, false, nil
}
