package model

import (
	"strings"
	"time"
)

// SessionID identifies a multiplexer session (e.g. "$1").
type SessionID string

// WindowID identifies a window. By convention "<session>@<window>".
type WindowID string

// PaneID identifies a pane. By convention "<window>%<pane>".
type PaneID string

// Session returns the containing session id recovered from the "@" separator.
// The id itself is returned when it carries no separator.
func (w WindowID) Session() SessionID {
	s := string(w)
	if i := strings.LastIndex(s, "@"); i > 0 {
		return SessionID(s[:i])
	}
	return ""
}

// Window returns the containing window id recovered from the "%" separator.
func (p PaneID) Window() WindowID {
	s := string(p)
	if i := strings.LastIndex(s, "%"); i > 0 {
		return WindowID(s[:i])
	}
	return ""
}

// Session is a read snapshot of a multiplexer session.
type Session struct {
	// ID is the multiplexer's session id.
	ID SessionID `json:"id"`
	// Name is the human-facing session name.
	Name string `json:"name"`
	// Windows are listed in multiplexer order.
	Windows []Window `json:"windows"`
	// Attached reports whether a client is attached.
	Attached bool `json:"attached"`
}

// Window is a read snapshot of a multiplexer window.
type Window struct {
	ID WindowID `json:"id"`
	// SessionID is a back-reference for lookup only.
	SessionID SessionID `json:"session_id"`
	Name      string    `json:"name"`
	Panes     []Pane    `json:"panes"`
	Active    bool      `json:"active"`
}

// Pane is a read snapshot of a multiplexer pane.
type Pane struct {
	ID          PaneID    `json:"id"`
	WindowID    WindowID  `json:"window_id"`
	SessionID   SessionID `json:"session_id"`
	CurrentPath string    `json:"current_path,omitempty"`
	// PID is the pane's shell process id. Zero means unknown.
	PID    int  `json:"pid,omitempty"`
	Active bool `json:"active"`
}

// FirstPane returns the first pane of the first window.
func (s Session) FirstPane() (Pane, bool) {
	for _, w := range s.Windows {
		if len(w.Panes) > 0 {
			return w.Panes[0], true
		}
	}
	return Pane{}, false
}

// Message is an outbound message addressed to a pane.
// It is immutable once created.
type Message struct {
	ID        string    `json:"id"`
	PaneID    PaneID    `json:"pane_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxRetries is the retry count at which a queued message is considered failed.
const MaxRetries = 3

// QueuedMessage wraps a Message with queue metadata.
type QueuedMessage struct {
	Message  Message   `json:"message"`
	QueuedAt time.Time `json:"queued_at"`
	Retries  int       `json:"retries"`
}

// Failed reports whether the message exhausted its retries.
func (q QueuedMessage) Failed() bool {
	return q.Retries >= MaxRetries
}
