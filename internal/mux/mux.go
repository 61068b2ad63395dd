// Package mux is the terminal multiplexer control client.
//
// It translates structured commands into tmux argument vectors, runs them as
// subprocesses, and parses the colon-delimited listing output into
// model.Session, model.Window and model.Pane snapshots. Nothing is cached:
// every query re-reads the multiplexer.
package mux

import (
	"fmt"
)

// TargetKind selects what a command's "-t" selector points at.
type TargetKind int

const (
	TargetServer TargetKind = iota
	TargetSession
	TargetWindow
	TargetPane
)

func (k TargetKind) String() string {
	switch k {
	case TargetServer:
		return "server"
	case TargetSession:
		return "session"
	case TargetWindow:
		return "window"
	case TargetPane:
		return "pane"
	default:
		return fmt.Sprintf("target(%d)", int(k))
	}
}

// Target is the entity a command operates on. Server targets carry no id.
type Target struct {
	Kind TargetKind
	ID   string
}

// ServerTarget addresses the multiplexer server itself (no "-t").
func ServerTarget() Target { return Target{Kind: TargetServer} }

// SessionTarget addresses a session by id or name.
func SessionTarget(id string) Target { return Target{Kind: TargetSession, ID: id} }

// WindowTarget addresses a window.
func WindowTarget(id string) Target { return Target{Kind: TargetWindow, ID: id} }

// PaneTarget addresses a pane.
func PaneTarget(id string) Target { return Target{Kind: TargetPane, ID: id} }

// Command is one multiplexer invocation.
type Command struct {
	// Verb is the tmux command name, e.g. "list-sessions".
	Verb   string
	Target Target
	Args   []string
}

// ResponseKind distinguishes successful responses with and without output.
type ResponseKind int

const (
	ResponseEmpty ResponseKind = iota
	ResponseOutput
)

// Response is the result of a successful command.
type Response struct {
	Kind   ResponseKind
	Output string
}

// IsEmpty reports whether the command produced no stdout.
func (r Response) IsEmpty() bool {
	return r.Kind == ResponseEmpty
}

// Listing formats. Field separator is a literal ':'; values containing ':'
// mis-parse except for the pane path, which is rejoined from the middle fields.
const (
	sessionFormat = "#{session_id}:#{session_name}:#{session_attached}"
	windowFormat  = "#{window_id}:#{window_name}:#{window_active}"
	paneFormat    = "#{pane_id}:#{pane_current_path}:#{pane_pid}:#{pane_active}"
)
