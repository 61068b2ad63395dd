package mux

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a control client failure.
type Kind int

const (
	// KindProcess is a subprocess spawn or I/O failure.
	KindProcess Kind = iota
	// KindParse is malformed structured data.
	KindParse
	// KindCommand is a non-zero exit that matched no classification row.
	KindCommand
	KindNotFound
	// KindInvalidState means the operation is not valid for its target.
	KindInvalidState
	KindTimeout
	// KindNotConnected means no multiplexer server is reachable.
	KindNotConnected
)

func (k Kind) String() string {
	switch k {
	case KindProcess:
		return "process"
	case KindParse:
		return "parse"
	case KindCommand:
		return "command"
	case KindNotFound:
		return "not found"
	case KindInvalidState:
		return "invalid state"
	case KindTimeout:
		return "timeout"
	case KindNotConnected:
		return "not connected"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified control client failure.
type Error struct {
	Kind Kind
	Msg  string
	// Err is the underlying OS error for KindProcess.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return "tmux: " + e.Kind.String()
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("tmux %s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("tmux %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("tmux %s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrTimeout      = &Error{Kind: KindTimeout}
	ErrNotConnected = &Error{Kind: KindNotConnected}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrCommand      = &Error{Kind: KindCommand}
	ErrParse        = &Error{Kind: KindParse}
)

// KindOf returns the classification of err, or false if it is not an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Classification rows are checked in order; the first substring present in
// the failure message decides the kind. tmux has no structured error channel.
type classification struct {
	substr string
	kind   Kind
}

var classifications = []classification{
	{"error connecting to", KindNotConnected},
	{"not found", KindNotFound},
	{"no such", KindNotFound},
	{"can't find", KindNotFound},
	{"not connected", KindNotConnected},
	{"no server running", KindNotConnected},
}

// Classify turns a non-zero exit into an *Error. The message is stderr,
// or stdout when stderr is empty.
func Classify(stdout, stderr string) *Error {
	msg := stderr
	if msg == "" {
		msg = stdout
	}
	msg = strings.TrimSpace(msg)
	for _, c := range classifications {
		if strings.Contains(msg, c.substr) {
			return &Error{Kind: c.kind, Msg: msg}
		}
	}
	return &Error{Kind: KindCommand, Msg: msg}
}
