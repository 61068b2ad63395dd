package mux

import (
	"context"
	"errors"
	"os/exec"
	"reflect"
	"testing"
	"time"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name   string
		server string
		cmd    Command
		want   []string
	}{
		{
			name: "server target has no -t",
			cmd:  Command{Verb: "list-sessions", Target: ServerTarget(), Args: []string{"-F", "x"}},
			want: []string{"list-sessions", "-F", "x"},
		},
		{
			name:   "named server prefix",
			server: "relay",
			cmd:    Command{Verb: "kill-session", Target: SessionTarget("$1")},
			want:   []string{"-L", "relay", "kill-session", "-t", "$1"},
		},
		{
			name: "pane target then args",
			cmd:  Command{Verb: "send-keys", Target: PaneTarget("%3"), Args: []string{"hello"}},
			want: []string{"send-keys", "-t", "%3", "hello"},
		},
		{
			name: "window target",
			cmd:  Command{Verb: "split-window", Target: WindowTarget("@2"), Args: []string{"-d", "-h"}},
			want: []string{"split-window", "-t", "@2", "-d", "-h"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(WithServer(tt.server), WithRunner(newFakeRunner()))
			if got := c.BuildArgs(tt.cmd); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecuteResponses(t *testing.T) {
	f := newFakeRunner()
	f.on("display-message -p x", Result{Stdout: "x\n"})
	c := NewClient(WithRunner(f))
	ctx := context.Background()

	resp, err := c.Execute(ctx, Command{Verb: "display-message", Args: []string{"-p", "x"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Kind != ResponseOutput || resp.Output != "x\n" {
		t.Errorf("got %+v, want raw output", resp)
	}

	resp, err = c.Execute(ctx, Command{Verb: "select-pane", Target: PaneTarget("%1")})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !resp.IsEmpty() {
		t.Errorf("got %+v, want empty", resp)
	}
}

func TestExecuteClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   Kind
	}{
		{"session not found", Result{ExitCode: 1, Stderr: "session not found: nope"}, KindNotFound},
		{"no such pane", Result{ExitCode: 1, Stderr: "no such pane: %9"}, KindNotFound},
		{"can't find", Result{ExitCode: 1, Stderr: "can't find session: x"}, KindNotFound},
		{"no server", Result{ExitCode: 1, Stderr: "no server running on /tmp/tmux-0/default"}, KindNotConnected},
		{"error connecting", Result{ExitCode: 1, Stderr: "error connecting to /tmp/tmux-0/default (No such file or directory)"}, KindNotConnected},
		{"stdout used when stderr empty", Result{ExitCode: 1, Stdout: "not connected"}, KindNotConnected},
		{"generic", Result{ExitCode: 1, Stderr: "unknown command: frob"}, KindCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeRunner()
			f.on("frob", tt.result)
			c := NewClient(WithRunner(f))
			_, err := c.Execute(context.Background(), Command{Verb: "frob"})
			if err == nil {
				t.Fatal("expected error")
			}
			kind, ok := KindOf(err)
			if !ok || kind != tt.want {
				t.Errorf("kind = %v (ok=%v), want %v; err=%v", kind, ok, tt.want, err)
			}
		})
	}
}

func TestExecuteIsDeterministic(t *testing.T) {
	f := newFakeRunner()
	f.on("frob", Result{ExitCode: 1, Stderr: "no such window"})
	c := NewClient(WithRunner(f))
	_, err1 := c.Execute(context.Background(), Command{Verb: "frob"})
	_, err2 := c.Execute(context.Background(), Command{Verb: "frob"})
	if err1.Error() != err2.Error() {
		t.Errorf("errors differ: %v vs %v", err1, err2)
	}
}

func TestExecuteProcessError(t *testing.T) {
	f := newFakeRunner()
	f.errs["frob"] = exec.ErrNotFound
	c := NewClient(WithRunner(f))
	_, err := c.Execute(context.Background(), Command{Verb: "frob"})
	if kind, _ := KindOf(err); kind != KindProcess {
		t.Fatalf("kind = %v, want process", kind)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("process error should wrap the OS error: %v", err)
	}
}

func TestExecuteWithTimeout(t *testing.T) {
	f := newFakeRunner()
	f.block = true
	c := NewClient(WithRunner(f))

	start := time.Now()
	_, err := c.ExecuteWithTimeout(context.Background(), Command{Verb: "wait-for"}, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout took too long")
	}
}

func TestClientTimeoutOption(t *testing.T) {
	f := newFakeRunner()
	f.block = true
	c := NewClient(WithRunner(f), WithTimeout(10*time.Millisecond))
	if _, err := c.Execute(context.Background(), Command{Verb: "wait-for"}); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestErrorSentinels(t *testing.T) {
	err := Classify("", "session not found: x")
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected ErrNotFound match")
	}
	if errors.Is(err, ErrNotConnected) {
		t.Error("unexpected ErrNotConnected match")
	}
	if err.Msg != "session not found: x" {
		t.Errorf("Msg = %q", err.Msg)
	}
}
