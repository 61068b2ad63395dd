package logs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/mux"
)

func writeLog(t *testing.T, r *Reader, id model.SessionID, content string) {
	t.Helper()
	if err := os.WriteFile(r.Path(id), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPaths(t *testing.T) {
	r := NewReader("/tmp/tmux_logs")
	if got := r.Path("$1"); got != "/tmp/tmux_logs/session_$1.log" {
		t.Errorf("Path = %q", got)
	}
	if got := r.PanePath("%3"); got != "/tmp/tmux_logs/pane_%3.log" {
		t.Errorf("PanePath = %q", got)
	}
}

func TestRead_Missing(t *testing.T) {
	r := NewReader(t.TempDir())
	_, err := r.Read("nope")
	if !errors.Is(err, mux.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if _, err := r.Size("nope"); !errors.Is(err, mux.ErrNotFound) {
		t.Errorf("Size err = %v, want not found", err)
	}
}

func TestLinesTailFromSearch(t *testing.T) {
	r := NewReader(t.TempDir())
	writeLog(t, r, "s1", "one\ntwo error\nthree\nfour error\n")

	lines, err := r.Lines("s1")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"one", "two error", "three", "four error"}; !reflect.DeepEqual(lines, want) {
		t.Errorf("Lines = %v, want %v", lines, want)
	}

	tests := []struct {
		n    int
		want []string
	}{
		{2, []string{"three", "four error"}},
		{4, lines},
		{10, lines},
		{0, nil},
	}
	for _, tt := range tests {
		got, err := r.Tail("s1", tt.n)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tail(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}

	from, _ := r.From("s1", 3)
	if !reflect.DeepEqual(from, []string{"four error"}) {
		t.Errorf("From(3) = %v", from)
	}
	if from, _ := r.From("s1", 9); len(from) != 0 {
		t.Errorf("From(9) = %v, want empty", from)
	}

	hits, _ := r.Search("s1", "error")
	if !reflect.DeepEqual(hits, []string{"two error", "four error"}) {
		t.Errorf("Search = %v", hits)
	}
}

func TestClearDeleteList(t *testing.T) {
	dir := t.TempDir()
	r := NewReader(dir)
	writeLog(t, r, "b", "x\n")
	writeLog(t, r, "a", "y\n")
	if err := os.WriteFile(r.PanePath("%1"), []byte("z"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	ids, err := r.List()
	if err != nil {
		t.Fatal(err)
	}
	if want := []model.SessionID{"a", "b"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("List = %v, want %v", ids, want)
	}

	if err := r.Clear("a"); err != nil {
		t.Fatal(err)
	}
	if size, _ := r.Size("a"); size != 0 {
		t.Errorf("size after Clear = %d", size)
	}

	if err := r.Delete("b"); err != nil {
		t.Fatal(err)
	}
	if err := r.Delete("b"); err != nil {
		t.Errorf("second Delete = %v, want nil", err)
	}

	pane, err := r.ReadPane("%1")
	if err != nil || pane != "z" {
		t.Errorf("ReadPane = %q, %v", pane, err)
	}
}

func TestList_MissingDir(t *testing.T) {
	r := NewReader(filepath.Join(t.TempDir(), "absent"))
	ids, err := r.List()
	if err != nil || len(ids) != 0 {
		t.Errorf("List = %v, %v; want empty, nil", ids, err)
	}
}

func TestWatch_Missing(t *testing.T) {
	r := NewReader(t.TempDir())
	err := r.Watch(context.Background(), "nope", func(string) {})
	if !errors.Is(err, mux.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *lineSink) add(l string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, l)
}

func (s *lineSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func waitFor(t *testing.T, s *lineSink, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := s.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, have %v", n, s.snapshot())
	return nil
}

func TestWatch_StreamsAppendedLines(t *testing.T) {
	r := NewReader(t.TempDir(), WithPollInterval(10*time.Millisecond))
	writeLog(t, r, "s1", "first\n")

	ctx, cancel := context.WithCancel(context.Background())
	sink := &lineSink{}
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx, "s1", sink.add) }()

	waitFor(t, sink, 1)

	f, err := os.OpenFile(r.Path("s1"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	// A partial line is held back until its newline arrives.
	if _, err := f.WriteString("sec"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if got := sink.snapshot(); len(got) != 1 {
		t.Fatalf("partial line delivered early: %v", got)
	}
	if _, err := f.WriteString("ond\nthird\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got := waitFor(t, sink, 3)
	if want := []string{"first", "second", "third"}; !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %v, want %v", got, want)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_RereadsAfterTruncate(t *testing.T) {
	r := NewReader(t.TempDir(), WithPollInterval(10*time.Millisecond))
	writeLog(t, r, "s1", "old line\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &lineSink{}
	go func() { _ = r.Watch(ctx, "s1", sink.add) }()
	waitFor(t, sink, 1)

	if err := r.Clear("s1"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	writeLog(t, r, "s1", "new\n")

	got := waitFor(t, sink, 2)
	if got[1] != "new" {
		t.Errorf("after truncate got %v", got)
	}
}
