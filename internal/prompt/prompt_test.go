package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/timvw/pane-relay/internal/mux"
)

func TestWriteReadClear(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "prompts"))

	if err := w.Write("work:0.0", "fix the tests"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(w.Path("work:0.0")) != "work:0.0.prompt.input" {
		t.Errorf("unexpected file name %s", w.Path("work:0.0"))
	}
	got, err := w.Read("work:0.0")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "fix the tests\n" {
		t.Errorf("Read = %q", got)
	}

	if err := w.Clear("work:0.0"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := w.Clear("work:0.0"); err != nil {
		t.Errorf("second Clear: %v", err)
	}
	if _, err := w.Read("work:0.0"); !errors.Is(err, mux.ErrNotFound) {
		t.Errorf("Read after clear: err = %v, want not found", err)
	}
}

func TestWriteWithMetadata(t *testing.T) {
	w := NewWriter(t.TempDir())
	meta := Metadata{Session: "r1", Timestamp: time.Unix(1700000000, 0), Agent: "build"}
	if err := w.WriteWithMetadata("%1", "line one\nline two", meta); err != nil {
		t.Fatalf("WriteWithMetadata: %v", err)
	}
	got, err := w.Read("%1")
	if err != nil {
		t.Fatal(err)
	}
	want := "# r1\n# timestamp: 1700000000\n# agent: build\n\nline one\nline two\n"
	if got != want {
		t.Errorf("content:\n%q\nwant\n%q", got, want)
	}

	m, body, ok := Split(got)
	if !ok {
		t.Fatal("Split should find the header")
	}
	if m.Session != "r1" || m.Agent != "build" || m.Timestamp.Unix() != 1700000000 {
		t.Errorf("metadata = %+v", m)
	}
	if body != "line one\nline two" {
		t.Errorf("body = %q", body)
	}

	if _, body, ok := Split("plain prompt\n"); ok || body != "plain prompt" {
		t.Errorf("Split(plain) = %q, %v", body, ok)
	}
}

func TestPaneIDWithSlashStaysInDir(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	if err := w.Write("a/b", "x"); err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(w.Path("a/b")) != dir {
		t.Errorf("path escaped dir: %s", w.Path("a/b"))
	}
}

func TestLockIsExclusiveAndNonBlocking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "x.lock")
	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	start := time.Now()
	if _, err := Acquire(path); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Acquire: err = %v, want ErrLocked", err)
	}
	if time.Since(start) > time.Second {
		t.Error("second Acquire should fail immediately")
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("double Release: %v", err)
	}

	l2, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	l2.Release()
}

func TestWithLockReleasesOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.lock")
	boom := errors.New("boom")
	if err := WithLock(path, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("WithLock err = %v", err)
	}
	if err := WithLock(path, func() error { return nil }); err != nil {
		t.Errorf("lock was not released after failure: %v", err)
	}
}

func TestWriteFailsWhileLocked(t *testing.T) {
	w := NewWriter(t.TempDir())
	l, err := Acquire(w.Path("%1") + ".lock")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Release()

	if err := w.Write("%1", "x"); !errors.Is(err, ErrLocked) {
		t.Errorf("Write while locked: err = %v, want ErrLocked", err)
	}
	if _, err := os.Stat(w.Path("%1")); !os.IsNotExist(err) {
		t.Error("prompt file should not be written while locked")
	}
}
