// Package prompt hands prompt text to a pane through a per-pane input file.
//
// Every read and write holds an exclusive, non-blocking lock on a sidecar
// ".lock" file for its duration, so a writer and reader never interleave.
// A busy lock fails immediately with ErrLocked.
package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/mux"
)

const inputSuffix = ".prompt.input"

// Metadata is the header written above a prompt.
type Metadata struct {
	Session   model.SessionID
	Timestamp time.Time
	Agent     string
}

// NewMetadata stamps metadata with the current time.
func NewMetadata(session model.SessionID, agent string) Metadata {
	return Metadata{Session: session, Timestamp: time.Now(), Agent: agent}
}

// Writer manages prompt files under one directory.
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir. The directory is created lazily.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the prompt directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns the input file for a pane.
func (w *Writer) Path(pane model.PaneID) string {
	return filepath.Join(w.dir, fileSafe(string(pane))+inputSuffix)
}

func (w *Writer) lockPath(pane model.PaneID) string {
	return w.Path(pane) + ".lock"
}

// Write replaces the pane's prompt file with text.
func (w *Writer) Write(pane model.PaneID, text string) error {
	return w.write(pane, text+"\n")
}

// WriteWithMetadata replaces the pane's prompt file with a header
// ("# <session>", "# timestamp: <unix>", "# agent: <name>"), a blank line and text.
func (w *Writer) WriteWithMetadata(pane model.PaneID, text string, meta Metadata) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", meta.Session)
	fmt.Fprintf(&b, "# timestamp: %d\n", meta.Timestamp.Unix())
	fmt.Fprintf(&b, "# agent: %s\n", meta.Agent)
	b.WriteString("\n")
	b.WriteString(text)
	b.WriteString("\n")
	return w.write(pane, b.String())
}

func (w *Writer) write(pane model.PaneID, content string) error {
	return WithLock(w.lockPath(pane), func() error {
		if err := os.MkdirAll(w.dir, 0o755); err != nil {
			return fmt.Errorf("creating prompt dir: %w", err)
		}
		if err := os.WriteFile(w.Path(pane), []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing prompt for %s: %w", pane, err)
		}
		return nil
	})
}

// Read returns the raw content of the pane's prompt file. A missing file is
// reported as mux.ErrNotFound.
func (w *Writer) Read(pane model.PaneID) (string, error) {
	var content string
	err := WithLock(w.lockPath(pane), func() error {
		data, err := os.ReadFile(w.Path(pane))
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: prompt file for pane %s", mux.ErrNotFound, pane)
		}
		if err != nil {
			return fmt.Errorf("reading prompt for %s: %w", pane, err)
		}
		content = string(data)
		return nil
	})
	return content, err
}

// Clear removes the pane's prompt file. A missing file is not an error.
func (w *Writer) Clear(pane model.PaneID) error {
	return WithLock(w.lockPath(pane), func() error {
		if err := os.Remove(w.Path(pane)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clearing prompt for %s: %w", pane, err)
		}
		return nil
	})
}

// Split separates a prompt file into its metadata header and body. ok is
// false when the content carries no header.
func Split(content string) (meta Metadata, body string, ok bool) {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if len(lines) < 4 || lines[3] != "" {
		return Metadata{}, strings.TrimSuffix(content, "\n"), false
	}
	for _, l := range lines[:3] {
		if !strings.HasPrefix(l, "# ") {
			return Metadata{}, strings.TrimSuffix(content, "\n"), false
		}
	}
	ts, ok1 := strings.CutPrefix(lines[1], "# timestamp: ")
	agent, ok2 := strings.CutPrefix(lines[2], "# agent: ")
	if !ok1 || !ok2 {
		return Metadata{}, strings.TrimSuffix(content, "\n"), false
	}

	meta.Session = model.SessionID(strings.TrimPrefix(lines[0], "# "))
	if secs, err := strconv.ParseInt(ts, 10, 64); err == nil {
		meta.Timestamp = time.Unix(secs, 0)
	}
	meta.Agent = agent
	return meta, strings.Join(lines[4:], "\n"), true
}

// fileSafe replaces path separators so an id maps to a single file name.
func fileSafe(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(s)
}
