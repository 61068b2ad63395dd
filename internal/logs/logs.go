// Package logs reads per-session and per-pane log files written by tmux
// pipe-pane under a single log directory.
//
// Session logs are named "session_<id>.log" and pane logs "pane_<id>.log".
package logs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/mux"
)

const (
	sessionPrefix = "session_"
	panePrefix    = "pane_"
	logSuffix     = ".log"

	defaultPollInterval = 100 * time.Millisecond
)

// Reader reads logs from one directory.
type Reader struct {
	dir    string
	poll   time.Duration
	logger *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithPollInterval sets how long Watch sleeps when no new data is available.
func WithPollInterval(d time.Duration) Option {
	return func(r *Reader) { r.poll = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// NewReader creates a Reader for dir.
func NewReader(dir string, opts ...Option) *Reader {
	r := &Reader{dir: dir, poll: defaultPollInterval, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the log directory.
func (r *Reader) Dir() string {
	return r.dir
}

// Path returns the log file for a session.
func (r *Reader) Path(id model.SessionID) string {
	return filepath.Join(r.dir, sessionPrefix+string(id)+logSuffix)
}

// PanePath returns the log file for a pane.
func (r *Reader) PanePath(id model.PaneID) string {
	return filepath.Join(r.dir, panePrefix+string(id)+logSuffix)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: log file %s does not exist", mux.ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("reading log %s: %w", path, err)
	}
	return string(data), nil
}

// Read returns a session log's full content.
func (r *Reader) Read(id model.SessionID) (string, error) {
	return readFile(r.Path(id))
}

// ReadPane returns a pane log's full content.
func (r *Reader) ReadPane(id model.PaneID) (string, error) {
	return readFile(r.PanePath(id))
}

// Lines returns a session log split into lines, without trailing newlines.
func (r *Reader) Lines(id model.SessionID) ([]string, error) {
	content, err := r.Read(id)
	if err != nil {
		return nil, err
	}
	return splitLines(content), nil
}

// From returns the lines after the first offset lines.
func (r *Reader) From(id model.SessionID, offset int) ([]string, error) {
	lines, err := r.Lines(id)
	if err != nil {
		return nil, err
	}
	if offset >= len(lines) {
		return nil, nil
	}
	return lines[max(offset, 0):], nil
}

// Tail returns the last n lines.
func (r *Reader) Tail(id model.SessionID, n int) ([]string, error) {
	lines, err := r.Lines(id)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	if n >= len(lines) {
		return lines, nil
	}
	return lines[len(lines)-n:], nil
}

// Search returns the lines containing pattern as a plain substring.
func (r *Reader) Search(id model.SessionID, pattern string) ([]string, error) {
	lines, err := r.Lines(id)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, l := range lines {
		if strings.Contains(l, pattern) {
			out = append(out, l)
		}
	}
	return out, nil
}

// Clear truncates a session log, creating it if needed.
func (r *Reader) Clear(id model.SessionID) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	if err := os.WriteFile(r.Path(id), nil, 0o644); err != nil {
		return fmt.Errorf("clearing log: %w", err)
	}
	return nil
}

// Delete removes a session log. A missing file is not an error.
func (r *Reader) Delete(id model.SessionID) error {
	if err := os.Remove(r.Path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting log: %w", err)
	}
	return nil
}

// List returns the ids of all session logs, sorted. A missing directory
// yields an empty list.
func (r *Reader) List() ([]model.SessionID, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading log dir: %w", err)
	}
	var ids []model.SessionID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, sessionPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, sessionPrefix), logSuffix)
		if id != "" {
			ids = append(ids, model.SessionID(id))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *Reader) stat(id model.SessionID) (fs.FileInfo, error) {
	info, err := os.Stat(r.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: log file %s does not exist", mux.ErrNotFound, r.Path(id))
	}
	if err != nil {
		return nil, fmt.Errorf("reading log metadata: %w", err)
	}
	return info, nil
}

// Size returns a session log's size in bytes.
func (r *Reader) Size(id model.SessionID) (int64, error) {
	info, err := r.stat(id)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ModTime returns when a session log was last written.
func (r *Reader) ModTime(id model.SessionID) (time.Time, error) {
	info, err := r.stat(id)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func splitLines(content string) []string {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
