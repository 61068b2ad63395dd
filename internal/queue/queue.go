// Package queue is the persistent outbound message queue.
//
// Each message is one pretty-printed JSON file under the queue directory,
// named "<pane>-<id>.msg", mirrored by an in-memory FIFO. Delivery is
// at-least-once: a crash between the file write and the in-memory append
// leaves a file that only a retry sweep picks up. Only one process may own
// a queue directory.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/timvw/pane-relay/internal/model"
	ppotel "github.com/timvw/pane-relay/internal/otel"
)

const fileSuffix = ".msg"

// ErrDuplicateID is returned when an id was already enqueued on this queue.
var ErrDuplicateID = errors.New("duplicate message id")

// Stats summarizes queue state. It is recomputed from disk on every call.
type Stats struct {
	// Pending is the in-memory queue length.
	Pending int `json:"pending"`
	// Queued counts files still eligible for retry.
	Queued int `json:"queued"`
	// Failed counts files that exhausted their retries.
	Failed int `json:"failed"`
}

// Queue is a durable FIFO of outbound messages.
type Queue struct {
	dir     string
	logger  *slog.Logger
	metrics *ppotel.Metrics
	now     func() time.Time

	resolver PaneResolver
	prompts  PromptWriter

	mu      sync.Mutex
	pending []model.QueuedMessage
	seen    map[string]struct{}
}

// Option configures a Queue.
type Option func(*Queue)

func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// WithMetrics records enqueue/dequeue/retry counters; nil is allowed.
func WithMetrics(m *ppotel.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

// WithClock overrides the time source for queued_at and created_at.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithResolver sets how SendMessage finds a session's default pane.
func WithResolver(r PaneResolver) Option {
	return func(q *Queue) { q.resolver = r }
}

// WithPromptWriter enables SendPrompt.
func WithPromptWriter(w PromptWriter) Option {
	return func(q *Queue) { q.prompts = w }
}

// New opens the queue rooted at dir, creating the directory if absent.
// The in-memory queue starts empty; use Load or RetryFailed to pick up files
// left by a previous run.
func New(dir string, opts ...Option) (*Queue, error) {
	q := &Queue{
		dir:    dir,
		logger: slog.Default(),
		now:    time.Now,
		seen:   map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(q)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating queue dir: %w", err)
	}
	return q, nil
}

// Dir returns the queue directory.
func (q *Queue) Dir() string {
	return q.dir
}

// FilePath returns the on-disk location for a message.
func (q *Queue) FilePath(m model.Message) string {
	return filepath.Join(q.dir, fileSafe(string(m.PaneID))+"-"+fileSafe(m.ID)+fileSuffix)
}

// Enqueue persists m and appends it to the in-memory queue. An empty id is
// replaced with a new UUID. The returned value is what was stored.
func (q *Queue) Enqueue(m model.Message) (model.QueuedMessage, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = q.now().UTC()
	}

	q.mu.Lock()
	if _, dup := q.seen[m.ID]; dup {
		q.mu.Unlock()
		return model.QueuedMessage{}, fmt.Errorf("%w: %s", ErrDuplicateID, m.ID)
	}
	q.seen[m.ID] = struct{}{}
	q.mu.Unlock()

	qm := model.QueuedMessage{Message: m, QueuedAt: q.now().UTC()}
	if err := q.writeFile(qm); err != nil {
		q.mu.Lock()
		delete(q.seen, m.ID)
		q.mu.Unlock()
		return model.QueuedMessage{}, err
	}

	q.mu.Lock()
	q.pending = append(q.pending, qm)
	q.mu.Unlock()

	q.metrics.RecordEnqueue(context.Background())
	q.logger.Debug("message enqueued", "message_id", m.ID, "pane_id", m.PaneID)
	return qm, nil
}

// Dequeue pops the oldest in-memory entry. Its file stays on disk until the
// caller calls Remove after a successful delivery.
func (q *Queue) Dequeue() (model.QueuedMessage, bool) {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return model.QueuedMessage{}, false
	}
	qm := q.pending[0]
	q.pending[0] = model.QueuedMessage{}
	q.pending = q.pending[1:]
	q.mu.Unlock()

	q.metrics.RecordDequeue(context.Background())
	return qm, true
}

// Peek returns the oldest in-memory entry without removing it.
func (q *Queue) Peek() (model.QueuedMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return model.QueuedMessage{}, false
	}
	return q.pending[0], true
}

// Len returns the in-memory queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Remove deletes a message's file. A missing file is not an error.
func (q *Queue) Remove(m model.Message) error {
	if err := os.Remove(q.FilePath(m)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing queued message %s: %w", m.ID, err)
	}
	return nil
}

// RetryFailed scans every queue file in directory order. Each message with
// fewer than model.MaxRetries retries gets its count incremented, its file
// rewritten, and is appended to the in-memory queue. Exhausted files are left
// untouched. Entries already pending in memory are appended again.
func (q *Queue) RetryFailed() (int, error) {
	files, err := q.scan()
	if err != nil {
		return 0, err
	}

	retried := 0
	for _, f := range files {
		if f.msg.Failed() {
			continue
		}
		f.msg.Retries++
		if err := q.writeFile(f.msg); err != nil {
			return retried, err
		}
		q.mu.Lock()
		q.pending = append(q.pending, f.msg)
		q.seen[f.msg.Message.ID] = struct{}{}
		q.mu.Unlock()
		retried++
		if f.msg.Failed() {
			q.logger.Warn("queued message exhausted retries", "message_id", f.msg.Message.ID, "pane_id", f.msg.Message.PaneID)
		}
	}

	q.metrics.RecordRetry(context.Background(), retried)
	return retried, nil
}

// Load appends every on-disk message that is neither exhausted nor already
// pending to the in-memory queue, leaving retry counts unchanged. It is how a
// new process picks up messages enqueued by an earlier one.
func (q *Queue) Load() (int, error) {
	files, err := q.scan()
	if err != nil {
		return 0, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	pending := make(map[string]struct{}, len(q.pending))
	for _, qm := range q.pending {
		pending[qm.Message.ID] = struct{}{}
	}
	loaded := 0
	for _, f := range files {
		id := f.msg.Message.ID
		if _, ok := pending[id]; ok || f.msg.Failed() {
			continue
		}
		q.pending = append(q.pending, f.msg)
		q.seen[id] = struct{}{}
		pending[id] = struct{}{}
		loaded++
	}
	return loaded, nil
}

// Stats re-scans the queue directory.
func (q *Queue) Stats() (Stats, error) {
	files, err := q.scan()
	if err != nil {
		return Stats{}, err
	}
	s := Stats{Pending: q.Len()}
	for _, f := range files {
		if f.msg.Failed() {
			s.Failed++
		} else {
			s.Queued++
		}
	}
	return s, nil
}

// Clear empties the in-memory queue and deletes every queue file.
// It is safe to call repeatedly, including after the directory is gone.
func (q *Queue) Clear() error {
	q.mu.Lock()
	q.pending = nil
	q.mu.Unlock()

	entries, err := os.ReadDir(q.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading queue dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(q.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clearing queue: %w", err)
		}
	}
	return nil
}

type queueFile struct {
	path string
	msg  model.QueuedMessage
}

// scan reads every parseable queue file in name order. Unreadable or
// malformed files are skipped with a warning.
func (q *Queue) scan() ([]queueFile, error) {
	entries, err := os.ReadDir(q.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading queue dir: %w", err)
	}

	var files []queueFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		path := filepath.Join(q.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			q.logger.Warn("skipping unreadable queue file", "path", path, "error", err)
			continue
		}
		var qm model.QueuedMessage
		if err := json.Unmarshal(data, &qm); err != nil {
			q.logger.Warn("skipping malformed queue file", "path", path, "error", err)
			continue
		}
		files = append(files, queueFile{path: path, msg: qm})
	}
	return files, nil
}

func (q *Queue) writeFile(qm model.QueuedMessage) error {
	data, err := json.MarshalIndent(qm, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding queued message: %w", err)
	}
	path := q.FilePath(qm.Message)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating queue dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing queued message %s: %w", qm.Message.ID, err)
	}
	return nil
}

func fileSafe(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(s)
}
