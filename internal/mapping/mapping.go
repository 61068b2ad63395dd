// Package mapping persists the bridge between remote agent session ids and
// local tmux session names.
//
// The whole table lives in one pretty-printed JSON file keyed by remote id and
// is rewritten on every change. Concurrent processes are last-writer-wins.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Mapping links one remote session to a local session name.
type Mapping struct {
	RemoteSessionID  string    `json:"remote_session_id"`
	LocalSessionName string    `json:"local_session_name"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store is the in-memory table plus its backing file.
type Store struct {
	mu       sync.RWMutex
	path     string
	mappings map[string]Mapping
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source for new mappings.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the table at path, creating the parent directory if needed.
// A missing file is an empty table; a corrupt file is an error.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:     path,
		mappings: map[string]Mapping{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating mapping dir: %w", err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading mappings %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.mappings); err != nil {
		return nil, fmt.Errorf("parsing mappings %s: %w", path, err)
	}
	if s.mappings == nil {
		s.mappings = map[string]Mapping{}
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Insert upserts the mapping for remoteID and persists the table.
func (s *Store) Insert(remoteID, localName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[remoteID] = Mapping{
		RemoteSessionID:  remoteID,
		LocalSessionName: localName,
		CreatedAt:        s.now().UTC(),
	}
	return s.save()
}

// LookupByRemote returns the local session name mapped to remoteID.
func (s *Store) LookupByRemote(remoteID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[remoteID]
	return m.LocalSessionName, ok
}

// LookupByLocal returns the remote id mapped to localName. When several
// remote ids point at the same name, the most recently created wins and ties
// break on the smaller remote id.
func (s *Store) LookupByLocal(localName string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best Mapping
	found := false
	for _, m := range s.mappings {
		if m.LocalSessionName != localName {
			continue
		}
		if !found || newer(m, best) {
			best = m
			found = true
		}
	}
	return best.RemoteSessionID, found
}

func newer(a, b Mapping) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.RemoteSessionID < b.RemoteSessionID
}

// Remove deletes the mapping for remoteID and persists the table.
// Removing an absent id is not an error.
func (s *Store) Remove(remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mappings, remoteID)
	return s.save()
}

// Clear deletes every mapping and persists the empty table.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = map[string]Mapping{}
	return s.save()
}

// List returns all mappings ordered by remote id.
func (s *Store) List() []Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Mapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemoteSessionID < out[j].RemoteSessionID })
	return out
}

// Len returns the number of mappings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mappings)
}

// save writes the table through a temp file and rename. Caller holds mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.mappings, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding mappings: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".mappings-*.tmp")
	if err != nil {
		return fmt.Errorf("writing mappings: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing mappings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing mappings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing mappings: %w", err)
	}
	return nil
}
