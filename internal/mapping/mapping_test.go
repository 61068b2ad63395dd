package mapping

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func stepClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestInsertAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "sessions.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Insert("session_abc", "tmux_1"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if got, ok := s.LookupByRemote("session_abc"); !ok || got != "tmux_1" {
		t.Errorf("LookupByRemote = %q, %v", got, ok)
	}
	if got, ok := s.LookupByLocal("tmux_1"); !ok || got != "session_abc" {
		t.Errorf("LookupByLocal = %q, %v", got, ok)
	}
	if _, ok := s.LookupByRemote("r1"); ok {
		t.Error("unexpected mapping for r1")
	}
}

func TestInsertOverwritesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Insert("r1", "old"); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert("r1", "new"); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1 (remote ids are unique)", s.Len())
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got, _ := reopened.LookupByRemote("r1"); got != "new" {
		t.Errorf("persisted value = %q, want new", got)
	}

	// File is a JSON object keyed by remote id.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]Mapping
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("file is not a keyed table: %v", err)
	}
	if raw["r1"].LocalSessionName != "new" {
		t.Errorf("raw table = %+v", raw)
	}
}

func TestLookupByLocalDuplicates(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "m.json"), WithClock(stepClock(time.Unix(1700000000, 0))))
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"r-b", "r-a", "r-c"} {
		if err := s.Insert(id, "shared"); err != nil {
			t.Fatal(err)
		}
	}
	if got, _ := s.LookupByLocal("shared"); got != "r-c" {
		t.Errorf("LookupByLocal = %q, want most recent r-c", got)
	}

	// Equal timestamps break on remote id.
	fixed := time.Unix(1700000000, 0)
	s2, err := Open(filepath.Join(t.TempDir(), "m.json"), WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"r-z", "r-m", "r-q"} {
		if err := s2.Insert(id, "shared"); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 5; i++ {
		if got, _ := s2.LookupByLocal("shared"); got != "r-m" {
			t.Fatalf("tie break = %q, want r-m", got)
		}
	}
}

func TestRemoveClearList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"s2", "s1", "s3"} {
		if err := s.Insert(id, "t-"+id); err != nil {
			t.Fatal(err)
		}
	}

	list := s.List()
	if len(list) != 3 || list[0].RemoteSessionID != "s1" || list[2].RemoteSessionID != "s3" {
		t.Errorf("List = %+v", list)
	}

	if err := s.Remove("s2"); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("missing"); err != nil {
		t.Errorf("removing a missing id: %v", err)
	}
	if _, ok := s.LookupByRemote("s2"); ok {
		t.Error("s2 should be gone")
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Len() != 0 {
		t.Errorf("Len after clear = %d", reopened.Len())
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for corrupt table")
	}
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d", s.Len())
	}
}
