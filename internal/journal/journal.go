// Package journal records delivery attempts in a local SQLite database.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one delivery attempt.
type Entry struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id,omitempty"`
	SessionID string    `json:"session_id"`
	Channel   string    `json:"channel"`
	Mode      string    `json:"mode"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Store is a SQLite-backed delivery journal.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	dsn := path + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// Single writer; keeps SQLITE_BUSY out of concurrent Record calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS deliveries (
		id TEXT PRIMARY KEY,
		message_id TEXT,
		session_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		mode TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deliveries_at ON deliveries(at);
	CREATE INDEX IF NOT EXISTS idx_deliveries_session ON deliveries(session_id);
	`
	_, err := s.db.Exec(query)
	return err
}

// Record stores e, filling in ID and At when they are zero.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (id, message_id, session_id, channel, mode, success, error, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.MessageID, e.SessionID, e.Channel, e.Mode, boolToInt(e.Success), e.Error, e.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx,
		`SELECT id, message_id, session_id, channel, mode, success, error, at
		 FROM deliveries ORDER BY at DESC, id LIMIT ?`, sqlLimit(limit))
}

// ForSession returns up to limit entries for one session, newest first.
func (s *Store) ForSession(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	return s.query(ctx,
		`SELECT id, message_id, session_id, channel, mode, success, error, at
		 FROM deliveries WHERE session_id = ? ORDER BY at DESC, id LIMIT ?`, sessionID, sqlLimit(limit))
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			messageID sql.NullString
			errText   sql.NullString
			success   int
			at        int64
		)
		if err := rows.Scan(&e.ID, &messageID, &e.SessionID, &e.Channel, &e.Mode, &success, &errText, &at); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		e.MessageID = messageID.String
		e.Error = errText.String
		e.Success = success != 0
		e.At = time.Unix(0, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
