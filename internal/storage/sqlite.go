// Package storage persists utterance sessions and their speech units.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hmaged/voxline/internal/transcript"
)

// Session is one stored playback episode.
type Session struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// SQLiteStore implements transcript.Store on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "voxline.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT
		);
	`); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS units (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			text TEXT NOT NULL,
			start_time REAL,
			end_time REAL,
			received_at TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create units table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_units_session ON units(session_id, seq)"); err != nil {
		return fmt.Errorf("create units index: %w", err)
	}
	return nil
}

// CreateSession records the start of a new episode.
func (s *SQLiteStore) CreateSession(id string, startedAt time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO sessions (id, started_at) VALUES (?, ?)",
		id, startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// EndSession marks an episode finished.
func (s *SQLiteStore) EndSession(id string, endedAt time.Time) error {
	_, err := s.db.Exec(
		"UPDATE sessions SET ended_at = ? WHERE id = ?",
		endedAt.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// AppendUnit stores one speech unit of a session.
func (s *SQLiteStore) AppendUnit(sessionID string, u transcript.SpeechUnit) error {
	var start, end any
	if u.Start != nil {
		start = *u.Start
	}
	if u.End != nil {
		end = *u.End
	}

	_, err := s.db.Exec(
		"INSERT INTO units (session_id, seq, text, start_time, end_time, received_at) VALUES (?, ?, ?, ?, ?, ?)",
		sessionID, u.Seq, u.Text, start, end, u.ReceivedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert unit: %w", err)
	}
	return nil
}

// GetUnits returns a session's units in sequence order.
func (s *SQLiteStore) GetUnits(sessionID string) ([]transcript.SpeechUnit, error) {
	rows, err := s.db.Query(
		"SELECT seq, text, start_time, end_time, received_at FROM units WHERE session_id = ? ORDER BY seq",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var units []transcript.SpeechUnit
	for rows.Next() {
		var (
			u          transcript.SpeechUnit
			start, end sql.NullFloat64
			receivedAt string
		)
		if err := rows.Scan(&u.Seq, &u.Text, &start, &end, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		if start.Valid {
			v := start.Float64
			u.Start = &v
		}
		if end.Valid {
			v := end.Float64
			u.End = &v
		}
		if ts, err := time.Parse(time.RFC3339Nano, receivedAt); err == nil {
			u.ReceivedAt = ts
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// ListSessions returns the most recent sessions, newest first.
func (s *SQLiteStore) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		"SELECT id, started_at, ended_at FROM sessions ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []Session
	for rows.Next() {
		var (
			sess      Session
			startedAt string
			endedAt   sql.NullString
		)
		if err := rows.Scan(&sess.ID, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			sess.StartedAt = ts
		}
		if endedAt.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, endedAt.String); err == nil {
				sess.EndedAt = &ts
			}
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
