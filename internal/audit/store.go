// Package audit keeps a log of every dispatched command in SQLite.
// This is observational history for the /history and /performance
// surfaces, not session state: the session itself is deliberately not
// persisted and always starts disconnected.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one dispatched command.
type Entry struct {
	ID          string  `json:"id"`
	Action      string  `json:"action"`
	DeviceID    string  `json:"device_id"`
	WorkspaceID string  `json:"workspace_id"`
	Success     bool    `json:"success"`
	Error       string  `json:"error,omitempty"`
	LatencyMS   float64 `json:"latency_ms"`
	CreatedAt   int64   `json:"created_at"`
}

// Store persists dispatch entries.
type Store struct {
	db *sql.DB
}

// Open creates or opens the audit database at the given path and runs
// schema initialization. WAL mode keeps history reads from blocking
// the dispatch path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite handles one writer at a time

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS commands (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			device_id TEXT NOT NULL,
			workspace_id TEXT NOT NULL,
			success INTEGER NOT NULL,
			error TEXT,
			latency_ms REAL NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_commands_created_at ON commands(created_at);
	`)
	return err
}

// Record inserts one entry. ID and CreatedAt are filled in when empty.
func (s *Store) Record(entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}

	var errText sql.NullString
	if entry.Error != "" {
		errText = sql.NullString{String: entry.Error, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO commands (id, action, device_id, workspace_id, success, error, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Action, entry.DeviceID, entry.WorkspaceID, entry.Success, errText, entry.LatencyMS, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, action, device_id, workspace_id, success, error, latency_ms, created_at
		FROM commands ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var errText sql.NullString
		if err := rows.Scan(
			&entry.ID, &entry.Action, &entry.DeviceID, &entry.WorkspaceID,
			&entry.Success, &errText, &entry.LatencyMS, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		if errText.Valid {
			entry.Error = errText.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Ping verifies the database is reachable, for health checks.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
