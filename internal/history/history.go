// Package history records every dispatched lookup in a local sqlite
// database so operators can audit what the bot was asked and answered.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one handled command.
type Entry struct {
	ID           int64     `json:"id"`
	TraceID      string    `json:"trace_id"`
	Timestamp    time.Time `json:"timestamp"`
	EmployeeCode string    `json:"employee_code"`
	Command      string    `json:"command"`
	Query        string    `json:"query,omitempty"`
	RowsMatched  int       `json:"rows_matched"`
	FilesScanned int       `json:"files_scanned"`
	ResultLink   string    `json:"result_link,omitempty"`
	ErrorText    string    `json:"error_text,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS lookups (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id TEXT,
	timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	employee_code TEXT NOT NULL,
	command TEXT NOT NULL,
	query TEXT,
	rows_matched INTEGER NOT NULL DEFAULT 0,
	files_scanned INTEGER NOT NULL DEFAULT 0,
	result_link TEXT,
	error_text TEXT
);
CREATE INDEX IF NOT EXISTS idx_lookups_time ON lookups(timestamp);
CREATE INDEX IF NOT EXISTS idx_lookups_employee ON lookups(employee_code);
`

// Service wraps the sqlite store.
type Service struct {
	db *sql.DB
}

func NewService(dbPath string) (*Service, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Service{db: db}, nil
}

func (s *Service) Close() error {
	return s.db.Close()
}

// Record stores one handled command.
func (s *Service) Record(e Entry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO lookups (trace_id, timestamp, employee_code, command, query, rows_matched, files_scanned, result_link, error_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TraceID, ts.UTC().Format(time.RFC3339), e.EmployeeCode, e.Command, e.Query,
		e.RowsMatched, e.FilesScanned, e.ResultLink, e.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Service) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, COALESCE(trace_id, ''), timestamp, employee_code, command,
		       COALESCE(query, ''), rows_matched, files_scanned,
		       COALESCE(result_link, ''), COALESCE(error_text, '')
		FROM lookups ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &e.TraceID, &ts, &e.EmployeeCode, &e.Command,
			&e.Query, &e.RowsMatched, &e.FilesScanned, &e.ResultLink, &e.ErrorText); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = parsed
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
