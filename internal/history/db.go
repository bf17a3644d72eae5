// Package history records scan-cycle outcomes in a local sqlite database so
// operators can audit when scans ran and what they found, independent of the
// collector's own records.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Cycle status values stored in scan_cycles.
const (
	StatusStarted   = "STARTED"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// DB wraps the SQL database connection for scan-cycle history.
type DB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// CycleEntry represents a record in the scan_cycles table.
type CycleEntry struct {
	ID           int64
	CycleID      string
	StartTime    time.Time
	EndTime      sql.NullTime
	Status       string
	FilesScanned int
	Added        int
	Removed      int
	Modified     int
	Warnings     int
	ErrorSummary sql.NullString
}

// NewDB opens the history database and ensures the schema exists.
func NewDB(dataSourceName string, logger zerolog.Logger) (*DB, error) {
	dbDir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history database directory '%s': %w", dbDir, err)
	}

	dbInstance, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("sql.Open failed for '%s': %w", dataSourceName, err)
	}

	d := &DB{
		db:     dbInstance,
		logger: logger.With().Str("component", "HistoryDB").Logger(),
	}
	if err := d.initSchema(); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	d.logger.Debug().Str("path", dataSourceName).Msg("History database initialized")
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *DB) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS scan_cycles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id TEXT UNIQUE,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		status TEXT NOT NULL,
		files_scanned INTEGER DEFAULT 0,
		added INTEGER DEFAULT 0,
		removed INTEGER DEFAULT 0,
		modified INTEGER DEFAULT 0,
		warnings INTEGER DEFAULT 0,
		error_summary TEXT
	);
	`
	_, err := d.db.Exec(query)
	return err
}

// RecordCycleStart inserts a STARTED row and returns its ID.
func (d *DB) RecordCycleStart(cycleID string, startTime time.Time) (int64, error) {
	result, err := d.db.Exec(
		`INSERT INTO scan_cycles (cycle_id, start_time, status) VALUES (?, ?, ?)`,
		cycleID, startTime, StatusStarted,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert cycle start record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// RecordCycleCompletion updates a cycle row with its outcome.
func (d *DB) RecordCycleCompletion(id int64, endTime time.Time, status string, filesScanned, added, removed, modified, warnings int, errorSummary string) error {
	_, err := d.db.Exec(
		`UPDATE scan_cycles SET end_time = ?, status = ?, files_scanned = ?, added = ?, removed = ?, modified = ?, warnings = ?, error_summary = ? WHERE id = ?`,
		endTime, status, filesScanned, added, removed, modified, warnings,
		sql.NullString{String: errorSummary, Valid: errorSummary != ""}, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update cycle completion for ID %d: %w", id, err)
	}
	return nil
}

// LastCompletedCycleTime returns the start time of the most recent COMPLETED
// cycle, or sql.ErrNoRows when none exists.
func (d *DB) LastCompletedCycleTime() (*time.Time, error) {
	var startTime time.Time
	err := d.db.QueryRow(
		`SELECT start_time FROM scan_cycles WHERE status = ? ORDER BY start_time DESC LIMIT 1`,
		StatusCompleted,
	).Scan(&startTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to query last completed cycle: %w", err)
	}
	return &startTime, nil
}

// Cycles returns all recorded cycles, newest first.
func (d *DB) Cycles() ([]CycleEntry, error) {
	rows, err := d.db.Query(
		`SELECT id, cycle_id, start_time, end_time, status, files_scanned, added, removed, modified, warnings, error_summary
		 FROM scan_cycles ORDER BY start_time DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan cycles: %w", err)
	}
	defer rows.Close()

	var entries []CycleEntry
	for rows.Next() {
		var e CycleEntry
		if err := rows.Scan(&e.ID, &e.CycleID, &e.StartTime, &e.EndTime, &e.Status,
			&e.FilesScanned, &e.Added, &e.Removed, &e.Modified, &e.Warnings, &e.ErrorSummary); err != nil {
			return nil, fmt.Errorf("failed to scan cycle row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
