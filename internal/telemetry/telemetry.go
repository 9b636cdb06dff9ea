// Package telemetry records analysis run metrics in a local SQLite database
// so that cache behavior over time (hit rates, batch durations, error
// counts) can be inspected from the status command.
package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"tokopt/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	run_id      TEXT PRIMARY KEY,
	command     TEXT NOT NULL,
	files_total INTEGER NOT NULL,
	processed   INTEGER NOT NULL,
	added       INTEGER NOT NULL,
	updated     INTEGER NOT NULL,
	errors      INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_recorded_at
	ON analysis_runs(recorded_at);
`

// RunRecord is one recorded analysis run.
type RunRecord struct {
	RunID      string    `json:"runId"`
	Command    string    `json:"command"`
	FilesTotal int       `json:"filesTotal"`
	Processed  int       `json:"processed"`
	Added      int       `json:"added"`
	Updated    int       `json:"updated"`
	Errors     int       `json:"errors"`
	DurationMs int64     `json:"durationMs"`
	RecordedAt time.Time `json:"recordedAt"`
}

// RunAggregate summarizes runs over a time window.
type RunAggregate struct {
	RunCount       int64 `json:"runCount"`
	TotalProcessed int64 `json:"totalProcessed"`
	TotalErrors    int64 `json:"totalErrors"`
	TotalMs        int64 `json:"totalMs"`
}

// AvgLatencyMs returns the average run duration in milliseconds.
func (a *RunAggregate) AvgLatencyMs() float64 {
	if a.RunCount == 0 {
		return 0
	}
	return float64(a.TotalMs) / float64(a.RunCount)
}

// Store persists run metrics to SQLite.
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Open opens or creates the metrics database at dbPath.
func Open(dbPath string, logger *logging.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
		"PRAGMA synchronous=NORMAL", // Balance between safety and performance
		"PRAGMA busy_timeout=5000",  // Wait up to 5 seconds on lock
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize metrics schema: %w", err)
	}

	return &Store{conn: conn, logger: logger, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// WithTx executes fn inside a transaction, rolling back on error or panic.
func (s *Store) WithTx(fn func(*sql.Tx) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to rollback transaction", map[string]interface{}{
				"error":          err.Error(),
				"rollback_error": rbErr.Error(),
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RecordRun persists one analysis run.
func (s *Store) RecordRun(r RunRecord) error {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}
	return s.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO analysis_runs (
				run_id, command, files_total, processed, added, updated,
				errors, duration_ms, recorded_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.RunID, r.Command, r.FilesTotal, r.Processed, r.Added, r.Updated,
			r.Errors, r.DurationMs, r.RecordedAt.Format(time.RFC3339))
		return err
	})
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	rows, err := s.conn.Query(`
		SELECT run_id, command, files_total, processed, added, updated,
		       errors, duration_ms, recorded_at
		FROM analysis_runs
		ORDER BY recorded_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var recordedAt string
		if err := rows.Scan(&r.RunID, &r.Command, &r.FilesTotal, &r.Processed,
			&r.Added, &r.Updated, &r.Errors, &r.DurationMs, &recordedAt); err != nil {
			return nil, err
		}
		r.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Aggregate summarizes runs recorded at or after since.
func (s *Store) Aggregate(since time.Time) (*RunAggregate, error) {
	row := s.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(processed), 0),
		       COALESCE(SUM(errors), 0), COALESCE(SUM(duration_ms), 0)
		FROM analysis_runs
		WHERE recorded_at >= ?
	`, since.Format(time.RFC3339))

	var agg RunAggregate
	if err := row.Scan(&agg.RunCount, &agg.TotalProcessed, &agg.TotalErrors, &agg.TotalMs); err != nil {
		return nil, err
	}
	return &agg, nil
}
