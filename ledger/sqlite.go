package ledger

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/teranos/herald/errors"
)

// SQLiteStore persists the ledger snapshot in a single SQLite table.
//
// It keeps the same contract as FileStore: the snapshot is loaded once and
// replaced in full on every save (one transaction per mutation). SQLite here
// is a durability convenience, not a query surface.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id                  TEXT PRIMARY KEY,
	channel                 TEXT NOT NULL,
	thread_handle           TEXT NOT NULL DEFAULT '',
	title                   TEXT NOT NULL,
	status                  TEXT NOT NULL,
	created_at              TEXT NOT NULL,
	updated_at              TEXT NOT NULL,
	permalink               TEXT NOT NULL DEFAULT '',
	progress_message_handle TEXT NOT NULL DEFAULT ''
)`

// NewSQLiteStore opens (or creates) a SQLite-backed snapshot store at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open ledger database %s", path)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create jobs table")
	}

	return &SQLiteStore{db: db}, nil
}

// Load reads all JobStates from the jobs table.
func (s *SQLiteStore) Load() ([]JobState, error) {
	rows, err := s.db.Query(`
		SELECT job_id, channel, thread_handle, title, status,
		       created_at, updated_at, permalink, progress_message_handle
		FROM jobs ORDER BY created_at, job_id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query jobs")
	}
	defer rows.Close()

	var states []JobState
	for rows.Next() {
		var job JobState
		var status, createdAt, updatedAt string
		if err := rows.Scan(
			&job.JobID, &job.Channel, &job.ThreadHandle, &job.Title, &status,
			&createdAt, &updatedAt, &job.Permalink, &job.ProgressMessageHandle,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan job row")
		}
		job.Status = Status(status)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			job.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			job.UpdatedAt = t
		}
		states = append(states, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate job rows")
	}

	return states, nil
}

// Save replaces the entire snapshot in one transaction.
func (s *SQLiteStore) Save(states []JobState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin snapshot transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM jobs`); err != nil {
		return errors.Wrap(err, "failed to clear jobs table")
	}

	stmt, err := tx.Prepare(`
		INSERT INTO jobs (
			job_id, channel, thread_handle, title, status,
			created_at, updated_at, permalink, progress_message_handle
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare job insert")
	}
	defer stmt.Close()

	for _, job := range states {
		_, err := stmt.Exec(
			job.JobID, job.Channel, job.ThreadHandle, job.Title, string(job.Status),
			job.CreatedAt.Format(time.RFC3339Nano),
			job.UpdatedAt.Format(time.RFC3339Nano),
			job.Permalink, job.ProgressMessageHandle,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert job %s", job.JobID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit snapshot")
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
