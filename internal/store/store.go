package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/proofshot/internal/apperr"
	"github.com/ibeckermayer/proofshot/internal/types"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		platform TEXT NOT NULL,
		content TEXT NOT NULL,
		title TEXT,
		author TEXT NOT NULL,
		metrics TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		source_context TEXT,
		resolver_warning TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS job_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_name TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		artifacts INTEGER NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_created_at ON artifacts(created_at);
	CREATE INDEX IF NOT EXISTS idx_job_runs_name ON job_runs(job_name, started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// SaveArtifact inserts an artifact or replaces the editable fields of an
// existing one
func (s *Store) SaveArtifact(a types.Artifact) error {
	return saveArtifact(s.db, a)
}

// SaveArtifacts saves artifacts in one transaction
func (s *Store) SaveArtifacts(artifacts []types.Artifact) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		if err := saveArtifact(tx, a); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save artifact %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

func saveArtifact(db execer, a types.Artifact) error {
	authorJSON, err := json.Marshal(a.Author)
	if err != nil {
		return fmt.Errorf("failed to encode author: %w", err)
	}
	metricsJSON, err := json.Marshal(a.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO artifacts (id, platform, content, title, author, metrics,
			timestamp, source_context, resolver_warning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			title = excluded.title,
			author = excluded.author,
			metrics = excluded.metrics,
			timestamp = excluded.timestamp
	`, a.ID, string(a.Platform), a.Content, a.Title, string(authorJSON), string(metricsJSON),
		a.Timestamp, a.SourceContext, a.ResolverWarning, a.CreatedAt)

	return err
}

const artifactColumns = `id, platform, content, title, author, metrics,
	timestamp, source_context, resolver_warning, created_at`

// GetArtifact returns the artifact with id
func (s *Store) GetArtifact(id string) (types.Artifact, error) {
	row := s.db.QueryRow(`SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Artifact{}, apperr.Errorf(apperr.KindNotFound, "store", "artifact %s not found", id)
	}
	return a, err
}

// ListArtifacts returns the most recent artifacts first
func (s *Store) ListArtifacts(limit int) ([]types.Artifact, error) {
	rows, err := s.db.Query(`
		SELECT `+artifactColumns+`
		FROM artifacts
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []types.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// DeleteArtifact removes an artifact
func (s *Store) DeleteArtifact(id string) error {
	res, err := s.db.Exec(`DELETE FROM artifacts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Errorf(apperr.KindNotFound, "store", "artifact %s not found", id)
	}
	return nil
}

// RecordJobRun stores the outcome of a scheduled job
func (s *Store) RecordJobRun(run JobRun) error {
	_, err := s.db.Exec(`
		INSERT INTO job_runs (job_name, started_at, finished_at, artifacts, error)
		VALUES (?, ?, ?, ?, ?)
	`, run.JobName, run.StartedAt, run.FinishedAt, run.Artifacts, run.Error)
	return err
}

// RecentJobRuns returns the latest runs of a job, newest first
func (s *Store) RecentJobRuns(jobName string, limit int) ([]JobRun, error) {
	rows, err := s.db.Query(`
		SELECT id, job_name, started_at, finished_at, artifacts, COALESCE(error, '')
		FROM job_runs
		WHERE job_name = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, jobName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []JobRun
	for rows.Next() {
		var r JobRun
		if err := rows.Scan(&r.ID, &r.JobName, &r.StartedAt, &r.FinishedAt, &r.Artifacts, &r.Error); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (types.Artifact, error) {
	var a types.Artifact
	var platform, authorJSON, metricsJSON string
	var title, sourceContext, warning sql.NullString

	err := row.Scan(
		&a.ID, &platform, &a.Content, &title, &authorJSON, &metricsJSON,
		&a.Timestamp, &sourceContext, &warning, &a.CreatedAt,
	)
	if err != nil {
		return types.Artifact{}, err
	}

	a.Platform = types.Platform(platform)
	a.Title = title.String
	a.SourceContext = sourceContext.String
	a.ResolverWarning = warning.String

	if err := json.Unmarshal([]byte(authorJSON), &a.Author); err != nil {
		return types.Artifact{}, fmt.Errorf("failed to decode author of %s: %w", a.ID, err)
	}
	a.Metrics, err = types.DecodeMetrics(a.Platform, []byte(metricsJSON))
	if err != nil {
		return types.Artifact{}, fmt.Errorf("failed to decode metrics of %s: %w", a.ID, err)
	}
	return a, nil
}
