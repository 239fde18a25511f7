// Package journal persists a history of export runs in SQLite so operators
// can see what was converted, when, and with which outcome. Journal writes
// are best effort: a broken journal never fails an export.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when schema.sql changes; mismatched databases are
// rejected rather than migrated (delete the journal file to reset).
const schemaVersion = 1

// ErrSchemaMismatch indicates the journal database was created by a
// different version of this package.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

// Run is one recorded export invocation.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	InputDir         string
	OutputDir        string
	Device           string
	AcousticExported bool
	VocoderExported  bool
	AssetsCopied     int
	Status           string
	Error            string
}

// Duration returns the wall time of the run.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// NewRunID returns a fresh journal run identifier.
func NewRunID() string { return uuid.NewString() }

// Store manages the export run journal.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to (or creates) the journal database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create journal schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read journal schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// Record inserts a completed run.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO export_runs
			(id, started_at, finished_at, input_dir, output_dir, device,
			 acoustic_exported, vocoder_exported, assets_copied, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.InputDir,
		run.OutputDir,
		run.Device,
		boolToInt(run.AcousticExported),
		boolToInt(run.VocoderExported),
		run.AssetsCopied,
		run.Status,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("record export run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first. A non-positive limit
// defaults to 20.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, input_dir, output_dir, device,
		       acoustic_exported, vocoder_exported, assets_copied, status, error
		FROM export_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list export runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                  Run
			started, finished    string
			acousticOK, vocodeOK int
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.InputDir, &run.OutputDir,
			&run.Device, &acousticOK, &vocodeOK, &run.AssetsCopied, &run.Status, &run.Error); err != nil {
			return nil, fmt.Errorf("scan export run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		run.AcousticExported = acousticOK != 0
		run.VocoderExported = vocodeOK != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
