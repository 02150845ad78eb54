package runstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"presswork/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users need to clear the run database after schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("run store schema version mismatch")

// ErrNotFound indicates the requested run does not exist.
var ErrNotFound = errors.New("run not found")

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the run database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "runs.db"))
}

// OpenPath connects to the run database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
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
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// NewRun inserts a pending run for the given trigger input.
func (s *Store) NewRun(ctx context.Context, productRef string, platforms []string, sourceData map[string]string) (*Run, error) {
	now := time.Now().UTC()
	run := &Run{
		ID:              uuid.NewString(),
		ProductRef:      productRef,
		TargetPlatforms: platforms,
		SourceData:      sourceData,
		Status:          StatusPending,
		SessionID:       uuid.NewString(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	sourceJSON, err := EncodePayload(sourceData)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
			(id, product_ref, target_platforms, source_data, status, session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.ProductRef,
		strings.Join(platforms, ","),
		sourceJSON,
		string(run.Status),
		run.SessionID,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Update persists the run's current state.
func (s *Store) Update(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is required")
	}
	if !run.Status.Valid() {
		return fmt.Errorf("invalid run status %q", run.Status)
	}

	run.UpdatedAt = time.Now().UTC()
	sourceJSON, err := EncodePayload(run.SourceData)
	if err != nil {
		return err
	}
	var completedAt any
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.UTC().Format(time.RFC3339Nano)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			product_ref = ?,
			target_platforms = ?,
			source_data = ?,
			status = ?,
			rights_rewrites = ?,
			qa_rewrites = ?,
			error_message = ?,
			session_id = ?,
			enrichment_json = ?,
			references_json = ?,
			scored_json = ?,
			script_json = ?,
			packages_json = ?,
			updated_at = ?,
			completed_at = ?
		WHERE id = ?`,
		run.ProductRef,
		strings.Join(run.TargetPlatforms, ","),
		sourceJSON,
		string(run.Status),
		run.RightsRewrites,
		run.QARewrites,
		run.ErrorMessage,
		run.SessionID,
		run.EnrichmentJSON,
		run.ReferencesJSON,
		run.ScoredJSON,
		run.ScriptJSON,
		run.PackagesJSON,
		run.UpdatedAt.Format(time.RFC3339Nano),
		completedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
	}
	return nil
}

// GetByID fetches one run.
func (s *Store) GetByID(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// NextPending returns the oldest pending run, or nil when the queue is empty.
func (s *Store) NextPending(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+" WHERE status = ? ORDER BY created_at ASC LIMIT 1", string(StatusPending))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// List returns runs newest first, up to limit (0 means no limit).
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := selectRuns + " ORDER BY created_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Health aggregates run counts per lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM runs GROUP BY status")
	if err != nil {
		return HealthSummary{}, fmt.Errorf("run health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan run health: %w", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending += count
		case StatusCompleted:
			summary.Completed += count
		case StatusRejected:
			summary.Rejected += count
		case StatusError:
			summary.Errored += count
		default:
			summary.Active += count
		}
	}
	return summary, rows.Err()
}

// MarkPublished records a content hash as published on a platform.
func (s *Store) MarkPublished(ctx context.Context, platform, contentHash, runID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO published_content (platform, content_hash, run_id, published_at)
		VALUES (?, ?, ?, ?)`,
		platform, contentHash, runID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}

// IsPublished reports whether a content hash was already published on a
// platform. Satisfies the QA checker's PublishedIndex.
func (s *Store) IsPublished(ctx context.Context, platform, contentHash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM published_content WHERE platform = ? AND content_hash = ?",
		platform, contentHash,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("published lookup: %w", err)
	}
	return count > 0, nil
}

const selectRuns = `
	SELECT id, product_ref, target_platforms, source_data, status,
		rights_rewrites, qa_rewrites, error_message, session_id,
		enrichment_json, references_json, scored_json, script_json, packages_json,
		created_at, updated_at, completed_at
	FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var platforms, sourceJSON, status, createdAt, updatedAt string
	var completedAt sql.NullString

	err := row.Scan(
		&run.ID,
		&run.ProductRef,
		&platforms,
		&sourceJSON,
		&status,
		&run.RightsRewrites,
		&run.QARewrites,
		&run.ErrorMessage,
		&run.SessionID,
		&run.EnrichmentJSON,
		&run.ReferencesJSON,
		&run.ScoredJSON,
		&run.ScriptJSON,
		&run.PackagesJSON,
		&createdAt,
		&updatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.Status = Status(status)
	if platforms != "" {
		run.TargetPlatforms = strings.Split(platforms, ",")
	}
	if sourceJSON != "" {
		if err := json.Unmarshal([]byte(sourceJSON), &run.SourceData); err != nil {
			return nil, fmt.Errorf("decode source data: %w", err)
		}
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if run.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if completedAt.Valid && completedAt.String != "" {
		ts, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		run.CompletedAt = &ts
	}
	return &run, nil
}
