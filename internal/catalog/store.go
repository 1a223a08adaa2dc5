package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DatabaseName is the catalog file created inside the work directory.
const DatabaseName = "catalog.db"

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database at dbPath.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}
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
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a run in the running state and returns the stored copy.
func (s *Store) BeginRun(ctx context.Context, run Run) (*Run, error) {
	if strings.TrimSpace(run.RequestID) == "" {
		return nil, errors.New("run request id is empty")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            request_id, mode, reference_path, driver_path, status,
            width, height, frames, fps, seed, cfg, steps, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RequestID,
		run.Mode,
		run.ReferencePath,
		run.DriverPath,
		StatusRunning,
		run.Width,
		run.Height,
		run.Frames,
		run.FPS,
		run.Seed,
		run.CFG,
		run.Steps,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRun(ctx, id)
}

// CompleteRun marks a run completed with its final output path.
func (s *Store) CompleteRun(ctx context.Context, id int64, outputPath string) error {
	return s.finishRun(ctx, id, StatusCompleted, outputPath, "", "")
}

// FailRun marks a run failed or rejected with the error classification.
func (s *Store) FailRun(ctx context.Context, id int64, status Status, kind, message string) error {
	if status != StatusFailed && status != StatusRejected {
		return fmt.Errorf("fail run: unexpected status %q", status)
	}
	return s.finishRun(ctx, id, status, "", kind, message)
}

func (s *Store) finishRun(ctx context.Context, id int64, status Status, outputPath, kind, message string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs
         SET status = ?, output_path = ?, error_kind = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		status,
		nullableString(outputPath),
		nullableString(kind),
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("update run %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d is not running", ErrRunNotFound, id)
	}
	return nil
}

// GetRun fetches a run by identifier.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first, optionally filtered by status.
// A non-positive limit returns every row.
func (s *Store) ListRuns(ctx context.Context, limit int, statuses ...Status) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
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
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// AddTemplate records an extracted pose template. Re-extracting to the same
// path replaces the previous row.
func (s *Store) AddTemplate(ctx context.Context, tpl Template) (*Template, error) {
	if strings.TrimSpace(tpl.Path) == "" {
		return nil, errors.New("template path is empty")
	}
	created := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO templates (path, source_video, frames, fps, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             source_video = excluded.source_video,
             frames = excluded.frames,
             fps = excluded.fps,
             created_at = excluded.created_at`,
		tpl.Path,
		tpl.SourceVideo,
		tpl.Frames,
		tpl.FPS,
		created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	return s.FindTemplate(ctx, tpl.Path)
}

// FindTemplate returns the template stored at path, or nil when unknown.
func (s *Store) FindTemplate(ctx context.Context, path string) (*Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE path = ?`, path)
	tpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template: %w", err)
	}
	return tpl, nil
}

// ListTemplates returns every recorded template, newest first.
func (s *Store) ListTemplates(ctx context.Context) ([]*Template, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}
