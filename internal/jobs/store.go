package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the job database under the state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.JobsDatabasePath())
}

// OpenPath opens the database at dbPath, creating the schema when needed.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
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

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts job in the allocated state. An empty ID is replaced with a
// random UUID.
func (s *Store) Create(ctx context.Context, job Job) (*Job, error) {
	if strings.TrimSpace(job.ID) == "" {
		job.ID = uuid.NewString()
	}
	now := timestamp(time.Now())
	if err := s.execWithoutResultRetry(ctx,
		`INSERT INTO jobs (
            id, status, segment_path, audio_path, output_path, gender, session_dir,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		StatusAllocated,
		nullableString(job.SegmentPath),
		nullableString(job.AudioPath),
		nullableString(job.OutputPath),
		nullableString(job.Gender),
		nullableString(job.SessionDir),
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, job.ID)
}

// Get fetches a job by id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Active returns jobs that still hold a library segment.
func (s *Store) Active(ctx context.Context) ([]*Job, error) {
	return s.List(ctx, StatusAllocated, StatusRendering, StatusRendered)
}

// Counts tallies jobs per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

// MarkRendering records that encoding started.
func (s *Store) MarkRendering(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusRendering, "")
}

// MarkRendered records a successful render.
func (s *Store) MarkRendered(ctx context.Context, id string, info RenderInfo) error {
	return s.transition(ctx, id, StatusRendered,
		`output_path = ?, output_bytes = ?, duration_ms = ?, background_start_ms = ?, speed_factor = ?, subtitle_events = ?`,
		nullableString(info.OutputPath),
		info.OutputBytes,
		info.Duration.Milliseconds(),
		info.BackgroundStart.Milliseconds(),
		info.SpeedFactor,
		info.SubtitleEvents,
	)
}

// MarkConsumed records that the segment was deleted after delivery.
func (s *Store) MarkConsumed(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusConsumed, "")
}

// MarkFailed stores the failure classification and message.
func (s *Store) MarkFailed(ctx context.Context, id string, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	return s.transition(ctx, id, StatusFailed,
		`error_kind = ?, error_message = ?`,
		nullableString(services.Kind(cause)),
		nullableString(message),
	)
}

// MarkReleased records that the segment was returned to the library unused.
func (s *Store) MarkReleased(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusReleased, "")
}

// Clear deletes jobs in the given statuses (terminal statuses when none are
// given) and returns the number removed.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusConsumed, StatusFailed, StatusReleased}
	}
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, status)
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status IN (`+makePlaceholders(len(statuses))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) transition(ctx context.Context, id string, to Status, sets string, setArgs ...any) error {
	from := transitions[to]
	query := `UPDATE jobs SET status = ?, updated_at = ?`
	if sets != "" {
		query += `, ` + sets
	}
	query += ` WHERE id = ? AND status IN (` + makePlaceholders(len(from)) + `)`

	args := make([]any, 0, 3+len(setArgs)+len(from))
	args = append(args, to, timestamp(time.Now()))
	args = append(args, setArgs...)
	args = append(args, id)
	for _, status := range from {
		args = append(args, status)
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s to %s: %w", id, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %s to %s: %w", id, to, err)
	}
	if affected > 0 {
		return nil
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s, cannot become %s", ErrInvalidTransition, id, current.Status, to)
}
