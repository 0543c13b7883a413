package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
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

const timeLayout = time.RFC3339Nano

// Open initializes or connects to the queue database at dbPath. The parent
// directory must exist.
func Open(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, errors.New("queue: empty database path")
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

// OpenInDir opens the queue database inside dir using the standard filename.
func OpenInDir(dir string) (*Store, error) {
	return Open(filepath.Join(dir, "queue.db"))
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Enqueue inserts a new pending job and returns it.
func (s *Store) Enqueue(ctx context.Context, sourcePath, formats, languages, styleName string, burnIn bool) (*Item, error) {
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return nil, errors.New("queue: empty source path")
	}
	now := time.Now().UTC()
	jobID := uuid.NewString()
	res, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (job_id, source_path, formats, languages, style_name, burn_in, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		jobID, sourcePath, formats, languages, styleName, boolToInt(burnIn), string(StatusPending),
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("enqueue id: %w", err)
	}
	return &Item{
		ID:         id,
		JobID:      jobID,
		SourcePath: sourcePath,
		Formats:    formats,
		Languages:  languages,
		StyleName:  styleName,
		BurnIn:     burnIn,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ClaimNext atomically moves the oldest pending job into the probing state
// and returns it. It returns nil when the queue is empty.
func (s *Store) ClaimNext(ctx context.Context) (*Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		selectColumns+` FROM jobs WHERE status = ? ORDER BY id LIMIT 1`, string(StatusPending))
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim scan: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(StatusProbing), now.Format(timeLayout), item.ID, string(StatusPending)); err != nil {
		return nil, fmt.Errorf("claim update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim commit: %w", err)
	}
	item.Status = StatusProbing
	item.UpdatedAt = now
	return item, nil
}

// SetStatus records a lifecycle transition.
func (s *Store) SetStatus(ctx context.Context, jobID string, status Status) error {
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("queue: unknown status %q", status)
	}
	now := time.Now().UTC().Format(timeLayout)
	completed := ""
	if status.Terminal() {
		completed = now
	}
	_, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, updated_at = ?, completed_at = CASE WHEN ? != '' THEN ? ELSE completed_at END WHERE job_id = ?`,
		string(status), now, completed, completed, jobID)
	return err
}

// MarkCompleted finalizes a job with its result manifest and warnings.
func (s *Store) MarkCompleted(ctx context.Context, jobID, resultJSON, warnings string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, result_json = ?, warnings = ?, error_text = '', updated_at = ?, completed_at = ? WHERE job_id = ?`,
		string(StatusCompleted), resultJSON, warnings, now, now, jobID)
	return err
}

// MarkFailed finalizes a job with its error text; partial results and
// warnings are preserved for diagnosis.
func (s *Store) MarkFailed(ctx context.Context, jobID, errorText, resultJSON, warnings string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, error_text = ?, result_json = ?, warnings = ?, updated_at = ?, completed_at = ? WHERE job_id = ?`,
		string(StatusFailed), errorText, resultJSON, warnings, now, now, jobID)
	return err
}

// Get fetches one job by its public identifier.
func (s *Store) Get(ctx context.Context, jobID string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM jobs WHERE job_id = ?`, jobID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// List returns jobs, newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := selectColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Clear deletes jobs in terminal states; with all set it empties the queue.
func (s *Store) Clear(ctx context.Context, all bool) (int64, error) {
	query := `DELETE FROM jobs WHERE status IN (?, ?)`
	args := []any{string(StatusCompleted), string(StatusFailed)}
	if all {
		query = `DELETE FROM jobs`
		args = nil
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuck returns jobs abandoned mid-processing (a previous run that
// crashed) to pending so the next worker picks them up.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	placeholders := make([]string, 0, len(processingStatuses))
	args := make([]any, 0, len(processingStatuses)+1)
	args = append(args, string(StatusPending), time.Now().UTC().Format(timeLayout))
	for status := range processingStatuses {
		placeholders = append(placeholders, "?")
		args = append(args, string(status))
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE status IN (`+strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("reset stuck: %w", err)
	}
	return res.RowsAffected()
}

// Health aggregates queue counts per lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("health scan: %w", err)
		}
		summary.Total += count
		switch {
		case Status(status) == StatusPending:
			summary.Pending += count
		case Status(status) == StatusCompleted:
			summary.Completed += count
		case Status(status) == StatusFailed:
			summary.Failed += count
		case Status(status).IsProcessing():
			summary.Processing += count
		}
	}
	return summary, rows.Err()
}

const selectColumns = `SELECT id, job_id, source_path, formats, languages, style_name, burn_in, status, error_text, warnings, result_json, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var burnIn int
	var status, createdAt, updatedAt, completedAt string
	if err := row.Scan(&item.ID, &item.JobID, &item.SourcePath, &item.Formats, &item.Languages,
		&item.StyleName, &burnIn, &status, &item.ErrorText, &item.Warnings, &item.ResultJSON,
		&createdAt, &updatedAt, &completedAt); err != nil {
		return nil, err
	}
	item.BurnIn = burnIn != 0
	item.Status = Status(status)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	item.CompletedAt = parseTime(completedAt)
	return &item, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
