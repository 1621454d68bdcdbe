package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
)

// ErrRunNotFound is returned when a run ID has no ledger row.
var ErrRunNotFound = errors.New("run not found")

// Counts holds the per-outcome totals of a run.
type Counts struct {
	Cloned          int
	AlreadyPresent  int
	CloneFailed     int
	ExportSucceeded int
	ExportFailed    int
}

// Run is one ledger row in runs.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        RunStatus
	Total         int
	Counts        Counts
	ArtifactCount int
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Item is one ledger row in items.
type Item struct {
	RunID        string
	Position     int
	Ref          string
	Acquisition  string
	Export       string
	ErrorMessage string
	Excerpt      string
	Duration     time.Duration
	RecordedAt   time.Time
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// BeginRun inserts a running row. An empty ID is replaced with NewRunID and
// the effective ID is returned.
func (s *Store) BeginRun(ctx context.Context, id string, startedAt time.Time, total int) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = NewRunID()
	}
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	err := s.exec(ctx,
		`INSERT INTO runs (id, started_at, status, total) VALUES (?, ?, ?, ?)`,
		id, formatTime(startedAt), string(RunRunning), total,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordItem stores the result of one catalog entry. Recording the same
// position twice replaces the earlier row.
func (s *Store) RecordItem(ctx context.Context, item Item) error {
	if item.RecordedAt.IsZero() {
		item.RecordedAt = time.Now()
	}
	err := s.exec(ctx,
		`INSERT OR REPLACE INTO items
            (run_id, position, ref, acquisition, export, error_message, excerpt, duration_ms, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RunID, item.Position, item.Ref, item.Acquisition, item.Export,
		item.ErrorMessage, item.Excerpt, item.Duration.Milliseconds(), formatTime(item.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert item %s: %w", item.Ref, err)
	}
	return nil
}

// FinishRun stores the final status and counts of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunCompleted
	}
	ctx = ensureContext(ctx)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx,
			`UPDATE runs SET finished_at = ?, status = ?, total = ?, cloned = ?, already_present = ?,
                clone_failed = ?, export_succeeded = ?, export_failed = ?, artifact_count = ?
             WHERE id = ?`,
			formatTime(run.FinishedAt), string(run.Status), run.Total,
			run.Counts.Cloned, run.Counts.AlreadyPresent, run.Counts.CloneFailed,
			run.Counts.ExportSucceeded, run.Counts.ExportFailed, run.ArtifactCount,
			run.ID,
		)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update run %s: %w", run.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update run %s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, status, total, cloned, already_present,
    clone_failed, export_succeeded, export_failed, artifact_count`

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
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

// GetRun fetches a single run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, strings.TrimSpace(id))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// RunItems returns the recorded items of a run in catalog order.
func (s *Store) RunItems(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT run_id, position, ref, acquisition, export, error_message, excerpt, duration_ms, recorded_at
         FROM items WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item       Item
			durationMS int64
			recordedAt sql.NullString
		)
		if err := rows.Scan(&item.RunID, &item.Position, &item.Ref, &item.Acquisition, &item.Export,
			&item.ErrorMessage, &item.Excerpt, &durationMS, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.Duration = time.Duration(durationMS) * time.Millisecond
		item.RecordedAt = parseTime(recordedAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		startedAt  sql.NullString
		finishedAt sql.NullString
		status     string
	)
	err := row.Scan(&run.ID, &startedAt, &finishedAt, &status, &run.Total,
		&run.Counts.Cloned, &run.Counts.AlreadyPresent, &run.Counts.CloneFailed,
		&run.Counts.ExportSucceeded, &run.Counts.ExportFailed, &run.ArtifactCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	return run, nil
}
