package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/price-collector/internal/schedule"
)

// List limits.
const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// timeFormat is fixed-width so timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNoRuns is returned by Latest when nothing has been recorded yet.
var ErrNoRuns = errors.New("ledger: no runs recorded")

// Ledger reads and writes collection runs.
type Ledger struct {
	db *sql.DB
}

// New creates a ledger on db. The collection_runs migration must be applied.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Record stores a finished cycle. Recording the same ID twice replaces the row.
func (l *Ledger) Record(ctx context.Context, c schedule.Cycle) error {
	var finished any
	if c.FinishedAt != nil {
		finished = c.FinishedAt.UTC().Format(timeFormat)
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO collection_runs
		 (id, target_date, started_at, finished_at, attempts, state, points_written, points_failed, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TargetDate,
		c.StartedAt.UTC().Format(timeFormat), finished,
		c.Attempts, string(c.State),
		c.PointsWritten, c.PointsFailed, c.LastError,
	)
	if err != nil {
		return fmt.Errorf("inserting collection run: %w", err)
	}
	return nil
}

// Latest returns the most recently started run.
func (l *Ledger) Latest(ctx context.Context) (schedule.Cycle, error) {
	runs, err := l.List(ctx, 1)
	if err != nil {
		return schedule.Cycle{}, err
	}
	if len(runs) == 0 {
		return schedule.Cycle{}, ErrNoRuns
	}
	return runs[0], nil
}

// List returns up to limit runs, most recent first. A non-positive limit
// selects DefaultLimit; limits above MaxLimit are clamped.
func (l *Ledger) List(ctx context.Context, limit int) ([]schedule.Cycle, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, target_date, started_at, finished_at, attempts, state, points_written, points_failed, last_error
		 FROM collection_runs
		 ORDER BY started_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying collection runs: %w", err)
	}
	defer rows.Close()

	runs := make([]schedule.Cycle, 0, limit)
	for rows.Next() {
		c, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collection runs: %w", err)
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (schedule.Cycle, error) {
	var (
		c        schedule.Cycle
		started  string
		finished sql.NullString
		state    string
	)
	if err := rows.Scan(&c.ID, &c.TargetDate, &started, &finished, &c.Attempts, &state,
		&c.PointsWritten, &c.PointsFailed, &c.LastError); err != nil {
		return c, fmt.Errorf("scanning collection run: %w", err)
	}

	c.State = schedule.State(state)

	t, err := time.Parse(timeFormat, started)
	if err != nil {
		return c, fmt.Errorf("parsing started_at of run %s: %w", c.ID, err)
	}
	c.StartedAt = t

	if finished.Valid {
		t, err := time.Parse(timeFormat, finished.String)
		if err != nil {
			return c, fmt.Errorf("parsing finished_at of run %s: %w", c.ID, err)
		}
		c.FinishedAt = &t
	}
	return c, nil
}
