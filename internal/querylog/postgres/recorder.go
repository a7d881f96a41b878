package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Nyyxoyy/flight-booking-data-analysis/internal/querylog"
)

// Recorder stores answer log entries in the answer_log table.
type Recorder struct {
	db *sql.DB
}

func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping answer log db: %w", err)
	}
	return nil
}

func (r *Recorder) Record(ctx context.Context, entry querylog.Entry) error {
	query := `
INSERT INTO answer_log (question, statement, outcome, stage, row_count, error_text, duration_ms)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`
	if _, err := r.db.ExecContext(ctx, query,
		entry.Question,
		entry.Statement,
		entry.Outcome,
		entry.Stage,
		entry.RowCount,
		entry.ErrorText,
		entry.DurationMs,
	); err != nil {
		return fmt.Errorf("insert answer log entry: %w", err)
	}
	return nil
}

func (r *Recorder) Recent(ctx context.Context, limit int) ([]querylog.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, question, statement, outcome, stage, row_count, COALESCE(error_text, ''), duration_ms, created_at
FROM answer_log
ORDER BY created_at DESC, id DESC
LIMIT $1`, querylog.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list answer log entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]querylog.Entry, 0)
	for rows.Next() {
		var e querylog.Entry
		if err := rows.Scan(&e.ID, &e.Question, &e.Statement, &e.Outcome, &e.Stage, &e.RowCount, &e.ErrorText, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer log rows: %w", err)
	}
	return entries, nil
}
