package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkaravel/cryptotrends/internal/domain"
)

// RunRepo tracks analysis run lifecycle records.
type RunRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Start opens a run record in running state and returns its id.
func (r *RunRepo) Start(ctx context.Context, runType string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO analysis_runs (run_type, status)
		VALUES ($1, $2)
		RETURNING id`, runType, domain.RunRunning).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: start %s run: %w", runType, err)
	}
	return id, nil
}

// Complete marks a run finished with its processed count.
func (r *RunRepo) Complete(ctx context.Context, id int64, processed int, notes string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		UPDATE analysis_runs
		SET status = $2, records_processed = $3, notes = NULLIF($4, ''), completed_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, domain.RunCompleted, processed, notes)
	if err != nil {
		return fmt.Errorf("store: complete run %d: %w", id, err)
	}
	return nil
}

// Fail marks a run failed with the terminal error message.
func (r *RunRepo) Fail(ctx context.Context, id int64, message string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		UPDATE analysis_runs
		SET status = $2, error_message = $3, completed_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, domain.RunFailed, message)
	if err != nil {
		return fmt.Errorf("store: fail run %d: %w", id, err)
	}
	return nil
}

// Recent lists the newest run records.
func (r *RunRepo) Recent(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var runs []domain.AnalysisRun
	err := r.db.SelectContext(ctx, &runs, `
		SELECT id, run_type, status, records_processed, error_message, started_at, completed_at, notes
		FROM analysis_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent runs: %w", err)
	}
	return runs, nil
}
