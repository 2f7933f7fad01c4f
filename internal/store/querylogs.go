package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// QueryLog is one natural-language query audit entry.
type QueryLog struct {
	QueryText        string
	IntentType       string
	IntentConfidence float64
	ResultCount      int
	ExecutionTimeMS  int64
	Metadata         map[string]any
}

// QueryLogRepo persists query audit entries. Callers treat failures as
// best-effort; a lost log line never fails the request.
type QueryLogRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Insert writes one audit entry.
func (r *QueryLogRepo) Insert(ctx context.Context, l QueryLog) error {
	meta, err := marshalMeta(l.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal query log metadata: %w", err)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO query_logs
			(query_text, intent_type, intent_confidence, result_count, execution_time_ms, metadata)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)`,
		l.QueryText, l.IntentType, l.IntentConfidence, l.ResultCount, l.ExecutionTimeMS, meta)
	if err != nil {
		return fmt.Errorf("store: insert query log: %w", err)
	}
	return nil
}
