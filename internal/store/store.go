// Package store is the persistence layer: sqlx repositories over the
// PostgreSQL schema. Every repository call runs under the configured query
// timeout; metadata maps are stored as JSONB.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store bundles all repositories over one pool.
type Store struct {
	Assets    *AssetRepo
	Bars      *BarRepo
	Trends    *TrendRepo
	Signals   *SignalRepo
	Runs      *RunRepo
	QueryLogs *QueryLogRepo
	Results   *ResultsRepo
}

// New builds the repository set. timeout bounds every statement.
func New(db *sqlx.DB, timeout time.Duration) *Store {
	return &Store{
		Assets:    &AssetRepo{db: db, timeout: timeout},
		Bars:      &BarRepo{db: db, timeout: timeout},
		Trends:    &TrendRepo{db: db, timeout: timeout},
		Signals:   &SignalRepo{db: db, timeout: timeout},
		Runs:      &RunRepo{db: db, timeout: timeout},
		QueryLogs: &QueryLogRepo{db: db, timeout: timeout},
		Results:   &ResultsRepo{db: db, timeout: timeout},
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 30 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// marshalMeta renders a metadata map for a JSONB column. nil maps become
// SQL NULL.
func marshalMeta(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	return json.Marshal(meta)
}

// unmarshalMeta decodes a JSONB column, tolerating NULL.
func unmarshalMeta(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
