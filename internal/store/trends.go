package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkaravel/cryptotrends/internal/domain"
)

// TrendRepo persists trend classifications.
type TrendRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Upsert writes one trend record. Re-analysis of the same (asset, timeframe,
// window start) replaces the non-key columns and bumps created_at.
func (r *TrendRepo) Upsert(ctx context.Context, rec *domain.TrendRecord) error {
	meta, err := marshalMeta(rec.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal trend metadata: %w", err)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO trend_analysis
			(crypto_id, timeframe, trend_type, confidence, start_time, end_time, price_change_percent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (crypto_id, timeframe, start_time) DO UPDATE SET
			trend_type           = EXCLUDED.trend_type,
			confidence           = EXCLUDED.confidence,
			end_time             = EXCLUDED.end_time,
			price_change_percent = EXCLUDED.price_change_percent,
			metadata             = EXCLUDED.metadata,
			created_at           = CURRENT_TIMESTAMP
		RETURNING id`,
		rec.AssetID, rec.Timeframe, rec.TrendType, rec.Confidence,
		rec.StartTime, rec.EndTime, rec.PriceChangePercent, meta,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("store: upsert trend for asset %d %s: %w", rec.AssetID, rec.Timeframe, err)
	}
	return nil
}

// Recent returns the newest trend records across assets, for export.
func (r *TrendRepo) Recent(ctx context.Context, since time.Time, limit int) ([]domain.TrendRecord, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	type row struct {
		domain.TrendRecord
		Meta []byte `db:"metadata"`
	}
	var rows []row
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, crypto_id, timeframe, trend_type, confidence,
		       start_time, end_time, price_change_percent, metadata, created_at
		FROM trend_analysis
		WHERE created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent trends: %w", err)
	}

	out := make([]domain.TrendRecord, len(rows))
	for i, rw := range rows {
		rec := rw.TrendRecord
		rec.Metadata = unmarshalMeta(rw.Meta)
		out[i] = rec
	}
	return out, nil
}
