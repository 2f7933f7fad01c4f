package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkaravel/cryptotrends/internal/domain"
)

// BarRepo reads price history.
type BarRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// ListSince returns one asset's bars from the cutoff onward, oldest first.
func (r *BarRepo) ListSince(ctx context.Context, assetID int64, since time.Time) ([]domain.Bar, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var bars []domain.Bar
	err := r.db.SelectContext(ctx, &bars, `
		SELECT crypto_id, timestamp, price_usd, volume_24h,
		       market_cap, percent_change_1h, percent_change_24h, percent_change_7d
		FROM price_data
		WHERE crypto_id = $1 AND timestamp >= $2
		ORDER BY timestamp ASC`, assetID, since)
	if err != nil {
		return nil, fmt.Errorf("store: bars for asset %d: %w", assetID, err)
	}
	return bars, nil
}
