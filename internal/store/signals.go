package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkaravel/cryptotrends/internal/domain"
)

// SignalRepo persists detected signal events. The table is append-only;
// uniqueness is the detector's responsibility.
type SignalRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Insert writes one signal event.
func (r *SignalRepo) Insert(ctx context.Context, e *domain.SignalEvent) error {
	meta, err := marshalMeta(e.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal signal metadata: %w", err)
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO signal_events
			(crypto_id, signal_type, detected_at, confidence, trigger_price, volume_spike_ratio, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		e.AssetID, e.SignalType, e.DetectedAt, e.Confidence,
		e.TriggerPrice, e.VolumeSpikeRatio, meta,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("store: insert %s signal for asset %d: %w", e.SignalType, e.AssetID, err)
	}
	return nil
}

// ListRecentForAsset returns one asset's signals detected since the cutoff,
// oldest first. The detector feeds these into cross-run deduplication.
func (r *SignalRepo) ListRecentForAsset(ctx context.Context, assetID int64, since time.Time) ([]domain.SignalEvent, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	type row struct {
		domain.SignalEvent
		Meta []byte `db:"metadata"`
	}
	var rows []row
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, crypto_id, signal_type, detected_at, confidence,
		       trigger_price, volume_spike_ratio, metadata, created_at
		FROM signal_events
		WHERE crypto_id = $1 AND detected_at >= $2
		ORDER BY detected_at ASC`, assetID, since)
	if err != nil {
		return nil, fmt.Errorf("store: recent signals for asset %d: %w", assetID, err)
	}

	out := make([]domain.SignalEvent, len(rows))
	for i, rw := range rows {
		e := rw.SignalEvent
		e.Metadata = unmarshalMeta(rw.Meta)
		out[i] = e
	}
	return out, nil
}

// Recent returns the newest signals across assets, for export.
func (r *SignalRepo) Recent(ctx context.Context, since time.Time, limit int) ([]domain.SignalEvent, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	type row struct {
		domain.SignalEvent
		Meta []byte `db:"metadata"`
	}
	var rows []row
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, crypto_id, signal_type, detected_at, confidence,
		       trigger_price, volume_spike_ratio, metadata, created_at
		FROM signal_events
		WHERE detected_at >= $1
		ORDER BY detected_at DESC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent signals: %w", err)
	}

	out := make([]domain.SignalEvent, len(rows))
	for i, rw := range rows {
		e := rw.SignalEvent
		e.Metadata = unmarshalMeta(rw.Meta)
		out[i] = e
	}
	return out, nil
}
