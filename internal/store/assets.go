package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mkaravel/cryptotrends/internal/domain"
)

// AssetRepo reads the tracked cryptocurrency list.
type AssetRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// ListActive returns the active assets ordered by market rank.
func (r *AssetRepo) ListActive(ctx context.Context) ([]domain.Asset, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var assets []domain.Asset
	err := r.db.SelectContext(ctx, &assets, `
		SELECT id, name, symbol, coingecko_id, cmc_id, rank, is_active
		FROM cryptocurrencies
		WHERE is_active
		ORDER BY rank ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list active assets: %w", err)
	}
	return assets, nil
}

// BySymbol looks one asset up by its ticker symbol.
func (r *AssetRepo) BySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var asset domain.Asset
	err := r.db.GetContext(ctx, &asset, `
		SELECT id, name, symbol, coingecko_id, cmc_id, rank, is_active
		FROM cryptocurrencies
		WHERE UPPER(symbol) = UPPER($1)`, symbol)
	if err != nil {
		return nil, fmt.Errorf("store: asset by symbol %s: %w", symbol, err)
	}
	return &asset, nil
}
