package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mkaravel/cryptotrends/internal/domain"
)

// ResultsRepo serves the query interpreter's read models. Every query
// enriches rows with the asset's latest price via a lateral join.
type ResultsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// TrendResult is one row of an uptrend/downtrend query.
type TrendResult struct {
	Symbol             string    `db:"symbol" json:"symbol"`
	Name               string    `db:"name" json:"name"`
	TrendType          string    `db:"trend_type" json:"trend_type"`
	Timeframe          string    `db:"timeframe" json:"timeframe"`
	Confidence         float64   `db:"confidence" json:"confidence"`
	PriceChangePercent float64   `db:"price_change_percent" json:"price_change_percent"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	CurrentPrice       *float64  `db:"current_price" json:"current_price,omitempty"`
}

// SignalResult is one row of a signal-type query.
type SignalResult struct {
	Symbol           string    `db:"symbol" json:"symbol"`
	Name             string    `db:"name" json:"name"`
	SignalType       string    `db:"signal_type" json:"signal_type"`
	Confidence       float64   `db:"confidence" json:"confidence"`
	DetectedAt       time.Time `db:"detected_at" json:"detected_at"`
	TriggerPrice     *float64  `db:"trigger_price" json:"trigger_price,omitempty"`
	VolumeSpikeRatio *float64  `db:"volume_spike_ratio" json:"volume_spike_ratio,omitempty"`
	CurrentPrice     *float64  `db:"current_price" json:"current_price,omitempty"`
}

// VolatilityResult is one row of a high-volatility query, computed on the
// fly from the bar series.
type VolatilityResult struct {
	Symbol       string   `db:"symbol" json:"symbol"`
	Name         string   `db:"name" json:"name"`
	Volatility   float64  `db:"volatility" json:"volatility"`
	SampleCount  int      `db:"sample_count" json:"sample_count"`
	CurrentPrice *float64 `db:"current_price" json:"current_price,omitempty"`
}

// TrendingResult is one row of a trending query, ranked by analysis
// activity.
type TrendingResult struct {
	Symbol        string   `db:"symbol" json:"symbol"`
	Name          string   `db:"name" json:"name"`
	SignalCount   int      `db:"signal_count" json:"signal_count"`
	TrendCount    int      `db:"trend_count" json:"trend_count"`
	ActivityCount int      `db:"activity_count" json:"activity_count"`
	CurrentPrice  *float64 `db:"current_price" json:"current_price,omitempty"`
}

// PerformanceResult is one row of a performance ranking.
type PerformanceResult struct {
	Symbol        string   `db:"symbol" json:"symbol"`
	Name          string   `db:"name" json:"name"`
	PercentChange *float64 `db:"percent_change" json:"percent_change,omitempty"`
	CurrentPrice  *float64 `db:"current_price" json:"current_price,omitempty"`
}

const latestPriceJoin = `
	LEFT JOIN LATERAL (
		SELECT p.price_usd AS current_price
		FROM price_data p
		WHERE p.crypto_id = c.id
		ORDER BY p.timestamp DESC
		LIMIT 1
	) lp ON TRUE`

// symbolFilter matches when no symbols were requested or the asset is among
// them.
const symbolFilter = `(cardinality($%d::text[]) = 0 OR UPPER(c.symbol) = ANY($%d))`

// Trends returns trend records of the given type within the cutoff.
func (r *ResultsRepo) Trends(ctx context.Context, trendType domain.TrendType, timeframe domain.Timeframe, minConfidence float64, cutoff time.Time, symbols []string, limit int) ([]TrendResult, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT c.symbol, c.name, t.trend_type, t.timeframe, t.confidence,
		       t.price_change_percent, t.created_at, lp.current_price
		FROM trend_analysis t
		JOIN cryptocurrencies c ON c.id = t.crypto_id`+latestPriceJoin+`
		WHERE t.trend_type = $1
		  AND t.timeframe = $2
		  AND t.confidence >= $3
		  AND t.created_at >= $4
		  AND `+symbolFilter+`
		ORDER BY t.created_at DESC, t.confidence DESC
		LIMIT $6`, 5, 5)

	var out []TrendResult
	err := r.db.SelectContext(ctx, &out, query,
		trendType, timeframe, minConfidence, cutoff, pq.StringArray(upperAll(symbols)), limit)
	if err != nil {
		return nil, fmt.Errorf("store: %s trends: %w", trendType, err)
	}
	return out, nil
}

// Signals returns signal events of the given type within the cutoff.
// orderByRatio ranks by volume spike size instead of recency, for the
// volume_spike intent.
func (r *ResultsRepo) Signals(ctx context.Context, signalType domain.SignalType, minConfidence float64, cutoff time.Time, symbols []string, limit int, orderByRatio bool) ([]SignalResult, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	order := "s.detected_at DESC, s.confidence DESC"
	if orderByRatio {
		order = "s.volume_spike_ratio DESC NULLS LAST, s.detected_at DESC"
	}
	query := fmt.Sprintf(`
		SELECT c.symbol, c.name, s.signal_type, s.confidence, s.detected_at,
		       s.trigger_price, s.volume_spike_ratio, lp.current_price
		FROM signal_events s
		JOIN cryptocurrencies c ON c.id = s.crypto_id`+latestPriceJoin+`
		WHERE s.signal_type = $1
		  AND s.confidence >= $2
		  AND s.detected_at >= $3
		  AND `+symbolFilter+`
		ORDER BY `+order+`
		LIMIT $5`, 4, 4)

	var out []SignalResult
	err := r.db.SelectContext(ctx, &out, query,
		signalType, minConfidence, cutoff, pq.StringArray(upperAll(symbols)), limit)
	if err != nil {
		return nil, fmt.Errorf("store: %s signals: %w", signalType, err)
	}
	return out, nil
}

// HighVolatility ranks assets by coefficient of variation over the cutoff
// window. Requires at least 5 samples and volatility above 5 percent.
func (r *ResultsRepo) HighVolatility(ctx context.Context, cutoff time.Time, symbols []string, limit int) ([]VolatilityResult, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		WITH vol AS (
			SELECT p.crypto_id,
			       STDDEV(p.price_usd) / NULLIF(AVG(p.price_usd), 0) * 100 AS volatility,
			       COUNT(*) AS sample_count
			FROM price_data p
			WHERE p.timestamp >= $1
			GROUP BY p.crypto_id
			HAVING COUNT(*) >= 5
		)
		SELECT c.symbol, c.name, v.volatility, v.sample_count, lp.current_price
		FROM vol v
		JOIN cryptocurrencies c ON c.id = v.crypto_id`+latestPriceJoin+`
		WHERE v.volatility > 5
		  AND `+symbolFilter+`
		ORDER BY v.volatility DESC
		LIMIT $3`, 2, 2)

	var out []VolatilityResult
	err := r.db.SelectContext(ctx, &out, query, cutoff, pq.StringArray(upperAll(symbols)), limit)
	if err != nil {
		return nil, fmt.Errorf("store: high volatility: %w", err)
	}
	return out, nil
}

// Trending ranks assets by combined signal and trend activity within the
// cutoff.
func (r *ResultsRepo) Trending(ctx context.Context, cutoff time.Time, symbols []string, limit int) ([]TrendingResult, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT c.symbol, c.name,
		       COALESCE(s.cnt, 0) AS signal_count,
		       COALESCE(t.cnt, 0) AS trend_count,
		       COALESCE(s.cnt, 0) + COALESCE(t.cnt, 0) AS activity_count,
		       lp.current_price
		FROM cryptocurrencies c
		LEFT JOIN (
			SELECT crypto_id, COUNT(*) AS cnt FROM signal_events
			WHERE detected_at >= $1 GROUP BY crypto_id
		) s ON s.crypto_id = c.id
		LEFT JOIN (
			SELECT crypto_id, COUNT(*) AS cnt FROM trend_analysis
			WHERE created_at >= $1 GROUP BY crypto_id
		) t ON t.crypto_id = c.id`+latestPriceJoin+`
		WHERE c.is_active
		  AND COALESCE(s.cnt, 0) + COALESCE(t.cnt, 0) > 0
		  AND `+symbolFilter+`
		ORDER BY activity_count DESC
		LIMIT $3`, 2, 2)

	var out []TrendingResult
	err := r.db.SelectContext(ctx, &out, query, cutoff, pq.StringArray(upperAll(symbols)), limit)
	if err != nil {
		return nil, fmt.Errorf("store: trending: %w", err)
	}
	return out, nil
}

// performanceColumns whitelists the sortable percent-change columns.
var performanceColumns = map[string]string{
	"1h":  "percent_change_1h",
	"24h": "percent_change_24h",
	"7d":  "percent_change_7d",
}

// Performance ranks assets by their most recent percent change for the
// timeframe. Unknown timeframes fall back to 24h.
func (r *ResultsRepo) Performance(ctx context.Context, timeframe string, symbols []string, limit int) ([]PerformanceResult, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	col, ok := performanceColumns[timeframe]
	if !ok {
		col = performanceColumns["24h"]
	}

	query := fmt.Sprintf(`
		SELECT c.symbol, c.name, lp.percent_change AS percent_change, lp.current_price
		FROM cryptocurrencies c
		JOIN LATERAL (
			SELECT p.price_usd AS current_price, p.%s AS percent_change
			FROM price_data p
			WHERE p.crypto_id = c.id
			ORDER BY p.timestamp DESC
			LIMIT 1
		) lp ON TRUE
		WHERE c.is_active
		  AND lp.percent_change IS NOT NULL
		  AND `+symbolFilter+`
		ORDER BY lp.percent_change DESC
		LIMIT $2`, col, 1, 1)

	var out []PerformanceResult
	err := r.db.SelectContext(ctx, &out, query, pq.StringArray(upperAll(symbols)), limit)
	if err != nil {
		return nil, fmt.Errorf("store: performance %s: %w", timeframe, err)
	}
	return out, nil
}

func upperAll(symbols []string) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = strings.ToUpper(s)
	}
	return out
}
