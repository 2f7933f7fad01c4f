// Package domain holds the core records the analysis pipeline produces and
// consumes. The types here are persistence-shaped but infrastructure-free.
package domain

import "time"

// Asset is one tracked cryptocurrency. Immutable within an analysis run.
type Asset struct {
	ID          int64   `db:"id" json:"id"`
	Symbol      string  `db:"symbol" json:"symbol"`
	Name        string  `db:"name" json:"name"`
	CoingeckoID *string `db:"coingecko_id" json:"coingecko_id,omitempty"`
	CMCID       *int64  `db:"cmc_id" json:"cmc_id,omitempty"`
	Rank        int     `db:"rank" json:"rank"`
	IsActive    bool    `db:"is_active" json:"is_active"`
}

// Bar is one time-indexed price/volume sample for an asset. OHLC columns may
// be absent in the upstream feed; consumers that need them approximate
// open=high=low=close.
type Bar struct {
	AssetID   int64     `db:"crypto_id" json:"crypto_id"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Close     float64   `db:"price_usd" json:"price_usd"`
	Volume    float64   `db:"volume_24h" json:"volume_24h"`

	Open *float64 `db:"open" json:"open,omitempty"`
	High *float64 `db:"high" json:"high,omitempty"`
	Low  *float64 `db:"low" json:"low,omitempty"`

	MarketCap        *float64 `db:"market_cap" json:"market_cap,omitempty"`
	PercentChange1h  *float64 `db:"percent_change_1h" json:"percent_change_1h,omitempty"`
	PercentChange24h *float64 `db:"percent_change_24h" json:"percent_change_24h,omitempty"`
	PercentChange7d  *float64 `db:"percent_change_7d" json:"percent_change_7d,omitempty"`
}

// TrendRecord classifies the direction of one asset over one timeframe.
// Uniqueness key: (AssetID, Timeframe, StartTime); re-analysis of the same
// window replaces the non-key columns.
type TrendRecord struct {
	ID                 int64          `db:"id" json:"id"`
	AssetID            int64          `db:"crypto_id" json:"crypto_id"`
	Timeframe          Timeframe      `db:"timeframe" json:"timeframe"`
	TrendType          TrendType      `db:"trend_type" json:"trend_type"`
	Confidence         float64        `db:"confidence" json:"confidence"`
	StartTime          time.Time      `db:"start_time" json:"start_time"`
	EndTime            time.Time      `db:"end_time" json:"end_time"`
	PriceChangePercent float64        `db:"price_change_percent" json:"price_change_percent"`
	Metadata           map[string]any `db:"-" json:"metadata"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
}

// SignalEvent is one discrete, dated recognition of a named pattern.
// The store treats these as append-only; the detector owns deduplication.
type SignalEvent struct {
	ID               int64          `db:"id" json:"id"`
	AssetID          int64          `db:"crypto_id" json:"crypto_id"`
	SignalType       SignalType     `db:"signal_type" json:"signal_type"`
	DetectedAt       time.Time      `db:"detected_at" json:"detected_at"`
	Confidence       float64        `db:"confidence" json:"confidence"`
	TriggerPrice     *float64       `db:"trigger_price" json:"trigger_price,omitempty"`
	VolumeSpikeRatio *float64       `db:"volume_spike_ratio" json:"volume_spike_ratio,omitempty"`
	Metadata         map[string]any `db:"-" json:"metadata"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// AnalysisRun records one orchestrator invocation. A run transitions from
// running to exactly one of completed/failed.
type AnalysisRun struct {
	ID               int64      `db:"id" json:"id"`
	RunType          string     `db:"run_type" json:"run_type"`
	Status           RunStatus  `db:"status" json:"status"`
	RecordsProcessed int        `db:"records_processed" json:"records_processed"`
	ErrorMessage     *string    `db:"error_message" json:"error_message,omitempty"`
	StartedAt        time.Time  `db:"started_at" json:"started_at"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Notes            *string    `db:"notes" json:"notes,omitempty"`
}

// Float64Ptr returns a pointer to v, for optional numeric columns.
func Float64Ptr(v float64) *float64 { return &v }
