// Package export renders recent analysis results as CSV for offline review.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mkaravel/cryptotrends/internal/domain"
)

// Sources are the read slices of the store the exporter needs.
type (
	TrendSource interface {
		Recent(ctx context.Context, since time.Time, limit int) ([]domain.TrendRecord, error)
	}
	SignalSource interface {
		Recent(ctx context.Context, since time.Time, limit int) ([]domain.SignalEvent, error)
	}
)

// Exporter streams CSV dumps of trends and signals.
type Exporter struct {
	trends  TrendSource
	signals SignalSource
}

// New builds an exporter over the two sources.
func New(trends TrendSource, signals SignalSource) *Exporter {
	return &Exporter{trends: trends, signals: signals}
}

// WriteTrends dumps trend records created since the cutoff.
func (e *Exporter) WriteTrends(ctx context.Context, w io.Writer, since time.Time, limit int) error {
	recs, err := e.trends.Recent(ctx, since, limit)
	if err != nil {
		return fmt.Errorf("export: load trends: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"crypto_id", "timeframe", "trend_type", "confidence",
		"start_time", "end_time", "price_change_percent", "created_at",
	}); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, r := range recs {
		row := []string{
			strconv.FormatInt(r.AssetID, 10),
			string(r.Timeframe),
			string(r.TrendType),
			formatFloat(r.Confidence),
			r.StartTime.UTC().Format(time.RFC3339),
			r.EndTime.UTC().Format(time.RFC3339),
			formatFloat(r.PriceChangePercent),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write trend row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSignals dumps signal events detected since the cutoff.
func (e *Exporter) WriteSignals(ctx context.Context, w io.Writer, since time.Time, limit int) error {
	events, err := e.signals.Recent(ctx, since, limit)
	if err != nil {
		return fmt.Errorf("export: load signals: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"crypto_id", "signal_type", "detected_at", "confidence",
		"trigger_price", "volume_spike_ratio",
	}); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, e := range events {
		row := []string{
			strconv.FormatInt(e.AssetID, 10),
			string(e.SignalType),
			e.DetectedAt.UTC().Format(time.RFC3339),
			formatFloat(e.Confidence),
			formatOptional(e.TriggerPrice),
			formatOptional(e.VolumeSpikeRatio),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write signal row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
