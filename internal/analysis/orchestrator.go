// Package analysis orchestrates a full pipeline run: load assets, classify
// trends, detect signals, persist results, track the run record. Per-asset
// failures are logged and counted but never terminate the run.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkaravel/cryptotrends/internal/config"
	"github.com/mkaravel/cryptotrends/internal/domain"
	"github.com/mkaravel/cryptotrends/internal/indicators"
	"github.com/mkaravel/cryptotrends/internal/metrics"
	"github.com/mkaravel/cryptotrends/internal/signals"
	"github.com/mkaravel/cryptotrends/internal/trend"
)

// RunType recorded on analysis_runs rows.
const RunType = "trend_analysis"

// Store interfaces, narrowed to what the orchestrator needs so tests can
// fake them.
type (
	AssetSource interface {
		ListActive(ctx context.Context) ([]domain.Asset, error)
	}
	BarSource interface {
		ListSince(ctx context.Context, assetID int64, since time.Time) ([]domain.Bar, error)
	}
	TrendSink interface {
		Upsert(ctx context.Context, rec *domain.TrendRecord) error
	}
	SignalStore interface {
		Insert(ctx context.Context, e *domain.SignalEvent) error
		ListRecentForAsset(ctx context.Context, assetID int64, since time.Time) ([]domain.SignalEvent, error)
	}
	RunStore interface {
		Start(ctx context.Context, runType string) (int64, error)
		Complete(ctx context.Context, id int64, processed int, notes string) error
		Fail(ctx context.Context, id int64, message string) error
	}
)

// Summary reports what one run did.
type Summary struct {
	RunID     int64         `json:"run_id"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Signals   int           `json:"signals"`
	Duration  time.Duration `json:"duration"`
}

// Orchestrator wires the analytical core to the store.
type Orchestrator struct {
	assets  AssetSource
	bars    BarSource
	trends  TrendSink
	signals SignalStore
	runs    RunStore

	classifier *trend.Classifier
	detector   *signals.Detector

	cfg config.AnalysisConfig
	log zerolog.Logger
}

// New builds an orchestrator from the store interfaces and analysis config.
func New(assets AssetSource, bars BarSource, trends TrendSink, sigs SignalStore, runs RunStore, cfg config.AnalysisConfig, log zerolog.Logger) *Orchestrator {
	l := log.With().Str("component", "analysis").Logger()
	return &Orchestrator{
		assets:     assets,
		bars:       bars,
		trends:     trends,
		signals:    sigs,
		runs:       runs,
		classifier: trend.NewClassifier(cfg.Mode, l),
		detector:   signals.NewDetector(cfg.Mode, l),
		cfg:        cfg,
		log:        l,
	}
}

// Run executes one full analysis pass. The run record transitions from
// running to exactly one of completed/failed; cancellation marks it failed
// with reason "cancelled".
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()

	runID, err := o.runs.Start(ctx, RunType)
	if err != nil {
		return nil, fmt.Errorf("analysis: open run record: %w", err)
	}
	log := o.log.With().Int64("run_id", runID).Logger()

	assets, err := o.assets.ListActive(ctx)
	if err != nil {
		o.failRun(runID, fmt.Sprintf("load assets: %v", err))
		return nil, fmt.Errorf("analysis: load assets: %w", err)
	}
	log.Info().Int("assets", len(assets)).Str("mode", string(o.cfg.Mode)).Msg("analysis run started")

	var processed, skipped, failed, emitted atomic.Int64

	workers := o.workerCount(len(assets))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, asset := range assets {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(a domain.Asset) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			n, err := o.processAsset(ctx, a, log)
			switch {
			case errors.Is(err, errInsufficientBars):
				skipped.Add(1)
			case err != nil:
				failed.Add(1)
				metrics.AssetsFailed.Inc()
				log.Error().Err(err).Int64("asset_id", a.ID).Str("symbol", a.Symbol).Msg("asset analysis failed")
			default:
				processed.Add(1)
				emitted.Add(int64(n))
			}
		}(asset)
	}
	wg.Wait()

	summary := &Summary{
		RunID:     runID,
		Processed: int(processed.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
		Signals:   int(emitted.Load()),
		Duration:  time.Since(started),
	}
	metrics.RunDuration.Observe(summary.Duration.Seconds())

	if ctx.Err() != nil {
		o.failRun(runID, "cancelled")
		log.Warn().Msg("analysis run cancelled")
		return summary, ctx.Err()
	}

	notes := fmt.Sprintf("processed=%d skipped=%d failed=%d signals=%d",
		summary.Processed, summary.Skipped, summary.Failed, summary.Signals)
	if err := o.runs.Complete(ctx, runID, summary.Processed, notes); err != nil {
		// The record must not stay in running state forever.
		o.failRun(runID, fmt.Sprintf("close run record: %v", err))
		return summary, fmt.Errorf("analysis: close run record: %w", err)
	}
	log.Info().
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("signals", summary.Signals).
		Dur("duration", summary.Duration).
		Msg("analysis run completed")
	return summary, nil
}

// failRun updates the run record outside the (possibly cancelled) request
// context so the terminal state is still written.
func (o *Orchestrator) failRun(runID int64, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := o.runs.Fail(ctx, runID, message); err != nil {
		o.log.Error().Err(err).Int64("run_id", runID).Msg("could not mark run failed")
	}
}

func (o *Orchestrator) workerCount(assets int) int {
	n := o.cfg.WorkerLimit
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if assets > 0 && n > assets {
		n = assets
	}
	if n < 1 {
		n = 1
	}
	return n
}

var errInsufficientBars = errors.New("analysis: insufficient bars")

// processAsset runs the full pipeline for one asset and returns how many
// signals it emitted. All trend upserts complete before any signal insert.
func (o *Orchestrator) processAsset(ctx context.Context, asset domain.Asset, log zerolog.Logger) (int, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -o.cfg.LookbackDays)

	bars, err := o.bars.ListSince(ctx, asset.ID, since)
	if err != nil {
		return 0, fmt.Errorf("load bars: %w", err)
	}
	if len(bars) < signals.MinBars {
		log.Warn().
			Int64("asset_id", asset.ID).
			Str("symbol", asset.Symbol).
			Int("bars", len(bars)).
			Msg("skipping asset, not enough history")
		metrics.AssetsSkipped.Inc()
		return 0, errInsufficientBars
	}

	var set *indicators.Set
	if o.cfg.Mode == domain.ModeAdvanced {
		set = indicators.Compute(indicators.NewOHLCV(bars))
	}

	trends := make(map[domain.Timeframe]*domain.TrendRecord, len(domain.Timeframes))
	for _, tf := range domain.Timeframes {
		rec, err := o.classifier.Analyze(asset.ID, bars, set, tf, now)
		if err != nil {
			if errors.Is(err, trend.ErrInsufficientData) {
				log.Debug().Int64("asset_id", asset.ID).Str("timeframe", string(tf)).Msg("timeframe skipped")
				continue
			}
			log.Warn().Err(err).Int64("asset_id", asset.ID).Str("timeframe", string(tf)).Msg("trend analysis failed")
			continue
		}
		if err := o.trends.Upsert(ctx, rec); err != nil {
			return 0, fmt.Errorf("store trend %s: %w", tf, err)
		}
		metrics.TrendsStored.Inc()
		trends[tf] = rec
	}

	existing, err := o.signals.ListRecentForAsset(ctx, asset.ID, now.Add(-o.cfg.DedupLookback))
	if err != nil {
		return 0, fmt.Errorf("load recent signals: %w", err)
	}

	events := o.detector.Detect(asset.ID, bars, set, existing, now)
	if rev := trend.DetectReversal(trends); rev != nil && !hasRecentSameType(existing, events, rev) {
		events = append(events, *rev)
	}

	for i := range events {
		if err := o.signals.Insert(ctx, &events[i]); err != nil {
			return 0, fmt.Errorf("store %s signal: %w", events[i].SignalType, err)
		}
		metrics.RecordSignal(string(events[i].SignalType))
	}

	metrics.AssetsProcessed.Inc()
	return len(events), nil
}

// hasRecentSameType applies the 3-day dedup rule to the reversal signal
// against both persisted and freshly emitted events.
func hasRecentSameType(existing, emitted []domain.SignalEvent, candidate *domain.SignalEvent) bool {
	check := func(events []domain.SignalEvent) bool {
		for _, e := range events {
			if e.SignalType != candidate.SignalType {
				continue
			}
			delta := candidate.DetectedAt.Sub(e.DetectedAt)
			if delta < 0 {
				delta = -delta
			}
			if delta < 3*24*time.Hour {
				return true
			}
		}
		return false
	}
	return check(existing) || check(emitted)
}
