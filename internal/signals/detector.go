// Package signals scans bar series for discrete market events. Pattern
// detectors run over sliding windows of raw prices; indicator detectors run
// over the computed indicator set. Candidates then pass a quality gate,
// confidence scoring and deduplication before anything is emitted.
package signals

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkaravel/cryptotrends/internal/confidence"
	"github.com/mkaravel/cryptotrends/internal/domain"
	"github.com/mkaravel/cryptotrends/internal/indicators"
	"github.com/mkaravel/cryptotrends/pkg/formulas"
)

const (
	// MinBars is the minimum series length the detector operates on.
	MinBars = 14

	windowStep = 3

	// dedupWindow is the spacing below which two same-type signals are
	// considered duplicates.
	dedupWindow = 3 * 24 * time.Hour

	// weeklyLimit caps same-type emissions per asset per ISO week.
	weeklyLimit = 2
)

var windowSizes = []int{7, 14, 21}

// candidate is a signal before gating, carrying the numbers the quality gate
// and the confidence model need.
type candidate struct {
	event    domain.SignalEvent
	barIndex int

	pumpPct     float64
	dumpPct     float64
	volumeRatio float64
	downPct     float64
	recoveryPct float64
}

// Detector turns one asset's bar history into persisted-ready SignalEvents.
type Detector struct {
	mode domain.AnalysisMode
	log  zerolog.Logger
}

// NewDetector builds a detector for the given analysis mode.
func NewDetector(mode domain.AnalysisMode, log zerolog.Logger) *Detector {
	return &Detector{
		mode: mode,
		log:  log.With().Str("component", "signals").Logger(),
	}
}

// Detect runs the full pipeline for one asset. bars must be sorted ascending;
// set may be nil in legacy mode; existing carries recently persisted signals
// so dedup also works across runs. Fewer than MinBars bars is a no-op.
func (d *Detector) Detect(assetID int64, bars []domain.Bar, set *indicators.Set, existing []domain.SignalEvent, now time.Time) []domain.SignalEvent {
	if len(bars) < MinBars {
		return nil
	}

	cands := d.scanWindows(assetID, bars)
	if d.mode == domain.ModeAdvanced && set != nil {
		cands = append(cands, d.indicatorSignals(assetID, bars, set)...)
	}

	cands = applyQualityGate(cands)
	d.score(cands, set)

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].event.DetectedAt.Before(cands[j].event.DetectedAt)
	})

	kept := deduplicate(cands, existing)
	if len(kept) > 0 {
		d.log.Debug().
			Int64("asset_id", assetID).
			Int("candidates", len(cands)).
			Int("emitted", len(kept)).
			Msg("signal scan complete")
	}
	return kept
}

// scanWindows slides each window size across the series in windowStep
// increments and collects pattern detections.
func (d *Detector) scanWindows(assetID int64, bars []domain.Bar) []candidate {
	var out []candidate
	for _, w := range windowSizes {
		if len(bars) < w {
			continue
		}
		for start := 0; start+w <= len(bars); start += windowStep {
			win := bars[start : start+w]
			out = append(out, detectPatterns(assetID, win, start)...)
		}
	}
	return out
}

// score attaches confidence. With indicators available the multi-factor
// model replaces the detector's own heuristic, which is preserved in
// metadata as base_confidence.
func (d *Detector) score(cands []candidate, set *indicators.Set) {
	if set == nil {
		return
	}
	for i := range cands {
		c := &cands[i]
		idx := c.barIndex
		in := confidence.Inputs{
			ADX:                 seriesAt(set.ADX, idx),
			HistogramPercentile: histPercentileAt(set.MACDHist, idx),
			BandwidthPercentile: bandwidthPercentileAt(set.Bandwidth, idx),
			PValue:              confidence.ShortTermPValue(set.Close[:idx+1], 0),
		}
		b := confidence.Score(c.event.SignalType, in)

		if c.event.Metadata == nil {
			c.event.Metadata = map[string]any{}
		}
		c.event.Metadata["base_confidence"] = c.event.Confidence
		c.event.Metadata["confidence_breakdown"] = b
		c.event.Confidence = b.Final
	}
}

func seriesAt(s indicators.Series, i int) float64 {
	v, ok := s.At(i)
	if !ok {
		return math.NaN()
	}
	return v
}

// histPercentileAt ranks the histogram value at idx within its own history
// up to and including idx.
func histPercentileAt(hist indicators.Series, idx int) float64 {
	if hist.IsMissing(idx) {
		return math.NaN()
	}
	return confidence.HistogramPercentile(hist[:idx+1], hist[idx])
}

// bandwidthPercentileAt ranks the bandwidth at idx within the trailing 100
// samples ending at idx.
func bandwidthPercentileAt(bw indicators.Series, idx int) float64 {
	if bw.IsMissing(idx) {
		return math.NaN()
	}
	lo := idx + 1 - 100
	if lo < 0 {
		lo = 0
	}
	window := bw[lo : idx+1].Valid()
	if len(window) < 20 {
		return math.NaN()
	}
	return formulas.PercentileOfScore(window, bw[idx])
}

// applyQualityGate drops candidates whose trigger numbers fall short of the
// persistence bar. Indicator signals pass through.
func applyQualityGate(cands []candidate) []candidate {
	out := cands[:0]
	for _, c := range cands {
		if passesQualityGate(c) {
			out = append(out, c)
		}
	}
	return out
}

func passesQualityGate(c candidate) bool {
	switch c.event.SignalType {
	case domain.SignalPumpAndDump:
		return c.pumpPct >= 50 && c.dumpPct <= -30 && c.volumeRatio >= 3.0
	case domain.SignalVolumeAnomaly:
		return c.volumeRatio >= 5.0
	case domain.SignalBottomedOut:
		return c.downPct <= -15 && c.recoveryPct >= 10
	default:
		return true
	}
}

// deduplicate drops same-type candidates within dedupWindow of an already
// kept (or previously persisted) signal, then rate-limits each type to
// weeklyLimit per ISO week. cands must be sorted by DetectedAt ascending.
func deduplicate(cands []candidate, existing []domain.SignalEvent) []domain.SignalEvent {
	type key struct {
		t    domain.SignalType
		year int
		week int
	}

	keptTimes := make(map[domain.SignalType][]time.Time)
	weekCounts := make(map[key]int)
	for _, e := range existing {
		keptTimes[e.SignalType] = append(keptTimes[e.SignalType], e.DetectedAt)
		y, w := e.DetectedAt.ISOWeek()
		weekCounts[key{e.SignalType, y, w}]++
	}

	var out []domain.SignalEvent
	for _, c := range cands {
		dup := false
		for _, prior := range keptTimes[c.event.SignalType] {
			delta := c.event.DetectedAt.Sub(prior)
			if delta < 0 {
				delta = -delta
			}
			if delta < dedupWindow {
				dup = true
				break
			}
		}
		if dup {
			continue
		}

		y, w := c.event.DetectedAt.ISOWeek()
		k := key{c.event.SignalType, y, w}
		if weekCounts[k] >= weeklyLimit {
			continue
		}

		weekCounts[k]++
		keptTimes[c.event.SignalType] = append(keptTimes[c.event.SignalType], c.event.DetectedAt)
		out = append(out, c.event)
	}
	return out
}
