// Package trend classifies per-asset price direction over trailing windows.
// Two engines share the statistics: legacy mode works from price change and
// regression alone, advanced mode classifies from moving-average alignment
// and falls back to price change when the averages are unavailable.
package trend

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkaravel/cryptotrends/internal/domain"
	"github.com/mkaravel/cryptotrends/internal/indicators"
	"github.com/mkaravel/cryptotrends/pkg/formulas"
)

// Classification thresholds on price change percent.
const (
	sidewaysBand     = 1.0 // |change| below this is always sideways
	directionalBand  = 5.0 // |change| above this is directional
	legacyMinRSq     = 0.3 // legacy fallback needs this much fit quality
	maxVolPenalty    = 0.3
	legacyVolCeiling = 0.5
)

// ErrInsufficientData is returned when a window has fewer points than the
// timeframe's minimum.
var ErrInsufficientData = errors.New("trend: insufficient data points")

// Classifier turns a bar series into TrendRecords, one per timeframe.
type Classifier struct {
	mode domain.AnalysisMode
	log  zerolog.Logger
}

// NewClassifier builds a classifier for the given analysis mode.
func NewClassifier(mode domain.AnalysisMode, log zerolog.Logger) *Classifier {
	return &Classifier{
		mode: mode,
		log:  log.With().Str("component", "trend").Logger(),
	}
}

// Analyze classifies one asset over one timeframe. bars must be sorted by
// timestamp ascending; set carries indicators over the full series and may be
// nil in legacy mode. The window is bars with timestamp >= now - timeframe.
func (c *Classifier) Analyze(assetID int64, bars []domain.Bar, set *indicators.Set, tf domain.Timeframe, now time.Time) (*domain.TrendRecord, error) {
	cutoff := now.Add(-tf.Duration())
	window := sliceFrom(bars, cutoff)
	if len(window) < tf.MinPoints() {
		return nil, fmt.Errorf("%w: %d bars in %s window, need %d", ErrInsufficientData, len(window), tf, tf.MinPoints())
	}

	closes := make([]float64, len(window))
	for i, b := range window {
		closes[i] = b.Close
	}

	reg, err := formulas.RegressOverIndex(closes)
	if err != nil {
		return nil, fmt.Errorf("trend: regression over %s window: %w", tf, err)
	}

	first, last := closes[0], closes[len(closes)-1]
	if first == 0 {
		return nil, fmt.Errorf("trend: zero starting price in %s window", tf)
	}
	changePct := (last - first) / first * 100
	volCV := formulas.CoefficientOfVariation(closes)

	trendType, method := c.classify(changePct, reg, set)
	conf := c.confidence(trendType, method, reg, tf, volCV)

	rec := &domain.TrendRecord{
		AssetID:            assetID,
		Timeframe:          tf,
		TrendType:          trendType,
		Confidence:         conf,
		StartTime:          window[0].Timestamp,
		EndTime:            window[len(window)-1].Timestamp,
		PriceChangePercent: changePct,
		Metadata: map[string]any{
			"slope":          reg.Slope,
			"r_squared":      reg.RSquared,
			"p_value":        reg.PValue,
			"volatility":     volCV,
			"data_points":    len(window),
			"start_price":    first,
			"end_price":      last,
			"timeframe_days": tf.Days(),
			"method":         method,
		},
	}
	return rec, nil
}

// classification methods recorded in metadata.
const (
	methodPriceChange = "price_change"
	methodMAAlignment = "ma_alignment"
	methodRegression  = "regression_fallback"
)

func (c *Classifier) classify(changePct float64, reg formulas.RegressionResult, set *indicators.Set) (domain.TrendType, string) {
	if c.mode == domain.ModeAdvanced && set != nil {
		if t, ok := maAlignment(set); ok {
			return t, methodMAAlignment
		}
	}

	abs := changePct
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < sidewaysBand:
		return domain.TrendSideways, methodPriceChange
	case changePct > directionalBand:
		return domain.TrendUptrend, methodPriceChange
	case changePct < -directionalBand:
		return domain.TrendDowntrend, methodPriceChange
	}

	// 1%..5% moves are inconclusive. Legacy mode consults the regression;
	// advanced mode without usable MAs stays conservative.
	if c.mode == domain.ModeLegacy {
		if reg.RSquared >= legacyMinRSq {
			if reg.Slope > 0 {
				return domain.TrendUptrend, methodRegression
			}
			if reg.Slope < 0 {
				return domain.TrendDowntrend, methodRegression
			}
		}
		return domain.TrendSideways, methodRegression
	}
	return domain.TrendSideways, methodPriceChange
}

// maAlignment classifies from the latest price vs SMA(50) with EMA(20)
// confirmation. Reports ok=false when either average is still warming up.
func maAlignment(set *indicators.Set) (domain.TrendType, bool) {
	price, ok := set.Close.Last()
	if !ok {
		return domain.TrendSideways, false
	}
	sma, ok := set.SMA50.Last()
	if !ok {
		return domain.TrendSideways, false
	}
	ema, ok := set.EMA20.Last()
	if !ok {
		return domain.TrendSideways, false
	}

	switch {
	case price > sma && ema > sma:
		return domain.TrendUptrend, true
	case price < sma && ema < sma:
		return domain.TrendDowntrend, true
	default:
		return domain.TrendSideways, true
	}
}

func (c *Classifier) confidence(trendType domain.TrendType, method string, reg formulas.RegressionResult, tf domain.Timeframe, volCV float64) float64 {
	if method == methodRegression {
		// Legacy fallback keeps its historical formula.
		penalty := volCV / 100
		if penalty > legacyVolCeiling {
			penalty = legacyVolCeiling
		}
		return formulas.Clamp01(reg.RSquared * (1 - penalty))
	}

	sigBonus := 0.0
	switch {
	case reg.PValue < 0.05:
		sigBonus = 0.2
	case reg.PValue < 0.10:
		sigBonus = 0.1
	}
	volPenalty := volCV / 100
	if volPenalty > maxVolPenalty {
		volPenalty = maxVolPenalty
	}
	return formulas.Clamp01(reg.RSquared + tf.ConfidenceBonus() + sigBonus - volPenalty)
}

// sliceFrom returns the suffix of bars with timestamp >= cutoff.
func sliceFrom(bars []domain.Bar, cutoff time.Time) []domain.Bar {
	for i, b := range bars {
		if !b.Timestamp.Before(cutoff) {
			return bars[i:]
		}
	}
	return nil
}
