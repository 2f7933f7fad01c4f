// Package thresholds derives detection thresholds from recent market data
// instead of fixed constants. Percentile-based levels adapt to each asset's
// own distribution; ATR-based levels scale with the prevailing volatility
// regime.
package thresholds

import (
	"math"

	"github.com/mkaravel/cryptotrends/pkg/formulas"
)

// MinSamples is the minimum number of clean samples required before any
// percentile-derived threshold is trusted.
const MinSamples = 20

// MADToSigma converts a median absolute deviation to a standard deviation
// estimate under a normal assumption.
const MADToSigma = 1.4826

// Sensitivity tunes how far out in the distribution adaptive levels sit.
type Sensitivity string

const (
	Conservative Sensitivity = "conservative"
	Normal       Sensitivity = "normal"
	Aggressive   Sensitivity = "aggressive"
)

// VolatilityRegime buckets current ATR against its own recent history.
type VolatilityRegime string

const (
	RegimeLow    VolatilityRegime = "low"
	RegimeNormal VolatilityRegime = "normal"
	RegimeHigh   VolatilityRegime = "high"
)

// DefaultATRMultipliers are the baseline named multiples of current ATR.
var DefaultATRMultipliers = map[string]float64{
	"stop_loss":             2.0,
	"take_profit":           3.0,
	"significant_move":      1.5,
	"breakout_confirmation": 1.0,
	"trend_filter":          0.5,
}

// regimeMultipliers override the baseline per volatility regime. A low regime
// tightens stops and breakout confirmation; a high regime widens them.
var regimeMultipliers = map[VolatilityRegime]map[string]float64{
	RegimeLow: {
		"stop_loss":             1.5,
		"take_profit":           2.0,
		"breakout_confirmation": 0.75,
		"significant_move":      1.0,
	},
	RegimeNormal: {
		"stop_loss":             2.0,
		"take_profit":           3.0,
		"breakout_confirmation": 1.0,
		"significant_move":      1.5,
	},
	RegimeHigh: {
		"stop_loss":             3.0,
		"take_profit":           4.0,
		"breakout_confirmation": 1.5,
		"significant_move":      2.0,
	},
}

// clean drops NaN values, keeping order.
func clean(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// tail returns up to n trailing elements.
func tail(values []float64, n int) []float64 {
	if len(values) > n {
		return values[len(values)-n:]
	}
	return values
}

// PercentileThresholds maps each named percentile to its value over the
// series. Fewer than MinSamples clean samples yields an empty map.
func PercentileThresholds(values []float64, spec map[string]float64) map[string]float64 {
	cleaned := clean(values)
	if len(cleaned) < MinSamples {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(spec))
	for name, p := range spec {
		out[name] = formulas.Percentile(cleaned, p)
	}
	return out
}

// ATRThresholds scales the named multiplier set by the current ATR, with the
// regime overriding the baseline multipliers where it defines them.
func ATRThresholds(currentATR float64, regime VolatilityRegime) map[string]float64 {
	overrides := regimeMultipliers[regime]
	out := make(map[string]float64, len(DefaultATRMultipliers))
	for name, mult := range DefaultATRMultipliers {
		if ov, ok := overrides[name]; ok {
			mult = ov
		}
		out[name] = currentATR * mult
	}
	return out
}

// ClassifyVolatilityRegime compares current ATR against the 25th/75th
// percentiles of the trailing lookback (default 50 when lookback <= 0).
// Insufficient history reads as normal.
func ClassifyVolatilityRegime(currentATR float64, history []float64, lookback int) VolatilityRegime {
	if lookback <= 0 {
		lookback = 50
	}
	window := tail(clean(history), lookback)
	if len(window) < MinSamples || math.IsNaN(currentATR) {
		return RegimeNormal
	}
	switch {
	case currentATR < formulas.Percentile(window, 25):
		return RegimeLow
	case currentATR > formulas.Percentile(window, 75):
		return RegimeHigh
	default:
		return RegimeNormal
	}
}

// RSILevels are the oversold/overbought boundaries in use. Adaptive is false
// when the static fallback applied.
type RSILevels struct {
	Oversold   float64
	Overbought float64
	Adaptive   bool
}

// rsiPercentiles maps sensitivity to the (low, high) percentile pair used for
// the dynamic RSI levels.
var rsiPercentiles = map[Sensitivity][2]float64{
	Conservative: {20, 80},
	Normal:       {15, 85},
	Aggressive:   {10, 90},
}

// AdaptiveRSI derives oversold/overbought levels from up to 200 bars of RSI
// history. Results are clamped to sane bands so a trending market cannot push
// the levels into nonsense; insufficient history falls back to (30, 70).
func AdaptiveRSI(history []float64, sens Sensitivity) RSILevels {
	pair, ok := rsiPercentiles[sens]
	if !ok {
		pair = rsiPercentiles[Normal]
	}
	window := tail(clean(history), 200)
	if len(window) < MinSamples {
		return RSILevels{Oversold: 30, Overbought: 70}
	}
	oversold := clampRange(formulas.Percentile(window, pair[0]), 20, 40)
	overbought := clampRange(formulas.Percentile(window, pair[1]), 60, 80)
	return RSILevels{Oversold: oversold, Overbought: overbought, Adaptive: true}
}

// VolumeLevels describe what counts as unusual volume for one asset.
type VolumeLevels struct {
	Baseline       float64
	MAD            float64
	SpikeThreshold float64
	Percentiles    map[string]float64
}

// AdaptiveVolume computes a robust spike threshold over the last 30 volumes:
// baseline is the median, spread is the MAD scaled to sigma, and the spike
// level sits sensitivity sigmas above baseline.
func AdaptiveVolume(volumes []float64, sensitivity float64) VolumeLevels {
	window := tail(clean(volumes), 30)
	baseline := formulas.Median(window)
	mad := formulas.MAD(window, baseline)
	levels := VolumeLevels{
		Baseline:       baseline,
		MAD:            mad,
		SpikeThreshold: baseline + sensitivity*mad*MADToSigma,
		Percentiles: PercentileThresholds(window, map[string]float64{
			"high":      90,
			"very_high": 95,
			"extreme":   99,
		}),
	}
	return levels
}

// BandwidthPercentiles are the named percentile levels for Bollinger
// bandwidth classification.
var BandwidthPercentiles = map[string]float64{
	"extreme_squeeze":   5,
	"squeeze":           10,
	"normal_low":        25,
	"normal_high":       75,
	"expansion":         90,
	"extreme_expansion": 95,
}

// AdaptiveBandwidth computes the named bandwidth levels over the last 100
// bandwidth samples. Empty when history is insufficient.
func AdaptiveBandwidth(bandwidth []float64) map[string]float64 {
	return PercentileThresholds(tail(clean(bandwidth), 100), BandwidthPercentiles)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
