// Package confidence scores detected signals from the indicator state at
// detection time. Four components (trend strength, momentum confirmation,
// volatility context, statistical noise) are mapped to [0,1], combined by
// fixed weights, then adjusted per signal type.
package confidence

import (
	"math"

	"github.com/mkaravel/cryptotrends/internal/domain"
	"github.com/mkaravel/cryptotrends/pkg/formulas"
)

// Component weights. They sum to 1 so the raw score is already on [0,1]
// before post-adjustments.
const (
	WeightTrendStrength    = 0.40
	WeightMomentum         = 0.30
	WeightVolatility       = 0.20
	WeightStatisticalNoise = 0.10
)

// MinHistogramHistory is the minimum MACD histogram history required before
// a percentile rank is meaningful.
const MinHistogramHistory = 20

// DefaultPValueWindow is the close-count for the short-term significance
// check.
const DefaultPValueWindow = 5

// Inputs carries the indicator state at detection time. NaN marks a missing
// input; each component has a defined neutral value for it.
type Inputs struct {
	ADX                 float64
	HistogramPercentile float64
	BandwidthPercentile float64
	PValue              float64
}

// Breakdown is the full scoring trace attached to signal metadata.
type Breakdown struct {
	TrendStrength     float64 `json:"trend_strength"`
	Momentum          float64 `json:"momentum_confirmation"`
	VolatilityContext float64 `json:"volatility_context"`
	StatisticalNoise  float64 `json:"statistical_noise"`
	Raw               float64 `json:"raw_score"`
	Adjustment        float64 `json:"adjustment"`
	Final             float64 `json:"final_score"`
}

// Score evaluates the confidence model for one signal.
func Score(sigType domain.SignalType, in Inputs) Breakdown {
	b := Breakdown{
		TrendStrength:     trendStrength(in.ADX),
		Momentum:          momentumConfirmation(in.HistogramPercentile),
		VolatilityContext: volatilityContext(in.BandwidthPercentile, sigType),
		StatisticalNoise:  statisticalNoise(in.PValue),
	}

	b.Raw = WeightTrendStrength*b.TrendStrength +
		WeightMomentum*b.Momentum +
		WeightVolatility*b.VolatilityContext +
		WeightStatisticalNoise*b.StatisticalNoise

	b.Adjustment = adjustment(sigType, b)
	b.Final = formulas.Clamp01(b.Raw * b.Adjustment)
	return b
}

// trendStrength maps ADX to [0,1]. Below 20 there is no trend to confirm;
// 25..40 scales linearly into the strong-trend zone.
func trendStrength(adx float64) float64 {
	switch {
	case math.IsNaN(adx):
		return 0.5
	case adx < 20:
		return 0
	case adx < 25:
		return 0.25
	case adx < 40:
		return 0.50 + (adx-25)/30
	default:
		return 1.0
	}
}

// momentumConfirmation rewards a histogram value far out in its own
// distribution. Mid-range momentum confirms nothing.
func momentumConfirmation(pct float64) float64 {
	switch {
	case math.IsNaN(pct):
		return 0.5
	case pct < 20 || pct > 80:
		return 0.9
	case pct < 30 || pct > 70:
		return 0.7
	case pct < 40 || pct > 60:
		return 0.5
	default:
		return 0.3
	}
}

// breakoutSignals are scored with "tighter squeeze is better" volatility
// semantics.
var breakoutSignals = map[domain.SignalType]bool{
	domain.SignalBBBreakout: true,
}

// volatilityContext maps the bandwidth percentile to [0,1]. Breakout signals
// want a preceding squeeze; everything else prefers unremarkable volatility.
func volatilityContext(pct float64, sigType domain.SignalType) float64 {
	if math.IsNaN(pct) {
		return 0.5
	}
	if breakoutSignals[sigType] {
		switch {
		case pct < 10:
			return 1.0
		case pct < 25:
			return 0.8
		case pct < 50:
			return 0.5
		default:
			return 0.3
		}
	}
	switch {
	case pct >= 30 && pct <= 70:
		return 0.8
	case pct >= 20 && pct <= 80:
		return 0.6
	default:
		return 0.4
	}
}

// statisticalNoise maps the short-term regression p-value to [0,1].
func statisticalNoise(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 0.5
	case p < 0.01:
		return 1.0
	case p < 0.05:
		return 0.8
	case p < 0.10:
		return 0.6
	case p < 0.20:
		return 0.4
	default:
		return 0.2
	}
}

// adjustment applies signal-type specific multipliers on top of the weighted
// sum.
func adjustment(sigType domain.SignalType, b Breakdown) float64 {
	switch sigType {
	case domain.SignalGoldenCross, domain.SignalDeathCross:
		if b.TrendStrength > 0.7 {
			return 1.10
		}
	case domain.SignalMACDBullish, domain.SignalMACDBearish:
		if b.Momentum < 0.3 {
			return 0.80
		}
	case domain.SignalRSIOversold, domain.SignalRSIOverbought:
		if b.TrendStrength < 0.3 {
			return 0.70
		}
	}
	return 1.0
}

// HistogramPercentile ranks current within history on a 0-100 scale.
// Returns NaN when history is shorter than MinHistogramHistory.
func HistogramPercentile(history []float64, current float64) float64 {
	cleaned := make([]float64, 0, len(history))
	for _, v := range history {
		if !math.IsNaN(v) {
			cleaned = append(cleaned, v)
		}
	}
	if len(cleaned) < MinHistogramHistory {
		return math.NaN()
	}
	return formulas.PercentileOfScore(cleaned, current)
}

// ShortTermPValue regresses the trailing window of closes against their
// index and returns the two-sided p-value. Under-length input returns NaN.
func ShortTermPValue(closes []float64, window int) float64 {
	if window <= 0 {
		window = DefaultPValueWindow
	}
	if len(closes) < window {
		return math.NaN()
	}
	res, err := formulas.RegressOverIndex(closes[len(closes)-window:])
	if err != nil {
		return math.NaN()
	}
	return res.PValue
}
