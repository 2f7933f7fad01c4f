package thresholds

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestPercentileThresholdsRequiresMinSamples(t *testing.T) {
	spec := map[string]float64{"mid": 50}

	assert.Empty(t, PercentileThresholds(sequence(19), spec))

	got := PercentileThresholds(sequence(20), spec)
	require.Contains(t, got, "mid")
	assert.InDelta(t, 10.5, got["mid"], 1e-9)
}

func TestPercentileThresholdsIgnoresNaN(t *testing.T) {
	values := sequence(20)
	values = append(values, math.NaN(), math.NaN())
	got := PercentileThresholds(values, map[string]float64{"p100": 100})
	assert.Equal(t, 20.0, got["p100"])

	// 19 clean values plus NaN padding still falls short.
	short := append(sequence(19), math.NaN(), math.NaN())
	assert.Empty(t, PercentileThresholds(short, map[string]float64{"mid": 50}))
}

func TestATRThresholdsByRegime(t *testing.T) {
	atr := 10.0

	normal := ATRThresholds(atr, RegimeNormal)
	assert.Equal(t, 20.0, normal["stop_loss"])
	assert.Equal(t, 30.0, normal["take_profit"])
	assert.Equal(t, 15.0, normal["significant_move"])
	assert.Equal(t, 10.0, normal["breakout_confirmation"])
	assert.Equal(t, 5.0, normal["trend_filter"])

	low := ATRThresholds(atr, RegimeLow)
	assert.Equal(t, 15.0, low["stop_loss"])
	assert.Equal(t, 7.5, low["breakout_confirmation"])
	// trend_filter has no regime override, baseline applies.
	assert.Equal(t, 5.0, low["trend_filter"])

	high := ATRThresholds(atr, RegimeHigh)
	assert.Equal(t, 30.0, high["stop_loss"])
	assert.Equal(t, 40.0, high["take_profit"])
	assert.Equal(t, 15.0, high["breakout_confirmation"])
}

func TestClassifyVolatilityRegime(t *testing.T) {
	history := sequence(50) // 1..50, p25 ~ 13.25, p75 ~ 37.75

	assert.Equal(t, RegimeLow, ClassifyVolatilityRegime(5, history, 50))
	assert.Equal(t, RegimeNormal, ClassifyVolatilityRegime(25, history, 50))
	assert.Equal(t, RegimeHigh, ClassifyVolatilityRegime(45, history, 50))

	assert.Equal(t, RegimeNormal, ClassifyVolatilityRegime(45, sequence(5), 50))
	assert.Equal(t, RegimeNormal, ClassifyVolatilityRegime(math.NaN(), history, 50))
}

func TestClassifyVolatilityRegimeUsesTrailingLookback(t *testing.T) {
	// Old history is calm, recent history is wild; only the trailing window
	// should matter.
	history := make([]float64, 0, 100)
	for i := 0; i < 50; i++ {
		history = append(history, 1)
	}
	history = append(history, sequence(50)...)

	assert.Equal(t, RegimeLow, ClassifyVolatilityRegime(5, history, 50))
}

func TestAdaptiveRSIFallback(t *testing.T) {
	levels := AdaptiveRSI(sequence(10), Normal)
	assert.False(t, levels.Adaptive)
	assert.Equal(t, 30.0, levels.Oversold)
	assert.Equal(t, 70.0, levels.Overbought)
}

func TestAdaptiveRSIClamps(t *testing.T) {
	// RSI pinned high: raw percentiles exceed the clamp band on both ends.
	high := make([]float64, 200)
	for i := range high {
		high[i] = 85 + float64(i%10)
	}
	levels := AdaptiveRSI(high, Normal)
	require.True(t, levels.Adaptive)
	assert.Equal(t, 40.0, levels.Oversold)
	assert.Equal(t, 80.0, levels.Overbought)

	low := make([]float64, 200)
	for i := range low {
		low[i] = 5 + float64(i%10)
	}
	levels = AdaptiveRSI(low, Normal)
	assert.Equal(t, 20.0, levels.Oversold)
	assert.Equal(t, 60.0, levels.Overbought)
}

func TestAdaptiveRSISensitivityOrdering(t *testing.T) {
	history := make([]float64, 200)
	for i := range history {
		history[i] = 30 + 40*float64(i%100)/99 // spread across 30..70
	}
	cons := AdaptiveRSI(history, Conservative)
	norm := AdaptiveRSI(history, Normal)
	aggr := AdaptiveRSI(history, Aggressive)

	assert.GreaterOrEqual(t, cons.Oversold, norm.Oversold)
	assert.GreaterOrEqual(t, norm.Oversold, aggr.Oversold)
	assert.LessOrEqual(t, cons.Overbought, norm.Overbought)
	assert.LessOrEqual(t, norm.Overbought, aggr.Overbought)
}

func TestAdaptiveVolume(t *testing.T) {
	volumes := make([]float64, 30)
	for i := range volumes {
		volumes[i] = 100
	}
	volumes[29] = 110

	levels := AdaptiveVolume(volumes, 3)
	assert.Equal(t, 100.0, levels.Baseline)
	assert.Equal(t, 0.0, levels.MAD)
	assert.Equal(t, 100.0, levels.SpikeThreshold)
	require.Contains(t, levels.Percentiles, "extreme")
	assert.InDelta(t, 110.0, levels.Percentiles["extreme"], 5)
}

func TestAdaptiveVolumeSpreadsWithMAD(t *testing.T) {
	volumes := []float64{
		90, 110, 95, 105, 100, 92, 108, 97, 103, 100,
		91, 109, 96, 104, 100, 93, 107, 98, 102, 100,
		94, 106, 99, 101, 100, 90, 110, 95, 105, 100,
	}
	levels := AdaptiveVolume(volumes, 3)
	assert.Equal(t, 100.0, levels.Baseline)
	assert.Greater(t, levels.MAD, 0.0)
	assert.InDelta(t, 100+3*levels.MAD*MADToSigma, levels.SpikeThreshold, 1e-9)
}

func TestAdaptiveBandwidth(t *testing.T) {
	assert.Empty(t, AdaptiveBandwidth(sequence(10)))

	levels := AdaptiveBandwidth(sequence(100))
	require.Contains(t, levels, "squeeze")
	require.Contains(t, levels, "extreme_expansion")
	assert.Less(t, levels["extreme_squeeze"], levels["squeeze"])
	assert.Less(t, levels["squeeze"], levels["normal_low"])
	assert.Less(t, levels["normal_high"], levels["expansion"])
	assert.Less(t, levels["expansion"], levels["extreme_expansion"])
}
