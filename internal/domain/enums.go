package domain

import "time"

// Timeframe is a trailing look-back window for trend analysis.
type Timeframe string

const (
	Timeframe7d  Timeframe = "7d"
	Timeframe14d Timeframe = "14d"
	Timeframe30d Timeframe = "30d"
)

// Timeframes lists all trend timeframes in ascending order.
var Timeframes = []Timeframe{Timeframe7d, Timeframe14d, Timeframe30d}

// Duration returns the wall-clock span of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe7d:
		return 7 * 24 * time.Hour
	case Timeframe14d:
		return 14 * 24 * time.Hour
	case Timeframe30d:
		return 30 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// Days returns the timeframe length in days.
func (tf Timeframe) Days() int {
	return int(tf.Duration() / (24 * time.Hour))
}

// MinPoints is the minimum number of bars required to classify this window.
func (tf Timeframe) MinPoints() int {
	switch tf {
	case Timeframe7d:
		return 3
	case Timeframe14d:
		return 5
	case Timeframe30d:
		return 15
	}
	return 3
}

// ConfidenceBonus is the additive confidence weight for longer windows.
func (tf Timeframe) ConfidenceBonus() float64 {
	switch tf {
	case Timeframe7d:
		return 0.1
	case Timeframe14d:
		return 0.2
	case Timeframe30d:
		return 0.3
	}
	return 0
}

// Valid reports whether tf is one of the supported trend timeframes.
func (tf Timeframe) Valid() bool {
	switch tf {
	case Timeframe7d, Timeframe14d, Timeframe30d:
		return true
	}
	return false
}

// TrendType is the directional classification of a trend window.
type TrendType string

const (
	TrendUptrend   TrendType = "uptrend"
	TrendDowntrend TrendType = "downtrend"
	TrendSideways  TrendType = "sideways"
)

// Valid reports whether t is a known trend type.
func (t TrendType) Valid() bool {
	switch t {
	case TrendUptrend, TrendDowntrend, TrendSideways:
		return true
	}
	return false
}

// SignalType names a recognizable market pattern.
type SignalType string

const (
	SignalPumpAndDump     SignalType = "pump_and_dump"
	SignalVolumeAnomaly   SignalType = "volume_anomaly"
	SignalBottomedOut     SignalType = "bottomed_out"
	SignalParabolicRise   SignalType = "parabolic_rise"
	SignalCapitulation    SignalType = "capitulation_drop"
	SignalMACDBullish     SignalType = "macd_bullish"
	SignalMACDBearish     SignalType = "macd_bearish"
	SignalGoldenCross     SignalType = "golden_cross"
	SignalDeathCross      SignalType = "death_cross"
	SignalBBBreakout      SignalType = "bollinger_breakout"
	SignalRSIOversold     SignalType = "rsi_oversold"
	SignalRSIOverbought   SignalType = "rsi_overbought"
	SignalBullishReversal SignalType = "bullish_reversal"
	SignalBearishReversal SignalType = "bearish_reversal"
)

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// AnalysisMode selects between the legacy price-change engine and the
// indicator-driven advanced engine. The two keep deliberately separate
// threshold sets.
type AnalysisMode string

const (
	ModeLegacy   AnalysisMode = "legacy"
	ModeAdvanced AnalysisMode = "advanced"
)

// Valid reports whether m is a supported analysis mode.
func (m AnalysisMode) Valid() bool {
	return m == ModeLegacy || m == ModeAdvanced
}
