package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// Default periods used by the analysis engine.
const (
	FastSMAPeriod   = 50
	SlowSMAPeriod   = 200
	TrendSMAPeriod  = 50
	AlignEMAPeriod  = 20
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerK      = 2.0
	RSIPeriod       = 14
	ATRPeriod       = 14
	ADXPeriod       = 14
)

// SMA computes the simple moving average of close over period.
func SMA(close []float64, period int) Series {
	if len(close) < period || period < 1 {
		return missing(len(close))
	}
	return maskWarmup(talib.Sma(close, period), period-1)
}

// EMA computes the exponential moving average of close over period.
func EMA(close []float64, period int) Series {
	if len(close) < period || period < 1 {
		return missing(len(close))
	}
	return maskWarmup(talib.Ema(close, period), period-1)
}

// MACD returns the MACD line, signal line and histogram for the given spans.
func MACD(close []float64, fast, slow, signal int) (line, sig, hist Series) {
	if len(close) < slow+signal-1 {
		n := len(close)
		return missing(n), missing(n), missing(n)
	}
	l, s, h := talib.Macd(close, fast, slow, signal)
	// talib's MACD warm-up covers slow+signal-2 bars for all three outputs.
	lookback := slow + signal - 2
	return maskWarmup(l, lookback), maskWarmup(s, lookback), maskWarmup(h, lookback)
}

// Bollinger returns the lower/middle/upper bands plus the normalized
// bandwidth (upper-lower)/middle.
func Bollinger(close []float64, period int, k float64) (lower, middle, upper, bandwidth Series) {
	n := len(close)
	if n < period || period < 1 {
		return missing(n), missing(n), missing(n), missing(n)
	}
	u, m, l := talib.BBands(close, period, k, k, talib.SMA)
	lookback := period - 1
	upper = maskWarmup(u, lookback)
	middle = maskWarmup(m, lookback)
	lower = maskWarmup(l, lookback)

	bandwidth = make(Series, n)
	for i := 0; i < n; i++ {
		if upper.IsMissing(i) || middle.IsMissing(i) || lower.IsMissing(i) || middle[i] == 0 {
			bandwidth[i] = math.NaN()
			continue
		}
		bandwidth[i] = (upper[i] - lower[i]) / middle[i]
	}
	return lower, middle, upper, bandwidth
}

// RSI computes the Wilder-smoothed relative strength index.
func RSI(close []float64, period int) Series {
	if len(close) < period+1 || period < 1 {
		return missing(len(close))
	}
	return maskWarmup(talib.Rsi(close, period), period)
}

// ATR computes the average true range over (high, low, close). With a
// synthetic OHLC feed (high=low=close) this degenerates to Wilder-smoothed
// absolute close-to-close change.
func ATR(high, low, close []float64, period int) Series {
	if len(close) < period+1 || period < 1 {
		return missing(len(close))
	}
	return maskWarmup(talib.Atr(high, low, close, period), period)
}

// ADX computes the average directional index.
func ADX(high, low, close []float64, period int) Series {
	if len(close) < 2*period || period < 1 {
		return missing(len(close))
	}
	return maskWarmup(talib.Adx(high, low, close, period), 2*period-1)
}

func missing(n int) Series {
	out := make(Series, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
