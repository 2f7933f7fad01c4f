// Package indicators is the indicator kernel: it turns a time-sorted bar
// series into parallel indicator series. Calculations are delegated to
// go-talib; this package owns the missing-value contract. Every indicator
// output has its warm-up prefix masked to NaN so that "indicator unavailable
// for this bar" is explicit and can never be confused with a literal zero.
package indicators

import (
	"math"
	"time"

	"github.com/mkaravel/cryptotrends/internal/domain"
)

// Series is a time-aligned indicator output. NaN marks a missing value.
type Series []float64

// IsMissing reports whether the value at index i is unavailable.
func (s Series) IsMissing(i int) bool {
	return i < 0 || i >= len(s) || math.IsNaN(s[i])
}

// At returns the value at index i and whether it is present.
func (s Series) At(i int) (float64, bool) {
	if s.IsMissing(i) {
		return 0, false
	}
	return s[i], true
}

// Last returns the most recent value and whether it is present.
func (s Series) Last() (float64, bool) {
	return s.At(len(s) - 1)
}

// Valid returns the non-missing values in order.
func (s Series) Valid() []float64 {
	out := make([]float64, 0, len(s))
	for _, v := range s {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Tail returns up to n trailing non-missing values in order.
func (s Series) Tail(n int) []float64 {
	valid := s.Valid()
	if len(valid) > n {
		valid = valid[len(valid)-n:]
	}
	return valid
}

// OHLCV is the kernel's input: parallel arrays over a time-sorted bar series.
// When the upstream feed carries only closes, high/low/open are approximated
// by the close and Synthetic is set; ATR then degenerates to smoothed
// absolute close-to-close change, which producers record in metadata.
type OHLCV struct {
	Times     []time.Time
	Open      []float64
	High      []float64
	Low       []float64
	Close     []float64
	Volume    []float64
	Synthetic bool // OHLC approximated from close
}

// NewOHLCV builds kernel input from bars, applying the documented OHLC
// degradation for close-only feeds.
func NewOHLCV(bars []domain.Bar) *OHLCV {
	o := &OHLCV{
		Times:  make([]time.Time, len(bars)),
		Open:   make([]float64, len(bars)),
		High:   make([]float64, len(bars)),
		Low:    make([]float64, len(bars)),
		Close:  make([]float64, len(bars)),
		Volume: make([]float64, len(bars)),
	}
	for i, b := range bars {
		o.Times[i] = b.Timestamp
		o.Close[i] = b.Close
		o.Volume[i] = b.Volume
		if b.Open != nil && b.High != nil && b.Low != nil {
			o.Open[i] = *b.Open
			o.High[i] = *b.High
			o.Low[i] = *b.Low
		} else {
			o.Open[i] = b.Close
			o.High[i] = b.Close
			o.Low[i] = b.Close
			o.Synthetic = true
		}
	}
	return o
}

// Len returns the number of bars.
func (o *OHLCV) Len() int { return len(o.Close) }

// maskWarmup copies vals into a Series with the first lookback entries set to
// NaN. talib fills the warm-up region with zeros; the positions are fixed per
// indicator, so masking by index restores the missing-value contract.
func maskWarmup(vals []float64, lookback int) Series {
	out := make(Series, len(vals))
	for i, v := range vals {
		if i < lookback {
			out[i] = math.NaN()
		} else {
			out[i] = v
		}
	}
	return out
}
