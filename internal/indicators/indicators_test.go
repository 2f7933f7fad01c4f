package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaravel/cryptotrends/internal/domain"
)

func constantSeries(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func rampSeries(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSMAWarmupAndValue(t *testing.T) {
	close := rampSeries(10, 1, 1) // 1..10
	s := SMA(close, 5)

	require.Len(t, s, 10)
	for i := 0; i < 4; i++ {
		assert.True(t, s.IsMissing(i), "index %d should be warm-up", i)
	}
	// SMA(5) at index 4 over 1..5 is 3.
	v, ok := s.At(4)
	require.True(t, ok)
	assert.InDelta(t, 3.0, v, 1e-9)
	v, ok = s.Last()
	require.True(t, ok)
	assert.InDelta(t, 8.0, v, 1e-9)
}

func TestSMATooShort(t *testing.T) {
	s := SMA(constantSeries(3, 10), 5)
	require.Len(t, s, 3)
	for i := range s {
		assert.True(t, s.IsMissing(i))
	}
}

func TestEMAConstantSeries(t *testing.T) {
	s := EMA(constantSeries(40, 25), 20)
	v, ok := s.Last()
	require.True(t, ok)
	assert.InDelta(t, 25.0, v, 1e-9)
	assert.True(t, s.IsMissing(18))
	assert.False(t, s.IsMissing(19))
}

func TestMACDWarmupAndFlatSeries(t *testing.T) {
	line, sig, hist := MACD(constantSeries(60, 100), MACDFast, MACDSlow, MACDSignal)

	lookback := MACDSlow + MACDSignal - 2
	for i := 0; i < lookback; i++ {
		assert.True(t, line.IsMissing(i))
		assert.True(t, sig.IsMissing(i))
		assert.True(t, hist.IsMissing(i))
	}

	lv, ok := line.Last()
	require.True(t, ok)
	assert.InDelta(t, 0.0, lv, 1e-9)
	hv, ok := hist.Last()
	require.True(t, ok)
	assert.InDelta(t, 0.0, hv, 1e-9)
}

func TestMACDTooShort(t *testing.T) {
	line, sig, hist := MACD(constantSeries(10, 100), MACDFast, MACDSlow, MACDSignal)
	assert.True(t, line.IsMissing(9))
	assert.True(t, sig.IsMissing(9))
	assert.True(t, hist.IsMissing(9))
}

func TestBollingerBandsOrderingAndBandwidth(t *testing.T) {
	close := []float64{
		10, 11, 10.5, 11.2, 10.8, 11.5, 12, 11.7, 12.3, 12.1,
		12.8, 13, 12.5, 13.2, 13.5, 13.1, 13.8, 14, 13.6, 14.2,
		14.5, 14.1, 14.8, 15,
	}
	lower, middle, upper, bandwidth := Bollinger(close, BollingerPeriod, BollingerK)

	assert.True(t, lower.IsMissing(18))
	for i := BollingerPeriod - 1; i < len(close); i++ {
		l, ok := lower.At(i)
		require.True(t, ok)
		m, ok := middle.At(i)
		require.True(t, ok)
		u, ok := upper.At(i)
		require.True(t, ok)
		assert.Less(t, l, m)
		assert.Less(t, m, u)

		bw, ok := bandwidth.At(i)
		require.True(t, ok)
		assert.InDelta(t, (u-l)/m, bw, 1e-12)
	}
}

func TestBollingerZeroMiddleBandwidthMissing(t *testing.T) {
	_, _, _, bandwidth := Bollinger(constantSeries(25, 0), BollingerPeriod, BollingerK)
	assert.True(t, bandwidth.IsMissing(24))
}

func TestRSIBounds(t *testing.T) {
	// Strictly rising series pins RSI at 100.
	s := RSI(rampSeries(30, 10, 1), RSIPeriod)
	assert.True(t, s.IsMissing(RSIPeriod-1))
	v, ok := s.Last()
	require.True(t, ok)
	assert.InDelta(t, 100.0, v, 1e-6)

	// Strictly falling series pins RSI at 0.
	s = RSI(rampSeries(30, 100, -1), RSIPeriod)
	v, ok = s.Last()
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-6)
}

func TestATRSyntheticDegradation(t *testing.T) {
	// With high=low=close the true range collapses to |close-prevClose|;
	// a constant step size makes the smoothed ATR equal that step.
	close := rampSeries(40, 100, 2)
	s := ATR(close, close, close, ATRPeriod)

	assert.True(t, s.IsMissing(ATRPeriod-1))
	v, ok := s.Last()
	require.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-6)
}

func TestADXWarmup(t *testing.T) {
	n := 3 * ADXPeriod
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i) + 3*math.Sin(float64(i)/3)
		close[i] = c
		high[i] = c + 1
		low[i] = c - 1
	}

	s := ADX(high, low, close, ADXPeriod)
	assert.True(t, s.IsMissing(2*ADXPeriod-2))
	v, ok := s.Last()
	require.True(t, ok)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 100.0)
}

func TestNewOHLCVSyntheticFlag(t *testing.T) {
	now := time.Now()
	bars := []domain.Bar{
		{Timestamp: now, Close: 10, Volume: 100},
		{Timestamp: now.Add(time.Hour), Close: 11, Volume: 110},
	}
	o := NewOHLCV(bars)
	assert.True(t, o.Synthetic)
	assert.Equal(t, []float64{10, 11}, o.Close)
	assert.Equal(t, []float64{10, 11}, o.High)
	assert.Equal(t, 2, o.Len())

	full := []domain.Bar{{
		Timestamp: now, Close: 10, Volume: 100,
		Open: domain.Float64Ptr(9.5), High: domain.Float64Ptr(10.5), Low: domain.Float64Ptr(9),
	}}
	o = NewOHLCV(full)
	assert.False(t, o.Synthetic)
	assert.Equal(t, []float64{10.5}, o.High)
}

func TestSeriesHelpers(t *testing.T) {
	s := Series{math.NaN(), 1, math.NaN(), 2, 3}
	assert.Equal(t, []float64{1, 2, 3}, s.Valid())
	assert.Equal(t, []float64{2, 3}, s.Tail(2))
	assert.True(t, s.IsMissing(-1))
	assert.True(t, s.IsMissing(99))

	_, ok := Series{}.Last()
	assert.False(t, ok)
}

func TestComputeShortHistoryDegrades(t *testing.T) {
	bars := make([]domain.Bar, 30)
	now := time.Now()
	for i := range bars {
		bars[i] = domain.Bar{Timestamp: now.Add(time.Duration(i) * time.Hour), Close: 100 + float64(i), Volume: 1000}
	}
	set := Compute(NewOHLCV(bars))

	// 30 bars: RSI(14) available, SMA200 entirely missing, no panic.
	_, ok := set.RSI.Last()
	assert.True(t, ok)
	_, ok = set.SMA200.Last()
	assert.False(t, ok)
	assert.True(t, set.Synthetic)
}
