package trend

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaravel/cryptotrends/internal/domain"
	"github.com/mkaravel/cryptotrends/internal/indicators"
)

var testLog = zerolog.Nop()

// dailyBars builds one bar per day ending at now, oldest first.
func dailyBars(now time.Time, closes []float64) []domain.Bar {
	bars := make([]domain.Bar, len(closes))
	n := len(closes)
	for i, c := range closes {
		bars[i] = domain.Bar{
			AssetID:   1,
			Timestamp: now.Add(-time.Duration(n-1-i) * 24 * time.Hour),
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestAnalyzeInsufficientData(t *testing.T) {
	now := time.Now()
	c := NewClassifier(domain.ModeLegacy, testLog)

	bars := dailyBars(now, []float64{100, 101})
	_, err := c.Analyze(1, bars, nil, domain.Timeframe7d, now)
	assert.ErrorIs(t, err, ErrInsufficientData)

	// 30d needs 15 points; 10 points inside the window is not enough.
	bars = dailyBars(now, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	_, err = c.Analyze(1, bars, nil, domain.Timeframe30d, now)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAnalyzeUptrendLegacy(t *testing.T) {
	now := time.Now()
	c := NewClassifier(domain.ModeLegacy, testLog)

	// +10% over the window, clean rise.
	closes := []float64{100, 101.5, 103, 104.5, 106, 107.5, 110}
	rec, err := c.Analyze(1, dailyBars(now, closes), nil, domain.Timeframe7d, now)
	require.NoError(t, err)

	assert.Equal(t, domain.TrendUptrend, rec.TrendType)
	assert.InDelta(t, 10.0, rec.PriceChangePercent, 1e-9)
	assert.Equal(t, domain.Timeframe7d, rec.Timeframe)
	assert.Equal(t, int64(1), rec.AssetID)
	assert.Greater(t, rec.Confidence, 0.3)
	assert.LessOrEqual(t, rec.Confidence, 1.0)

	assert.Equal(t, 7, rec.Metadata["data_points"])
	assert.Equal(t, 100.0, rec.Metadata["start_price"])
	assert.Equal(t, 110.0, rec.Metadata["end_price"])
	assert.Equal(t, 7, rec.Metadata["timeframe_days"])
	assert.Contains(t, rec.Metadata, "slope")
	assert.Contains(t, rec.Metadata, "r_squared")
	assert.Contains(t, rec.Metadata, "p_value")
	assert.Contains(t, rec.Metadata, "volatility")
}

func TestAnalyzeDowntrendAndSideways(t *testing.T) {
	now := time.Now()
	c := NewClassifier(domain.ModeLegacy, testLog)

	down, err := c.Analyze(1, dailyBars(now, []float64{100, 98, 96, 94, 92, 91, 90}), nil, domain.Timeframe7d, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendDowntrend, down.TrendType)

	flat, err := c.Analyze(1, dailyBars(now, []float64{100, 100.2, 99.9, 100.1, 100, 100.3, 100.2}), nil, domain.Timeframe7d, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendSideways, flat.TrendType)
}

func TestLegacyRegressionFallbackInInconclusiveBand(t *testing.T) {
	now := time.Now()
	c := NewClassifier(domain.ModeLegacy, testLog)

	// +3% steady rise: inconclusive by price change, clear by regression.
	closes := []float64{100, 100.5, 101, 101.5, 102, 102.5, 103}
	rec, err := c.Analyze(1, dailyBars(now, closes), nil, domain.Timeframe7d, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendUptrend, rec.TrendType)
	assert.Equal(t, "regression_fallback", rec.Metadata["method"])

	// +3% but noisy enough that r-squared collapses: stays sideways.
	noisy := []float64{100, 104, 98, 105, 97, 106, 103}
	rec, err = c.Analyze(1, dailyBars(now, noisy), nil, domain.Timeframe7d, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendSideways, rec.TrendType)
}

func TestAdvancedModeInconclusiveStaysSideways(t *testing.T) {
	now := time.Now()
	c := NewClassifier(domain.ModeAdvanced, testLog)

	closes := []float64{100, 100.5, 101, 101.5, 102, 102.5, 103}
	rec, err := c.Analyze(1, dailyBars(now, closes), nil, domain.Timeframe7d, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendSideways, rec.TrendType)
	assert.Equal(t, "price_change", rec.Metadata["method"])
}

func TestAdvancedModeMAAlignment(t *testing.T) {
	now := time.Now()
	c := NewClassifier(domain.ModeAdvanced, testLog)

	// Long rising history so SMA50 and EMA20 are both available and the
	// latest price sits above them.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	bars := dailyBars(now, closes)
	set := indicators.Compute(indicators.NewOHLCV(bars))

	rec, err := c.Analyze(1, bars, set, domain.Timeframe7d, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendUptrend, rec.TrendType)
	assert.Equal(t, "ma_alignment", rec.Metadata["method"])

	// Mirror: falling series classifies down regardless of window change.
	falling := make([]float64, 60)
	for i := range falling {
		falling[i] = 200 - float64(i)
	}
	bars = dailyBars(now, falling)
	set = indicators.Compute(indicators.NewOHLCV(bars))
	rec, err = c.Analyze(1, bars, set, domain.Timeframe7d, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendDowntrend, rec.TrendType)
}

func TestAdvancedModeFallsBackWithoutMAs(t *testing.T) {
	now := time.Now()
	c := NewClassifier(domain.ModeAdvanced, testLog)

	// 10 bars: SMA50 never becomes available, price change takes over.
	closes := []float64{100, 102, 104, 106, 108, 110, 112}
	bars := dailyBars(now, closes)
	set := indicators.Compute(indicators.NewOHLCV(bars))

	rec, err := c.Analyze(1, bars, set, domain.Timeframe7d, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendUptrend, rec.TrendType)
	assert.Equal(t, "price_change", rec.Metadata["method"])
}

func TestConfidenceTimeframeBonusOrdering(t *testing.T) {
	now := time.Now()
	c := NewClassifier(domain.ModeLegacy, testLog)

	// Flat, mildly alternating series: r-squared stays near zero in every
	// window, so the timeframe bonus dominates the confidence difference.
	closes := make([]float64, 31)
	for i := range closes {
		closes[i] = 100 + 0.2*float64(i%2)
	}
	bars := dailyBars(now, closes)

	r7, err := c.Analyze(1, bars, nil, domain.Timeframe7d, now)
	require.NoError(t, err)
	r30, err := c.Analyze(1, bars, nil, domain.Timeframe30d, now)
	require.NoError(t, err)

	assert.Greater(t, r30.Confidence, r7.Confidence)
}

func TestAnalyzeWindowSlicing(t *testing.T) {
	now := time.Now()
	c := NewClassifier(domain.ModeLegacy, testLog)

	// 30 days of decline followed by 8 days of sharp rise. The 7d cutoff is
	// inclusive, so the window holds 8 bars (the bar exactly 7 days old plus
	// the 7 newer ones) and must only see the rise.
	closes := make([]float64, 0, 38)
	for i := 0; i < 30; i++ {
		closes = append(closes, 200-float64(i)*2)
	}
	for i := 0; i < 8; i++ {
		closes = append(closes, 100+float64(i)*3)
	}
	bars := dailyBars(now, closes)

	rec, err := c.Analyze(1, bars, nil, domain.Timeframe7d, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TrendUptrend, rec.TrendType)
	assert.Equal(t, 8, rec.Metadata["data_points"])
}

func TestDetectReversal(t *testing.T) {
	mk := func(tf domain.Timeframe, tt domain.TrendType, conf float64) *domain.TrendRecord {
		return &domain.TrendRecord{AssetID: 7, Timeframe: tf, TrendType: tt, Confidence: conf, EndTime: time.Now()}
	}

	sig := DetectReversal(map[domain.Timeframe]*domain.TrendRecord{
		domain.Timeframe7d:  mk(domain.Timeframe7d, domain.TrendUptrend, 0.8),
		domain.Timeframe30d: mk(domain.Timeframe30d, domain.TrendDowntrend, 0.6),
	})
	require.NotNil(t, sig)
	assert.Equal(t, domain.SignalBullishReversal, sig.SignalType)
	assert.InDelta(t, 0.7, sig.Confidence, 1e-9)
	assert.Equal(t, int64(7), sig.AssetID)

	sig = DetectReversal(map[domain.Timeframe]*domain.TrendRecord{
		domain.Timeframe7d:  mk(domain.Timeframe7d, domain.TrendDowntrend, 0.5),
		domain.Timeframe30d: mk(domain.Timeframe30d, domain.TrendUptrend, 0.9),
	})
	require.NotNil(t, sig)
	assert.Equal(t, domain.SignalBearishReversal, sig.SignalType)

	// Agreement or missing windows: no signal.
	assert.Nil(t, DetectReversal(map[domain.Timeframe]*domain.TrendRecord{
		domain.Timeframe7d:  mk(domain.Timeframe7d, domain.TrendUptrend, 0.8),
		domain.Timeframe30d: mk(domain.Timeframe30d, domain.TrendUptrend, 0.6),
	}))
	assert.Nil(t, DetectReversal(map[domain.Timeframe]*domain.TrendRecord{
		domain.Timeframe7d: mk(domain.Timeframe7d, domain.TrendUptrend, 0.8),
	}))
}
