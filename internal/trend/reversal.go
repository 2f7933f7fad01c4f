package trend

import (
	"github.com/mkaravel/cryptotrends/internal/domain"
)

// DetectReversal compares the short window against the long window and emits
// a reversal signal when they disagree directionally. A 7d uptrend against a
// 30d downtrend reads as a bullish reversal in progress, and the mirror case
// as bearish. Confidence is the mean of the two trend confidences.
func DetectReversal(trends map[domain.Timeframe]*domain.TrendRecord) *domain.SignalEvent {
	short, ok := trends[domain.Timeframe7d]
	if !ok || short == nil {
		return nil
	}
	long, ok := trends[domain.Timeframe30d]
	if !ok || long == nil {
		return nil
	}

	var sigType domain.SignalType
	switch {
	case short.TrendType == domain.TrendUptrend && long.TrendType == domain.TrendDowntrend:
		sigType = domain.SignalBullishReversal
	case short.TrendType == domain.TrendDowntrend && long.TrendType == domain.TrendUptrend:
		sigType = domain.SignalBearishReversal
	default:
		return nil
	}

	return &domain.SignalEvent{
		AssetID:    short.AssetID,
		SignalType: sigType,
		DetectedAt: short.EndTime,
		Confidence: (short.Confidence + long.Confidence) / 2,
		Metadata: map[string]any{
			"short_timeframe":  string(short.Timeframe),
			"long_timeframe":   string(long.Timeframe),
			"short_trend":      string(short.TrendType),
			"long_trend":       string(long.TrendType),
			"short_confidence": short.Confidence,
			"long_confidence":  long.Confidence,
		},
	}
}
