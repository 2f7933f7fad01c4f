package signals

import (
	"github.com/mkaravel/cryptotrends/internal/domain"
	"github.com/mkaravel/cryptotrends/internal/indicators"
	"github.com/mkaravel/cryptotrends/internal/thresholds"
)

// Output bounds per indicator detector.
const (
	keepMACDCrosses   = 3
	keepBreakouts     = 2
	keepRSICrosses    = 2
	squeezePctTrigger = 10.0
	squeezeLookback   = 100
	squeezeMinHistory = 20
)

// indicatorSignals runs the advanced-mode detectors over the indicator set.
func (d *Detector) indicatorSignals(assetID int64, bars []domain.Bar, set *indicators.Set) []candidate {
	var out []candidate
	out = append(out, macdCrosses(assetID, bars, set)...)
	out = append(out, smaCrosses(assetID, bars, set)...)
	out = append(out, bollingerBreakouts(assetID, bars, set)...)
	out = append(out, rsiExits(assetID, bars, set)...)
	return out
}

func crossCandidate(assetID int64, bars []domain.Bar, idx int, sigType domain.SignalType, meta map[string]any) candidate {
	return candidate{
		event: domain.SignalEvent{
			AssetID:      assetID,
			SignalType:   sigType,
			DetectedAt:   bars[idx].Timestamp,
			TriggerPrice: domain.Float64Ptr(bars[idx].Close),
			Metadata:     meta,
		},
		barIndex: idx,
	}
}

// keepLast bounds a detector's output to its most recent n occurrences.
func keepLast(cands []candidate, n int) []candidate {
	if len(cands) > n {
		return cands[len(cands)-n:]
	}
	return cands
}

// macdCrosses emits a signal at each sign change of (macd - signal), keeping
// the last few per polarity.
func macdCrosses(assetID int64, bars []domain.Bar, set *indicators.Set) []candidate {
	var bullish, bearish []candidate
	for i := 1; i < len(set.Close); i++ {
		prev, ok1 := diffAt(set, i-1)
		cur, ok2 := diffAt(set, i)
		if !ok1 || !ok2 {
			continue
		}
		meta := map[string]any{
			"macd_line":   set.MACDLine[i],
			"signal_line": set.MACDSignal[i],
			"histogram":   set.MACDHist[i],
		}
		switch {
		case prev <= 0 && cur > 0:
			bullish = append(bullish, crossCandidate(assetID, bars, i, domain.SignalMACDBullish, meta))
		case prev >= 0 && cur < 0:
			bearish = append(bearish, crossCandidate(assetID, bars, i, domain.SignalMACDBearish, meta))
		}
	}
	return append(keepLast(bullish, keepMACDCrosses), keepLast(bearish, keepMACDCrosses)...)
}

func diffAt(set *indicators.Set, i int) (float64, bool) {
	line, ok := set.MACDLine.At(i)
	if !ok {
		return 0, false
	}
	sig, ok := set.MACDSignal.At(i)
	if !ok {
		return 0, false
	}
	return line - sig, true
}

// smaCrosses emits golden/death crosses of SMA50 over SMA200, most recent
// occurrence per polarity only.
func smaCrosses(assetID int64, bars []domain.Bar, set *indicators.Set) []candidate {
	var golden, death []candidate
	for i := 1; i < len(set.Close); i++ {
		pf, ok1 := set.SMA50.At(i - 1)
		ps, ok2 := set.SMA200.At(i - 1)
		cf, ok3 := set.SMA50.At(i)
		cs, ok4 := set.SMA200.At(i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		meta := map[string]any{"sma_50": cf, "sma_200": cs}
		switch {
		case pf <= ps && cf > cs:
			golden = append(golden, crossCandidate(assetID, bars, i, domain.SignalGoldenCross, meta))
		case pf >= ps && cf < cs:
			death = append(death, crossCandidate(assetID, bars, i, domain.SignalDeathCross, meta))
		}
	}
	return append(keepLast(golden, 1), keepLast(death, 1)...)
}

// bollingerBreakouts finds squeeze exits: bandwidth leaving the bottom decile
// of its trailing window.
func bollingerBreakouts(assetID int64, bars []domain.Bar, set *indicators.Set) []candidate {
	var out []candidate
	bw := set.Bandwidth
	for i := 1; i < len(bw); i++ {
		prev, ok1 := bw.At(i - 1)
		cur, ok2 := bw.At(i)
		if !ok1 || !ok2 {
			continue
		}

		lo := i - squeezeLookback
		if lo < 0 {
			lo = 0
		}
		trailing := bw[lo:i].Valid()
		if len(trailing) < squeezeMinHistory {
			continue
		}
		threshold := thresholds.PercentileThresholds(trailing, map[string]float64{"squeeze": squeezePctTrigger})["squeeze"]

		if prev <= threshold && cur > threshold {
			out = append(out, crossCandidate(assetID, bars, i, domain.SignalBBBreakout, map[string]any{
				"bandwidth":         cur,
				"squeeze_threshold": threshold,
			}))
		}
	}
	return keepLast(out, keepBreakouts)
}

// rsiExits emits the exit edge of oversold/overbought excursions against
// dynamic levels derived from the asset's own RSI history.
func rsiExits(assetID int64, bars []domain.Bar, set *indicators.Set) []candidate {
	levels := thresholds.AdaptiveRSI(set.RSI, thresholds.Normal)

	var oversold, overbought []candidate
	for i := 1; i < len(set.RSI); i++ {
		prev, ok1 := set.RSI.At(i - 1)
		cur, ok2 := set.RSI.At(i)
		if !ok1 || !ok2 {
			continue
		}
		meta := map[string]any{
			"rsi":              cur,
			"oversold_level":   levels.Oversold,
			"overbought_level": levels.Overbought,
			"adaptive_levels":  levels.Adaptive,
		}
		switch {
		case prev < levels.Oversold && cur >= levels.Oversold:
			oversold = append(oversold, crossCandidate(assetID, bars, i, domain.SignalRSIOversold, meta))
		case prev > levels.Overbought && cur <= levels.Overbought:
			overbought = append(overbought, crossCandidate(assetID, bars, i, domain.SignalRSIOverbought, meta))
		}
	}
	return append(keepLast(oversold, keepRSICrosses), keepLast(overbought, keepRSICrosses)...)
}
