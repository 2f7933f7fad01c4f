package signals

import (
	"github.com/mkaravel/cryptotrends/internal/domain"
	"github.com/mkaravel/cryptotrends/pkg/formulas"
)

// Pattern trigger thresholds, conservative defaults.
const (
	pumpMinRisePct     = 50.0
	pumpMaxDumpPct     = -30.0
	pumpMinVolumeRatio = 3.0

	volumeAnomalyTriggerRatio = 5.0

	bottomMaxDownPct    = -15.0
	bottomMinRecoverPct = 10.0

	parabolicMinStreak  = 3
	parabolicMinRisePct = 50.0

	capitulationMaxDownPct = -15.0
	capitulationMaxDropPct = -25.0
)

// detectPatterns applies every in-window detector to one window. start is
// the window's offset into the full bar series.
func detectPatterns(assetID int64, win []domain.Bar, start int) []candidate {
	var out []candidate
	if c, ok := detectPumpAndDump(assetID, win, start); ok {
		out = append(out, c)
	}
	if c, ok := detectVolumeAnomaly(assetID, win, start); ok {
		out = append(out, c)
	}
	if c, ok := detectBottomedOut(assetID, win, start); ok {
		out = append(out, c)
	}
	if c, ok := detectParabolicRise(assetID, win, start); ok {
		out = append(out, c)
	}
	if c, ok := detectCapitulation(assetID, win, start); ok {
		out = append(out, c)
	}
	return out
}

func closes(win []domain.Bar) []float64 {
	out := make([]float64, len(win))
	for i, b := range win {
		out[i] = b.Close
	}
	return out
}

func volumes(win []domain.Bar) []float64 {
	out := make([]float64, len(win))
	for i, b := range win {
		out[i] = b.Volume
	}
	return out
}

func minMax(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// detectPumpAndDump splits the window into a pump half and a dump half and
// requires a sharp rise, a sharp fall and a volume spike during the pump.
func detectPumpAndDump(assetID int64, win []domain.Bar, start int) (candidate, bool) {
	if len(win) < 12 {
		return candidate{}, false
	}
	half := len(win) / 2
	pumpHalf, dumpHalf := win[:half], win[half:]

	pumpLo, pumpHi := minMax(closes(pumpHalf))
	if pumpLo <= 0 {
		return candidate{}, false
	}
	pumpPct := (pumpHi - pumpLo) / pumpLo * 100

	dumpLo, _ := minMax(closes(dumpHalf))
	dumpPct := (dumpLo - pumpHi) / pumpHi * 100

	// The volume baseline is the pump half before its own spike; volume
	// after the spike (including the whole dump half) must not dilute it.
	pumpVols := volumes(pumpHalf)
	spikeIdx := 0
	for i, v := range pumpVols {
		if v > pumpVols[spikeIdx] {
			spikeIdx = i
		}
	}
	if spikeIdx == 0 {
		return candidate{}, false
	}
	baseline := formulas.Mean(pumpVols[:spikeIdx])
	if baseline <= 0 {
		return candidate{}, false
	}
	volRatio := pumpVols[spikeIdx] / baseline

	if pumpPct <= pumpMinRisePct || dumpPct >= pumpMaxDumpPct || volRatio < pumpMinVolumeRatio {
		return candidate{}, false
	}

	trigger := dumpHalf[0]
	conf := formulas.Clamp01((pumpPct + -dumpPct) / 120)
	return candidate{
		event: domain.SignalEvent{
			AssetID:          assetID,
			SignalType:       domain.SignalPumpAndDump,
			DetectedAt:       trigger.Timestamp,
			Confidence:       conf,
			TriggerPrice:     domain.Float64Ptr(trigger.Close),
			VolumeSpikeRatio: domain.Float64Ptr(volRatio),
			Metadata: map[string]any{
				"pump_percent":       pumpPct,
				"dump_percent":       dumpPct,
				"volume_spike_ratio": volRatio,
				"window_size":        len(win),
			},
		},
		barIndex:    start + half,
		pumpPct:     pumpPct,
		dumpPct:     dumpPct,
		volumeRatio: volRatio,
	}, true
}

// detectVolumeAnomaly compares the window's last volume against the average
// of everything before it.
func detectVolumeAnomaly(assetID int64, win []domain.Bar, start int) (candidate, bool) {
	vols := volumes(win)
	baseline := formulas.Mean(vols[:len(vols)-1])
	spike := vols[len(vols)-1]
	if baseline <= 0 || spike <= volumeAnomalyTriggerRatio*baseline {
		return candidate{}, false
	}

	ratio := spike / baseline
	last := win[len(win)-1]
	return candidate{
		event: domain.SignalEvent{
			AssetID:          assetID,
			SignalType:       domain.SignalVolumeAnomaly,
			DetectedAt:       last.Timestamp,
			Confidence:       formulas.Clamp01(spike / (8 * baseline)),
			TriggerPrice:     domain.Float64Ptr(last.Close),
			VolumeSpikeRatio: domain.Float64Ptr(ratio),
			Metadata: map[string]any{
				"baseline_volume":    baseline,
				"spike_volume":       spike,
				"volume_spike_ratio": ratio,
				"window_size":        len(win),
			},
		},
		barIndex:    start + len(win) - 1,
		volumeRatio: ratio,
	}, true
}

// detectBottomedOut looks for a steep first-half decline followed by a
// second-half recovery.
func detectBottomedOut(assetID int64, win []domain.Bar, start int) (candidate, bool) {
	if len(win) < 14 {
		return candidate{}, false
	}
	half := len(win) / 2
	earlier, later := closes(win[:half]), closes(win[half:])
	if earlier[0] <= 0 || later[0] <= 0 {
		return candidate{}, false
	}

	downPct := (earlier[len(earlier)-1] - earlier[0]) / earlier[0] * 100
	recoveryPct := (later[len(later)-1] - later[0]) / later[0] * 100
	if downPct >= bottomMaxDownPct || recoveryPct <= bottomMinRecoverPct {
		return candidate{}, false
	}

	last := win[len(win)-1]
	return candidate{
		event: domain.SignalEvent{
			AssetID:      assetID,
			SignalType:   domain.SignalBottomedOut,
			DetectedAt:   last.Timestamp,
			Confidence:   formulas.Clamp01((-downPct + recoveryPct) / 100),
			TriggerPrice: domain.Float64Ptr(last.Close),
			Metadata: map[string]any{
				"downtrend_percent": downPct,
				"recovery_percent":  recoveryPct,
				"window_size":       len(win),
			},
		},
		barIndex:    start + len(win) - 1,
		downPct:     downPct,
		recoveryPct: recoveryPct,
	}, true
}

// detectParabolicRise requires accelerating gains: a streak of strictly
// increasing bar-to-bar percentage changes plus a large total rise.
func detectParabolicRise(assetID int64, win []domain.Bar, start int) (candidate, bool) {
	if len(win) < 10 {
		return candidate{}, false
	}
	cs := closes(win)
	changes := make([]float64, 0, len(cs)-1)
	for i := 1; i < len(cs); i++ {
		if cs[i-1] <= 0 {
			return candidate{}, false
		}
		changes = append(changes, (cs[i]-cs[i-1])/cs[i-1]*100)
	}

	streak, best := 0, 0
	total := 0.0
	for i, ch := range changes {
		total += ch
		if i > 0 && ch > changes[i-1] {
			streak++
			if streak > best {
				best = streak
			}
		} else {
			streak = 0
		}
	}
	if best < parabolicMinStreak || total <= parabolicMinRisePct {
		return candidate{}, false
	}

	last := win[len(win)-1]
	return candidate{
		event: domain.SignalEvent{
			AssetID:      assetID,
			SignalType:   domain.SignalParabolicRise,
			DetectedAt:   last.Timestamp,
			Confidence:   formulas.Clamp01(total / 100),
			TriggerPrice: domain.Float64Ptr(last.Close),
			Metadata: map[string]any{
				"total_rise_percent": total,
				"increasing_streak":  best,
				"window_size":        len(win),
			},
		},
		barIndex: start + len(win) - 1,
	}, true
}

// detectCapitulation requires an established downtrend followed by an
// outsized further drop.
func detectCapitulation(assetID int64, win []domain.Bar, start int) (candidate, bool) {
	if len(win) < 14 {
		return candidate{}, false
	}
	half := len(win) / 2
	earlier, later := closes(win[:half]), closes(win[half:])
	if earlier[0] <= 0 || later[0] <= 0 {
		return candidate{}, false
	}

	downPct := (earlier[len(earlier)-1] - earlier[0]) / earlier[0] * 100
	dropPct := (later[len(later)-1] - later[0]) / later[0] * 100
	if downPct >= capitulationMaxDownPct || dropPct >= capitulationMaxDropPct {
		return candidate{}, false
	}

	last := win[len(win)-1]
	return candidate{
		event: domain.SignalEvent{
			AssetID:      assetID,
			SignalType:   domain.SignalCapitulation,
			DetectedAt:   last.Timestamp,
			Confidence:   formulas.Clamp01((-downPct + -dropPct) / 100),
			TriggerPrice: domain.Float64Ptr(last.Close),
			Metadata: map[string]any{
				"downtrend_percent": downPct,
				"drop_percent":      dropPct,
				"window_size":       len(win),
			},
		},
		barIndex: start + len(win) - 1,
	}, true
}
