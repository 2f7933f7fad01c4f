// Package formulas provides the numeric primitives shared by the analysis
// engine: descriptive statistics, percentiles, robust spread estimators and
// least-squares regression.
package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the population standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	// Population variance (divide by N), matching the reference pipeline.
	mean := stat.Mean(data, nil)
	var ss float64
	for _, v := range data {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(data)))
}

// Median returns the median of data. Returns 0 for an empty slice.
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// MAD returns the median absolute deviation around the given center.
func MAD(data []float64, center float64) float64 {
	if len(data) == 0 {
		return 0
	}
	devs := make([]float64, len(data))
	for i, v := range data {
		devs[i] = math.Abs(v - center)
	}
	return Median(devs)
}

// Percentile returns the p-th percentile (0-100) of data using linear
// interpolation between order statistics. Returns NaN for empty input.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// PercentileOfScore returns the percentage of values in data that are less
// than or equal to score, on a 0-100 scale.
func PercentileOfScore(data []float64, score float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	count := 0
	for _, v := range data {
		if v <= score {
			count++
		}
	}
	return float64(count) / float64(len(data)) * 100
}

// CoefficientOfVariation returns stddev/mean * 100. Returns 0 when the mean
// is zero to avoid a division blow-up on degenerate series.
func CoefficientOfVariation(data []float64) float64 {
	mean := Mean(data)
	if mean == 0 {
		return 0
	}
	return StdDev(data) / mean * 100
}

// Clamp01 restricts v to the [0, 1] interval.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
