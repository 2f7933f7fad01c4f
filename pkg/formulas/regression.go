package formulas

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// RegressionResult holds the output of a simple least-squares fit of y on x.
type RegressionResult struct {
	Slope     float64
	Intercept float64
	R         float64 // Pearson correlation coefficient
	RSquared  float64
	PValue    float64 // two-sided p-value for a slope of zero (Wald test, t-distribution)
	StdErr    float64 // standard error of the slope estimate
	N         int
}

// ErrTooFewPoints is returned when a regression is attempted on fewer than
// three points; the t-test needs at least one degree of freedom.
var ErrTooFewPoints = errors.New("formulas: regression requires at least 3 points")

// LinearRegression fits y = intercept + slope*x and reports significance.
//
// Degenerate inputs are handled rather than propagated: a constant y series
// yields slope 0, r 0, p-value 1 and stderr 0, and a constant x series is an
// error because the fit is undefined.
func LinearRegression(x, y []float64) (RegressionResult, error) {
	if len(x) != len(y) {
		return RegressionResult{}, errors.New("formulas: x and y length mismatch")
	}
	n := len(x)
	if n < 3 {
		return RegressionResult{}, ErrTooFewPoints
	}

	xmean := stat.Mean(x, nil)
	ymean := stat.Mean(y, nil)

	var ssxx, ssyy, ssxy float64
	for i := range x {
		dx := x[i] - xmean
		dy := y[i] - ymean
		ssxx += dx * dx
		ssyy += dy * dy
		ssxy += dx * dy
	}

	if ssxx == 0 {
		return RegressionResult{}, errors.New("formulas: x values are all identical")
	}

	slope := ssxy / ssxx
	intercept := ymean - slope*xmean

	res := RegressionResult{
		Slope:     slope,
		Intercept: intercept,
		N:         n,
	}

	if ssyy == 0 {
		// Perfectly flat series: no variance to explain, nothing significant.
		res.PValue = 1
		return res, nil
	}

	r := ssxy / math.Sqrt(ssxx*ssyy)
	// Guard against rounding pushing |r| past 1.
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	res.R = r
	res.RSquared = r * r

	df := float64(n - 2)
	if res.RSquared >= 1 {
		// Exact fit: zero residual, infinitely significant.
		res.PValue = 0
		res.StdErr = 0
		return res, nil
	}

	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	res.PValue = 2 * dist.CDF(-math.Abs(t))
	res.StdErr = math.Sqrt((ssyy/ssxx - slope*slope) / df)

	return res, nil
}

// RegressOverIndex regresses values against their 0-based index. This is the
// common case for bar series where spacing is uniform.
func RegressOverIndex(values []float64) (RegressionResult, error) {
	x := make([]float64, len(values))
	for i := range x {
		x[i] = float64(i)
	}
	return LinearRegression(x, values)
}
