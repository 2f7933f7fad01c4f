package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearRegressionPerfectFit(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{1, 3, 5, 7, 9}

	res, err := LinearRegression(x, y)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, res.Slope, 1e-12)
	assert.InDelta(t, 1.0, res.Intercept, 1e-12)
	assert.InDelta(t, 1.0, res.RSquared, 1e-12)
	assert.Equal(t, 0.0, res.PValue)
	assert.Equal(t, 0.0, res.StdErr)
}

func TestLinearRegressionConstantY(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{5, 5, 5, 5}

	res, err := LinearRegression(x, y)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Slope)
	assert.Equal(t, 0.0, res.R)
	assert.Equal(t, 1.0, res.PValue)
	assert.Equal(t, 0.0, res.StdErr)
}

func TestLinearRegressionConstantX(t *testing.T) {
	_, err := LinearRegression([]float64{2, 2, 2}, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestLinearRegressionTooFewPoints(t *testing.T) {
	_, err := LinearRegression([]float64{0, 1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestLinearRegressionLengthMismatch(t *testing.T) {
	_, err := LinearRegression([]float64{0, 1, 2}, []float64{1, 2})
	assert.Error(t, err)
}

func TestLinearRegressionNoisySlope(t *testing.T) {
	// y = 3x + noise; the slope estimate should land close to 3 and the
	// trend should be highly significant over 10 points.
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	y := []float64{0.2, 3.1, 5.9, 9.2, 11.8, 15.1, 18.2, 20.9, 24.1, 26.8}

	res, err := LinearRegression(x, y)
	require.NoError(t, err)

	assert.InDelta(t, 3.0, res.Slope, 0.1)
	assert.Greater(t, res.RSquared, 0.99)
	assert.Less(t, res.PValue, 0.001)
	assert.Greater(t, res.StdErr, 0.0)
}

func TestLinearRegressionPValueMonotonicity(t *testing.T) {
	// Same slope, more noise: significance should drop.
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	tight := []float64{0.1, 1.0, 2.1, 2.9, 4.0, 5.1, 5.9, 7.0}
	loose := []float64{1.5, 0.2, 3.5, 1.9, 5.5, 3.8, 7.5, 5.6}

	rt, err := LinearRegression(x, tight)
	require.NoError(t, err)
	rl, err := LinearRegression(x, loose)
	require.NoError(t, err)

	assert.Less(t, rt.PValue, rl.PValue)
}

func TestRegressOverIndex(t *testing.T) {
	res, err := RegressOverIndex([]float64{10, 12, 14, 16})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Slope, 1e-12)
	assert.Equal(t, 4, res.N)
	assert.False(t, math.IsNaN(res.PValue))
}
