package hfocore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, median([]float64{5, 1, 3, 2, 4}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(median(nil)))

	// Input must survive unmodified.
	x := []float64{3, 1, 2}
	median(x)
	assert.Equal(t, []float64{3, 1, 2}, x)
}

func TestMAD(t *testing.T) {
	// median 3, |dev| = {2,1,0,1,2}, median dev 1.
	assert.Equal(t, 1.0, mad([]float64{1, 2, 3, 4, 5}))
	// Constant data has zero spread.
	assert.Equal(t, 0.0, mad([]float64{7, 7, 7, 7}))
}

func TestMomentsPopulationForms(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean, variance, skew, kurt := moments(x)
	require.Equal(t, 5.0, mean)
	// Divisor-N variance, not the n-1 sample form.
	require.Equal(t, 4.0, variance)
	assert.InDelta(t, 0.65625, skew, 1e-12)
	assert.InDelta(t, -0.21875, kurt, 1e-12)
}

func TestMomentsSymmetric(t *testing.T) {
	_, _, skew, _ := moments([]float64{-2, -1, 0, 1, 2})
	assert.InDelta(t, 0, skew, 1e-12)
}

func TestWeightedMoments(t *testing.T) {
	x := []float64{1, 2, 3}
	// Uniform weights must reduce to the plain population moments.
	mean, variance, skew, kurt := weightedMoments(x, []float64{2, 2, 2})
	pm, pv, ps, pk := moments(x)
	assert.InDelta(t, pm, mean, 1e-12)
	assert.InDelta(t, pv, variance, 1e-12)
	assert.InDelta(t, ps, skew, 1e-12)
	assert.InDelta(t, pk, kurt, 1e-12)

	// All mass on one point collapses the mean onto it.
	mean, variance, _, _ = weightedMoments(x, []float64{0, 0, 5})
	assert.Equal(t, 3.0, mean)
	assert.Equal(t, 0.0, variance)

	mean, _, _, _ = weightedMoments(x, []float64{0, 0, 0})
	assert.True(t, math.IsNaN(mean))
}

func TestDiff(t *testing.T) {
	assert.Equal(t, []float64{1, 2, -3}, diff([]float64{0, 1, 3, 0}))
	assert.Nil(t, diff([]float64{1}))
	assert.Nil(t, diff(nil))
}
