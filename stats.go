package hfocore

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// median returns the middle value of x, averaging the two central values for
// even lengths. x is not modified.
func median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	s := make([]float64, n)
	copy(s, x)
	sort.Float64s(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// mad returns the median absolute deviation of x with no consistency
// correction factor.
func mad(x []float64) float64 {
	m := median(x)
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = math.Abs(v - m)
	}
	return median(dev)
}

// moments returns the mean, population variance (divisor N), skewness and
// excess kurtosis of x. The population forms match the training-time feature
// definitions, which is why gonum's bias-corrected stat.Skew/stat.ExKurtosis
// are not used here.
func moments(x []float64) (mean, variance, skew, kurt float64) {
	n := float64(len(x))
	if n == 0 {
		return math.NaN(), math.NaN(), math.NaN(), math.NaN()
	}
	mean = stat.Mean(x, nil)
	var m2, m3, m4 float64
	for _, v := range x {
		d := v - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	m2 /= n
	m3 /= n
	m4 /= n
	variance = m2
	sd := math.Sqrt(m2)
	skew = m3 / (sd * sd * sd)
	kurt = m4/(m2*m2) - 3
	return mean, variance, skew, kurt
}

// weightedMoments returns the weighted mean, variance, skewness and excess
// kurtosis of x under non-negative weights w.
func weightedMoments(x, w []float64) (mean, variance, skew, kurt float64) {
	var wsum float64
	for _, v := range w {
		wsum += v
	}
	if wsum == 0 {
		return math.NaN(), math.NaN(), math.NaN(), math.NaN()
	}
	for i, v := range x {
		mean += w[i] * v
	}
	mean /= wsum
	var m2, m3, m4 float64
	for i, v := range x {
		d := v - mean
		d2 := d * d
		m2 += w[i] * d2
		m3 += w[i] * d2 * d
		m4 += w[i] * d2 * d2
	}
	m2 /= wsum
	m3 /= wsum
	m4 /= wsum
	variance = m2
	skew = m3 / math.Pow(m2, 1.5)
	kurt = m4/(m2*m2) - 3
	return mean, variance, skew, kurt
}

// diff returns the first difference x[i+1]-x[i], length len(x)-1.
func diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	d := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		d[i-1] = x[i] - x[i-1]
	}
	return d
}
