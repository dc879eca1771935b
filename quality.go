package hfocore

import (
	"math"

	"github.com/hfopipe/hfocore/pkg/worker"
)

// Channel quality thresholds. A channel is rejected if any criterion holds:
// too many robust outliers overall, an outlier burst inside one 6 s window,
// or a window dominated by abnormally low sample-to-sample variability
// (flat-lined or saturated stretches).
const (
	outlierMADFactor     = 10.0
	maxOutlierFrac       = 0.05
	qualityWindowSec     = 6.0
	maxWindowOutlierFrac = 0.50
	maxFlatFrac          = 0.80
)

// DetectBadChannels computes the per-channel invalid mask over a
// full-duration recording. Channels are independent; when pool is non-nil
// they are scored in parallel, gathered by channel position. A zero-channel
// signal yields an empty mask.
func DetectBadChannels(sig *Signal, pool *worker.Pool) []bool {
	nchan := sig.Channels()
	invalid := make([]bool, nchan)
	if nchan == 0 {
		return invalid
	}
	score := func(i int) {
		invalid[i] = channelInvalid(sig.Channel(i+1), sig.FS)
	}
	if pool != nil {
		pool.Map(nchan, score)
	} else {
		for i := 0; i < nchan; i++ {
			score(i)
		}
	}
	return invalid
}

func channelInvalid(x []float64, fs float64) bool {
	n := len(x)
	if n == 0 {
		return true
	}

	mu := median(x)
	sigma := mad(x)
	lo := mu - outlierMADFactor*sigma
	hi := mu + outlierMADFactor*sigma

	outlier := make([]bool, n)
	outliers := 0
	for i, v := range x {
		if v < lo || v > hi {
			outlier[i] = true
			outliers++
		}
	}
	if float64(outliers)/float64(n) > maxOutlierFrac {
		return true
	}

	win := int(math.Floor(qualityWindowSec * fs))
	if win <= 0 || win > n {
		return false
	}

	// Criterion B: worst within-window outlier fraction, trailing partial
	// window discarded.
	for start := 0; start+win <= n; start += win {
		count := 0
		for i := start; i < start+win; i++ {
			if outlier[i] {
				count++
			}
		}
		if float64(count)/float64(win) > maxWindowOutlierFrac {
			return true
		}
	}

	// Criterion C: worst within-window fraction of first differences below
	// the channel's median absolute difference. The difference series is one
	// sample short, so it is NaN-padded at the tail to keep the same window
	// grid; the NaN never compares true.
	d := diff(x)
	absd := make([]float64, n)
	for i, v := range d {
		absd[i] = math.Abs(v)
	}
	absd[n-1] = math.NaN()
	dmed := median(absd[:n-1])
	for start := 0; start+win <= n; start += win {
		count := 0
		for i := start; i < start+win; i++ {
			if absd[i] < dmed {
				count++
			}
		}
		if float64(count)/float64(win) > maxFlatFrac {
			return true
		}
	}

	return false
}
