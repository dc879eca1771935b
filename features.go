package hfocore

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hfopipe/hfocore/pkg/worker"
)

// minSegmentLen is the shortest event segment the feature computations are
// defined on. Shorter segments keep the full field set with NaN values.
const minSegmentLen = 6

// madScaleFactor makes the MAD a consistent estimator of the standard
// deviation for the robust normalization step.
const madScaleFactor = 1.486

// filtered-domain feature suffixes, in schema order.
var filteredSuffixes = []string{
	"duration", "amplitude", "skewness", "kurtosis",
	"ll_mean", "ll_var", "ll_skew", "ll_kurt",
	"curv_mean", "curv_var", "curv_skew", "curv_kurt",
	"tke_mean", "tke_var", "tke_skew", "tke_kurt",
	"spect_peak", "spect_peak_freq", "spect_mean", "spect_var",
	"spect_skew", "spect_kurt", "spect_p25", "spect_p50", "spect_p75",
}

// raw-domain feature suffixes, in schema order.
var rawSuffixes = []string{"fr_index", "entropy"}

// FeatureNames returns the full ordered feature schema: the filtered-domain
// set for the event channel and its reference (the duplicate reference
// duration is dropped), then the raw-domain set for both.
func FeatureNames() []string {
	names := make([]string, 0, 2*len(filteredSuffixes)+2*len(rawSuffixes)-1)
	for _, s := range filteredSuffixes {
		names = append(names, "hfo_"+s)
	}
	for _, s := range filteredSuffixes {
		if s == "duration" {
			continue
		}
		names = append(names, "car_"+s)
	}
	for _, s := range rawSuffixes {
		names = append(names, "hfo_"+s)
	}
	for _, s := range rawSuffixes {
		names = append(names, "car_"+s)
	}
	return names
}

// filteredFeatures computes the filtered-domain feature set of one segment,
// in filteredSuffixes order. Segments below the minimum length yield all
// NaNs with the field set intact.
func filteredFeatures(seg []float64, fs float64) []float64 {
	vals := make([]float64, len(filteredSuffixes))
	if len(seg) < minSegmentLen {
		for i := range vals {
			vals[i] = math.NaN()
		}
		return vals
	}

	msRate := fs / 1000 // samples per millisecond

	center := median(seg)
	scale := madScaleFactor * mad(seg)
	norm := make([]float64, len(seg))
	for i, v := range seg {
		norm[i] = (v - center) / scale
	}

	_, _, skew, kurt := moments(norm)
	i := 0
	put := func(v float64) {
		vals[i] = v
		i++
	}

	put(float64(len(seg)) / msRate) // duration in ms
	put(10 * math.Log10(scale))
	put(skew)
	put(kurt)

	// Line length per millisecond.
	ll := diff(norm)
	for j, v := range ll {
		ll[j] = math.Abs(v) * msRate
	}
	m, va, sk, ku := moments(ll)
	put(m)
	put(va)
	put(sk)
	put(ku)

	// Curvature: second difference magnitude.
	curv := make([]float64, len(norm)-2)
	for j := 1; j < len(norm)-1; j++ {
		curv[j-1] = math.Abs(norm[j-1]-2*norm[j]+norm[j+1]) * msRate * msRate
	}
	m, va, sk, ku = moments(curv)
	put(m)
	put(va)
	put(sk)
	put(ku)

	// Teager-Kaiser energy operator.
	tke := make([]float64, len(norm)-2)
	for j := 1; j < len(norm)-1; j++ {
		tke[j-1] = (norm[j]*norm[j] - norm[j-1]*norm[j+1]) * msRate * msRate
	}
	m, va, sk, ku = moments(tke)
	put(m)
	put(va)
	put(sk)
	put(ku)

	hi := math.Min(passbandHighHz, fs/2)
	ss := computeSpectralStats(norm, fs, passbandLowHz, hi)
	put(ss.Peak)
	put(ss.PeakFreq)
	put(ss.Mean)
	put(ss.Var)
	put(ss.Skew)
	put(ss.Kurt)
	put(ss.P25)
	put(ss.P50)
	put(ss.P75)

	return vals
}

// rawFeatures computes the raw-domain feature set of one segment, in
// rawSuffixes order.
func rawFeatures(seg []float64, fs float64) []float64 {
	if len(seg) < minSegmentLen {
		return []float64{math.NaN(), math.NaN()}
	}
	hi := math.Min(passbandHighHz, fs/2)
	mid := hi / 2
	flow, fhigh, entropy := rawBandPower(seg, fs, passbandLowHz, mid, hi)
	return []float64{fhigh / (flow + fhigh), entropy}
}

// eventFeatures computes the full feature record for one event from its four
// signal segments: event channel and group reference, filtered and raw.
func eventFeatures(hfoRaw, hfoFilt, carRaw, carFilt []float64, fs float64) []float64 {
	vals := make([]float64, 0, len(FeatureNames()))
	vals = append(vals, filteredFeatures(hfoFilt, fs)...)
	vals = append(vals, filteredFeatures(carFilt, fs)[1:]...) // duration dropped
	vals = append(vals, rawFeatures(hfoRaw, fs)...)
	vals = append(vals, rawFeatures(carRaw, fs)...)
	return vals
}

// ExtractFeatures computes the events x features matrix over the requested
// feature names, in request order. Events are independent and are extracted
// in parallel when pool is non-nil, gathered by event position. An event
// whose channel belongs to neither group is a domain error; a requested name
// missing from the schema is a validation error.
func ExtractFeatures(pre *Preprocessed, events []Event, names []string, pool *worker.Pool) (*mat.Dense, error) {
	if len(events) == 0 {
		return nil, validationf("events", "no events to extract features for")
	}
	schema := FeatureNames()
	index := make(map[string]int, len(schema))
	for i, n := range schema {
		index[n] = i
	}
	order := make([]int, len(names))
	for i, n := range names {
		j, ok := index[n]
		if !ok {
			return nil, validationf("features", "requested feature %q is not in the computed schema", n)
		}
		order[i] = j
	}

	records := make([][]float64, len(events))
	errs := make([]error, len(events))
	extract := func(i int) {
		records[i], errs[i] = pre.eventRecord(events[i])
	}
	if pool != nil {
		pool.Map(len(events), extract)
	} else {
		for i := range events {
			extract(i)
		}
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := mat.NewDense(len(events), len(names), nil)
	for i, rec := range records {
		for j, k := range order {
			out.Set(i, j, rec[k])
		}
	}
	return out, nil
}

// eventRecord slices the event's four segments out of the bundle and
// computes its full-schema record.
func (p *Preprocessed) eventRecord(e Event) ([]float64, error) {
	kind, local := p.Groups.GroupOf(e.Chan)
	if kind == GroupNone {
		return nil, domainf("event channel %d belongs to neither channel group", e.Chan)
	}
	b := p.Ecog
	if kind == GroupDepth {
		b = p.Depth
	}
	if b.HFORaw == nil {
		return nil, domainf("group %s has no preprocessed signals", kind)
	}
	samples, _ := b.HFORaw.Dims()
	if e.Start < 1 || e.End < e.Start || e.End > samples {
		return nil, validationf("events", "event bounds [%d, %d] invalid for %d-sample recording", e.Start, e.End, samples)
	}

	slice := func(m *mat.Dense, col int) []float64 {
		out := make([]float64, e.End-e.Start+1)
		for i := range out {
			out[i] = m.At(e.Start-1+i, col)
		}
		return out
	}

	return eventFeatures(
		slice(b.HFORaw, local),
		slice(b.HFOFilt, local),
		slice(b.CARRaw, 0),
		slice(b.CARFilt, 0),
		p.FS,
	), nil
}
