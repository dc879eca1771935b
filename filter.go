package hfocore

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Fixed HFO band and elliptic design parameters.
const (
	filterOrder      = 5 // lowpass prototype order; bandpass order is 10
	passbandLowHz    = 80.0
	passbandHighHz   = 500.0
	passbandRippleDB = 0.5
	stopbandAttenDB  = 65.0
	minMidFreqHz     = 100.0
)

// SOSSection is one second-order stage of a cascaded digital filter, with
// the denominator normalized to a0 = 1.
type SOSSection struct {
	B [3]float64
	A [3]float64
}

// BandpassFilter is the zero-phase elliptic bandpass used on referenced HFO
// signals. Design it once per sampling rate.
type BandpassFilter struct {
	FS       float64
	LowHz    float64
	HighHz   float64 // upper passband edge after Nyquist clamping
	MidHz    float64 // band split point, half the clamped upper edge
	Sections []SOSSection
}

// DesignBandpass designs the order-10 elliptic bandpass (80-500 Hz, 0.5 dB
// ripple, 65 dB attenuation) for the given sampling rate. Below 1000 Hz the
// upper edge clamps to Nyquist and the mid split to a quarter of fs; a mid
// split below 100 Hz makes the design invalid.
func DesignBandpass(fs float64) (*BandpassFilter, error) {
	if fs <= 0 {
		return nil, validationf("fs", "sampling rate must be positive, got %g", fs)
	}
	nyq := fs / 2
	high := math.Min(passbandHighHz, nyq)
	mid := high / 2
	if mid < minMidFreqHz {
		return nil, domainf("bandpass mid frequency %g Hz below %g Hz at fs=%g; sampling rate too low", mid, minMidFreqHz, fs)
	}

	z, p, k, err := ellipap(filterOrder, passbandRippleDB, stopbandAttenDB)
	if err != nil {
		return nil, err
	}

	// Pre-warp the band edges for the bilinear transform. An edge exactly at
	// Nyquist has no finite warped image, so it is pulled fractionally
	// inside.
	designHigh := high
	if designHigh >= nyq {
		designHigh = nyq * (1 - 1e-6)
	}
	w1 := 2 * fs * math.Tan(math.Pi*passbandLowHz/fs)
	w2 := 2 * fs * math.Tan(math.Pi*designHigh/fs)
	wo := math.Sqrt(w1 * w2)
	bw := w2 - w1

	z, p, k = lp2bp(z, p, k, wo, bw)
	z, p, k = bilinear(z, p, k, fs)
	sections, err := zpk2sos(z, p, k)
	if err != nil {
		return nil, err
	}

	return &BandpassFilter{
		FS:       fs,
		LowHz:    passbandLowHz,
		HighHz:   high,
		MidHz:    mid,
		Sections: sections,
	}, nil
}

// lp2bp transforms a lowpass prototype (passband edge 1 rad/s) to a bandpass
// with center wo and width bw, in zero-pole-gain form.
func lp2bp(z, p []complex128, k float64, wo, bw float64) ([]complex128, []complex128, float64) {
	degree := len(p) - len(z)
	scale := complex(bw/2, 0)
	woc := complex(wo, 0)

	transform := func(roots []complex128) []complex128 {
		out := make([]complex128, 0, 2*len(roots))
		for _, r := range roots {
			lp := r * scale
			d := cmplx.Sqrt(lp*lp - woc*woc)
			out = append(out, lp+d, lp-d)
		}
		return out
	}

	zb := transform(z)
	pb := transform(p)
	for i := 0; i < degree; i++ {
		zb = append(zb, 0)
	}
	return zb, pb, k * math.Pow(bw, float64(degree))
}

// bilinear maps analog zeros/poles/gain to the z-plane using the bilinear
// transform at sampling rate fs.
func bilinear(z, p []complex128, k float64, fs float64) ([]complex128, []complex128, float64) {
	fs2 := complex(2*fs, 0)

	zd := make([]complex128, len(z))
	for i, r := range z {
		zd[i] = (fs2 + r) / (fs2 - r)
	}
	pd := make([]complex128, len(p))
	for i, r := range p {
		pd[i] = (fs2 + r) / (fs2 - r)
	}

	num := complex(1, 0)
	for _, r := range z {
		num *= fs2 - r
	}
	den := complex(1, 0)
	for _, r := range p {
		den *= fs2 - r
	}
	kd := k * real(num/den)

	for i := 0; i < len(p)-len(z); i++ {
		zd = append(zd, -1)
	}
	return zd, pd, kd
}

// rootPair is a conjugate pair or a couple of real roots making up one
// quadratic factor.
type rootPair struct {
	r1, r2 complex128
}

func (rp rootPair) quad() (c1, c2 float64) {
	// (x - r1)(x - r2) with r2 = conj(r1) or both real.
	return -real(rp.r1 + rp.r2), real(rp.r1 * rp.r2)
}

func (rp rootPair) center() complex128 {
	return rp.r1
}

// pairRoots groups roots into conjugate pairs, coupling leftover real roots
// two at a time. The root count must be even.
func pairRoots(roots []complex128) ([]rootPair, error) {
	const tol = 1e-8
	var reals []complex128
	var complexes []complex128
	for _, r := range roots {
		if math.Abs(imag(r)) <= tol*(1+cmplx.Abs(r)) {
			reals = append(reals, complex(real(r), 0))
		} else {
			complexes = append(complexes, r)
		}
	}
	if len(roots)%2 != 0 || len(complexes)%2 != 0 {
		return nil, domainf("cannot pair %d roots into second-order sections", len(roots))
	}

	// Deterministic ordering before matching.
	sort.Slice(complexes, func(i, j int) bool {
		if real(complexes[i]) != real(complexes[j]) {
			return real(complexes[i]) < real(complexes[j])
		}
		return imag(complexes[i]) < imag(complexes[j])
	})
	sort.Slice(reals, func(i, j int) bool { return real(reals[i]) < real(reals[j]) })

	var pairs []rootPair
	used := make([]bool, len(complexes))
	for i, r := range complexes {
		if used[i] || imag(r) < 0 {
			continue
		}
		// Find its conjugate.
		best, bestDist := -1, math.Inf(1)
		for j, s := range complexes {
			if j == i || used[j] || imag(s) > 0 {
				continue
			}
			d := cmplx.Abs(s - cmplx.Conj(r))
			if d < bestDist {
				best, bestDist = j, d
			}
		}
		if best < 0 {
			return nil, domainf("unmatched complex root %v", r)
		}
		used[i], used[best] = true, true
		pairs = append(pairs, rootPair{r1: r, r2: cmplx.Conj(r)})
	}
	for i := 0; i+1 < len(reals); i += 2 {
		pairs = append(pairs, rootPair{r1: reals[i], r2: reals[i+1]})
	}
	return pairs, nil
}

// zpk2sos converts zero-pole-gain form to cascaded second-order sections.
// Pole pairs closest to the unit circle are matched with their nearest zero
// pairs and placed last in the cascade; the overall gain is spread uniformly
// across the per-section scale factors.
func zpk2sos(z, p []complex128, k float64) ([]SOSSection, error) {
	zPairs, err := pairRoots(z)
	if err != nil {
		return nil, err
	}
	pPairs, err := pairRoots(p)
	if err != nil {
		return nil, err
	}
	if len(zPairs) != len(pPairs) {
		return nil, domainf("zero/pole section count mismatch: %d vs %d", len(zPairs), len(pPairs))
	}

	// Farthest-from-unit-circle pole pairs first.
	sort.SliceStable(pPairs, func(i, j int) bool {
		di := math.Abs(1 - cmplx.Abs(pPairs[i].center()))
		dj := math.Abs(1 - cmplx.Abs(pPairs[j].center()))
		return di > dj
	})

	n := len(pPairs)
	sectionGain := 1.0
	if n > 0 {
		sectionGain = math.Copysign(math.Pow(math.Abs(k), 1/float64(n)), 1)
	}
	signDone := false

	sections := make([]SOSSection, 0, n)
	zUsed := make([]bool, len(zPairs))
	for _, pp := range pPairs {
		best, bestDist := -1, math.Inf(1)
		for j, zp := range zPairs {
			if zUsed[j] {
				continue
			}
			d := cmplx.Abs(pp.center() - zp.center())
			if d < bestDist {
				best, bestDist = j, d
			}
		}
		zUsed[best] = true

		g := sectionGain
		if !signDone && k < 0 {
			g = -g
			signDone = true
		}
		b1, b2 := zPairs[best].quad()
		a1, a2 := pp.quad()
		sections = append(sections, SOSSection{
			B: [3]float64{g, g * b1, g * b2},
			A: [3]float64{1, a1, a2},
		})
	}
	return sections, nil
}

// sosfilt runs one causal pass over x with the given initial conditions
// (one [z1, z2] state per section, already scaled), in transposed
// direct-form II.
func (f *BandpassFilter) sosfilt(x []float64, zi [][2]float64) []float64 {
	y := make([]float64, len(x))
	copy(y, x)
	for s, sec := range f.Sections {
		var st [2]float64
		if zi != nil {
			st = zi[s]
		}
		b, a := sec.B, sec.A
		for i, v := range y {
			out := b[0]*v + st[0]
			st[0] = b[1]*v - a[1]*out + st[1]
			st[1] = b[2]*v - a[2]*out
			y[i] = out
		}
	}
	return y
}

// stepState returns the steady-state filter state for a unit-step input of
// each section, scaled through the cascade's DC gains. Multiplying by the
// first input sample gives transient-minimizing initial conditions.
func (f *BandpassFilter) stepState() [][2]float64 {
	zi := make([][2]float64, len(f.Sections))
	scale := 1.0
	for s, sec := range f.Sections {
		b, a := sec.B, sec.A
		// Solve (I - A^T) zi = B for the order-2 companion form of a.
		b1 := b[1] - a[1]*b[0]
		b2 := b[2] - a[2]*b[0]
		den := 1 + a[1] + a[2]
		zi1 := (b1 + b2) / den
		zi2 := b2 - a[2]*zi1
		zi[s] = [2]float64{zi1 * scale, zi2 * scale}
		scale *= (b[0] + b[1] + b[2]) / den
	}
	return zi
}

// FiltFilt applies the filter forward and backward with odd-symmetric edge
// extension, yielding zero phase distortion.
func (f *BandpassFilter) FiltFilt(x []float64) ([]float64, error) {
	padlen := 3 * (2*len(f.Sections) + 1)
	if len(x) <= padlen {
		return nil, validationf("signal", "segment length %d too short for zero-phase filtering (need > %d samples)", len(x), padlen)
	}

	ext := oddExtend(x, padlen)
	zi := f.stepState()

	scaleState := func(v float64) [][2]float64 {
		out := make([][2]float64, len(zi))
		for i := range zi {
			out[i] = [2]float64{zi[i][0] * v, zi[i][1] * v}
		}
		return out
	}

	y := f.sosfilt(ext, scaleState(ext[0]))
	reverse(y)
	y = f.sosfilt(y, scaleState(y[0]))
	reverse(y)
	return y[padlen : len(y)-padlen], nil
}

// Apply runs FiltFilt over every column of m, returning a new matrix. A nil
// input passes through, matching empty channel groups.
func (f *BandpassFilter) Apply(m *mat.Dense) (*mat.Dense, error) {
	if m == nil {
		return nil, nil
	}
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		filtered, err := f.FiltFilt(col)
		if err != nil {
			return nil, err
		}
		out.SetCol(j, filtered)
	}
	return out, nil
}

func oddExtend(x []float64, n int) []float64 {
	ext := make([]float64, 0, len(x)+2*n)
	for i := n; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	last := len(x) - 1
	for i := 1; i <= n; i++ {
		ext = append(ext, 2*x[last]-x[last-i])
	}
	return ext
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
