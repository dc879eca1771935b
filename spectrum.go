package hfocore

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// spectralStats holds the power-spectral-density statistics of a filtered
// segment over the HFO band.
type spectralStats struct {
	Peak     float64
	PeakFreq float64
	Mean     float64
	Var      float64
	Skew     float64
	Kurt     float64
	P25      float64
	P50      float64
	P75      float64
}

// computeSpectralStats derives PSD statistics from the one-sided amplitude
// spectrum of x, restricted to [lo, hi] Hz. x is truncated to even length
// before the FFT so the Nyquist bin is well defined.
func computeSpectralStats(x []float64, fs, lo, hi float64) spectralStats {
	n := len(x)
	if n%2 == 1 {
		n--
	}
	nan := math.NaN()
	out := spectralStats{nan, nan, nan, nan, nan, nan, nan, nan, nan}
	if n < 2 {
		return out
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, x[:n])

	// One-sided amplitude spectrum: interior bins carry both halves.
	var freqs, amps []float64
	for k, c := range coeff {
		f := float64(k) * fs / float64(n)
		if f < lo || f > hi {
			continue
		}
		a := math.Hypot(real(c), imag(c)) / float64(n)
		if k != 0 && k != n/2 {
			a *= 2
		}
		freqs = append(freqs, f)
		amps = append(amps, a)
	}
	if len(freqs) == 0 {
		return out
	}

	out.Peak = amps[0]
	out.PeakFreq = freqs[0]
	for i, a := range amps {
		if a > out.Peak {
			out.Peak = a
			out.PeakFreq = freqs[i]
		}
	}

	power := make([]float64, len(amps))
	total := 0.0
	for i, a := range amps {
		power[i] = a * a
		total += power[i]
	}
	out.Mean, out.Var, out.Skew, out.Kurt = weightedMoments(freqs, power)

	out.P25 = powerQuantile(freqs, power, total, 0.25)
	out.P50 = powerQuantile(freqs, power, total, 0.50)
	out.P75 = powerQuantile(freqs, power, total, 0.75)
	return out
}

// powerQuantile interpolates frequency against the normalized cumulative
// power curve. Quantiles falling outside the curve's domain clamp to the
// first or last in-band bin.
func powerQuantile(freqs, power []float64, total, q float64) float64 {
	if total <= 0 || len(freqs) == 0 {
		return math.NaN()
	}
	cum := 0.0
	prevC := 0.0
	prevF := freqs[0]
	for i, p := range power {
		cum += p
		c := cum / total
		if c >= q {
			if i == 0 || c == prevC {
				return freqs[i]
			}
			return prevF + (q-prevC)*(freqs[i]-prevF)/(c-prevC)
		}
		prevC = c
		prevF = freqs[i]
	}
	return freqs[len(freqs)-1]
}

// rawBandPower sums the magnitude spectrum of a raw segment zero-padded to a
// power-of-two FFT length targeting ~8 Hz resolution, split at the band mid
// point: low band [lo, mid], high band (mid, hi].
func rawBandPower(x []float64, fs, lo, mid, hi float64) (flow, fhigh, entropy float64) {
	nfft := 1
	for fs/float64(nfft) > 8 {
		nfft <<= 1
	}
	for nfft < len(x) {
		nfft <<= 1
	}

	padded := make([]float64, nfft)
	copy(padded, x)
	fft := fourier.NewFFT(nfft)
	coeff := fft.Coefficients(nil, padded)

	var inBand []float64
	for k, c := range coeff {
		f := float64(k) * fs / float64(nfft)
		if f < lo || f > hi {
			continue
		}
		m := math.Hypot(real(c), imag(c))
		if f <= mid {
			flow += m
		} else {
			fhigh += m
		}
		inBand = append(inBand, m)
	}

	// entropy = -sum(p*log2 p) + F*sum(log2 p), zero magnitudes treated as 1
	// before the log.
	total := flow + fhigh
	var s1, s2 float64
	for _, p := range inBand {
		if p == 0 {
			continue // log2(1) = 0 contributes nothing to either sum
		}
		lp := math.Log2(p)
		s1 += p * lp
		s2 += lp
	}
	entropy = -s1 + total*s2
	return flow, fhigh, entropy
}
