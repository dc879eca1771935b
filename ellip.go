package hfocore

import (
	"math"
	"math/cmplx"
)

// Analog elliptic lowpass prototype design, ported from the classical Landen
// recursion formulation (Orfanidis' lecture notes on elliptic filter design)
// rather than re-derived. The prototype has its passband edge at 1 rad/s,
// passband ripple rp dB and stopband attenuation rs dB, and is returned as
// zeros, poles and gain of H(s).

const landenTol = 1e-16

// landen returns the descending sequence of Landen moduli for k.
func landen(k float64) []float64 {
	var v []float64
	for k > landenTol {
		kp := math.Sqrt(1 - k*k)
		k = (k / (1 + kp)) * (k / (1 + kp))
		v = append(v, k)
	}
	return v
}

// cde evaluates cd(u*K(k), k) for complex u in units of the quarter period.
func cde(u complex128, k float64) complex128 {
	v := landen(k)
	w := cmplx.Cos(u * math.Pi / 2)
	for i := len(v) - 1; i >= 0; i-- {
		vi := complex(v[i], 0)
		w = (1 + vi) * w / (1 + vi*w*w)
	}
	return w
}

// sne evaluates sn(u*K(k), k) for complex u in units of the quarter period.
func sne(u complex128, k float64) complex128 {
	v := landen(k)
	w := cmplx.Sin(u * math.Pi / 2)
	for i := len(v) - 1; i >= 0; i-- {
		vi := complex(v[i], 0)
		w = (1 + vi) * w / (1 + vi*w*w)
	}
	return w
}

// asne inverts sne: it returns u such that sn(u*K(k), k) = w.
func asne(w complex128, k float64) complex128 {
	v := landen(k)
	for i := range v {
		prev := k
		if i > 0 {
			prev = v[i-1]
		}
		w = 2 * w / ((1 + complex(v[i], 0)) * (1 + cmplx.Sqrt(1-w*w*complex(prev*prev, 0))))
	}
	return 2 / math.Pi * cmplx.Asin(w)
}

// ellipdeg solves the degree equation for the signal modulus k given the
// filter order and the ripple modulus k1.
func ellipdeg(n int, k1 float64) float64 {
	l := n / 2
	kc := math.Sqrt(1 - k1*k1)
	prod := 1.0
	for i := 1; i <= l; i++ {
		u := float64(2*i-1) / float64(n)
		prod *= real(sne(complex(u, 0), kc))
	}
	kp := math.Pow(kc, float64(n)) * math.Pow(prod, 4)
	return math.Sqrt(1 - kp*kp)
}

// ellipap returns the zeros, poles and gain of the analog elliptic lowpass
// prototype of order n.
func ellipap(n int, rp, rs float64) (zeros, poles []complex128, gain float64, err error) {
	if n < 1 {
		return nil, nil, 0, validationf("order", "filter order must be >= 1, got %d", n)
	}
	if rp <= 0 || rs <= rp {
		return nil, nil, 0, validationf("ripple", "need 0 < passband ripple < stopband attenuation, got %g/%g dB", rp, rs)
	}

	ep := math.Sqrt(math.Pow(10, rp/10) - 1)
	es := math.Sqrt(math.Pow(10, rs/10) - 1)
	k1 := ep / es
	k := ellipdeg(n, k1)

	l := n / 2
	for i := 1; i <= l; i++ {
		u := float64(2*i-1) / float64(n)
		zeta := real(cde(complex(u, 0), k))
		z := complex(0, 1/(k*zeta))
		zeros = append(zeros, z, cmplx.Conj(z))
	}

	v0 := asne(complex(0, 1/ep), k1) / complex(0, float64(n))
	for i := 1; i <= l; i++ {
		u := float64(2*i-1) / float64(n)
		p := complex(0, 1) * cde(complex(u, 0)-complex(0, 1)*v0, k)
		poles = append(poles, p, cmplx.Conj(p))
	}
	if n%2 == 1 {
		p0 := complex(0, 1) * sne(complex(0, 1)*v0, k)
		poles = append(poles, complex(real(p0), 0))
	}

	num := complex(1, 0)
	for _, p := range poles {
		num *= -p
	}
	den := complex(1, 0)
	for _, z := range zeros {
		den *= -z
	}
	gain = real(num / den)
	if n%2 == 0 {
		gain /= math.Sqrt(1 + ep*ep)
	}
	return zeros, poles, gain, nil
}
