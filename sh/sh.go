// Package sh evaluates real spherical harmonics for ambisonic encoding.
//
// Channels use ACN ordering (index n*n+n+m) and orthonormal (N3D/sqrt(4*pi))
// normalisation, so the omnidirectional component is 1/sqrt(4*pi). The
// Condon-Shortley phase is not applied.
package sh

import "math"

// MaxOrder is the highest supported spherical-harmonic order.
const MaxOrder = 7

// invSqrt4Pi scales N3D to orthonormal harmonics.
var invSqrt4Pi = 1 / math.Sqrt(4*math.Pi)

// NumChannels returns the number of ambisonic channels for order.
func NumChannels(order int) int {
	if order < 0 {
		return 0
	}
	return (order + 1) * (order + 1)
}

// Order returns the order whose channel count is channels, or -1 if
// channels is not a perfect square.
func Order(channels int) int {
	if channels < 1 {
		return -1
	}
	n := int(math.Round(math.Sqrt(float64(channels))))
	if n*n != channels {
		return -1
	}
	return n - 1
}

// UnitCartToSph returns the azimuth and elevation (radians) of v. The vector
// does not need to be normalised.
func UnitCartToSph(v [3]float64) (azimuth, elevation float64) {
	azimuth = math.Atan2(v[1], v[0])
	elevation = math.Atan2(v[2], math.Hypot(v[0], v[1]))
	return azimuth, elevation
}

// RealBasis evaluates all orthonormal real spherical harmonics up to order at
// the given azimuth and inclination (radians from +z). Multiply by
// sqrt(4*pi) for N3D. The result is written into dst when it has enough
// capacity and returned.
func RealBasis(order int, azimuth, inclination float64, dst []float64) []float64 {
	nSH := NumChannels(order)
	if cap(dst) >= nSH {
		dst = dst[:nSH]
	} else {
		dst = make([]float64, nSH)
	}
	if nSH == 0 {
		return dst
	}

	x := math.Cos(inclination)
	s := math.Sin(inclination)
	if s < 0 {
		s = -s
	}

	// p[n][m] for the current column m, built up by the standard recursion.
	pmm := 1.0
	for m := 0; m <= order; m++ {
		if m > 0 {
			pmm *= float64(2*m-1) * s
		}
		cosM := math.Cos(float64(m) * azimuth)
		sinM := math.Sin(float64(m) * azimuth)

		pPrev2 := 0.0
		pPrev1 := pmm
		for n := m; n <= order; n++ {
			var p float64
			switch n {
			case m:
				p = pmm
			case m + 1:
				p = x * float64(2*m+1) * pmm
			default:
				p = (float64(2*n-1)*x*pPrev1 - float64(n+m-1)*pPrev2) / float64(n-m)
			}
			if n > m {
				pPrev2 = pPrev1
				pPrev1 = p
			}

			norm := invSqrt4Pi * math.Sqrt(float64(2*n+1)*factorialRatio(n, m))
			if m == 0 {
				dst[n*n+n] = norm * p
				continue
			}
			norm *= math.Sqrt2
			dst[n*n+n+m] = norm * p * cosM
			dst[n*n+n-m] = norm * p * sinM
		}
	}
	return dst
}

// factorialRatio returns (n-m)!/(n+m)!.
func factorialRatio(n, m int) float64 {
	r := 1.0
	for k := n - m + 1; k <= n+m; k++ {
		r /= float64(k)
	}
	return r
}
