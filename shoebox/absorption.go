package shoebox

import "math"

// WallAbsorption holds the absorption coefficients of the six walls for one
// octave band, ordered x0, x1, y0, y1, z0, z1. Each must lie in [0, 1).
type WallAbsorption [6]float64

// ReflectionCoefficients returns sqrt(1-alpha) for every wall.
func (a WallAbsorption) ReflectionCoefficients() [6]float64 {
	var r [6]float64
	for i, alpha := range a {
		r[i] = math.Sqrt(1 - alpha)
	}
	return r
}

// ApplyAbsorption writes one attenuated copy of the receiver echogram per
// octave band. absWall must have at least NumBands rows.
func (w *Workspace) ApplyAbsorption(absWall []WallAbsorption) {
	rec := w.echogramRec
	for band := 0; band < w.nBands; band++ {
		ec := w.echogramAbs[band]
		ec.CopyFrom(rec)

		r := absWall[band].ReflectionCoefficients()
		for i := 0; i < ec.Len(); i++ {
			att := ReflectionAttenuation(ec.Order[i], r)
			row := ec.Value.Row(i)
			for ch := range row {
				row[ch] *= att
			}
		}
	}
}

// ReflectionAttenuation returns the total wall attenuation of an image
// source with the given signed reflection order. The sign and parity of
// each axis order decide which of the two opposing walls is hit once more.
func ReflectionAttenuation(order [3]int, r [6]float64) float64 {
	att := 1.0
	for axis := 0; axis < 3; axis++ {
		att *= axisAttenuation(order[axis], r[2*axis], r[2*axis+1])
	}
	return att
}

func axisAttenuation(m int, r0, r1 float64) float64 {
	absM := m
	if absM < 0 {
		absM = -absM
	}
	half := float64(absM / 2)
	switch {
	case m%2 == 0:
		return math.Pow(r0, half) * math.Pow(r1, half)
	case m > 0:
		return math.Pow(r0, half+1) * math.Pow(r1, half)
	default:
		return math.Pow(r0, half) * math.Pow(r1, half+1)
	}
}
