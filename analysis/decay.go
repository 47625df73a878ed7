package analysis

import (
	"math"
)

// EnergyDecayCurve returns the Schroeder backward-integrated energy of x in
// dB, normalised so the first sample is 0 dB. Silent input yields nil.
func EnergyDecayCurve(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	energy := make([]float64, len(x))
	acc := 0.0
	for i := len(x) - 1; i >= 0; i-- {
		acc += x[i] * x[i]
		energy[i] = acc
	}
	total := energy[0]
	if total <= 0 {
		return nil
	}
	edc := make([]float64, len(x))
	for i, e := range energy {
		if e <= 0 {
			edc[i] = -300
			continue
		}
		edc[i] = 10 * math.Log10(e/total)
	}
	return edc
}

// DecayTime fits a line to the part of edc between startDB and endDB (both
// negative, startDB > endDB) and extrapolates it to a 60 dB decay. It
// returns NaN when the curve never reaches endDB or the range is too short.
func DecayTime(edc []float64, sampleRate, startDB, endDB float64) float64 {
	if len(edc) == 0 || sampleRate <= 0 || startDB <= endDB {
		return math.NaN()
	}
	start, end := -1, -1
	for i, v := range edc {
		if start < 0 && v <= startDB {
			start = i
		}
		if v <= endDB {
			end = i
			break
		}
	}
	if start < 0 || end < 0 || end-start < 4 {
		return math.NaN()
	}
	slope := regressionSlope(edc[start:end+1], 1/sampleRate)
	if !isFinite(slope) || slope >= 0 {
		return math.NaN()
	}
	return -60 / slope
}

// EDT is the early decay time (0 to -10 dB).
func EDT(edc []float64, sampleRate float64) float64 {
	return DecayTime(edc, sampleRate, 0, -10)
}

// T20 is the reverberation time from the -5 to -25 dB range.
func T20(edc []float64, sampleRate float64) float64 {
	return DecayTime(edc, sampleRate, -5, -25)
}

// T30 is the reverberation time from the -5 to -35 dB range.
func T30(edc []float64, sampleRate float64) float64 {
	return DecayTime(edc, sampleRate, -5, -35)
}

// ReverbTime returns T30, falling back to T20 and then EDT for responses
// that do not decay far enough.
func ReverbTime(edc []float64, sampleRate float64) float64 {
	if t := T30(edc, sampleRate); isFinite(t) {
		return t
	}
	if t := T20(edc, sampleRate); isFinite(t) {
		return t
	}
	return EDT(edc, sampleRate)
}

// SabineRT60 estimates the reverberation time of a shoebox room with the
// Sabine formula. absorption is ordered x0, x1, y0, y1, z0, z1.
func SabineRT60(dims [3]float64, absorption [6]float64, speedOfSound float64) float64 {
	lx, ly, lz := dims[0], dims[1], dims[2]
	area := [6]float64{ly * lz, ly * lz, lx * lz, lx * lz, lx * ly, lx * ly}
	a := 0.0
	for i := range area {
		a += area[i] * absorption[i]
	}
	if a <= 0 || speedOfSound <= 0 {
		return math.Inf(1)
	}
	v := lx * ly * lz
	return 24 * math.Ln10 * v / (speedOfSound * a)
}
