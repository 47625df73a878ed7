// Package filterbank designs linear-phase octave-band FIR filters.
package filterbank

import (
	"fmt"
	"math"
	"math/cmplx"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/cwbudde/algo-dsp/dsp/filter/fir"
	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
)

// DefaultOrder is the filter order used when none is given (401 taps).
const DefaultOrder = 400

// Bank is a set of octave-band FIR filters sharing one order.
type Bank struct {
	sampleRate float64
	order      int
	centers    []float64
	cutoffs    []float64
	taps       [][]float64
}

// New designs nBands octave bands whose lowest centre is lowestHz. Band 0 is
// a lowpass, the last band a highpass and the bands in between bandpasses,
// with crossovers at sqrt(2) times each centre. An odd order is rounded up
// so every band has an integer group delay of order/2 samples.
func New(lowestHz float64, nBands, order int, sampleRate float64) (*Bank, error) {
	if nBands < 1 {
		return nil, fmt.Errorf("filterbank: need at least one band, got %d", nBands)
	}
	if lowestHz <= 0 {
		return nil, fmt.Errorf("filterbank: lowest band centre must be > 0")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("filterbank: sample rate must be > 0")
	}
	if order <= 0 {
		order = DefaultOrder
	}
	if order%2 != 0 {
		order++
	}

	b := &Bank{
		sampleRate: sampleRate,
		order:      order,
		centers:    make([]float64, nBands),
		cutoffs:    make([]float64, nBands-1),
		taps:       make([][]float64, nBands),
	}
	for band := range b.centers {
		b.centers[band] = lowestHz * math.Pow(2, float64(band))
	}
	for band := range b.cutoffs {
		b.cutoffs[band] = math.Sqrt2 * b.centers[band]
		if b.cutoffs[band] >= sampleRate/2 {
			return nil, fmt.Errorf("filterbank: crossover %.1f Hz of band %d is above Nyquist", b.cutoffs[band], band)
		}
	}

	n := order + 1
	if nBands == 1 {
		b.taps[0] = make([]float64, n)
		b.taps[0][order/2] = 1
		return b, nil
	}

	win, err := window.Hamming(n)
	if err != nil {
		return nil, fmt.Errorf("filterbank: window: %w", err)
	}
	lowpasses := make([][]float64, len(b.cutoffs))
	for i, fc := range b.cutoffs {
		lowpasses[i] = windowedSinc(fc/sampleRate, win)
	}

	for band := 0; band < nBands; band++ {
		h := make([]float64, n)
		switch {
		case band == 0:
			copy(h, lowpasses[0])
		case band == nBands-1:
			for i, v := range lowpasses[band-1] {
				h[i] = -v
			}
			h[order/2]++
			scaleAt(h, sampleRate/2, sampleRate)
		default:
			for i := range h {
				h[i] = lowpasses[band][i] - lowpasses[band-1][i]
			}
			scaleAt(h, b.centers[band], sampleRate)
		}
		b.taps[band] = h
	}
	return b, nil
}

// windowedSinc returns a lowpass with normalised cutoff fc (cycles/sample)
// and exactly unit gain at DC.
func windowedSinc(fc float64, win []float64) []float64 {
	n := len(win)
	mid := float64(n-1) / 2
	h := make([]float64, n)
	sum := 0.0
	for i := range h {
		x := float64(i) - mid
		if x == 0 {
			h[i] = 2 * fc
		} else {
			h[i] = math.Sin(2*math.Pi*fc*x) / (math.Pi * x)
		}
		h[i] *= win[i]
		sum += h[i]
	}
	for i := range h {
		h[i] /= sum
	}
	return h
}

// scaleAt normalises h to unit magnitude at freqHz.
func scaleAt(h []float64, freqHz, sampleRate float64) {
	g := cmplx.Abs(fir.New(h).Response(freqHz, sampleRate))
	if g < 1e-12 {
		return
	}
	for i := range h {
		h[i] /= g
	}
}

// NumBands returns the number of bands.
func (b *Bank) NumBands() int { return len(b.taps) }

// Order returns the filter order; every band has Order()+1 taps.
func (b *Bank) Order() int { return b.order }

// SampleRate returns the design sample rate.
func (b *Bank) SampleRate() float64 { return b.sampleRate }

// Centers returns the band centre frequencies in Hz.
func (b *Bank) Centers() []float64 { return append([]float64(nil), b.centers...) }

// Cutoffs returns the nBands-1 crossover frequencies in Hz.
func (b *Bank) Cutoffs() []float64 { return append([]float64(nil), b.cutoffs...) }

// Taps returns the coefficients of one band. The slice must not be modified.
func (b *Bank) Taps(band int) []float64 { return b.taps[band] }

// Convolvers returns one FFT convolver per band.
func (b *Bank) Convolvers() ([]*dspconv.OverlapAdd, error) {
	out := make([]*dspconv.OverlapAdd, len(b.taps))
	for band, h := range b.taps {
		oa, err := dspconv.NewOverlapAdd(h, 0)
		if err != nil {
			return nil, fmt.Errorf("filterbank: band %d convolver: %w", band, err)
		}
		out[band] = oa
	}
	return out, nil
}

// MagnitudeResponse returns |H| of the summed bank on nfft/2+1 bins from DC
// to Nyquist. nfft must be a power of two of at least Order()+1.
func (b *Bank) MagnitudeResponse(nfft int) ([]float64, error) {
	if nfft < b.order+1 {
		return nil, fmt.Errorf("filterbank: nfft %d shorter than %d taps", nfft, b.order+1)
	}
	plan, err := algofft.NewPlanReal64(nfft)
	if err != nil {
		return nil, fmt.Errorf("filterbank: fft plan: %w", err)
	}
	sum := make([]float64, nfft)
	for _, h := range b.taps {
		for i, v := range h {
			sum[i] += v
		}
	}
	spec := make([]complex128, nfft/2+1)
	plan.Forward(spec, sum)

	mag := make([]float64, len(spec))
	for k, c := range spec {
		mag[k] = cmplx.Abs(c)
	}
	return mag, nil
}
