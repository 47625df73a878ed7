package shoebox

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// BandFilter convolves a signal with one octave band's FIR response.
// *conv.OverlapAdd from algo-dsp satisfies it. The kernel must be linear
// phase with an odd length, so its group delay (KernelLen()-1)/2 is a whole
// number of samples; filterbank.New always designs such kernels.
type BandFilter interface {
	KernelLen() int
	// ProcessTo writes the full linear convolution of input into output,
	// which must hold len(input)+KernelLen()-1 samples.
	ProcessTo(output, input []float64) error
}

// RIR is a multichannel room impulse response.
type RIR struct {
	Data          *Matrix // channels x samples
	LengthSeconds float64
	SampleRate    float64
}

// NewRIR returns an empty RIR.
func NewRIR() *RIR {
	return &RIR{Data: &Matrix{}}
}

// Channels returns the number of channels.
func (r *RIR) Channels() int { return r.Data.Rows() }

// Len returns the length in samples.
func (r *RIR) Len() int { return r.Data.Cols() }

// Channel returns the samples of channel ch.
func (r *RIR) Channel(ch int) []float64 { return r.Data.Row(ch) }

// RIRLength returns the number of samples a render of ec at fs produces.
// An empty echogram yields the minimum length of two samples.
func RIRLength(ec *Echogram, fs float64) int {
	endTime := 0.0
	if n := ec.Len(); n > 0 {
		endTime = ec.Time[n-1]
	}
	return int(endTime*fs+1) + 1
}

// RenderRIR renders the band echograms into rir at sample rate fs. Each
// arrival is placed on its nearest sample, every band is filtered with its
// band filter and all bands are summed. The filters are assumed linear
// phase, so their group delay is removed. rir is resized in place only when
// its shape changes. filters must hold one odd-length filter per band.
func (w *Workspace) RenderRIR(fs float64, filters []BandFilter, rir *RIR) error {
	if len(filters) < w.nBands {
		return fmt.Errorf("render rir: %d band filters for %d bands", len(filters), w.nBands)
	}
	for band := 0; band < w.nBands; band++ {
		if k := filters[band].KernelLen(); k < 1 || k%2 == 0 {
			return fmt.Errorf("render rir: band %d kernel length %d, want odd", band, k)
		}
	}

	for band := 0; band < w.nBands; band++ {
		ec := w.echogramAbs[band]
		w.rirLenSamples = RIRLength(ec, fs)
		w.rirLenSeconds = float64(w.rirLenSamples) / fs

		impulses := w.rirBands[band]
		impulses.Resize(ec.Channels(), w.rirLenSamples)
		impulses.Zero()
		for i := 0; i < ec.Len(); i++ {
			idx := int(math.Round(ec.Time[i] * fs))
			gains := ec.Value.Row(i)
			for ch, g := range gains {
				impulses.Row(ch)[idx] += g
			}
		}
	}

	nChannels := w.echogramAbs[0].Channels()
	rir.Data.Resize(nChannels, w.rirLenSamples)
	rir.Data.Zero()
	rir.LengthSeconds = w.rirLenSeconds
	rir.SampleRate = fs

	for band := 0; band < w.nBands; band++ {
		f := filters[band]
		k := f.KernelLen()
		delay := (k - 1) / 2
		w.rirScratch = core.EnsureLen(w.rirScratch, w.rirLenSamples+k-1)

		impulses := w.rirBands[band]
		for ch := 0; ch < impulses.Rows(); ch++ {
			if err := f.ProcessTo(w.rirScratch, impulses.Row(ch)); err != nil {
				return fmt.Errorf("render rir: band %d channel %d: %w", band, ch, err)
			}
			out := rir.Data.Row(ch)
			filtered := w.rirScratch[delay : delay+w.rirLenSamples]
			for i, v := range filtered {
				out[i] += v
			}
		}
	}
	return nil
}
