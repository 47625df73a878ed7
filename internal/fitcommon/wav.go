package fitcommon

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// ReadWAV returns the deinterleaved channels of a WAV file.
func ReadWAV(path string) ([][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}
	nCh := buf.Format.NumChannels
	frames := len(buf.Data) / nCh
	out := make([][]float64, nCh)
	for c := range out {
		out[c] = make([]float64, frames)
		for i := 0; i < frames; i++ {
			out[c][i] = float64(buf.Data[i*nCh+c])
		}
	}
	return out, buf.Format.SampleRate, nil
}

// ReadWAVChannel returns one channel of a WAV file, resampled to sampleRate
// when it differs from the file's rate.
func ReadWAVChannel(path string, channel int, sampleRate int) ([]float64, error) {
	chans, sr, err := ReadWAV(path)
	if err != nil {
		return nil, err
	}
	if channel < 0 || channel >= len(chans) {
		return nil, fmt.Errorf("%s has %d channels, channel %d requested", path, len(chans), channel)
	}
	return ResampleIfNeeded(chans[channel], sr, sampleRate)
}

func ResampleIfNeeded(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// WriteWAV writes equally long channels as a 16-bit interleaved WAV file.
func WriteWAV(path string, channels [][]float64, sampleRate int) error {
	if len(channels) == 0 {
		return fmt.Errorf("no channels to write")
	}
	frames := len(channels[0])
	for c, ch := range channels {
		if len(ch) != frames {
			return fmt.Errorf("channel %d has %d frames, want %d", c, len(ch), frames)
		}
	}
	nCh := len(channels)
	data := make([]float32, frames*nCh)
	for c, ch := range channels {
		for i, v := range ch {
			data[i*nCh+c] = float32(v)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, nCh, 1)
	defer enc.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: nCh,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}

// NormalizePeak scales all channels together so the largest absolute sample
// equals peak, and returns the applied gain. Silent input is left alone.
func NormalizePeak(channels [][]float64, peak float64) float64 {
	maxAbs := 0.0
	for _, ch := range channels {
		for _, v := range ch {
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
	}
	if maxAbs <= 1e-12 || peak <= 0 {
		return 1
	}
	g := peak / maxAbs
	for _, ch := range channels {
		for i := range ch {
			ch[i] *= g
		}
	}
	return g
}
