package simulator

import (
	"fmt"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/cwbudde/algo-shoebox/sh"
)

// Process convolves one block of every source signal with the pair's RIR
// and mixes the result into the receiver's channels. inputs maps source ids
// to equally long blocks; sources without an entry are treated as silent
// but their reverberant tails keep playing. Tails are carried between calls,
// so consecutive blocks join seamlessly.
func (s *Simulator) Process(receiverID int, inputs map[int][]float64) ([][]float64, error) {
	rec, err := s.receiver(receiverID)
	if err != nil {
		return nil, err
	}
	blockLen := -1
	for id, x := range inputs {
		if _, err := s.source(id); err != nil {
			return nil, err
		}
		if blockLen >= 0 && len(x) != blockLen {
			return nil, fmt.Errorf("source %d block has %d samples, want %d", id, len(x), blockLen)
		}
		blockLen = len(x)
	}
	if blockLen <= 0 {
		return nil, fmt.Errorf("process: no input samples")
	}

	nCh := sh.NumChannels(rec.shOrder)
	out := make([][]float64, nCh)
	for ch := range out {
		out[ch] = make([]float64, blockLen)
	}

	for sid, src := range s.sources {
		if src == nil {
			continue
		}
		p := s.pairs[pairKey{sid, receiverID}]
		if len(p.tails) != nCh {
			p.tails = make([][]float64, nCh)
		}
		x := inputs[sid]
		for ch := 0; ch < nCh; ch++ {
			var y []float64
			if len(x) > 0 && ch < p.rir.Channels() && p.rir.Len() > 0 {
				y, err = dspconv.Convolve(x, p.rir.Channel(ch))
				if err != nil {
					return nil, fmt.Errorf("source %d channel %d: %w", sid, ch, err)
				}
			}
			var block []float64
			block, p.tails[ch] = overlapAddBlock(y, p.tails[ch], blockLen)
			for i, v := range block {
				out[ch][i] += v
			}
		}
	}
	return out, nil
}

// Reset drops every convolution tail.
func (s *Simulator) Reset() {
	for _, p := range s.pairs {
		p.tails = nil
	}
}

// overlapAddBlock adds the carried tail to a fresh convolution output and
// splits the sum into one block and the remainder.
func overlapAddBlock(convOut, tail []float64, blockLen int) ([]float64, []float64) {
	n := len(convOut)
	if len(tail) > n {
		n = len(tail)
	}
	if n < blockLen {
		n = blockLen
	}
	full := make([]float64, n)
	copy(full, convOut)
	for i, v := range tail {
		full[i] += v
	}

	out := full[:blockLen:blockLen]
	if n == blockLen {
		return out, nil
	}
	return out, full[blockLen:]
}
