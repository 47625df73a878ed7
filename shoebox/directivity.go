package shoebox

import (
	"math"

	"github.com/cwbudde/algo-shoebox/sh"
)

// EncodeReceiver applies the receiver directivity to the omnidirectional
// echogram. shOrder 0 is an omnidirectional receiver; higher orders produce
// (shOrder+1)^2 ambisonic channels. The result is stored in time order, so
// its SortedIdx is the identity permutation.
func (w *Workspace) EncodeReceiver(shOrder int) {
	src := w.echogram
	dst := w.echogramRec
	nSH := sh.NumChannels(shOrder)
	n := src.Len()

	dst.Resize(n, nSH)
	for i := 0; i < n; i++ {
		k := src.SortedIdx[i]
		dst.Time[i] = src.Time[k]
		dst.Order[i] = src.Order[k]
		dst.Coords[i] = src.Coords[k]
		dst.SortedIdx[i] = i
	}

	if shOrder == 0 {
		for i := 0; i < n; i++ {
			dst.Value.Row(i)[0] = src.Value.Row(src.SortedIdx[i])[0]
		}
		return
	}

	gains := w.shGains
	for i := 0; i < n; i++ {
		azi, elev := sh.UnitCartToSph(dst.Coords[i])
		gains = sh.RealBasis(shOrder, azi, math.Pi/2-elev, gains)
		omni := src.Value.Row(src.SortedIdx[i])[0]
		row := dst.Value.Row(i)
		for ch := range row {
			row[ch] = gains[ch] * omni
		}
	}
	w.shGains = gains
}
