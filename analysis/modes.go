package analysis

import (
	"math"
	"sort"

	pdefd "github.com/cwbudde/algo-pde/fd"
	pdepoisson "github.com/cwbudde/algo-pde/poisson"
)

// ModeKind classifies a room mode by how many axes it involves.
type ModeKind int

const (
	Axial ModeKind = iota + 1
	Tangential
	Oblique
)

func (k ModeKind) String() string {
	switch k {
	case Axial:
		return "axial"
	case Tangential:
		return "tangential"
	case Oblique:
		return "oblique"
	}
	return "unknown"
}

// Mode is one standing wave of a rigid-walled shoebox room.
type Mode struct {
	Indices     [3]int   `json:"indices"`
	FrequencyHz float64  `json:"frequency_hz"`
	Kind        ModeKind `json:"kind"`
}

// DefaultModeGridPoints is the per-axis grid used by RoomModes when none is
// given.
const DefaultModeGridPoints = 1024

// RoomModes returns the rigid-wall modes of a shoebox room up to maxHz,
// sorted by frequency. Per-axis wavenumbers come from the eigenvalues of a
// periodic finite-difference Laplacian on twice the room length, whose
// spectrum equals the rigid-wall (Neumann) spectrum of the room itself. The
// discretisation error shrinks with gridPoints.
func RoomModes(dims [3]float64, speedOfSound, maxHz float64, gridPoints int) []Mode {
	if speedOfSound <= 0 || maxHz <= 0 {
		return nil
	}
	if gridPoints <= 0 {
		gridPoints = DefaultModeGridPoints
	}

	var axisFreqs [3][]float64
	for axis, l := range dims {
		if l <= 0 {
			return nil
		}
		axisFreqs[axis] = axisModeFrequencies(l, speedOfSound, maxHz, gridPoints)
	}

	var modes []Mode
	for i, fx := range axisFreqs[0] {
		for j, fy := range axisFreqs[1] {
			for k, fz := range axisFreqs[2] {
				if i == 0 && j == 0 && k == 0 {
					continue
				}
				f := math.Sqrt(fx*fx + fy*fy + fz*fz)
				if f > maxHz {
					continue
				}
				modes = append(modes, Mode{
					Indices:     [3]int{i, j, k},
					FrequencyHz: f,
					Kind:        modeKind(i, j, k),
				})
			}
		}
	}
	sort.SliceStable(modes, func(a, b int) bool {
		return modes[a].FrequencyHz < modes[b].FrequencyHz
	})
	return modes
}

// axisModeFrequencies returns the distinct 1-D mode frequencies of a length
// l up to maxHz, starting with 0 Hz.
func axisModeFrequencies(l, c, maxHz float64, n int) []float64 {
	h := 2 * l / float64(n)
	eig := pdefd.Eigenvalues(n, h, pdepoisson.Periodic)
	sort.Float64s(eig)

	var out []float64
	last := math.Inf(-1)
	for _, lambda := range eig {
		if lambda < 0 {
			lambda = 0
		}
		f := c * math.Sqrt(lambda) / (2 * math.Pi)
		// Periodic modes come in degenerate pairs.
		if f-last <= 1e-9*math.Max(1, f) {
			continue
		}
		if f > maxHz {
			break
		}
		out = append(out, f)
		last = f
	}
	return out
}

func modeKind(i, j, k int) ModeKind {
	nonZero := 0
	for _, v := range [3]int{i, j, k} {
		if v != 0 {
			nonZero++
		}
	}
	switch nonZero {
	case 1:
		return Axial
	case 2:
		return Tangential
	}
	return Oblique
}
