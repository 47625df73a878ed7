package shoebox

import (
	"sort"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// Vec3 is a point or direction in metres, indexed x, y, z.
type Vec3 [3]float64

// Echogram is a list of discrete reflection arrivals between one source and
// one receiver. Arrivals are stored in generation order; SortedIdx gives
// ascending-time order without moving the underlying data.
type Echogram struct {
	numImageSources int
	nChannels       int

	Value     *Matrix   // numImageSources x nChannels gains
	Time      []float64 // propagation time, seconds
	Order     [][3]int  // signed reflection order per axis
	Coords    []Vec3    // image position relative to the receiver
	SortedIdx []int
}

// NewEchogram returns an empty echogram.
func NewEchogram() *Echogram {
	return &Echogram{Value: &Matrix{}}
}

// Resize sets the arrival and channel counts. Storage is only touched when
// either count changes, and existing capacity is reused.
func (e *Echogram) Resize(numImageSources, nChannels int) {
	if e.numImageSources == numImageSources && e.nChannels == nChannels && len(e.Time) == numImageSources {
		return
	}
	e.numImageSources = numImageSources
	e.nChannels = nChannels
	e.Value.Resize(numImageSources, nChannels)
	e.Time = core.EnsureLen(e.Time, numImageSources)
	e.SortedIdx = resizeInts(e.SortedIdx, numImageSources)
	if cap(e.Order) >= numImageSources {
		e.Order = e.Order[:numImageSources]
	} else {
		e.Order = make([][3]int, numImageSources)
	}
	if cap(e.Coords) >= numImageSources {
		e.Coords = e.Coords[:numImageSources]
	} else {
		e.Coords = make([]Vec3, numImageSources)
	}
}

// Len returns the number of arrivals.
func (e *Echogram) Len() int { return e.numImageSources }

// Channels returns the number of gain channels per arrival.
func (e *Echogram) Channels() int { return e.nChannels }

// Gains returns the channel gains of arrival i.
func (e *Echogram) Gains(i int) []float64 { return e.Value.Row(i) }

// CopyFrom makes e an exact copy of src.
func (e *Echogram) CopyFrom(src *Echogram) {
	e.Resize(src.numImageSources, src.nChannels)
	copy(e.Value.Data(), src.Value.Data())
	copy(e.Time, src.Time)
	copy(e.Order, src.Order)
	copy(e.Coords, src.Coords)
	copy(e.SortedIdx, src.SortedIdx)
}

// sortByTime fills SortedIdx with the permutation that orders Time
// ascending. Ties keep generation order.
func (e *Echogram) sortByTime() {
	for i := range e.SortedIdx {
		e.SortedIdx[i] = i
	}
	sort.SliceStable(e.SortedIdx, func(a, b int) bool {
		return e.Time[e.SortedIdx[a]] < e.Time[e.SortedIdx[b]]
	})
}

func resizeInts(s []int, n int) []int {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]int, n)
}

func resizeBools(s []bool, n int) []bool {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]bool, n)
}
