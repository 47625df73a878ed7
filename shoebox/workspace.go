package shoebox

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// Workspace holds everything the image-source method needs for one
// source/receiver pair. It caches the last geometry so repeated calls with
// unchanged inputs do no work. A Workspace must not be shared between
// goroutines without external locking.
type Workspace struct {
	nBands int

	// Cache keys.
	dMax float64
	c    float64
	room Vec3
	src  Vec3 // room-centred
	rec  Vec3 // room-centred

	// Lattice geometry, rebuilt when dMax or room change.
	nx, ny, nz int
	lengthVec  int
	ii, jj, kk []float64

	// Per lattice point scratch, rebuilt when any position changes.
	validIDs        []bool
	sx, sy, sz, sd  []float64
	numImageSources int
	imagesStale     bool

	echogram    *Echogram   // omnidirectional, generation order
	echogramRec *Echogram   // receiver directivity applied, time order
	echogramAbs []*Echogram // one per octave band
	shGains     []float64

	rirBands      []*Matrix
	rirScratch    []float64
	rirLenSamples int
	rirLenSeconds float64

	latticeBuilds int
	imageUpdates  int
}

// NewWorkspace creates a workspace that models nBands octave bands.
func NewWorkspace(nBands int) *Workspace {
	if nBands < 1 {
		nBands = 1
	}
	w := &Workspace{
		nBands:      nBands,
		imagesStale: true,
		echogram:    NewEchogram(),
		echogramRec: NewEchogram(),
		echogramAbs: make([]*Echogram, nBands),
		rirBands:    make([]*Matrix, nBands),
	}
	for band := range w.echogramAbs {
		w.echogramAbs[band] = NewEchogram()
		w.rirBands[band] = &Matrix{}
	}
	return w
}

// NumBands returns the number of octave bands modelled.
func (w *Workspace) NumBands() int { return w.nBands }

// NumImageSources returns the number of image sources within the last
// maximum distance.
func (w *Workspace) NumImageSources() int { return w.numImageSources }

// LatticeSize returns the number of lattice points currently enumerated.
func (w *Workspace) LatticeSize() int { return w.lengthVec }

// Counters returns how often the lattice was rebuilt and how often image
// sources were recomputed.
func (w *Workspace) Counters() (latticeBuilds, imageUpdates int) {
	return w.latticeBuilds, w.imageUpdates
}

// Echogram returns the omnidirectional echogram (generation order).
func (w *Workspace) Echogram() *Echogram { return w.echogram }

// ReceiverEchogram returns the directivity-encoded echogram (time order).
func (w *Workspace) ReceiverEchogram() *Echogram { return w.echogramRec }

// BandEchogram returns the absorption-attenuated echogram of one band.
func (w *Workspace) BandEchogram(band int) *Echogram { return w.echogramAbs[band] }

// Init generates the omnidirectional echogram of every image source closer
// than maxTimeS*c to the receiver. Room dimensions must be positive; this is
// not checked. The lattice is only rebuilt when the maximum distance or the
// room change, and image positions are only recomputed when the room, the
// source, the receiver or the speed of sound change. Init reports whether the
// echogram changed.
func (w *Workspace) Init(room Vec3, src, rec Vec3, maxTimeS, c float64) bool {
	dMax := maxTimeS * c

	// Origin at the room centre; y is mirrored.
	srcOrig := Vec3{src[0] - room[0]/2, room[1]/2 - src[1], src[2] - room[2]/2}
	recOrig := Vec3{rec[0] - room[0]/2, room[1]/2 - rec[1], rec[2] - room[2]/2}

	roomChanged := w.room != room
	if w.dMax != dMax || roomChanged {
		w.buildLattice(room, dMax)
	}
	if w.c != c {
		w.c = c
		w.imagesStale = true
	}

	if !w.imagesStale && w.src == srcOrig && w.rec == recOrig && !roomChanged {
		return false
	}
	w.room = room
	w.src = srcOrig
	w.rec = recOrig
	w.updateImageSources(c)
	return true
}

func (w *Workspace) buildLattice(room Vec3, dMax float64) {
	w.dMax = dMax
	w.latticeBuilds++
	w.nx = int(dMax/room[0]) + 1
	w.ny = int(dMax/room[1]) + 1
	w.nz = int(dMax/room[2]) + 1
	w.lengthVec = (2*w.nx + 1) * (2*w.ny + 1) * (2*w.nz + 1)

	w.ii = core.EnsureLen(w.ii, w.lengthVec)
	w.jj = core.EnsureLen(w.jj, w.lengthVec)
	w.kk = core.EnsureLen(w.kk, w.lengthVec)
	i, j, k := -w.nx, -w.ny, -w.nz
	for n := 0; n < w.lengthVec; n++ {
		w.ii[n] = float64(i)
		w.jj[n] = float64(j)
		w.kk[n] = float64(k)
		i++
		if i > w.nx {
			i = -w.nx
			j++
		}
		if j > w.ny {
			j = -w.ny
			k++
		}
		if k > w.nz {
			k = -w.nz
		}
	}

	w.validIDs = resizeBools(w.validIDs, w.lengthVec)
	w.sx = core.EnsureLen(w.sx, w.lengthVec)
	w.sy = core.EnsureLen(w.sy, w.lengthVec)
	w.sz = core.EnsureLen(w.sz, w.lengthVec)
	w.sd = core.EnsureLen(w.sd, w.lengthVec)

	// Scratch contents no longer line up with the lattice.
	w.imagesStale = true
}

func (w *Workspace) updateImageSources(c float64) {
	w.imageUpdates++
	w.imagesStale = false
	room, src, rec := w.room, w.src, w.rec

	for n := 0; n < w.lengthVec; n++ {
		w.sx[n] = w.ii[n]*room[0] + mirrorSign(w.ii[n])*src[0] - rec[0]
		w.sy[n] = w.jj[n]*room[1] + mirrorSign(w.jj[n])*src[1] - rec[1]
		w.sz[n] = w.kk[n]*room[2] + mirrorSign(w.kk[n])*src[2] - rec[2]
		w.sd[n] = math.Sqrt(w.sx[n]*w.sx[n] + w.sy[n]*w.sy[n] + w.sz[n]*w.sz[n])
	}

	w.numImageSources = 0
	for n := 0; n < w.lengthVec; n++ {
		w.validIDs[n] = w.sd[n] < w.dMax
		if w.validIDs[n] {
			w.numImageSources++
		}
	}

	ec := w.echogram
	ec.Resize(w.numImageSources, 1)
	v := 0
	for n := 0; n < w.lengthVec; n++ {
		if !w.validIDs[n] {
			continue
		}
		d := w.sd[n]
		ec.Time[v] = d / c
		// No amplification inside one metre.
		if d <= 1 {
			ec.Value.Row(v)[0] = 1
		} else {
			ec.Value.Row(v)[0] = 1 / d
		}
		ec.Order[v] = [3]int{roundIndex(w.ii[n]), roundIndex(w.jj[n]), roundIndex(w.kk[n])}
		ec.Coords[v] = Vec3{w.sx[n], w.sy[n], w.sz[n]}
		v++
	}
	ec.sortByTime()
}

// mirrorSign returns (-1)^i for an integral i.
func mirrorSign(i float64) float64 {
	if int(math.Abs(i))%2 == 1 {
		return -1
	}
	return 1
}

func roundIndex(x float64) int {
	return int(math.Round(x))
}
