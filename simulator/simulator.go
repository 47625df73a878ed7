// Package simulator runs the shoebox image-source model for several sources
// and receivers sharing one room.
package simulator

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-shoebox/filterbank"
	"github.com/cwbudde/algo-shoebox/sh"
	"github.com/cwbudde/algo-shoebox/shoebox"
)

var (
	ErrUnknownSource    = errors.New("simulator: unknown source")
	ErrUnknownReceiver  = errors.New("simulator: unknown receiver")
	ErrTooManySources   = errors.New("simulator: too many sources")
	ErrTooManyReceivers = errors.New("simulator: too many receivers")
)

type source struct {
	pos shoebox.Vec3
}

type receiver struct {
	pos     shoebox.Vec3
	shOrder int
}

type pairKey struct {
	src, rec int
}

// pair is the state of one source/receiver combination.
type pair struct {
	ws  *shoebox.Workspace
	rir *shoebox.RIR

	encodedOrder int // receiver order the band echograms were built for
	bandsStale   bool
	computed     bool
	rirStale     bool

	tails [][]float64 // per receiver channel, carried by Process
}

// Simulator owns the room, the sources, the receivers and one workspace per
// source/receiver pair. It is not safe for concurrent use.
type Simulator struct {
	cfg     Config
	bank    *filterbank.Bank
	filters []shoebox.BandFilter

	sources   []*source // nil marks a free id
	receivers []*receiver
	pairs     map[pairKey]*pair
}

// New creates a simulator with no sources or receivers.
func New(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	abs := make([]shoebox.WallAbsorption, len(cfg.Absorption))
	copy(abs, cfg.Absorption)
	cfg.Absorption = abs

	bank, err := filterbank.New(cfg.LowestOctaveHz, cfg.NumBands(), cfg.FilterOrder, cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	convs, err := bank.Convolvers()
	if err != nil {
		return nil, err
	}
	filters := make([]shoebox.BandFilter, len(convs))
	for i, c := range convs {
		filters[i] = c
	}

	return &Simulator{
		cfg:     cfg,
		bank:    bank,
		filters: filters,
		pairs:   make(map[pairKey]*pair),
	}, nil
}

// Config returns a copy of the current configuration.
func (s *Simulator) Config() Config {
	cfg := s.cfg
	cfg.Absorption = append([]shoebox.WallAbsorption(nil), s.cfg.Absorption...)
	return cfg
}

// FilterBank returns the octave-band filters used for rendering.
func (s *Simulator) FilterBank() *filterbank.Bank { return s.bank }

// NumBands returns the number of octave bands.
func (s *Simulator) NumBands() int { return s.cfg.NumBands() }

// AddSource registers a source and returns its id, the lowest free one.
func (s *Simulator) AddSource(pos shoebox.Vec3) (int, error) {
	if err := validatePosition(s.cfg.Dims, pos); err != nil {
		return -1, err
	}
	id := freeSlot(s.sources)
	if id >= s.cfg.MaxSources {
		return -1, ErrTooManySources
	}
	if id == len(s.sources) {
		s.sources = append(s.sources, nil)
	}
	s.sources[id] = &source{pos: pos}
	for rid, r := range s.receivers {
		if r != nil {
			s.pairs[pairKey{id, rid}] = s.newPair()
		}
	}
	return id, nil
}

// AddReceiver registers a spherical-harmonic receiver of the given order
// (0 is omnidirectional) and returns its id, the lowest free one.
func (s *Simulator) AddReceiver(pos shoebox.Vec3, shOrder int) (int, error) {
	if err := validatePosition(s.cfg.Dims, pos); err != nil {
		return -1, err
	}
	if err := validateSHOrder(shOrder); err != nil {
		return -1, err
	}
	id := freeSlot(s.receivers)
	if id >= s.cfg.MaxReceivers {
		return -1, ErrTooManyReceivers
	}
	if id == len(s.receivers) {
		s.receivers = append(s.receivers, nil)
	}
	s.receivers[id] = &receiver{pos: pos, shOrder: shOrder}
	for sid, src := range s.sources {
		if src != nil {
			s.pairs[pairKey{sid, id}] = s.newPair()
		}
	}
	return id, nil
}

func (s *Simulator) newPair() *pair {
	return &pair{
		ws:           shoebox.NewWorkspace(s.cfg.NumBands()),
		rir:          shoebox.NewRIR(),
		encodedOrder: -1,
		bandsStale:   true,
	}
}

// UpdateSource moves a source. The change takes effect on the next
// ComputeEchograms.
func (s *Simulator) UpdateSource(id int, pos shoebox.Vec3) error {
	src, err := s.source(id)
	if err != nil {
		return err
	}
	if err := validatePosition(s.cfg.Dims, pos); err != nil {
		return err
	}
	src.pos = pos
	return nil
}

// UpdateReceiver moves a receiver.
func (s *Simulator) UpdateReceiver(id int, pos shoebox.Vec3) error {
	rec, err := s.receiver(id)
	if err != nil {
		return err
	}
	if err := validatePosition(s.cfg.Dims, pos); err != nil {
		return err
	}
	rec.pos = pos
	return nil
}

// SetReceiverOrder changes the spherical-harmonic order of a receiver.
func (s *Simulator) SetReceiverOrder(id, shOrder int) error {
	rec, err := s.receiver(id)
	if err != nil {
		return err
	}
	if err := validateSHOrder(shOrder); err != nil {
		return err
	}
	rec.shOrder = shOrder
	return nil
}

// RemoveSource frees a source id and drops its pairs.
func (s *Simulator) RemoveSource(id int) error {
	if _, err := s.source(id); err != nil {
		return err
	}
	s.sources[id] = nil
	for k := range s.pairs {
		if k.src == id {
			delete(s.pairs, k)
		}
	}
	return nil
}

// RemoveReceiver frees a receiver id and drops its pairs.
func (s *Simulator) RemoveReceiver(id int) error {
	if _, err := s.receiver(id); err != nil {
		return err
	}
	s.receivers[id] = nil
	for k := range s.pairs {
		if k.rec == id {
			delete(s.pairs, k)
		}
	}
	return nil
}

// SourceIDs returns the ids of all registered sources in ascending order.
func (s *Simulator) SourceIDs() []int { return usedSlots(s.sources) }

// ReceiverIDs returns the ids of all registered receivers in ascending order.
func (s *Simulator) ReceiverIDs() []int { return usedSlots(s.receivers) }

// SourcePosition returns the position of a source.
func (s *Simulator) SourcePosition(id int) (shoebox.Vec3, error) {
	src, err := s.source(id)
	if err != nil {
		return shoebox.Vec3{}, err
	}
	return src.pos, nil
}

// ReceiverChannels returns the number of output channels of a receiver.
func (s *Simulator) ReceiverChannels(id int) (int, error) {
	rec, err := s.receiver(id)
	if err != nil {
		return 0, err
	}
	return sh.NumChannels(rec.shOrder), nil
}

// SetRoomDimensions resizes the room. Every source and receiver must still
// lie inside it.
func (s *Simulator) SetRoomDimensions(dims shoebox.Vec3) error {
	if err := validateDims(dims); err != nil {
		return err
	}
	for _, src := range s.sources {
		if src != nil {
			if err := validatePosition(dims, src.pos); err != nil {
				return err
			}
		}
	}
	for _, rec := range s.receivers {
		if rec != nil {
			if err := validatePosition(dims, rec.pos); err != nil {
				return err
			}
		}
	}
	s.cfg.Dims = dims
	return nil
}

// SetWallAbsorption replaces the absorption table. The band count is fixed
// at construction.
func (s *Simulator) SetWallAbsorption(abs []shoebox.WallAbsorption) error {
	if err := validateAbsorption(abs, s.cfg.NumBands()); err != nil {
		return err
	}
	copy(s.cfg.Absorption, abs)
	for _, p := range s.pairs {
		p.bandsStale = true
	}
	return nil
}

// ComputeEchograms updates the band echograms of every pair for arrivals up
// to maxTimeS seconds. Pairs whose geometry, receiver order and absorption
// are unchanged keep their echograms.
func (s *Simulator) ComputeEchograms(maxTimeS float64) error {
	if maxTimeS <= 0 {
		return fmt.Errorf("max time must be > 0, got %g", maxTimeS)
	}
	for _, k := range s.pairKeys() {
		p := s.pairs[k]
		src, rec := s.sources[k.src], s.receivers[k.rec]

		changed := p.ws.Init(s.cfg.Dims, src.pos, rec.pos, maxTimeS, s.cfg.SpeedOfSound)
		if !changed && !p.bandsStale && p.encodedOrder == rec.shOrder {
			continue
		}
		p.ws.EncodeReceiver(rec.shOrder)
		p.ws.ApplyAbsorption(s.cfg.Absorption)
		p.encodedOrder = rec.shOrder
		p.bandsStale = false
		p.computed = true
		p.rirStale = true
	}
	return nil
}

// RenderRIRs renders the room impulse response of every pair whose
// echograms changed since the last render.
func (s *Simulator) RenderRIRs() error {
	for _, k := range s.pairKeys() {
		p := s.pairs[k]
		if !p.computed || !p.rirStale {
			continue
		}
		if err := p.ws.RenderRIR(s.cfg.SampleRate, s.filters, p.rir); err != nil {
			return fmt.Errorf("source %d receiver %d: %w", k.src, k.rec, err)
		}
		p.rirStale = false
	}
	return nil
}

// RIR returns the last rendered impulse response of a pair. It has zero
// length until the pair has been computed and rendered.
func (s *Simulator) RIR(sourceID, receiverID int) (*shoebox.RIR, error) {
	p, err := s.pair(sourceID, receiverID)
	if err != nil {
		return nil, err
	}
	return p.rir, nil
}

// Echogram returns the absorption-attenuated echogram of one band.
func (s *Simulator) Echogram(sourceID, receiverID, band int) (*shoebox.Echogram, error) {
	p, err := s.pair(sourceID, receiverID)
	if err != nil {
		return nil, err
	}
	if band < 0 || band >= s.cfg.NumBands() {
		return nil, fmt.Errorf("band %d out of range [0,%d)", band, s.cfg.NumBands())
	}
	return p.ws.BandEchogram(band), nil
}

// Workspace exposes the workspace of a pair.
func (s *Simulator) Workspace(sourceID, receiverID int) (*shoebox.Workspace, error) {
	p, err := s.pair(sourceID, receiverID)
	if err != nil {
		return nil, err
	}
	return p.ws, nil
}

func (s *Simulator) source(id int) (*source, error) {
	if id < 0 || id >= len(s.sources) || s.sources[id] == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSource, id)
	}
	return s.sources[id], nil
}

func (s *Simulator) receiver(id int) (*receiver, error) {
	if id < 0 || id >= len(s.receivers) || s.receivers[id] == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownReceiver, id)
	}
	return s.receivers[id], nil
}

func (s *Simulator) pair(sourceID, receiverID int) (*pair, error) {
	if _, err := s.source(sourceID); err != nil {
		return nil, err
	}
	if _, err := s.receiver(receiverID); err != nil {
		return nil, err
	}
	return s.pairs[pairKey{sourceID, receiverID}], nil
}

// pairKeys lists the live pairs ordered by source, then receiver.
func (s *Simulator) pairKeys() []pairKey {
	keys := make([]pairKey, 0, len(s.pairs))
	for sid, src := range s.sources {
		if src == nil {
			continue
		}
		for rid, rec := range s.receivers {
			if rec != nil {
				keys = append(keys, pairKey{sid, rid})
			}
		}
	}
	return keys
}

func freeSlot[T any](slots []*T) int {
	for i, v := range slots {
		if v == nil {
			return i
		}
	}
	return len(slots)
}

func usedSlots[T any](slots []*T) []int {
	var ids []int
	for i, v := range slots {
		if v != nil {
			ids = append(ids, i)
		}
	}
	return ids
}
