package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-shoebox/filterbank"
	"github.com/cwbudde/algo-shoebox/sh"
	"github.com/cwbudde/algo-shoebox/shoebox"
	"github.com/cwbudde/algo-shoebox/simulator"
)

// Scene is a complete room simulation setup.
type Scene struct {
	RoomDims       shoebox.Vec3
	Absorption     []shoebox.WallAbsorption
	LowestOctaveHz float64
	SpeedOfSound   float64
	SampleRate     float64
	MaxTimeS       float64
	FilterOrder    int

	Sources   []shoebox.Vec3
	Receivers []Receiver

	ReferenceWAVPath string
}

// Receiver is a spherical-harmonic microphone in a scene.
type Receiver struct {
	Position shoebox.Vec3
	SHOrder  int
}

// DefaultScene returns a 10 x 7 x 3 m room with one source and a third-order
// receiver.
func DefaultScene() *Scene {
	cfg := simulator.DefaultConfig()
	return &Scene{
		RoomDims:       cfg.Dims,
		Absorption:     cfg.Absorption,
		LowestOctaveHz: cfg.LowestOctaveHz,
		SpeedOfSound:   cfg.SpeedOfSound,
		SampleRate:     cfg.SampleRate,
		MaxTimeS:       0.05,
		FilterOrder:    cfg.FilterOrder,
		Sources:        []shoebox.Vec3{{5.1, 6.0, 1.1}},
		Receivers:      []Receiver{{Position: shoebox.Vec3{8.8, 5.5, 0.9}, SHOrder: 3}},
	}
}

// File is the JSON schema for scene presets. Absent fields keep their
// defaults; sources and receivers replace the default lists when present.
type File struct {
	RoomDims         *[3]float64     `json:"room_dims"`
	Absorption       [][]float64     `json:"absorption"`
	LowestOctaveHz   *float64        `json:"lowest_octave_hz"`
	SpeedOfSound     *float64        `json:"speed_of_sound"`
	SampleRate       *float64        `json:"sample_rate"`
	MaxTimeS         *float64        `json:"max_time_s"`
	FilterOrder      *int            `json:"filter_order"`
	Sources          []SourceEntry   `json:"sources"`
	Receivers        []ReceiverEntry `json:"receivers"`
	ReferenceWAVPath string          `json:"reference_wav_path"`
}

// SourceEntry is one source in a preset file.
type SourceEntry struct {
	Position [3]float64 `json:"position"`
}

// ReceiverEntry is one receiver in a preset file. sh_order defaults to 0.
type ReceiverEntry struct {
	Position [3]float64 `json:"position"`
	SHOrder  *int       `json:"sh_order,omitempty"`
}

// LoadJSON loads a scene JSON file and applies it on top of the default
// scene. A relative reference path is resolved against the file's directory.
func LoadJSON(path string) (*Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	s := DefaultScene()
	if err := ApplyFile(s, &f); err != nil {
		return nil, err
	}

	if s.ReferenceWAVPath != "" && !filepath.IsAbs(s.ReferenceWAVPath) {
		base := filepath.Dir(path)
		s.ReferenceWAVPath = filepath.Clean(filepath.Join(base, s.ReferenceWAVPath))
	}
	return s, nil
}

// ApplyFile applies a parsed preset file onto an existing scene.
func ApplyFile(dst *Scene, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination scene")
	}
	if f == nil {
		return nil
	}

	if f.RoomDims != nil {
		for axis, v := range f.RoomDims {
			if v <= 0 {
				return fmt.Errorf("room_dims[%d] must be > 0", axis)
			}
		}
		dst.RoomDims = shoebox.Vec3(*f.RoomDims)
	}
	if len(f.Absorption) > 0 {
		abs := make([]shoebox.WallAbsorption, len(f.Absorption))
		for band, row := range f.Absorption {
			if len(row) != 6 {
				return fmt.Errorf("absorption[%d] needs 6 walls, got %d", band, len(row))
			}
			for wall, a := range row {
				if a < 0 || a >= 1 {
					return fmt.Errorf("absorption[%d][%d] must be in [0,1)", band, wall)
				}
				abs[band][wall] = a
			}
		}
		dst.Absorption = abs
	}
	if f.LowestOctaveHz != nil {
		if *f.LowestOctaveHz <= 0 {
			return fmt.Errorf("lowest_octave_hz must be > 0")
		}
		dst.LowestOctaveHz = *f.LowestOctaveHz
	}
	if f.SpeedOfSound != nil {
		if *f.SpeedOfSound <= 0 {
			return fmt.Errorf("speed_of_sound must be > 0")
		}
		dst.SpeedOfSound = *f.SpeedOfSound
	}
	if f.SampleRate != nil {
		if *f.SampleRate < 8000 {
			return fmt.Errorf("sample_rate must be >= 8000")
		}
		dst.SampleRate = *f.SampleRate
	}
	if f.MaxTimeS != nil {
		if *f.MaxTimeS <= 0 {
			return fmt.Errorf("max_time_s must be > 0")
		}
		dst.MaxTimeS = *f.MaxTimeS
	}
	if f.FilterOrder != nil {
		if *f.FilterOrder < 0 {
			return fmt.Errorf("filter_order must be >= 0")
		}
		dst.FilterOrder = *f.FilterOrder
	}
	if f.Sources != nil {
		dst.Sources = make([]shoebox.Vec3, len(f.Sources))
		for i, e := range f.Sources {
			dst.Sources[i] = shoebox.Vec3(e.Position)
		}
	}
	if f.Receivers != nil {
		dst.Receivers = make([]Receiver, len(f.Receivers))
		for i, e := range f.Receivers {
			r := Receiver{Position: shoebox.Vec3(e.Position)}
			if e.SHOrder != nil {
				if *e.SHOrder < 0 || *e.SHOrder > sh.MaxOrder {
					return fmt.Errorf("receivers[%d].sh_order must be in [0,%d]", i, sh.MaxOrder)
				}
				r.SHOrder = *e.SHOrder
			}
			dst.Receivers[i] = r
		}
	}
	if f.ReferenceWAVPath != "" {
		dst.ReferenceWAVPath = strings.TrimSpace(f.ReferenceWAVPath)
	}
	return nil
}

// SimulatorConfig returns the simulator configuration of the scene.
func (s *Scene) SimulatorConfig() simulator.Config {
	cfg := simulator.DefaultConfig()
	cfg.Dims = s.RoomDims
	cfg.Absorption = append([]shoebox.WallAbsorption(nil), s.Absorption...)
	cfg.LowestOctaveHz = s.LowestOctaveHz
	cfg.SpeedOfSound = s.SpeedOfSound
	cfg.SampleRate = s.SampleRate
	cfg.FilterOrder = s.FilterOrder
	if len(s.Sources) > cfg.MaxSources {
		cfg.MaxSources = len(s.Sources)
	}
	if len(s.Receivers) > cfg.MaxReceivers {
		cfg.MaxReceivers = len(s.Receivers)
	}
	return cfg
}

// Validate checks the scene as a whole, including positions against the
// room.
func (s *Scene) Validate() error {
	cfg := s.SimulatorConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if s.MaxTimeS <= 0 {
		return fmt.Errorf("max time must be > 0")
	}
	if _, err := filterbank.New(s.LowestOctaveHz, len(s.Absorption), s.FilterOrder, s.SampleRate); err != nil {
		return err
	}
	if len(s.Sources) == 0 || len(s.Receivers) == 0 {
		return fmt.Errorf("scene needs at least one source and one receiver")
	}
	for i, p := range s.Sources {
		if !inside(s.RoomDims, p) {
			return fmt.Errorf("source %d at %v is outside the room", i, p)
		}
	}
	for i, r := range s.Receivers {
		if !inside(s.RoomDims, r.Position) {
			return fmt.Errorf("receiver %d at %v is outside the room", i, r.Position)
		}
		if r.SHOrder < 0 || r.SHOrder > sh.MaxOrder {
			return fmt.Errorf("receiver %d sh order %d out of range", i, r.SHOrder)
		}
	}
	return nil
}

// NewSimulator builds a simulator holding the scene's sources and receivers.
// Their ids match their indices in the scene.
func (s *Scene) NewSimulator() (*simulator.Simulator, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	sim, err := simulator.New(s.SimulatorConfig())
	if err != nil {
		return nil, err
	}
	for _, p := range s.Sources {
		if _, err := sim.AddSource(p); err != nil {
			return nil, err
		}
	}
	for _, r := range s.Receivers {
		if _, err := sim.AddReceiver(r.Position, r.SHOrder); err != nil {
			return nil, err
		}
	}
	return sim, nil
}

func inside(dims, p shoebox.Vec3) bool {
	for axis := range p {
		if p[axis] < 0 || p[axis] > dims[axis] {
			return false
		}
	}
	return true
}

// WriteJSON writes s as a preset file. The reference path is stored
// relative to the preset's directory when possible.
func WriteJSON(path string, s *Scene) error {
	type sourceOut struct {
		Position [3]float64 `json:"position"`
	}
	type receiverOut struct {
		Position [3]float64 `json:"position"`
		SHOrder  int        `json:"sh_order"`
	}
	type out struct {
		RoomDims         [3]float64    `json:"room_dims"`
		Absorption       [][]float64   `json:"absorption"`
		LowestOctaveHz   float64       `json:"lowest_octave_hz"`
		SpeedOfSound     float64       `json:"speed_of_sound"`
		SampleRate       float64       `json:"sample_rate"`
		MaxTimeS         float64       `json:"max_time_s"`
		FilterOrder      int           `json:"filter_order"`
		Sources          []sourceOut   `json:"sources"`
		Receivers        []receiverOut `json:"receivers"`
		ReferenceWAVPath string        `json:"reference_wav_path,omitempty"`
	}

	o := out{
		RoomDims:         [3]float64(s.RoomDims),
		Absorption:       make([][]float64, len(s.Absorption)),
		LowestOctaveHz:   s.LowestOctaveHz,
		SpeedOfSound:     s.SpeedOfSound,
		SampleRate:       s.SampleRate,
		MaxTimeS:         s.MaxTimeS,
		FilterOrder:      s.FilterOrder,
		Sources:          make([]sourceOut, len(s.Sources)),
		Receivers:        make([]receiverOut, len(s.Receivers)),
		ReferenceWAVPath: relativeTo(path, s.ReferenceWAVPath),
	}
	for band, row := range s.Absorption {
		o.Absorption[band] = append([]float64(nil), row[:]...)
	}
	for i, p := range s.Sources {
		o.Sources[i] = sourceOut{Position: [3]float64(p)}
	}
	for i, r := range s.Receivers {
		o.Receivers[i] = receiverOut{Position: [3]float64(r.Position), SHOrder: r.SHOrder}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

func relativeTo(presetPath, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}

	presetDirAbs, err := filepath.Abs(filepath.Dir(presetPath))
	if err != nil {
		return p
	}
	abs := p
	if !filepath.IsAbs(abs) {
		abs, err = filepath.Abs(abs)
		if err != nil {
			return p
		}
	}
	rel, err := filepath.Rel(presetDirAbs, abs)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}
