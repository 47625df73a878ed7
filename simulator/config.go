package simulator

import (
	"fmt"

	"github.com/cwbudde/algo-shoebox/filterbank"
	"github.com/cwbudde/algo-shoebox/sh"
	"github.com/cwbudde/algo-shoebox/shoebox"
)

// Config describes the room and the render settings shared by every
// source/receiver pair.
type Config struct {
	Dims shoebox.Vec3 // metres

	// Absorption holds one row of six wall coefficients per octave band;
	// its length sets the number of bands.
	Absorption []shoebox.WallAbsorption

	LowestOctaveHz float64
	SpeedOfSound   float64 // m/s
	SampleRate     float64
	FilterOrder    int

	MaxSources   int
	MaxReceivers int
}

// DefaultAbsorption is a seven-band (125 Hz to 8 kHz) treatment of a
// moderately damped room.
var DefaultAbsorption = []shoebox.WallAbsorption{
	{0.180791250, 0.207307300, 0.134990800, 0.229002250, 0.212128400, 0.241055000},
	{0.225971250, 0.259113700, 0.168725200, 0.286230250, 0.265139600, 0.301295000},
	{0.258251250, 0.296128100, 0.192827600, 0.327118250, 0.303014800, 0.344335000},
	{0.301331250, 0.345526500, 0.224994001, 0.381686250, 0.353562000, 0.401775000},
	{0.361571250, 0.414601700, 0.269973200, 0.457990250, 0.424243600, 0.482095000},
	{0.451931250, 0.518214500, 0.337442000, 0.572446250, 0.530266000, 0.602575000},
	{0.602591250, 0.690971300, 0.449934800, 0.763282250, 0.707040400, 0.803455000},
}

func DefaultConfig() Config {
	abs := make([]shoebox.WallAbsorption, len(DefaultAbsorption))
	copy(abs, DefaultAbsorption)
	return Config{
		Dims:           shoebox.Vec3{10, 7, 3},
		Absorption:     abs,
		LowestOctaveHz: 125,
		SpeedOfSound:   343,
		SampleRate:     48000,
		FilterOrder:    filterbank.DefaultOrder,
		MaxSources:     16,
		MaxReceivers:   16,
	}
}

// NumBands returns the number of octave bands.
func (c *Config) NumBands() int { return len(c.Absorption) }

func (c *Config) Validate() error {
	if err := validateDims(c.Dims); err != nil {
		return err
	}
	if len(c.Absorption) < 1 {
		return fmt.Errorf("need absorption for at least one band")
	}
	if err := validateAbsorption(c.Absorption, len(c.Absorption)); err != nil {
		return err
	}
	if c.LowestOctaveHz <= 0 {
		return fmt.Errorf("lowest octave must be > 0")
	}
	if c.SpeedOfSound <= 0 {
		return fmt.Errorf("speed of sound must be > 0")
	}
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %g", c.SampleRate)
	}
	if c.FilterOrder < 0 {
		return fmt.Errorf("filter order must be >= 0")
	}
	if c.MaxSources < 1 || c.MaxReceivers < 1 {
		return fmt.Errorf("max sources and receivers must be >= 1")
	}
	return nil
}

func validateDims(d shoebox.Vec3) error {
	for axis, v := range d {
		if v <= 0 {
			return fmt.Errorf("room dimension %d must be > 0, got %g", axis, v)
		}
	}
	return nil
}

func validateAbsorption(abs []shoebox.WallAbsorption, nBands int) error {
	if len(abs) != nBands {
		return fmt.Errorf("absorption has %d bands, want %d", len(abs), nBands)
	}
	for band, row := range abs {
		for wall, a := range row {
			if a < 0 || a >= 1 {
				return fmt.Errorf("absorption band %d wall %d out of [0,1): %g", band, wall, a)
			}
		}
	}
	return nil
}

func validatePosition(d, p shoebox.Vec3) error {
	for axis := range p {
		if p[axis] < 0 || p[axis] > d[axis] {
			return fmt.Errorf("position %v outside room %v", p, d)
		}
	}
	return nil
}

func validateSHOrder(order int) error {
	if order < 0 || order > sh.MaxOrder {
		return fmt.Errorf("sh order must be in [0,%d], got %d", sh.MaxOrder, order)
	}
	return nil
}
