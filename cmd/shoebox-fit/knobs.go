package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	fitcommon "github.com/cwbudde/algo-shoebox/internal/fitcommon"
	"github.com/cwbudde/algo-shoebox/preset"
	"github.com/cwbudde/algo-shoebox/shoebox"
)

const (
	minAbsorption = 0.01
	maxAbsorption = 0.95
)

type knobDef struct {
	Name string
	Band int
	Min  float64
	Max  float64
}

type candidate struct {
	Vals []float64
}

// initCandidate returns one uniform absorption knob per band, seeded with the
// scene's mean wall absorption of that band.
func initCandidate(scene *preset.Scene, centers []float64) ([]knobDef, candidate) {
	defs := make([]knobDef, len(scene.Absorption))
	vals := make([]float64, len(scene.Absorption))
	for band, abs := range scene.Absorption {
		name := fmt.Sprintf("band_%d", band)
		if band < len(centers) {
			name = fmt.Sprintf("absorption_%.0fhz", centers[band])
		}
		defs[band] = knobDef{Name: name, Band: band, Min: minAbsorption, Max: maxAbsorption}

		mean := 0.0
		for _, a := range abs {
			mean += a
		}
		vals[band] = fitcommon.Clamp(mean/6, minAbsorption, maxAbsorption)
	}
	return defs, candidate{Vals: vals}
}

// absorptionTable expands the candidate into a per-band wall table.
func absorptionTable(nBands int, defs []knobDef, c candidate) []shoebox.WallAbsorption {
	abs := make([]shoebox.WallAbsorption, nBands)
	for i, d := range defs {
		if d.Band < 0 || d.Band >= nBands {
			continue
		}
		v := fitcommon.Clamp(c.Vals[i], d.Min, d.Max)
		for wall := range abs[d.Band] {
			abs[d.Band][wall] = v
		}
	}
	return abs
}

// applyCandidate returns a copy of base with the candidate's absorption.
func applyCandidate(base *preset.Scene, defs []knobDef, c candidate) *preset.Scene {
	s := *base
	s.Sources = append([]shoebox.Vec3(nil), base.Sources...)
	s.Receivers = append([]preset.Receiver(nil), base.Receivers...)
	s.Absorption = absorptionTable(len(base.Absorption), defs, c)
	return &s
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = fitcommon.Clamp(pos[i], 0, 1)
		}
		vals[i] = defs[i].Min + x*(defs[i].Max-defs[i].Min)
	}
	return candidate{Vals: vals}
}

func cloneCandidate(c candidate) candidate {
	return candidate{Vals: append([]float64(nil), c.Vals...)}
}

func knobMap(defs []knobDef, c candidate) map[string]float64 {
	knobs := make(map[string]float64, len(defs))
	for i, d := range defs {
		knobs[d.Name] = c.Vals[i]
	}
	return knobs
}

func loadCandidateFromReport(path string, defs []knobDef, fallback candidate) (candidate, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, false, nil
		}
		return fallback, false, err
	}
	var rep runReport
	if err := json.Unmarshal(b, &rep); err != nil {
		return fallback, false, err
	}
	if len(rep.BestKnobs) == 0 {
		return fallback, false, nil
	}

	vals := append([]float64(nil), fallback.Vals...)
	updated := false
	for i, d := range defs {
		if v, ok := rep.BestKnobs[d.Name]; ok && !math.IsNaN(v) {
			vals[i] = fitcommon.Clamp(v, d.Min, d.Max)
			updated = true
		}
	}
	if !updated {
		return fallback, false, nil
	}
	return candidate{Vals: vals}, true, nil
}
