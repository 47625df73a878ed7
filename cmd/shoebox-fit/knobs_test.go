package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-shoebox/preset"
	"github.com/cwbudde/algo-shoebox/shoebox"
)

func TestInitCandidateOneKnobPerBand(t *testing.T) {
	scene := preset.DefaultScene()
	scene.Absorption[2] = shoebox.WallAbsorption{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	centers := []float64{125, 250, 500, 1000, 2000, 4000, 8000}

	defs, cand := initCandidate(scene, centers)
	if len(defs) != len(scene.Absorption) || len(cand.Vals) != len(defs) {
		t.Fatalf("got %d defs and %d vals, want %d", len(defs), len(cand.Vals), len(scene.Absorption))
	}
	if defs[2].Name != "absorption_500hz" || defs[2].Band != 2 {
		t.Fatalf("unexpected def %+v", defs[2])
	}
	if d := cand.Vals[2] - 0.35; d > 1e-12 || d < -1e-12 {
		t.Fatalf("band 2 seed = %g, want mean 0.35", cand.Vals[2])
	}
}

func TestApplyCandidateLeavesBaseUntouched(t *testing.T) {
	base := preset.DefaultScene()
	before := base.Absorption[0]
	defs, cand := initCandidate(base, nil)
	for i := range cand.Vals {
		cand.Vals[i] = 0.5
	}
	cand.Vals[1] = 2.0

	got := applyCandidate(base, defs, cand)
	if base.Absorption[0] != before {
		t.Fatalf("base absorption mutated: %v", base.Absorption[0])
	}
	for wall, a := range got.Absorption[0] {
		if a != 0.5 {
			t.Fatalf("band 0 wall %d = %g, want 0.5", wall, a)
		}
	}
	if got.Absorption[1][3] != maxAbsorption {
		t.Fatalf("out-of-range knob not clamped: %g", got.Absorption[1][3])
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("fitted scene invalid: %v", err)
	}
}

func TestFromNormalizedMapsRange(t *testing.T) {
	defs := []knobDef{
		{Name: "a", Min: minAbsorption, Max: maxAbsorption},
		{Name: "b", Min: minAbsorption, Max: maxAbsorption},
		{Name: "c", Min: minAbsorption, Max: maxAbsorption},
	}
	c := fromNormalized([]float64{0, 1, -3}, defs)
	if c.Vals[0] != minAbsorption || c.Vals[1] != maxAbsorption || c.Vals[2] != minAbsorption {
		t.Fatalf("unexpected values %v", c.Vals)
	}
}

func TestLoadCandidateFromReportBestKnobs(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "rep.json")
	if err := os.WriteFile(reportPath, []byte(`{"best_knobs":{"absorption_125hz":0.42,"absorption_250hz":1.5}}`), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}
	defs := []knobDef{
		{Name: "absorption_125hz", Band: 0, Min: minAbsorption, Max: maxAbsorption},
		{Name: "absorption_250hz", Band: 1, Min: minAbsorption, Max: maxAbsorption},
		{Name: "absorption_500hz", Band: 2, Min: minAbsorption, Max: maxAbsorption},
	}
	fallback := candidate{Vals: []float64{0.1, 0.1, 0.1}}

	got, ok, err := loadCandidateFromReport(reportPath, defs, fallback)
	if err != nil || !ok {
		t.Fatalf("load report: ok=%v err=%v", ok, err)
	}
	if got.Vals[0] != 0.42 || got.Vals[1] != maxAbsorption || got.Vals[2] != 0.1 {
		t.Fatalf("unexpected resumed values %v", got.Vals)
	}
	if fallback.Vals[0] != 0.1 {
		t.Fatalf("fallback mutated: %v", fallback.Vals)
	}

	_, ok, err = loadCandidateFromReport(filepath.Join(t.TempDir(), "missing.json"), defs, fallback)
	if err != nil || ok {
		t.Fatalf("missing report: ok=%v err=%v", ok, err)
	}
}

func TestCloneCandidateCopiesSlice(t *testing.T) {
	orig := candidate{Vals: []float64{1.0, 2.0, 3.0}}
	cloned := cloneCandidate(orig)
	cloned.Vals[0] = 99.0
	if orig.Vals[0] != 1.0 {
		t.Fatalf("clone mutated original: got %.1f want 1.0", orig.Vals[0])
	}
}
