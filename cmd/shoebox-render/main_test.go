package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	fitcommon "github.com/cwbudde/algo-shoebox/internal/fitcommon"
	"github.com/cwbudde/algo-shoebox/preset"
)

func smallScene() *preset.Scene {
	s := preset.DefaultScene()
	s.FilterOrder = 32
	s.MaxTimeS = 0.02
	s.Receivers[0].SHOrder = 1
	return s
}

func TestWritePairsOneFilePerPair(t *testing.T) {
	scene := smallScene()
	scene.Sources = append(scene.Sources, scene.Sources[0])
	scene.Sources[1][0] = 2.0
	sim, err := simulate(scene)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	dir := t.TempDir()
	written, err := writePairs(sim, dir, 0.9)
	if err != nil {
		t.Fatalf("writePairs: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("written files = %d, want 2", len(written))
	}
	if written[1] != filepath.Join(dir, "rir_s1_r0.wav") {
		t.Fatalf("unexpected file name %q", written[1])
	}

	chans, sr, err := fitcommon.ReadWAV(written[0])
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if sr != 48000 || len(chans) != 4 {
		t.Fatalf("got sr=%d channels=%d, want 48000 and 4", sr, len(chans))
	}
	rir, err := sim.RIR(0, 0)
	if err != nil {
		t.Fatalf("RIR: %v", err)
	}
	if len(chans[0]) != rir.Len() {
		t.Fatalf("frames = %d, want %d", len(chans[0]), rir.Len())
	}
	peak := 0.0
	for _, ch := range chans {
		for _, v := range ch {
			if v > peak {
				peak = v
			} else if -v > peak {
				peak = -v
			}
		}
	}
	if peak < 0.89 || peak > 0.91 {
		t.Fatalf("peak = %.4f, want about 0.9", peak)
	}
}

func TestPrintSummaryAndModes(t *testing.T) {
	scene := smallScene()
	sim, err := simulate(scene)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	var buf bytes.Buffer
	if err := printSummary(&buf, scene, sim); err != nil {
		t.Fatalf("printSummary: %v", err)
	}
	printModes(&buf, scene, 40)
	out := buf.String()
	for _, want := range []string{"Sabine RT60", "Pair s0/r0", "room modes up to 40 Hz", "axial"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}
