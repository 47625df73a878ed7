package analysis

import (
	"math"
	"testing"
)

func TestRoomModesMatchAnalyticShoebox(t *testing.T) {
	dims := [3]float64{10, 7, 3}
	const c = 343.0
	modes := RoomModes(dims, c, 60, 0)
	if len(modes) == 0 {
		t.Fatalf("expected modes below 60 Hz")
	}

	first := modes[0]
	if first.Indices != [3]int{1, 0, 0} || first.Kind != Axial {
		t.Fatalf("lowest mode = %+v, want axial (1,0,0)", first)
	}
	if math.Abs(first.FrequencyHz-c/20) > 0.01 {
		t.Fatalf("lowest mode at %f Hz, want %f", first.FrequencyHz, c/20)
	}

	for i, m := range modes {
		if i > 0 && m.FrequencyHz < modes[i-1].FrequencyHz {
			t.Fatalf("modes not sorted at %d", i)
		}
		var sum float64
		for axis, n := range m.Indices {
			f := float64(n) * c / (2 * dims[axis])
			sum += f * f
		}
		if want := math.Sqrt(sum); math.Abs(m.FrequencyHz-want) > 1e-3*want {
			t.Fatalf("mode %v at %f Hz, want %f", m.Indices, m.FrequencyHz, want)
		}
		if m.FrequencyHz > 60 {
			t.Fatalf("mode %v above limit: %f", m.Indices, m.FrequencyHz)
		}
	}
}

func TestRoomModesKinds(t *testing.T) {
	modes := RoomModes([3]float64{5, 4, 3}, 343, 120, 512)
	seen := map[ModeKind]bool{}
	for _, m := range modes {
		seen[m.Kind] = true
		if m.Kind == Tangential && m.Indices[0] != 0 && m.Indices[1] != 0 && m.Indices[2] != 0 {
			t.Fatalf("mode %v misclassified as tangential", m.Indices)
		}
	}
	if !seen[Axial] || !seen[Tangential] || !seen[Oblique] {
		t.Fatalf("expected all mode kinds below 120 Hz, got %v", seen)
	}
	if Oblique.String() != "oblique" {
		t.Fatalf("unexpected kind name %q", Oblique.String())
	}
}
