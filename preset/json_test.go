package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-shoebox/shoebox"
)

func TestLoadJSONAppliesRoomAndLists(t *testing.T) {
	dir := t.TempDir()
	refPath := filepath.Join(dir, "ref.wav")
	if err := os.WriteFile(refPath, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write ref: %v", err)
	}
	presetPath := filepath.Join(dir, "scene.json")
	content := `{
  "room_dims": [6, 5, 2.8],
  "absorption": [[0.1, 0.1, 0.2, 0.2, 0.3, 0.3], [0.4, 0.4, 0.5, 0.5, 0.6, 0.6]],
  "lowest_octave_hz": 250,
  "max_time_s": 0.08,
  "sources": [{"position": [1, 1, 1]}, {"position": [2, 3, 1.5]}],
  "receivers": [{"position": [4, 4, 1.2], "sh_order": 2}],
  "reference_wav_path": "ref.wav"
}`
	if err := os.WriteFile(presetPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}

	s, err := LoadJSON(presetPath)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if s.RoomDims != (shoebox.Vec3{6, 5, 2.8}) {
		t.Fatalf("room dims mismatch: %v", s.RoomDims)
	}
	if len(s.Absorption) != 2 || s.Absorption[1][5] != 0.6 {
		t.Fatalf("absorption mismatch: %v", s.Absorption)
	}
	if s.LowestOctaveHz != 250 || s.MaxTimeS != 0.08 {
		t.Fatalf("scalar fields mismatch: %+v", s)
	}
	if s.SpeedOfSound != 343 || s.SampleRate != 48000 {
		t.Fatalf("defaults not kept: c=%g fs=%g", s.SpeedOfSound, s.SampleRate)
	}
	if len(s.Sources) != 2 || s.Sources[1] != (shoebox.Vec3{2, 3, 1.5}) {
		t.Fatalf("sources mismatch: %v", s.Sources)
	}
	if len(s.Receivers) != 1 || s.Receivers[0].SHOrder != 2 {
		t.Fatalf("receivers mismatch: %+v", s.Receivers)
	}
	if s.ReferenceWAVPath != refPath {
		t.Fatalf("reference path mismatch: got=%q want=%q", s.ReferenceWAVPath, refPath)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadJSONRejectsInvalidRanges(t *testing.T) {
	cases := []string{
		`{"room_dims": [0, 5, 3]}`,
		`{"absorption": [[0.1, 0.2]]}`,
		`{"absorption": [[0.1, 0.1, 0.1, 0.1, 0.1, 1.0]]}`,
		`{"sample_rate": 4000}`,
		`{"receivers": [{"position": [1, 1, 1], "sh_order": 8}]}`,
	}
	dir := t.TempDir()
	for i, content := range cases {
		presetPath := filepath.Join(dir, "scene.json")
		if err := os.WriteFile(presetPath, []byte(content), 0o644); err != nil {
			t.Fatalf("write preset: %v", err)
		}
		if _, err := LoadJSON(presetPath); err == nil {
			t.Fatalf("case %d: expected error for %s", i, content)
		}
	}
}

func TestValidateRejectsPositionsOutsideRoom(t *testing.T) {
	s := DefaultScene()
	s.RoomDims = shoebox.Vec3{4, 4, 4}
	if err := s.Validate(); err == nil {
		t.Fatalf("expected an error for the default source outside a 4 m room")
	}

	s = DefaultScene()
	s.Receivers = nil
	if err := s.Validate(); err == nil {
		t.Fatalf("expected an error for a scene without receivers")
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := DefaultScene()
	s.Sources = append(s.Sources, shoebox.Vec3{2.1, 1.0, 1.3})
	s.Absorption[3][2] = 0.55
	s.ReferenceWAVPath = filepath.Join(dir, "refs", "room.wav")

	path := filepath.Join(dir, "out", "scene.json")
	if err := WriteJSON(path, s); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if len(got.Sources) != 2 || got.Sources[1] != s.Sources[1] {
		t.Fatalf("sources mismatch: %v", got.Sources)
	}
	if got.Absorption[3][2] != 0.55 || len(got.Absorption) != len(s.Absorption) {
		t.Fatalf("absorption mismatch: %v", got.Absorption)
	}
	if got.ReferenceWAVPath != s.ReferenceWAVPath {
		t.Fatalf("reference path: got=%q want=%q", got.ReferenceWAVPath, s.ReferenceWAVPath)
	}
}

func TestNewSimulatorUsesSceneIDs(t *testing.T) {
	s := DefaultScene()
	s.FilterOrder = 16
	s.Sources = append(s.Sources, shoebox.Vec3{2.1, 1.0, 1.3})
	sim, err := s.NewSimulator()
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	if ids := sim.SourceIDs(); len(ids) != 2 || ids[1] != 1 {
		t.Fatalf("source ids: %v", ids)
	}
	if n, err := sim.ReceiverChannels(0); err != nil || n != 16 {
		t.Fatalf("receiver channels: %d err=%v", n, err)
	}
}
