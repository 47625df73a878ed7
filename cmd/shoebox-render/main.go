package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-shoebox/analysis"
	fitcommon "github.com/cwbudde/algo-shoebox/internal/fitcommon"
	"github.com/cwbudde/algo-shoebox/preset"
	"github.com/cwbudde/algo-shoebox/simulator"
)

func main() {
	scenePath := flag.String("scene", "", "Scene JSON path (default: built-in 10x7x3 m scene)")
	outDir := flag.String("out", "out/rir", "Directory for the rendered WAV files")
	maxTime := flag.Float64("max-time", 0, "Echogram length in seconds (0 = scene value)")
	normalize := flag.Float64("normalize", 0.99, "Peak normalization target per pair (0 disables)")
	modesHz := flag.Float64("modes", 0, "List rigid-wall room modes up to this frequency in Hz (0 disables)")
	flag.Parse()

	scene := preset.DefaultScene()
	if *scenePath != "" {
		s, err := preset.LoadJSON(*scenePath)
		if err != nil {
			die("failed to load scene %q: %v", *scenePath, err)
		}
		scene = s
	}
	if *maxTime > 0 {
		scene.MaxTimeS = *maxTime
	}

	sim, err := simulate(scene)
	if err != nil {
		die("simulation failed: %v", err)
	}

	written, err := writePairs(sim, *outDir, *normalize)
	if err != nil {
		die("failed to write RIRs: %v", err)
	}
	for _, p := range written {
		fmt.Printf("Wrote %s\n", p)
	}

	if err := printSummary(os.Stdout, scene, sim); err != nil {
		die("summary failed: %v", err)
	}
	if *modesHz > 0 {
		printModes(os.Stdout, scene, *modesHz)
	}
}

// simulate builds the scene's simulator and renders all of its RIRs.
func simulate(scene *preset.Scene) (*simulator.Simulator, error) {
	sim, err := scene.NewSimulator()
	if err != nil {
		return nil, err
	}
	if err := sim.ComputeEchograms(scene.MaxTimeS); err != nil {
		return nil, err
	}
	if err := sim.RenderRIRs(); err != nil {
		return nil, err
	}
	return sim, nil
}

func pairFileName(sourceID, receiverID int) string {
	return fmt.Sprintf("rir_s%d_r%d.wav", sourceID, receiverID)
}

// writePairs writes one multichannel WAV per source/receiver pair and returns
// the written paths.
func writePairs(sim *simulator.Simulator, dir string, peak float64) ([]string, error) {
	fs := int(sim.Config().SampleRate)
	var written []string
	for _, src := range sim.SourceIDs() {
		for _, rec := range sim.ReceiverIDs() {
			rir, err := sim.RIR(src, rec)
			if err != nil {
				return written, err
			}
			chans := make([][]float64, rir.Channels())
			for ch := range chans {
				chans[ch] = append([]float64(nil), rir.Channel(ch)...)
			}
			if peak > 0 {
				fitcommon.NormalizePeak(chans, peak)
			}
			path := filepath.Join(dir, pairFileName(src, rec))
			if err := fitcommon.WriteWAV(path, chans, fs); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}

func printSummary(w io.Writer, scene *preset.Scene, sim *simulator.Simulator) error {
	cfg := sim.Config()
	centers := sim.FilterBank().Centers()
	fmt.Fprintf(w, "Room %.2f x %.2f x %.2f m, c=%.1f m/s, fs=%.0f Hz, %d bands\n",
		cfg.Dims[0], cfg.Dims[1], cfg.Dims[2], cfg.SpeedOfSound, cfg.SampleRate, cfg.NumBands())
	for band, abs := range cfg.Absorption {
		rt := analysis.SabineRT60([3]float64(cfg.Dims), [6]float64(abs), cfg.SpeedOfSound)
		fmt.Fprintf(w, "  band %d (%.0f Hz): Sabine RT60 %.3f s\n", band, centers[band], rt)
	}
	for _, src := range sim.SourceIDs() {
		for _, rec := range sim.ReceiverIDs() {
			ws, err := sim.Workspace(src, rec)
			if err != nil {
				return err
			}
			rir, err := sim.RIR(src, rec)
			if err != nil {
				return err
			}
			t30 := analysis.ReverbTime(analysis.EnergyDecayCurve(rir.Channel(0)), cfg.SampleRate)
			fmt.Fprintf(w, "Pair s%d/r%d: %d image sources, %d channels, %d samples, decay %.3f s\n",
				src, rec, ws.NumImageSources(), rir.Channels(), rir.Len(), t30)
		}
	}
	fmt.Fprintf(w, "Echogram length %.3f s\n", scene.MaxTimeS)
	return nil
}

func printModes(w io.Writer, scene *preset.Scene, maxHz float64) {
	modes := analysis.RoomModes([3]float64(scene.RoomDims), scene.SpeedOfSound, maxHz, analysis.DefaultModeGridPoints)
	fmt.Fprintf(w, "%d room modes up to %.0f Hz\n", len(modes), maxHz)
	for _, m := range modes {
		fmt.Fprintf(w, "  (%d,%d,%d) %8.2f Hz %s\n", m.Indices[0], m.Indices[1], m.Indices[2], m.FrequencyHz, m.Kind)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
