package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	fitcommon "github.com/cwbudde/algo-shoebox/internal/fitcommon"
	"github.com/cwbudde/algo-shoebox/preset"
)

func writeOutputs(outputScene, outputRIR, reportPath string, scene *preset.Scene, rir []float64, sampleRate int, rep runReport) error {
	if err := preset.WriteJSON(outputScene, scene); err != nil {
		return err
	}
	if outputRIR != "" && len(rir) > 0 {
		chans := [][]float64{append([]float64(nil), rir...)}
		fitcommon.NormalizePeak(chans, 0.99)
		if err := fitcommon.WriteWAV(outputRIR, chans, sampleRate); err != nil {
			return err
		}
	}
	return writeJSON(reportPath, rep)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
