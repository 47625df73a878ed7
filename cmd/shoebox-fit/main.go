package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/cwbudde/algo-shoebox/analysis"
	fitcommon "github.com/cwbudde/algo-shoebox/internal/fitcommon"
	"github.com/cwbudde/algo-shoebox/preset"
)

type runReport struct {
	ScenePath       string             `json:"scene_path"`
	ReferencePath   string             `json:"reference_path"`
	OutputScene     string             `json:"output_scene"`
	OutputRIR       string             `json:"output_rir,omitempty"`
	SampleRate      int                `json:"sample_rate"`
	SourceID        int                `json:"source_id"`
	ReceiverID      int                `json:"receiver_id"`
	DurationSec     float64            `json:"elapsed_seconds"`
	Evaluations     int                `json:"evaluations"`
	MayflyVariant   string             `json:"mayfly_variant"`
	BestScore       float64            `json:"best_score"`
	BestSimilarity  float64            `json:"best_similarity"`
	BestMetrics     analysis.Metrics   `json:"best_metrics"`
	BestKnobs       map[string]float64 `json:"best_knobs"`
	CheckpointCount int                `json:"checkpoint_count"`
	TopCandidates   []topCandidate     `json:"top_candidates,omitempty"`
}

func main() {
	scenePath := flag.String("scene", "", "Base scene JSON path (default: built-in scene)")
	referencePath := flag.String("reference", "", "Reference RIR WAV path (default: scene reference_wav_path)")
	referenceChannel := flag.Int("reference-channel", 0, "Channel of the reference WAV to fit against")
	outputScene := flag.String("out", "out/fit/fitted.json", "Path to write the fitted scene JSON")
	outputRIR := flag.String("output-rir", "", "Optional path for the best omni RIR WAV")
	reportPath := flag.String("report", "", "Optional report JSON path (default: <out>.report.json)")
	sourceID := flag.Int("source", 0, "Source id of the fitted pair")
	receiverID := flag.Int("receiver", 0, "Receiver id of the fitted pair")
	maxTime := flag.Float64("max-time", 0, "Echogram length in seconds (0 = scene value)")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 60.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 20, "Print progress every N evaluations")
	checkpointEvery := flag.Int("checkpoint-every", 1, "Write checkpoint every N best-score improvements")
	topK := flag.Int("top-k", 5, "How many top candidates to keep in report")
	resume := flag.Bool("resume", true, "Resume from previous best_knobs report when available")

	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.Parse()

	if *outputScene == "" {
		die("out must not be empty")
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	*reportEvery = max(1, *reportEvery)
	*checkpointEvery = max(1, *checkpointEvery)
	*mayflyPop = max(2, *mayflyPop)
	*mayflyRoundEvals = max(*mayflyPop*2, *mayflyRoundEvals)
	*topK = max(1, *topK)
	variant := strings.ToLower(*mayflyVariant)
	if *reportPath == "" {
		*reportPath = *outputScene + ".report.json"
	}

	base := preset.DefaultScene()
	if *scenePath != "" {
		s, err := preset.LoadJSON(*scenePath)
		if err != nil {
			die("failed to load scene: %v", err)
		}
		base = s
	}
	if *maxTime > 0 {
		base.MaxTimeS = *maxTime
	}
	if *referencePath == "" {
		*referencePath = base.ReferenceWAVPath
	}
	if *referencePath == "" {
		die("no reference: pass -reference or set reference_wav_path in the scene")
	}
	base.ReferenceWAVPath = *referencePath

	sampleRate := int(base.SampleRate)
	ref, err := fitcommon.ReadWAVChannel(*referencePath, *referenceChannel, sampleRate)
	if err != nil {
		die("failed to read reference: %v", err)
	}

	probe, err := base.NewSimulator()
	if err != nil {
		die("invalid scene: %v", err)
	}
	defs, initCand := initCandidate(base, probe.FilterBank().Centers())
	if *resume {
		if resumed, ok, err := loadCandidateFromReport(*reportPath, defs, initCand); err != nil {
			fmt.Fprintf(os.Stderr, "resume skipped (%s): %v\n", *reportPath, err)
		} else if ok {
			initCand = resumed
			fmt.Printf("Resumed candidate from %s\n", *reportPath)
		}
	}

	ev, err := newEvaluator(base, defs, ref, *sourceID, *receiverID)
	if err != nil {
		die("failed to set up evaluation: %v", err)
	}

	start := time.Now()
	deadline := start.Add(time.Duration(*timeBudget * float64(time.Second)))
	evals := 0
	bestImproves := 0
	checkpoints := 0
	top := make([]topCandidate, 0, *topK)

	best := initCand
	bestM, bestRIR, err := ev.evaluate(best)
	if err != nil {
		die("initial evaluation failed: %v", err)
	}
	evals++
	top = updateTopCandidates(top, *topK, evals, bestM, defs, best)
	fmt.Printf("Start score=%.4f similarity=%.2f%%\n", bestM.Score, bestM.Similarity*100.0)

	rep := func() runReport {
		return runReport{
			ScenePath:       *scenePath,
			ReferencePath:   *referencePath,
			OutputScene:     *outputScene,
			OutputRIR:       *outputRIR,
			SampleRate:      sampleRate,
			SourceID:        *sourceID,
			ReceiverID:      *receiverID,
			DurationSec:     time.Since(start).Seconds(),
			Evaluations:     evals,
			MayflyVariant:   variant,
			BestScore:       bestM.Score,
			BestSimilarity:  bestM.Similarity,
			BestMetrics:     bestM,
			BestKnobs:       knobMap(defs, best),
			CheckpointCount: checkpoints,
			TopCandidates:   top,
		}
	}

	round := 0
	for evals < *maxEvals && time.Now().Before(deadline) {
		round++
		budget := min(*mayflyRoundEvals, *maxEvals-evals)
		iters := max(1, budget/(2*(*mayflyPop)))

		cfg, err := newMayflyConfig(variant, *mayflyPop, len(defs), iters)
		if err != nil {
			die("invalid mayfly variant: %v", err)
		}
		cfg.Rand = rand.New(rand.NewSource(*seed + int64(round)*7919))

		cfg.ObjectiveFunc = func(pos []float64) float64 {
			if evals >= *maxEvals || time.Now().After(deadline) {
				return bestM.Score + 1.0
			}
			cand := fromNormalized(pos, defs)
			m, omni, err := ev.evaluate(cand)
			evals++
			if err != nil {
				return bestM.Score + 0.8
			}

			top = updateTopCandidates(top, *topK, evals, m, defs, cand)

			if m.Score < bestM.Score {
				best = cloneCandidate(cand)
				bestM = m
				bestRIR = omni
				bestImproves++
				fmt.Printf("Improved #%d eval=%d score=%.4f sim=%.2f%%\n", bestImproves, evals, bestM.Score, bestM.Similarity*100.0)
				if bestImproves%*checkpointEvery == 0 {
					checkpoints++
					if err := writeOutputs(*outputScene, *outputRIR, *reportPath, applyCandidate(base, defs, best), bestRIR, sampleRate, rep()); err != nil {
						fmt.Fprintf(os.Stderr, "checkpoint write failed: %v\n", err)
						checkpoints--
					}
				}
			}

			if evals%*reportEvery == 0 {
				fmt.Printf("Progress round=%d eval=%d elapsed=%.1fs best=%.4f\n", round, evals, time.Since(start).Seconds(), bestM.Score)
			}
			return m.Score
		}

		if _, err := runMayfly(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
			continue
		}
	}

	if err := writeOutputs(*outputScene, *outputRIR, *reportPath, applyCandidate(base, defs, best), bestRIR, sampleRate, rep()); err != nil {
		die("failed to write outputs: %v", err)
	}
	for i, d := range defs {
		fmt.Printf("  %s = %.3f\n", d.Name, best.Vals[i])
	}
	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% variant=%s\n",
		evals, time.Since(start).Seconds(), bestM.Score, bestM.Similarity*100.0, variant)
}
