package main

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-shoebox/analysis"
	"github.com/cwbudde/algo-shoebox/preset"
	"github.com/cwbudde/algo-shoebox/simulator"
	"github.com/cwbudde/mayfly"
)

type topCandidate struct {
	Eval       int                `json:"eval"`
	Score      float64            `json:"score"`
	Similarity float64            `json:"similarity"`
	Knobs      map[string]float64 `json:"knobs"`
}

// evaluator renders the omni channel of one source/receiver pair for a
// candidate absorption table and scores it against the reference. The
// simulator is reused so only absorption and rendering are recomputed.
type evaluator struct {
	sim        *simulator.Simulator
	base       *preset.Scene
	defs       []knobDef
	reference  []float64
	sourceID   int
	receiverID int
	sampleRate int
}

func newEvaluator(base *preset.Scene, defs []knobDef, reference []float64, sourceID, receiverID int) (*evaluator, error) {
	sim, err := base.NewSimulator()
	if err != nil {
		return nil, err
	}
	if _, err := sim.SourcePosition(sourceID); err != nil {
		return nil, err
	}
	if _, err := sim.ReceiverChannels(receiverID); err != nil {
		return nil, err
	}
	return &evaluator{
		sim:        sim,
		base:       base,
		defs:       defs,
		reference:  reference,
		sourceID:   sourceID,
		receiverID: receiverID,
		sampleRate: int(base.SampleRate),
	}, nil
}

func (e *evaluator) render(c candidate) ([]float64, error) {
	abs := absorptionTable(len(e.base.Absorption), e.defs, c)
	if err := e.sim.SetWallAbsorption(abs); err != nil {
		return nil, err
	}
	if err := e.sim.ComputeEchograms(e.base.MaxTimeS); err != nil {
		return nil, err
	}
	if err := e.sim.RenderRIRs(); err != nil {
		return nil, err
	}
	rir, err := e.sim.RIR(e.sourceID, e.receiverID)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), rir.Channel(0)...), nil
}

func (e *evaluator) evaluate(c candidate) (analysis.Metrics, []float64, error) {
	omni, err := e.render(c)
	if err != nil {
		return analysis.Metrics{}, nil, err
	}
	return analysis.Compare(e.reference, omni, e.sampleRate), omni, nil
}

func updateTopCandidates(top []topCandidate, topK int, eval int, metrics analysis.Metrics, defs []knobDef, cand candidate) []topCandidate {
	top = append(top, topCandidate{
		Eval:       eval,
		Score:      metrics.Score,
		Similarity: metrics.Similarity,
		Knobs:      knobMap(defs, cand),
	})
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score == top[j].Score {
			return top[i].Eval < top[j].Eval
		}
		return top[i].Score < top[j].Score
	})
	if len(top) > topK {
		top = top[:topK]
	}
	return top
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}
