package analysis

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-approx"
	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	algofft "github.com/cwbudde/algo-fft"
)

// Metrics contains distance and similarity measurements between two room
// impulse responses.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	TimeRMSE        float64 `json:"time_rmse"`
	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB  float64 `json:"spectral_rmse_db"`
	EDCRMSEDB       float64 `json:"edc_rmse_db"`
	RefDecayDBPerS  float64 `json:"ref_decay_db_per_s"`
	CandDecayDBPerS float64 `json:"cand_decay_db_per_s"`
	DecayDiffDBPerS float64 `json:"decay_diff_db_per_s"`

	RefRT60S    float64 `json:"ref_rt60_s"`
	CandRT60S   float64 `json:"cand_rt60_s"`
	RT60RelDiff float64 `json:"rt60_rel_diff"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Compare returns objective distance metrics and a combined score in [0,1].
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
	}
	if sampleRate <= 0 || len(reference) == 0 || len(candidate) == 0 {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}

	ref := trimToOnset(reference, onsetDB)
	cand := trimToOnset(candidate, onsetDB)
	if len(ref) == 0 || len(cand) == 0 {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}

	ref = normalizeRMS(ref, 0.1)
	cand = normalizeRMS(cand, 0.1)

	maxLag := sampleRate / 2
	if maxLag > len(ref)-1 {
		maxLag = len(ref) - 1
	}
	if maxLag > len(cand)-1 {
		maxLag = len(cand) - 1
	}
	if maxLag < 1 {
		maxLag = 1
	}
	lag := estimateLag(ref, cand, maxLag)
	m.LagSamples = lag

	refA, candA := alignByLag(ref, cand, lag)
	n := len(refA)
	if len(candA) < n {
		n = len(candA)
	}
	if n < 256 {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}
	maxFrames := sampleRate * 12
	if maxFrames > 0 && n > maxFrames {
		n = maxFrames
	}
	refA = refA[:n]
	candA = candA[:n]
	m.AlignedFrames = n

	m.TimeRMSE = rmse(refA, candA)
	m.EnvelopeRMSEDB = envelopeRMSEDB(refA, candA, envelopeFrame, envelopeHop)
	m.SpectralRMSEDB = spectralRMSEDB(refA, candA)
	refEDC := EnergyDecayCurve(refA)
	candEDC := EnergyDecayCurve(candA)
	m.EDCRMSEDB = edcRMSEDB(refEDC, candEDC)

	m.RefRT60S = ReverbTime(refEDC, float64(sampleRate))
	m.CandRT60S = ReverbTime(candEDC, float64(sampleRate))
	if isFinite(m.RefRT60S) && isFinite(m.CandRT60S) && m.RefRT60S > 0 {
		m.RefDecayDBPerS = -60 / m.RefRT60S
		m.CandDecayDBPerS = -60 / m.CandRT60S
		m.DecayDiffDBPerS = math.Abs(m.RefDecayDBPerS - m.CandDecayDBPerS)
		m.RT60RelDiff = math.Abs(m.CandRT60S-m.RefRT60S) / m.RefRT60S
	}

	timeNorm := clamp01(m.TimeRMSE / 0.25)
	envNorm := clamp01(m.EnvelopeRMSEDB / 30.0)
	specNorm := clamp01(m.SpectralRMSEDB / 30.0)
	edcNorm := clamp01(m.EDCRMSEDB / 20.0)
	rtNorm := clamp01(m.RT60RelDiff)
	m.Score = clamp01(0.20*timeNorm + 0.15*envNorm + 0.25*specNorm + 0.20*edcNorm + 0.20*rtNorm)
	m.Similarity = clamp01(float64(approx.FastExp(float32(-4.0 * m.Score))))

	return m
}

// onsetDB is the ISO 3382-1 start criterion: a response begins where it
// first comes within 20 dB of its peak.
const onsetDB = 20.0

// trimToOnset drops everything before the first sample within belowPeakDB
// of the absolute peak. This skips pre-ringing of linear-phase band filters.
// Silent input yields nil.
func trimToOnset(x []float64, belowPeakDB float64) []float64 {
	peak := 0.0
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak <= 1e-12 {
		return nil
	}
	threshold := peak * math.Pow(10, -belowPeakDB/20)
	for i, v := range x {
		if math.Abs(v) >= threshold {
			return x[i:]
		}
	}
	return nil
}

func normalizeRMS(x []float64, target float64) []float64 {
	if len(x) == 0 {
		return x
	}
	r := rms1(x)
	if r <= 1e-12 {
		return append([]float64(nil), x...)
	}
	g := target / r
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * g
	}
	return out
}

// estimateLag returns the lag in [-maxLag, maxLag] maximising the
// cross-correlation of ref and cand. A positive lag means cand starts
// later in ref.
func estimateLag(ref []float64, cand []float64, maxLag int) int {
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}
	corr, err := dspconv.CorrelateFFT(ref, cand)
	if err != nil {
		return 0
	}
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		idx := dspconv.IndexFromLag(lag, len(cand))
		if idx < 0 || idx >= len(corr) {
			continue
		}
		if corr[idx] > best {
			best = corr[idx]
			bestLag = lag
		}
	}
	return bestLag
}

func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	o := -lag
	if o >= len(cand) {
		return nil, nil
	}
	return ref, cand[o:]
}

func rmse(a []float64, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func rms1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

const (
	envelopeFrame = 128
	envelopeHop   = 64

	// Envelope frames more than this far below the reference peak are noise
	// floor and do not count.
	envelopeRangeDB = 60.0
)

func rmsEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms1(x[start : start+frame])
	}
	return out
}

// envelopeRMSEDB compares the short-time level of two responses in dB over
// the frames where the reference is within envelopeRangeDB of its peak.
func envelopeRMSEDB(ref, cand []float64, frame, hop int) float64 {
	refEnv := rmsEnvelope(ref, frame, hop)
	candEnv := rmsEnvelope(cand, frame, hop)
	n := min(len(refEnv), len(candEnv))
	if n == 0 {
		return 0
	}
	peak := math.Inf(-1)
	for _, v := range refEnv[:n] {
		peak = math.Max(peak, linToDB(v))
	}
	var sum float64
	count := 0
	for i := 0; i < n; i++ {
		r := linToDB(refEnv[i])
		if r < peak-envelopeRangeDB {
			continue
		}
		d := r - linToDB(candEnv[i])
		sum += d * d
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}

// edcRMSEDB is the RMS difference of two energy decay curves, each floored
// at -envelopeRangeDB, over the samples where either is above the floor.
func edcRMSEDB(a, b []float64) float64 {
	n := min(len(a), len(b))
	var sum float64
	count := 0
	for i := 0; i < n; i++ {
		x := math.Max(a[i], -envelopeRangeDB)
		y := math.Max(b[i], -envelopeRangeDB)
		if x <= -envelopeRangeDB && y <= -envelopeRangeDB {
			break
		}
		sum += (x - y) * (x - y)
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}

// spectralWindowedInputs Hann-windows the first power-of-two block (512 to
// 4096 samples) of a and b. bins is zero when the inputs are too short.
func spectralWindowedInputs(a []float64, b []float64) ([]float64, []float64, int) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 512 {
		return nil, nil, 0
	}
	size := 512
	for size*2 <= n && size < 4096 {
		size *= 2
	}
	aw := make([]float64, size)
	bw := make([]float64, size)
	for i := 0; i < size; i++ {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size-1))
		aw[i] = a[i] * w
		bw[i] = b[i] * w
	}
	return aw, bw, size / 2
}

func spectralRMSEDB(a []float64, b []float64) float64 {
	aw, bw, bins := spectralWindowedInputs(a, b)
	if bins < 2 {
		return 0
	}
	plan, err := algofft.NewPlanReal64(len(aw))
	if err != nil {
		return 0
	}
	specA := make([]complex128, bins+1)
	specB := make([]complex128, bins+1)
	plan.Forward(specA, aw)
	plan.Forward(specB, bw)

	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(cmplx.Abs(specA[k])) - linToDB(cmplx.Abs(specB[k]))
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

// regressionSlope fits a line to ys sampled every dx and returns its slope.
func regressionSlope(ys []float64, dx float64) float64 {
	var sx, sy, sxx, sxy float64
	n := float64(len(ys))
	for i, y := range ys {
		x := float64(i) * dx
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
