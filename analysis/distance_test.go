package analysis

import (
	"math"
	"math/rand"
	"testing"
)

func TestCompareIdenticalSignalsHasLowDistance(t *testing.T) {
	sr := 48000
	x := makeDecaySine(sr, 440.0, 1.5, 0.7)
	m := Compare(x, x, sr)
	if m.Score > 0.05 {
		t.Fatalf("expected very low score for identical signals, got %f", m.Score)
	}
	if m.Similarity < 0.85 {
		t.Fatalf("expected high similarity for identical signals, got %f", m.Similarity)
	}
}

func TestCompareDifferentSignalsHasHigherDistance(t *testing.T) {
	sr := 48000
	a := makeDecaySine(sr, 261.63, 1.8, 0.8)
	b := makeDecaySine(sr, 330.0, 0.8, 0.25)
	m := Compare(a, b, sr)
	if m.Score < 0.25 {
		t.Fatalf("expected higher score for different signals, got %f", m.Score)
	}
}

func TestEstimateLagFindsPositiveShift(t *testing.T) {
	const (
		n      = 8192
		shift  = 237
		maxLag = 600
	)
	ref := randomSignal(n, 7)
	cand := make([]float64, n)
	copy(cand, ref[shift:])

	got := estimateLag(ref, cand, maxLag)
	if got != shift {
		t.Fatalf("estimateLag() = %d, want %d", got, shift)
	}
}

func TestEstimateLagFindsNegativeShift(t *testing.T) {
	const (
		n      = 8192
		shift  = -191
		maxLag = 600
	)
	ref := randomSignal(n, 11)
	cand := make([]float64, n)
	copy(cand[-shift:], ref)

	got := estimateLag(ref, cand, maxLag)
	if got != shift {
		t.Fatalf("estimateLag() = %d, want %d", got, shift)
	}
}

func TestEstimateLagFFTMatchesExhaustive(t *testing.T) {
	const (
		n      = 16000
		shift  = 443
		maxLag = 1000
	)
	ref := randomSignal(n, 23)
	cand := make([]float64, n)
	copy(cand, ref[shift:])

	got := estimateLag(ref, cand, maxLag)
	want := estimateLagExhaustive(ref, cand, maxLag)
	if got != want {
		t.Fatalf("estimateLag() = %d, exhaustive = %d", got, want)
	}
}

func TestCompareRoomResponses(t *testing.T) {
	sr := 48000
	short := makeDecayNoise(sr, 0.6, 0.25, 3)
	same := makeDecayNoise(sr, 0.6, 0.25, 3)
	long := makeDecayNoise(sr, 0.6, 0.9, 3)

	m := Compare(short, same, sr)
	if m.Score > 0.05 {
		t.Fatalf("expected very low score for identical responses, got %f", m.Score)
	}
	if math.Abs(m.RefRT60S-0.25) > 0.03 {
		t.Fatalf("reference RT60 = %f, want ~0.25", m.RefRT60S)
	}

	d := Compare(short, long, sr)
	if d.Score <= m.Score {
		t.Fatalf("expected a higher score for a longer decay: %f <= %f", d.Score, m.Score)
	}
	if d.RT60RelDiff < 1 {
		t.Fatalf("expected a large RT60 difference, got %f", d.RT60RelDiff)
	}
}

func TestSpectralRMSEDBMatchesNaiveDFT(t *testing.T) {
	a, c := twoToneSignals(3000)
	aw, cw, bins := spectralWindowedInputs(a, c)
	if bins != 1024 {
		t.Fatalf("bins = %d, want 1024", bins)
	}
	got := spectralRMSEDB(a, c)
	want := spectralRMSEDBNaiveWindowed(aw, cw, bins)
	if math.Abs(got-want) > 1e-3 {
		t.Fatalf("spectralRMSEDB() = %f, naive = %f", got, want)
	}
}

func estimateLagExhaustive(ref []float64, cand []float64, maxLag int) int {
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		ai, bi := lag, 0
		if lag < 0 {
			ai, bi = 0, -lag
		}
		var sum float64
		for i := 0; ai+i < len(ref) && bi+i < len(cand); i++ {
			sum += ref[ai+i] * cand[bi+i]
		}
		if sum > best {
			best = sum
			bestLag = lag
		}
	}
	return bestLag
}

func spectralRMSEDBNaiveWindowed(aw []float64, bw []float64, bins int) float64 {
	if bins < 2 {
		return 0
	}
	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(dftBinMag(aw, k)) - linToDB(dftBinMag(bw, k))
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func dftBinMag(x []float64, bin int) float64 {
	n := len(x)
	var re, im float64
	for i := 0; i < n; i++ {
		phi := -2.0 * math.Pi * float64(bin*i) / float64(n)
		re += x[i] * math.Cos(phi)
		im += x[i] * math.Sin(phi)
	}
	return math.Hypot(re, im)
}

// makeDecayNoise is white noise under an exponential envelope reaching
// -60 dB after rt60 seconds.
func makeDecayNoise(sr int, durationSec float64, rt60 float64, seed int64) []float64 {
	n := int(float64(sr) * durationSec)
	out := randomSignal(n, seed)
	for i := range out {
		t := float64(i) / float64(sr)
		out[i] *= math.Pow(10, -3*t/rt60)
	}
	return out
}

func makeDecaySine(sr int, freq float64, durationSec float64, decaySec float64) []float64 {
	n := int(float64(sr) * durationSec)
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sr)
		env := math.Exp(-t / decaySec)
		out[i] = env * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

func twoToneSignals(n int) ([]float64, []float64) {
	a := make([]float64, n)
	c := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		a[i] = 0.7*math.Sin(2*math.Pi*57*t) + 0.25*math.Sin(2*math.Pi*311*t)
		c[i] = 0.68*math.Sin(2*math.Pi*57*t+0.05) + 0.27*math.Sin(2*math.Pi*320*t)
	}
	return a, c
}

func TestTrimToOnsetSkipsPreRinging(t *testing.T) {
	x := []float64{0, 1e-4, -0.02, 0.001, 0.5, -1, 0.3}
	got := trimToOnset(x, onsetDB)
	if len(got) != 3 || got[0] != 0.5 {
		t.Fatalf("trimToOnset() = %v, want onset at 0.5", got)
	}
	if trimToOnset(make([]float64, 8), onsetDB) != nil {
		t.Fatalf("expected nil for silence")
	}
}

func TestEDCRMSEDBIgnoresNoiseFloor(t *testing.T) {
	a := []float64{0, -10, -20, -70, -90}
	b := []float64{0, -10, -26, -80, -120}
	got := edcRMSEDB(a, b)
	want := math.Sqrt(36.0 / 3.0)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("edcRMSEDB() = %f, want %f", got, want)
	}
}

func TestEnvelopeRMSEDBLevelOffset(t *testing.T) {
	ref := makeDecayNoise(48000, 0.3, 0.3, 5)
	cand := make([]float64, len(ref))
	for i, v := range ref {
		cand[i] = 0.5 * v
	}
	got := envelopeRMSEDB(ref, cand, envelopeFrame, envelopeHop)
	want := -20 * math.Log10(0.5)
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("envelopeRMSEDB() = %f, want %f", got, want)
	}
}
