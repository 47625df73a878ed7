package analysis

import (
	"testing"
)

func BenchmarkSpectralRMSEDB_FFT(b *testing.B) {
	a := makeDecayNoise(48000, 0.1, 0.4, 1)
	c := makeDecayNoise(48000, 0.1, 0.6, 2)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = spectralRMSEDB(a, c)
	}
}

func BenchmarkSpectralRMSEDB_Naive(b *testing.B) {
	a := makeDecayNoise(48000, 0.1, 0.4, 1)
	c := makeDecayNoise(48000, 0.1, 0.6, 2)
	aw, cw, bins := spectralWindowedInputs(a, c)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = spectralRMSEDBNaiveWindowed(aw, cw, bins)
	}
}

func BenchmarkCompareRoomResponses(b *testing.B) {
	ref := makeDecayNoise(48000, 1.0, 0.5, 3)
	cand := makeDecayNoise(48000, 1.0, 0.7, 3)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Compare(ref, cand, 48000)
	}
}

func BenchmarkEnergyDecayCurve(b *testing.B) {
	x := makeDecayNoise(48000, 1.0, 0.5, 4)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ReverbTime(EnergyDecayCurve(x), 48000)
	}
}

func BenchmarkRoomModes(b *testing.B) {
	dims := [3]float64{10, 7, 3}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = RoomModes(dims, 343, 300, DefaultModeGridPoints)
	}
}
