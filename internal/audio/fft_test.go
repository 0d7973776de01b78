package audio

import (
	"math"
	"testing"

	"github.com/argusdusty/gofft"

	"github.com/linuxmatters/flatpcm/internal/config"
)

// sineWindowCoeffs transforms one analysis window of a unit sine at freq Hz
func sineWindowCoeffs(t *testing.T, freq float64, sampleRate uint32) []complex128 {
	t.Helper()

	p, err := NewProcessor(config.AnalysisWindow)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}
	samples := make([]float64, config.AnalysisWindow)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	coeffs, err := p.ProcessChunk(samples)
	if err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}
	return coeffs
}

func loudestBar(bars []float64) int {
	peak := 0
	for i, v := range bars {
		if v > bars[peak] {
			peak = i
		}
	}
	return peak
}

func TestBarMagnitudes_SineLandsOnItsBar(t *testing.T) {
	tests := []struct {
		name       string
		bar        int
		sampleRate uint32
	}{
		{"lowest bar at 44.1kHz", 0, 44100},
		{"bar 5 at 44.1kHz", 5, 44100},
		{"top bar at 44.1kHz", config.NumBars - 1, 44100},
		{"bar 20 at 8kHz", 20, 8000},
		{"bar 40 at 48kHz", 40, 48000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			freq := BarFrequency(tc.bar, config.NumBars, config.AnalysisWindow, tc.sampleRate)
			coeffs := sineWindowCoeffs(t, freq, tc.sampleRate)

			bars := make([]float64, config.NumBars)
			barMagnitudes(coeffs, bars)

			if got := loudestBar(bars); got != tc.bar {
				t.Errorf("%.1f Hz peaked in bar %d, want %d", freq, got, tc.bar)
			}
		})
	}
}

func TestBarMagnitudes_Silence(t *testing.T) {
	coeffs := make([]complex128, config.AnalysisWindow)
	bars := make([]float64, config.NumBars)
	for i := range bars {
		bars[i] = -1
	}

	barMagnitudes(coeffs, bars)

	for i, v := range bars {
		if v != 0 {
			t.Errorf("bar %d = %f, want 0 for silence", i, v)
		}
	}
}

func TestDisplayBars_ScalesAgainstPeak(t *testing.T) {
	const bar = 3
	freq := BarFrequency(bar, config.NumBars, config.AnalysisWindow, 44100)
	coeffs := sineWindowCoeffs(t, freq, 44100)

	raw := make([]float64, config.NumBars)
	barMagnitudes(coeffs, raw)
	windowPeak := raw[bar]

	tests := []struct {
		name          string
		peakMagnitude float64
		want          float64
	}{
		// This window is the loudest seen: its peak bar reaches full height
		{"window is the peak", windowPeak, 1},
		{"peak twice as loud", 2 * windowPeak, math.Log10(1 + 0.5*9)},
		// No peak yet: raw magnitudes pass through unscaled
		{"no peak yet", 0, math.Log10(1 + windowPeak*9)},
		{"below the noise gate", windowPeak / (noiseGate / 2), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scratch := make([]float64, config.NumBars)
			result := make([]float64, config.NumBars)
			displayBars(coeffs, tc.peakMagnitude, scratch, result)

			// Lowest bands sit either side of the centre
			centre := config.NumBars / 2
			left, right := result[centre-1-bar], result[centre+bar]
			if math.Abs(left-tc.want) > 1e-9 || math.Abs(right-tc.want) > 1e-9 {
				t.Errorf("bar %d displayed as (%f, %f), want %f on both sides", bar, left, right, tc.want)
			}
			for i, v := range result {
				if v > result[centre+bar]+1e-12 {
					t.Errorf("display bar %d = %f is louder than the tone's bar", i, v)
				}
			}
		})
	}
}

func TestDisplayBars_MirrorsLowerHalf(t *testing.T) {
	coeffs := sineWindowCoeffs(t, 1000, 44100)

	scratch := make([]float64, config.NumBars)
	result := make([]float64, config.NumBars)
	displayBars(coeffs, 0, scratch, result)

	centre := config.NumBars / 2
	for i := 0; i < centre; i++ {
		if result[centre-1-i] != scratch[i] || result[centre+i] != scratch[i] {
			t.Fatalf("band %d displayed as (%f, %f), want %f on both sides",
				i, result[centre-1-i], result[centre+i], scratch[i])
		}
	}
}

func TestDisplayBars_SilenceStaysDark(t *testing.T) {
	coeffs := make([]complex128, config.AnalysisWindow)
	scratch := make([]float64, config.NumBars)
	result := make([]float64, config.NumBars)

	for _, peak := range []float64{0, 1, 500} {
		displayBars(coeffs, peak, scratch, result)
		for i, v := range result {
			if v != 0 {
				t.Errorf("peak %v: display bar %d = %f, want 0", peak, i, v)
			}
		}
	}
}

// TestProcessor_MatchesDirectFFT verifies that ProcessChunk windows the input
// and zero-pads short chunks before transforming.
func TestProcessor_MatchesDirectFFT(t *testing.T) {
	const size = 256

	p, err := NewProcessor(size)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}
	if p.Size() != size {
		t.Errorf("Size() = %d, want %d", p.Size(), size)
	}

	short := make([]float64, size/2)
	for i := range short {
		short[i] = math.Sin(2 * math.Pi * 8 * float64(i) / size)
	}

	got, err := p.ProcessChunk(short)
	if err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}

	padded := make([]float64, size)
	copy(padded, short)
	want := gofft.Float64ToComplex128Array(ApplyHanning(padded))
	if err := gofft.FFT(want); err != nil {
		t.Fatalf("FFT computation failed: %v", err)
	}

	if len(got) != size {
		t.Fatalf("ProcessChunk returned %d coefficients, want %d", len(got), size)
	}
	for i := range want {
		if cmplxDiff := got[i] - want[i]; math.Abs(real(cmplxDiff)) > 1e-9 || math.Abs(imag(cmplxDiff)) > 1e-9 {
			t.Fatalf("coefficient %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNewProcessor_RejectsNonPowerOfTwo(t *testing.T) {
	for _, size := range []int{0, 1, 3, 1000, 2047} {
		if _, err := NewProcessor(size); err == nil {
			t.Errorf("NewProcessor(%d) succeeded, want an error", size)
		}
	}
}

func TestBarFrequency(t *testing.T) {
	tests := []struct {
		bar, numBars, fftSize int
		sampleRate            uint32
		want                  float64
	}{
		// 16 bins of 21.53 Hz per bar
		{0, 64, 2048, 44100, 8 * 44100.0 / 2048},
		{1, 64, 2048, 44100, 24 * 44100.0 / 2048},
		// 8 bins of 7.8125 Hz per bar
		{3, 64, 1024, 8000, 28 * 8000.0 / 1024},
	}

	for _, tc := range tests {
		got := BarFrequency(tc.bar, tc.numBars, tc.fftSize, tc.sampleRate)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("BarFrequency(%d, %d, %d, %d) = %.3f, want %.3f",
				tc.bar, tc.numBars, tc.fftSize, tc.sampleRate, got, tc.want)
		}
	}
}
