package audio

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/argusdusty/gofft"
)

// noiseGate is the scaled magnitude below which a bar is reported as silent
const noiseGate = 0.01

// ApplyHanning applies a Hanning window to the input data
func ApplyHanning(data []float64) []float64 {
	windowed := make([]float64, len(data))
	n := len(data)
	for i := range data {
		window := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = data[i] * window
	}
	return windowed
}

// barMagnitudes averages the positive-frequency magnitudes of coeffs into
// len(result) equal-width bars
func barMagnitudes(coeffs []complex128, result []float64) {
	numBars := len(result)
	if numBars == 0 {
		return
	}
	halfSize := len(coeffs) / 2
	binsPerBar := halfSize / numBars
	if binsPerBar == 0 {
		binsPerBar = 1
	}

	for bar := range result {
		start := bar * binsPerBar
		end := start + binsPerBar
		if end > halfSize {
			end = halfSize
		}

		var sum float64
		for i := start; i < end; i++ {
			sum += cmplx.Abs(coeffs[i])
		}
		result[bar] = sum / float64(binsPerBar)
	}
}

// BinFFT bins FFT coefficients into len(result) bars, applies sensitivity
// and baseScale, gates the noise floor and log-scales the rest to roughly 0.0-1.0
func BinFFT(coeffs []complex128, sensitivity, baseScale float64, result []float64) {
	barMagnitudes(coeffs, result)

	for i := range result {
		scaled := result[i] * baseScale * sensitivity
		if scaled < noiseGate {
			result[i] = 0
			continue
		}
		// Log10(1 + x*9) maps [0, 1] onto [0, 1]
		result[i] = math.Log10(1 + scaled*9)
	}
}

// RearrangeFrequenciesCenterOut mirrors the lower half of input around the
// centre of result, so the lowest bands sit in the middle and the highest at the edges
func RearrangeFrequenciesCenterOut(input, result []float64) {
	n := len(result)
	center := n / 2
	for i := 0; i < n/2 && i < len(input); i++ {
		result[center-1-i] = input[i]
		result[center+i] = input[i]
	}
}

// BarFrequency returns the centre frequency in Hz of a bar produced by BinFFT
func BarFrequency(bar, numBars, fftSize int, sampleRate uint32) float64 {
	binsPerBar := (fftSize / 2) / numBars
	if binsPerBar == 0 {
		binsPerBar = 1
	}
	binWidth := float64(sampleRate) / float64(fftSize)
	return (float64(bar*binsPerBar) + float64(binsPerBar)/2) * binWidth
}

// Processor runs windowed FFTs of a fixed power-of-two size
type Processor struct {
	size int
}

// NewProcessor creates a processor for windows of size samples
func NewProcessor(size int) (*Processor, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("fft size %d is not a power of two", size)
	}
	if err := gofft.Prepare(size); err != nil {
		return nil, fmt.Errorf("failed to prepare fft: %w", err)
	}
	return &Processor{size: size}, nil
}

// Size returns the FFT window size
func (p *Processor) Size() int {
	return p.size
}

// ProcessChunk windows samples (zero-padded to the FFT size) and returns the
// FFT coefficients
func (p *Processor) ProcessChunk(samples []float64) ([]complex128, error) {
	chunk := samples
	if len(chunk) != p.size {
		padded := make([]float64, p.size)
		copy(padded, chunk)
		chunk = padded
	}

	coeffs := gofft.Float64ToComplex128Array(ApplyHanning(chunk))
	if err := gofft.FFT(coeffs); err != nil {
		return nil, fmt.Errorf("fft failed: %w", err)
	}
	return coeffs, nil
}
