package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/linuxmatters/flatpcm/internal/config"
)

// WindowAnalysis holds statistics for a single analysis window
type WindowAnalysis struct {
	// Largest absolute sample value, normalised to 0.0-1.0
	Peak float64

	// RMS level of the mono downmix
	RMS float64

	// Average magnitude per spectrum bar
	BarMagnitudes [config.NumBars]float64
}

// Profile holds complete analysis results for a stream
type Profile struct {
	NumWindows int
	Windows    []WindowAnalysis

	// Global statistics
	GlobalPeak    float64 // Highest sample peak across all windows
	GlobalRMS     float64 // Average RMS across all windows
	DynamicRange  float64 // Peak to RMS ratio in dB
	PeakMagnitude float64 // Highest bar magnitude in any window

	// Average spectrum and its loudest band
	Spectrum      [config.NumBars]float64
	PeakBar       int
	PeakFrequency float64 // Hz, centre of PeakBar

	// Stream metadata
	SampleRate uint32
	Channels   uint16
	Samples    int64 // Interleaved samples pulled from the source
	Frames     int64
	Duration   time.Duration // Decoded duration, Frames/SampleRate
}

// ProgressCallback is called with progress updates during analysis.
// totalWindows is 0 when the stream duration is unknown. barHeights is
// reused between calls.
type ProgressCallback func(window, totalWindows int, currentRMS, currentPeak float64, barHeights []float64, elapsed time.Duration)

// Analyze streams src to the end, downmixing each window of frames to mono
// and collecting level and spectrum statistics. window must be a power of two;
// zero selects config.AnalysisWindow.
//
// If the source ends on a decode error, the profile of everything decoded so
// far is returned together with that error.
func Analyze(src Source, window int, progressCb ProgressCallback) (*Profile, error) {
	if window == 0 {
		window = config.AnalysisWindow
	}
	processor, err := NewProcessor(window)
	if err != nil {
		return nil, err
	}

	channels := int(src.Channels())
	if channels == 0 {
		return nil, fmt.Errorf("source reports zero channels")
	}

	profile := &Profile{
		Windows:    make([]WindowAnalysis, 0),
		SampleRate: src.SampleRate(),
		Channels:   src.Channels(),
	}

	totalWindows := 0
	if d, ok := src.TotalDuration(); ok && profile.SampleRate > 0 {
		frames := int64(math.Round(d.Seconds() * float64(profile.SampleRate)))
		totalWindows = int(ceilDiv(frames, int64(window)))
	}

	var (
		sumRMS    float64
		spectrum  [config.NumBars]float64
		mono       = make([]float64, window)
		scratch    = make([]float64, config.NumBars)
		display    = make([]float64, config.NumBars)
		lastCoeffs []complex128
		startTime  = time.Now()
		streamErr  error
	)

	for {
		chunk, err := ReadChunk(src, window*channels)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				streamErr = err
			}
			break
		}
		profile.Samples += int64(len(chunk))

		frames := downmix(chunk, channels, mono)
		profile.Frames += int64(frames)

		coeffs, err := processor.ProcessChunk(mono[:frames])
		if err != nil {
			return nil, err
		}

		lastCoeffs = coeffs
		analysis := analyzeWindow(coeffs, chunk, mono[:frames])
		profile.Windows = append(profile.Windows, analysis)

		if analysis.Peak > profile.GlobalPeak {
			profile.GlobalPeak = analysis.Peak
		}
		sumRMS += analysis.RMS
		for bar, m := range analysis.BarMagnitudes {
			spectrum[bar] += m
			if m > profile.PeakMagnitude {
				profile.PeakMagnitude = m
			}
		}

		profile.NumWindows++

		// Throttle progress updates
		if progressCb != nil && profile.NumWindows%config.ProgressEvery == 0 {
			displayBars(coeffs, profile.PeakMagnitude, scratch, display)
			progressCb(profile.NumWindows, totalWindows, analysis.RMS, analysis.Peak,
				display, time.Since(startTime))
		}
	}

	if profile.NumWindows == 0 {
		if streamErr != nil {
			return nil, fmt.Errorf("no audio decoded: %w", streamErr)
		}
		return nil, fmt.Errorf("no audio data in stream")
	}

	profile.GlobalRMS = sumRMS / float64(profile.NumWindows)
	if profile.GlobalRMS > 0 && profile.GlobalPeak > 0 {
		profile.DynamicRange = 20 * math.Log10(profile.GlobalPeak/profile.GlobalRMS)
	}

	for bar := range spectrum {
		profile.Spectrum[bar] = spectrum[bar] / float64(profile.NumWindows)
		if profile.Spectrum[bar] > profile.Spectrum[profile.PeakBar] {
			profile.PeakBar = bar
		}
	}
	profile.PeakFrequency = BarFrequency(profile.PeakBar, config.NumBars, window, profile.SampleRate)

	if profile.SampleRate > 0 {
		profile.Duration = time.Duration(profile.Frames) * time.Second / time.Duration(profile.SampleRate)
	}

	// Send final progress update
	if progressCb != nil {
		last := profile.Windows[len(profile.Windows)-1]
		displayBars(lastCoeffs, profile.PeakMagnitude, scratch, display)
		progressCb(profile.NumWindows, profile.NumWindows, last.RMS, last.Peak,
			display, time.Since(startTime))
	}

	if streamErr != nil {
		return profile, fmt.Errorf("stream ended early: %w", streamErr)
	}
	return profile, nil
}

// displayBars scales one window's spectrum against the loudest bar seen so
// far and lays it out with the lowest bands in the centre
func displayBars(coeffs []complex128, peakMagnitude float64, scratch, result []float64) {
	baseScale := 1.0
	if peakMagnitude > 0 {
		baseScale = 1 / peakMagnitude
	}
	BinFFT(coeffs, 1.0, baseScale, scratch)
	RearrangeFrequenciesCenterOut(scratch, result)
}

// downmix averages interleaved samples into mono frames and returns the
// number of frames written. A trailing partial frame is averaged over the
// channels present.
func downmix(interleaved []float64, channels int, mono []float64) int {
	frames := 0
	for i := 0; i < len(interleaved) && frames < len(mono); i += channels {
		end := i + channels
		if end > len(interleaved) {
			end = len(interleaved)
		}
		var sum float64
		for _, v := range interleaved[i:end] {
			sum += v
		}
		mono[frames] = sum / float64(end-i)
		frames++
	}
	return frames
}

// analyzeWindow extracts statistics from the FFT coefficients and samples of one window
func analyzeWindow(coeffs []complex128, interleaved, mono []float64) WindowAnalysis {
	analysis := WindowAnalysis{}

	for _, v := range interleaved {
		if a := math.Abs(v); a > analysis.Peak {
			analysis.Peak = a
		}
	}

	var sumSquares float64
	for _, v := range mono {
		sumSquares += v * v
	}
	analysis.RMS = math.Sqrt(sumSquares / float64(len(mono)))

	barMagnitudes(coeffs, analysis.BarMagnitudes[:])
	return analysis
}
