package player

import (
	"math"
	"time"
)

// silenceDB is reported for a window with no signal
const silenceDB = -96.0

// Level is the loudness of a window of interleaved samples
type Level struct {
	RMS    float64 // 0.0-1.0
	Peak   float64 // 0.0-1.0
	RMSdB  float64 // dBFS
	PeakdB float64 // dBFS

	// Playback position when the level was taken, set by Play
	Position time.Duration

	// Decoded audio queued ahead of the device, set by Play
	Buffered time.Duration
}

// MeasureLevel computes RMS and peak over interleaved samples
func MeasureLevel(samples []int16) Level {
	if len(samples) == 0 {
		return Level{RMSdB: silenceDB, PeakdB: silenceDB}
	}

	var sumSquares, peak float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sumSquares += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	rms := math.Sqrt(sumSquares / float64(len(samples)))

	return Level{
		RMS:    rms,
		Peak:   peak,
		RMSdB:  toDB(rms),
		PeakdB: toDB(peak),
	}
}

func toDB(v float64) float64 {
	if v <= 0 {
		return silenceDB
	}
	return math.Max(20*math.Log10(v), silenceDB)
}
