package encoder

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/linuxmatters/flatpcm/internal/audio"
	"github.com/linuxmatters/flatpcm/internal/config"
)

// Progress reports export progress
type Progress struct {
	Frames      int64
	TotalFrames int64 // 0 when the stream duration is unknown
	Bytes       int64
	Elapsed     time.Duration
}

// ProgressFunc is called after each chunk is written
type ProgressFunc func(Progress)

// Result summarises a finished export
type Result struct {
	Samples  int64
	Frames   int64
	Bytes    int64 // PCM data bytes, excluding the header
	Duration time.Duration
	Elapsed  time.Duration
}

// ExportWAV drains src into w as a 16-bit PCM WAV stream.
// If src ends on a decode error the WAV is still finalised with everything
// decoded so far, and the error is returned alongside the result.
func ExportWAV(src audio.Source, w io.WriteSeeker, progressCb ProgressFunc) (Result, error) {
	channels := int(src.Channels())
	enc, err := New(w, Config{
		SampleRate: int(src.SampleRate()),
		Channels:   channels,
	})
	if err != nil {
		return Result{}, err
	}

	var totalFrames int64
	if d, ok := src.TotalDuration(); ok {
		totalFrames = int64(math.Round(d.Seconds() * float64(src.SampleRate())))
	}

	startTime := time.Now()
	chunk := make([]int16, 0, config.ExportChunkFrames*channels)
	chunks := 0

	for {
		v, ok := src.Next()
		if ok {
			chunk = append(chunk, v)
			if len(chunk) < cap(chunk) {
				continue
			}
		}

		if len(chunk) > 0 {
			if err := enc.WriteSamples(chunk); err != nil {
				return Result{}, err
			}
			chunk = chunk[:0]
			chunks++

			if progressCb != nil && chunks%config.ProgressEvery == 0 {
				progressCb(Progress{
					Frames:      enc.SamplesWritten() / int64(channels),
					TotalFrames: totalFrames,
					Bytes:       enc.BytesWritten(),
					Elapsed:     time.Since(startTime),
				})
			}
		}

		if !ok {
			break
		}
	}

	if err := enc.Close(); err != nil {
		return Result{}, err
	}

	samples := enc.SamplesWritten()
	result := Result{
		Samples:  samples,
		Frames:   samples / int64(channels),
		Bytes:    enc.BytesWritten(),
		Duration: enc.Duration(),
		Elapsed:  time.Since(startTime),
	}

	if progressCb != nil {
		progressCb(Progress{
			Frames:      result.Frames,
			TotalFrames: result.Frames,
			Bytes:       result.Bytes,
			Elapsed:     result.Elapsed,
		})
	}

	if err := src.Err(); err != nil {
		return result, fmt.Errorf("stream ended early: %w", err)
	}
	return result, nil
}

// ExportFile creates outputPath and exports src into it
func ExportFile(src audio.Source, outputPath string, progressCb ProgressFunc) (Result, error) {
	if outputPath == "" {
		return Result{}, fmt.Errorf("output path cannot be empty")
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create output file: %w", err)
	}

	result, err := ExportWAV(src, f, progressCb)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close output file: %w", cerr)
	}
	return result, err
}
