package audio

import (
	"encoding/binary"
	"io"
	"sync/atomic"
)

// ReadChunk pulls up to numSamples samples from src, normalised to [-1.0, 1.0).
// Returns io.EOF when the source has no samples left, or the source's decode
// error if it ended on one.
func ReadChunk(src Source, numSamples int) ([]float64, error) {
	samples := make([]float64, 0, numSamples)
	for len(samples) < numSamples {
		v, ok := src.Next()
		if !ok {
			break
		}
		samples = append(samples, float64(v)/32768.0)
	}

	if len(samples) == 0 {
		if err := src.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return samples, nil
}

// SampleReader exposes a Source as signed 16-bit little-endian PCM bytes
type SampleReader struct {
	src     Source
	volume  atomic.Int32
	pending byte
	hasHalf bool
}

// NewSampleReader creates a reader at full volume
func NewSampleReader(src Source) *SampleReader {
	r := &SampleReader{src: src}
	r.volume.Store(100)
	return r
}

// SetVolume sets the software volume (0-100). Safe to call while another goroutine reads.
func (r *SampleReader) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	r.volume.Store(int32(volume))
}

// Volume returns the current software volume
func (r *SampleReader) Volume() int {
	return int(r.volume.Load())
}

// Read fills p with little-endian sample bytes
func (r *SampleReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	// Odd-sized reads leave the high byte of the last sample for the next call
	if r.hasHalf {
		p[0] = r.pending
		r.hasHalf = false
		n = 1
	}

	volume := r.volume.Load()
	var pair [2]byte
	for n < len(p) {
		v, ok := r.src.Next()
		if !ok {
			break
		}
		if volume != 100 {
			v = int16(int32(v) * volume / 100)
		}
		binary.LittleEndian.PutUint16(pair[:], uint16(v))
		if len(p)-n == 1 {
			p[n] = pair[0]
			r.pending = pair[1]
			r.hasHalf = true
			n++
			break
		}
		p[n] = pair[0]
		p[n+1] = pair[1]
		n += 2
	}

	if n == 0 {
		if err := r.src.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	return n, nil
}
