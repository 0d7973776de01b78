package encoder

import (
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/linuxmatters/flatpcm/internal/config"
)

const (
	bitDepth      = 16
	wavFormatPCM  = 1
	bytesPerValue = bitDepth / 8
)

// Config holds the encoder configuration
type Config struct {
	SampleRate  int // Hz
	Channels    int // Interleaved channel count
	ChunkFrames int // Frames per WAV write, 0 selects config.ExportChunkFrames
}

// SampleFIFO provides a simple FIFO buffer for interleaved samples
type SampleFIFO struct {
	buffer []int
	size   int
}

// NewSampleFIFO creates a new sample FIFO buffer
func NewSampleFIFO(capacity int) *SampleFIFO {
	return &SampleFIFO{
		buffer: make([]int, 0, capacity),
	}
}

// Push adds samples to the FIFO
func (f *SampleFIFO) Push(samples []int16) {
	for _, s := range samples {
		f.buffer = append(f.buffer, int(s))
	}
	f.size = len(f.buffer)
}

// Pop removes and returns the requested number of samples
// Returns nil if not enough samples available
func (f *SampleFIFO) Pop(count int) []int {
	if f.size < count {
		return nil
	}

	result := make([]int, count)
	copy(result, f.buffer[:count])

	// Shift remaining samples
	copy(f.buffer, f.buffer[count:])
	f.buffer = f.buffer[:f.size-count]
	f.size -= count

	return result
}

// Drain removes and returns everything left in the FIFO
func (f *SampleFIFO) Drain() []int {
	return f.Pop(f.size)
}

// Available returns the number of samples in the buffer
func (f *SampleFIFO) Available() int {
	return f.size
}

// Encoder writes interleaved 16-bit samples as a PCM WAV stream
type Encoder struct {
	config Config
	wav    *wav.Encoder
	buf    *audio.IntBuffer
	fifo   *SampleFIFO

	chunkSamples   int
	samplesWritten int64
	closed         bool
}

// New creates a new encoder writing to out. The WAV header is finalised by Close,
// which seeks back to the start of out.
func New(out io.WriteSeeker, cfg Config) (*Encoder, error) {
	// Validate configuration
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", cfg.SampleRate)
	}
	if cfg.Channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", cfg.Channels)
	}
	if out == nil {
		return nil, fmt.Errorf("output cannot be nil")
	}
	if cfg.ChunkFrames <= 0 {
		cfg.ChunkFrames = config.ExportChunkFrames
	}

	chunkSamples := cfg.ChunkFrames * cfg.Channels
	return &Encoder{
		config:       cfg,
		wav:          wav.NewEncoder(out, cfg.SampleRate, bitDepth, cfg.Channels, wavFormatPCM),
		fifo:         NewSampleFIFO(chunkSamples * 2),
		chunkSamples: chunkSamples,
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: cfg.Channels,
				SampleRate:  cfg.SampleRate,
			},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// WriteSamples queues interleaved samples and writes every complete chunk
func (e *Encoder) WriteSamples(samples []int16) error {
	if e.closed {
		return fmt.Errorf("encoder is closed")
	}

	e.fifo.Push(samples)
	for e.fifo.Available() >= e.chunkSamples {
		if err := e.writeChunk(e.fifo.Pop(e.chunkSamples)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeChunk(data []int) error {
	e.buf.Data = data
	if err := e.wav.Write(e.buf); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	e.samplesWritten += int64(len(data))
	return nil
}

// SamplesWritten returns the number of samples written to the output so far
func (e *Encoder) SamplesWritten() int64 {
	return e.samplesWritten
}

// BytesWritten returns the size of the PCM data written so far
func (e *Encoder) BytesWritten() int64 {
	return e.samplesWritten * bytesPerValue
}

// Duration returns the playing time of the samples written so far
func (e *Encoder) Duration() time.Duration {
	frames := e.samplesWritten / int64(e.config.Channels)
	return time.Duration(frames) * time.Second / time.Duration(e.config.SampleRate)
}

// Close flushes queued samples and finalises the WAV header.
// It does not close the underlying writer.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if rest := e.fifo.Drain(); len(rest) > 0 {
		if err := e.writeChunk(rest); err != nil {
			return err
		}
	}

	if err := e.wav.Close(); err != nil {
		return fmt.Errorf("failed to finalise WAV header: %w", err)
	}
	return nil
}
