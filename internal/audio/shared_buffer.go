package audio

import (
	"errors"
	"sync"
	"time"
)

// ErrBufferClosed is returned when attempting to read from a closed buffer
var ErrBufferClosed = errors.New("buffer is closed")

// SharedSampleBuffer provides a thread-safe buffer for sharing decoded samples
// between playback and a level meter. Each consumer has an independent read
// position.
//
// Design:
// - Single producer (decoder goroutine) writes samples via Write() or Fill()
// - Playback reads block until samples arrive (ReadForPlayback)
// - Meter reads never block and only see samples playback has already taken
// - An optional high-water mark blocks the producer while playback lags
// - EOF signalling via Close() propagates to both consumers
type SharedSampleBuffer struct {
	mu sync.Mutex

	// Underlying sample storage, interleaved
	samples []int16

	// Independent read positions for each consumer
	playbackPos int
	meterPos    int

	// Producer blocks while this many samples are unread by playback (0 = unbounded)
	highWater int

	// EOF signalling
	closed bool
	err    error

	// Condition variable for blocking reads and writes
	cond *sync.Cond
}

// NewSharedSampleBuffer creates a new shared sample buffer.
// initialCapacity is a hint for the expected total samples (can grow as needed).
func NewSharedSampleBuffer(initialCapacity int) *SharedSampleBuffer {
	if initialCapacity <= 0 {
		initialCapacity = 1024 * 1024 // 1M samples default (~12 seconds of 44.1kHz stereo)
	}

	b := &SharedSampleBuffer{
		samples: make([]int16, 0, initialCapacity),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// SetHighWater limits how far the producer may run ahead of playback.
// Zero removes the limit.
func (b *SharedSampleBuffer) SetHighWater(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.highWater = n
	b.cond.Broadcast()
}

// Write appends samples to the buffer. This is called by the producer.
// Blocks while the high-water mark is exceeded.
func (b *SharedSampleBuffer) Write(samples []int16) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for !b.closed && b.highWater > 0 && len(b.samples)-b.playbackPos >= b.highWater {
		b.cond.Wait()
	}
	if b.closed {
		return ErrBufferClosed
	}

	b.samples = append(b.samples, samples...)
	b.cond.Broadcast() // Wake up any waiting consumers
	return nil
}

// Fill pulls src to the end in chunks of chunkSize samples, then closes the
// buffer with the source's error. Returns that error, or ErrBufferClosed if
// the buffer was closed first.
func (b *SharedSampleBuffer) Fill(src Source, chunkSize int) error {
	chunk := make([]int16, 0, chunkSize)
	for {
		v, ok := src.Next()
		if ok {
			chunk = append(chunk, v)
			if len(chunk) < chunkSize {
				continue
			}
		}
		if len(chunk) > 0 {
			if err := b.Write(chunk); err != nil {
				return err
			}
			chunk = chunk[:0]
		}
		if !ok {
			err := src.Err()
			b.CloseWithError(err)
			return err
		}
	}
}

// ReadForPlayback reads samples for playback.
// Returns exactly numSamples, blocking until enough samples are available or
// the buffer is closed, in which case the remainder is returned.
// Returns ErrBufferClosed when the buffer is closed and all samples have been read.
func (b *SharedSampleBuffer) ReadForPlayback(numSamples int) ([]int16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		available := len(b.samples) - b.playbackPos

		if available >= numSamples {
			return b.takePlayback(numSamples), nil
		}

		// Buffer closed - return whatever we have
		if b.closed {
			if available <= 0 {
				return nil, ErrBufferClosed
			}
			return b.takePlayback(available), nil
		}

		// Wait for more samples
		b.cond.Wait()
	}
}

// takePlayback copies n samples at the playback position. Caller holds mu.
func (b *SharedSampleBuffer) takePlayback(n int) []int16 {
	result := make([]int16, n)
	copy(result, b.samples[b.playbackPos:b.playbackPos+n])
	b.playbackPos += n
	b.cond.Broadcast() // Wake a producer waiting on the high-water mark
	return result
}

// ReadForMeter returns up to the latest numSamples samples that playback has
// consumed since the previous meter read. Older unread samples are skipped so
// the meter tracks what is playing now.
// Non-blocking: returns immediately with available samples (may be empty).
// Returns ErrBufferClosed when the buffer is closed and playback has drained it.
func (b *SharedSampleBuffer) ReadForMeter(numSamples int) ([]int16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	available := b.playbackPos - b.meterPos
	if available <= 0 {
		if b.closed && b.playbackPos == len(b.samples) {
			return nil, ErrBufferClosed
		}
		return nil, nil // Nothing new has played yet
	}

	start := b.meterPos
	if available > numSamples {
		start = b.playbackPos - numSamples
	}

	result := make([]int16, b.playbackPos-start)
	copy(result, b.samples[start:b.playbackPos])
	b.meterPos = b.playbackPos

	return result, nil
}

// AvailableForPlayback returns the number of samples buffered ahead of playback
func (b *SharedSampleBuffer) AvailableForPlayback() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples) - b.playbackPos
}

// Close signals that no more samples will be written.
// Wakes up any blocked consumers and producers.
func (b *SharedSampleBuffer) Close() {
	b.CloseWithError(nil)
}

// CloseWithError closes the buffer and records the error that ended the producer
func (b *SharedSampleBuffer) CloseWithError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.err = err
	}
	b.closed = true
	b.cond.Broadcast()
}

// Err returns the error passed to CloseWithError
func (b *SharedSampleBuffer) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Compact removes samples that have been consumed by both consumers.
// This frees memory for long streams. Call periodically during playback.
func (b *SharedSampleBuffer) Compact() {
	b.mu.Lock()
	defer b.mu.Unlock()

	// The meter never passes playback, so its position is the minimum
	minPos := b.meterPos
	if minPos == 0 {
		return // Nothing to compact
	}

	remaining := len(b.samples) - minPos
	copy(b.samples, b.samples[minPos:])
	b.samples = b.samples[:remaining]
	b.playbackPos -= minPos
	b.meterPos = 0
}

// PlaybackSource returns a Source that plays the buffer's contents. Metadata
// comes from meta; Next blocks until the producer delivers samples.
func (b *SharedSampleBuffer) PlaybackSource(meta Source, chunkSize int) Source {
	return &bufferedSource{buf: b, meta: meta, chunkSize: chunkSize}
}

// bufferedSource adapts the playback side of a SharedSampleBuffer to Source
type bufferedSource struct {
	buf       *SharedSampleBuffer
	meta      Source
	chunkSize int
	pending   []int16
	pos       int
	done      bool
}

func (s *bufferedSource) Next() (int16, bool) {
	if s.done {
		return 0, false
	}
	if s.pos == len(s.pending) {
		chunk, err := s.buf.ReadForPlayback(s.chunkSize)
		if err != nil || len(chunk) == 0 {
			s.done = true
			return 0, false
		}
		s.pending = chunk
		s.pos = 0
	}
	v := s.pending[s.pos]
	s.pos++
	return v, true
}

func (s *bufferedSource) Err() error {
	return s.buf.Err()
}

func (s *bufferedSource) Channels() uint16 {
	return s.meta.Channels()
}

func (s *bufferedSource) SampleRate() uint32 {
	return s.meta.SampleRate()
}

func (s *bufferedSource) CurrentFrameLen() (int, bool) {
	return s.meta.CurrentFrameLen()
}

func (s *bufferedSource) TotalDuration() (time.Duration, bool) {
	return s.meta.TotalDuration()
}
