package audio

import "time"

// Source is a lazy, finite, non-restartable sequence of interleaved 16-bit
// samples with the metadata a playback pipeline needs
type Source interface {
	// Next returns the next sample, or false once the sequence has ended.
	// Once false is returned every later call also returns false.
	Next() (int16, bool)

	// Err returns the decode error that ended the sequence, or nil after a clean end
	Err() error

	// Channels returns the number of interleaved channels (1=mono, 2=stereo)
	Channels() uint16

	// SampleRate returns the audio sample rate in Hz
	SampleRate() uint32

	// CurrentFrameLen returns the granularity in bytes at which the format could change
	CurrentFrameLen() (int, bool)

	// TotalDuration returns the estimated stream length, or false when unknown
	TotalDuration() (time.Duration, bool)
}

// Ensure BlockDecoder satisfies Source
var _ Source = (*BlockDecoder)(nil)
