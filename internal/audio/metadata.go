package audio

import "time"

// AudioMetadata holds display information about an opened stream
type AudioMetadata struct {
	Format      string
	Encoding    Encoding
	SampleRate  int
	Channels    int
	BlockBytes  int
	BlockFrames int
	BlockCount  int64
	Duration    time.Duration
	DurationOK  bool
}

// Describe collects metadata from an opened decoder.
// Metadata is valid before the first pull.
func Describe(d *BlockDecoder, format string) *AudioMetadata {
	info := d.Info()
	duration, ok := d.TotalDuration()
	frameLen, _ := d.CurrentFrameLen()

	return &AudioMetadata{
		Format:      format,
		Encoding:    info.Encoding,
		SampleRate:  int(d.SampleRate()),
		Channels:    int(d.Channels()),
		BlockBytes:  frameLen,
		BlockFrames: int(info.BlockFrames),
		BlockCount:  info.BlockCount,
		Duration:    duration,
		DurationOK:  ok,
	}
}
