package player

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/linuxmatters/flatpcm/internal/audio"
	"github.com/linuxmatters/flatpcm/internal/config"
)

// Options control playback
type Options struct {
	Volume  int         // 0-100
	OnLevel func(Level) // Called at config.MeterRefreshHz with the level of what is playing
	Sink    Sink        // nil selects the system audio device
}

// Result summarises a playback session
type Result struct {
	Samples int64
	Elapsed time.Duration
}

// Play streams src to the audio device until the stream drains or ctx is
// cancelled. A producer goroutine fills a shared buffer from src; the sink
// and the level meter both consume it.
func Play(ctx context.Context, src audio.Source, opts Options) (Result, error) {
	sink := opts.Sink
	if sink == nil {
		sink = NewOutput(int(src.SampleRate()), int(src.Channels()))
	}

	buf := audio.NewSharedSampleBuffer(0)
	buf.SetHighWater(config.PlaybackChunk * 16)

	// Producer
	fillErr := make(chan error, 1)
	go func() {
		fillErr <- buf.Fill(src, config.PlaybackChunk)
	}()

	reader := audio.NewSampleReader(buf.PlaybackSource(src, config.PlaybackChunk))
	reader.SetVolume(opts.Volume)
	counter := &countingReader{r: reader}

	startTime := time.Now()
	if err := sink.Start(counter); err != nil {
		buf.Close()
		<-fillErr
		return Result{}, err
	}

	ticker := time.NewTicker(time.Second / config.MeterRefreshHz)
	defer ticker.Stop()

	ticks := 0
	result := func() Result {
		return Result{Samples: counter.n.Load() / 2, Elapsed: time.Since(startTime)}
	}

	for {
		select {
		case <-ctx.Done():
			_ = sink.Close()
			buf.Close()
			<-fillErr
			return result(), ctx.Err()

		case <-ticker.C:
			ticks++
			samples, err := buf.ReadForMeter(config.MeterWindow)
			if len(samples) > 0 && opts.OnLevel != nil {
				level := MeasureLevel(samples)
				level.Position = position(counter.n.Load()/2, src)
				level.Buffered = position(int64(buf.AvailableForPlayback()), src)
				opts.OnLevel(level)
			}
			if ticks%config.CompactInterval == 0 {
				buf.Compact()
			}

			if errors.Is(err, audio.ErrBufferClosed) && !sink.Playing() {
				closeErr := sink.Close()
				if err := <-fillErr; err != nil {
					return result(), err
				}
				return result(), closeErr
			}
		}
	}
}

// position converts a count of interleaved samples into playing time
func position(samples int64, src audio.Source) time.Duration {
	frameRate := int64(src.Channels()) * int64(src.SampleRate())
	if frameRate == 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(frameRate)
}

// countingReader counts the bytes the sink has pulled
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
