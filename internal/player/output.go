package player

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Sink plays a stream of signed 16-bit little-endian PCM
type Sink interface {
	// Start begins pulling from r in the background
	Start(r io.Reader) error

	// Playing reports whether the sink still has audio to play
	Playing() bool

	// Close stops playback
	Close() error
}

// Logger receives audio device messages. Output is discarded unless a
// caller redirects it.
var Logger = log.New(io.Discard, "", log.LstdFlags)

// oto allows one context per process, so it is shared by every Output
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

// otoContext returns the process-wide oto context, creating it on first use
func otoContext(sampleRate, channels int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != sampleRate || otoChannels != channels {
			return nil, fmt.Errorf("audio device already open at %dHz %dch, cannot switch to %dHz %dch",
				otoRate, otoChannels, sampleRate, channels)
		}
		Logger.Printf("Audio output already initialized with same format, reusing context")
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	otoCtx = ctx
	otoRate = sampleRate
	otoChannels = channels

	Logger.Printf("Audio output initialized: %dHz, %d channels", sampleRate, channels)
	return otoCtx, nil
}

// Output is a Sink backed by the system audio device
type Output struct {
	sampleRate int
	channels   int
	player     *oto.Player
}

// NewOutput creates an audio output for the given format. The device is
// opened by Start.
func NewOutput(sampleRate, channels int) *Output {
	return &Output{
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// Start opens the device if needed and starts playing r
func (o *Output) Start(r io.Reader) error {
	ctx, err := otoContext(o.sampleRate, o.channels)
	if err != nil {
		return err
	}
	if err := ctx.Resume(); err != nil {
		return fmt.Errorf("failed to resume audio device: %w", err)
	}

	o.player = ctx.NewPlayer(r)
	o.player.Play()
	return nil
}

// Playing reports whether the player is still draining its reader
func (o *Output) Playing() bool {
	return o.player != nil && o.player.IsPlaying()
}

// Close stops the player and suspends the device
func (o *Output) Close() error {
	if o.player == nil {
		return nil
	}
	o.player.Pause()
	err := o.player.Close()
	o.player = nil

	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		if serr := otoCtx.Suspend(); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}
