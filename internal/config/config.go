package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Decoding settings
const (
	WAVBlockFrames    = 1024 // Frames per block delivered by the PCM WAV engine
	ExportChunkFrames = 4096 // Frames per write when exporting to WAV
	DumpDefaultCount  = 32   // Samples printed by the dump command
)

// Analysis settings
const (
	AnalysisWindow = 2048 // Mono frames per analysis window, a power of two
	NumBars        = 64   // Spectrum bars per window
	ProgressEvery  = 8    // Windows between progress callbacks
)

// Playback settings
const (
	PlaybackChunk   = 4096 // Samples per producer write into the shared buffer
	MeterWindow     = 2048 // Samples per level meter reading
	DefaultVolume   = 100
	MeterRefreshHz  = 20
	CompactInterval = 64 // Meter ticks between buffer compactions
)

// Waveform image settings
const (
	Width  = 1280
	Height = 360

	// Waveform colour (RGB), brand red
	WaveColorR = 164
	WaveColorG = 0
	WaveColorB = 0

	// Label colour (RGB), brand yellow #F8B31D
	TextColorR = 248
	TextColorG = 179
	TextColorB = 29

	TitleFontSize = 24.0
	LabelMargin   = 16
)

// RuntimeConfig holds user overrides for the waveform renderer.
// A colour override applies only when all three channels are set.
type RuntimeConfig struct {
	WaveColorR *uint8
	WaveColorG *uint8
	WaveColorB *uint8

	TextColorR *uint8
	TextColorG *uint8
	TextColorB *uint8

	Title string
}

// GetWaveColor returns the waveform colour, falling back to the defaults
func (c *RuntimeConfig) GetWaveColor() (uint8, uint8, uint8) {
	if c == nil || c.WaveColorR == nil || c.WaveColorG == nil || c.WaveColorB == nil {
		return WaveColorR, WaveColorG, WaveColorB
	}
	return *c.WaveColorR, *c.WaveColorG, *c.WaveColorB
}

// GetTextColor returns the label colour, falling back to the defaults
func (c *RuntimeConfig) GetTextColor() (uint8, uint8, uint8) {
	if c == nil || c.TextColorR == nil || c.TextColorG == nil || c.TextColorB == nil {
		return TextColorR, TextColorG, TextColorB
	}
	return *c.TextColorR, *c.TextColorG, *c.TextColorB
}

// SetWaveColor parses a hex colour and stores it as the waveform override
func (c *RuntimeConfig) SetWaveColor(hex string) error {
	r, g, b, err := ParseHexColor(hex)
	if err != nil {
		return err
	}
	c.WaveColorR, c.WaveColorG, c.WaveColorB = &r, &g, &b
	return nil
}

// SetTextColor parses a hex colour and stores it as the label override
func (c *RuntimeConfig) SetTextColor(hex string) error {
	r, g, b, err := ParseHexColor(hex)
	if err != nil {
		return err
	}
	c.TextColorR, c.TextColorG, c.TextColorB = &r, &g, &b
	return nil
}

// ParseHexColor parses "RRGGBB" or "#RRGGBB" into its components
func ParseHexColor(hex string) (uint8, uint8, uint8, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: want 6 hex digits", hex)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex colour %q: %w", hex, err)
	}

	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}
