package audio

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/linuxmatters/flatpcm/internal/config"
)

const (
	wavEngineName       = "pcm wav"
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// wavEngine delivers integer PCM WAV data in fixed-size blocks of int32.
// Short reads are carried into the next block; only the last block is
// zero-padded, past PCMLen.
type wavEngine struct {
	rs       io.ReadSeeker
	decoder  *wav.Decoder
	info     StreamInfo
	bitDepth int
	intBuf   *audio.IntBuffer
	run      []int32
	windows  windowFiller
}

// OpenWAV parses an integer PCM WAV header and forwards rs to the PCM data
func OpenWAV(rs io.ReadSeeker) (Engine, error) {
	decoder := wav.NewDecoder(rs)
	if !decoder.IsValidFile() {
		return nil, notRecognized(wavEngineName, "invalid WAV file")
	}
	if decoder.WavAudioFormat != wavFormatPCM && decoder.WavAudioFormat != wavFormatExtensible {
		return nil, notRecognized(wavEngineName, fmt.Sprintf("format tag %#x", decoder.WavAudioFormat))
	}

	bitDepth := int(decoder.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%s: unsupported bit depth %d", wavEngineName, bitDepth)
	}

	// Get format info without reading all samples
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%s: failed to seek to PCM data: %w", wavEngineName, err)
	}

	numChans := int(decoder.NumChans)
	frames := config.WAVBlockFrames
	bytesPerBlock := int64(frames * numChans * bitDepth / 8)

	return &wavEngine{
		rs:       rs,
		decoder:  decoder,
		bitDepth: bitDepth,
		intBuf: &audio.IntBuffer{
			Data: make([]int, frames*numChans),
			Format: &audio.Format{
				NumChannels: numChans,
				SampleRate:  int(decoder.SampleRate),
			},
			SourceBitDepth: bitDepth,
		},
		run: make([]int32, frames*numChans),
		info: StreamInfo{
			Channels:    uint16(numChans),
			SampleRate:  decoder.SampleRate,
			BlockBytes:  uint32(frames * numChans * 4),
			BlockFrames: uint32(frames),
			BlockCount:  ceilDiv(decoder.PCMLen(), bytesPerBlock),
			Encoding:    EncodingWide32,
		},
	}, nil
}

func (e *wavEngine) Info() StreamInfo {
	return e.info
}

func (e *wavEngine) Source() io.ReadSeeker {
	return e.rs
}

// DecodeNext fills one block of interleaved samples
func (e *wavEngine) DecodeNext(b *Block) error {
	out := b.Int32[:cap(b.Int32)]
	if _, err := e.windows.fill(out, e.readRun); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return err
	}

	b.Kind = BlockInt32
	b.Int32 = out
	return nil
}

// readRun reads whatever the PCM chunk returns next, scaled to 16-bit range
func (e *wavEngine) readRun() ([]int32, error) {
	n, err := e.decoder.PCMBuffer(e.intBuf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: failed to read PCM buffer: %w", wavEngineName, err)
	}
	if n == 0 {
		return nil, io.EOF
	}

	for i, v := range e.intBuf.Data[:n] {
		s := int32(v)
		if e.bitDepth == 8 {
			// 8-bit WAV is unsigned
			s -= 128
		}
		e.run[i] = scaleTo16(s, e.bitDepth)
	}
	return e.run[:n], nil
}
