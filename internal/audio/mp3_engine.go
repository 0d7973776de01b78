package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

const (
	mp3EngineName = "mp3"

	// go-mp3 always outputs interleaved stereo, 16-bit little-endian
	mp3Channels       = 2
	mp3FramesPerBlock = 1152
	mp3BlockBytes     = mp3FramesPerBlock * mp3Channels * 2
)

// mp3Engine delivers decoded MPEG audio frames as 16-bit blocks
type mp3Engine struct {
	rs      io.ReadSeeker
	decoder *mp3.Decoder
	info    StreamInfo
	raw     []byte
}

// OpenMP3 locates the first MPEG audio frame. rs must start at the beginning
// of the stream, since go-mp3 rewinds to offset zero while indexing frames.
func OpenMP3(rs io.ReadSeeker) (Engine, error) {
	decoder, err := mp3.NewDecoder(rs)
	if err != nil {
		return nil, notRecognized(mp3EngineName, err.Error())
	}

	blockCount := int64(-1)
	if length := decoder.Length(); length > 0 {
		blockCount = ceilDiv(length, mp3BlockBytes)
	}

	return &mp3Engine{
		rs:      rs,
		decoder: decoder,
		raw:     make([]byte, mp3BlockBytes),
		info: StreamInfo{
			Channels:    mp3Channels,
			SampleRate:  uint32(decoder.SampleRate()),
			BlockBytes:  mp3BlockBytes,
			BlockFrames: mp3FramesPerBlock,
			BlockCount:  blockCount,
			Encoding:    EncodingNative16,
		},
	}, nil
}

func (e *mp3Engine) Info() StreamInfo {
	return e.info
}

func (e *mp3Engine) Source() io.ReadSeeker {
	return e.rs
}

// DecodeNext reads one block of PCM. The final block may be shorter.
func (e *mp3Engine) DecodeNext(b *Block) error {
	n, err := io.ReadFull(e.decoder, e.raw)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("%s: failed to read MP3 data: %w", mp3EngineName, err)
	}

	numSamples := n / 2
	if numSamples == 0 {
		return io.EOF
	}

	out := b.Int16[:cap(b.Int16)]
	if numSamples > len(out) {
		return fmt.Errorf("%s: buffer holds %d samples, block has %d", mp3EngineName, len(out), numSamples)
	}
	for i := 0; i < numSamples; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(e.raw[i*2:]))
	}

	b.Kind = BlockInt16
	b.Int16 = out[:numSamples]
	return nil
}
