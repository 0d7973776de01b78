package audio

import (
	"errors"
	"fmt"
	"io"
)

// ErrNotRecognized is returned when an engine does not recognise the stream header
var ErrNotRecognized = errors.New("stream format not recognized")

// Encoding describes how an engine delivers decoded block elements
type Encoding int

const (
	// EncodingNative16 is ADPCM-derived output that is natively 16-bit
	EncodingNative16 Encoding = iota
	// EncodingWide32 is PCM delivered as 32-bit integers
	EncodingWide32
	// EncodingFloat32 is PCM delivered as 32-bit floats. No engine selects it.
	EncodingFloat32
)

func (e Encoding) String() string {
	switch e {
	case EncodingNative16:
		return "native16"
	case EncodingWide32:
		return "wide32"
	case EncodingFloat32:
		return "float32"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// StreamInfo is the stream description captured once when an engine opens
type StreamInfo struct {
	Channels    uint16
	SampleRate  uint32
	BlockBytes  uint32 // Bytes of one decoded block as delivered by the engine
	BlockFrames uint32
	BlockCount  int64 // -1 when unknown
	Encoding    Encoding
}

// BlockKind names the active variant of a Block
type BlockKind int

const (
	BlockInt16 BlockKind = iota
	BlockInt32
	BlockFloat32
)

// Block is a decoded block buffer. Only the slice named by Kind holds samples.
// Engines refill it in place and may reslice within its capacity.
type Block struct {
	Kind    BlockKind
	Int16   []int16
	Int32   []int32
	Float32 []float32
}

// NewBlock allocates a buffer sized and typed for the given stream
func NewBlock(info StreamInfo) *Block {
	if info.Encoding == EncodingNative16 {
		return &Block{Kind: BlockInt16, Int16: make([]int16, info.BlockBytes/2)}
	}
	return &Block{Kind: BlockInt32, Int32: make([]int32, info.BlockBytes/4)}
}

// Engine decodes a block-based stream from a byte source
type Engine interface {
	// Info returns the stream description parsed from the header
	Info() StreamInfo

	// DecodeNext fills b with the next block.
	// Returns io.EOF at end of stream; any other error is a decode failure.
	DecodeNext(b *Block) error

	// Source surrenders the underlying byte source
	Source() io.ReadSeeker
}

// Opener parses a stream header and returns a live engine.
// It returns an error wrapping ErrNotRecognized when the header is not its format.
type Opener func(rs io.ReadSeeker) (Engine, error)

// notRecognized wraps ErrNotRecognized with the engine name and reason
func notRecognized(engine, reason string) error {
	return fmt.Errorf("%s: %s: %w", engine, reason, ErrNotRecognized)
}

// scaleTo16 shifts a signed integer sample of the given bit depth into the 16-bit range
func scaleTo16(v int32, bitDepth int) int32 {
	switch {
	case bitDepth > 16:
		return v >> uint(bitDepth-16)
	case bitDepth < 16:
		return v << uint(16-bitDepth)
	default:
		return v
	}
}

// ceilDiv returns ceil(a/b) for positive b
func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// windowFiller packs decoded runs of any length into fixed-size windows of
// interleaved int32. Samples left over from one run carry into the next
// window, so only the final window is zero-padded.
type windowFiller struct {
	pending []int32
	err     error // io.EOF or the decode failure that ended the runs
}

// fill copies pending samples into out, calling next for more until out is
// full. It returns the number of decoded samples in out. An error is held
// back until every sample decoded before it has been delivered.
func (w *windowFiller) fill(out []int32, next func() ([]int32, error)) (int, error) {
	n := 0
	for n < len(out) {
		if len(w.pending) == 0 {
			if w.err != nil {
				break
			}
			run, err := next()
			if err != nil {
				w.err = err
				break
			}
			w.pending = run
			continue
		}
		c := copy(out[n:], w.pending)
		w.pending = w.pending[c:]
		n += c
	}
	if n == 0 && w.err != nil {
		return 0, w.err
	}
	clear(out[n:])
	return n, nil
}
