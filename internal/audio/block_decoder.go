package audio

import (
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrUnsupportedBuffer is reported when a block arrives in a variant the decoder cannot narrow
	ErrUnsupportedBuffer = errors.New("unsupported block buffer variant")

	// ErrShortBlock is reported when a 32-bit block holds fewer elements than BlockBytes/4
	ErrShortBlock = errors.New("block shorter than declared block size")
)

// Stats counts decoder activity
type Stats struct {
	BlocksDecoded   int
	SamplesProduced int64
}

// BlockDecoder flattens the blocks of an Engine into a single pull-based
// sequence of 16-bit samples.
//
// The first block is decoded during construction so metadata and the first
// pull are available immediately. Once Next reports no sample it keeps doing
// so. Err distinguishes a clean end of stream (nil) from a decode failure.
//
// A BlockDecoder is not safe for concurrent use.
type BlockDecoder struct {
	engine Engine
	info   StreamInfo
	block  *Block
	kind   BlockKind
	cursor int
	pull   func(d *BlockDecoder) (int16, bool)

	done  bool
	err   error
	stats Stats
}

// NewBlockDecoder probes rs with open. If the header is not recognised the
// source is seeked back to where it was and ErrNotRecognized is returned, so
// the caller can try another decoder on the same source.
func NewBlockDecoder(rs io.ReadSeeker, open Opener) (*BlockDecoder, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to read source position: %w", err)
	}

	engine, err := open(rs)
	if err != nil {
		if _, serr := rs.Seek(start, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("failed to restore source position: %w", serr)
		}
		if errors.Is(err, ErrNotRecognized) {
			return nil, ErrNotRecognized
		}
		return nil, err
	}

	return newBlockDecoder(engine), nil
}

// newBlockDecoder wraps an already opened engine and decodes its first block
func newBlockDecoder(engine Engine) *BlockDecoder {
	info := engine.Info()
	block := NewBlock(info)
	d := &BlockDecoder{
		engine: engine,
		info:   info,
		block:  block,
		kind:   block.Kind,
	}

	// Pick the pull strategy once; the hot path never branches on encoding
	if info.Encoding == EncodingNative16 {
		d.pull = pullNative16
	} else {
		d.pull = pullWide32
	}

	d.refill()
	return d
}

// refill decodes the next block in place and resets the cursor.
// It returns false and marks the decoder exhausted at end of stream or on failure.
func (d *BlockDecoder) refill() bool {
	if err := d.engine.DecodeNext(d.block); err != nil {
		d.done = true
		if !errors.Is(err, io.EOF) {
			d.err = fmt.Errorf("block %d: %w", d.stats.BlocksDecoded, err)
		}
		return false
	}
	d.stats.BlocksDecoded++
	d.cursor = 0

	// A float block, or any variant other than the one allocated, cannot be served
	if d.block.Kind != d.kind {
		d.done = true
		d.err = ErrUnsupportedBuffer
		return false
	}
	return true
}

// pullNative16 serves 16-bit blocks. The block is exhausted at its own length;
// empty blocks are skipped.
func pullNative16(d *BlockDecoder) (int16, bool) {
	for d.cursor == len(d.block.Int16) {
		if !d.refill() {
			return 0, false
		}
	}
	v := d.block.Int16[d.cursor]
	d.cursor++
	return v, true
}

// pullWide32 serves 32-bit blocks. The block is exhausted after BlockBytes/4
// elements regardless of the slice length, and each element is narrowed by
// truncation.
func pullWide32(d *BlockDecoder) (int16, bool) {
	if d.cursor == int(d.info.BlockBytes/4) {
		if !d.refill() {
			return 0, false
		}
	}
	if d.cursor >= len(d.block.Int32) {
		d.done = true
		d.err = ErrShortBlock
		return 0, false
	}
	v := d.block.Int32[d.cursor]
	d.cursor++
	return int16(v), true
}

// Next returns the next sample, or false when the stream has ended
func (d *BlockDecoder) Next() (int16, bool) {
	if d.done {
		return 0, false
	}
	v, ok := d.pull(d)
	if ok {
		d.stats.SamplesProduced++
	}
	return v, ok
}

// Err returns the error that ended the stream, or nil after a clean end of stream
func (d *BlockDecoder) Err() error {
	return d.err
}

// Info returns the stream description captured at construction
func (d *BlockDecoder) Info() StreamInfo {
	return d.info
}

// CurrentFrameLen returns the size in bytes of one decoded block
func (d *BlockDecoder) CurrentFrameLen() (int, bool) {
	return int(d.info.BlockBytes), true
}

// Channels returns the number of interleaved channels
func (d *BlockDecoder) Channels() uint16 {
	return d.info.Channels
}

// SampleRate returns the sample rate in Hz
func (d *BlockDecoder) SampleRate() uint32 {
	return d.info.SampleRate
}

// TotalDuration estimates the stream length as BlockCount*BlockFrames/SampleRate,
// assuming every block is full. It reports false when the block count is unknown.
func (d *BlockDecoder) TotalDuration() (time.Duration, bool) {
	return blockDuration(d.info)
}

// Stats returns the blocks decoded and samples produced so far
func (d *BlockDecoder) Stats() Stats {
	return d.stats
}

// IntoInner surrenders the byte source. The decoder must not be used afterwards.
func (d *BlockDecoder) IntoInner() io.ReadSeeker {
	d.done = true
	return d.engine.Source()
}

func blockDuration(info StreamInfo) (time.Duration, bool) {
	if info.BlockCount < 0 || info.SampleRate == 0 {
		return 0, false
	}
	frames := info.BlockCount * int64(info.BlockFrames)
	rate := int64(info.SampleRate)

	// Split whole seconds from the remainder to keep the nanosecond product in range
	secs := frames / rate
	rem := frames % rate
	return time.Duration(secs)*time.Second + time.Duration(rem)*time.Second/time.Duration(rate), true
}
