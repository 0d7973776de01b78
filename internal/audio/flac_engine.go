package audio

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

const flacEngineName = "flac"

// flacEngine delivers BlockSizeMax frames per block as interleaved int32.
// FLAC frames may be shorter than BlockSizeMax, so decoded frames are packed
// back to back and only the last block carries zero padding. A stream
// therefore yields BlockCount*BlockFrames frames, up to one block more than
// NSamples.
type flacEngine struct {
	rs       io.ReadSeeker
	stream   *flac.Stream
	info     StreamInfo
	bitDepth int
	frameBuf []int32
	windows  windowFiller
}

// OpenFLAC parses the FLAC signature and StreamInfo block
func OpenFLAC(rs io.ReadSeeker) (Engine, error) {
	// Parse FLAC stream - reads signature and StreamInfo block
	stream, err := flac.New(rs)
	if err != nil {
		return nil, notRecognized(flacEngineName, err.Error())
	}

	si := stream.Info
	if si.NChannels == 0 || si.BlockSizeMax == 0 {
		return nil, fmt.Errorf("%s: invalid StreamInfo (%d channels, max block size %d)", flacEngineName, si.NChannels, si.BlockSizeMax)
	}

	// A zero sample count means the encoder did not know the length
	blockCount := int64(-1)
	if si.NSamples > 0 {
		blockCount = ceilDiv(int64(si.NSamples), int64(si.BlockSizeMax))
	}

	return &flacEngine{
		rs:       rs,
		stream:   stream,
		bitDepth: int(si.BitsPerSample),
		info: StreamInfo{
			Channels:    uint16(si.NChannels),
			SampleRate:  si.SampleRate,
			BlockBytes:  uint32(si.BlockSizeMax) * uint32(si.NChannels) * 4,
			BlockFrames: uint32(si.BlockSizeMax),
			BlockCount:  blockCount,
			Encoding:    EncodingWide32,
		},
	}, nil
}

func (e *flacEngine) Info() StreamInfo {
	return e.info
}

// Source returns the byte source. The stream is not closed, since closing it
// would close the caller's source.
func (e *flacEngine) Source() io.ReadSeeker {
	return e.rs
}

// DecodeNext fills the block from as many frames as it takes
func (e *flacEngine) DecodeNext(b *Block) error {
	out := b.Int32[:cap(b.Int32)]
	if _, err := e.windows.fill(out, e.parseFrame); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return err
	}

	b.Kind = BlockInt32
	b.Int32 = out
	return nil
}

// parseFrame decodes the next frame and interleaves its subframes
func (e *flacEngine) parseFrame() ([]int32, error) {
	frame, err := e.stream.ParseNext()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%s: failed to parse frame: %w", flacEngineName, err)
	}

	numChans := int(e.info.Channels)
	if len(frame.Subframes) != numChans {
		return nil, fmt.Errorf("%s: frame has %d channels, stream has %d", flacEngineName, len(frame.Subframes), numChans)
	}

	bitDepth := int(frame.BitsPerSample)
	if bitDepth == 0 {
		bitDepth = e.bitDepth
	}

	frameSamples := len(frame.Subframes[0].Samples)
	if cap(e.frameBuf) < frameSamples*numChans {
		e.frameBuf = make([]int32, frameSamples*numChans)
	}
	run := e.frameBuf[:frameSamples*numChans]
	for ch, subframe := range frame.Subframes {
		if len(subframe.Samples) != frameSamples {
			return nil, fmt.Errorf("%s: subframe %d has %d samples, want %d", flacEngineName, ch, len(subframe.Samples), frameSamples)
		}
		for i, s := range subframe.Samples {
			run[i*numChans+ch] = scaleTo16(s, bitDepth)
		}
	}
	return run, nil
}
