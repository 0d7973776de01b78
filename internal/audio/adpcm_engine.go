package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/riff"
)

const (
	wavFormatIMAADPCM = 0x11
	imaEngineName     = "ima adpcm"
)

var factID = [4]byte{'f', 'a', 'c', 't'}

var imaStepTable = [89]int{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17, 19, 21, 23, 25, 28, 31, 34,
	37, 41, 45, 50, 55, 60, 66, 73, 80, 88, 97, 107, 118, 130, 143,
	157, 173, 190, 209, 230, 253, 279, 307, 337, 371, 408, 449, 494,
	544, 598, 658, 724, 796, 876, 963, 1060, 1166, 1282, 1411, 1552,
	1707, 1878, 2066, 2272, 2499, 2749, 3024, 3327, 3660, 4026,
	4428, 4871, 5358, 5894, 6484, 7132, 7845, 8630, 9493, 10442,
	11487, 12635, 13899, 15289, 16818, 18500, 20350, 22385, 24623,
	27086, 29794, 32767,
}

var imaIndexTable = [16]int{
	-1, -1, -1, -1, 2, 4, 6, 8,
	-1, -1, -1, -1, 2, 4, 6, 8,
}

// imaChannel is the predictor state of one channel
type imaChannel struct {
	predictor int
	index     int
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// decodeNibble decodes one 4-bit code and advances the channel state
func (c *imaChannel) decodeNibble(code byte) int16 {
	step := imaStepTable[c.index]
	c.index = clamp(c.index+imaIndexTable[code&0x0f], 0, len(imaStepTable)-1)

	diff := step >> 3
	if code&1 != 0 {
		diff += step >> 2
	}
	if code&2 != 0 {
		diff += step >> 1
	}
	if code&4 != 0 {
		diff += step
	}
	if code&8 != 0 {
		diff = -diff
	}

	c.predictor = clamp(c.predictor+diff, -32768, 32767)
	return int16(c.predictor)
}

// imaEngine decodes IMA/DVI ADPCM blocks from a RIFF WAVE stream
type imaEngine struct {
	rs              io.ReadSeeker
	info            StreamInfo
	blockAlign      int
	samplesPerBlock int
	remainingBytes  int64
	remainingFrames int64 // -1 without a fact chunk
	raw             []byte
	channels        []imaChannel
}

// OpenIMAADPCM parses a RIFF WAVE header with format tag 0x11 (IMA ADPCM)
// and positions rs at the start of the sample data
func OpenIMAADPCM(rs io.ReadSeeker) (Engine, error) {
	p := riff.New(rs)

	id, _, err := p.IDnSize()
	if err != nil || id != riff.RiffID {
		return nil, notRecognized(imaEngineName, "missing RIFF header")
	}
	var form [4]byte
	if err := binary.Read(rs, binary.BigEndian, &form); err != nil || form != riff.WavFormatID {
		return nil, notRecognized(imaEngineName, "not a WAVE form")
	}

	var (
		fmtFound        bool
		channels        int
		sampleRate      uint32
		blockAlign      int
		samplesPerBlock int
		factFrames      int64 = -1
		dataSize        int64
	)

	for {
		chunk, err := p.NextChunk()
		if err != nil {
			return nil, notRecognized(imaEngineName, "no data chunk")
		}

		data := chunk.ID == riff.DataFormatID
		if data {
			if !fmtFound {
				return nil, notRecognized(imaEngineName, "data before fmt chunk")
			}
			dataSize = int64(chunk.Size)
			break
		}

		body := make([]byte, chunk.Size)
		if _, err := io.ReadFull(chunk.R, body); err != nil {
			return nil, notRecognized(imaEngineName, fmt.Sprintf("truncated %s chunk", chunk.ID))
		}

		switch chunk.ID {
		case riff.FmtID:
			if len(body) < 16 {
				return nil, notRecognized(imaEngineName, "short fmt chunk")
			}
			if tag := binary.LittleEndian.Uint16(body[0:]); tag != wavFormatIMAADPCM {
				return nil, notRecognized(imaEngineName, fmt.Sprintf("format tag %#x", tag))
			}
			channels = int(binary.LittleEndian.Uint16(body[2:]))
			sampleRate = binary.LittleEndian.Uint32(body[4:])
			blockAlign = int(binary.LittleEndian.Uint16(body[12:]))
			if bits := binary.LittleEndian.Uint16(body[14:]); bits != 4 {
				return nil, fmt.Errorf("%s: unsupported bits per sample %d", imaEngineName, bits)
			}
			if channels == 0 || blockAlign <= 4*channels {
				return nil, fmt.Errorf("%s: invalid block layout (%d channels, block align %d)", imaEngineName, channels, blockAlign)
			}
			// Header sample plus two per body byte
			maxSamples := (blockAlign-4*channels)*2/channels + 1
			samplesPerBlock = maxSamples
			if len(body) >= 20 && binary.LittleEndian.Uint16(body[16:]) >= 2 {
				samplesPerBlock = int(binary.LittleEndian.Uint16(body[18:]))
			}
			if samplesPerBlock < 1 || samplesPerBlock > maxSamples {
				return nil, fmt.Errorf("%s: %d samples per block does not fit block align %d", imaEngineName, samplesPerBlock, blockAlign)
			}
			fmtFound = true
		case factID:
			if len(body) >= 4 {
				factFrames = int64(binary.LittleEndian.Uint32(body))
			}
		}
	}

	e := &imaEngine{
		rs:              rs,
		blockAlign:      blockAlign,
		samplesPerBlock: samplesPerBlock,
		remainingBytes:  dataSize,
		remainingFrames: factFrames,
		raw:             make([]byte, blockAlign),
		channels:        make([]imaChannel, channels),
	}
	e.info = StreamInfo{
		Channels:    uint16(channels),
		SampleRate:  sampleRate,
		BlockBytes:  uint32(samplesPerBlock * channels * 2),
		BlockFrames: uint32(samplesPerBlock),
		BlockCount:  ceilDiv(dataSize, int64(blockAlign)),
		Encoding:    EncodingNative16,
	}
	return e, nil
}

func (e *imaEngine) Info() StreamInfo {
	return e.info
}

func (e *imaEngine) Source() io.ReadSeeker {
	return e.rs
}

// DecodeNext decodes one ADPCM block into interleaved 16-bit samples
func (e *imaEngine) DecodeNext(b *Block) error {
	if e.remainingBytes <= 0 || e.remainingFrames == 0 {
		return io.EOF
	}

	numChans := len(e.channels)
	want := int64(e.blockAlign)
	if e.remainingBytes < want {
		want = e.remainingBytes
	}
	raw := e.raw[:want]
	n, err := io.ReadFull(e.rs, raw)
	e.remainingBytes -= int64(n)
	if err == io.EOF {
		return io.EOF
	}
	if err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("%s: read block: %w", imaEngineName, err)
	}
	raw = raw[:n]
	if len(raw) < 4*numChans {
		return fmt.Errorf("%s: truncated block header (%d bytes)", imaEngineName, len(raw))
	}

	out := b.Int16[:cap(b.Int16)]
	if len(out) < e.samplesPerBlock*numChans {
		return fmt.Errorf("%s: buffer holds %d samples, block needs %d", imaEngineName, len(out), e.samplesPerBlock*numChans)
	}

	// Block header: int16 predictor, step index, reserved byte per channel
	for ch := range e.channels {
		hdr := raw[4*ch:]
		e.channels[ch].predictor = int(int16(binary.LittleEndian.Uint16(hdr)))
		e.channels[ch].index = clamp(int(hdr[2]), 0, len(imaStepTable)-1)
		out[ch] = int16(e.channels[ch].predictor)
	}

	// Body: per channel groups of 4 bytes holding 8 samples, low nibble first
	body := raw[4*numChans:]
	group := 4 * numChans
	frames := 1
	for pos := 0; pos+group <= len(body) && frames+8 <= e.samplesPerBlock; pos += group {
		for ch := range e.channels {
			c := &e.channels[ch]
			for i := 0; i < 4; i++ {
				code := body[pos+4*ch+i]
				out[(frames+2*i)*numChans+ch] = c.decodeNibble(code & 0x0f)
				out[(frames+2*i+1)*numChans+ch] = c.decodeNibble(code >> 4)
			}
		}
		frames += 8
	}

	if e.remainingFrames > 0 {
		if int64(frames) > e.remainingFrames {
			frames = int(e.remainingFrames)
		}
		e.remainingFrames -= int64(frames)
	}

	b.Kind = BlockInt16
	b.Int16 = out[:frames*numChans]
	return nil
}
