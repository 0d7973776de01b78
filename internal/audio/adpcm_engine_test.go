package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// imaWAV describes a synthetic IMA ADPCM WAV file
type imaWAV struct {
	channels        int
	sampleRate      uint32
	blockAlign      int
	samplesPerBlock int
	factFrames      int // 0 omits the fact chunk
	data            []byte
}

func (w imaWAV) bytes() []byte {
	var body bytes.Buffer
	le := binary.LittleEndian

	body.WriteString("WAVE")

	body.WriteString("fmt ")
	_ = binary.Write(&body, le, uint32(20))
	_ = binary.Write(&body, le, uint16(wavFormatIMAADPCM))
	_ = binary.Write(&body, le, uint16(w.channels))
	_ = binary.Write(&body, le, w.sampleRate)
	_ = binary.Write(&body, le, uint32(int(w.sampleRate)*w.blockAlign/max(w.samplesPerBlock, 1)))
	_ = binary.Write(&body, le, uint16(w.blockAlign))
	_ = binary.Write(&body, le, uint16(4))
	_ = binary.Write(&body, le, uint16(2))
	_ = binary.Write(&body, le, uint16(w.samplesPerBlock))

	if w.factFrames > 0 {
		body.WriteString("fact")
		_ = binary.Write(&body, le, uint32(4))
		_ = binary.Write(&body, le, uint32(w.factFrames))
	}

	body.WriteString("data")
	_ = binary.Write(&body, le, uint32(len(w.data)))
	body.Write(w.data)

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, le, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

// imaBlockHeader encodes one channel's block header
func imaBlockHeader(predictor int16, index uint8) []byte {
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint16(hdr, uint16(predictor))
	hdr[2] = index
	return hdr
}

func monoIMABlock(predictor int16, body ...byte) []byte {
	block := imaBlockHeader(predictor, 0)
	padded := make([]byte, 4)
	copy(padded, body)
	return append(block, padded...)
}

func TestIMAChannel_DecodeNibble(t *testing.T) {
	tests := []struct {
		name      string
		start     imaChannel
		codes     []byte
		want      []int16
		wantIndex int
	}{
		{
			name:      "zero codes hold the predictor",
			start:     imaChannel{predictor: 100},
			codes:     []byte{0, 0, 0},
			want:      []int16{100, 100, 100},
			wantIndex: 0,
		},
		{
			name:      "step up then settle",
			start:     imaChannel{predictor: 100},
			codes:     []byte{4, 0},
			want:      []int16{107, 108},
			wantIndex: 1,
		},
		{
			name:      "sign bit subtracts",
			start:     imaChannel{predictor: 0, index: 10},
			codes:     []byte{0xc},
			want:      []int16{-21},
			wantIndex: 12,
		},
		{
			name:      "clamps at the top",
			start:     imaChannel{predictor: 32760, index: 88},
			codes:     []byte{7},
			want:      []int16{32767},
			wantIndex: 88,
		},
		{
			name:      "clamps at the bottom",
			start:     imaChannel{predictor: -32760, index: 88},
			codes:     []byte{0xf},
			want:      []int16{-32768},
			wantIndex: 88,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.start
			for i, code := range tc.codes {
				if got := c.decodeNibble(code); got != tc.want[i] {
					t.Errorf("code %d: got %d, want %d", i, got, tc.want[i])
				}
			}
			if c.index != tc.wantIndex {
				t.Errorf("step index = %d, want %d", c.index, tc.wantIndex)
			}
		})
	}
}

func TestOpenIMAADPCM_MonoBlocks(t *testing.T) {
	data := append(monoIMABlock(100, 0x04), monoIMABlock(-200)...)
	file := imaWAV{
		channels:        1,
		sampleRate:      8000,
		blockAlign:      8,
		samplesPerBlock: 9,
		factFrames:      14,
		data:            data,
	}

	d, err := NewBlockDecoder(bytes.NewReader(file.bytes()), OpenIMAADPCM)
	if err != nil {
		t.Fatalf("NewBlockDecoder() error = %v", err)
	}

	info := d.Info()
	if info.Encoding != EncodingNative16 {
		t.Errorf("Encoding = %v, want native16", info.Encoding)
	}
	if info.BlockFrames != 9 || info.BlockCount != 2 || info.BlockBytes != 18 {
		t.Errorf("Info() = %+v, want 9 frames, 2 blocks, 18 bytes", info)
	}
	if d.Channels() != 1 || d.SampleRate() != 8000 {
		t.Errorf("Channels/SampleRate = %d/%d, want 1/8000", d.Channels(), d.SampleRate())
	}

	got := drain(d)
	want := []int16{
		100, 107, 108, 109, 109, 109, 109, 109, 109,
		-200, -200, -200, -200, -200,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d samples %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
	if d.Err() != nil {
		t.Errorf("Err() = %v, want nil", d.Err())
	}
}

func TestOpenIMAADPCM_StereoInterleave(t *testing.T) {
	block := append(imaBlockHeader(10, 0), imaBlockHeader(-10, 0)...)
	block = append(block, make([]byte, 8)...)
	file := imaWAV{
		channels:        2,
		sampleRate:      22050,
		blockAlign:      16,
		samplesPerBlock: 9,
		data:            block,
	}

	d, err := NewBlockDecoder(bytes.NewReader(file.bytes()), OpenIMAADPCM)
	if err != nil {
		t.Fatalf("NewBlockDecoder() error = %v", err)
	}

	got := drain(d)
	if len(got) != 18 {
		t.Fatalf("got %d samples, want 18", len(got))
	}
	for i, v := range got {
		want := int16(10)
		if i%2 == 1 {
			want = -10
		}
		if v != want {
			t.Errorf("sample %d = %d, want %d", i, v, want)
		}
	}
}

func TestOpenIMAADPCM_TruncatedBlock(t *testing.T) {
	file := imaWAV{
		channels:        1,
		sampleRate:      8000,
		blockAlign:      8,
		samplesPerBlock: 9,
		data:            append(monoIMABlock(5), 0x01, 0x02),
	}

	d, err := NewBlockDecoder(bytes.NewReader(file.bytes()), OpenIMAADPCM)
	if err != nil {
		t.Fatalf("NewBlockDecoder() error = %v", err)
	}

	got := drain(d)
	if len(got) != 9 {
		t.Errorf("got %d samples, want the 9 of the complete block", len(got))
	}
	if d.Err() == nil {
		t.Error("Err() = nil for a truncated block header")
	}
}

func TestOpenIMAADPCM_Rejects(t *testing.T) {
	pcm := imaWAV{channels: 1, sampleRate: 8000, blockAlign: 8, samplesPerBlock: 9}.bytes()
	// Patch the format tag to integer PCM
	binary.LittleEndian.PutUint16(pcm[20:], wavFormatPCM)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("fLaC\x00\x00\x00\x22 and more bytes")},
		{"pcm format tag", pcm},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := OpenIMAADPCM(bytes.NewReader(tc.data))
			if !errors.Is(err, ErrNotRecognized) {
				t.Errorf("OpenIMAADPCM() error = %v, want ErrNotRecognized", err)
			}
		})
	}
}

func TestOpenIMAADPCM_SamplesPerBlockOutOfRange(t *testing.T) {
	// Mono with block align 8 holds at most 1 + 2*4 = 9 samples
	tests := []struct {
		name            string
		samplesPerBlock int
	}{
		{"zero", 0},
		{"one too many", 10},
		{"far too many", 1017},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			file := imaWAV{
				channels:        1,
				sampleRate:      8000,
				blockAlign:      8,
				samplesPerBlock: tc.samplesPerBlock,
				data:            monoIMABlock(100, 0x12, 0x34),
			}

			d, _, err := Open(bytes.NewReader(file.bytes()))
			if err == nil {
				t.Fatalf("Open() accepted %d samples per block (decoder %v)", tc.samplesPerBlock, d)
			}
			if errors.Is(err, ErrNotRecognized) {
				t.Errorf("Open() error = %v, want a header error", err)
			}
		})
	}
}

func TestOpenIMAADPCM_BadBitDepth(t *testing.T) {
	data := imaWAV{channels: 1, sampleRate: 8000, blockAlign: 8, samplesPerBlock: 9}.bytes()
	binary.LittleEndian.PutUint16(data[34:], 3)

	_, err := OpenIMAADPCM(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected an error for 3-bit ADPCM")
	}
	if errors.Is(err, ErrNotRecognized) {
		t.Error("a recognised header with bad parameters was reported as not recognised")
	}
}

func TestIMAEngine_SourceAfterDecode(t *testing.T) {
	raw := imaWAV{channels: 1, sampleRate: 8000, blockAlign: 8, samplesPerBlock: 9, data: monoIMABlock(1)}.bytes()
	src := bytes.NewReader(raw)

	d, err := NewBlockDecoder(src, OpenIMAADPCM)
	if err != nil {
		t.Fatalf("NewBlockDecoder() error = %v", err)
	}
	drain(d)

	inner := d.IntoInner()
	pos, err := inner.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatal(err)
	}
	if pos != int64(len(raw)) {
		t.Errorf("source position = %d, want %d", pos, len(raw))
	}
}
