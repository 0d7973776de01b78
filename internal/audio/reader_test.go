package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestReadChunk(t *testing.T) {
	src := newPCMDecoder(1, 8000, 4, []int16{0, 16384, -16384, -32768, 32767, 1})

	// Read a chunk of 4 samples
	chunk, err := ReadChunk(src, 4)
	if err != nil {
		t.Fatalf("Failed to read chunk: %v", err)
	}
	want := []float64{0, 0.5, -0.5, -1.0}
	if len(chunk) != len(want) {
		t.Fatalf("Expected chunk size %d, got %d", len(want), len(chunk))
	}
	for i := range want {
		if chunk[i] != want[i] {
			t.Errorf("Sample %d = %f, want %f", i, chunk[i], want[i])
		}
	}

	// Remaining samples come back short
	chunk, err = ReadChunk(src, 4)
	if err != nil {
		t.Fatalf("Failed to read final chunk: %v", err)
	}
	if len(chunk) != 2 {
		t.Errorf("Expected final chunk of 2 samples, got %d", len(chunk))
	}

	// Check that values are normalized float64 (between -1.0 and 1.0)
	for i, sample := range chunk {
		if sample < -1.0 || sample >= 1.0 {
			t.Errorf("Sample %d out of range: %f", i, sample)
		}
	}

	if _, err := ReadChunk(src, 4); err != io.EOF {
		t.Errorf("Expected io.EOF after the last chunk, got %v", err)
	}
}

func TestReadChunkSurfacesDecodeError(t *testing.T) {
	info := StreamInfo{Channels: 1, SampleRate: 8000, BlockBytes: 4, BlockFrames: 2, BlockCount: 2}
	engine := &fakeEngine{
		info:    info,
		blocks:  int16Blocks([]int16{1, 2}, []int16{3, 4}),
		failAt:  1,
		failErr: errors.New("crc mismatch"),
	}
	src := newBlockDecoder(engine)

	if chunk, err := ReadChunk(src, 8); err != nil || len(chunk) != 2 {
		t.Fatalf("ReadChunk() = %d samples, %v; want 2, nil", len(chunk), err)
	}
	if _, err := ReadChunk(src, 8); !errors.Is(err, engine.failErr) {
		t.Errorf("ReadChunk() error = %v, want %v", err, engine.failErr)
	}
}

func TestSampleReader_LittleEndian(t *testing.T) {
	in := []int16{0x0102, -2, 32767, -32768}
	r := NewSampleReader(newPCMDecoder(2, 44100, 2, in))

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(out) != 2*len(in) {
		t.Fatalf("read %d bytes, want %d", len(out), 2*len(in))
	}
	for i, want := range in {
		got := int16(binary.LittleEndian.Uint16(out[2*i:]))
		if got != want {
			t.Errorf("sample %d = %d, want %d", i, got, want)
		}
	}
	if out[0] != 0x02 || out[1] != 0x01 {
		t.Errorf("first sample bytes = % x, want 02 01", out[:2])
	}
}

func TestSampleReader_OddReads(t *testing.T) {
	in := []int16{0x0102, 0x0304, 0x0506}
	r := NewSampleReader(newPCMDecoder(1, 8000, 3, in))

	var out []byte
	buf := make([]byte, 3)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}

	want := []byte{0x02, 0x01, 0x04, 0x03, 0x06, 0x05}
	if string(out) != string(want) {
		t.Errorf("bytes = % x, want % x", out, want)
	}
}

func TestSampleReader_Volume(t *testing.T) {
	tests := []struct {
		name   string
		volume int
		want   int16
		stored int
	}{
		{"full", 100, 1000, 100},
		{"half", 50, 500, 50},
		{"mute", 0, 0, 0},
		{"clamped high", 150, 1000, 100},
		{"clamped low", -5, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewSampleReader(newPCMDecoder(1, 8000, 1, []int16{1000}))
			r.SetVolume(tc.volume)
			if r.Volume() != tc.stored {
				t.Errorf("Volume() = %d, want %d", r.Volume(), tc.stored)
			}

			buf := make([]byte, 2)
			if _, err := io.ReadFull(r, buf); err != nil {
				t.Fatalf("ReadFull failed: %v", err)
			}
			if got := int16(binary.LittleEndian.Uint16(buf)); got != tc.want {
				t.Errorf("sample = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSampleReader_DecodeError(t *testing.T) {
	info := StreamInfo{Channels: 1, SampleRate: 8000, BlockBytes: 4, BlockFrames: 2, BlockCount: 2}
	engine := &fakeEngine{
		info:    info,
		blocks:  int16Blocks([]int16{1, 2}, []int16{3, 4}),
		failAt:  1,
		failErr: errors.New("sync lost"),
	}
	r := NewSampleReader(newBlockDecoder(engine))

	_, err := io.ReadAll(r)
	if !errors.Is(err, engine.failErr) {
		t.Errorf("ReadAll error = %v, want %v", err, engine.failErr)
	}
}

func TestDescribe(t *testing.T) {
	d := newPCMDecoder(2, 8000, 4, make([]int16, 16))

	meta := Describe(d, "test")
	if meta.Format != "test" || meta.Channels != 2 || meta.SampleRate != 8000 {
		t.Errorf("Describe() = %+v", meta)
	}
	if meta.BlockBytes != 16 || meta.BlockFrames != 4 || meta.BlockCount != 2 {
		t.Errorf("block layout = %d bytes, %d frames, %d blocks; want 16, 4, 2",
			meta.BlockBytes, meta.BlockFrames, meta.BlockCount)
	}
	if !meta.DurationOK || meta.Duration.Milliseconds() != 1 {
		t.Errorf("Duration = %v (ok=%v), want 1ms", meta.Duration, meta.DurationOK)
	}
}
