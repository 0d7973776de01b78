package audio

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

// silentMP3 builds n MPEG-1 Layer III frames at 128 kbps, 44.1 kHz, mono,
// with zeroed side info and main data, which decode to silence
func silentMP3(n int) []byte {
	const frameSize = 144 * 128000 / 44100 // 417 bytes, no padding

	var buf bytes.Buffer
	for range n {
		frame := make([]byte, frameSize)
		copy(frame, []byte{0xFF, 0xFB, 0x90, 0xC0})
		buf.Write(frame)
	}
	return buf.Bytes()
}

func TestOpenMP3_SilentFrames(t *testing.T) {
	d, err := NewBlockDecoder(bytes.NewReader(silentMP3(3)), OpenMP3)
	if err != nil {
		t.Fatalf("NewBlockDecoder() error = %v", err)
	}

	// go-mp3 always decodes to stereo
	if d.Channels() != 2 || d.SampleRate() != 44100 {
		t.Errorf("format = %d ch %d Hz, want 2 ch 44100 Hz", d.Channels(), d.SampleRate())
	}
	if n, ok := d.CurrentFrameLen(); !ok || n != mp3BlockBytes {
		t.Errorf("CurrentFrameLen() = %d, %v, want %d", n, ok, mp3BlockBytes)
	}
	if got := d.Info().BlockCount; got != 3 {
		t.Errorf("BlockCount = %d, want 3", got)
	}
	wantDuration := 3 * mp3FramesPerBlock * time.Second / 44100
	if got, ok := d.TotalDuration(); !ok || got != wantDuration {
		t.Errorf("TotalDuration() = %v, %v, want %v", got, ok, wantDuration)
	}

	got := drain(d)
	if len(got) != 3*mp3FramesPerBlock*mp3Channels {
		t.Fatalf("got %d samples, want %d", len(got), 3*mp3FramesPerBlock*mp3Channels)
	}
	for i, v := range got {
		if v != 0 {
			t.Fatalf("sample %d = %d, want silence", i, v)
		}
	}

	if err := d.Err(); err != nil {
		t.Errorf("Err() = %v, want nil at end of stream", err)
	}
	if _, ok := d.Next(); ok {
		t.Error("Next() returned a sample after end of stream")
	}
}

func TestOpenMP3_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", bytes.Repeat([]byte("not an mpeg stream "), 32)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := bytes.NewReader(tc.data)
			_, err := NewBlockDecoder(src, OpenMP3)
			if !errors.Is(err, ErrNotRecognized) {
				t.Fatalf("NewBlockDecoder() error = %v, want ErrNotRecognized", err)
			}
			if pos, _ := src.Seek(0, io.SeekCurrent); pos != 0 {
				t.Errorf("source left at offset %d, want 0", pos)
			}
		})
	}
}
