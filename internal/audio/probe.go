package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Format pairs an engine opener with a display name
type Format struct {
	Name string
	Open Opener
}

// DefaultFormats returns the probe chain in the order it is tried.
// RIFF formats come first because the MP3 sync search accepts almost anything.
func DefaultFormats() []Format {
	return []Format{
		{Name: "IMA ADPCM WAV", Open: OpenIMAADPCM},
		{Name: "PCM WAV", Open: OpenWAV},
		{Name: "FLAC", Open: OpenFLAC},
		{Name: "MP3", Open: OpenMP3},
	}
}

// Open tries each format in turn on rs. A rejected format leaves rs where it
// started, so the next format sees the same bytes. Returns ErrNotRecognized
// if no format accepts the stream.
func Open(rs io.ReadSeeker, formats ...Format) (*BlockDecoder, Format, error) {
	if len(formats) == 0 {
		formats = DefaultFormats()
	}

	for _, f := range formats {
		d, err := NewBlockDecoder(rs, f.Open)
		if err == nil {
			return d, f, nil
		}
		if !errors.Is(err, ErrNotRecognized) {
			return nil, f, fmt.Errorf("failed to open %s stream: %w", f.Name, err)
		}
	}
	return nil, Format{}, ErrNotRecognized
}

// File is a decoder over an opened file
type File struct {
	*BlockDecoder
	Format string
	closed bool
}

// OpenFile opens filename and probes it with the default formats
func OpenFile(filename string) (*File, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	d, format, err := Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return &File{
		BlockDecoder: d,
		Format:       format.Name,
	}, nil
}

// Metadata describes the opened file
func (f *File) Metadata() *AudioMetadata {
	return Describe(f.BlockDecoder, f.Format)
}

// Close takes the file back from the decoder and closes it.
// The decoder reports end of stream afterwards.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if c, ok := f.IntoInner().(io.Closer); ok {
		return c.Close()
	}
	return nil
}
