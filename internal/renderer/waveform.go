package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"time"

	"github.com/linuxmatters/flatpcm/internal/audio"
	"github.com/linuxmatters/flatpcm/internal/config"
)

// Frames per peak bucket when the stream length is unknown
const defaultBucketFrames = 256

// Options controls waveform rendering
type Options struct {
	Width      int    // 0 selects config.Width
	Height     int    // 0 selects config.Height
	Title      string // Drawn top-left when set
	Background string // Optional PNG, scaled to fit
	Runtime    *config.RuntimeConfig
}

// RenderWaveform drains src and draws one min/max column per pixel of the
// mono downmix, with an optional title and a duration label.
//
// If src ends on a decode error, the image of everything decoded so far is
// returned together with that error.
func RenderWaveform(src audio.Source, opts Options) (*image.RGBA, error) {
	width, height := opts.Width, opts.Height
	if width == 0 {
		width = config.Width
	}
	if height == 0 {
		height = config.Height
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	channels := int(src.Channels())
	if channels == 0 {
		return nil, fmt.Errorf("source reports zero channels")
	}

	regular, bold, err := loadFonts()
	if err != nil {
		return nil, err
	}

	bucketFrames := defaultBucketFrames
	if d, ok := src.TotalDuration(); ok && src.SampleRate() > 0 {
		frames := int64(math.Round(d.Seconds() * float64(src.SampleRate())))
		bucketFrames = max(1, int(frames/int64(width)))
	}

	acc := &peakAccumulator{bucketFrames: bucketFrames}
	var frames int64
	for {
		chunk, err := audio.ReadChunk(src, channels*bucketFrames)
		if err != nil {
			break
		}
		for i := 0; i < len(chunk); i += channels {
			end := min(i+channels, len(chunk))
			var sum float64
			for _, v := range chunk[i:end] {
				sum += v
			}
			acc.add(sum / float64(end-i))
			frames++
		}
	}
	acc.flush()

	streamErr := src.Err()
	if frames == 0 {
		if streamErr != nil {
			return nil, fmt.Errorf("no audio decoded: %w", streamErr)
		}
		return nil, fmt.Errorf("no audio data in stream")
	}

	var duration time.Duration
	if rate := src.SampleRate(); rate > 0 {
		duration = time.Duration(frames) * time.Second / time.Duration(rate)
	}

	// Layout: title band, waveform, label band
	margin := config.LabelMargin
	labelFace := newFace(regular, config.TitleFontSize*0.6)
	defer labelFace.Close()

	titleFace := newFace(bold, fitFontSize(bold, opts.Title, config.TitleFontSize, width-2*margin))
	defer titleFace.Close()

	top := margin
	if opts.Title != "" {
		top += textHeight(titleFace) + margin
	}
	bottom := height - margin - textHeight(labelFace) - margin
	if bottom-top < 2 {
		return nil, fmt.Errorf("image %dx%d is too small for the waveform", width, height)
	}

	var bg *image.RGBA
	if opts.Background != "" {
		bg, err = LoadBackgroundImage(opts.Background, width, height)
		if err != nil {
			return nil, fmt.Errorf("failed to load background: %w", err)
		}
	}

	wr, wg, wb := opts.Runtime.GetWaveColor()
	tr, tg, tb := opts.Runtime.GetTextColor()
	textColor := color.RGBA{R: tr, G: tg, B: tb, A: 255}

	frame := NewFrame(width, height, top, bottom, bg, color.RGBA{R: wr, G: wg, B: wb, A: 255})
	frame.Draw(resampleColumns(acc.buckets, width))

	img := frame.GetImage()
	drawTopLeft(img, titleFace, textColor, opts.Title, margin, margin)
	label := fmt.Sprintf("%s  %d Hz  %d ch", formatDuration(duration), src.SampleRate(), channels)
	drawBottomRight(img, labelFace, textColor, label, width-margin, height-margin)

	if streamErr != nil {
		return img, fmt.Errorf("stream ended early: %w", streamErr)
	}
	return img, nil
}

// SavePNG writes img to outputPath as a PNG file
func SavePNG(img image.Image, outputPath string) error {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	if err := png.Encode(outFile, img); err != nil {
		outFile.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return outFile.Close()
}

// peakAccumulator collects min/max over fixed-size buckets of mono frames
type peakAccumulator struct {
	bucketFrames int
	buckets      []Column
	cur          Column
	n            int
}

func (a *peakAccumulator) add(v float64) {
	if a.n == 0 {
		a.cur = Column{Min: v, Max: v}
	} else {
		a.cur.Min = math.Min(a.cur.Min, v)
		a.cur.Max = math.Max(a.cur.Max, v)
	}
	a.n++
	if a.n == a.bucketFrames {
		a.flush()
	}
}

func (a *peakAccumulator) flush() {
	if a.n == 0 {
		return
	}
	a.buckets = append(a.buckets, a.cur)
	a.n = 0
}

// resampleColumns merges or stretches buckets to exactly width columns
func resampleColumns(buckets []Column, width int) []Column {
	columns := make([]Column, width)
	n := len(buckets)
	if n == 0 {
		return columns
	}

	for x := range columns {
		start := x * n / width
		end := (x + 1) * n / width
		if end <= start {
			end = start + 1
		}
		col := buckets[start]
		for _, b := range buckets[start+1 : end] {
			col.Min = math.Min(col.Min, b.Min)
			col.Max = math.Max(col.Max, b.Max)
		}
		columns[x] = col
	}
	return columns
}

// formatDuration renders d as m:ss.mmm
func formatDuration(d time.Duration) string {
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	millis := int((d % time.Second) / time.Millisecond)
	return fmt.Sprintf("%d:%02d.%03d", minutes, seconds, millis)
}
