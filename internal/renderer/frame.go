package renderer

import (
	"image"
	"image/color"
)

// Column holds the lowest and highest normalised sample in one pixel column
type Column struct {
	Min float64
	Max float64
}

// Frame draws waveform columns onto an RGBA canvas
type Frame struct {
	img     *image.RGBA
	bgImage *image.RGBA

	// Waveform area
	top     int
	bottom  int
	centerY int

	// Pre-computed values
	maxHalfHeight int
	alphaTable    []uint8 // Alpha by distance from the centre line
	waveColor     color.RGBA
}

// NewFrame creates a frame of the given size. The waveform is drawn between
// top and bottom; bgImage may be nil for a black background.
func NewFrame(width, height, top, bottom int, bgImage *image.RGBA, wave color.RGBA) *Frame {
	centerY := top + (bottom-top)/2
	maxHalfHeight := (bottom - top) / 2
	if maxHalfHeight < 1 {
		maxHalfHeight = 1
	}

	// Pre-compute alpha gradient table (1.0 at centre to 0.5 at the edge)
	alphaTable := make([]uint8, maxHalfHeight+1)
	for i := range alphaTable {
		distanceFromCenter := float64(i) / float64(maxHalfHeight)
		alphaTable[i] = uint8((1.0 - distanceFromCenter*0.5) * 255)
	}

	return &Frame{
		img:           image.NewRGBA(image.Rect(0, 0, width, height)),
		bgImage:       bgImage,
		top:           top,
		bottom:        bottom,
		centerY:       centerY,
		maxHalfHeight: maxHalfHeight,
		alphaTable:    alphaTable,
		waveColor:     wave,
	}
}

// Draw clears the canvas and renders one column per pixel
func (f *Frame) Draw(columns []Column) {
	if f.bgImage != nil && len(f.bgImage.Pix) == len(f.img.Pix) {
		copy(f.img.Pix, f.bgImage.Pix)
	} else {
		// Clear to opaque black
		for i := 0; i < len(f.img.Pix); i += 4 {
			f.img.Pix[i] = 0
			f.img.Pix[i+1] = 0
			f.img.Pix[i+2] = 0
			f.img.Pix[i+3] = 255
		}
	}

	width := f.img.Bounds().Dx()
	for x, col := range columns {
		if x >= width {
			break
		}
		f.drawColumn(x, col)
	}
}

// drawColumn blends one vertical span from the column's max down to its min
func (f *Frame) drawColumn(x int, col Column) {
	yStart := f.centerY - int(clampUnit(col.Max)*float64(f.maxHalfHeight))
	yEnd := f.centerY - int(clampUnit(col.Min)*float64(f.maxHalfHeight))

	// Always mark the centre line so silence stays visible
	if yStart > f.centerY {
		yStart = f.centerY
	}
	if yEnd < f.centerY {
		yEnd = f.centerY
	}

	for y := yStart; y <= yEnd; y++ {
		if y < f.top || y >= f.bottom {
			continue
		}

		distance := y - f.centerY
		if distance < 0 {
			distance = -distance
		}
		if distance > f.maxHalfHeight {
			distance = f.maxHalfHeight
		}
		alphaF := float64(f.alphaTable[distance]) / 255.0
		invAlphaF := 1.0 - alphaF

		// Alpha blend with whatever is underneath
		offset := y*f.img.Stride + x*4
		f.img.Pix[offset] = uint8(float64(f.waveColor.R)*alphaF + float64(f.img.Pix[offset])*invAlphaF)
		f.img.Pix[offset+1] = uint8(float64(f.waveColor.G)*alphaF + float64(f.img.Pix[offset+1])*invAlphaF)
		f.img.Pix[offset+2] = uint8(float64(f.waveColor.B)*alphaF + float64(f.img.Pix[offset+2])*invAlphaF)
	}
}

// GetImage returns the current frame image
func (f *Frame) GetImage() *image.RGBA {
	return f.img
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
