package renderer

import (
	"image"
	"image/color"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const minFontSize = 8.0

// fitFontSize finds the largest size up to maxSize at which text fits in maxWidth
func fitFontSize(parsedFont *truetype.Font, text string, maxSize float64, maxWidth int) float64 {
	for size := maxSize; size > minFontSize; size -= 2.0 {
		face := newFace(parsedFont, size)
		width, _ := measureText(face, text)
		face.Close()

		if width <= maxWidth {
			return size
		}
	}

	return minFontSize
}

// measureText returns the width and actual bounds of rendered text.
// Min.Y of the bounds is negative for ascent, Max.Y is positive for descent.
func measureText(face font.Face, text string) (int, fixed.Rectangle26_6) {
	d := &font.Drawer{Face: face}
	bounds, _ := d.BoundString(text)
	width := (bounds.Max.X - bounds.Min.X).Ceil()
	return width, bounds
}

// textHeight returns the pixel height of one line in face
func textHeight(face font.Face) int {
	m := face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}

// drawTopLeft draws text with its visual top at (x, y)
func drawTopLeft(img *image.RGBA, face font.Face, c color.RGBA, text string, x, y int) {
	if text == "" {
		return
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
	}
	d.Dot = freetype.Pt(x, y+face.Metrics().Ascent.Ceil())
	d.DrawString(text)
}

// drawBottomRight draws text with its visual bottom-right corner at (x, y)
func drawBottomRight(img *image.RGBA, face font.Face, c color.RGBA, text string, x, y int) {
	if text == "" {
		return
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
	}
	width, _ := measureText(face, text)
	d.Dot = freetype.Pt(x-width, y-face.Metrics().Descent.Ceil())
	d.DrawString(text)
}
