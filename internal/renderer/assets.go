package renderer

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontsOnce   sync.Once
	regularFont *truetype.Font
	boldFont    *truetype.Font
	fontsErr    error
)

// loadFonts parses the bundled Go fonts once per process
func loadFonts() (*truetype.Font, *truetype.Font, error) {
	fontsOnce.Do(func() {
		regularFont, fontsErr = truetype.Parse(goregular.TTF)
		if fontsErr != nil {
			fontsErr = fmt.Errorf("failed to parse regular font: %w", fontsErr)
			return
		}
		boldFont, fontsErr = truetype.Parse(gobold.TTF)
		if fontsErr != nil {
			fontsErr = fmt.Errorf("failed to parse bold font: %w", fontsErr)
		}
	})
	return regularFont, boldFont, fontsErr
}

// newFace creates a font face at the given point size
func newFace(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// LoadBackgroundImage loads a PNG and scales it to width x height
func LoadBackgroundImage(filename string, width, height int) (*image.RGBA, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode background: %w", err)
	}

	return scaleImage(img, width, height), nil
}

// scaleImage converts img to RGBA at the requested size
func scaleImage(img image.Image, width, height int) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, width, height))

	if bounds.Dx() != width || bounds.Dy() != height {
		draw.BiLinear.Scale(rgba, rgba.Bounds(), img, bounds, draw.Src, nil)
	} else {
		// Direct copy if dimensions match
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return rgba
}
