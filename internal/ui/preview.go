package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// PreviewConfig holds configuration for the terminal image preview
type PreviewConfig struct {
	Width  int // Width in terminal cells
	Height int // Height in terminal cells
}

// DefaultPreviewConfig returns a preview size that suits the waveform aspect
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		Width:  72,
		Height: 10,
	}
}

// DownsampleFrame averages each cell-sized region of img into one colour
func DownsampleFrame(img *image.RGBA, config PreviewConfig) [][]color.RGBA {
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	// Calculate how many source pixels each terminal cell represents
	cellWidth := max(1, srcWidth/config.Width)
	cellHeight := max(1, srcHeight/config.Height)

	preview := make([][]color.RGBA, config.Height)
	for row := 0; row < config.Height; row++ {
		preview[row] = make([]color.RGBA, config.Width)
		for col := 0; col < config.Width; col++ {
			srcX := bounds.Min.X + col*cellWidth
			srcY := bounds.Min.Y + row*cellHeight

			var sumR, sumG, sumB uint32
			pixelCount := 0

			for y := srcY; y < srcY+cellHeight && y < bounds.Max.Y; y++ {
				for x := srcX; x < srcX+cellWidth && x < bounds.Max.X; x++ {
					c := img.RGBAAt(x, y)
					sumR += uint32(c.R)
					sumG += uint32(c.G)
					sumB += uint32(c.B)
					pixelCount++
				}
			}

			if pixelCount > 0 {
				preview[row][col] = color.RGBA{
					R: uint8(sumR / uint32(pixelCount)),
					G: uint8(sumG / uint32(pixelCount)),
					B: uint8(sumB / uint32(pixelCount)),
					A: 255,
				}
			}
		}
	}

	return preview
}

// RenderPreview converts a colour grid to ANSI 24-bit background cells
func RenderPreview(title string, preview [][]color.RGBA) string {
	if len(preview) == 0 {
		return ""
	}

	var result strings.Builder

	result.WriteString("  " + title + ":\n")
	result.WriteString("  ┌" + strings.Repeat("─", len(preview[0])) + "┐\n")

	for _, row := range preview {
		result.WriteString("  │")
		for _, pixel := range row {
			// \x1b[48;2;R;G;Bm sets a 24-bit RGB background colour
			result.WriteString(fmt.Sprintf("\x1b[48;2;%d;%d;%dm \x1b[0m", pixel.R, pixel.G, pixel.B))
		}
		result.WriteString("│\n")
	}

	result.WriteString("  └" + strings.Repeat("─", len(preview[0])) + "┘\n")

	return result.String()
}
