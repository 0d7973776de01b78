package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/flatpcm/internal/cli"
)

// Time to show a completion screen before quitting
const completionDelay = 2 * time.Second

// quitMsg is sent when it's time to quit after showing completion
type quitMsg struct{}

func quitAfter(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return quitMsg{}
	})
}

// Cancelled reports whether the user quit an analyze or export model early
func Cancelled(m tea.Model) bool {
	switch m := m.(type) {
	case *analyzeModel:
		return m.cancelled
	case *exportModel:
		return m.cancelled
	}
	return false
}

// newProgressBar creates the shared signal gradient progress bar
func newProgressBar(width int) progress.Model {
	return progress.New(
		progress.WithGradient(string(cli.SignalDeep), string(cli.SignalMint)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
}

// boxStyle frames a model view
func boxStyle(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 2)
}

// writeHeader writes the app title and a subtitle line
func writeHeader(s *strings.Builder, subtitle string) {
	s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(cli.SignalMint).Render(cli.AppTitle))
	s.WriteString("\n")
	s.WriteString(lipgloss.NewStyle().Foreground(cli.SignalCyan).Render(subtitle))
	s.WriteString("\n\n")
}

// writeTiming writes elapsed, estimated total, speed and ETA for a job that
// is fraction done after elapsed, having covered audio worth of playback
func writeTiming(s *strings.Builder, fraction float64, elapsed, audio time.Duration) {
	var estimatedTotal, eta time.Duration
	var speed float64

	if fraction > 0 {
		estimatedTotal = time.Duration(float64(elapsed) / fraction)
		eta = estimatedTotal - elapsed
	}
	if elapsed > 0 {
		speed = float64(audio) / float64(elapsed)
	}

	timingInfo := fmt.Sprintf("Time: %s / %s  │  Speed: %.1fx realtime  │  ETA: %s",
		formatDuration(elapsed),
		formatDuration(estimatedTotal),
		speed,
		formatDuration(eta))
	s.WriteString(lipgloss.NewStyle().Faint(true).Render(timingInfo))
	s.WriteString("\n")
}

// Helper functions

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatBytes(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}

	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}

// signalColors runs from quiet to loud
var signalColors = []lipgloss.Color{
	lipgloss.Color("#0B3C5D"), // Deep navy
	lipgloss.Color("#15507A"),
	lipgloss.Color("#1F78B4"), // Strong blue
	lipgloss.Color("#1495BE"),
	lipgloss.Color("#00B3C7"), // Cyan
	lipgloss.Color("#3FD9CD"),
	lipgloss.Color("#7FFFD4"), // Aquamarine
	lipgloss.Color("#F8B31D"), // Amber, near clipping
}

// makeGradientBar creates a level bar coloured from quiet to loud
func makeGradientBar(ratio float64, width int) string {
	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var result strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			pos := float64(i) / float64(width)
			colorIdx := int(pos * float64(len(signalColors)-1))
			if colorIdx >= len(signalColors) {
				colorIdx = len(signalColors) - 1
			}
			result.WriteString(lipgloss.NewStyle().Foreground(signalColors[colorIdx]).Render("█"))
		} else {
			result.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#2A2A2A")).Render("░"))
		}
	}

	return result.String()
}

// renderSpectrum creates a two-row coloured ASCII visualisation of bar heights
func renderSpectrum(barHeights []float64, width int) string {
	if len(barHeights) == 0 || width <= 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	// Sample bars to fit width
	stride := len(barHeights) / width
	if stride == 0 {
		stride = 1
	}

	// Find max height for normalisation
	maxHeight := 0.0
	for _, h := range barHeights {
		if h > maxHeight {
			maxHeight = h
		}
	}
	if maxHeight == 0 {
		maxHeight = 1.0
	}

	displayHeights := make([]float64, 0, width)
	for i := 0; i < len(barHeights) && len(displayHeights) < width; i += stride {
		displayHeights = append(displayHeights, barHeights[i]/maxHeight)
	}

	colorFor := func(normalised float64) lipgloss.Color {
		idx := int(normalised * float64(len(signalColors)-2))
		return signalColors[max(0, min(idx, len(signalColors)-2))]
	}

	var result strings.Builder

	// Top row shows the portion above 0.5
	for _, normalised := range displayHeights {
		if normalised > 0.5 {
			blockIdx := min(int((normalised-0.5)*2.0*float64(len(blocks)-1)), len(blocks)-1)
			result.WriteString(lipgloss.NewStyle().
				Foreground(colorFor(normalised)).
				Render(string(blocks[blockIdx])))
		} else {
			result.WriteString(" ")
		}
	}

	result.WriteString("\n")

	// Bottom row
	for _, normalised := range displayHeights {
		blockIdx := len(blocks) - 1
		if normalised < 0.5 {
			blockIdx = min(int(normalised*2.0*float64(len(blocks)-1)), len(blocks)-1)
		}
		result.WriteString(lipgloss.NewStyle().
			Foreground(colorFor(normalised)).
			Render(string(blocks[blockIdx])))
	}

	return result.String()
}
