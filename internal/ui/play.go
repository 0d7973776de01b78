package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/flatpcm/internal/cli"
)

// Meter floor in dBFS
const meterFloorDB = -60.0

// PlayLevel carries a level meter reading during playback
type PlayLevel struct {
	RMSdB    float64
	PeakdB   float64
	Position time.Duration
	Buffered time.Duration
}

// PlayComplete signals that playback finished or failed
type PlayComplete struct{}

// playModel implements the Bubbletea model for the play command
type playModel struct {
	source   string
	duration time.Duration
	stop     func()

	level    PlayLevel
	holdPeak float64
}

// NewPlayModel creates a playback meter UI. stop is called when the user quits.
func NewPlayModel(source string, duration time.Duration, stop func()) tea.Model {
	return &playModel{
		source:   source,
		duration: duration,
		stop:     stop,
		holdPeak: meterFloorDB,
	}
}

// Init initializes the model
func (m *playModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PlayLevel:
		m.level = msg
		// Peak hold decays slowly
		m.holdPeak = max(msg.PeakdB, m.holdPeak-0.5)
		return m, nil

	case PlayComplete:
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.stop != nil {
				m.stop()
			}
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the UI
func (m *playModel) View() string {
	var s strings.Builder
	writeHeader(&s, "Playing "+m.source)

	position := fmt.Sprintf("Position: %s", formatDuration(m.level.Position))
	if m.duration > 0 {
		position += " / " + formatDuration(m.duration)
	}
	position += fmt.Sprintf("  Buffer: %dms", m.level.Buffered.Milliseconds())
	s.WriteString(lipgloss.NewStyle().Faint(true).Render(position))
	s.WriteString("\n\n")

	s.WriteString(fmt.Sprintf("RMS   %s %6.1f dB\n", makeGradientBar(meterRatio(m.level.RMSdB), 40), m.level.RMSdB))
	s.WriteString(fmt.Sprintf("Peak  %s %6.1f dB", makeGradientBar(meterRatio(m.holdPeak), 40), m.holdPeak))

	if m.holdPeak >= -0.1 {
		s.WriteString("  ")
		s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(cli.SignalAmber).Render("CLIP"))
	}

	s.WriteString("\n\n")
	s.WriteString(lipgloss.NewStyle().Faint(true).Italic(true).Render("Press q to stop"))

	return boxStyle(cli.SignalBlue).Render(s.String())
}

// meterRatio maps dBFS onto the meter scale
func meterRatio(db float64) float64 {
	if db <= meterFloorDB {
		return 0
	}
	if db >= 0 {
		return 1
	}
	return (db - meterFloorDB) / -meterFloorDB
}
