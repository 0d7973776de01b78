package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/flatpcm/internal/cli"
)

// ExportProgress represents progress updates from WAV export
type ExportProgress struct {
	Frames      int64
	TotalFrames int64 // 0 when the stream length is unknown
	Bytes       int64
	Elapsed     time.Duration
}

// ExportComplete signals completion of WAV export
type ExportComplete struct {
	OutputFile string
	Samples    int64
	Frames     int64
	Bytes      int64
	Duration   time.Duration
	Elapsed    time.Duration
}

// exportModel implements the Bubbletea model for the export command
type exportModel struct {
	progressBar progress.Model
	source      string
	format      string
	sampleRate  uint32
	channels    uint16

	lastUpdate ExportProgress
	complete   *ExportComplete
	cancelled  bool
	startTime  time.Time
}

// NewExportModel creates a new export UI model
func NewExportModel(source, format string, sampleRate uint32, channels uint16) tea.Model {
	return &exportModel{
		progressBar: newProgressBar(40),
		source:      source,
		format:      format,
		sampleRate:  sampleRate,
		channels:    channels,
		startTime:   time.Now(),
	}
}

// Init initializes the model
func (m *exportModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *exportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progressBar.Width = max(10, min(msg.Width-30, 50))
		return m, nil

	case ExportProgress:
		m.lastUpdate = msg
		return m, nil

	case ExportComplete:
		m.complete = &msg
		return m, quitAfter(completionDelay)

	case quitMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		if m.complete != nil {
			return m, tea.Quit
		}
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.cancelled = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the UI
func (m *exportModel) View() string {
	if m.complete != nil {
		return m.renderComplete()
	}
	return m.renderProgress()
}

func (m *exportModel) renderProgress() string {
	var s strings.Builder
	writeHeader(&s, fmt.Sprintf("Exporting %s (%s) to 16-bit WAV", m.source, m.format))

	update := m.lastUpdate
	elapsed := update.Elapsed
	if elapsed == 0 {
		elapsed = time.Since(m.startTime)
	}

	if update.TotalFrames > 0 {
		percent := math.Min(1, float64(update.Frames)/float64(update.TotalFrames))
		s.WriteString("Progress: ")
		s.WriteString(m.progressBar.ViewAs(percent))
		s.WriteString(fmt.Sprintf("  %d%%", int(percent*100)))
		s.WriteString("\n\n")
		writeTiming(&s, percent, elapsed, m.framesDuration(update.Frames))

		phaseStyle := lipgloss.NewStyle().Faint(true).Italic(true)
		s.WriteString(phaseStyle.Render(fmt.Sprintf("Frame %d of %d", update.Frames, update.TotalFrames)))
	} else if update.Frames > 0 {
		s.WriteString(lipgloss.NewStyle().Faint(true).Render("Exporting..."))
		s.WriteString(fmt.Sprintf("  %d frames  │  Elapsed: %s", update.Frames, formatDuration(elapsed)))
	} else {
		s.WriteString(lipgloss.NewStyle().Faint(true).Render("Starting export..."))
	}

	if update.Bytes > 0 {
		labelStyle := lipgloss.NewStyle().Foreground(cli.SlateGray)
		valueStyle := lipgloss.NewStyle().Bold(true)

		s.WriteString("\n\n")
		s.WriteString(labelStyle.Render("Written: "))
		s.WriteString(valueStyle.Render(formatBytes(update.Bytes)))
		s.WriteString("  ")
		s.WriteString(labelStyle.Render("Audio: "))
		s.WriteString(valueStyle.Render(fmt.Sprintf("PCM %.1fkHz %s", float64(m.sampleRate)/1000, cli.FormatChannels(int(m.channels)))))
	}

	return boxStyle(cli.SignalBlue).Render(s.String())
}

func (m *exportModel) framesDuration(frames int64) time.Duration {
	if m.sampleRate == 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(m.sampleRate)
}

func (m *exportModel) renderComplete() string {
	var s strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.SignalMint).
		Render("✓ Export Complete!")
	s.WriteString(title)
	s.WriteString("\n\n")

	c := m.complete
	dimLabel := lipgloss.NewStyle().Faint(true)

	var speed float64
	if c.Elapsed > 0 {
		speed = float64(c.Duration) / float64(c.Elapsed)
	}

	s.WriteString(fmt.Sprintf("%s%s\n", dimLabel.Render("Output:   "), c.OutputFile))
	s.WriteString(fmt.Sprintf("%s%d samples, %d frames\n", dimLabel.Render("Audio:    "), c.Samples, c.Frames))
	s.WriteString(fmt.Sprintf("%s%.3fs audio in %s (%s)\n",
		dimLabel.Render("Duration: "),
		c.Duration.Seconds(),
		formatDuration(c.Elapsed),
		cli.FormatSpeed(speed)))
	s.WriteString(fmt.Sprintf("%s%s", dimLabel.Render("Size:     "), formatBytes(c.Bytes)))

	return boxStyle(cli.SignalMint).Render(s.String()) + "\n"
}
