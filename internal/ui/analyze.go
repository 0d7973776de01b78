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

// AnalyzeProgress represents progress updates from audio analysis
type AnalyzeProgress struct {
	Window       int
	TotalWindows int // 0 when the stream length is unknown
	CurrentRMS   float64
	CurrentPeak  float64
	BarHeights   []float64
	Elapsed      time.Duration
}

// AnalyzeComplete signals completion of audio analysis
type AnalyzeComplete struct {
	Duration      time.Duration
	Windows       int
	GlobalPeak    float64
	GlobalRMS     float64
	DynamicRange  float64 // dB
	PeakFrequency float64 // Hz
	Spectrum      []float64
	AnalysisTime  time.Duration
}

// analyzeModel implements the Bubbletea model for the analyze command
type analyzeModel struct {
	progressBar progress.Model
	source      string
	sampleRate  uint32
	channels    uint16
	window      int // Frames per analysis window

	lastUpdate AnalyzeProgress
	complete   *AnalyzeComplete
	cancelled  bool
	startTime  time.Time
	width      int
}

// NewAnalyzeModel creates a new analysis UI model for the named source
func NewAnalyzeModel(source string, sampleRate uint32, channels uint16, window int) tea.Model {
	return &analyzeModel{
		progressBar: newProgressBar(40),
		source:      source,
		sampleRate:  sampleRate,
		channels:    channels,
		window:      window,
		startTime:   time.Now(),
	}
}

// Init initializes the model
func (m *analyzeModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *analyzeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(10, min(msg.Width-30, 50))
		return m, nil

	case AnalyzeProgress:
		m.lastUpdate = msg
		return m, nil

	case AnalyzeComplete:
		m.complete = &msg
		return m, quitAfter(completionDelay)

	case quitMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		// Allow any key to skip the completion screen delay
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
func (m *analyzeModel) View() string {
	if m.complete != nil {
		return m.renderComplete()
	}
	return m.renderProgress()
}

func (m *analyzeModel) renderProgress() string {
	var s strings.Builder
	writeHeader(&s, "Analysing "+m.source)

	update := m.lastUpdate
	elapsed := update.Elapsed
	if elapsed == 0 {
		elapsed = time.Since(m.startTime)
	}

	switch {
	case update.TotalWindows > 0:
		percent := math.Min(1, float64(update.Window)/float64(update.TotalWindows))
		s.WriteString("Progress: ")
		s.WriteString(m.progressBar.ViewAs(percent))
		s.WriteString(fmt.Sprintf("  %d%%", int(percent*100)))
		s.WriteString("\n\n")
		writeTiming(&s, percent, elapsed, m.windowsDuration(update.Window))
	case update.Window > 0:
		// No total, show window count with elapsed time
		s.WriteString(lipgloss.NewStyle().Faint(true).Render("Analysing..."))
		s.WriteString(fmt.Sprintf("  %d windows  │  Elapsed: %s\n", update.Window, formatDuration(elapsed)))
	default:
		s.WriteString(lipgloss.NewStyle().Faint(true).Render("Starting analysis..."))
		s.WriteString("\n")
	}

	// Live Spectrum Preview
	if len(update.BarHeights) > 0 {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Foreground(cli.SignalCyan).Render("Live Spectrum:"))
		s.WriteString("\n")
		spectrumWidth := 64
		if m.width > 10 {
			spectrumWidth = min(m.width-10, 64)
		}
		s.WriteString(renderSpectrum(update.BarHeights, spectrumWidth))
		s.WriteString("\n")
	}

	// Audio Stats, fixed-width to prevent shimmer
	if update.Window > 0 {
		labelStyle := lipgloss.NewStyle().Faint(true)

		s.WriteString("\n  ")
		s.WriteString(labelStyle.Render("Sample Rate: "))
		s.WriteString(fmt.Sprintf("%6.1f kHz", float64(m.sampleRate)/1000))
		s.WriteString("  │  ")
		s.WriteString(labelStyle.Render("Channels: "))
		s.WriteString(cli.FormatChannels(int(m.channels)))
		s.WriteString("\n  ")
		s.WriteString(labelStyle.Render("Peak Level:  "))
		s.WriteString(fmt.Sprintf("%6.1f dB", toDB(update.CurrentPeak)))
		s.WriteString("  │  ")
		s.WriteString(labelStyle.Render("RMS Level: "))
		s.WriteString(fmt.Sprintf("%6.1f dB", toDB(update.CurrentRMS)))
	}

	return boxStyle(cli.SignalBlue).Render(s.String())
}

// windowsDuration converts a window count into audio time
func (m *analyzeModel) windowsDuration(windows int) time.Duration {
	if m.sampleRate == 0 {
		return 0
	}
	return time.Duration(windows*m.window) * time.Second / time.Duration(m.sampleRate)
}

func (m *analyzeModel) renderComplete() string {
	var s strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.SignalMint).
		Render("✓ Analysis Complete!")
	s.WriteString(title)
	s.WriteString("\n\n")

	labelStyle := lipgloss.NewStyle().Faint(true)
	row := func(label, value string) {
		s.WriteString("  ")
		s.WriteString(labelStyle.Render(fmt.Sprintf("%-18s", label)))
		s.WriteString(value)
		s.WriteString("\n")
	}

	c := m.complete
	s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(cli.SignalCyan).Render("Audio Profile:"))
	s.WriteString("\n")
	row("Source:", m.source)
	row("Duration:", fmt.Sprintf("%.3fs", c.Duration.Seconds()))
	row("Format:", fmt.Sprintf("%d Hz %s", m.sampleRate, cli.FormatChannels(int(m.channels))))
	row("Peak Level:", fmt.Sprintf("%.1f dB", toDB(c.GlobalPeak)))
	row("RMS Level:", fmt.Sprintf("%.1f dB", toDB(c.GlobalRMS)))
	row("Dynamic Range:", fmt.Sprintf("%.1f dB", c.DynamicRange))
	row("Dominant Band:", fmt.Sprintf("%.0f Hz", c.PeakFrequency))
	row("Windows:", fmt.Sprintf("%d", c.Windows))

	if len(c.Spectrum) > 0 {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(cli.SignalCyan).Render("Average Spectrum:"))
		s.WriteString("\n")
		s.WriteString(renderSpectrum(c.Spectrum, 64))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Analysis completed in %s", formatDuration(c.AnalysisTime)))

	return boxStyle(cli.SignalMint).Render(s.String()) + "\n"
}

// toDB converts a linear level to dBFS, flooring silence
func toDB(level float64) float64 {
	if level <= 0 {
		return -96
	}
	return math.Max(-96, 20*math.Log10(level))
}
