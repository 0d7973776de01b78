package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/flatpcm/internal/audio"
	"github.com/linuxmatters/flatpcm/internal/cli"
	"github.com/linuxmatters/flatpcm/internal/config"
	"github.com/linuxmatters/flatpcm/internal/encoder"
	"github.com/linuxmatters/flatpcm/internal/player"
	"github.com/linuxmatters/flatpcm/internal/renderer"
	"github.com/linuxmatters/flatpcm/internal/ui"
)

// version is set via ldflags at build time
// Local dev builds: "dev"
// Release builds: git tag (e.g. "v0.1.0")
var version = "dev"

// versionFlag prints the styled version banner and exits
type versionFlag bool

func (v versionFlag) BeforeApply(app *kong.Kong) error {
	cli.PrintVersion(version)
	app.Exit(0)
	return nil
}

var CLI struct {
	Version versionFlag `help:"Show version information"`

	Info    InfoCmd    `cmd:"" help:"Show stream metadata"`
	Dump    DumpCmd    `cmd:"" help:"Print decoded samples"`
	Analyze AnalyzeCmd `cmd:"" help:"Measure levels and spectrum"`
	Export  ExportCmd  `cmd:"" help:"Export to 16-bit PCM WAV"`
	Render  RenderCmd  `cmd:"" help:"Render a waveform PNG"`
	Play    PlayCmd    `cmd:"" help:"Play through the audio device"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("flatpcm"),
		kong.Description(cli.AppDescription),
		kong.Vars{
			"version":         version,
			"dump_count":      strconv.Itoa(config.DumpDefaultCount),
			"analysis_window": strconv.Itoa(config.AnalysisWindow),
			"width":           strconv.Itoa(config.Width),
			"height":          strconv.Itoa(config.Height),
			"volume":          strconv.Itoa(config.DefaultVolume),
		},
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter()),
	)

	if err := ctx.Run(); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// openInput opens and probes an input file
func openInput(path string) (*audio.File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", path)
	}

	f, err := audio.OpenFile(path)
	if errors.Is(err, audio.ErrNotRecognized) {
		return nil, fmt.Errorf("%s is not IMA ADPCM WAV, PCM WAV, FLAC or MP3", path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening audio: %w", err)
	}
	return f, nil
}

// InfoCmd prints metadata about an input file
type InfoCmd struct {
	Input string `arg:"" name:"input" help:"Input audio file" type:"path"`
}

func (c *InfoCmd) Run() error {
	f, err := openInput(c.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	meta := f.Metadata()
	cli.PrintBanner()
	cli.PrintInfo("File", c.Input)
	cli.PrintInfo("Format", meta.Format)
	cli.PrintInfo("Encoding", meta.Encoding.String())
	cli.PrintInfo("Sample rate", fmt.Sprintf("%d Hz", meta.SampleRate))
	cli.PrintInfo("Channels", cli.FormatChannels(meta.Channels))
	cli.PrintInfo("Block", fmt.Sprintf("%d bytes, %d frames", meta.BlockBytes, meta.BlockFrames))
	if meta.BlockCount >= 0 {
		cli.PrintInfo("Blocks", fmt.Sprintf("%d", meta.BlockCount))
	}
	if meta.DurationOK {
		cli.PrintInfo("Duration", cli.FormatDuration(meta.Duration))
	} else {
		cli.PrintInfo("Duration", "unknown")
	}
	return nil
}

// DumpCmd prints the first samples of a stream
type DumpCmd struct {
	Input  string `arg:"" name:"input" help:"Input audio file" type:"path"`
	Count  int    `help:"Number of samples to print" default:"${dump_count}"`
	Offset int64  `help:"Samples to skip before printing" default:"0"`
	All    bool   `help:"Print every sample"`
}

func (c *DumpCmd) Run() error {
	f, err := openInput(c.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	channels := int64(f.Channels())
	for i := int64(0); i < c.Offset; i++ {
		if _, ok := f.Next(); !ok {
			break
		}
	}

	printed := 0
	for index := c.Offset; c.All || printed < c.Count; index++ {
		v, ok := f.Next()
		if !ok {
			break
		}
		fmt.Printf("%s %s\n",
			cli.KeyStyle.Render(fmt.Sprintf("%10d [f%d c%d]", index, index/channels, index%channels)),
			cli.ValueStyle.Render(fmt.Sprintf("%6d", v)))
		printed++
	}

	if err := f.Err(); err != nil {
		return fmt.Errorf("decoding stopped after %d samples: %w", f.Stats().SamplesProduced, err)
	}

	stats := f.Stats()
	cli.PrintInfo("Decoded", fmt.Sprintf("%d samples in %d blocks", stats.SamplesProduced, stats.BlocksDecoded))
	return nil
}

// AnalyzeCmd measures a stream's levels and spectrum
type AnalyzeCmd struct {
	Input  string `arg:"" name:"input" help:"Input audio file" type:"path"`
	Window int    `help:"Frames per analysis window (power of two)" default:"${analysis_window}"`
	Plain  bool   `help:"Print a summary without the interactive UI"`
}

func (c *AnalyzeCmd) Run() error {
	f, err := openInput(c.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	name := filepath.Base(c.Input)
	if c.Plain {
		profile, err := audio.Analyze(f, c.Window, nil)
		if profile != nil {
			printProfile(name, profile)
		}
		return err
	}

	p := tea.NewProgram(ui.NewAnalyzeModel(name, f.SampleRate(), f.Channels(), c.Window))

	var profile *audio.Profile
	var analysisErr error
	go func() {
		start := time.Now()
		profile, analysisErr = audio.Analyze(f, c.Window, func(window, totalWindows int, rms, peak float64, barHeights []float64, elapsed time.Duration) {
			p.Send(ui.AnalyzeProgress{
				Window:       window,
				TotalWindows: totalWindows,
				CurrentRMS:   rms,
				CurrentPeak:  peak,
				BarHeights:   append([]float64(nil), barHeights...),
				Elapsed:      elapsed,
			})
		})

		if profile == nil {
			p.Quit()
			return
		}
		p.Send(ui.AnalyzeComplete{
			Duration:      profile.Duration,
			Windows:       profile.NumWindows,
			GlobalPeak:    profile.GlobalPeak,
			GlobalRMS:     profile.GlobalRMS,
			DynamicRange:  profile.DynamicRange,
			PeakFrequency: profile.PeakFrequency,
			Spectrum:      profile.Spectrum[:],
			AnalysisTime:  time.Since(start),
		})
	}()

	model, err := p.Run()
	if err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	if ui.Cancelled(model) {
		return errors.New("analysis cancelled")
	}
	if analysisErr != nil {
		return fmt.Errorf("analysing audio: %w", analysisErr)
	}
	return nil
}

func printProfile(name string, profile *audio.Profile) {
	cli.PrintSummary("Analysis Complete", [][2]string{
		{"Source", name},
		{"Duration", cli.FormatDuration(profile.Duration)},
		{"Format", fmt.Sprintf("%d Hz %s", profile.SampleRate, cli.FormatChannels(int(profile.Channels)))},
		{"Samples", fmt.Sprintf("%d (%d frames)", profile.Samples, profile.Frames)},
		{"Peak", fmt.Sprintf("%.4f", profile.GlobalPeak)},
		{"RMS", fmt.Sprintf("%.4f", profile.GlobalRMS)},
		{"Dynamic range", fmt.Sprintf("%.1f dB", profile.DynamicRange)},
		{"Dominant band", fmt.Sprintf("%.0f Hz", profile.PeakFrequency)},
	})
}

// ExportCmd writes a stream out as 16-bit PCM WAV
type ExportCmd struct {
	Input  string `arg:"" name:"input" help:"Input audio file" type:"path"`
	Output string `arg:"" name:"output" help:"Output WAV file"`
	Plain  bool   `help:"Print a summary without the interactive UI"`
}

func (c *ExportCmd) Run() error {
	f, err := openInput(c.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	if c.Plain {
		result, err := encoder.ExportFile(f, c.Output, nil)
		if result.Samples > 0 {
			printExport(c.Output, result)
		}
		return err
	}

	p := tea.NewProgram(ui.NewExportModel(filepath.Base(c.Input), f.Format, f.SampleRate(), f.Channels()))

	var exportErr error
	go func() {
		var result encoder.Result
		result, exportErr = encoder.ExportFile(f, c.Output, func(prog encoder.Progress) {
			p.Send(ui.ExportProgress{
				Frames:      prog.Frames,
				TotalFrames: prog.TotalFrames,
				Bytes:       prog.Bytes,
				Elapsed:     prog.Elapsed,
			})
		})

		if exportErr != nil && result.Samples == 0 {
			p.Quit()
			return
		}
		p.Send(ui.ExportComplete{
			OutputFile: c.Output,
			Samples:    result.Samples,
			Frames:     result.Frames,
			Bytes:      result.Bytes,
			Duration:   result.Duration,
			Elapsed:    result.Elapsed,
		})
	}()

	model, err := p.Run()
	if err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	if ui.Cancelled(model) {
		return errors.New("export cancelled")
	}
	if exportErr != nil {
		return fmt.Errorf("exporting audio: %w", exportErr)
	}
	return nil
}

func printExport(output string, result encoder.Result) {
	var speed float64
	if result.Elapsed > 0 {
		speed = float64(result.Duration) / float64(result.Elapsed)
	}
	cli.PrintSummary("Export Complete", [][2]string{
		{"Output", output},
		{"Duration", cli.FormatDuration(result.Duration)},
		{"Samples", fmt.Sprintf("%d (%d frames)", result.Samples, result.Frames)},
		{"Size", cli.FormatBytes(result.Bytes)},
		{"Speed", cli.FormatSpeed(speed)},
	})
}

// RenderCmd draws a waveform image of a stream
type RenderCmd struct {
	Input      string `arg:"" name:"input" help:"Input audio file" type:"path"`
	Output     string `arg:"" name:"output" help:"Output PNG file"`
	Title      string `help:"Title drawn above the waveform"`
	Width      int    `help:"Image width in pixels" default:"${width}"`
	Height     int    `help:"Image height in pixels" default:"${height}"`
	Color      string `help:"Waveform colour as RRGGBB"`
	TextColor  string `help:"Label colour as RRGGBB"`
	Background string `help:"PNG background image" type:"path"`
	Preview    bool   `help:"Show a preview in the terminal"`
}

func (c *RenderCmd) Run() error {
	rc := &config.RuntimeConfig{Title: c.Title}
	if c.Color != "" {
		if err := rc.SetWaveColor(c.Color); err != nil {
			return err
		}
	}
	if c.TextColor != "" {
		if err := rc.SetTextColor(c.TextColor); err != nil {
			return err
		}
	}

	f, err := openInput(c.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	img, renderErr := renderer.RenderWaveform(f, renderer.Options{
		Width:      c.Width,
		Height:     c.Height,
		Title:      rc.Title,
		Background: c.Background,
		Runtime:    rc,
	})
	if img == nil {
		return fmt.Errorf("rendering waveform: %w", renderErr)
	}
	if renderErr != nil {
		cli.PrintWarning(renderErr.Error())
	}

	if err := renderer.SavePNG(img, c.Output); err != nil {
		return err
	}

	if c.Preview {
		fmt.Print(ui.RenderPreview("Waveform Preview", ui.DownsampleFrame(img, ui.DefaultPreviewConfig())))
	}
	cli.PrintSuccess(fmt.Sprintf("Rendered %s in %s", c.Output, cli.FormatDuration(time.Since(start))))
	return nil
}

// PlayCmd plays a stream through the default audio device
type PlayCmd struct {
	Input  string `arg:"" name:"input" help:"Input audio file" type:"path"`
	Volume int    `help:"Playback volume (0-100)" default:"${volume}"`
	Plain  bool   `help:"Play without the level meter UI"`
}

func (c *PlayCmd) Run() error {
	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("invalid volume: %d (must be 0-100)", c.Volume)
	}

	f, err := openInput(c.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if c.Plain {
		player.Logger.SetOutput(os.Stderr)
		cli.PrintInfo("Playing", c.Input)
		result, err := player.Play(ctx, f, player.Options{Volume: c.Volume})
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		cli.PrintInfo("Played", fmt.Sprintf("%d samples in %s", result.Samples, cli.FormatDuration(result.Elapsed)))
		return err
	}

	duration, _ := f.TotalDuration()
	p := tea.NewProgram(ui.NewPlayModel(filepath.Base(c.Input), duration, stop))

	done := make(chan error, 1)
	go func() {
		_, err := player.Play(ctx, f, player.Options{
			Volume: c.Volume,
			OnLevel: func(level player.Level) {
				p.Send(ui.PlayLevel{
					RMSdB:    level.RMSdB,
					PeakdB:   level.PeakdB,
					Position: level.Position,
					Buffered: level.Buffered,
				})
			},
		})
		done <- err
		p.Send(ui.PlayComplete{})
	}()

	_, uiErr := p.Run()

	// Stop playback if the UI quit first, then wait for the device to be released
	stop()
	playErr := <-done

	if uiErr != nil {
		return fmt.Errorf("running UI: %w", uiErr)
	}
	if playErr != nil && !errors.Is(playErr, context.Canceled) {
		return fmt.Errorf("playing audio: %w", playErr)
	}
	return nil
}
