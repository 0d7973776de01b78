package cli

import (
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

type helpTestCLI struct {
	Version bool `help:"Show version information"`

	Play struct {
		Input  string `arg:"" name:"input" help:"Input audio file"`
		Volume int    `help:"Playback volume (0-100)" default:"50"`
		Plain  bool   `help:"Play without the level meter UI"`
	} `cmd:"" help:"Play through the audio device"`

	Info struct {
		Input string `arg:"" name:"input" help:"Input audio file"`
	} `cmd:"" help:"Show stream metadata"`
}

func newHelpTestApp(t *testing.T) *kong.Kong {
	t.Helper()
	app, err := kong.New(&helpTestCLI{}, kong.Name("flatpcm"))
	if err != nil {
		t.Fatalf("kong.New failed: %v", err)
	}
	return app
}

func lineContaining(out, s string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, s) {
			return line
		}
	}
	return ""
}

func TestRenderHelp_Root(t *testing.T) {
	app := newHelpTestApp(t)
	out := renderHelp("flatpcm", app.Model.Node, app.Model.Node)

	for _, want := range []string{
		"flatpcm <command> [flags]",
		"Commands:",
		"Play through the audio device",
		"Show stream metadata",
		"--help",
		"--version",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("root help missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Arguments:") {
		t.Errorf("root help lists arguments:\n%s", out)
	}
	if strings.Contains(out, "--volume") {
		t.Errorf("root help lists subcommand flags:\n%s", out)
	}
}

func TestRenderHelp_Subcommand(t *testing.T) {
	app := newHelpTestApp(t)
	root := app.Model.Node

	var play *kong.Node
	for _, child := range root.Children {
		if child.Name == "play" {
			play = child
		}
	}
	if play == nil {
		t.Fatal("play command not found in model")
	}

	out := renderHelp("flatpcm", root, play)

	for _, want := range []string{"flatpcm play", "Arguments:", "Input audio file", "--version", "--volume"} {
		if !strings.Contains(out, want) {
			t.Errorf("play help missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Commands:") {
		t.Errorf("play help lists commands:\n%s", out)
	}
	if line := lineContaining(out, "--volume"); !strings.Contains(line, "(default: 50)") {
		t.Errorf("volume line = %q, want its default", line)
	}
	if line := lineContaining(out, "--plain"); strings.Contains(line, "default") {
		t.Errorf("plain line = %q, want no default for a bool flag", line)
	}
	if strings.Index(out, "--version") > strings.Index(out, "--volume") {
		t.Errorf("global flags should come before command flags:\n%s", out)
	}
}
