package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(SignalMint).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(SignalCyan).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(SignalCyan).
				MarginTop(1)

	helpNameStyle = lipgloss.NewStyle().
			Foreground(SignalMint).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(SlateGray).
				Italic(true)
)

// helpEntry is one line of a help section
type helpEntry struct {
	name       string
	help       string
	defaultVal string
}

// StyledHelpPrinter renders help for the root command and each subcommand
func StyledHelpPrinter() kong.HelpPrinter {
	return func(_ kong.HelpOptions, ctx *kong.Context) error {
		node := ctx.Selected()
		if node == nil {
			node = ctx.Model.Node
		}
		fmt.Fprint(ctx.Stdout, renderHelp(ctx.Model.Name, ctx.Model.Node, node))
		return nil
	}
}

func renderHelp(appName string, root, node *kong.Node) string {
	var sb strings.Builder

	sb.WriteString(helpTitleStyle.Render(AppTitle))
	sb.WriteString("\n")
	sb.WriteString(helpDescStyle.Render(AppDescription))
	sb.WriteString("\n")

	sb.WriteString(helpSectionStyle.Render("Usage:"))
	if node == root {
		fmt.Fprintf(&sb, "\n  %s <command> [flags]\n", appName)
	} else {
		fmt.Fprintf(&sb, "\n  %s %s\n", appName, node.Summary())
	}

	writeSection(&sb, "Commands:", commandEntries(node))
	writeSection(&sb, "Arguments:", argumentEntries(node))

	// Global flags apply to every subcommand, so they come first
	flags := flagEntries(root.Flags)
	if node != root {
		flags = append(flags, flagEntries(node.Flags)...)
	}
	writeSection(&sb, "Flags:", append([]helpEntry{{name: "-h, --help", help: "Show context-sensitive help."}}, flags...))

	sb.WriteString("\n")
	return sb.String()
}

func writeSection(sb *strings.Builder, title string, entries []helpEntry) {
	if len(entries) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(helpSectionStyle.Render(title))
	sb.WriteString("\n")
	for _, e := range entries {
		sb.WriteString("  ")
		sb.WriteString(helpNameStyle.Render(fmt.Sprintf("%-10s", e.name)))
		if e.help != "" {
			sb.WriteString("  ")
			sb.WriteString(e.help)
		}
		if e.defaultVal != "" {
			sb.WriteString(" ")
			sb.WriteString(helpDefaultStyle.Render("(default: " + e.defaultVal + ")"))
		}
		sb.WriteString("\n")
	}
}

func commandEntries(node *kong.Node) []helpEntry {
	var entries []helpEntry
	for _, child := range node.Children {
		entries = append(entries, helpEntry{name: child.Name, help: child.Help})
	}
	return entries
}

func argumentEntries(node *kong.Node) []helpEntry {
	var entries []helpEntry
	for _, arg := range node.Positional {
		entries = append(entries, helpEntry{name: arg.Summary(), help: arg.Help})
	}
	return entries
}

func flagEntries(nodeFlags []*kong.Flag) []helpEntry {
	var entries []helpEntry
	for _, f := range nodeFlags {
		if f.Name == "help" {
			continue
		}
		e := helpEntry{name: "--" + f.Name, help: f.Help}
		if f.HasDefault && !f.IsBool() {
			e.defaultVal = f.Default
		}
		entries = append(entries, e)
	}
	return entries
}
