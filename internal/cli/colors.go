package cli

import "github.com/charmbracelet/lipgloss"

// Signal colour palette
// Shared colours for consistent branding across CLI and TUI
var (
	// Core signal colours (deep to bright)
	SignalDeep  = lipgloss.Color("#0B3C5D") // Deep navy
	SignalBlue  = lipgloss.Color("#1F78B4") // Strong blue
	SignalCyan  = lipgloss.Color("#00B3C7") // Cyan
	SignalMint  = lipgloss.Color("#7FFFD4") // Aquamarine
	SignalAmber = lipgloss.Color("#F8B31D") // Clip warning amber

	// Accent colours
	SlateGray = lipgloss.Color("#708090") // Subtle text
)
