// Package ui is the terminal surface of the form filler: prompts, progress
// and status rendering.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorAccent  = lipgloss.Color("#5A67D8")
	ColorBright  = lipgloss.Color("#7F9CF5")
	ColorSuccess = lipgloss.Color("#38A169")
	ColorWarning = lipgloss.Color("#D69E2E")
	ColorError   = lipgloss.Color("#E53E3E")
	ColorMuted   = lipgloss.Color("#718096")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Bold     lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style

	Question lipgloss.Style
	Answer   lipgloss.Style

	Box      lipgloss.Style
	ErrorBox lipgloss.Style
}{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(ColorBright),
	Subtitle: lipgloss.NewStyle().Foreground(ColorAccent),
	Bold:     lipgloss.NewStyle().Bold(true),
	Muted:    lipgloss.NewStyle().Foreground(ColorMuted),
	Success:  lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:  lipgloss.NewStyle().Foreground(ColorWarning),
	Error:    lipgloss.NewStyle().Foreground(ColorError),

	Question: lipgloss.NewStyle().Foreground(ColorBright),
	Answer:   lipgloss.NewStyle().Bold(true).PaddingLeft(2),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconPending = "○"
	IconArrow   = "→"
)
