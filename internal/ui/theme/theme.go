// Package theme holds the terminal palette and shared styles.
package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/vibe"
)

// Palette: warm and bright for young readers.
var (
	Primary   = lipgloss.Color("#8B5CF6") // purple
	Secondary = lipgloss.Color("#14B8A6") // teal
	Accent    = lipgloss.Color("#F97316") // orange
	Success   = lipgloss.Color("#22C55E")
	Error     = lipgloss.Color("#F43F5E")
	Warning   = lipgloss.Color("#EAB308")
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgDark    = lipgloss.Color("#0F172A")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim).
			Align(lipgloss.Center)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)
)

// Word styles for the reader.
var (
	WordRead = lipgloss.NewStyle().
			Foreground(TextDim)

	WordCurrent = lipgloss.NewStyle().
			Background(Primary).
			Foreground(Text).
			Bold(true)

	WordHover = lipgloss.NewStyle().
			Background(Accent).
			Foreground(BgDark).
			Bold(true)

	WordAhead = lipgloss.NewStyle().
			Foreground(Text)
)

var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)
)

// VibeColor is the header color for a vibe.
func VibeColor(s vibe.State) color.Color {
	switch s {
	case vibe.Happy:
		return Success
	case vibe.Focused:
		return Secondary
	case vibe.Confused, vibe.Frustrated:
		return Warning
	case vibe.Tired:
		return Accent
	default:
		return TextDim
	}
}
