// Package layout renders the app frame around the active screen.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/ui/theme"
	"github.com/abhisek/vibekids/internal/vibe"
)

const (
	MinWidth  = 60
	MinHeight = 20
)

// KeyHint is a key binding shown in the footer.
type KeyHint struct {
	Key         string
	Description string
}

// IsTooSmall reports whether the terminal is below the minimum size.
func IsTooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

// RenderMinSizeMessage asks the user to enlarge the terminal.
func RenderMinSizeMessage(width, height int) string {
	return lipgloss.NewStyle().
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Width(width).
		Height(height).
		Render(fmt.Sprintf(
			"Terminal too small!\n\nPlease resize to at\nleast %d x %d\n\nCurrent: %d x %d",
			MinWidth, MinHeight, width, height,
		))
}

// Header is what the top bar shows.
type Header struct {
	Title  string
	Vibe   vibe.State // empty hides the vibe badge
	Streak int
}

// RenderHeader renders the top bar: app name, screen title, vibe and streak.
func RenderHeader(h Header, width int) string {
	left := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		Render("  Vibekids")

	center := lipgloss.NewStyle().
		Foreground(theme.Text).
		Render(h.Title)

	right := lipgloss.NewStyle().
		Foreground(theme.Accent).
		Render(fmt.Sprintf("★ %d day", h.Streak))
	if h.Vibe != "" {
		right = lipgloss.NewStyle().
			Foreground(theme.VibeColor(h.Vibe)).
			Render("● "+h.Vibe.Label()) + "   " + right
	}

	innerWidth := max(0, width-4)
	leftLen, centerLen, rightLen := lipgloss.Width(left), lipgloss.Width(center), lipgloss.Width(right)

	leftGap := max(1, (innerWidth-centerLen)/2-leftLen)
	rightGap := max(1, innerWidth-leftLen-leftGap-centerLen-rightLen)

	content := left + strings.Repeat(" ", leftGap) + center + strings.Repeat(" ", rightGap) + right

	return lipgloss.NewStyle().
		Width(width).
		Background(theme.BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Render(content)
}

// RenderFooter renders the key hints.
func RenderFooter(hints []KeyHint, width int) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		part := lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(h.Key) +
			" " +
			lipgloss.NewStyle().Foreground(theme.TextDim).Render(h.Description)
		parts = append(parts, part)
	}

	return lipgloss.NewStyle().
		Width(width).
		Background(theme.BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Render("  " + strings.Join(parts, "   "))
}

// RenderFrame stacks header, content and footer into height rows.
func RenderFrame(header, content, footer string, width, height int) string {
	contentHeight := max(0, height-lipgloss.Height(header)-lipgloss.Height(footer))

	styled := lipgloss.NewStyle().
		Width(width).
		Height(contentHeight).
		Render(content)

	return header + "\n" + styled + "\n" + footer
}

// Centered renders s centered across width in style.
func Centered(style lipgloss.Style, width int, s string) string {
	return style.Width(width).Align(lipgloss.Center).Render(s)
}
