package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/ui/theme"
)

// ProgressBar is a horizontal bar with an optional label and percentage.
type ProgressBar struct {
	Label       string
	Percent     float64 // 0 to 1
	ShowPercent bool
	Width       int
}

func NewProgressBar(label string, percent float64, showPercent bool, width int) ProgressBar {
	return ProgressBar{Label: label, Percent: percent, ShowPercent: showPercent, Width: width}
}

func (p ProgressBar) View() string {
	var result string
	if p.Label != "" {
		result = lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	percentWidth := 0
	if p.ShowPercent {
		percentWidth = 6
	}
	barWidth := max(4, p.Width-lipgloss.Width(result)-percentWidth)
	filled := max(0, min(barWidth, int(float64(barWidth)*p.Percent)))

	result += lipgloss.NewStyle().Background(theme.Secondary).Render(strings.Repeat(" ", filled)) +
		lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", barWidth-filled))

	if p.ShowPercent {
		result += theme.Hint.Render(fmt.Sprintf("  %d%%", int(p.Percent*100)))
	}
	return result
}
