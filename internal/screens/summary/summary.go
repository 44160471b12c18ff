// Package summary shows the recap at the end of a math practice.
package summary

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/router"
	"github.com/abhisek/vibekids/internal/screen"
	"github.com/abhisek/vibekids/internal/ui/layout"
	"github.com/abhisek/vibekids/internal/ui/theme"
	"github.com/abhisek/vibekids/internal/vibe"
)

// Practice is what one sitting of math practice added up to.
type Practice struct {
	Duration    time.Duration
	Attempted   int
	Correct     int
	LevelBefore int
	LevelAfter  int
	BestStreak  int
	Vibe        vibe.State
}

// Accuracy is the share answered correctly, in percent.
func (p Practice) Accuracy() int {
	if p.Attempted == 0 {
		return 0
	}
	return p.Correct * 100 / p.Attempted
}

// SummaryScreen displays a Practice.
type SummaryScreen struct {
	practice Practice
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)
var _ screen.VibeProvider = (*SummaryScreen)(nil)

func New(p Practice) *SummaryScreen {
	return &SummaryScreen{practice: p}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Great Work"
}

func (s *SummaryScreen) Vibe() string {
	return string(s.practice.Vibe)
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Continue"},
		{Key: "Esc", Description: "Home"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc":
			return s, router.Pop()
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	p := s.practice
	center := func(style lipgloss.Style, text string) string {
		return layout.Centered(style, width, text) + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(center(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true), headline(p)))
	b.WriteString("\n")

	mins := int(p.Duration.Minutes())
	secs := int(p.Duration.Seconds()) % 60
	b.WriteString(center(lipgloss.NewStyle().Foreground(theme.TextDim), fmt.Sprintf("Time: %d:%02d", mins, secs)))
	b.WriteString("\n")

	b.WriteString(center(theme.Body, fmt.Sprintf("Problems: %d        Correct: %d        Accuracy: %d%%",
		p.Attempted, p.Correct, p.Accuracy())))
	b.WriteString(center(theme.Body, fmt.Sprintf("Best streak: %d", p.BestStreak)))

	if p.LevelAfter > p.LevelBefore {
		b.WriteString("\n")
		b.WriteString(center(lipgloss.NewStyle().Foreground(theme.Success).Bold(true),
			fmt.Sprintf("Level %d > Level %d", p.LevelBefore, p.LevelAfter)))
	}
	return b.String()
}

func headline(p Practice) string {
	switch {
	case p.Attempted == 0:
		return "See you next time!"
	case p.Accuracy() >= 80:
		return "Amazing math today!"
	case p.Accuracy() >= 50:
		return "Nice practice!"
	}
	return "Every try makes you stronger!"
}
