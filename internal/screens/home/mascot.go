package home

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/dashboard"
	"github.com/abhisek/vibekids/internal/ui/theme"
)

// MascotVariant selects which mascot art to display.
type MascotVariant int

const (
	MascotIdle        MascotVariant = iota
	MascotCelebrating               // both daily goals met
	MascotSleepy                    // nothing done today
)

const mascotIdle = `┌─────┐
│ ◉ ◉ │
│  ▽  │
│ ABC │
└─────┘`

const mascotCelebrating = `┌─────┐
│ ★ ★ │
│  ▿  │
│ ABC │
└─╥═╥─┘
  ╚═╝`

const mascotSleepy = `┌─────┐ z
│ - - │z
│  ▽  │
│ ABC │
└─────┘`

// mascotFor picks the variant for today's progress. A nil dashboard is
// treated as an ordinary day.
func mascotFor(c *dashboard.Child) MascotVariant {
	if c == nil {
		return MascotIdle
	}
	g := c.TodayGoals
	switch {
	case g.ReadingMinutes >= g.TargetReadingMinutes && g.MathProblems >= g.TargetMathProblems:
		return MascotCelebrating
	case g.ReadingMinutes == 0 && g.MathProblems == 0:
		return MascotSleepy
	}
	return MascotIdle
}

// RenderMascot returns the mascot art for v.
func RenderMascot(v MascotVariant) string {
	art, fg := mascotIdle, color.Color(theme.Primary)
	switch v {
	case MascotCelebrating:
		art, fg = mascotCelebrating, theme.Warning
	case MascotSleepy:
		art, fg = mascotSleepy, theme.TextDim
	}
	return lipgloss.NewStyle().Foreground(fg).Render(art)
}
