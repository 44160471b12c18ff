// Package welcome is the splash shown when the app starts.
package welcome

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/router"
	"github.com/abhisek/vibekids/internal/screen"
	"github.com/abhisek/vibekids/internal/ui/layout"
	"github.com/abhisek/vibekids/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	sparkleAt    = 400 * time.Millisecond
	bannerAt     = 1200 * time.Millisecond
	readyAt      = 2000 * time.Millisecond
)

const mascotArt = `  ╭───────────╮
  │  ┌─────┐  │
  │  │ ◉ ◉ │  │
  │  │  ▽  │  │
  │  ├─────┤  │
  │  │ ABC │  │
  │  └─────┘  │
  ╰───────────╯`

var sparkleFrames = []string{"★", "✦"}

type tickMsg time.Time

// WelcomeScreen plays a short animation, then hands over to the next screen.
type WelcomeScreen struct {
	next         func() screen.Screen
	elapsed      time.Duration
	tickCount    int
	transitioned bool
}

var (
	_ screen.Screen          = (*WelcomeScreen)(nil)
	_ screen.KeyHintProvider = (*WelcomeScreen)(nil)
)

// New creates a WelcomeScreen that replaces itself with next() on a key
// press once the animation is done.
func New(next func() screen.Screen) *WelcomeScreen {
	return &WelcomeScreen{next: next}
}

func (w *WelcomeScreen) Title() string {
	return ""
}

func (w *WelcomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "any key", Description: "Start"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Ready reports whether the animation has finished.
func (w *WelcomeScreen) Ready() bool {
	return w.elapsed >= readyAt
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg.(type) {
	case tickMsg:
		if w.transitioned {
			return w, nil
		}
		if w.elapsed < readyAt {
			w.elapsed += tickInterval
		}
		w.tickCount++
		return w, tick()

	case tea.KeyPressMsg:
		// The first key skips the animation; the next one moves on.
		if !w.Ready() {
			w.elapsed = readyAt
			return w, nil
		}
		return w, w.transition()
	}
	return w, nil
}

func (w *WelcomeScreen) transition() tea.Cmd {
	if w.transitioned {
		return nil
	}
	w.transitioned = true
	return router.Replace(w.next())
}

func (w *WelcomeScreen) View(width, height int) string {
	rendered := lipgloss.NewStyle().Foreground(theme.Primary).Render(mascotArt)

	if w.elapsed >= sparkleAt {
		sparkle := sparkleFrames[w.tickCount%len(sparkleFrames)]
		s1 := lipgloss.NewStyle().Foreground(theme.Accent).Render(sparkle)
		s2 := lipgloss.NewStyle().Foreground(theme.Secondary).Render(sparkle)

		lines := strings.Split(rendered, "\n")
		for i, l := range lines {
			switch i {
			case 0, 6:
				lines[i] = s1 + "  " + l + "  " + s2
			case 3:
				lines[i] = s2 + "  " + l + "  " + s1
			default:
				lines[i] = "   " + l + "   "
			}
		}
		rendered = strings.Join(lines, "\n")
	}

	sections := []string{rendered}
	if w.elapsed >= bannerAt {
		tagline := lipgloss.NewStyle().
			Foreground(theme.Text).
			Bold(true).
			Render("Stories and sums, one step at a time!")
		sections = append(sections, "", RenderBanner(width), "", tagline)
	}
	if w.Ready() {
		sections = append(sections, "", theme.Hint.Render("press any key to start"))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}
