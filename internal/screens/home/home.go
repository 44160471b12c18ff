// Package home is the start screen: today's goals and what to do next.
package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/dashboard"
	"github.com/abhisek/vibekids/internal/router"
	"github.com/abhisek/vibekids/internal/screen"
	"github.com/abhisek/vibekids/internal/screens"
	"github.com/abhisek/vibekids/internal/screens/history"
	"github.com/abhisek/vibekids/internal/screens/practice"
	"github.com/abhisek/vibekids/internal/screens/reader"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/ui/components"
	"github.com/abhisek/vibekids/internal/ui/layout"
	"github.com/abhisek/vibekids/internal/ui/theme"
)

type loadedMsg struct {
	stories []store.Story
	child   *dashboard.Child
	err     error
}

// HomeScreen lists the stories and math practice.
type HomeScreen struct {
	deps    screens.Deps
	loaded  bool
	err     error
	stories []store.Story
	child   *dashboard.Child
	menu    components.Menu
}

var (
	_ screen.Screen          = (*HomeScreen)(nil)
	_ screen.KeyHintProvider = (*HomeScreen)(nil)
	_ screen.Refresher       = (*HomeScreen)(nil)
)

func New(deps screens.Deps) *HomeScreen {
	h := &HomeScreen{deps: deps}
	h.menu = components.NewMenu(h.items())
	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.load()
}

// Refresh reloads goals and stories after a reading or practice.
func (h *HomeScreen) Refresh() tea.Cmd {
	return h.load()
}

func (h *HomeScreen) load() tea.Cmd {
	deps := h.deps
	return func() tea.Msg {
		ctx := context.Background()
		stories, err := deps.Stories.List(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		var child *dashboard.Child
		if deps.Dashboard != nil {
			// Goals are decoration; the menu still works without them.
			child, _ = deps.Dashboard.Child(ctx, deps.UserID, deps.Clock())
		}
		return loadedMsg{stories: stories, child: child}
	}
}

func (h *HomeScreen) items() []components.MenuItem {
	deps := h.deps
	items := make([]components.MenuItem, 0, len(h.stories)+3)
	for i := range h.stories {
		st := &h.stories[i]
		items = append(items, components.MenuItem{
			Label:  st.Title,
			Detail: fmt.Sprintf("%d words · ~%d min", st.WordCount, max(1, st.ReadingTime)),
			Action: func() tea.Cmd { return router.Push(reader.New(deps, st)) },
		})
	}
	items = append(items,
		components.MenuItem{
			Label:  "Math practice",
			Action: func() tea.Cmd { return router.Push(practice.New(deps, nil)) },
		},
		components.MenuItem{
			Label:  "My history",
			Action: func() tea.Cmd { return router.Push(history.New(deps)) },
		},
		components.MenuItem{
			Label:  "Quit",
			Action: func() tea.Cmd { return tea.Quit },
		},
	)
	return items
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if msg, ok := msg.(loadedMsg); ok {
		h.loaded = true
		h.err = msg.err
		if msg.err == nil {
			h.stories, h.child = msg.stories, msg.child
		}
		selected := h.menu.Selected
		h.menu = components.NewMenu(h.items())
		if selected < len(h.menu.Items) {
			h.menu.Selected = selected
		}
		return h, nil
	}

	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) Title() string {
	return "Home"
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (h *HomeScreen) View(width, height int) string {
	cw := min(width-4, 64)
	var sections []string

	greeting := "Hello!"
	if h.child != nil && h.child.User != nil {
		greeting = fmt.Sprintf("Hello, %s!", h.child.User.DisplayName)
	}
	sections = append(sections, theme.Title.Width(cw).Render(greeting))

	if height >= 24 {
		sections = append(sections, lipgloss.PlaceHorizontal(cw, lipgloss.Center, RenderMascot(mascotFor(h.child))))
	}
	if h.child != nil {
		sections = append(sections, renderGoals(h.child.TodayGoals, cw))
	}

	switch {
	case !h.loaded:
		sections = append(sections, theme.Hint.Render("Loading stories..."))
	case h.err != nil:
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.Error).Render("Could not load stories: "+h.err.Error()))
	case len(h.stories) == 0:
		sections = append(sections, theme.Hint.Render("No stories yet. Import one with `vibekids story import`."))
	}
	sections = append(sections, theme.Card.Width(cw).Render(strings.TrimRight(h.menu.View(), "\n")))

	return lipgloss.PlaceHorizontal(width, lipgloss.Center, strings.Join(sections, "\n\n"))
}

func renderGoals(g dashboard.Goals, width int) string {
	bar := max(20, width-16)
	reading := components.NewProgressBar("Reading", ratio(g.ReadingMinutes, g.TargetReadingMinutes), false, bar)
	maths := components.NewProgressBar("Math   ", ratio(g.MathProblems, g.TargetMathProblems), false, bar)

	return theme.Hint.Render("Today") + "\n" +
		fmt.Sprintf("%s %d/%d min\n", reading.View(), g.ReadingMinutes, g.TargetReadingMinutes) +
		fmt.Sprintf("%s %d/%d", maths.View(), g.MathProblems, g.TargetMathProblems)
}

func ratio(n, target int) float64 {
	if target <= 0 {
		return 1
	}
	return min(1, float64(n)/float64(target))
}
