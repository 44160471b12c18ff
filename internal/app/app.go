// Package app is the root of the terminal UI.
package app

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/router"
	"github.com/abhisek/vibekids/internal/screen"
	"github.com/abhisek/vibekids/internal/screens"
	"github.com/abhisek/vibekids/internal/screens/home"
	"github.com/abhisek/vibekids/internal/screens/welcome"
	"github.com/abhisek/vibekids/internal/ui/layout"
	"github.com/abhisek/vibekids/internal/vibe"
)

type streakMsg int

// AppModel is the root Bubble Tea model.
type AppModel struct {
	deps   screens.Deps
	router *router.Router
	width  int
	height int
	streak int
}

func newAppModel(deps screens.Deps) AppModel {
	return AppModel{
		deps:   deps,
		router: router.New(welcome.New(func() screen.Screen { return home.New(deps) })),
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.router.Active().Init(), m.loadStreak())
}

func (m AppModel) loadStreak() tea.Cmd {
	deps := m.deps
	if deps.Dashboard == nil {
		return nil
	}
	return func() tea.Msg {
		c, err := deps.Dashboard.Child(context.Background(), deps.UserID, deps.Clock())
		if err != nil {
			return nil
		}
		return streakMsg(c.CurrentStreak)
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case streakMsg:
		m.streak = int(msg)
		return m, nil

	case router.PopScreenMsg:
		m.finishActive()
		return m, tea.Batch(m.router.Update(msg), m.loadStreak())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.finishAll()
			return m, tea.Quit
		case "esc":
			if md, ok := m.router.Active().(screen.Modal); ok && md.InModal() {
				break
			}
			if m.router.Depth() > 1 {
				return m, router.Pop()
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) finishActive() {
	if m.router.Depth() <= 1 {
		return
	}
	if f, ok := m.router.Active().(screen.Finisher); ok {
		f.Finish()
	}
}

// finishAll saves every open screen, top first.
func (m AppModel) finishAll() {
	for m.router.Depth() > 1 {
		m.finishActive()
		m.router.Pop()
	}
	if f, ok := m.router.Active().(screen.Finisher); ok {
		f.Finish()
	}
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	h := layout.Header{Title: active.Title(), Streak: m.streak}
	if vp, ok := active.(screen.VibeProvider); ok {
		h.Vibe = vibe.State(vp.Vibe())
	}
	header := layout.RenderHeader(h, m.width)
	footer := layout.RenderFooter(m.footerHints(active), m.width)

	contentHeight := max(0, m.height-lipgloss.Height(header)-lipgloss.Height(footer))
	content := m.router.View(m.width, contentHeight)

	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

func (m AppModel) footerHints(active screen.Screen) []layout.KeyHint {
	if kp, ok := active.(screen.KeyHintProvider); ok {
		if hints := kp.KeyHints(); len(hints) > 0 {
			return hints
		}
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

// Run starts the terminal UI for deps.UserID and blocks until it exits.
func Run(deps screens.Deps) error {
	p := tea.NewProgram(newAppModel(deps))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
