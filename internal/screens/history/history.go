// Package history lists the child's past sessions and achievements.
package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/screen"
	"github.com/abhisek/vibekids/internal/screens"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/ui/layout"
	"github.com/abhisek/vibekids/internal/ui/theme"
	"github.com/abhisek/vibekids/internal/vibe"
)

// Limit caps how many sessions are listed.
const Limit = 30

type historyLoadedMsg struct {
	sessions     []store.Session
	achievements []string
	err          error
}

type vibesLoadedMsg struct {
	sessionID string
	vibes     []store.VibeState
}

// HistoryScreen shows sessions newest first. Enter expands a session to
// its vibe trail.
type HistoryScreen struct {
	deps         screens.Deps
	sessions     []store.Session
	achievements []string
	vibes        map[string][]store.VibeState
	selected     int
	expanded     map[int]bool
	loaded       bool
	errMsg       string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

func New(deps screens.Deps) *HistoryScreen {
	return &HistoryScreen{
		deps:     deps,
		vibes:    make(map[string][]store.VibeState),
		expanded: make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	deps := s.deps
	return func() tea.Msg {
		ctx := context.Background()
		sessions, err := deps.Sessions.ListByUser(ctx, deps.UserID)
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		if len(sessions) > Limit {
			sessions = sessions[:Limit]
		}
		var achievements []string
		if deps.Dashboard != nil {
			if c, err := deps.Dashboard.Child(ctx, deps.UserID, deps.Clock()); err == nil {
				achievements = c.RecentAchievements
			}
		}
		return historyLoadedMsg{sessions: sessions, achievements: achievements}
	}
}

func (s *HistoryScreen) Title() string {
	return "My History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Vibes"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.err != nil {
			s.errMsg = msg.err.Error()
		} else {
			s.sessions = msg.sessions
			s.achievements = msg.achievements
		}
		s.loaded = true
		return s, nil

	case vibesLoadedMsg:
		s.vibes[msg.sessionID] = msg.vibes
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.sessions)-1 {
				s.selected++
			}
		case "enter":
			if len(s.sessions) == 0 {
				return s, nil
			}
			s.expanded[s.selected] = !s.expanded[s.selected]
			if s.expanded[s.selected] {
				return s, s.loadVibes(s.sessions[s.selected].ID)
			}
		}
	}
	return s, nil
}

func (s *HistoryScreen) loadVibes(sessionID string) tea.Cmd {
	if _, ok := s.vibes[sessionID]; ok || s.deps.Vibes == nil {
		return nil
	}
	repo := s.deps.Vibes
	return func() tea.Msg {
		vs, err := repo.ListBySession(context.Background(), sessionID)
		if err != nil {
			vs = nil
		}
		return vibesLoadedMsg{sessionID: sessionID, vibes: vs}
	}
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return layout.Centered(lipgloss.NewStyle().Foreground(theme.Error), width, "\n\nError: "+s.errMsg)
	}
	if !s.loaded {
		return layout.Centered(lipgloss.NewStyle().Foreground(theme.TextDim), width, "\n\n  Loading history...")
	}

	var b strings.Builder
	b.WriteString("\n")
	for _, a := range s.achievements {
		b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.Warning), width, "★ "+a))
		b.WriteString("\n")
	}
	if len(s.achievements) > 0 {
		b.WriteString("\n")
	}

	if len(s.sessions) == 0 {
		b.WriteString(layout.Centered(theme.Hint, width, "No sessions yet. Pick a story to start!"))
		return b.String()
	}

	for i, sess := range s.sessions {
		prefix := "  "
		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			prefix = "> "
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(prefix+sessionLine(sess))))
		b.WriteString("\n")

		if s.expanded[i] {
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.vibeTrail(sess.ID)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func sessionLine(sess store.Session) string {
	kind := "Reading"
	if sess.Type == store.SessionMath {
		kind = "Math   "
	}
	done := " "
	if sess.Completed {
		done = "✓"
	}
	return fmt.Sprintf("%s  %s  %3d min  %s", sess.StartedAt.Format("Jan 02 15:04"), kind, sess.Duration, done)
}

func (s *HistoryScreen) vibeTrail(sessionID string) string {
	vs, ok := s.vibes[sessionID]
	dim := lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true)
	switch {
	case !ok:
		return dim.Render("    ...")
	case len(vs) == 0:
		return dim.Render("    No vibes recorded")
	}
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		st := vibe.State(v.State)
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.VibeColor(st)).Render(st.Label()))
	}
	return "    " + strings.Join(parts, dim.Render(" → "))
}
