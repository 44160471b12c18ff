package history

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/vibekids/internal/dashboard"
	"github.com/abhisek/vibekids/internal/screens"
	"github.com/abhisek/vibekids/internal/store"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newHistory(t *testing.T, seed bool) *HistoryScreen {
	t.Helper()
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	if seed {
		if _, err := st.Seed(context.Background(), now); err != nil {
			t.Fatal(err)
		}
	}
	s := New(screens.Deps{
		UserID:   store.DemoChildID,
		Sessions: st.Sessions(),
		Vibes:    st.Vibes(),
		Dashboard: dashboard.NewService(dashboard.Repos{
			Users: st.Users(), Sessions: st.Sessions(), Reading: st.ReadingProgress(),
			Math: st.MathProgress(), Vibes: st.Vibes(), Quizzes: st.Quizzes(),
		}, nil),
		Now: func() time.Time { return now },
	})
	s.Update(s.Init()())
	return s
}

func TestListsSessionsNewestFirst(t *testing.T) {
	s := newHistory(t, true)

	if len(s.sessions) != 5 {
		t.Fatalf("expected 5 sessions, got %d", len(s.sessions))
	}
	if s.sessions[0].ID != "session-0" {
		t.Errorf("expected the newest session first, got %s", s.sessions[0].ID)
	}
	view := s.View(80, 30)
	if !strings.Contains(view, "Reading") || !strings.Contains(view, "Math") {
		t.Error("expected both session kinds in the view")
	}
}

func TestEnterShowsVibeTrail(t *testing.T) {
	s := newHistory(t, true)

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected the vibes to load")
	}
	s.Update(cmd())

	view := s.View(100, 30)
	for _, want := range []string{"Focused", "Happy", "Confused"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in the vibe trail", want)
		}
	}

	// Collapsing and expanding again reuses the loaded vibes.
	s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if _, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter}); cmd != nil {
		t.Error("expected no second load")
	}
}

func TestSessionWithoutVibes(t *testing.T) {
	s := newHistory(t, true)
	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	s.Update(cmd())

	if !strings.Contains(s.View(100, 30), "No vibes recorded") {
		t.Error("expected the empty trail message")
	}
}

func TestEmptyHistory(t *testing.T) {
	s := newHistory(t, false)

	if !strings.Contains(s.View(80, 30), "No sessions yet") {
		t.Error("expected the empty message")
	}
	if _, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter}); cmd != nil {
		t.Error("expected Enter to do nothing without sessions")
	}
}
