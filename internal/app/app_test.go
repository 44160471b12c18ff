package app

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/vibekids/internal/router"
	"github.com/abhisek/vibekids/internal/screen"
)

type stubScreen struct {
	title    string
	modal    bool
	finished int
	keys     int
}

func (s *stubScreen) Init() tea.Cmd { return nil }
func (s *stubScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		s.keys++
	}
	return s, nil
}
func (s *stubScreen) View(int, int) string { return s.title }
func (s *stubScreen) Title() string        { return s.title }
func (s *stubScreen) Finish()              { s.finished++ }
func (s *stubScreen) InModal() bool        { return s.modal }
func (s *stubScreen) Vibe() string         { return "happy" }

func newModel(screens ...*stubScreen) AppModel {
	m := AppModel{router: router.New(screens[0])}
	for _, s := range screens[1:] {
		m.router.Push(s)
	}
	return m
}

func esc() tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: tea.KeyEscape}
}

func TestEscPopsAndFinishes(t *testing.T) {
	bottom, top := &stubScreen{title: "home"}, &stubScreen{title: "reader"}
	m := newModel(bottom, top)

	_, cmd := m.Update(esc())
	if cmd == nil {
		t.Fatal("expected a pop command")
	}
	m.Update(cmd())

	if m.router.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", m.router.Depth())
	}
	if top.finished != 1 {
		t.Errorf("expected the popped screen to finish once, got %d", top.finished)
	}
	if bottom.finished != 0 {
		t.Error("expected the home screen to stay open")
	}
}

func TestEscGoesToModalScreen(t *testing.T) {
	bottom, top := &stubScreen{title: "home"}, &stubScreen{title: "reader", modal: true}
	m := newModel(bottom, top)

	m.Update(esc())

	if m.router.Depth() != 2 {
		t.Errorf("expected the modal screen to stay, got depth %d", m.router.Depth())
	}
	if top.keys != 1 {
		t.Errorf("expected Esc to reach the screen, got %d keys", top.keys)
	}
}

func TestEscAtHomeDoesNothing(t *testing.T) {
	home := &stubScreen{title: "home"}
	m := newModel(home)

	_, cmd := m.Update(esc())
	if cmd != nil || m.router.Depth() != 1 {
		t.Error("expected Esc on the home screen to be ignored")
	}
}

func TestCtrlCFinishesEveryScreen(t *testing.T) {
	a, b, c := &stubScreen{title: "home"}, &stubScreen{title: "reader"}, &stubScreen{title: "quiz"}
	m := newModel(a, b, c)

	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.Quit")
	}
	for _, s := range []*stubScreen{a, b, c} {
		if s.finished != 1 {
			t.Errorf("%s finished %d times", s.title, s.finished)
		}
	}
}

func TestStreakMsgSetsHeader(t *testing.T) {
	m := newModel(&stubScreen{title: "home"})
	updated, _ := m.Update(streakMsg(4))
	m = updated.(AppModel)
	updated, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(AppModel)

	if m.streak != 4 {
		t.Errorf("expected streak 4, got %d", m.streak)
	}
	m.View()
}
