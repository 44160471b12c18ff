package welcome

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/vibekids/internal/router"
	"github.com/abhisek/vibekids/internal/screen"
)

// stubScreen is a minimal screen implementation for testing.
type stubScreen struct{}

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return "home" }
func (s *stubScreen) Title() string                           { return "Home" }

func newTestWelcome() (*WelcomeScreen, *int) {
	calls := 0
	return New(func() screen.Screen {
		calls++
		return &stubScreen{}
	}), &calls
}

func sendTicks(w *WelcomeScreen, n int) tea.Cmd {
	var cmd tea.Cmd
	for range n {
		_, cmd = w.Update(tickMsg(time.Now()))
	}
	return cmd
}

func TestPhaseTransitions(t *testing.T) {
	w, _ := newTestWelcome()

	if strings.Contains(w.View(80, 30), "one step at a time") {
		t.Error("tagline should not be visible at start")
	}

	sendTicks(w, 4)
	if w.elapsed != sparkleAt {
		t.Errorf("expected elapsed %v, got %v", sparkleAt, w.elapsed)
	}

	sendTicks(w, 8)
	view := w.View(80, 30)
	if !strings.Contains(view, "one step at a time") {
		t.Error("tagline should be visible once the banner shows")
	}
	if strings.Contains(view, "press any key") {
		t.Error("start hint should wait for the animation to finish")
	}

	sendTicks(w, 8)
	if !w.Ready() {
		t.Fatal("expected the animation to be finished")
	}
	if !strings.Contains(w.View(80, 30), "press any key") {
		t.Error("expected the start hint")
	}
}

func TestFirstKeySkipsAnimation(t *testing.T) {
	w, calls := newTestWelcome()
	sendTicks(w, 3)

	_, cmd := w.Update(tea.KeyPressMsg{Code: ' '})
	if cmd != nil {
		t.Error("a key during the animation should only skip it")
	}
	if !w.Ready() {
		t.Error("expected the animation to jump to the end")
	}
	if *calls != 0 {
		t.Errorf("next screen built too early: %d calls", *calls)
	}
}

func TestKeyAfterAnimationReplaces(t *testing.T) {
	w, calls := newTestWelcome()
	sendTicks(w, 30)

	_, cmd := w.Update(tea.KeyPressMsg{Code: ' '})
	if cmd == nil {
		t.Fatal("expected a command from keypress after animation")
	}
	msg, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("expected ReplaceScreenMsg, got %T", cmd())
	}
	if msg.Screen == nil {
		t.Error("replace screen should not be nil")
	}
	if *calls != 1 {
		t.Errorf("next should be called once, got %d", *calls)
	}
}

func TestNoAutoTransition(t *testing.T) {
	w, calls := newTestWelcome()

	sendTicks(w, 45)
	if *calls != 0 {
		t.Errorf("next should not be called without keypress, got %d", *calls)
	}
	if w.elapsed != readyAt {
		t.Errorf("expected elapsed capped at %v, got %v", readyAt, w.elapsed)
	}
}

func TestTransitionHappensOnce(t *testing.T) {
	w, calls := newTestWelcome()
	sendTicks(w, 30)
	w.Update(tea.KeyPressMsg{Code: 'a'})

	_, cmd := w.Update(tea.KeyPressMsg{Code: 'b'})
	if cmd != nil {
		t.Error("second keypress should not produce a command")
	}
	if *calls != 1 {
		t.Errorf("next should be called exactly once, got %d", *calls)
	}
	if cmd := sendTicks(w, 1); cmd != nil {
		t.Error("ticks should stop after the transition")
	}
}

func TestBannerFallsBackWhenNarrow(t *testing.T) {
	if got := RenderBanner(40); !strings.Contains(got, "V I B E K I D S") {
		t.Errorf("expected the compact banner, got %q", got)
	}
	if got := RenderBanner(100); strings.Contains(got, "V I B E K I D S") {
		t.Error("expected the block banner on a wide terminal")
	}
}
