// Package practice is the math practice screen.
package practice

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/abhisek/vibekids/internal/apperr"
	"github.com/abhisek/vibekids/internal/mathpractice"
	"github.com/abhisek/vibekids/internal/router"
	"github.com/abhisek/vibekids/internal/screen"
	"github.com/abhisek/vibekids/internal/screens"
	"github.com/abhisek/vibekids/internal/screens/summary"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/tutor"
	"github.com/abhisek/vibekids/internal/ui/components"
	"github.com/abhisek/vibekids/internal/ui/layout"
	"github.com/abhisek/vibekids/internal/ui/theme"
	"github.com/abhisek/vibekids/internal/vibe"
)

type readyMsg struct {
	practice *mathpractice.Practice
	session  *store.Session
	err      error
}

type feedbackMsg struct {
	text string
}

// Screen serves problems one at a time and saves the tally on exit.
type Screen struct {
	deps   screens.Deps
	rng    *rand.Rand
	logger *zap.Logger

	practice *mathpractice.Practice
	base     mathpractice.Stats
	session  *store.Session
	started  time.Time
	err      error

	input    components.TextInput
	outcome  *mathpractice.Outcome
	feedback string
	showHint bool
	finished bool
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.VibeProvider    = (*Screen)(nil)
	_ screen.Finisher        = (*Screen)(nil)
)

// New creates a practice screen. A nil rng uses a random seed.
func New(deps screens.Deps, rng *rand.Rand) *Screen {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Screen{deps: deps, rng: rng, logger: zap.L()}
}

// Init resumes from the child's latest progress and opens a math session.
func (s *Screen) Init() tea.Cmd {
	deps, rng := s.deps, s.rng
	s.started = deps.Clock()
	start := s.started
	return func() tea.Msg {
		ctx := context.Background()
		history, err := deps.MathProgress.ListByUser(ctx, deps.UserID)
		if err != nil {
			return readyMsg{err: err}
		}
		p := mathpractice.NewPractice(mathpractice.MinLevel, rng)
		if len(history) > 0 {
			p = mathpractice.Resume(history[0], rng)
		}
		sess := &store.Session{UserID: deps.UserID, Type: store.SessionMath, StartedAt: start}
		if err := deps.Sessions.Create(ctx, sess); err != nil {
			return readyMsg{err: err}
		}
		return readyMsg{practice: p, session: sess}
	}
}

func (s *Screen) Title() string {
	return "Math Practice"
}

func (s *Screen) Vibe() string {
	if s.practice == nil {
		return ""
	}
	return string(s.practice.Stats().Vibe())
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.outcome != nil {
		return []layout.KeyHint{
			{Key: "any key", Description: "Next problem"},
			{Key: "d", Description: "Done"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Check"},
		{Key: "?", Description: "Hint"},
		{Key: "d", Description: "Done"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case readyMsg:
		if msg.err != nil {
			s.err = msg.err
			return s, nil
		}
		s.practice, s.session = msg.practice, msg.session
		s.base = msg.practice.Stats()
		return s, s.newInput()

	case feedbackMsg:
		s.feedback = msg.text
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.practice != nil && s.outcome == nil {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *Screen) newInput() tea.Cmd {
	s.input = components.NewTextInput("?", true, 6)
	s.outcome, s.feedback, s.showHint = nil, "", false
	return s.input.Init()
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.practice == nil {
		return s, nil
	}
	if msg.String() == "d" {
		return s, s.done()
	}
	if s.outcome != nil {
		return s, s.newInput()
	}

	switch msg.String() {
	case "?":
		s.showHint = true
		return s, nil
	case "enter":
		return s.check()
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *Screen) check() (screen.Screen, tea.Cmd) {
	prob := s.practice.Current()
	given := strings.TrimSpace(s.input.Value())
	out, err := s.practice.Answer(given)
	if apperr.IsValidation(err) {
		return s, nil
	}
	if err != nil {
		s.err = err
		return s, nil
	}
	s.input.Submit(out.Correct)
	s.outcome = &out

	if s.deps.Recorder != nil && s.session != nil {
		if _, err := s.deps.Recorder.Record(context.Background(), s.deps.UserID, s.session.ID, s.practice.Stats().Vibe(), ""); err != nil {
			s.logger.Warn("record vibe", zap.Error(err))
		}
	}

	svc := s.deps.Tutor
	req := tutor.MathFeedbackRequest{
		Problem:       prob.String(),
		UserAnswer:    given,
		CorrectAnswer: fmt.Sprint(prob.Answer),
		IsCorrect:     out.Correct,
	}
	return s, func() tea.Msg {
		text, err := svc.MathFeedback(context.Background(), req)
		if err != nil {
			return feedbackMsg{}
		}
		return feedbackMsg{text: text}
	}
}

// done saves the practice and swaps this screen for its recap.
func (s *Screen) done() tea.Cmd {
	s.Finish()
	now := s.deps.Clock()
	st := s.practice.Stats()
	return router.Replace(summary.New(summary.Practice{
		Duration:    now.Sub(s.started),
		Attempted:   st.Attempted - s.base.Attempted,
		Correct:     st.Correct - s.base.Correct,
		LevelBefore: s.base.Level,
		LevelAfter:  st.Level,
		BestStreak:  st.BestStreak,
		Vibe:        st.Vibe(),
	}))
}

// Finish saves the tally and closes the session. It runs once.
func (s *Screen) Finish() {
	if s.finished || s.practice == nil || s.session == nil {
		return
	}
	s.finished = true
	ctx := context.Background()
	now := s.deps.Clock()

	s.session.EndedAt = &now
	s.session.Duration = int(now.Sub(s.started).Minutes())
	s.session.Completed = true
	if err := s.deps.Sessions.Update(ctx, s.session); err != nil {
		s.logger.Warn("end math session", zap.Error(err))
	}

	snap := s.practice.Snapshot(s.deps.UserID, s.session.ID)
	snap.UpdatedAt = now
	if err := s.deps.MathProgress.Create(ctx, &snap); err != nil {
		s.logger.Warn("save math progress", zap.Error(err))
	}
}

func (s *Screen) View(width, height int) string {
	if s.err != nil {
		return layout.Centered(lipgloss.NewStyle().Foreground(theme.Error), width,
			fmt.Sprintf("\n\n\nSomething went wrong: %v\n\nPress Esc to go back.", s.err))
	}
	if s.practice == nil {
		return layout.Centered(theme.Hint, width, "\n\n\nGetting your problems ready...")
	}

	stats := s.practice.Stats()
	var b strings.Builder
	b.WriteString(theme.Hint.Render(fmt.Sprintf("  Level %d   ✓ %d/%d   streak %d   best %d",
		stats.Level, stats.Correct, stats.Attempted, stats.Streak, stats.BestStreak)))
	b.WriteString("\n\n\n")

	prob := s.practice.Current()
	if s.outcome != nil {
		prob = s.outcome.Problem
	}
	big := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	b.WriteString(layout.Centered(big, width, prob.String()+" = "))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, s.input.View()))
	b.WriteString("\n\n")

	switch {
	case s.outcome != nil:
		b.WriteString(s.renderOutcome(width))
	case s.showHint:
		b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.Secondary), width, "Hint: "+prob.Hint()))
	}
	return b.String()
}

func (s *Screen) renderOutcome(width int) string {
	out := s.outcome
	var b strings.Builder
	if out.Correct {
		b.WriteString(layout.Centered(theme.Correct, width, "Correct!"))
	} else {
		b.WriteString(layout.Centered(theme.Incorrect, width, fmt.Sprintf("Not quite. It's %d.", out.Problem.Answer)))
	}
	b.WriteString("\n")
	if out.LeveledUp {
		b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.Accent).Bold(true), width,
			fmt.Sprintf("Level up! Welcome to level %d.", s.practice.Stats().Level)))
		b.WriteString("\n")
	}
	if s.feedback != "" {
		b.WriteString("\n")
		b.WriteString(layout.Centered(theme.Body, width, s.feedback))
	}
	if st := s.practice.Stats().Vibe(); st == vibe.Happy {
		b.WriteString("\n\n")
		b.WriteString(layout.Centered(lipgloss.NewStyle().Foreground(theme.VibeColor(st)), width, "You're on fire!"))
	}
	return b.String()
}
