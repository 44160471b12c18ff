// Package quiz is the screen that asks a story's comprehension questions.
package quiz

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	quizsvc "github.com/abhisek/vibekids/internal/quiz"
	"github.com/abhisek/vibekids/internal/router"
	"github.com/abhisek/vibekids/internal/screen"
	"github.com/abhisek/vibekids/internal/screens"
	"github.com/abhisek/vibekids/internal/ui/components"
	"github.com/abhisek/vibekids/internal/ui/layout"
	"github.com/abhisek/vibekids/internal/ui/theme"
)

const (
	notReadyText   = "Oops! Your quiz isn't ready yet."
	notCheckedText = "Oops! I couldn't check your answers."
)

type generatedMsg struct {
	token quizsvc.Token
	quiz  *quizsvc.Generated
	err   error
}

type scoredMsg struct {
	token  quizsvc.Token
	result *quizsvc.Result
	err    error
}

// Screen shows the quiz held by a quiz.Attempt, from generation to the
// score. The attempt outlives the screen so the reader can reset it when
// the child moves to another section.
type Screen struct {
	deps    screens.Deps
	storyID string
	title   string
	section *int
	attempt *quizsvc.Attempt

	questions []components.MultiChoice
	current   int
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates a quiz screen for a story, or one of its sections. A nil
// attempt starts a new one.
func New(deps screens.Deps, storyID, title string, section *int, attempt *quizsvc.Attempt) *Screen {
	if attempt == nil {
		attempt = quizsvc.NewAttempt(0)
	}
	return &Screen{deps: deps, storyID: storyID, title: title, section: section, attempt: attempt}
}

func (s *Screen) Init() tea.Cmd {
	snap := s.attempt.Snapshot()
	switch snap.Phase {
	case quizsvc.NotStarted:
		return s.generate()
	case quizsvc.Generating, quizsvc.Submitting:
		// The screen that made the request is gone, and so is its reply.
		s.attempt.Reset(snap.Epoch)
		return s.generate()
	}
	s.load(snap)
	return nil
}

// load rebuilds the question widgets from the attempt.
func (s *Screen) load(snap quizsvc.AttemptSnapshot) {
	s.questions = make([]components.MultiChoice, len(snap.Questions))
	s.current = 0
	for i, q := range snap.Questions {
		mc := components.NewMultiChoice(q.Question, q.Options)
		if i < len(snap.Answers) && snap.Answers[i] >= 0 {
			mc.Selected, mc.Chosen = snap.Answers[i], snap.Answers[i]
		}
		if snap.Result != nil && i < len(snap.Result.CorrectAnswers) {
			mc.Reveal(snap.Result.CorrectAnswers[i])
		}
		s.questions[i] = mc
	}
	for s.current < len(s.questions)-1 && s.questions[s.current].Submitted() {
		s.current++
	}
}

// generate asks for a quiz. After a failed quiz it asks for a fresh one.
func (s *Screen) generate() tea.Cmd {
	in := quizsvc.GenerateInput{UserID: s.deps.UserID, StoryID: s.storyID, Section: s.section}
	var tok quizsvc.Token
	var err error
	if s.attempt.Snapshot().Phase == quizsvc.FailedPhase {
		tok, err = s.attempt.Retry()
		in.Fresh = true
	} else {
		tok, err = s.attempt.Start()
	}
	if err != nil {
		return nil
	}
	svc := s.deps.Quiz
	return func() tea.Msg {
		g, err := svc.Generate(context.Background(), in)
		return generatedMsg{token: tok, quiz: g, err: err}
	}
}

func (s *Screen) submit() tea.Cmd {
	tok, quizID, answers, err := s.attempt.BeginSubmit()
	if err != nil {
		return nil
	}
	svc := s.deps.Quiz
	return func() tea.Msg {
		res, err := svc.Submit(context.Background(), quizID, answers)
		return scoredMsg{token: tok, result: res, err: err}
	}
}

func (s *Screen) Title() string {
	return "Quiz: " + s.title
}

func (s *Screen) KeyHints() []layout.KeyHint {
	snap := s.attempt.Snapshot()
	switch snap.Phase {
	case quizsvc.NotStarted:
		if snap.Err != nil {
			return []layout.KeyHint{{Key: "r", Description: "Try again"}, {Key: "Esc", Description: "Back"}}
		}
	case quizsvc.Answering:
		if snap.Err != nil {
			return []layout.KeyHint{{Key: "Enter", Description: "Check again"}, {Key: "Esc", Description: "Back"}}
		}
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Choose"},
			{Key: "1-4/Enter", Description: "Answer"},
			{Key: "Esc", Description: "Back"},
		}
	case quizsvc.PassedPhase:
		return []layout.KeyHint{{Key: "any key", Description: "Done"}}
	case quizsvc.FailedPhase:
		return []layout.KeyHint{{Key: "r", Description: "New quiz"}, {Key: "any key", Description: "Done"}}
	}
	return nil
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case generatedMsg:
		if msg.err != nil {
			s.attempt.GenerateFailed(msg.token, msg.err)
			return s, nil
		}
		if s.attempt.ApplyGenerated(msg.token, msg.quiz) {
			s.load(s.attempt.Snapshot())
		}
		return s, nil

	case scoredMsg:
		if msg.err != nil {
			s.attempt.SubmitFailed(msg.token, msg.err)
			return s, nil
		}
		if s.attempt.ApplyScored(msg.token, msg.result) {
			s.load(s.attempt.Snapshot())
		}
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	snap := s.attempt.Snapshot()
	switch snap.Phase {
	case quizsvc.NotStarted:
		if msg.String() == "r" {
			return s, s.generate()
		}
		return s, nil
	case quizsvc.PassedPhase:
		return s, router.Pop()
	case quizsvc.FailedPhase:
		if msg.String() == "r" {
			s.questions = nil
			return s, s.generate()
		}
		return s, router.Pop()
	case quizsvc.Answering:
	default:
		return s, nil
	}

	if snap.Err != nil {
		// Every answer is in; only the check failed.
		if msg.String() == "enter" {
			return s, s.submit()
		}
		return s, nil
	}

	q, cmd := s.questions[s.current].Update(msg)
	s.questions[s.current] = q
	if !q.Submitted() {
		return s, cmd
	}
	if err := s.attempt.Select(s.current, q.Chosen); err != nil {
		return s, cmd
	}
	if s.current < len(s.questions)-1 {
		s.current++
		return s, cmd
	}
	if !s.attempt.CanSubmit() {
		return s, cmd
	}
	return s, tea.Batch(cmd, s.submit())
}

func (s *Screen) View(width, height int) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	oops := lipgloss.NewStyle().Foreground(theme.Accent)
	snap := s.attempt.Snapshot()

	switch snap.Phase {
	case quizsvc.NotStarted:
		if snap.Err != nil {
			return layout.Centered(oops, width, "\n\n\n"+notReadyText+"\n\nPress r to try again.")
		}
		return ""
	case quizsvc.Generating:
		return layout.Centered(dim, width, "\n\n\nMaking your quiz...")
	case quizsvc.Submitting:
		return layout.Centered(dim, width, "\n\n\nChecking your answers...")
	case quizsvc.PassedPhase, quizsvc.FailedPhase:
		return s.renderResult(width, snap.Result)
	}

	if len(s.questions) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(theme.Hint.Render(fmt.Sprintf("  Question %d of %d", s.current+1, len(s.questions))))
	b.WriteString("\n\n")
	card := theme.Card.Width(min(width-4, 72)).Render(s.questions[s.current].View())
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, card))
	if snap.Err != nil {
		b.WriteString("\n\n")
		b.WriteString(layout.Centered(oops, width, notCheckedText+" Press Enter to try again."))
	}
	return b.String()
}

func (s *Screen) renderResult(width int, r *quizsvc.Result) string {
	headline := theme.Correct.Render(fmt.Sprintf("You got %d of %d!", r.Score, r.TotalQuestions))
	if !r.Passed {
		headline = lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).
			Render(fmt.Sprintf("You got %d of %d. Let's read it again!", r.Score, r.TotalQuestions))
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, headline))
	b.WriteString("\n\n")
	b.WriteString(layout.Centered(theme.Body, width, r.Feedback))
	b.WriteString("\n\n")
	for _, q := range s.questions {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			lipgloss.NewStyle().Width(min(width-4, 72)).Render(q.View())))
		b.WriteString("\n")
	}
	if !r.Passed {
		b.WriteString("\n")
		b.WriteString(layout.Centered(theme.Hint, width, "Press r for a new quiz."))
	}
	return b.String()
}
