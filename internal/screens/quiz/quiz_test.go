package quiz

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/vibekids/internal/llm"
	quizsvc "github.com/abhisek/vibekids/internal/quiz"
	"github.com/abhisek/vibekids/internal/router"
	"github.com/abhisek/vibekids/internal/screens"
	"github.com/abhisek/vibekids/internal/store"
)

const quizJSON = `[
 {"question":"Who is Finn?","options":["a fox","a frog","a bird","a bear"],"correctAnswer":0},
 {"question":"What color is Finn?","options":["blue","orange","green","white"],"correctAnswer":1},
 {"question":"Where did Finn go?","options":["school","the moon","the rainbow pond","a castle"],"correctAnswer":2}
]`

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

// drain runs cmd and returns every message it produces, unpacking batches.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func run(s *Screen, cmd tea.Cmd) {
	for _, msg := range drain(cmd) {
		s.Update(msg)
	}
}

func phase(s *Screen) quizsvc.Phase {
	return s.attempt.Snapshot().Phase
}

func newDeps(t *testing.T, mock *llm.MockProvider) screens.Deps {
	t.Helper()
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if _, err := st.Seed(context.Background(), now); err != nil {
		t.Fatal(err)
	}
	return screens.Deps{
		UserID:  store.DemoChildID,
		Stories: st.Stories(),
		Quiz:    quizsvc.NewService(st.Stories(), st.Quizzes(), mock, quizsvc.DefaultConfig(), nil),
		Now:     func() time.Time { return now },
	}
}

func TestQuizAnswerAndScore(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText(quizJSON)
	s := New(newDeps(t, mock), store.DemoStoryID, "The Brave Little Fox", nil, nil)

	run(s, s.Init())
	if phase(s) != quizsvc.Answering {
		t.Fatalf("expected answering, got %v (err %v)", phase(s), s.attempt.Snapshot().Err)
	}
	if len(s.questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(s.questions))
	}

	var last tea.Cmd
	for _, r := range "123" {
		_, last = s.Update(keyPress(r))
	}
	if phase(s) != quizsvc.Submitting {
		t.Fatalf("expected submitting, got %v", phase(s))
	}
	run(s, last)

	res := s.attempt.Snapshot().Result
	if phase(s) != quizsvc.PassedPhase || res.Score != 3 {
		t.Fatalf("expected a passing 3/3, got %v %+v", phase(s), res)
	}
	if !strings.Contains(s.View(80, 30), "You got 3 of 3!") {
		t.Error("expected the score in the result view")
	}

	_, cmd := s.Update(keyPress('x'))
	msgs := drain(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(router.PopScreenMsg); !ok {
		t.Errorf("expected the result to pop on any key, got %T", msgs[0])
	}
}

func TestQuizTwoOfThreeFails(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText(quizJSON)
	s := New(newDeps(t, mock), store.DemoStoryID, "The Brave Little Fox", nil, nil)
	run(s, s.Init())

	var last tea.Cmd
	for _, r := range "124" {
		_, last = s.Update(keyPress(r))
	}
	run(s, last)

	res := s.attempt.Snapshot().Result
	if phase(s) != quizsvc.FailedPhase || res.Score != 2 {
		t.Errorf("expected a failing 2/3, got %v %+v", phase(s), res)
	}
}

func TestQuizRetryAfterFailGetsFreshQuiz(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText(quizJSON)
	mock.AddText("Let's read it once more!")
	mock.AddText(quizJSON)
	s := New(newDeps(t, mock), store.DemoStoryID, "The Brave Little Fox", nil, nil)
	run(s, s.Init())
	first := s.attempt.Snapshot().QuizID

	var last tea.Cmd
	for _, r := range "444" {
		_, last = s.Update(keyPress(r))
	}
	run(s, last)
	if phase(s) != quizsvc.FailedPhase {
		t.Fatalf("expected failed, got %v", phase(s))
	}
	if !strings.Contains(s.View(80, 40), "Press r for a new quiz") {
		t.Error("expected the retry hint")
	}

	_, cmd := s.Update(keyPress('r'))
	if phase(s) != quizsvc.Generating {
		t.Fatalf("expected generating, got %v", phase(s))
	}
	run(s, cmd)

	snap := s.attempt.Snapshot()
	if snap.Phase != quizsvc.Answering || snap.QuizID == first {
		t.Errorf("expected a new quiz to answer, got %v %q", snap.Phase, snap.QuizID)
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected generate, feedback and a second generate, got %d calls", mock.CallCount())
	}
}

func TestQuizKeysIgnoredWhileLoading(t *testing.T) {
	s := New(newDeps(t, llm.NewMockProvider()), store.DemoStoryID, "The Brave Little Fox", nil, nil)
	s.Init()

	_, cmd := s.Update(keyPress('1'))
	if cmd != nil {
		t.Error("expected no command while loading")
	}
	if !strings.Contains(s.View(80, 30), "Making your quiz") {
		t.Error("expected the loading view")
	}
}

func TestQuizDropsStaleGeneration(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText(quizJSON)
	attempt := quizsvc.NewAttempt(1)
	s := New(newDeps(t, mock), store.DemoStoryID, "The Brave Little Fox", nil, attempt)

	cmd := s.Init()
	attempt.Reset(2)
	run(s, cmd)

	if phase(s) != quizsvc.NotStarted || len(s.questions) != 0 {
		t.Errorf("expected the old quiz to be dropped, got %v with %d questions", phase(s), len(s.questions))
	}
}

func TestQuizGenerateFailureOffersRetry(t *testing.T) {
	s := New(newDeps(t, llm.NewMockProvider()), "no-such-story", "Missing", nil, nil)
	run(s, s.Init())

	view := s.View(80, 30)
	if !strings.Contains(view, notReadyText) || !strings.Contains(view, "Press r") {
		t.Errorf("expected the friendly failure view, got %q", view)
	}
	if strings.Contains(view, "not found") {
		t.Error("raw errors must not reach the child")
	}

	_, cmd := s.Update(keyPress('x'))
	if cmd != nil {
		t.Error("only r retries")
	}
	_, cmd = s.Update(keyPress('r'))
	if cmd == nil || phase(s) != quizsvc.Generating {
		t.Fatalf("expected a new generation, got %v", phase(s))
	}
}

func TestQuizSubmitFailureKeepsAnswers(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText(quizJSON)
	deps := newDeps(t, mock)
	s := New(deps, store.DemoStoryID, "The Brave Little Fox", nil, nil)
	run(s, s.Init())

	// The same quiz completed elsewhere cannot be completed again.
	if _, err := deps.Quiz.Submit(context.Background(), s.attempt.Snapshot().QuizID, []int{0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	var last tea.Cmd
	for _, r := range "123" {
		_, last = s.Update(keyPress(r))
	}
	run(s, last)

	snap := s.attempt.Snapshot()
	if snap.Phase != quizsvc.Answering || snap.Err == nil {
		t.Fatalf("expected to be answering again, got %v", snap.Phase)
	}
	if snap.Answers[2] != 2 {
		t.Errorf("expected the answers to be kept, got %v", snap.Answers)
	}
	view := s.View(80, 30)
	if !strings.Contains(view, notCheckedText) || strings.Contains(view, "already") {
		t.Errorf("expected a friendly message, got %q", view)
	}

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil || phase(s) != quizsvc.Submitting {
		t.Errorf("expected Enter to check again, got %v", phase(s))
	}
}

func TestQuizResumesAttempt(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText(quizJSON)
	deps := newDeps(t, mock)
	attempt := quizsvc.NewAttempt(1)
	s := New(deps, store.DemoStoryID, "The Brave Little Fox", nil, attempt)
	run(s, s.Init())
	s.Update(keyPress('1'))

	again := New(deps, store.DemoStoryID, "The Brave Little Fox", nil, attempt)
	if cmd := again.Init(); cmd != nil {
		t.Error("expected the open quiz to be reused without a request")
	}
	if again.current != 1 || !again.questions[0].Submitted() {
		t.Errorf("expected to resume at question 2, got %d", again.current+1)
	}
}
