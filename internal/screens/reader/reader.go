// Package reader is the screen where a child reads a story word by word.
package reader

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/abhisek/vibekids/internal/parse"
	"github.com/abhisek/vibekids/internal/quiz"
	"github.com/abhisek/vibekids/internal/reading"
	"github.com/abhisek/vibekids/internal/router"
	"github.com/abhisek/vibekids/internal/screen"
	"github.com/abhisek/vibekids/internal/screens"
	quizscreen "github.com/abhisek/vibekids/internal/screens/quiz"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/tutor"
	"github.com/abhisek/vibekids/internal/ui/components"
	"github.com/abhisek/vibekids/internal/ui/layout"
	"github.com/abhisek/vibekids/internal/ui/theme"
	"github.com/abhisek/vibekids/internal/vibe"
)

// VibeEvery is how often the reader re-checks the child's vibe while
// nothing else happens.
const VibeEvery = 15 * time.Second

const speedStep = 0.25

// tickMsg advances auto-play. Ticks from an older epoch are dropped.
type tickMsg struct{ epoch uint64 }

type vibeTickMsg struct{}

type sessionStartedMsg struct {
	session *store.Session
	err     error
}

type replyMsg struct {
	exchange *tutor.ChatExchange
	err      error
}

// Screen shows one story and drives a reading.Tracker from key presses
// and ticks.
type Screen struct {
	deps    screens.Deps
	story   *store.Story
	tracker *reading.Tracker
	logger  *zap.Logger

	checkpointer *reading.StoreCheckpointer
	// attempt is the quiz for the section on screen. The tracker resets it
	// whenever the section changes.
	attempt *quiz.Attempt

	session    *store.Session
	started    time.Time
	lastActive time.Time
	vibe       vibe.State

	asking   bool
	question components.TextInput
	waiting  bool
	reply    string
	status   string
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.VibeProvider    = (*Screen)(nil)
	_ screen.Finisher        = (*Screen)(nil)
	_ screen.Modal           = (*Screen)(nil)
)

// New creates a reader for story. Progress is saved through the deps'
// reading progress repository once the session starts.
func New(deps screens.Deps, story *store.Story) *Screen {
	s := &Screen{deps: deps, story: story, logger: zap.L(), vibe: vibe.Neutral}
	s.checkpointer = &reading.StoreCheckpointer{
		Repo:     deps.ReadingProgress,
		UserID:   deps.UserID,
		Accuracy: 100,
		Now:      deps.Clock,
	}
	s.tracker = reading.NewTracker(deps.Reading, s.checkpointer, s.logger)
	s.tracker.LoadStory(reading.DocumentFromStory(story))
	s.attempt = quiz.NewAttempt(s.tracker.Epoch())
	s.tracker.OnReset(s.attempt.Reset)
	return s
}

// Quiz exposes the quiz attempt for the current section.
func (s *Screen) Quiz() *quiz.Attempt {
	return s.attempt
}

// Tracker exposes the reading state machine.
func (s *Screen) Tracker() *reading.Tracker {
	return s.tracker
}

func (s *Screen) Init() tea.Cmd {
	deps := s.deps
	start := deps.Clock()
	s.started, s.lastActive = start, start
	return tea.Batch(
		func() tea.Msg {
			sess := &store.Session{UserID: deps.UserID, Type: store.SessionReading, StartedAt: start}
			err := deps.Sessions.Create(context.Background(), sess)
			return sessionStartedMsg{session: sess, err: err}
		},
		vibeTick(),
	)
}

func (s *Screen) Title() string {
	return s.story.Title
}

func (s *Screen) Vibe() string {
	return string(s.vibe)
}

func (s *Screen) InModal() bool {
	return s.asking
}

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.asking {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Ask"},
			{Key: "Esc", Description: "Cancel"},
		}
	}
	hints := []layout.KeyHint{
		{Key: "Space", Description: "Play/Pause"},
		{Key: "c", Description: "Cursor"},
		{Key: "[ ]", Description: "Skip"},
		{Key: "+/-", Description: "Speed"},
		{Key: "a", Description: "Ask"},
	}
	if len(s.story.Sections) > 1 {
		hints = append(hints, layout.KeyHint{Key: "n/p", Description: "Section"})
	}
	if s.tracker.SectionComplete() {
		hints = append(hints, layout.KeyHint{Key: "q", Description: "Quiz"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionStartedMsg:
		if msg.err != nil {
			s.logger.Warn("start reading session", zap.Error(msg.err))
			return s, nil
		}
		s.session = msg.session
		s.checkpointer.SessionID = msg.session.ID
		return s, nil

	case tickMsg:
		if msg.epoch != s.tracker.Epoch() {
			return s, nil
		}
		if s.tracker.Tick(context.Background()) {
			s.lastActive = s.deps.Clock()
		}
		s.observe()
		if s.tracker.Snapshot().State == reading.AutoPlaying {
			return s, s.tick()
		}
		return s, nil

	case vibeTickMsg:
		s.observe()
		return s, vibeTick()

	case replyMsg:
		s.waiting = false
		if msg.err != nil {
			s.logger.Warn("ask reading buddy", zap.Error(msg.err))
			s.status = parse.ChatApology
			return s, nil
		}
		s.reply = msg.exchange.AssistantMessage.Content
		return s, nil

	case tea.KeyMsg:
		if s.asking {
			return s.handleAskKey(msg)
		}
		return s.handleKey(msg)
	}

	if s.asking {
		var cmd tea.Cmd
		s.question, cmd = s.question.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	s.lastActive = s.deps.Clock()
	s.status = ""
	t := s.tracker
	ctx := context.Background()

	switch msg.String() {
	case "space", " ":
		if t.Snapshot().State == reading.CursorTracking {
			t.EnterAutoMode()
		}
		if t.TogglePlay() {
			s.observe()
			return s, s.tick()
		}
	case "c":
		if t.Snapshot().State == reading.CursorTracking {
			t.EnterAutoMode()
		} else {
			t.EnterCursorMode()
			t.Hover(ctx, max(0, t.Snapshot().Index-1))
		}
	case "right", "l":
		if snap := t.Snapshot(); snap.State == reading.CursorTracking {
			t.Hover(ctx, snap.Hover+1)
		}
	case "left", "h":
		if snap := t.Snapshot(); snap.State == reading.CursorTracking {
			t.Hover(ctx, snap.Hover-1)
		}
	case "[":
		t.SkipBack()
	case "]":
		t.SkipForward()
	case "+", "=":
		t.SetSpeed(t.Snapshot().Speed + speedStep)
	case "-":
		t.SetSpeed(t.Snapshot().Speed - speedStep)
	case "n":
		s.switchSection(t.Snapshot().Section + 1)
	case "p":
		s.switchSection(t.Snapshot().Section - 1)
	case "a":
		s.asking = true
		s.question = components.NewTextInput("Ask about the story...", false, tutor.MaxMessageLength)
		return s, s.question.Init()
	case "q":
		if t.SectionComplete() {
			return s, router.Push(quizscreen.New(s.deps, s.story.ID, s.story.Title, s.sectionIndex(), s.attempt))
		}
		s.status = "Finish reading to unlock the quiz!"
	}
	s.observe()
	return s, nil
}

func (s *Screen) switchSection(i int) {
	if err := s.tracker.SwitchSection(i); err != nil {
		return
	}
	s.reply = ""
}

func (s *Screen) sectionIndex() *int {
	if len(s.story.Sections) == 0 {
		return nil
	}
	i := s.tracker.Snapshot().Section
	return &i
}

func (s *Screen) handleAskKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		s.asking = false
		return s, nil
	case "enter":
		text := strings.TrimSpace(s.question.Value())
		if text == "" {
			return s, nil
		}
		s.asking, s.waiting, s.reply = false, true, ""
		pos := s.tracker.Snapshot().Index
		req := tutor.ChatRequest{
			UserID:          s.deps.UserID,
			StoryID:         s.story.ID,
			Message:         text,
			CurrentPosition: &pos,
			Section:         s.sectionIndex(),
		}
		svc := s.deps.Tutor
		return s, func() tea.Msg {
			ex, err := svc.SendChatMessage(context.Background(), req)
			return replyMsg{exchange: ex, err: err}
		}
	}
	var cmd tea.Cmd
	s.question, cmd = s.question.Update(msg)
	return s, cmd
}

// observe re-derives the vibe and records it when it changed.
func (s *Screen) observe() {
	snap := s.tracker.Snapshot()
	idle := s.deps.Clock().Sub(s.lastActive)
	next := vibe.FromReading(snap.Progress()*100, snap.State == reading.AutoPlaying, idle)
	if next == s.vibe {
		return
	}
	s.vibe = next
	if s.session == nil || s.deps.Recorder == nil {
		return
	}
	if _, err := s.deps.Recorder.Record(context.Background(), s.deps.UserID, s.session.ID, next, ""); err != nil {
		s.logger.Warn("record vibe", zap.Error(err))
	}
}

func (s *Screen) tick() tea.Cmd {
	epoch := s.tracker.Epoch()
	return tea.Tick(s.tracker.Interval(), func(time.Time) tea.Msg {
		return tickMsg{epoch: epoch}
	})
}

func vibeTick() tea.Cmd {
	return tea.Tick(VibeEvery, func(time.Time) tea.Msg { return vibeTickMsg{} })
}

// Finish closes the reading session.
func (s *Screen) Finish() {
	s.tracker.Pause()
	if s.session == nil {
		return
	}
	now := s.deps.Clock()
	s.session.EndedAt = &now
	s.session.Duration = int(now.Sub(s.started).Minutes())
	s.session.Completed = s.tracker.SectionComplete()
	if err := s.deps.Sessions.Update(context.Background(), s.session); err != nil {
		s.logger.Warn("end reading session", zap.Error(err))
	}
}

func (s *Screen) View(width, height int) string {
	snap := s.tracker.Snapshot()
	_, sec := s.tracker.Section()
	textWidth := min(width-6, 76)

	var b strings.Builder
	if len(s.story.Sections) > 1 {
		b.WriteString(theme.Hint.Render(fmt.Sprintf("  %s  (%d/%d)", sec.Title, snap.Section+1, len(s.story.Sections))))
		b.WriteString("\n")
	}
	bar := components.NewProgressBar(fmt.Sprintf("%s ×%.2f", modeLabel(snap.State), snap.Speed), snap.Progress(), true, textWidth)
	b.WriteString("  " + bar.View())
	b.WriteString("\n\n")

	pageRows := max(3, height-12)
	text := renderWords(s.tracker.Words(), snap, textWidth, pageRows)
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, lipgloss.NewStyle().Width(textWidth).Render(text)))
	b.WriteString("\n\n")

	switch {
	case s.asking:
		b.WriteString("  Question: " + s.question.View())
	case s.waiting:
		b.WriteString(theme.Hint.Render("  Thinking..."))
	case s.reply != "":
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Width(textWidth).Render("  " + s.reply))
	case s.status != "":
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).Render("  " + s.status))
	case s.tracker.SectionComplete():
		b.WriteString(theme.Correct.Render("  Great reading! Press q for the quiz."))
	}
	return b.String()
}

func modeLabel(st reading.State) string {
	switch st {
	case reading.AutoPlaying:
		return "▶ Playing"
	case reading.CursorTracking:
		return "☞ Cursor"
	default:
		return "❚❚ Paused"
	}
}

// renderWords styles the page of words holding the reading position:
// read words dim, the next word highlighted.
func renderWords(words []string, snap reading.Snapshot, width, rows int) string {
	if len(words) == 0 {
		return ""
	}
	perPage := max(1, (width/6)*rows)
	pos := min(snap.Index, len(words)-1)
	start := (pos / perPage) * perPage
	end := min(len(words), start+perPage)

	styled := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		style := theme.WordAhead
		switch {
		case snap.State == reading.CursorTracking && i == snap.Hover:
			style = theme.WordHover
		case snap.State != reading.CursorTracking && i == snap.Index:
			style = theme.WordCurrent
		case i < snap.Index:
			style = theme.WordRead
		}
		styled = append(styled, style.Render(words[i]))
	}
	return strings.Join(styled, " ")
}
