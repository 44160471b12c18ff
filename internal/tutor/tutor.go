// Package tutor answers a child's questions while they read and gives
// feedback on math answers.
package tutor

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abhisek/vibekids/internal/apperr"
	"github.com/abhisek/vibekids/internal/llm"
	"github.com/abhisek/vibekids/internal/parse"
	"github.com/abhisek/vibekids/internal/prompts"
	"github.com/abhisek/vibekids/internal/reading"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	// MaxMessageLength is the longest chat message accepted, in characters.
	MaxMessageLength = 500
	// MaxProblemLength is the longest math problem accepted, in characters.
	MaxProblemLength = 100
)

// Service is the reading buddy.
type Service struct {
	stories  store.StoryRepo
	chat     store.ChatRepo
	provider llm.Provider
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a tutor service.
func NewService(stories store.StoryRepo, chat store.ChatRepo, provider llm.Provider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		stories:  stories,
		chat:     chat,
		provider: provider,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ChatRequest is a child's question about a story.
type ChatRequest struct {
	UserID          string `json:"userId"`
	StoryID         string `json:"storyId"`
	Message         string `json:"message"`
	CurrentPosition *int   `json:"currentPosition,omitempty"`
	// Section is the part of a sectioned story being read. CurrentPosition
	// then counts words within that section.
	Section *int `json:"section,omitempty"`
}

// ChatExchange is the stored question and the stored reply.
type ChatExchange struct {
	UserMessage      *store.ChatMessage `json:"userMessage"`
	AssistantMessage *store.ChatMessage `json:"assistantMessage"`
}

// SendChatMessage stores the child's message, asks the model for a reply
// and stores that too. Model failures become a friendly apology.
func (s *Service) SendChatMessage(ctx context.Context, req ChatRequest) (*ChatExchange, error) {
	switch {
	case req.UserID == "":
		return nil, apperr.Invalid("userId", "is required")
	case req.StoryID == "":
		return nil, apperr.Invalid("storyId", "is required")
	case strings.TrimSpace(req.Message) == "":
		return nil, apperr.Invalid("message", "is required")
	case utf8.RuneCountInString(req.Message) > MaxMessageLength:
		return nil, apperr.Invalid("message", "must be at most %d characters", MaxMessageLength)
	}

	story, err := s.stories.Get(ctx, req.StoryID)
	if err != nil {
		return nil, fmt.Errorf("load story %s: %w", req.StoryID, err)
	}
	title, content, err := storyText(story, req.Section)
	if err != nil {
		return nil, err
	}

	userMsg := &store.ChatMessage{
		UserID:    req.UserID,
		StoryID:   req.StoryID,
		Role:      store.ChatUser,
		Content:   req.Message,
		CreatedAt: s.now(),
	}
	if err := s.chat.Append(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("store chat message: %w", err)
	}

	history, err := s.chat.List(ctx, req.UserID, req.StoryID)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	// The new message is the prompt's question, not part of its history.
	history = lo.Filter(history, func(m store.ChatMessage, _ int) bool { return m.ID != userMsg.ID })

	reply := s.reply(ctx, prompts.ChatInput{
		StoryTitle:   title,
		StoryContent: content,
		Position:     req.CurrentPosition,
		History:      toTurns(history),
		Message:      req.Message,
	})

	assistantMsg := &store.ChatMessage{
		UserID:    req.UserID,
		StoryID:   req.StoryID,
		Role:      store.ChatAssistant,
		Content:   reply,
		CreatedAt: s.now(),
	}
	if err := s.chat.Append(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("store chat reply: %w", err)
	}

	return &ChatExchange{UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}

func (s *Service) reply(ctx context.Context, in prompts.ChatInput) string {
	ctx = llm.WithPurpose(ctx, "chat")
	req := prompts.ChatReply(in).Request()
	req.MaxTokens = 300
	req.Temperature = 0.7

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		s.logger.Warn("chat reply failed", zap.Error(err))
		return parse.ChatApology
	}
	return parse.Text(resp.Text(), parse.ChatUnsure)
}

// AskRequest is a one-off question answered without storing anything.
type AskRequest struct {
	Story    *store.Story
	Section  *int
	Position *int
	History  []prompts.Turn
	Message  string
}

// Ask answers a single question with the short legacy prompt and stores
// nothing.
func (s *Service) Ask(ctx context.Context, req AskRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", apperr.Invalid("message", "is required")
	}
	title, content, err := storyText(req.Story, req.Section)
	if err != nil {
		return "", err
	}

	ctx = llm.WithPurpose(ctx, "chat")
	p := prompts.LegacyChatReply(prompts.ChatInput{
		StoryTitle:   title,
		StoryContent: content,
		Position:     req.Position,
		History:      req.History,
		Message:      req.Message,
	}).Request()
	p.MaxTokens = 300

	resp, err := s.provider.Generate(ctx, p)
	if err != nil {
		s.logger.Warn("chat reply failed", zap.Error(err))
		return parse.ChatApology, nil
	}
	return parse.Text(resp.Text(), parse.ChatUnsure), nil
}

// storyText picks the title and text a reading position refers to: the
// whole story, or one of its sections.
func storyText(story *store.Story, section *int) (string, string, error) {
	if section == nil || len(story.Sections) == 0 {
		return story.Title, story.Content, nil
	}
	i := *section
	if i < 0 || i >= len(story.Sections) {
		return "", "", apperr.Invalid("section", "must be between 0 and %d", len(story.Sections)-1)
	}
	sec := story.Sections[i]
	title := story.Title
	if sec.Title != "" && sec.Title != story.Title {
		title = story.Title + ": " + sec.Title
	}
	return title, sec.Content, nil
}

// ToTurns converts stored chat messages into prompt history.
func ToTurns(msgs []store.ChatMessage) []prompts.Turn {
	return toTurns(msgs)
}

func toTurns(msgs []store.ChatMessage) []prompts.Turn {
	return lo.Map(msgs, func(m store.ChatMessage, _ int) prompts.Turn {
		return prompts.Turn{Role: string(m.Role), Content: m.Content}
	})
}

// History returns the conversation about a story in order.
func (s *Service) History(ctx context.Context, userID, storyID string) ([]store.ChatMessage, error) {
	msgs, err := s.chat.List(ctx, userID, storyID)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return msgs, nil
}

// ClearHistory deletes the conversation about a story.
func (s *Service) ClearHistory(ctx context.Context, userID, storyID string) error {
	if err := s.chat.Clear(ctx, userID, storyID); err != nil {
		return fmt.Errorf("clear chat history: %w", err)
	}
	return nil
}

// Suggest returns one short line encouraging the child at position.
func (s *Service) Suggest(ctx context.Context, storyID string, position int) (string, error) {
	story, err := s.stories.Get(ctx, storyID)
	if err != nil {
		return "", fmt.Errorf("load story %s: %w", storyID, err)
	}

	words := reading.Words(story.Content)
	pct := 0
	if len(words) > 0 {
		pct = max(0, min(position, len(words))) * 100 / len(words)
	}
	excerpt := reading.Window(words, position, prompts.WindowRadius)

	ctx = llm.WithPurpose(ctx, "suggestion")
	req := prompts.Suggestion(pct, excerpt).Request()
	req.MaxTokens = 60
	req.Temperature = 0.9

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		s.logger.Warn("suggestion failed", zap.Error(err))
		return parse.SuggestionDefault, nil
	}
	return parse.Text(resp.Text(), parse.SuggestionDefault), nil
}

// MathFeedbackRequest is a checked math answer.
type MathFeedbackRequest struct {
	Problem       string `json:"problem"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
}

// MathFeedback returns a short comment on a math answer.
func (s *Service) MathFeedback(ctx context.Context, req MathFeedbackRequest) (string, error) {
	n := utf8.RuneCountInString(req.Problem)
	if n == 0 || n > MaxProblemLength {
		return "", apperr.Invalid("problem", "must be 1 to %d characters", MaxProblemLength)
	}

	canned := parse.MathFeedbackIncorrect
	if req.IsCorrect {
		canned = parse.MathFeedbackCorrect
	}

	ctx = llm.WithPurpose(ctx, "math-feedback")
	p := prompts.MathFeedback(req.Problem, req.UserAnswer, req.CorrectAnswer, req.IsCorrect).Request()
	p.MaxTokens = 200
	p.Temperature = 0.7

	resp, err := s.provider.Generate(ctx, p)
	if err != nil {
		s.logger.Warn("math feedback failed", zap.Error(err))
		return canned, nil
	}
	return parse.Text(resp.Text(), canned), nil
}
