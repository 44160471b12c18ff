package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/vibekids/internal/apperr"
	"github.com/abhisek/vibekids/internal/llm"
	"github.com/abhisek/vibekids/internal/parse"
	"github.com/abhisek/vibekids/internal/prompts"
	"github.com/abhisek/vibekids/internal/store"
	"go.uber.org/zap"
)

// UnknownStoryTitle labels history entries whose story no longer exists.
const UnknownStoryTitle = "Unknown Story"

// Config controls quiz generation.
type Config struct {
	// QuestionCount is the number of questions per quiz.
	QuestionCount int
	MaxTokens     int
	Temperature   float64
}

// DefaultConfig returns the stock quiz settings.
func DefaultConfig() Config {
	return Config{QuestionCount: 3, MaxTokens: 1024, Temperature: 0.7}
}

// Service runs the quiz lifecycle against the store and the model.
type Service struct {
	stories  store.StoryRepo
	quizzes  store.QuizRepo
	provider llm.Provider
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a quiz service.
func NewService(stories store.StoryRepo, quizzes store.QuizRepo, provider llm.Provider, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = DefaultConfig().QuestionCount
	}
	return &Service{
		stories:  stories,
		quizzes:  quizzes,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GenerateInput identifies the story (and optional section) to quiz on.
type GenerateInput struct {
	UserID  string
	StoryID string
	Section *int
	// Fresh skips any pending quiz and always generates a new question set.
	Fresh bool
}

// Generated is a persisted quiz ready to be answered.
type Generated struct {
	QuizID    string           `json:"quizId"`
	Questions []PublicQuestion `json:"questions"`
	// Reused is true when a pending quiz was returned instead of a new one.
	Reused bool `json:"-"`
}

// Generate returns a quiz for the input. The quiz is stored before it is
// returned so answers are always checked against stored questions.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*Generated, error) {
	if in.UserID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}

	story, err := s.stories.Get(ctx, in.StoryID)
	if err != nil {
		return nil, fmt.Errorf("load story %s: %w", in.StoryID, err)
	}

	title, content := story.Title, story.Content
	if in.Section != nil {
		i := *in.Section
		if i < 0 || i >= len(story.Sections) {
			return nil, apperr.Invalid("section", "story has no section %d", i)
		}
		title, content = story.Sections[i].Title, story.Sections[i].Content
	}

	if !in.Fresh {
		pending, err := s.quizzes.FindPending(ctx, in.UserID, in.StoryID, in.Section)
		switch {
		case err == nil:
			return &Generated{QuizID: pending.ID, Questions: Public(pending.Questions), Reused: true}, nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("find pending quiz: %w", err)
		}
	}

	questions := s.generateQuestions(ctx, title, content)

	q := &store.Quiz{
		UserID:    in.UserID,
		StoryID:   in.StoryID,
		Section:   in.Section,
		Questions: questions,
		CreatedAt: s.now(),
	}
	if err := s.quizzes.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("store quiz: %w", err)
	}

	s.logger.Info("quiz generated",
		zap.String("quiz", q.ID),
		zap.String("user", in.UserID),
		zap.String("story", in.StoryID),
		zap.Int("questions", len(questions)),
	)
	return &Generated{QuizID: q.ID, Questions: Public(questions)}, nil
}

func (s *Service) generateQuestions(ctx context.Context, title, content string) []store.QuizQuestion {
	ctx = llm.WithPurpose(ctx, "quiz")

	req := prompts.Quiz(title, content, s.cfg.QuestionCount).Request()
	req.MaxTokens = s.cfg.MaxTokens
	req.Temperature = s.cfg.Temperature

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		s.logger.Warn("quiz generation failed, using fallback questions", zap.Error(err))
		return parse.FallbackQuiz()
	}
	return parse.QuizQuestions(resp.Text(), s.cfg.QuestionCount)
}

// Result is the outcome of a submitted quiz.
type Result struct {
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	Passed         bool   `json:"passed"`
	Feedback       string `json:"feedback"`
	CorrectAnswers []int  `json:"correctAnswers"`
}

// Submit scores answers against the stored quiz and records the result in
// one update. A quiz can be submitted once.
func (s *Service) Submit(ctx context.Context, quizID string, answers []int) (*Result, error) {
	q, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	if q.CompletedAt != nil {
		return nil, store.ErrAlreadyCompleted
	}

	total := q.TotalQuestions()
	if len(answers) != total {
		return nil, apperr.Invalid("answers", "expected %d answers, got %d", total, len(answers))
	}
	for i, a := range answers {
		if a < 0 || a > 3 {
			return nil, apperr.Invalid("answers", "answer %d must be between 0 and 3", i+1)
		}
	}

	score := Score(q.Questions, answers)
	passed := Passed(score, total)

	title := UnknownStoryTitle
	if story, err := s.stories.Get(ctx, q.StoryID); err == nil {
		title = story.Title
	}
	feedback := s.feedback(ctx, title, score, total, passed, Missed(q.Questions, answers))

	err = s.quizzes.Complete(ctx, quizID, store.QuizResult{
		Answers:     answers,
		Score:       score,
		Passed:      passed,
		Feedback:    feedback,
		CompletedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("complete quiz %s: %w", quizID, err)
	}

	s.logger.Info("quiz submitted",
		zap.String("quiz", quizID),
		zap.Int("score", score),
		zap.Int("total", total),
		zap.Bool("passed", passed),
	)
	return &Result{
		Score:          score,
		TotalQuestions: total,
		Passed:         passed,
		Feedback:       feedback,
		CorrectAnswers: CorrectAnswers(q.Questions),
	}, nil
}

func (s *Service) feedback(ctx context.Context, title string, score, total int, passed bool, missed []string) string {
	canned := parse.QuizFeedbackFail
	if passed {
		canned = parse.QuizFeedbackPass
	}

	ctx = llm.WithPurpose(ctx, "quiz-feedback")
	req := prompts.QuizFeedback(title, score, total, passed, missed).Request()
	req.MaxTokens = 256
	req.Temperature = s.cfg.Temperature

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		s.logger.Warn("quiz feedback failed, using canned text", zap.Error(err))
		return canned
	}
	return parse.Text(resp.Text(), canned)
}

// HistoryEntry is a completed quiz joined with its story title.
type HistoryEntry struct {
	QuizID         string    `json:"quizId"`
	StoryID        string    `json:"storyId"`
	StoryTitle     string    `json:"storyTitle"`
	Section        *int      `json:"section,omitempty"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Passed         bool      `json:"passed"`
	CompletedAt    time.Time `json:"completedAt"`
}

// History lists a user's completed quizzes, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]HistoryEntry, error) {
	quizzes, err := s.quizzes.ListCompleted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}

	titles := make(map[string]string)
	out := make([]HistoryEntry, 0, len(quizzes))
	for _, q := range quizzes {
		if q.CompletedAt == nil {
			continue
		}
		title, ok := titles[q.StoryID]
		if !ok {
			title = UnknownStoryTitle
			story, err := s.stories.Get(ctx, q.StoryID)
			switch {
			case err == nil:
				title = story.Title
			case !errors.Is(err, store.ErrNotFound):
				return nil, fmt.Errorf("load story %s: %w", q.StoryID, err)
			}
			titles[q.StoryID] = title
		}

		e := HistoryEntry{
			QuizID:         q.ID,
			StoryID:        q.StoryID,
			StoryTitle:     title,
			Section:        q.Section,
			TotalQuestions: q.TotalQuestions(),
			CompletedAt:    *q.CompletedAt,
		}
		if q.Score != nil {
			e.Score = *q.Score
		}
		if q.Passed != nil {
			e.Passed = *q.Passed
		}
		out = append(out, e)
	}
	return out, nil
}
