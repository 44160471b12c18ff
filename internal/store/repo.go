package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyCompleted is returned when a quiz that already has a result
// is completed again.
var ErrAlreadyCompleted = errors.New("quiz already completed")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Purpose string    // only events with this purpose, when set
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
}

// Role distinguishes the two kinds of accounts.
type Role string

const (
	RoleChild  Role = "child"
	RoleParent Role = "parent"
)

// User is a child learner or a parent viewing the dashboards.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	ParentID    string    `json:"parentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StorySection is one page-sized part of a longer uploaded document.
type StorySection struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"wordCount"`
}

// Story is a readable text, optionally split into sections.
type Story struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Sections    []StorySection `json:"sections,omitempty"`
	Difficulty  int            `json:"difficulty"`
	WordCount   int            `json:"wordCount"`
	ReadingTime int            `json:"readingTime"` // minutes
	CreatedAt   time.Time      `json:"createdAt"`
}

// SessionType is the activity a session was spent on.
type SessionType string

const (
	SessionReading SessionType = "reading"
	SessionMath    SessionType = "math"
)

// Session is one sitting of reading or math practice.
type Session struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Type      SessionType `json:"type"`
	StartedAt time.Time   `json:"startTime"`
	EndedAt   *time.Time  `json:"endTime,omitempty"`
	Duration  int         `json:"duration"` // minutes
	Completed bool        `json:"completed"`
}

// ReadingProgress is the checkpointed position of a user within a story.
type ReadingProgress struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	StoryID         string    `json:"storyId"`
	SessionID       string    `json:"sessionId,omitempty"`
	WordsRead       int       `json:"wordsRead"`
	CurrentPosition int       `json:"currentPosition"`
	Completed       bool      `json:"completed"`
	Accuracy        int       `json:"accuracy"` // percent
	UpdatedAt       time.Time `json:"updatedAt"`
}

// MathProgress is the running tally of a user's math practice.
type MathProgress struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	SessionID         string    `json:"sessionId,omitempty"`
	ProblemsAttempted int       `json:"problemsAttempted"`
	ProblemsCorrect   int       `json:"problemsCorrect"`
	CurrentLevel      int       `json:"currentLevel"`
	Streak            int       `json:"streak"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// VibeState is one recorded engagement observation.
type VibeState struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	SessionID  string    `json:"sessionId,omitempty"`
	State      string    `json:"vibe"`
	Notes      string    `json:"notes,omitempty"`
	RecordedAt time.Time `json:"timestamp"`
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatUser      ChatRole = "user"
	ChatAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of the reading-buddy conversation about a story.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	StoryID   string    `json:"storyId"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// QuizQuestion is a stored multiple-choice question.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// Quiz is a generated question set and, once submitted, its result.
// A nil CompletedAt means the quiz is still pending.
type Quiz struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	StoryID     string         `json:"storyId"`
	Section     *int           `json:"section,omitempty"`
	Questions   []QuizQuestion `json:"questions"`
	Answers     []int          `json:"answers,omitempty"`
	Score       *int           `json:"score,omitempty"`
	Passed      *bool          `json:"passed,omitempty"`
	Feedback    string         `json:"feedback,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// TotalQuestions is the size of the question set.
func (q *Quiz) TotalQuestions() int { return len(q.Questions) }

// QuizResult is the terminal update applied to a quiz on submission.
type QuizResult struct {
	Answers     []int
	Score       int
	Passed      bool
	Feedback    string
	CompletedAt time.Time
}

// UserRepo reads user accounts.
type UserRepo interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// StoryRepo stores readable texts.
type StoryRepo interface {
	Create(ctx context.Context, s *Story) error
	Get(ctx context.Context, id string) (*Story, error)
	List(ctx context.Context) ([]Story, error)
}

// SessionRepo stores reading and math sittings.
type SessionRepo interface {
	Create(ctx context.Context, s *Session) error
	Update(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// ListByUser returns the user's sessions, newest first.
	ListByUser(ctx context.Context, userID string) ([]Session, error)
}

// ReadingProgressRepo stores checkpointed reading positions.
type ReadingProgressRepo interface {
	Create(ctx context.Context, p *ReadingProgress) error
	Update(ctx context.Context, p *ReadingProgress) error
	Get(ctx context.Context, id string) (*ReadingProgress, error)
	// Find returns the progress record for a (user, story) pair.
	Find(ctx context.Context, userID, storyID string) (*ReadingProgress, error)
	ListByUser(ctx context.Context, userID string) ([]ReadingProgress, error)
}

// MathProgressRepo stores math practice tallies.
type MathProgressRepo interface {
	Create(ctx context.Context, p *MathProgress) error
	Update(ctx context.Context, p *MathProgress) error
	Get(ctx context.Context, id string) (*MathProgress, error)
	ListByUser(ctx context.Context, userID string) ([]MathProgress, error)
}

// VibeRepo appends engagement observations. Records are never mutated.
type VibeRepo interface {
	Append(ctx context.Context, v *VibeState) error
	// ListByUser returns the user's vibes, newest first.
	ListByUser(ctx context.Context, userID string) ([]VibeState, error)
	// ListBySession returns a session's vibes in recording order.
	ListBySession(ctx context.Context, sessionID string) ([]VibeState, error)
}

// ChatRepo stores the per-story conversation.
type ChatRepo interface {
	Append(ctx context.Context, m *ChatMessage) error
	// List returns the conversation in chronological order.
	List(ctx context.Context, userID, storyID string) ([]ChatMessage, error)
	Clear(ctx context.Context, userID, storyID string) error
}

// QuizRepo stores generated quizzes and their results.
type QuizRepo interface {
	Create(ctx context.Context, q *Quiz) error
	Get(ctx context.Context, id string) (*Quiz, error)
	// FindPending returns the newest incomplete quiz for the given user,
	// story and section, or ErrNotFound.
	FindPending(ctx context.Context, userID, storyID string, section *int) (*Quiz, error)
	// Complete applies the result in a single update. It returns
	// ErrAlreadyCompleted if the quiz already has a result.
	Complete(ctx context.Context, id string, res QuizResult) error
	// ListCompleted returns completed quizzes only, newest first.
	ListCompleted(ctx context.Context, userID string) ([]Quiz, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string

	// Attempt is the 1-based try on Model within a gateway call, or 0
	// when the request did not go through the gateway.
	Attempt int
	// Fallback is set when Model is not the model the call started on.
	Fallback bool
	// RateLimited is set when the model turned the request away.
	RateLimited bool
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates token usage for a purpose or model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// GatewayUsage summarizes how the gateway served one purpose.
type GatewayUsage struct {
	Purpose     string
	Attempts    int // requests sent to any model
	Answered    int // attempts that returned a response
	ByFallback  int // answered attempts on a fallback model
	RateLimited int // attempts a model turned away
	Failed      int // other failed attempts
}

// FallbackShare is the fraction of answers that came from a fallback model.
func (u GatewayUsage) FallbackShare() float64 {
	if u.Answered == 0 {
		return 0
	}
	return float64(u.ByFallback) / float64(u.Answered)
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)
	// GetLLMEvent returns nil if the event does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
	// GatewayUsageByPurpose reports fallback and rate-limit counts per purpose.
	GatewayUsageByPurpose(ctx context.Context) ([]GatewayUsage, error)
}
