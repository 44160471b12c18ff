// Package dashboard aggregates a child's activity for the parent and child
// views.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/vibekids/internal/store"
)

const (
	// StreakWindow is how many days back the streak looks.
	StreakWindow = 30

	RecentSessions = 10
	RecentVibes    = 10
	RecentProgress = 5

	TargetReadingMinutes = 20
	TargetMathProblems   = 10
)

// Repos are the stores the dashboards read.
type Repos struct {
	Users    store.UserRepo
	Sessions store.SessionRepo
	Reading  store.ReadingProgressRepo
	Math     store.MathProgressRepo
	Vibes    store.VibeRepo
	Quizzes  store.QuizRepo
}

// Service builds dashboards.
type Service struct {
	repos  Repos
	logger *zap.Logger
}

// NewService creates a dashboard service.
func NewService(repos Repos, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repos: repos, logger: logger}
}

// Stats summarizes a user's activity.
type Stats struct {
	TotalReadingTime  int `json:"totalReadingTime"` // minutes
	TotalMathProblems int `json:"totalMathProblems"`
	ReadingAccuracy   int `json:"readingAccuracy"`
	MathAccuracy      int `json:"mathAccuracy"`
	CurrentStreak     int `json:"currentStreak"`
}

// ComputeStats derives Stats from a user's records as of now.
func ComputeStats(sessions []store.Session, reading []store.ReadingProgress, maths []store.MathProgress, now time.Time) Stats {
	var s Stats
	for _, sess := range sessions {
		if sess.Type == store.SessionReading {
			s.TotalReadingTime += sess.Duration
		}
	}

	correct := 0
	for _, m := range maths {
		s.TotalMathProblems += m.ProblemsAttempted
		correct += m.ProblemsCorrect
	}
	if s.TotalMathProblems > 0 {
		s.MathAccuracy = int(math.Round(float64(correct) * 100 / float64(s.TotalMathProblems)))
	}

	if len(reading) > 0 {
		sum := lo.SumBy(reading, func(r store.ReadingProgress) int { return r.Accuracy })
		s.ReadingAccuracy = int(math.Round(float64(sum) / float64(len(reading))))
	}

	s.CurrentStreak = Streak(sessions, now)
	return s
}

// Streak counts consecutive days with at least one session, ending today.
// A day without a session today does not break a streak that ended
// yesterday.
func Streak(sessions []store.Session, now time.Time) int {
	days := make(map[time.Time]bool, len(sessions))
	for _, s := range sessions {
		days[startOfDay(s.StartedAt.In(now.Location()))] = true
	}

	today := startOfDay(now)
	streak := 0
	for i := range StreakWindow {
		if days[today.AddDate(0, 0, -i)] {
			streak++
		} else if i > 0 {
			break
		}
	}
	return streak
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Parent is the parent dashboard payload.
type Parent struct {
	User            *store.User             `json:"user"`
	Stats           Stats                   `json:"stats"`
	RecentSessions  []store.Session         `json:"recentSessions"`
	RecentVibes     []store.VibeState       `json:"recentVibes"`
	ReadingProgress []store.ReadingProgress `json:"readingProgress"`
	MathProgress    []store.MathProgress    `json:"mathProgress"`
}

type activity struct {
	user     *store.User
	sessions []store.Session
	vibes    []store.VibeState
	reading  []store.ReadingProgress
	maths    []store.MathProgress
}

// load fetches everything a dashboard needs concurrently.
func (s *Service) load(ctx context.Context, userID string, withVibes bool) (*activity, error) {
	var a activity
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		u, err := s.repos.Users.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("load user %s: %w", userID, err)
		}
		a.user = u
		return nil
	})
	g.Go(func() error {
		var err error
		a.sessions, err = s.repos.Sessions.ListByUser(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		a.reading, err = s.repos.Reading.ListByUser(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		a.maths, err = s.repos.Math.ListByUser(ctx, userID)
		return err
	})
	if withVibes {
		g.Go(func() error {
			var err error
			a.vibes, err = s.repos.Vibes.ListByUser(ctx, userID)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Parent returns the parent's view of a child's activity.
func (s *Service) Parent(ctx context.Context, userID string, now time.Time) (*Parent, error) {
	a, err := s.load(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	return &Parent{
		User:            a.user,
		Stats:           ComputeStats(a.sessions, a.reading, a.maths, now),
		RecentSessions:  top(a.sessions, RecentSessions),
		RecentVibes:     top(a.vibes, RecentVibes),
		ReadingProgress: top(a.reading, RecentProgress),
		MathProgress:    top(a.maths, RecentProgress),
	}, nil
}

func top[T any](items []T, n int) []T {
	if items == nil {
		return []T{}
	}
	return lo.Slice(items, 0, n)
}

// Goals is the child's progress toward today's targets.
type Goals struct {
	ReadingMinutes       int `json:"readingMinutes"`
	TargetReadingMinutes int `json:"targetReadingMinutes"`
	MathProblems         int `json:"mathProblems"`
	TargetMathProblems   int `json:"targetMathProblems"`
}

// Child is the child dashboard payload.
type Child struct {
	User               *store.User `json:"user"`
	TodayGoals         Goals       `json:"todayGoals"`
	CurrentStreak      int         `json:"currentStreak"`
	RecentAchievements []string    `json:"recentAchievements"`
}

// Child returns today's goals and achievements for a child.
func (s *Service) Child(ctx context.Context, userID string, now time.Time) (*Child, error) {
	a, err := s.load(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.repos.Quizzes.ListCompleted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load quizzes: %w", err)
	}

	today := startOfDay(now)
	isToday := func(t time.Time) bool { return !startOfDay(t.In(now.Location())).Before(today) }

	readingToday := 0
	for _, sess := range a.sessions {
		if sess.Type == store.SessionReading && isToday(sess.StartedAt) {
			readingToday += sess.Duration
		}
	}
	mathToday := 0
	if len(a.maths) > 0 && isToday(a.maths[0].UpdatedAt) {
		mathToday = a.maths[0].ProblemsAttempted
	}

	stats := ComputeStats(a.sessions, a.reading, a.maths, now)
	return &Child{
		User: a.user,
		TodayGoals: Goals{
			ReadingMinutes:       min(readingToday, TargetReadingMinutes),
			TargetReadingMinutes: TargetReadingMinutes,
			MathProblems:         min(mathToday, TargetMathProblems),
			TargetMathProblems:   TargetMathProblems,
		},
		CurrentStreak:      stats.CurrentStreak,
		RecentAchievements: Achievements(stats, quizzes),
	}, nil
}

var problemMilestones = []int{100, 50, 25, 10}

// Achievements lists what the child has earned so far, newest kinds first.
func Achievements(stats Stats, quizzes []store.Quiz) []string {
	out := []string{}
	if stats.CurrentStreak >= 2 {
		out = append(out, fmt.Sprintf("Read for %d days in a row!", stats.CurrentStreak))
	}
	for _, m := range problemMilestones {
		if stats.TotalMathProblems >= m {
			out = append(out, fmt.Sprintf("Solved %d math problems!", m))
			break
		}
	}
	perfect := lo.ContainsBy(quizzes, func(q store.Quiz) bool {
		return q.Score != nil && *q.Score == q.TotalQuestions() && q.TotalQuestions() > 0
	})
	if perfect {
		out = append(out, "Perfect quiz score!")
	}
	return out
}
