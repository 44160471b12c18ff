package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/abhisek/vibekids/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noon = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func sessionOn(daysAgo int, typ store.SessionType, minutes int) store.Session {
	return store.Session{Type: typ, StartedAt: noon.AddDate(0, 0, -daysAgo), Duration: minutes}
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name string
		days []int
		want int
	}{
		{"none", nil, 0},
		{"today only", []int{0}, 1},
		{"three days", []int{0, 1, 2}, 3},
		{"missing today", []int{1, 2, 3}, 3},
		{"gap breaks", []int{0, 1, 3, 4}, 2},
		{"two missing days", []int{2, 3}, 0},
		{"same day twice", []int{0, 0, 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sessions []store.Session
			for _, d := range tt.days {
				sessions = append(sessions, sessionOn(d, store.SessionMath, 5))
			}
			if got := Streak(sessions, noon); got != tt.want {
				t.Errorf("Streak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStreak_CapsAtWindow(t *testing.T) {
	var sessions []store.Session
	for d := range 45 {
		sessions = append(sessions, sessionOn(d, store.SessionReading, 5))
	}
	if got := Streak(sessions, noon); got != StreakWindow {
		t.Errorf("Streak() = %d, want %d", got, StreakWindow)
	}
}

func TestComputeStats(t *testing.T) {
	sessions := []store.Session{
		sessionOn(0, store.SessionReading, 15),
		sessionOn(1, store.SessionMath, 10),
		sessionOn(1, store.SessionReading, 7),
	}
	reading := []store.ReadingProgress{{Accuracy: 90}, {Accuracy: 95}}
	maths := []store.MathProgress{{ProblemsAttempted: 10, ProblemsCorrect: 8}, {ProblemsAttempted: 5, ProblemsCorrect: 2}}

	got := ComputeStats(sessions, reading, maths, noon)
	want := Stats{TotalReadingTime: 22, TotalMathProblems: 15, ReadingAccuracy: 93, MathAccuracy: 67, CurrentStreak: 2}
	if got != want {
		t.Errorf("ComputeStats() = %+v, want %+v", got, want)
	}

	if empty := ComputeStats(nil, nil, nil, noon); empty != (Stats{}) {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestAchievements(t *testing.T) {
	three := 3
	one := 1
	perfect := store.Quiz{Questions: make([]store.QuizQuestion, 3), Score: &three}
	partial := store.Quiz{Questions: make([]store.QuizQuestion, 3), Score: &one}

	got := Achievements(Stats{CurrentStreak: 5, TotalMathProblems: 60}, []store.Quiz{partial, perfect})
	assert.Equal(t, []string{"Read for 5 days in a row!", "Solved 50 math problems!", "Perfect quiz score!"}, got)

	assert.Empty(t, Achievements(Stats{CurrentStreak: 1, TotalMathProblems: 3}, []store.Quiz{partial}))
}

func newSeeded(t *testing.T, now time.Time) *Service {
	t.Helper()
	s, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	_, err = s.Seed(context.Background(), now)
	require.NoError(t, err)
	return NewService(Repos{
		Users:    s.Users(),
		Sessions: s.Sessions(),
		Reading:  s.ReadingProgress(),
		Math:     s.MathProgress(),
		Vibes:    s.Vibes(),
		Quizzes:  s.Quizzes(),
	}, nil)
}

func TestParent(t *testing.T) {
	svc := newSeeded(t, noon)

	p, err := svc.Parent(context.Background(), store.DemoChildID, noon)
	require.NoError(t, err)
	assert.Equal(t, "alex", p.User.Username)
	assert.Len(t, p.RecentSessions, 5)
	assert.Len(t, p.RecentVibes, 4)
	assert.Len(t, p.ReadingProgress, 1)
	assert.Equal(t, 5, p.Stats.CurrentStreak)
	assert.Equal(t, 80, p.Stats.MathAccuracy)
	assert.Equal(t, 92, p.Stats.ReadingAccuracy)
	// Reading sessions are days 0, 2 and 4 with 15, 19 and 23 minutes.
	assert.Equal(t, 57, p.Stats.TotalReadingTime)

	_, err = svc.Parent(context.Background(), "nobody", noon)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestChild(t *testing.T) {
	svc := newSeeded(t, noon)

	c, err := svc.Child(context.Background(), store.DemoChildID, noon)
	require.NoError(t, err)
	assert.Equal(t, Goals{
		ReadingMinutes:       15,
		TargetReadingMinutes: TargetReadingMinutes,
		MathProblems:         10,
		TargetMathProblems:   TargetMathProblems,
	}, c.TodayGoals)
	assert.Equal(t, 5, c.CurrentStreak)
	assert.Contains(t, c.RecentAchievements, "Read for 5 days in a row!")
	assert.Contains(t, c.RecentAchievements, "Solved 10 math problems!")

	// A day later nothing has happened yet today.
	c, err = svc.Child(context.Background(), store.DemoChildID, noon.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Zero(t, c.TodayGoals.ReadingMinutes)
	assert.Zero(t, c.TodayGoals.MathProblems)
	assert.Equal(t, 5, c.CurrentStreak)
}
