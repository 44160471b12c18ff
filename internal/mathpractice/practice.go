package mathpractice

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/abhisek/vibekids/internal/apperr"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/vibe"
)

// LevelUpEvery is the number of correct answers between level increases.
const LevelUpEvery = 5

// Outcome is the result of answering the current problem.
type Outcome struct {
	Problem   Problem
	Given     int
	Correct   bool
	LeveledUp bool
	Streak    int
	Next      Problem
}

// Practice is the running tally of one math session.
type Practice struct {
	mu sync.Mutex

	rng        *rand.Rand
	current    Problem
	level      int
	attempted  int
	correct    int
	streak     int
	bestStreak int
}

// NewPractice starts a practice at level with its first problem ready.
func NewPractice(level int, rng *rand.Rand) *Practice {
	p := &Practice{rng: rng, level: ClampLevel(level)}
	p.current = Generate(p.level, rng)
	return p
}

// Resume continues a stored tally.
func Resume(mp store.MathProgress, rng *rand.Rand) *Practice {
	p := NewPractice(mp.CurrentLevel, rng)
	p.attempted = mp.ProblemsAttempted
	p.correct = mp.ProblemsCorrect
	p.streak = mp.Streak
	p.bestStreak = mp.Streak
	return p
}

// Current returns the problem awaiting an answer.
func (p *Practice) Current() Problem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Answer checks input against the current problem, records the result and
// moves on to a new problem.
func (p *Practice) Answer(input string) (Outcome, error) {
	given, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return Outcome{}, apperr.Invalid("answer", "must be a whole number")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out := Outcome{Problem: p.current, Given: given, Correct: given == p.current.Answer}
	p.attempted++
	if out.Correct {
		p.correct++
		p.streak++
		p.bestStreak = max(p.bestStreak, p.streak)
		if p.correct%LevelUpEvery == 0 && p.level < MaxLevel {
			p.level++
			out.LeveledUp = true
		}
	} else {
		p.streak = 0
	}
	out.Streak = p.streak

	p.current = Generate(p.level, p.rng)
	out.Next = p.current
	return out, nil
}

// Stats is a point-in-time copy of the tally.
type Stats struct {
	Level      int
	Attempted  int
	Correct    int
	Streak     int
	BestStreak int
}

// Accuracy is the share of correct answers as a percentage.
func (s Stats) Accuracy() int {
	if s.Attempted == 0 {
		return 0
	}
	return s.Correct * 100 / s.Attempted
}

// Vibe is the engagement state implied by the tally.
func (s Stats) Vibe() vibe.State {
	return vibe.FromMath(s.Streak, s.Attempted, s.Correct)
}

// Stats returns the tally.
func (p *Practice) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Level:      p.level,
		Attempted:  p.attempted,
		Correct:    p.correct,
		Streak:     p.streak,
		BestStreak: p.bestStreak,
	}
}

// Snapshot converts the tally into a MathProgress row for userID.
func (p *Practice) Snapshot(userID, sessionID string) store.MathProgress {
	s := p.Stats()
	return store.MathProgress{
		UserID:            userID,
		SessionID:         sessionID,
		ProblemsAttempted: s.Attempted,
		ProblemsCorrect:   s.Correct,
		CurrentLevel:      s.Level,
		Streak:            s.Streak,
	}
}
