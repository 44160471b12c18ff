package mathpractice

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/abhisek/vibekids/internal/apperr"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/vibe"
)

func newRand() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestGenerate_OperationsUnlockByLevel(t *testing.T) {
	rng := newRand()
	for level := MinLevel; level <= MaxLevel; level++ {
		allowed := ops[:min(level+1, len(ops))]
		for range 500 {
			p := Generate(level, rng)
			found := false
			for _, op := range allowed {
				if p.Type == op {
					found = true
				}
			}
			if !found {
				t.Fatalf("level %d produced %s", level, p.Type)
			}
		}
	}
}

func TestGenerate_Ranges(t *testing.T) {
	rng := newRand()
	for level := MinLevel; level <= MaxLevel; level++ {
		for range 1000 {
			p := Generate(level, rng)
			a, b := p.Operand1, p.Operand2
			switch p.Type {
			case Addition:
				if a < 1 || a > 10*level || b < 1 || b > 10*level || p.Answer != a+b {
					t.Fatalf("bad addition %+v at level %d", p, level)
				}
			case Subtraction:
				if a < 10 || a > 10*level+9 || b < 1 || b > a || p.Answer != a-b || p.Answer < 0 {
					t.Fatalf("bad subtraction %+v at level %d", p, level)
				}
			case Multiplication:
				if a < 1 || a > 5*level || b < 1 || b > 10 || p.Answer != a*b {
					t.Fatalf("bad multiplication %+v at level %d", p, level)
				}
			case Division:
				if b < 2 || b > 10 || a%b != 0 || a/b != p.Answer || p.Answer < 1 || p.Answer > 10 {
					t.Fatalf("bad division %+v at level %d", p, level)
				}
			}
		}
	}
}

func TestGenerate_ClampsLevel(t *testing.T) {
	rng := newRand()
	for range 200 {
		if p := Generate(0, rng); p.Type != Addition && p.Type != Subtraction {
			t.Fatalf("level 0 should behave as level 1, got %s", p.Type)
		}
	}
}

func TestProblemStringAndHint(t *testing.T) {
	tests := []struct {
		p         Problem
		str, hint string
	}{
		{Problem{Type: Addition, Operand1: 7, Operand2: 5}, "7 + 5", "Count up from 7: 7, 8, 9..."},
		{Problem{Type: Subtraction, Operand1: 12, Operand2: 4}, "12 - 4", "Count down from 12: 12, 11, 10..."},
		{Problem{Type: Multiplication, Operand1: 3, Operand2: 4}, "3 × 4", "Think of 4 groups of 3"},
		{Problem{Type: Division, Operand1: 12, Operand2: 3}, "12 ÷ 3", "How many 3s fit into 12?"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
		if got := tt.p.Hint(); got != tt.hint {
			t.Errorf("Hint() = %q, want %q", got, tt.hint)
		}
	}
}

func answerCorrectly(t *testing.T, p *Practice) Outcome {
	t.Helper()
	out, err := p.Answer(strconv.Itoa(p.Current().Answer))
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !out.Correct {
		t.Fatalf("expected correct for %+v", out.Problem)
	}
	return out
}

func TestPractice_StreakAndLevelUp(t *testing.T) {
	p := NewPractice(1, newRand())

	for i := 1; i <= 4; i++ {
		out := answerCorrectly(t, p)
		if out.LeveledUp || out.Streak != i {
			t.Fatalf("answer %d: %+v", i, out)
		}
	}
	if out := answerCorrectly(t, p); !out.LeveledUp {
		t.Fatal("expected a level up on the 5th correct answer")
	}
	if p.Stats().Level != 2 {
		t.Fatalf("level = %d", p.Stats().Level)
	}

	wrong := p.Current().Answer + 1
	out, err := p.Answer(" " + strconv.Itoa(wrong) + " ")
	if err != nil || out.Correct {
		t.Fatalf("expected a wrong answer: %+v %v", out, err)
	}
	s := p.Stats()
	if s.Streak != 0 || s.BestStreak != 5 || s.Attempted != 6 || s.Correct != 5 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if s.Accuracy() != 83 {
		t.Fatalf("accuracy = %d", s.Accuracy())
	}
}

func TestPractice_LevelCapsAtMax(t *testing.T) {
	p := NewPractice(MaxLevel, newRand())
	for range 10 {
		if out := answerCorrectly(t, p); out.LeveledUp {
			t.Fatal("level must not rise past the maximum")
		}
	}
	if p.Stats().Level != MaxLevel {
		t.Fatalf("level = %d", p.Stats().Level)
	}
}

func TestPractice_RejectsNonNumeric(t *testing.T) {
	p := NewPractice(1, newRand())
	before := p.Current()
	if _, err := p.Answer("twelve"); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if p.Current() != before || p.Stats().Attempted != 0 {
		t.Fatal("a rejected answer must not change the tally")
	}
}

func TestPractice_VibeAndSnapshot(t *testing.T) {
	p := Resume(store.MathProgress{ProblemsAttempted: 4, ProblemsCorrect: 1, CurrentLevel: 3}, newRand())
	if p.Stats().Vibe() != vibe.Confused {
		t.Fatalf("vibe = %s", p.Stats().Vibe())
	}
	for range 3 {
		answerCorrectly(t, p)
	}
	if p.Stats().Vibe() != vibe.Happy {
		t.Fatalf("vibe = %s", p.Stats().Vibe())
	}

	mp := p.Snapshot("kid", "sess")
	want := store.MathProgress{UserID: "kid", SessionID: "sess", ProblemsAttempted: 7, ProblemsCorrect: 4, CurrentLevel: 3, Streak: 3}
	if mp != want {
		t.Fatalf("snapshot = %+v, want %+v", mp, want)
	}
}
