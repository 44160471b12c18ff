// Package mathpractice generates arithmetic problems and keeps the running
// tally of a practice session.
package mathpractice

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Op is an arithmetic operation.
type Op string

const (
	Addition       Op = "addition"
	Subtraction    Op = "subtraction"
	Multiplication Op = "multiplication"
	Division       Op = "division"
)

// ops is ordered by the level that unlocks each operation.
var ops = []Op{Addition, Subtraction, Multiplication, Division}

// Symbol is the operator shown to the child.
func (o Op) Symbol() string {
	switch o {
	case Addition:
		return "+"
	case Subtraction:
		return "-"
	case Multiplication:
		return "×"
	case Division:
		return "÷"
	}
	return "?"
}

const (
	MinLevel = 1
	MaxLevel = 4
)

// Problem is one generated question.
type Problem struct {
	ID       string `json:"id"`
	Type     Op     `json:"type"`
	Operand1 int    `json:"operand1"`
	Operand2 int    `json:"operand2"`
	Answer   int    `json:"answer"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%d %s %d", p.Operand1, p.Type.Symbol(), p.Operand2)
}

// Hint returns a counting strategy for the problem.
func (p Problem) Hint() string {
	a, b := p.Operand1, p.Operand2
	switch p.Type {
	case Addition:
		return fmt.Sprintf("Count up from %d: %d, %d, %d...", a, a, a+1, a+2)
	case Subtraction:
		return fmt.Sprintf("Count down from %d: %d, %d, %d...", a, a, a-1, a-2)
	case Multiplication:
		return fmt.Sprintf("Think of %d groups of %d", b, a)
	case Division:
		return fmt.Sprintf("How many %ds fit into %d?", b, a)
	}
	return "Take your time!"
}

// ClampLevel keeps level within [MinLevel, MaxLevel].
func ClampLevel(level int) int {
	return max(MinLevel, min(level, MaxLevel))
}

// Generate returns a random problem for level. Level n unlocks the first
// n+1 operations, so level 1 practices addition and subtraction.
// Operand ranges widen with level. Division always has a whole answer.
func Generate(level int, rng *rand.Rand) Problem {
	level = ClampLevel(level)
	op := ops[rng.IntN(min(level+1, len(ops)))]

	p := Problem{ID: uuid.NewString(), Type: op}
	switch op {
	case Addition:
		p.Operand1 = rng.IntN(10*level) + 1
		p.Operand2 = rng.IntN(10*level) + 1
		p.Answer = p.Operand1 + p.Operand2
	case Subtraction:
		p.Operand1 = rng.IntN(10*level) + 10
		p.Operand2 = rng.IntN(min(p.Operand1, 10*level)) + 1
		p.Answer = p.Operand1 - p.Operand2
	case Multiplication:
		p.Operand1 = rng.IntN(5*level) + 1
		p.Operand2 = rng.IntN(10) + 1
		p.Answer = p.Operand1 * p.Operand2
	case Division:
		p.Operand2 = rng.IntN(9) + 2
		p.Answer = rng.IntN(10) + 1
		p.Operand1 = p.Operand2 * p.Answer
	}
	return p
}
