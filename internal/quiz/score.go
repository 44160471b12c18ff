// Package quiz generates, scores and records story comprehension quizzes.
package quiz

import (
	"strconv"

	"github.com/abhisek/vibekids/internal/store"
)

// PassPercent is the share of correct answers needed to pass.
const PassPercent = 70

// PassThreshold is the minimum passing score: ceil(0.7 * total).
// For three questions this is 3, so 2/3 fails.
func PassThreshold(total int) int {
	if total <= 0 {
		return 0
	}
	return (PassPercent*total + 99) / 100
}

// Passed reports whether score meets the pass threshold for total.
func Passed(score, total int) bool {
	return total > 0 && score >= PassThreshold(total)
}

// Score counts answers that match the stored correct option. Extra answers
// are ignored.
func Score(questions []store.QuizQuestion, answers []int) int {
	score := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectAnswer {
			score++
		}
	}
	return score
}

// Missed returns the text of every question answered wrongly or not at all.
func Missed(questions []store.QuizQuestion, answers []int) []string {
	var out []string
	for i, q := range questions {
		if i >= len(answers) || answers[i] != q.CorrectAnswer {
			out = append(out, q.Question)
		}
	}
	return out
}

// CorrectAnswers returns the correct option index of every question.
func CorrectAnswers(questions []store.QuizQuestion) []int {
	out := make([]int, len(questions))
	for i, q := range questions {
		out[i] = q.CorrectAnswer
	}
	return out
}

// PublicQuestion is a question as shown to the child, without its answer.
type PublicQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Public strips the answers from questions.
func Public(questions []store.QuizQuestion) []PublicQuestion {
	out := make([]PublicQuestion, len(questions))
	for i, q := range questions {
		out[i] = PublicQuestion{
			ID:       questionID(i),
			Question: q.Question,
			Options:  q.Options,
		}
	}
	return out
}

func questionID(i int) string {
	return "q-" + strconv.Itoa(i)
}
