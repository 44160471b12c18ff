// Package parse turns free-text model output into the values the app
// stores and shows. Parsers never fail: bad output becomes fallback content.
package parse

import (
	"encoding/json"

	"github.com/abhisek/vibekids/internal/llm"
	"github.com/abhisek/vibekids/internal/store"
)

// QuestionSchema is the shape every generated quiz question must have.
var QuestionSchema = &llm.Schema{
	Name:        "quiz-question",
	Description: "A multiple-choice reading comprehension question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{"type": "string", "minLength": 1},
			"options": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string", "minLength": 1},
				"minItems": 4,
				"maxItems": 4,
			},
			"correctAnswer": map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
		},
		"required": []any{"question", "options", "correctAnswer"},
	},
}

var fallbackQuiz = []store.QuizQuestion{
	{
		Question:      "What do we call the person or animal a story is mostly about?",
		Options:       []string{"The main character", "The title", "The ending", "The author"},
		CorrectAnswer: 0,
	},
	{
		Question:      "Which part of a story tells you how everything turns out?",
		Options:       []string{"The beginning", "The middle", "The ending", "The title"},
		CorrectAnswer: 2,
	},
	{
		Question:      "What can you do when you read a word you do not know?",
		Options:       []string{"Skip the whole story", "Look at the words around it for clues", "Close the book", "Read it backwards"},
		CorrectAnswer: 1,
	},
}

// FallbackQuiz returns a copy of the built-in three-question quiz.
func FallbackQuiz() []store.QuizQuestion {
	out := make([]store.QuizQuestion, len(fallbackQuiz))
	for i, q := range fallbackQuiz {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

// QuizQuestions extracts up to count questions from model output. It takes
// the first balanced JSON array in text holding valid items and keeps the
// items that match QuestionSchema. With nothing usable it returns
// FallbackQuiz. A short result is padded from the fallback set.
func QuizQuestions(text string, count int) []store.QuizQuestion {
	if count <= 0 {
		count = len(fallbackQuiz)
	}

	questions := extractQuestions(text)
	if len(questions) == 0 {
		return FallbackQuiz()
	}

	if len(questions) > count {
		return questions[:count]
	}
	for _, q := range FallbackQuiz() {
		if len(questions) >= count {
			break
		}
		questions = append(questions, q)
	}
	return questions
}

func extractQuestions(text string) []store.QuizQuestion {
	for _, candidate := range arrayCandidates(text) {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &items); err != nil {
			continue
		}

		var out []store.QuizQuestion
		for _, raw := range items {
			if err := llm.ValidateJSON(QuestionSchema, raw); err != nil {
				continue
			}
			var q store.QuizQuestion
			if err := json.Unmarshal(raw, &q); err != nil {
				continue
			}
			out = append(out, q)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// arrayCandidates returns every balanced [...] substring of text, in order
// of their opening bracket. Brackets inside JSON strings are ignored.
func arrayCandidates(text string) []string {
	var out []string
	for start := 0; start < len(text); start++ {
		if text[start] != '[' {
			continue
		}
		if end := matchBracket(text, start); end > 0 {
			out = append(out, text[start:end+1])
			start = end
		}
	}
	return out
}

// matchBracket returns the index of the ']' closing the '[' at start, or -1.
func matchBracket(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
