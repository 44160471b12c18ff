package prompts

import (
	"regexp"
	"strings"
)

// Intent is the classified purpose of a chat message. It is either
// DefineWord or GeneralQuestion.
type Intent interface {
	intent()
}

// DefineWord asks for the meaning of a single word.
type DefineWord struct {
	Word string
}

// GeneralQuestion is any other message about the story.
type GeneralQuestion struct{}

func (DefineWord) intent()      {}
func (GeneralQuestion) intent() {}

// quotedWord matches a word in straight or curly quotes.
var quotedWord = regexp.MustCompile(`["'“‘]([^"'“”‘’]+)["'”’]`)

// ClassifyIntent recognizes "what does 'word' mean" questions. Everything
// else is a GeneralQuestion.
func ClassifyIntent(message string) Intent {
	lower := strings.ToLower(message)
	if !strings.Contains(lower, "what does") || !strings.Contains(lower, "mean") {
		return GeneralQuestion{}
	}
	m := quotedWord.FindStringSubmatch(message)
	if m == nil {
		return GeneralQuestion{}
	}
	word := strings.TrimSpace(m[1])
	if word == "" {
		return GeneralQuestion{}
	}
	return DefineWord{Word: word}
}
