// Package document turns uploaded documents into stories.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/abhisek/vibekids/internal/store"
)

// MinTextLength is the least amount of text, in characters, an upload must
// contain to become a story.
const MinTextLength = 50

// MaxUploadBytes bounds how much of an upload is read.
const MaxUploadBytes = 10 << 20

// ErrTooLittleText is returned when a document holds too little text to read.
var ErrTooLittleText = errors.New("document contains too little text")

// Extractor pulls readable text out of a document. Page breaks are
// reported as form feeds.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) (string, error)
}

// PlainTextExtractor reads UTF-8 text as is.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(ctx context.Context, r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes))
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("document is not UTF-8 text")
	}
	text := strings.ReplaceAll(string(b), "\r\n", "\n")
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinTextLength {
		return "", ErrTooLittleText
	}
	return text, nil
}

// Split breaks text into one section per page. Empty pages are dropped and
// a single page yields no sections.
func Split(title, text string) []store.StorySection {
	pages := strings.Split(text, "\f")
	var sections []store.StorySection
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		sections = append(sections, store.StorySection{
			Title:     fmt.Sprintf("%s (page %d)", title, len(sections)+1),
			Content:   p,
			WordCount: len(strings.Fields(p)),
		})
	}
	if len(sections) < 2 {
		return nil
	}
	return sections
}

// WordsPerMinute is the reading speed used to estimate reading time.
const WordsPerMinute = 100

// NewStory builds a story from extracted text.
func NewStory(title, text string, difficulty int) *store.Story {
	words := len(strings.Fields(text))
	return &store.Story{
		Title:       title,
		Content:     text,
		Sections:    Split(title, text),
		Difficulty:  max(1, difficulty),
		WordCount:   words,
		ReadingTime: max(1, words/WordsPerMinute),
	}
}

// Import extracts r and stores it as a story.
func Import(ctx context.Context, ex Extractor, stories store.StoryRepo, title string, r io.Reader) (*store.Story, error) {
	text, err := ex.Extract(ctx, r)
	if err != nil {
		return nil, err
	}
	st := NewStory(title, text, 1)
	if err := stories.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("store story: %w", err)
	}
	return st, nil
}
