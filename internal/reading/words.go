// Package reading tracks a child's word-by-word position in a story.
package reading

import (
	"strings"

	"github.com/abhisek/vibekids/internal/store"
)

// Words splits text into words on any run of whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// Window returns the words within radius of pos, joined by single spaces.
// pos is clamped to the word list.
func Window(words []string, pos, radius int) string {
	if len(words) == 0 {
		return ""
	}
	pos = max(0, min(pos, len(words)))
	start := max(0, pos-radius)
	end := min(len(words), pos+radius)
	if start >= end {
		return ""
	}
	return strings.Join(words[start:end], " ")
}

// Section is one readable part of a story.
type Section struct {
	Title   string
	Content string
}

// Document is a story as the tracker sees it: one or more sections.
type Document struct {
	StoryID  string
	Title    string
	Sections []Section
}

// DocumentFromStory builds a Document from a stored story. A story without
// sections becomes a single section holding its whole content.
func DocumentFromStory(s *store.Story) Document {
	doc := Document{StoryID: s.ID, Title: s.Title}
	if len(s.Sections) == 0 {
		doc.Sections = []Section{{Title: s.Title, Content: s.Content}}
		return doc
	}
	for _, sec := range s.Sections {
		doc.Sections = append(doc.Sections, Section{Title: sec.Title, Content: sec.Content})
	}
	return doc
}
