package prompts

import (
	"fmt"
	"strings"
	"testing"
)

const story = "Once upon a time there lived a little fox named Finn. " +
	"Finn had bright orange fur and curious brown eyes. He loved to explore the forest every day. " +
	"One morning Finn woke up early and the sun was shining through the trees."

func intPtr(i int) *int { return &i }

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		msg  string
		want Intent
	}{
		{`What does "curious" mean?`, DefineWord{Word: "curious"}},
		{"what does 'explore' mean", DefineWord{Word: "explore"}},
		{"What does “meadow” mean?", DefineWord{Word: "meadow"}},
		{"What does ‘sparkled’ mean?", DefineWord{Word: "sparkled"}},
		{"What does curious mean?", GeneralQuestion{}},
		{`Who is "Finn"?`, GeneralQuestion{}},
		{"Why did Finn go to the pond?", GeneralQuestion{}},
		{`What does "" mean?`, GeneralQuestion{}},
	}
	for _, tt := range tests {
		if got := ClassifyIntent(tt.msg); got != tt.want {
			t.Errorf("ClassifyIntent(%q) = %#v, want %#v", tt.msg, got, tt.want)
		}
	}
}

func TestChatReply_WindowAndProgress(t *testing.T) {
	p := ChatReply(ChatInput{
		StoryTitle:   "The Brave Little Fox",
		StoryContent: story,
		Position:     intPtr(20),
		Message:      "Why is Finn curious?",
	})

	if p.System != Persona {
		t.Error("system instruction must be the persona")
	}
	if !strings.Contains(p.Text, "Story title: The Brave Little Fox") {
		t.Error("missing title")
	}
	if !strings.Contains(p.Text, "word 20 of 42") {
		t.Errorf("missing position, got:\n%s", p.Text)
	}
	if !strings.Contains(p.Text, "about 48%") {
		t.Errorf("missing read percentage, got:\n%s", p.Text)
	}
	// Words 5..34 surround position 20.
	if !strings.Contains(p.Text, "\"lived a little fox named Finn.") {
		t.Errorf("window should start 15 words before the position, got:\n%s", p.Text)
	}
	if !strings.Contains(p.Text, "Recent conversation:\nNone") {
		t.Error("expected 'None' for empty history")
	}
	if !strings.Contains(p.Text, "Child's message: Why is Finn curious?") {
		t.Error("missing message")
	}
	if strings.Contains(p.Text, "simple definition") {
		t.Error("general question must not ask for a definition")
	}
}

func TestChatReply_NoPosition(t *testing.T) {
	p := ChatReply(ChatInput{StoryTitle: "T", StoryContent: story, Message: "hi"})
	if strings.Contains(p.Text, "The child has read") {
		t.Error("no progress line expected without a position")
	}
}

func TestChatReply_DefineWord(t *testing.T) {
	p := ChatReply(ChatInput{
		StoryTitle:   "The Brave Little Fox",
		StoryContent: story,
		Message:      `What does "curious" mean?`,
	})
	for _, want := range []string{`the word "curious" means`, "simple definition", "example sentence", "used in this story"} {
		if !strings.Contains(p.Text, want) {
			t.Errorf("missing %q in definition block", want)
		}
	}
}

func TestChatReply_KeepsLastEightTurns(t *testing.T) {
	var history []Turn
	for i := 1; i <= 12; i++ {
		role := "user"
		if i%2 == 0 {
			role = "assistant"
		}
		history = append(history, Turn{Role: role, Content: fmt.Sprintf("turn-%02d", i)})
	}
	p := ChatReply(ChatInput{StoryTitle: "T", StoryContent: story, History: history, Message: "hi"})

	for i := 1; i <= 4; i++ {
		if strings.Contains(p.Text, fmt.Sprintf("turn-%02d", i)) {
			t.Errorf("turn %d should have been dropped", i)
		}
	}
	for i := 5; i <= 12; i++ {
		if !strings.Contains(p.Text, fmt.Sprintf("turn-%02d", i)) {
			t.Errorf("turn %d should be kept", i)
		}
	}
	if !strings.Contains(p.Text, "Child: turn-05\nReading Buddy: turn-06") {
		t.Error("turns should be labelled by speaker")
	}
}

func TestLegacyChatReply(t *testing.T) {
	var history []Turn
	for i := 1; i <= 8; i++ {
		history = append(history, Turn{Role: "user", Content: fmt.Sprintf("q%d", i)})
	}
	p := LegacyChatReply(ChatInput{
		StoryTitle:   "Fox",
		StoryContent: story,
		Position:     intPtr(12),
		History:      history,
		Message:      "Where is the pond?",
	})

	if !strings.Contains(p.Text, "The child has read up to word 12 of the story.") {
		t.Error("missing position line")
	}
	if strings.Contains(p.Text, "Child: q2\n") || !strings.Contains(p.Text, "Child: q3\n") {
		t.Error("expected the last six turns only")
	}
	if !strings.HasSuffix(p.Text, "Please respond as a friendly reading buddy:") {
		t.Error("missing closing instruction")
	}
}

func TestSuggestion(t *testing.T) {
	p := Suggestion(140, "  Finn found a stream.  ")
	if !strings.Contains(p.Text, "read 100%") {
		t.Error("progress should be clamped to 100")
	}
	if !strings.Contains(p.Text, "\"Finn found a stream.\"") {
		t.Error("excerpt should be trimmed and quoted")
	}
	if !strings.Contains(p.Text, "fewer than 15 words") {
		t.Error("missing length limit")
	}
}

func TestQuiz(t *testing.T) {
	p := Quiz("The Friendly Dragon", story, 5)
	if !strings.Contains(p.Text, "Create 5 multiple-choice questions") {
		t.Error("missing count")
	}
	if !strings.Contains(p.Text, "ONLY a JSON array") {
		t.Error("missing strict format instruction")
	}
	if !strings.Contains(p.Text, `"correctAnswer": 0`) {
		t.Error("missing example shape")
	}

	p = Quiz("Long", strings.Repeat("a", MaxQuizContent+500), 0)
	if !strings.Contains(p.Text, "Create 3 multiple-choice questions") {
		t.Error("expected default count")
	}
	if strings.Contains(p.Text, strings.Repeat("a", MaxQuizContent+1)) {
		t.Error("content should be truncated")
	}
}

func TestQuizFeedback(t *testing.T) {
	pass := QuizFeedback("Fox", 3, 3, true, nil)
	if !strings.Contains(pass.Text, "They passed!") || strings.Contains(pass.Text, "missed") {
		t.Errorf("unexpected pass prompt:\n%s", pass.Text)
	}

	fail := QuizFeedback("Fox", 2, 3, false, []string{"What color was Finn?"})
	if !strings.Contains(fail.Text, "Score: 2 out of 3.") {
		t.Error("missing score")
	}
	if !strings.Contains(fail.Text, "1. What color was Finn?") {
		t.Error("missing missed question")
	}
	if !strings.Contains(fail.Text, "did not pass") {
		t.Error("missing fail branch")
	}
}

func TestMathFeedback(t *testing.T) {
	right := MathFeedback("7 + 5", "12", "12", true)
	if !strings.Contains(right.Text, "got it right") {
		t.Error("missing celebration branch")
	}
	wrong := MathFeedback("7 + 5", "11", "12", false)
	if !strings.Contains(wrong.Text, "Child's answer: 11") || !strings.Contains(wrong.Text, "small steps") {
		t.Errorf("unexpected correction prompt:\n%s", wrong.Text)
	}
}

func TestPromptRequest(t *testing.T) {
	req := MathFeedback("1 + 1", "2", "2", true).Request()
	if req.System != Persona || len(req.Messages) != 1 {
		t.Fatalf("unexpected request %+v", req)
	}
}
