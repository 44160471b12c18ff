package parse

import (
	"reflect"
	"strings"
	"testing"
)

func TestQuizQuestions_NoiseAroundArray(t *testing.T) {
	in := "noise [ {\"question\":\"Q\",\"options\":[\"a\",\"b\",\"c\",\"d\"],\"correctAnswer\":2} ] trailing"
	got := QuizQuestions(in, 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 question, got %d", len(got))
	}
	if got[0].Question != "Q" || got[0].CorrectAnswer != 2 {
		t.Fatalf("unexpected question %+v", got[0])
	}
}

func TestQuizQuestions_UnparsableFallsBack(t *testing.T) {
	tests := []string{
		"",
		"Sorry, I cannot help with that.",
		`[{"question": "Q", "options": ["a", "b"`,
		`[{"question": "Q", options: oops}]`,
		`[]`,
		`[1, 2, 3]`,
	}
	for _, in := range tests {
		got := QuizQuestions(in, 3)
		if !reflect.DeepEqual(got, FallbackQuiz()) {
			t.Errorf("QuizQuestions(%q) did not return the fallback quiz", in)
		}
	}
}

func TestQuizQuestions_BracketsInsideStrings(t *testing.T) {
	in := "Here you go:\n```json\n" +
		`[{"question":"What is in [brackets]?","options":["a \"]\" b","x","y","z"],"correctAnswer":1}]` +
		"\n```"
	got := QuizQuestions(in, 1)
	if got[0].Question != "What is in [brackets]?" {
		t.Fatalf("unexpected question %q", got[0].Question)
	}
	if got[0].Options[0] != `a "]" b` {
		t.Fatalf("unexpected option %q", got[0].Options[0])
	}
}

func TestQuizQuestions_SkipsNonArrayBrackets(t *testing.T) {
	in := `[note] then [{"question":"Q","options":["a","b","c","d"],"correctAnswer":0}]`
	got := QuizQuestions(in, 1)
	if got[0].Question != "Q" {
		t.Fatalf("expected the JSON array to be used, got %+v", got)
	}
}

func TestQuizQuestions_DropsInvalidItems(t *testing.T) {
	in := `[
		{"question":"ok","options":["a","b","c","d"],"correctAnswer":3},
		{"question":"five options","options":["a","b","c","d","e"],"correctAnswer":0},
		{"question":"bad index","options":["a","b","c","d"],"correctAnswer":4},
		{"options":["a","b","c","d"],"correctAnswer":0}
	]`
	got := QuizQuestions(in, 1)
	if len(got) != 1 || got[0].Question != "ok" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestQuizQuestions_TruncatesAndPads(t *testing.T) {
	item := `{"question":"Q%d","options":["a","b","c","d"],"correctAnswer":1}`
	var items []string
	for i := range 5 {
		items = append(items, strings.Replace(item, "%d", string(rune('0'+i)), 1))
	}
	five := "[" + strings.Join(items, ",") + "]"

	got := QuizQuestions(five, 3)
	if len(got) != 3 || got[2].Question != "Q2" {
		t.Fatalf("expected truncation to 3, got %+v", got)
	}

	got = QuizQuestions("["+items[0]+"]", 3)
	if len(got) != 3 {
		t.Fatalf("expected padding to 3, got %d", len(got))
	}
	fb := FallbackQuiz()
	if got[0].Question != "Q0" || got[1].Question != fb[0].Question || got[2].Question != fb[1].Question {
		t.Fatalf("unexpected padding %+v", got)
	}
}

func TestFallbackQuizIsACopy(t *testing.T) {
	a := FallbackQuiz()
	a[0].Options[0] = "changed"
	if FallbackQuiz()[0].Options[0] == "changed" {
		t.Fatal("FallbackQuiz must return an independent copy")
	}
	if len(a) != 3 {
		t.Fatalf("fallback quiz has %d questions, want 3", len(a))
	}
}

func TestText(t *testing.T) {
	if got := Text("  Finn is a fox.\n", ChatUnsure); got != "Finn is a fox." {
		t.Fatalf("got %q", got)
	}
	if got := Text(" \n\t", ChatUnsure); got != ChatUnsure {
		t.Fatalf("expected canned reply, got %q", got)
	}
}
