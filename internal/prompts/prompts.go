// Package prompts builds the text sent to the model for every child-facing
// feature. Builders are pure: the same input always yields the same prompt.
package prompts

import (
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/vibekids/internal/llm"
	"github.com/abhisek/vibekids/internal/reading"
	"github.com/samber/lo"
)

// Persona is the system instruction shared by every builder.
const Persona = `You are a friendly reading buddy for children aged 5 to 10.

Rules:
- Use simple words and short sentences a young child can follow.
- Be warm, patient and encouraging. Celebrate effort, not just right answers.
- Keep every answer brief: two or three sentences at most.
- Answer questions about the story, its characters and its words.
- Explain new vocabulary simply, with an everyday example.
- Add a fun follow-up question when it helps the child keep reading.
- Never discuss topics that are not suitable for young children.
- If a question has nothing to do with the story, gently steer back to it.`

const (
	// HistoryTurns is how many past turns the chat prompt carries.
	HistoryTurns = 8
	// LegacyHistoryTurns is the turn limit of the windowless chat prompt.
	LegacyHistoryTurns = 6
	// WindowRadius is the number of words kept on each side of the read position.
	WindowRadius = 15
	// MaxQuizContent bounds the story text sent for quiz generation, in runes.
	MaxQuizContent = 4000
	// DefaultQuizCount is the number of questions asked for when none is given.
	DefaultQuizCount = 3
)

// Prompt is a built prompt: a stable system instruction and the dynamic text.
type Prompt struct {
	System string
	Text   string
}

// Request turns p into a single-turn model request.
func (p Prompt) Request() llm.Request {
	return llm.UserPrompt(p.System, p.Text)
}

// Turn is one message of an earlier exchange.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatInput is everything the chat reply prompt is built from.
type ChatInput struct {
	StoryTitle   string
	StoryContent string
	// Position is the index of the word the child has reached, if known.
	Position *int
	History  []Turn
	Message  string
}

// ChatReply builds the reading-buddy reply prompt.
func ChatReply(in ChatInput) Prompt {
	words := reading.Words(in.StoryContent)

	var b strings.Builder
	fmt.Fprintf(&b, "Story title: %s\n", in.StoryTitle)
	fmt.Fprintf(&b, "Story content:\n%s\n", in.StoryContent)

	if in.Position != nil && len(words) > 0 {
		pos := clamp(*in.Position, 0, len(words))
		fmt.Fprintf(&b, "\nThe child has read about %d%% of the story (word %d of %d).\n",
			percent(pos, len(words)), pos, len(words))
		fmt.Fprintf(&b, "Text around where the child is reading:\n\"%s\"\n",
			reading.Window(words, pos, WindowRadius))
	}

	b.WriteString("\nRecent conversation:\n")
	b.WriteString(formatHistory(lastTurns(in.History, HistoryTurns), "Child", "Reading Buddy"))

	fmt.Fprintf(&b, "\n\nChild's message: %s\n\n", in.Message)

	switch intent := ClassifyIntent(in.Message).(type) {
	case DefineWord:
		fmt.Fprintf(&b, "The child wants to know what the word %q means.\n", intent.Word)
		b.WriteString("Reply with:\n")
		b.WriteString("1. A simple definition a young child understands.\n")
		b.WriteString("2. One short example sentence from everyday life.\n")
		b.WriteString("3. How the word is used in this story.\n")
	default:
		b.WriteString("Reply as a friendly reading buddy, using the story and the text around the child's place.")
	}

	return Prompt{System: Persona, Text: strings.TrimRight(b.String(), "\n")}
}

// LegacyChatReply builds the older chat prompt: the whole story, a read
// position hint and the last six turns, without a text window.
func LegacyChatReply(in ChatInput) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Story Title: %s\n\n", in.StoryTitle)
	fmt.Fprintf(&b, "Story Content:\n%s\n\n", in.StoryContent)
	if in.Position != nil {
		fmt.Fprintf(&b, "The child has read up to word %d of the story.\n\n", *in.Position)
	}
	if turns := lastTurns(in.History, LegacyHistoryTurns); len(turns) > 0 {
		b.WriteString("Previous conversation:\n")
		b.WriteString(formatHistory(turns, "Child", "Reading Buddy"))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Child's question: %s\n\n", in.Message)
	b.WriteString("Please respond as a friendly reading buddy:")

	return Prompt{System: Persona, Text: b.String()}
}

// Suggestion asks for one proactive line to keep a child reading.
func Suggestion(progressPct int, excerpt string) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "The child has read %d%% of the story.\n", clamp(progressPct, 0, 100))
	fmt.Fprintf(&b, "They are reading this part:\n\"%s\"\n\n", strings.TrimSpace(excerpt))
	b.WriteString("Write ONE short, fun line (fewer than 15 words) to keep them engaged. ")
	b.WriteString("It can be a question about what happens next or a cheer for their progress. ")
	b.WriteString("Reply with the line only.")
	return Prompt{System: Persona, Text: b.String()}
}

// Quiz asks for count multiple-choice questions as a bare JSON array.
func Quiz(title, content string, count int) Prompt {
	if count <= 0 {
		count = DefaultQuizCount
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create %d multiple-choice questions about this story for a child aged 5 to 10.\n\n", count)
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "Story:\n%s\n\n", truncateRunes(content, MaxQuizContent))
	b.WriteString("Rules:\n")
	b.WriteString("- Ask about what happens in the story, its characters and simple word meanings.\n")
	b.WriteString("- Each question has exactly 4 short options and exactly one correct option.\n")
	b.WriteString("- correctAnswer is the 0-based index of the correct option (0, 1, 2 or 3).\n\n")
	b.WriteString("Respond with ONLY a JSON array and no other text, in exactly this format:\n")
	b.WriteString(`[{"question": "...", "options": ["...", "...", "...", "..."], "correctAnswer": 0}]`)
	return Prompt{System: Persona, Text: b.String()}
}

// QuizFeedback asks for a short message about a finished quiz. A pass gets a
// celebration, a fail gets encouragement that names the missed questions.
func QuizFeedback(title string, score, total int, passed bool, missed []string) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "A child just finished a quiz about %q.\n", title)
	fmt.Fprintf(&b, "Score: %d out of %d.\n\n", score, total)

	if passed {
		b.WriteString("They passed! Write 2 short, excited sentences celebrating their reading.")
		return Prompt{System: Persona, Text: b.String()}
	}

	if len(missed) > 0 {
		b.WriteString("Questions they missed:\n")
		for i, q := range missed {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
		b.WriteString("\n")
	}
	b.WriteString("They did not pass this time. Write 2 or 3 kind sentences: praise the effort, ")
	b.WriteString("give one gentle hint about what to look for when reading again, ")
	b.WriteString("and invite them to try a new quiz.")
	return Prompt{System: Persona, Text: b.String()}
}

// MathFeedback asks for feedback on one answered math problem.
func MathFeedback(problem, userAnswer, correctAnswer string, isCorrect bool) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Math problem: %s\n", problem)
	fmt.Fprintf(&b, "Child's answer: %s\n", userAnswer)
	fmt.Fprintf(&b, "Correct answer: %s\n\n", correctAnswer)

	if isCorrect {
		b.WriteString("The child got it right! Celebrate in one sentence, ")
		b.WriteString("then share one quick tip or fun fact about this kind of problem.")
	} else {
		b.WriteString("The child's answer is not right. Without making them feel bad, ")
		b.WriteString("show how to solve it in two or three small steps a young child can follow.")
	}
	return Prompt{System: Persona, Text: b.String()}
}

func lastTurns(history []Turn, n int) []Turn {
	return lo.Subset(history, -n, uint(n))
}

func formatHistory(turns []Turn, user, assistant string) string {
	if len(turns) == 0 {
		return "None"
	}
	lines := lo.Map(turns, func(t Turn, _ int) string {
		who := assistant
		if t.Role == "user" {
			who = user
		}
		return who + ": " + t.Content
	})
	return strings.Join(lines, "\n")
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}

func clamp(v, lower, upper int) int {
	return max(lower, min(v, upper))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
