package parse

import "strings"

// Canned replies used when the model returns nothing usable.
const (
	ChatApology           = "Hmm, I'm having trouble thinking right now. Can you try asking again?"
	ChatUnsure            = "I'm not sure about that. Can you tell me more about what part of the story you're curious about?"
	SuggestionDefault     = "You're doing great! What do you think will happen next?"
	QuizFeedbackPass      = "Amazing job! You really understood the story. Keep up the great reading!"
	QuizFeedbackFail      = "Good try! Reading the story again can help you spot the answers. You can do it!"
	MathFeedbackCorrect   = "Great job! You got it right. Keep up the awesome work!"
	MathFeedbackIncorrect = "Nice try! Let's look at the problem again, one step at a time."
)

// Text returns the model's reply trimmed, or canned when it is empty.
func Text(raw, canned string) string {
	if t := strings.TrimSpace(raw); t != "" {
		return t
	}
	return canned
}
