package tutor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/vibekids/internal/apperr"
	"github.com/abhisek/vibekids/internal/llm"
	"github.com/abhisek/vibekids/internal/parse"
	"github.com/abhisek/vibekids/internal/prompts"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, mock *llm.MockProvider) (*Service, *store.Store) {
	t.Helper()
	s, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	_, err = s.Seed(context.Background(), time.Now())
	require.NoError(t, err)
	return NewService(s.Stories(), s.Chat(), mock, nil), s
}

func TestSendChatMessage_StoresBothMessages(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText("Finn is a little fox with orange fur!")
	svc, s := newTestService(t, mock)
	ctx := context.Background()

	pos := 12
	ex, err := svc.SendChatMessage(ctx, ChatRequest{
		UserID:          store.DemoChildID,
		StoryID:         store.DemoStoryID,
		Message:         "Who is Finn?",
		CurrentPosition: &pos,
	})
	require.NoError(t, err)
	assert.Equal(t, store.ChatUser, ex.UserMessage.Role)
	assert.Equal(t, "Finn is a little fox with orange fur!", ex.AssistantMessage.Content)

	msgs, err := s.Chat().List(ctx, store.DemoChildID, store.DemoStoryID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Who is Finn?", msgs[0].Content)
	assert.Equal(t, store.ChatAssistant, msgs[1].Role)

	prompt := mock.Calls[0].Messages[0].Content
	assert.Contains(t, prompt, "Recent conversation:\nNone", "the new message is not repeated as history")
	assert.Contains(t, prompt, "Child's message: Who is Finn?")
}

func TestSendChatMessage_CarriesHistory(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText("first answer")
	mock.AddText("second answer")
	svc, _ := newTestService(t, mock)
	ctx := context.Background()

	req := ChatRequest{UserID: store.DemoChildID, StoryID: store.DemoStoryID, Message: "Who is Finn?"}
	_, err := svc.SendChatMessage(ctx, req)
	require.NoError(t, err)

	req.Message = `What does "curious" mean?`
	_, err = svc.SendChatMessage(ctx, req)
	require.NoError(t, err)

	prompt := mock.Calls[1].Messages[0].Content
	assert.Contains(t, prompt, "Child: Who is Finn?\nReading Buddy: first answer")
	assert.Contains(t, prompt, `the word "curious" means`)
}

func TestSendChatMessage_FailureBecomesApology(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddError(&llm.ErrAllModelsExhausted{Models: []string{"a"}})
	svc, _ := newTestService(t, mock)

	ex, err := svc.SendChatMessage(context.Background(), ChatRequest{
		UserID: store.DemoChildID, StoryID: store.DemoStoryID, Message: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, parse.ChatApology, ex.AssistantMessage.Content)
}

func TestSendChatMessage_EmptyReplyIsCanned(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText("   ")
	svc, _ := newTestService(t, mock)

	ex, err := svc.SendChatMessage(context.Background(), ChatRequest{
		UserID: store.DemoChildID, StoryID: store.DemoStoryID, Message: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, parse.ChatUnsure, ex.AssistantMessage.Content)
}

func TestSendChatMessage_Rejections(t *testing.T) {
	mock := llm.NewMockProvider()
	svc, s := newTestService(t, mock)
	ctx := context.Background()

	tests := []ChatRequest{
		{StoryID: store.DemoStoryID, Message: "hi"},
		{UserID: store.DemoChildID, Message: "hi"},
		{UserID: store.DemoChildID, StoryID: store.DemoStoryID},
		{UserID: store.DemoChildID, StoryID: store.DemoStoryID, Message: "   \n\t"},
		{UserID: store.DemoChildID, StoryID: store.DemoStoryID, Message: strings.Repeat("a", MaxMessageLength+1)},
	}
	for _, req := range tests {
		_, err := svc.SendChatMessage(ctx, req)
		assert.True(t, apperr.IsValidation(err), "request %+v", req)
	}

	_, err := svc.SendChatMessage(ctx, ChatRequest{UserID: store.DemoChildID, StoryID: "nope", Message: "hi"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Zero(t, mock.CallCount())
	msgs, err := s.Chat().List(ctx, store.DemoChildID, "nope")
	require.NoError(t, err)
	assert.Empty(t, msgs, "nothing is stored for a rejected message")
}

func TestClearHistory(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText("hello")
	svc, _ := newTestService(t, mock)
	ctx := context.Background()

	_, err := svc.SendChatMessage(ctx, ChatRequest{UserID: store.DemoChildID, StoryID: store.DemoStoryID, Message: "hi"})
	require.NoError(t, err)
	require.NoError(t, svc.ClearHistory(ctx, store.DemoChildID, store.DemoStoryID))

	msgs, err := svc.History(ctx, store.DemoChildID, store.DemoStoryID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSuggest(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText("What will Finn find next?")
	mock.AddError(&llm.ErrProviderUnavailable{})
	svc, _ := newTestService(t, mock)
	ctx := context.Background()

	line, err := svc.Suggest(ctx, store.DemoStoryID, 40)
	require.NoError(t, err)
	assert.Equal(t, "What will Finn find next?", line)
	assert.Contains(t, mock.Calls[0].Messages[0].Content, "fewer than 15 words")

	line, err = svc.Suggest(ctx, store.DemoStoryID, 40)
	require.NoError(t, err)
	assert.Equal(t, parse.SuggestionDefault, line)

	_, err = svc.Suggest(ctx, "missing", 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMathFeedback(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText("Super! 7 + 5 = 12.")
	mock.AddError(&llm.ErrProviderUnavailable{})
	svc, _ := newTestService(t, mock)
	ctx := context.Background()

	got, err := svc.MathFeedback(ctx, MathFeedbackRequest{Problem: "7 + 5", UserAnswer: "12", CorrectAnswer: "12", IsCorrect: true})
	require.NoError(t, err)
	assert.Equal(t, "Super! 7 + 5 = 12.", got)

	got, err = svc.MathFeedback(ctx, MathFeedbackRequest{Problem: "7 + 5", UserAnswer: "11", CorrectAnswer: "12"})
	require.NoError(t, err)
	assert.Equal(t, parse.MathFeedbackIncorrect, got)

	_, err = svc.MathFeedback(ctx, MathFeedbackRequest{Problem: ""})
	assert.True(t, apperr.IsValidation(err))
	_, err = svc.MathFeedback(ctx, MathFeedbackRequest{Problem: strings.Repeat("1", MaxProblemLength+1)})
	assert.True(t, apperr.IsValidation(err))
}

func TestAskUsesLegacyPrompt(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText("It is by the old oak tree.")
	svc, s := newTestService(t, mock)
	ctx := context.Background()

	story, err := s.Stories().Get(ctx, store.DemoStoryID)
	require.NoError(t, err)
	history := []prompts.Turn{{Role: "user", Content: "Who is Finn?"}, {Role: "assistant", Content: "A fox."}}
	got, err := svc.Ask(ctx, AskRequest{Story: story, History: history, Message: "Where is the pond?"})
	require.NoError(t, err)
	assert.Equal(t, "It is by the old oak tree.", got)

	prompt := mock.Calls[0].Messages[0].Content
	assert.True(t, strings.HasSuffix(prompt, "Please respond as a friendly reading buddy:"))
	assert.Contains(t, prompt, "Child: Who is Finn?")

	_, err = svc.Ask(ctx, AskRequest{Story: story, Message: "  "})
	assert.True(t, apperr.IsValidation(err))
}

func createSectionedStory(t *testing.T, s *store.Store) *store.Story {
	t.Helper()
	apples := strings.TrimSpace(strings.Repeat("apple ", 40))
	zebras := strings.TrimSpace(strings.Repeat("zebra ", 40))
	story := &store.Story{
		Title:   "Two Parts",
		Content: apples + "\n\f" + zebras,
		Sections: []store.StorySection{
			{Title: "Orchard", Content: apples, WordCount: 40},
			{Title: "Savanna", Content: zebras, WordCount: 40},
		},
		WordCount: 80,
	}
	require.NoError(t, s.Stories().Create(context.Background(), story))
	return story
}

func TestSendChatMessage_WindowFollowsSection(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText("Zebras have stripes!")
	svc, s := newTestService(t, mock)
	story := createSectionedStory(t, s)

	pos, section := 21, 1
	_, err := svc.SendChatMessage(context.Background(), ChatRequest{
		UserID:          store.DemoChildID,
		StoryID:         story.ID,
		Message:         "What animal is this?",
		CurrentPosition: &pos,
		Section:         &section,
	})
	require.NoError(t, err)

	prompt := mock.Calls[0].Messages[0].Content
	assert.Contains(t, prompt, "Story title: Two Parts: Savanna")
	assert.Contains(t, prompt, "word 21 of 40")
	window := prompt[strings.Index(prompt, "Text around where the child is reading:"):]
	window = window[:strings.Index(window, "Recent conversation:")]
	assert.Contains(t, window, "zebra")
	assert.NotContains(t, window, "apple")
}

func TestSendChatMessage_SectionOutOfRange(t *testing.T) {
	mock := llm.NewMockProvider()
	svc, s := newTestService(t, mock)
	story := createSectionedStory(t, s)
	ctx := context.Background()

	section := 2
	_, err := svc.SendChatMessage(ctx, ChatRequest{
		UserID: store.DemoChildID, StoryID: story.ID, Message: "hi", Section: &section,
	})
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, mock.CallCount())

	msgs, err := s.Chat().List(ctx, store.DemoChildID, story.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
