package cmd

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/vibekids/internal/llm"
	"github.com/abhisek/vibekids/internal/quiz"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/tutor"
)

const readQuizJSON = `[
 {"question":"Who is Finn?","options":["a fox","a frog","a bird","a bear"],"correctAnswer":0},
 {"question":"What color is Finn?","options":["blue","orange","green","white"],"correctAnswer":1},
 {"question":"Where did Finn go?","options":["school","the moon","the rainbow pond","a castle"],"correctAnswer":2}
]`

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.Seed(context.Background(), time.Now())
	require.NoError(t, err)
	return st
}

func input(s string) *bufio.Scanner {
	return bufio.NewScanner(strings.NewReader(s))
}

func TestTakeQuiz_RepromptsUntilValid(t *testing.T) {
	st := seededStore(t)
	mock := llm.NewMockProvider()
	mock.AddText(readQuizJSON)
	svc := quiz.NewService(st.Stories(), st.Quizzes(), mock, quiz.DefaultConfig(), nil)
	var out bytes.Buffer

	in := quiz.GenerateInput{UserID: store.DemoChildID, StoryID: store.DemoStoryID}
	err := takeQuiz(context.Background(), svc, in, input("\nabc\n9\n0\n1\n2\n3\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, 4, strings.Count(out.String(), "Please type a number from 1 to 4."))
	assert.Contains(t, out.String(), "Score: 3/3")

	done, err := st.Quizzes().ListCompleted(context.Background(), store.DemoChildID)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, 3, *done[0].Score)
}

func TestTakeQuiz_RetryAfterFailIsFresh(t *testing.T) {
	st := seededStore(t)
	mock := llm.NewMockProvider()
	mock.AddText(readQuizJSON)
	mock.AddText("Let's read it again!")
	mock.AddText(readQuizJSON)
	svc := quiz.NewService(st.Stories(), st.Quizzes(), mock, quiz.DefaultConfig(), nil)
	var out bytes.Buffer

	in := quiz.GenerateInput{UserID: store.DemoChildID, StoryID: store.DemoStoryID}
	err := takeQuiz(context.Background(), svc, in, input("4\n4\n4\ny\n1\n2\n3\n"), &out)
	require.NoError(t, err)

	done, err := st.Quizzes().ListCompleted(context.Background(), store.DemoChildID)
	require.NoError(t, err)
	require.Len(t, done, 2)
	assert.NotEqual(t, done[0].ID, done[1].ID)
	assert.Contains(t, out.String(), "Score: 0/3")
	assert.Contains(t, out.String(), "Score: 3/3")
}

func TestTakeQuiz_EndOfInputLeavesQuizOpen(t *testing.T) {
	st := seededStore(t)
	mock := llm.NewMockProvider()
	mock.AddText(readQuizJSON)
	svc := quiz.NewService(st.Stories(), st.Quizzes(), mock, quiz.DefaultConfig(), nil)
	var out bytes.Buffer

	in := quiz.GenerateInput{UserID: store.DemoChildID, StoryID: store.DemoStoryID}
	require.NoError(t, takeQuiz(context.Background(), svc, in, input("1\n"), &out))
	assert.Contains(t, out.String(), "wait for you")

	_, err := st.Quizzes().FindPending(context.Background(), store.DemoChildID, store.DemoStoryID, nil)
	assert.NoError(t, err, "the quiz stays pending")
}

func TestAskAbout_UsesStoredConversation(t *testing.T) {
	st := seededStore(t)
	ctx := context.Background()
	require.NoError(t, st.Chat().Append(ctx, &store.ChatMessage{
		UserID: store.DemoChildID, StoryID: store.DemoStoryID, Role: store.ChatUser,
		Content: "Who is Finn?", CreatedAt: time.Now(),
	}))

	mock := llm.NewMockProvider()
	mock.AddText("Near the old oak tree.")
	mock.AddText("Yes, a brave one!")
	svc := tutor.NewService(st.Stories(), st.Chat(), mock, nil)
	story, err := st.Stories().Get(ctx, store.DemoStoryID)
	require.NoError(t, err)
	var out bytes.Buffer

	err = askAbout(ctx, svc, st.Chat(), store.DemoChildID, story, nil, 10,
		input("Where is the pond?\nIs Finn a fox?\n\nnot asked\n"), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Near the old oak tree.")
	assert.Contains(t, out.String(), "Yes, a brave one!")
	require.Equal(t, 2, mock.CallCount())
	assert.Contains(t, mock.Calls[0].Messages[0].Content, "Child: Who is Finn?")
	assert.Contains(t, mock.Calls[1].Messages[0].Content, "Reading Buddy: Near the old oak tree.")
}
