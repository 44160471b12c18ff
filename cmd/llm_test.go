package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/vibekids/internal/store"
)

func eventStore(t *testing.T, events ...store.LLMRequestEventData) *store.Store {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	for _, e := range events {
		require.NoError(t, st.EventRepo().AppendLLMRequest(context.Background(), e))
	}
	return st
}

func TestWriteLLMStats_ShowsFallbackShareAndRateLimits(t *testing.T) {
	st := eventStore(t,
		store.LLMRequestEventData{Model: "gemini-2.5-flash", Purpose: "chat", Attempt: 1, RateLimited: true, ErrorMessage: "429"},
		store.LLMRequestEventData{Model: "gemini-2.0-flash", Purpose: "chat", Attempt: 1, Fallback: true, Success: true, InputTokens: 100, OutputTokens: 20},
		store.LLMRequestEventData{Model: "gemini-2.5-flash", Purpose: "quiz", Attempt: 1, Success: true, InputTokens: 300, OutputTokens: 90},
	)
	var out bytes.Buffer
	require.NoError(t, writeLLMStats(context.Background(), &out, st.EventRepo()))

	lines := strings.Split(out.String(), "\n")
	row := func(prefix string) []string {
		for _, l := range lines {
			if strings.HasPrefix(l, prefix) {
				return strings.Fields(l)
			}
		}
		t.Fatalf("no row %q in:\n%s", prefix, out.String())
		return nil
	}
	// Purpose, Attempts, Answered, Fallback, Rate limited, Failed.
	assert.Equal(t, []string{"chat", "2", "1", "100%", "1", "0"}, row("chat "))
	assert.Equal(t, []string{"quiz", "1", "1", "0%", "0", "0"}, row("quiz "))
	assert.Equal(t, []string{"TOTAL", "3", "2", "50%", "1", "0"}, row("TOTAL  "))
	assert.Contains(t, out.String(), "gemini-2.0-flash")
	assert.NotContains(t, out.String(), "No pricing for")
}

func TestWriteLLMStats_Empty(t *testing.T) {
	st := eventStore(t)
	var out bytes.Buffer
	require.NoError(t, writeLLMStats(context.Background(), &out, st.EventRepo()))
	assert.Equal(t, "No model calls recorded yet.\n", out.String())
}

func TestWriteAttempts_NamesOutcomes(t *testing.T) {
	st := eventStore(t,
		store.LLMRequestEventData{Model: "gemini-2.5-flash", Purpose: "chat", Attempt: 2, RateLimited: true},
		store.LLMRequestEventData{Model: "gemini-2.0-flash", Purpose: "chat", Attempt: 1, Fallback: true, Success: true},
		store.LLMRequestEventData{Model: "mock", Purpose: "suggestion", Success: true},
	)
	events, err := st.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{Purpose: "chat"})
	require.NoError(t, err)

	var out bytes.Buffer
	writeAttempts(&out, events)
	assert.Contains(t, out.String(), "rate limited")
	assert.Contains(t, out.String(), "fallback")
	assert.NotContains(t, out.String(), "suggestion")

	out.Reset()
	writeAttempt(&out, &events[0])
	assert.Contains(t, out.String(), "Outcome:   fallback")
	assert.Contains(t, out.String(), "Attempt:   1 on this model")
	assert.Contains(t, out.String(), "(not captured)")
}
