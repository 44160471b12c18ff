package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/vibekids/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeEventRepo struct {
	store.EventRepo
	events []store.LLMRequestEventData
	err    error
}

func (f *fakeEventRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	f.events = append(f.events, data)
	return f.err
}

func TestLoggingProvider_RecordsEachCall(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage("hello"), Usage: Usage{InputTokens: 12, OutputTokens: 3}},
		MockResponse{Err: rateLimited(0)},
	)
	repo := &fakeEventRepo{}
	p := WithLogging(mock, repo, nil)

	ctx := WithPurpose(context.Background(), "chat")
	if _, err := p.Generate(ctx, Request{Model: "gemini-2.5-flash", Messages: []Message{{Role: RoleUser, Content: "hi"}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, Request{Model: "gemini-2.0-flash"}); err == nil {
		t.Fatal("expected error")
	}

	if len(repo.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(repo.events))
	}
	first := repo.events[0]
	if !first.Success || first.Purpose != "chat" || first.Model != "gemini-2.5-flash" || first.InputTokens != 12 {
		t.Errorf("unexpected first event: %+v", first)
	}
	if first.ResponseBody != "hello" {
		t.Errorf("response body = %q", first.ResponseBody)
	}
	second := repo.events[1]
	if second.Success || second.ErrorMessage == "" || second.Model != "gemini-2.0-flash" {
		t.Errorf("unexpected second event: %+v", second)
	}
}

func TestLoggingProvider_EventFailureDoesNotFailCall(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mock := NewMockProvider(MockResponse{Content: json.RawMessage("ok")})
	repo := &fakeEventRepo{err: errors.New("disk full")}
	p := WithLogging(mock, repo, zap.New(core))

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "ok" {
		t.Fatalf("unexpected text %q", resp.Text())
	}
	if logs.FilterMessage("failed to record LLM request event").Len() != 1 {
		t.Fatalf("expected a warning about the failed event write, got %v", logs.All())
	}
}

func TestLoggingProvider_RecordsGatewayAttempts(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: rateLimited(0)},
		MockResponse{Content: json.RawMessage("hi")},
	)
	repo := &fakeEventRepo{}
	g := NewGateway(WithLogging(mock, repo, nil), gatewayConfig(0), nil,
		WithSleep(func(context.Context, time.Duration) error { return nil }))

	if _, err := g.Generate(WithPurpose(context.Background(), "chat"), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(repo.events))
	}
	limited, served := repo.events[0], repo.events[1]
	if !limited.RateLimited || limited.Fallback || limited.Attempt != 1 {
		t.Errorf("rate-limited attempt = %+v", limited)
	}
	if served.RateLimited || !served.Fallback || served.Attempt != 1 || !served.Success {
		t.Errorf("fallback attempt = %+v", served)
	}
}

func TestLoggingProvider_NoAttemptOutsideGateway(t *testing.T) {
	repo := &fakeEventRepo{}
	p := WithLogging(NewMockProvider(MockResponse{Content: json.RawMessage("ok")}), repo, nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e := repo.events[0]; e.Attempt != 0 || e.Fallback || e.RateLimited {
		t.Errorf("direct call event = %+v", e)
	}
}
