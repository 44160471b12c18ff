package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func gatewayConfig(maxRetries int) GatewayConfig {
	return GatewayConfig{
		PrimaryModel:   "model-a",
		FallbackModels: []string{"model-b", "model-c"},
		MaxRetries:     maxRetries,
		DefaultBackoff: 5 * time.Second,
		MaxBackoff:     15 * time.Second,
	}
}

// recordSleeps captures requested waits without sleeping.
func recordSleeps(waits *[]time.Duration) GatewayOption {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	})
}

func rateLimited(after time.Duration) error {
	return &ErrRateLimit{RetryAfter: after, Err: errors.New("429 resource exhausted")}
}

func TestGateway_SucceedsOnPrimary(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage("Finn is a fox.")})
	var waits []time.Duration
	g := NewGateway(mock, gatewayConfig(2), nil, recordSleeps(&waits))

	resp, err := g.Call(context.Background(), "model-a", UserPrompt("sys", "who is Finn?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Finn is a fox." {
		t.Fatalf("unexpected text: %q", resp.Text())
	}
	if mock.CallCount() != 1 || mock.ModelCalls("model-a") != 1 {
		t.Fatalf("expected one call on model-a, got %d", mock.CallCount())
	}
	if len(waits) != 0 {
		t.Fatalf("expected no sleeps, got %v", waits)
	}
}

func TestGateway_FallsBackAfterRateLimits(t *testing.T) {
	// model-a is rate limited on both of its attempts, model-b answers.
	mock := NewMockProvider(
		MockResponse{Err: rateLimited(0)},
		MockResponse{Err: rateLimited(0)},
		MockResponse{Content: json.RawMessage("from b")},
	)
	var waits []time.Duration
	g := NewGateway(mock, gatewayConfig(1), nil, recordSleeps(&waits))

	resp, err := g.Call(context.Background(), "model-a", UserPrompt("", "hi"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "from b" || resp.Model != "model-b" {
		t.Fatalf("expected model-b result, got %q from %s", resp.Text(), resp.Model)
	}
	if got := mock.ModelCalls("model-a"); got != 2 {
		t.Fatalf("attempts on model-a = %d, want maxRetries+1 = 2", got)
	}
	// One sleep between the two model-a attempts, none when switching models.
	if len(waits) != 1 || waits[0] != 5*time.Second {
		t.Fatalf("waits = %v, want [5s]", waits)
	}
}

func TestGateway_FatalErrorDoesNotFallBack(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("connection refused")}},
		MockResponse{Content: json.RawMessage("never reached")},
	)
	g := NewGateway(mock, gatewayConfig(2), nil, WithSleep(func(context.Context, time.Duration) error { return nil }))

	_, err := g.Call(context.Background(), "model-a", UserPrompt("", "hi"))
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %T (%v)", err, err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestGateway_AllModelsExhausted(t *testing.T) {
	mock := NewMockProvider()
	for range 6 {
		mock.AddError(rateLimited(0))
	}
	var waits []time.Duration
	g := NewGateway(mock, gatewayConfig(1), nil, recordSleeps(&waits))

	_, err := g.Call(context.Background(), "model-a", UserPrompt("", "hi"))
	var exhausted *ErrAllModelsExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ErrAllModelsExhausted, got %T (%v)", err, err)
	}
	if len(exhausted.Models) != 3 {
		t.Fatalf("models = %v, want 3 candidates", exhausted.Models)
	}
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatal("expected last rate-limit error to be wrapped")
	}
	if mock.CallCount() != 6 {
		t.Fatalf("expected 6 calls, got %d", mock.CallCount())
	}
	for _, m := range []string{"model-a", "model-b", "model-c"} {
		if got := mock.ModelCalls(m); got != 2 {
			t.Errorf("calls on %s = %d, want 2", m, got)
		}
	}
	if len(waits) != 3 {
		t.Fatalf("expected one sleep per model, got %v", waits)
	}
}

func TestGateway_BackoffUsesHintAndCaps(t *testing.T) {
	g := NewGateway(NewMockProvider(), gatewayConfig(3), nil)

	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"hint", rateLimited(7 * time.Second), 7 * time.Second},
		{"hint capped", rateLimited(40 * time.Second), 15 * time.Second},
		{"no hint", rateLimited(0), 5 * time.Second},
		{"not rate limited", errors.New("boom"), 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.backoff(tt.err); got != tt.want {
				t.Fatalf("backoff = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGateway_PlanIsFlatAndOrdered(t *testing.T) {
	g := NewGateway(NewMockProvider(), gatewayConfig(1), nil)
	plan := g.Plan("model-b")

	want := []Attempt{
		{"model-b", 0}, {"model-b", 1},
		{"model-c", 0}, {"model-c", 1},
	}
	if len(plan) != len(want) {
		t.Fatalf("plan = %v, want %v", plan, want)
	}
	for i := range want {
		if plan[i] != want[i] {
			t.Fatalf("plan[%d] = %v, want %v", i, plan[i], want[i])
		}
	}
}

func TestGateway_SleepHonorsCancellation(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: rateLimited(time.Second)})
	g := NewGateway(mock, gatewayConfig(1), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Call(ctx, "model-a", UserPrompt("", "hi"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// blockingProvider waits for its context to end on every call.
type blockingProvider struct{ calls int }

func (p *blockingProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	p.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *blockingProvider) ModelID() string { return "blocking" }

func TestGateway_TimeoutEndsAttempt(t *testing.T) {
	p := &blockingProvider{}
	g := NewGateway(p, gatewayConfig(1), nil, WithTimeout(20*time.Millisecond))

	_, err := g.Call(context.Background(), "model-a", UserPrompt("", "hi"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("a timed out attempt is not retried, got %d calls", p.calls)
	}
}

func TestGateway_TimeoutIsPerAttempt(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: rateLimited(0)},
		MockResponse{Content: json.RawMessage("ok")},
	)
	// The wait alone outlasts the timeout; only attempts are bounded.
	realWait := WithSleep(func(ctx context.Context, d time.Duration) error {
		time.Sleep(40 * time.Millisecond)
		return ctx.Err()
	})
	g := NewGateway(mock, gatewayConfig(1), nil, WithTimeout(20*time.Millisecond), realWait)

	resp, err := g.Call(context.Background(), "model-a", UserPrompt("", "hi"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "ok" || mock.ModelCalls("model-a") != 2 {
		t.Fatalf("expected the retry on model-a to answer, got %q after %d calls", resp.Text(), mock.CallCount())
	}
}

func TestGateway_GenerateUsesConfiguredPrimary(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage("ok")})
	g := NewGateway(mock, gatewayConfig(0), nil)

	if _, err := g.Generate(context.Background(), UserPrompt("", "hi")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.ModelCalls("model-a") != 1 {
		t.Fatalf("expected call on primary model-a")
	}
	if g.ModelID() != "model-a" {
		t.Fatalf("ModelID = %q", g.ModelID())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomeSuccess},
		{rateLimited(0), OutcomeRetryable},
		{&ErrProviderUnavailable{}, OutcomeFatal},
		{&ErrInvalidResponse{Err: errors.New("bad")}, OutcomeFatal},
		{context.DeadlineExceeded, OutcomeFatal},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
