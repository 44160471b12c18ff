package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// GatewayConfig configures model fallback and rate-limit retries.
type GatewayConfig struct {
	// PrimaryModel is tried first when a call does not name a model.
	PrimaryModel string

	// FallbackModels are tried in order once a model's attempts run out.
	FallbackModels []string

	// MaxRetries is the number of extra attempts per model after the
	// first. Each model gets MaxRetries+1 attempts.
	MaxRetries int

	// DefaultBackoff is the wait when the error has no retry hint.
	DefaultBackoff time.Duration

	// MaxBackoff caps every wait, including server hints.
	MaxBackoff time.Duration
}

// DefaultGatewayConfig returns the stock Gemini fallback chain.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		PrimaryModel:   "gemini-2.5-flash",
		FallbackModels: []string{"gemini-2.0-flash", "gemini-2.5-flash-lite"},
		MaxRetries:     2,
		DefaultBackoff: 5 * time.Second,
		MaxBackoff:     15 * time.Second,
	}
}

// Outcome classifies the result of a single attempt.
type Outcome int

const (
	// OutcomeSuccess ends the call with the response.
	OutcomeSuccess Outcome = iota
	// OutcomeRetryable means the model was rate limited.
	OutcomeRetryable
	// OutcomeFatal ends the call with the error. No fallback is tried.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// Classify maps an attempt's error to its outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	var rl *ErrRateLimit
	if errors.As(err, &rl) {
		return OutcomeRetryable
	}
	return OutcomeFatal
}

// Attempt is one (model, try) pair of a call plan.
type Attempt struct {
	Model string
	Try   int // 0 for the first attempt on Model
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Gateway is a Provider decorator that walks a flat plan of
// (model, attempt) pairs. A rate-limited attempt sleeps and retries the
// same model until its attempts run out, then moves to the next model.
// Any other failure aborts the call. Attempts never overlap.
type Gateway struct {
	inner   Provider
	config  GatewayConfig
	logger  *zap.Logger
	sleep   SleepFunc
	timeout time.Duration
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(fn SleepFunc) GatewayOption {
	return func(g *Gateway) { g.sleep = fn }
}

// WithTimeout bounds each attempt on a model. Waits between attempts are
// not counted; the caller's context bounds the whole call.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.timeout = d }
}

// NewGateway wraps p with model fallback and rate-limit retries.
func NewGateway(p Provider, cfg GatewayConfig, logger *zap.Logger, opts ...GatewayOption) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	g := &Gateway{inner: p, config: cfg, logger: logger, sleep: sleepContext}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Plan returns the ordered attempts for a call starting at primary.
func (g *Gateway) Plan(primary string) []Attempt {
	models := g.candidates(primary)
	plan := make([]Attempt, 0, len(models)*(g.config.MaxRetries+1))
	for _, m := range models {
		for try := 0; try <= g.config.MaxRetries; try++ {
			plan = append(plan, Attempt{Model: m, Try: try})
		}
	}
	return plan
}

func (g *Gateway) candidates(primary string) []string {
	models := []string{primary}
	for _, m := range g.config.FallbackModels {
		if m != primary && m != "" {
			models = append(models, m)
		}
	}
	return models
}

// Call runs req against primary and then the fallback models.
func (g *Gateway) Call(ctx context.Context, primary string, req Request) (*Response, error) {
	if primary == "" {
		primary = g.config.PrimaryModel
	}
	var lastErr error
	for _, a := range g.Plan(primary) {
		if a.Try > 0 {
			wait := g.backoff(lastErr)
			g.logger.Warn("model rate limited, retrying",
				zap.String("model", a.Model),
				zap.Int("attempt", a.Try+1),
				zap.Duration("wait", wait),
			)
			if err := g.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		req.Model = a.Model
		resp, err := g.attempt(withAttempt(ctx, primary, a), req)

		switch Classify(err) {
		case OutcomeSuccess:
			if a.Model != primary {
				g.logger.Info("served by fallback model",
					zap.String("primary", primary),
					zap.String("model", a.Model),
				)
			}
			return resp, nil
		case OutcomeFatal:
			return nil, err
		}
		lastErr = err
	}

	return nil, &ErrAllModelsExhausted{Models: g.candidates(primary), Err: lastErr}
}

func (g *Gateway) attempt(ctx context.Context, req Request) (*Response, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.inner.Generate(ctx, req)
}

// backoff returns the wait before retrying after err: the server's hint,
// or the default.
func (g *Gateway) backoff(err error) time.Duration {
	wait := g.config.DefaultBackoff
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		wait = rl.RetryAfter
	}

	if g.config.MaxBackoff > 0 && wait > g.config.MaxBackoff {
		wait = g.config.MaxBackoff
	}
	return wait
}

// Generate calls the request's model, or the configured primary model.
func (g *Gateway) Generate(ctx context.Context, req Request) (*Response, error) {
	return g.Call(ctx, req.Model, req)
}

func (g *Gateway) ModelID() string {
	if g.config.PrimaryModel != "" {
		return g.config.PrimaryModel
	}
	return g.inner.ModelID()
}
