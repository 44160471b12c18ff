package llm

import "context"

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	attemptKey contextKey = "llm_attempt"
)

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// attemptInfo is what the gateway tells the layers below it about the
// attempt in flight.
type attemptInfo struct {
	Primary string
	Attempt
}

func withAttempt(ctx context.Context, primary string, a Attempt) context.Context {
	return context.WithValue(ctx, attemptKey, attemptInfo{Primary: primary, Attempt: a})
}

// AttemptFrom returns the gateway attempt running under ctx and the model
// the call started on. ok is false outside a gateway.
func AttemptFrom(ctx context.Context) (a Attempt, primary string, ok bool) {
	info, ok := ctx.Value(attemptKey).(attemptInfo)
	return info.Attempt, info.Primary, ok
}
