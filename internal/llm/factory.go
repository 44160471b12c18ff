package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/vibekids/internal/store"
	"go.uber.org/zap"
)

// NewProvider creates the model-call gateway from configuration.
// The chain is caller → gateway → logging → base, so every attempt the
// gateway makes is logged and recorded on its own.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, logger *zap.Logger) (*Gateway, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	gw := cfg.Gateway
	if cfg.Provider != "gemini" {
		// The fallback chain names Gemini models; other providers run
		// their configured model only.
		gw.PrimaryModel = base.ModelID()
		gw.FallbackModels = nil
	}

	logged := WithLogging(base, eventRepo, logger)
	return NewGateway(logged, gw, logger, WithTimeout(cfg.Timeout)), nil
}

// NewProviderFromEnv discovers a provider from standard API key variables,
// falling back to VIBEKIDS_* configuration.
func NewProviderFromEnv(ctx context.Context, eventRepo store.EventRepo, logger *zap.Logger) (*Gateway, error) {
	cfg, ok := DiscoverConfig()
	if !ok {
		cfg = ConfigFromEnv()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewProvider(ctx, cfg, eventRepo, logger)
}
