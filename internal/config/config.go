// Package config loads layered settings: defaults, then a config file,
// then VIBEKIDS_* environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/vibekids/internal/llm"
	"github.com/abhisek/vibekids/internal/quiz"
	"github.com/abhisek/vibekids/internal/reading"
	"github.com/abhisek/vibekids/internal/render"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VIBEKIDS"

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Log     LogConfig     `mapstructure:"log"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Reading ReadingConfig `mapstructure:"reading"`
	Quiz    QuizConfig    `mapstructure:"quiz"`
	Render  RenderConfig  `mapstructure:"render"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DBConfig struct {
	// Path is the SQLite file. Empty means the default data directory.
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LLMConfig struct {
	Provider         string        `mapstructure:"provider"`
	GeminiAPIKey     string        `mapstructure:"gemini_api_key"`
	GeminiModel      string        `mapstructure:"gemini_model"`
	OpenAIAPIKey     string        `mapstructure:"openai_api_key"`
	OpenAIModel      string        `mapstructure:"openai_model"`
	OpenAIBaseURL    string        `mapstructure:"openai_base_url"`
	AnthropicAPIKey  string        `mapstructure:"anthropic_api_key"`
	AnthropicModel   string        `mapstructure:"anthropic_model"`
	OpenRouterAPIKey string        `mapstructure:"openrouter_api_key"`
	OpenRouterModel  string        `mapstructure:"openrouter_model"`
	PrimaryModel     string        `mapstructure:"primary_model"`
	FallbackModels   []string      `mapstructure:"fallback_models"`
	MaxRetries       int           `mapstructure:"max_retries"`
	DefaultBackoff   time.Duration `mapstructure:"default_backoff"`
	MaxBackoff       time.Duration `mapstructure:"max_backoff"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type ReadingConfig struct {
	BaseTick      time.Duration `mapstructure:"base_tick"`
	AutoStride    int           `mapstructure:"auto_stride"`
	CursorStride  int           `mapstructure:"cursor_stride"`
	CompleteRatio float64       `mapstructure:"complete_ratio"`
	SkipWords     int           `mapstructure:"skip_words"`
}

type QuizConfig struct {
	QuestionCount int     `mapstructure:"question_count"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	Temperature   float64 `mapstructure:"temperature"`
}

type RenderConfig struct {
	Command string        `mapstructure:"command"`
	Args    []string      `mapstructure:"args"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.request_timeout", 2*time.Minute)

	v.SetDefault("db.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	llmDefaults := llm.DefaultConfig()
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.gemini_model", llmDefaults.Gemini.Model)
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.openai_model", llmDefaults.OpenAI.Model)
	v.SetDefault("llm.openai_base_url", "")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.anthropic_model", llmDefaults.Anthropic.Model)
	v.SetDefault("llm.openrouter_api_key", "")
	v.SetDefault("llm.openrouter_model", llmDefaults.OpenRouter.Model)
	v.SetDefault("llm.primary_model", llmDefaults.Gateway.PrimaryModel)
	v.SetDefault("llm.fallback_models", llmDefaults.Gateway.FallbackModels)
	v.SetDefault("llm.max_retries", llmDefaults.Gateway.MaxRetries)
	v.SetDefault("llm.default_backoff", llmDefaults.Gateway.DefaultBackoff)
	v.SetDefault("llm.max_backoff", llmDefaults.Gateway.MaxBackoff)
	v.SetDefault("llm.timeout", llmDefaults.Timeout)

	rd := reading.DefaultConfig()
	v.SetDefault("reading.base_tick", rd.BaseTick)
	v.SetDefault("reading.auto_stride", rd.AutoStride)
	v.SetDefault("reading.cursor_stride", rd.CursorStride)
	v.SetDefault("reading.complete_ratio", rd.CompleteRatio)
	v.SetDefault("reading.skip_words", rd.SkipWords)

	qz := quiz.DefaultConfig()
	v.SetDefault("quiz.question_count", qz.QuestionCount)
	v.SetDefault("quiz.max_tokens", qz.MaxTokens)
	v.SetDefault("quiz.temperature", qz.Temperature)

	v.SetDefault("render.command", "")
	v.SetDefault("render.args", []string{})
	v.SetDefault("render.timeout", render.DefaultTimeout)
}

// New returns a viper instance with defaults, config search paths and
// environment binding in place. Flags are bound by the caller.
func New(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("vibekids")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/vibekids")
		v.AddConfigPath("/etc/vibekids")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, if any, and decodes v.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	switch {
	case c.Reading.BaseTick <= 0:
		return fmt.Errorf("reading.base_tick must be positive")
	case c.Reading.AutoStride <= 0 || c.Reading.CursorStride <= 0:
		return fmt.Errorf("reading strides must be positive")
	case c.Reading.CompleteRatio <= 0 || c.Reading.CompleteRatio > 1:
		return fmt.Errorf("reading.complete_ratio must be in (0, 1]")
	case c.Quiz.QuestionCount <= 0:
		return fmt.Errorf("quiz.question_count must be positive")
	case c.LLM.MaxRetries < 0:
		return fmt.Errorf("llm.max_retries must not be negative")
	}
	return nil
}

// LLMProvider builds the provider configuration. Without an explicit
// provider or key it checks the standard API-key variables.
func (c *Config) LLMProvider() (llm.Config, error) {
	l := c.LLM
	cfg := llm.DefaultConfig()

	if l.Provider == "" && l.GeminiAPIKey == "" && l.OpenAIAPIKey == "" &&
		l.AnthropicAPIKey == "" && l.OpenRouterAPIKey == "" {
		if found, ok := llm.DiscoverConfig(); ok {
			cfg = found
		}
	} else {
		cfg.Provider = l.Provider
		if cfg.Provider == "" {
			cfg.Provider = providerForKeys(l)
		}
		cfg.Gemini.APIKey = l.GeminiAPIKey
		cfg.OpenAI.APIKey = l.OpenAIAPIKey
		cfg.OpenAI.BaseURL = l.OpenAIBaseURL
		cfg.Anthropic.APIKey = l.AnthropicAPIKey
		cfg.OpenRouter.APIKey = l.OpenRouterAPIKey
	}

	cfg.Gemini.Model = l.GeminiModel
	cfg.OpenAI.Model = l.OpenAIModel
	cfg.Anthropic.Model = l.AnthropicModel
	cfg.OpenRouter.Model = l.OpenRouterModel
	cfg.Gateway = llm.GatewayConfig{
		PrimaryModel:   l.PrimaryModel,
		FallbackModels: l.FallbackModels,
		MaxRetries:     l.MaxRetries,
		DefaultBackoff: l.DefaultBackoff,
		MaxBackoff:     l.MaxBackoff,
	}
	cfg.Timeout = l.Timeout

	if err := cfg.Validate(); err != nil {
		return llm.Config{}, err
	}
	return cfg, nil
}

func providerForKeys(l LLMConfig) string {
	switch {
	case l.GeminiAPIKey != "":
		return "gemini"
	case l.OpenAIAPIKey != "":
		return "openai"
	case l.AnthropicAPIKey != "":
		return "anthropic"
	case l.OpenRouterAPIKey != "":
		return "openrouter"
	}
	return ""
}

// ReadingTracker converts the reading section.
func (c *Config) ReadingTracker() reading.Config {
	return reading.Config{
		BaseTick:      c.Reading.BaseTick,
		AutoStride:    c.Reading.AutoStride,
		CursorStride:  c.Reading.CursorStride,
		CompleteRatio: c.Reading.CompleteRatio,
		SkipWords:     c.Reading.SkipWords,
	}
}

// QuizService converts the quiz section.
func (c *Config) QuizService() quiz.Config {
	return quiz.Config{
		QuestionCount: c.Quiz.QuestionCount,
		MaxTokens:     c.Quiz.MaxTokens,
		Temperature:   c.Quiz.Temperature,
	}
}

// Renderer converts the render section.
func (c *Config) Renderer() render.Config {
	return render.Config{Command: c.Render.Command, Args: c.Render.Args, Timeout: c.Render.Timeout}
}
