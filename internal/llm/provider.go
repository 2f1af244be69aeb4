package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cavision/config"
)

// FromConfig builds the model selected by llm.provider.
func FromConfig(ctx context.Context, cfg *config.Config) (Model, error) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "", "gemini":
		g, err := NewGemini(ctx, GeminiConfig{
			APIKey:       cfg.Gemini.ApiKey,
			Model:        cfg.Gemini.Model,
			Temperature:  cfg.Temperature(),
			PollInterval: time.Duration(cfg.Gemini.FilePollSeconds) * time.Second,
			PollAttempts: cfg.Gemini.FilePollAttempts,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	case "anthropic":
		return NewAnthropic(AnthropicConfig{
			APIKey:      cfg.Anthropic.ApiKey,
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Temperature: cfg.Temperature(),
		}), nil
	case "openai":
		o, err := NewOpenAI(OpenAIConfig{
			APIKey:      cfg.Openai.GptApiKey,
			Model:       cfg.Openai.Model,
			Temperature: cfg.Temperature(),
		})
		if err != nil {
			return nil, err
		}
		return o, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
}
