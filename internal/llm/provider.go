package llm

import (
	"context"
	"fmt"

	"ai-grocery-checklist/internal/config"
)

// Provider is a TextGenerator backed by a concrete model service.
type Provider interface {
	TextGenerator
	Closer
	Model() string
}

// NewProvider builds the text generator selected by cfg.LLMProvider.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini, "":
		return NewGeminiClient(ctx, cfg)
	case config.ProviderGroq:
		return NewGroqClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
