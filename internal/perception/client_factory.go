package perception

import (
	"fmt"
	"strings"

	"widgetforge/internal/config"
	"widgetforge/internal/logging"
)

// NewClient builds an LLMClient from configuration. The returned client is
// wrapped with call tracing so every completion lands in the api log.
func NewClient(cfg config.LLMConfig) (LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", cfg.Provider)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "gemini"
	}

	var client LLMClient
	switch provider {
	case "gemini":
		gc, err := NewGeminiClientWithConfig(GeminiConfig{
			APIKey:             cfg.APIKey,
			Model:              cfg.Model,
			Timeout:            cfg.TimeoutDuration(),
			EnableGoogleSearch: true,
		})
		if err != nil {
			return nil, err
		}
		client = gc
	case "openai":
		client = NewOpenAIClientWithConfig(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.TimeoutDuration(),
		})
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}

	logging.API("LLM client created: provider=%s model=%s", provider, cfg.Model)
	return NewTracingClient(client), nil
}
