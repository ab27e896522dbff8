package llm

import (
	"fmt"

	"testsmith/internal/config"
)

// NewClient creates a completion client from the resolved configuration.
// The provider's default model is used when cfg.Model is empty.
func NewClient(cfg *config.Config) (Client, error) {
	if cfg.APIKey == "" {
		envVar := cfg.KeyEnvVar()
		return nil, fmt.Errorf("no API key for provider %q; set api_key in config or %s", cfg.Provider, envVar)
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		client := NewOpenAIClientWithConfig(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.TimeoutDuration(),
		})
		return client, nil

	case config.ProviderAnthropic:
		client := NewAnthropicClientWithConfig(AnthropicConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.TimeoutDuration(),
		})
		return client, nil

	case config.ProviderGemini:
		return NewGeminiClientWithConfig(GeminiConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.TimeoutDuration(),
		})

	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// ModelName reports the model a client will use, for display and cache keys.
func ModelName(c Client) string {
	type modeler interface{ GetModel() string }
	if m, ok := c.(modeler); ok {
		return m.GetModel()
	}
	return ""
}
