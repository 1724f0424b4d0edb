package llm

import (
	"strings"

	"github.com/rotisserie/eris"
)

// NewProvider creates a model backend from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		return NewOllamaProvider(cfg)
	case "anthropic", "claude":
		return NewAnthropicProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg)
	default:
		return nil, eris.Errorf("unknown llm provider: %s (supported: ollama, anthropic, openai)", cfg.Provider)
	}
}
