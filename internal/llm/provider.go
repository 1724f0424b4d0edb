// Package llm abstracts the generative model backends behind a single
// schema-constrained completion interface. Every call names a JSON schema
// and gets back raw JSON that the caller parses strictly; free-text model
// output never crosses into the pipeline.
package llm

import (
	"context"
	"encoding/json"
)

// Request is a single schema-constrained completion.
type Request struct {
	// System is the persona / system instruction.
	System string

	// Prompt is the user instruction, with any document text embedded.
	Prompt string

	// Schema is the JSON schema the response must validate against.
	Schema json.RawMessage

	// SchemaName labels the schema for backends that require a named
	// tool or response format.
	SchemaName string

	// Temperature for sampling. Zero means deterministic.
	Temperature float64

	// MaxTokens bounds the response length.
	MaxTokens int
}

// Provider is a generative model backend.
type Provider interface {
	// Name returns the backend name ("ollama", "anthropic", "openai").
	Name() string

	// ModelID returns the configured model identifier. Stores use it to
	// qualify fact databases, so two model configurations never collide.
	ModelID() string

	// Complete issues one blocking completion and returns the raw JSON
	// payload conforming to req.Schema, or an error.
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// Config holds model backend configuration.
type Config struct {
	// Provider selects the backend: "ollama", "anthropic", "openai".
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Model is the backend-specific model name.
	Model string `yaml:"model" mapstructure:"model"`

	// APIKey for hosted backends.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// BaseURL overrides the backend endpoint (Ollama host, test servers).
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// ContextSize is the model context window in tokens. The budgeter
	// and verifier truncate their inputs against it.
	ContextSize int `yaml:"context_size" mapstructure:"context_size"`

	// MaxTokens bounds response length for hosted backends.
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`
}
