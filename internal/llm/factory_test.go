package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  bool
	}{
		{
			name:     "default is ollama",
			cfg:      Config{Model: "tulu3:latest"},
			wantName: "ollama",
		},
		{
			name:     "explicit ollama",
			cfg:      Config{Provider: "ollama", Model: "mistral-small:latest"},
			wantName: "ollama",
		},
		{
			name:     "anthropic",
			cfg:      Config{Provider: "anthropic", Model: "claude-haiku-4-5-20251001", APIKey: "sk-test"},
			wantName: "anthropic",
		},
		{
			name:     "claude alias",
			cfg:      Config{Provider: "claude", Model: "claude-haiku-4-5-20251001", APIKey: "sk-test"},
			wantName: "anthropic",
		},
		{
			name:     "openai",
			cfg:      Config{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-test"},
			wantName: "openai",
		},
		{
			name:    "anthropic without key",
			cfg:     Config{Provider: "anthropic", Model: "claude-haiku-4-5-20251001"},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "bard", Model: "x"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewProvider(tc.cfg)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, p.Name())
			assert.Equal(t, tc.cfg.Model, p.ModelID())
		})
	}
}
