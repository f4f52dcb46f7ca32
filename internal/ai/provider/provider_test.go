package provider

import (
	"context"
	"testing"

	"github.com/spigell/leadscout/internal/ai/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToPerplexity(t *testing.T) {
	c, err := New(context.Background(), Config{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, openai.PerplexityModel, c.Model())
}

func TestNewProviders(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		model string
	}{
		{name: "openai", cfg: Config{Provider: "OpenAI", APIKey: "k"}, model: openai.OpenAIModel},
		{name: "claude", cfg: Config{Provider: Claude, APIKey: "k", Model: "claude-x"}, model: "claude-x"},
		{name: "perplexity custom model", cfg: Config{Provider: Perplexity, APIKey: "k", Model: "sonar"}, model: "sonar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(context.Background(), tt.cfg, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.model, c.Model())
		})
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "ollama", APIKey: "k"}, nil)
	assert.ErrorContains(t, err, "unsupported ai provider")

	_, err = New(context.Background(), Config{Provider: Perplexity}, nil)
	assert.Error(t, err)
}
