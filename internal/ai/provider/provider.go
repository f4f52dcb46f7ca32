package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/leadscout/internal/ai"
	"github.com/spigell/leadscout/internal/ai/anthropic"
	"github.com/spigell/leadscout/internal/ai/gemini"
	"github.com/spigell/leadscout/internal/ai/openai"
	"github.com/spigell/leadscout/internal/utils"
	"go.uber.org/zap"
)

const (
	Perplexity = "perplexity"
	OpenAI     = "openai"
	Gemini     = "gemini"
	Claude     = "claude"
)

// Config selects and configures a completion provider.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// New builds the Completer for cfg.Provider. An empty provider means Perplexity.
func New(ctx context.Context, cfg Config, log *zap.Logger) (ai.Completer, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = Perplexity
	}

	switch name {
	case Perplexity, OpenAI:
		opts := openai.Options{
			Provider: name,
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    utils.FirstNonEmpty(cfg.Model, openai.OpenAIModel),
			Timeout:  cfg.Timeout,
		}
		if name == Perplexity {
			opts.BaseURL = utils.FirstNonEmpty(cfg.BaseURL, openai.PerplexityBaseURL)
			opts.Model = utils.FirstNonEmpty(cfg.Model, openai.PerplexityModel)
		}
		c, err := openai.New(opts, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	case Gemini:
		c, err := gemini.New(ctx, cfg.APIKey, cfg.Model, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	case Claude:
		c, err := anthropic.New(cfg.APIKey, cfg.Model, cfg.BaseURL, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}
