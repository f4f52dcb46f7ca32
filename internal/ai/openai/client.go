package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spigell/leadscout/internal/ai"
	"github.com/spigell/leadscout/internal/logger"
	"go.uber.org/zap"
)

const (
	PerplexityBaseURL = "https://api.perplexity.ai"
	PerplexityModel   = "sonar-pro"
	OpenAIModel       = goopenai.GPT4oMini
)

// Options configures an OpenAI-compatible Completer.
type Options struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// Completer talks to any chat completions endpoint that follows the OpenAI wire format.
type Completer struct {
	client   *goopenai.Client
	provider string
	model    string
	logger   *zap.Logger
}

func New(opts Options, log *zap.Logger) (*Completer, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s api key is required", opts.Provider)
	}

	config := goopenai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(opts.BaseURL); baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if opts.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Completer{
		client:   goopenai.NewClientWithConfig(config),
		provider: opts.Provider,
		model:    opts.Model,
		logger:   logger.WithCommonFields(log, opts.Provider, opts.Model),
	}, nil
}

func (c *Completer) Complete(ctx context.Context, messages []ai.Message) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]goopenai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{
			Role:    chatRole(m.Role),
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Debug("chat completion failed", zap.Error(err))
		return "", c.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", c.provider)
	}

	c.logger.Debug("chat completion usage",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

func (c *Completer) Model() string {
	return c.model
}

func (c *Completer) classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return ai.FromStatus(c.provider, apiErr.HTTPStatusCode, "", err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return ai.FromStatus(c.provider, reqErr.HTTPStatusCode, "", err)
	}
	return ai.Classify(c.provider, err)
}

func chatRole(role string) string {
	switch role {
	case ai.RoleSystem:
		return goopenai.ChatMessageRoleSystem
	case ai.RoleAssistant:
		return goopenai.ChatMessageRoleAssistant
	default:
		return goopenai.ChatMessageRoleUser
	}
}
