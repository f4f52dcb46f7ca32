package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goanthropic "github.com/liushuangls/go-anthropic/v2"
	"github.com/spigell/leadscout/internal/ai"
	"github.com/spigell/leadscout/internal/logger"
	"go.uber.org/zap"
)

const (
	ProviderName     = "claude"
	defaultModel     = "claude-3-5-sonnet-latest"
	defaultMaxTokens = 2048
)

type Completer struct {
	client *goanthropic.Client
	model  string
	logger *zap.Logger
}

func New(apiKey, model, baseURL string, log *zap.Logger) (*Completer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("claude api key is required")
	}

	var opts []goanthropic.ClientOption
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, goanthropic.WithBaseURL(baseURL))
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Completer{
		client: goanthropic.NewClient(apiKey, opts...),
		model:  model,
		logger: logger.WithCommonFields(log, ProviderName, model),
	}, nil
}

func (c *Completer) Complete(ctx context.Context, messages []ai.Message) (string, error) {
	system, turns := ai.SystemPrompt(messages)

	req := goanthropic.MessagesRequest{
		Model:     goanthropic.Model(c.model),
		System:    system,
		MaxTokens: defaultMaxTokens,
	}
	for _, m := range turns {
		role := goanthropic.RoleUser
		if m.Role == ai.RoleAssistant {
			role = goanthropic.RoleAssistant
		}
		req.Messages = append(req.Messages, goanthropic.Message{
			Role:    role,
			Content: []goanthropic.MessageContent{goanthropic.NewTextMessageContent(m.Content)},
		})
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		c.logger.Debug("create messages failed", zap.Error(err))
		return "", classify(err)
	}

	var builder strings.Builder
	for _, content := range resp.Content {
		if content.Text == nil {
			continue
		}
		builder.WriteString(*content.Text)
	}
	if builder.Len() == 0 {
		return "", fmt.Errorf("no response content")
	}
	return builder.String(), nil
}

func (c *Completer) Model() string {
	return c.model
}

func classify(err error) error {
	var apiErr *goanthropic.APIError
	if errors.As(err, &apiErr) && apiErr.Type == goanthropic.ErrTypeRateLimit {
		return &ai.RateLimitError{Provider: ProviderName, Err: err}
	}
	var reqErr *goanthropic.RequestError
	if errors.As(err, &reqErr) {
		return ai.FromStatus(ProviderName, reqErr.StatusCode, "", err)
	}
	return ai.Classify(ProviderName, err)
}
