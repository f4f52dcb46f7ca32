package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/leadscout/internal/ai"
	"github.com/spigell/leadscout/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	ProviderName = "gemini"
	defaultModel = "gemini-2.5-pro"
)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Completer wraps the Google GenAI client to provide chat completions.
type Completer struct {
	models    modelsAPI
	modelName string
	logger    *zap.Logger
}

// New creates a Completer configured for the Gemini API backend.
func New(ctx context.Context, apiKey, model string, log *zap.Logger) (*Completer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newCompleter(client.Models, model, log), nil
}

func newCompleter(models modelsAPI, model string, log *zap.Logger) *Completer {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Completer{
		models:    models,
		modelName: model,
		logger:    logger.WithCommonFields(log, ProviderName, model),
	}
}

// Complete sends the conversation to Gemini and returns the joined textual response.
func (c *Completer) Complete(ctx context.Context, messages []ai.Message) (string, error) {
	if c == nil || c.models == nil {
		return "", errors.New("gemini completer is not initialized")
	}

	system, turns := ai.SystemPrompt(messages)
	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		role := genai.RoleUser
		if m.Role == ai.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  string(role),
			Parts: []*genai.Part{{Text: text}},
		})
	}
	if len(contents) == 0 {
		return "", errors.New("prompt must not be empty")
	}

	var config *genai.GenerateContentConfig
	if system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		}
	}

	resp, err := c.models.GenerateContent(ctx, c.modelName, contents, config)
	if err != nil {
		c.logger.Debug("generate content failed", zap.Error(err))
		return "", classify(err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func (c *Completer) Model() string {
	if c == nil {
		return ""
	}
	return c.modelName
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return ai.FromStatus(ProviderName, apiErr.Code, apiErr.Status, err)
	}
	return ai.Classify(ProviderName, err)
}
