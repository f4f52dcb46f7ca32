package ai

import (
	"context"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to a completion service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer performs a single chat completion round trip.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Model() string
}

// SystemPrompt returns the joined system messages and the remaining turns.
// Providers without a system role in the message list use it.
func SystemPrompt(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if text := strings.TrimSpace(m.Content); text != "" {
				system = append(system, text)
			}
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// Contents joins message contents with a single space. Input token accounting counts this string.
func Contents(messages []Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, " ")
}
