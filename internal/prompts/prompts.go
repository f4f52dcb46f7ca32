package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	PlaceholderChatHistory   = "{{CHAT_HISTORY}}"
	PlaceholderSellerProfile = "{{SELLER_PROFILE}}"
	PlaceholderCandidate     = "{{CANDIDATE}}"
	PlaceholderConversation  = "{{CONVERSATION}}"
	PlaceholderApplication   = "{{APPLICATION}}"
)

//go:embed prompts.toml
var defaultPrompts []byte

type Evaluation struct {
	System   string `toml:"system"`
	Template string `toml:"template"`
}

type Discovery struct {
	Applications string `toml:"applications"`
	SearchTerms  string `toml:"search_terms"`
}

// Set holds every prompt template the application sends.
type Set struct {
	Evaluation Evaluation `toml:"evaluation"`
	Discovery  Discovery  `toml:"discovery"`
}

// Default returns the embedded templates.
func Default() (*Set, error) {
	var set Set
	if err := toml.Unmarshal(defaultPrompts, &set); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	return &set, nil
}

// Load returns the embedded templates overridden by the non-empty keys of the file at path.
// An empty path yields the defaults.
func Load(path string) (*Set, error) {
	set, err := Default()
	if err != nil {
		return nil, err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file %s: %w", path, err)
	}

	var override Set
	if err := toml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
	}

	merge(&set.Evaluation.System, override.Evaluation.System)
	merge(&set.Evaluation.Template, override.Evaluation.Template)
	merge(&set.Discovery.Applications, override.Discovery.Applications)
	merge(&set.Discovery.SearchTerms, override.Discovery.SearchTerms)

	return set, nil
}

func merge(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = value
	}
}

// EvaluationPrompt fills the evaluation template.
func (s *Set) EvaluationPrompt(chatHistory, sellerProfile, candidate string) string {
	return strings.NewReplacer(
		PlaceholderChatHistory, chatHistory,
		PlaceholderSellerProfile, sellerProfile,
		PlaceholderCandidate, candidate,
	).Replace(s.Evaluation.Template)
}

func (s *Set) ApplicationsPrompt(conversation string) string {
	return strings.ReplaceAll(s.Discovery.Applications, PlaceholderConversation, conversation)
}

func (s *Set) SearchTermsPrompt(application string) string {
	return strings.ReplaceAll(s.Discovery.SearchTerms, PlaceholderApplication, application)
}
