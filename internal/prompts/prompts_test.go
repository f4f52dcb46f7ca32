package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplatesCarryPlaceholders(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, strings.TrimSpace(set.Evaluation.System))
	for _, placeholder := range []string{PlaceholderChatHistory, PlaceholderSellerProfile, PlaceholderCandidate} {
		assert.Contains(t, set.Evaluation.Template, placeholder)
	}
	assert.Contains(t, set.Discovery.Applications, PlaceholderConversation)
	assert.Contains(t, set.Discovery.SearchTerms, PlaceholderApplication)
}

func TestEvaluationPromptFillsPlaceholders(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	prompt := set.EvaluationPrompt("user: ovens", "We build ovens", `{"name": "Crust"}`)
	assert.Contains(t, prompt, "user: ovens")
	assert.Contains(t, prompt, "We build ovens")
	assert.Contains(t, prompt, `{"name": "Crust"}`)
	assert.NotContains(t, prompt, PlaceholderCandidate)
}

func TestLoadOverridesOnlyProvidedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.toml")
	require.NoError(t, os.WriteFile(path, []byte("[evaluation]\nsystem = \"custom system\"\n"), 0o600))

	set, err := Load(path)
	require.NoError(t, err)

	defaults, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "custom system", set.Evaluation.System)
	assert.Equal(t, defaults.Evaluation.Template, set.Evaluation.Template)
	assert.Equal(t, defaults.Discovery.SearchTerms, set.Discovery.SearchTerms)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[evaluation\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
