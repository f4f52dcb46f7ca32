package scoring

import (
	"encoding/json"
	"strings"

	"github.com/spigell/leadscout/internal/ai"
	"github.com/spigell/leadscout/internal/candidates"
	"github.com/spigell/leadscout/internal/conversation"
	"github.com/spigell/leadscout/internal/prompts"
)

// Profile is what the seller told about its own company.
type Profile struct {
	Text    string
	Website string
}

func (p Profile) IsEmpty() bool {
	return strings.TrimSpace(p.Text) == "" && strings.TrimSpace(p.Website) == ""
}

func (p Profile) render() string {
	text := strings.TrimSpace(p.Text)
	if website := strings.TrimSpace(p.Website); website != "" {
		if text != "" {
			text += "\n"
		}
		text += "[Company Website]: " + website
	}
	return text
}

// Request is the evaluation input for one candidate. It is never modified after BuildRequest.
type Request struct {
	candidateID   string
	candidateName string
	messages      []ai.Message
}

func (r *Request) CandidateID() string   { return r.candidateID }
func (r *Request) CandidateName() string { return r.candidateName }

// Messages returns a copy of the chat messages to send.
func (r *Request) Messages() []ai.Message {
	out := make([]ai.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

type candidateSummary struct {
	Name    string `json:"name,omitempty"`
	Website string `json:"website,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// BuildRequest assembles the evaluation messages for one candidate. It does no
// I/O and returns identical output for identical input.
func BuildRequest(set *prompts.Set, transcript conversation.Log, profile Profile, candidate candidates.Candidate) *Request {
	summary := candidateSummary{
		Name:    strings.TrimSpace(candidate.Name),
		Website: strings.TrimSpace(candidate.Website),
		Address: strings.TrimSpace(candidate.Address),
		Phone:   candidate.PrimaryPhone(),
	}
	// A struct of strings always marshals.
	summaryJSON, _ := json.MarshalIndent(summary, "", "  ")

	user := set.EvaluationPrompt(formatTranscript(transcript), profile.render(), string(summaryJSON))

	messages := make([]ai.Message, 0, 2)
	if system := strings.TrimSpace(set.Evaluation.System); system != "" {
		messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: system})
	}
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: user})

	return &Request{
		candidateID:   candidate.ID,
		candidateName: candidate.Label(),
		messages:      messages,
	}
}

func formatTranscript(transcript conversation.Log) string {
	turns := transcript.Turns()
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, turn.Role+": "+turn.Content)
	}
	return strings.Join(lines, "\n")
}
