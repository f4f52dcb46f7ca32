package conversation

import (
	"regexp"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Entry is one answered intake question.
type Entry struct {
	Question string `json:"question" bson:"question"`
	Answer   string `json:"answer" bson:"answer"`
}

// Log is the seller intake conversation.
type Log struct {
	Entries []Entry `json:"conversation" bson:"conversation"`
}

// Message is a stored chat message as written by the intake bot.
type Message struct {
	Role     string `json:"role" bson:"role" mapstructure:"role"`
	Question string `json:"question,omitempty" bson:"question,omitempty" mapstructure:"question"`
	Answer   string `json:"answer,omitempty" bson:"answer,omitempty" mapstructure:"answer"`
}

// Turn is one side of the alternating transcript.
type Turn struct {
	Role    string
	Content string
}

// FromMessages pairs every assistant question with the user answer that
// immediately follows it. Unpaired and system messages are skipped.
func FromMessages(messages []Message) Log {
	var log Log
	for i := 0; i+1 < len(messages); i++ {
		current, next := messages[i], messages[i+1]
		if current.Role != RoleAssistant || next.Role != RoleUser {
			continue
		}

		question := current.Question
		if strings.TrimSpace(question) == "" {
			question = current.Answer
		}

		log.Entries = append(log.Entries, Entry{
			Question: strings.TrimSpace(question),
			Answer:   strings.TrimSpace(next.Answer),
		})
	}
	return log
}

func (l Log) Len() int {
	return len(l.Entries)
}

func (l Log) IsEmpty() bool {
	for _, e := range l.Entries {
		if strings.TrimSpace(e.Question) != "" || strings.TrimSpace(e.Answer) != "" {
			return false
		}
	}
	return true
}

// Turns returns the transcript as an alternating question/answer sequence.
// Blank sides are omitted.
func (l Log) Turns() []Turn {
	turns := make([]Turn, 0, len(l.Entries)*2)
	for _, e := range l.Entries {
		if q := strings.TrimSpace(e.Question); q != "" {
			turns = append(turns, Turn{Role: RoleAssistant, Content: q})
		}
		if a := strings.TrimSpace(e.Answer); a != "" {
			turns = append(turns, Turn{Role: RoleUser, Content: a})
		}
	}
	return turns
}

// ChatML renders the log with <|user|>/<|assistant|> markers.
func (l Log) ChatML() string {
	lines := make([]string, 0, len(l.Entries)*2)
	for _, e := range l.Entries {
		lines = append(lines, "<|user|> "+strings.TrimSpace(e.Question))
		lines = append(lines, "<|assistant|> "+strings.TrimSpace(e.Answer))
	}
	return strings.Join(lines, "\n")
}

var (
	locationKeywords = []string{"location", "city", "region", "area", "place", "from", "based in", "supply", "deliver", "across", "to"}
	placePhrase      = regexp.MustCompile(`\b(?:in|to|across|from|at)?\s*([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)`)
)

// ExtractLocation guesses where the seller operates. Entries are scanned
// newest first; the first capitalised phrase of an answer whose entry mentions
// a location keyword wins.
func ExtractLocation(entries []Entry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		text := strings.ToLower(entry.Question + " " + entry.Answer)

		for _, keyword := range locationKeywords {
			if !strings.Contains(text, keyword) {
				continue
			}
			if match := placePhrase.FindStringSubmatch(entry.Answer); match != nil {
				return strings.TrimSpace(match[1])
			}
		}
	}
	return ""
}
