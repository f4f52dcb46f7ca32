package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spigell/leadscout/internal/ai"
	"github.com/spigell/leadscout/internal/utils"
)

const (
	MinScore = 0.0
	MaxScore = 10.0

	previewLength = 200
)

// Rule locates a numeric score inside a decoded response.
type Rule struct {
	Path []string
}

func (r Rule) String() string {
	return strings.Join(r.Path, ".")
}

// ScoreRules lists every score location seen in scoring responses, in priority order.
var ScoreRules = []Rule{
	{Path: []string{"final_score"}},
	{Path: []string{"final_score_matrix_summary", "weighted_mean"}},
	{Path: []string{"final_score_matrix_summary", "weighted_mean_score"}},
	{Path: []string{"final_score_matrix_summary", "weighted_mean_final_score"}},
}

// ParseError reports a response that could not be turned into a score.
type ParseError struct {
	Reason  string
	Preview string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse scoring response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse scoring response: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Evaluation is a successfully parsed scoring response.
type Evaluation struct {
	Summary     string         `json:"scoring_summary"`
	Scores      map[string]any `json:"scores,omitempty"`
	Reasoning   string         `json:"reasoning"`
	FinalScore  float64        `json:"final_score"`
	ScoreSource string         `json:"score_source"`
}

// Parse decodes a scoring response. A response without a usable score is a
// ParseError, never a zero score.
func Parse(raw string) (*Evaluation, error) {
	cleaned := ai.ExtractJSON(raw)
	preview := utils.TruncateForLog(raw, previewLength)

	var data map[string]any
	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.UseNumber()
	if err := decoder.Decode(&data); err != nil {
		return nil, &ParseError{Reason: "response is not a JSON object", Preview: preview, Err: err}
	}

	for _, rule := range ScoreRules {
		value, ok := lookup(data, rule.Path)
		if !ok {
			continue
		}
		score, ok := coerceFloat(value)
		if !ok {
			continue
		}
		return &Evaluation{
			Summary:     coerceString(data["scoring_summary"]),
			Scores:      coerceMap(data["scores"]),
			Reasoning:   coerceString(data["reasoning"]),
			FinalScore:  clamp(score),
			ScoreSource: rule.String(),
		}, nil
	}

	return nil, &ParseError{Reason: "no final score found", Preview: preview}
}

func lookup(data map[string]any, path []string) (any, bool) {
	var current any = data
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

func coerceFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clamp(score float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, score))
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
