package ranking

import (
	"math"
	"sort"
	"strings"

	"github.com/spigell/leadscout/internal/evaluator"
)

const (
	DefaultTopN      = 10
	DefaultCostPer1K = 0.01
	notAvailable     = "N/A"
)

// Entry is one ranked candidate.
type Entry struct {
	Rank        int            `json:"rank"`
	CandidateID string         `json:"candidate_id"`
	Company     string         `json:"company"`
	FinalScore  float64        `json:"final_score"`
	Summary     string         `json:"scoring_summary,omitempty"`
	Scores      map[string]any `json:"scores,omitempty"`
	Reasoning   string         `json:"reasoning"`
	Address     string         `json:"address"`
	Phone       string         `json:"phone"`
	Website     string         `json:"website,omitempty"`
}

// Report is the single in-memory source every rendering is produced from.
type Report struct {
	Ranked     []Entry
	TopN       int
	Candidates int
	Failed     []evaluator.Failure
	Usage      evaluator.Usage
	CostPer1K  float64
}

// Build ranks the successes of run. Candidates with equal scores keep the order they were scored in.
func Build(run *evaluator.Run, topN int, costPer1K float64) *Report {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if costPer1K <= 0 {
		costPer1K = DefaultCostPer1K
	}

	return &Report{
		Ranked:     Rank(run.Results),
		TopN:       topN,
		Candidates: run.Candidates,
		Failed:     run.Failed,
		Usage:      run.Usage,
		CostPer1K:  costPer1K,
	}
}

// Rank sorts results by final score, highest first, with a stable order for ties.
func Rank(results []evaluator.Result) []Entry {
	sorted := make([]evaluator.Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Evaluation.FinalScore > sorted[j].Evaluation.FinalScore
	})

	entries := make([]Entry, 0, len(sorted))
	for i, r := range sorted {
		entries = append(entries, Entry{
			Rank:        i + 1,
			CandidateID: r.Candidate.ID,
			Company:     r.Candidate.Label(),
			FinalScore:  r.Evaluation.FinalScore,
			Summary:     r.Evaluation.Summary,
			Scores:      r.Evaluation.Scores,
			Reasoning:   r.Evaluation.Reasoning,
			Address:     orNA(r.Candidate.Address),
			Phone:       orNA(r.Candidate.Phone.National),
			Website:     r.Candidate.Website,
		})
	}
	return entries
}

// Top returns the first TopN ranked entries.
func (r *Report) Top() []Entry {
	if len(r.Ranked) <= r.TopN {
		return r.Ranked
	}
	return r.Ranked[:r.TopN]
}

func (r *Report) Evaluated() int {
	return len(r.Ranked)
}

func (r *Report) FailedCount() int {
	return len(r.Failed)
}

func (r *Report) FailedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		names = append(names, f.Candidate.Label())
	}
	return names
}

func (r *Report) Cost() float64 {
	return Cost(r.Usage, r.CostPer1K)
}

// Cost is (input + output) / 1000 * costPer1K, rounded to six decimals.
func Cost(usage evaluator.Usage, costPer1K float64) float64 {
	cost := float64(usage.Total()) / 1000 * costPer1K
	return math.Round(cost*1e6) / 1e6
}

func orNA(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return notAvailable
	}
	return s
}
