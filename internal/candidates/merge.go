package candidates

import "strings"

// Status is the outcome of a keyword search.
type Status string

const (
	StatusOK          Status = "ok"
	StatusZeroResults Status = "zero_results"
	StatusError       Status = "error"
)

// SearchTermResult is what one search term produced.
type SearchTermResult struct {
	Term    string
	Records []Candidate
	Status  Status
}

// TermStatus derives a term outcome: transport failure wins, otherwise ok
// when at least one record came back.
func TermStatus(transportFailed bool, records int) Status {
	switch {
	case transportFailed:
		return StatusError
	case records > 0:
		return StatusOK
	default:
		return StatusZeroResults
	}
}

// AggregateStatus folds term outcomes into one application outcome.
// Precedence is ok, then error, then zero_results.
func AggregateStatus(statuses ...Status) Status {
	result := StatusZeroResults
	for _, s := range statuses {
		switch s {
		case StatusOK:
			return StatusOK
		case StatusError:
			result = StatusError
		}
	}
	return result
}

// Merge unions the records of all results into one list with a single entry
// per identity. A later record replaces the fields of an earlier one with the
// same identity but keeps its position. Records without identity and records
// that are permanently closed are dropped; a closed record also removes an
// earlier open record with the same identity.
func Merge(results ...SearchTermResult) []Candidate {
	index := make(map[string]int)
	merged := make([]Candidate, 0)
	removed := make(map[string]bool)

	for _, result := range results {
		for _, record := range result.Records {
			id := strings.TrimSpace(record.ID)
			if id == "" {
				continue
			}
			record.ID = id

			if record.IsClosed() {
				removed[id] = true
				continue
			}
			delete(removed, id)

			if pos, ok := index[id]; ok {
				merged[pos] = record
				continue
			}
			index[id] = len(merged)
			merged = append(merged, record)
		}
	}

	if len(removed) == 0 {
		return merged
	}

	kept := merged[:0]
	for _, c := range merged {
		if !removed[c.ID] {
			kept = append(kept, c)
		}
	}
	return kept
}

// Dedupe keeps the first record of every identity and drops records without one.
func Dedupe(list []Candidate) []Candidate {
	seen := make(map[string]bool, len(list))
	out := make([]Candidate, 0, len(list))
	for _, c := range list {
		id := strings.TrimSpace(c.ID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		c.ID = id
		out = append(out, c)
	}
	return out
}

// Statuses returns the status of every result in order.
func Statuses(results []SearchTermResult) []Status {
	out := make([]Status, 0, len(results))
	for _, r := range results {
		out = append(out, r.Status)
	}
	return out
}
