package ranking

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	markerCompany   = "## "
	markerScore     = "- **Final Score**: "
	markerReasoning = "- **Reasoning**: "
	markerAddress   = "- **Address**: "
	markerPhone     = "- **Phone**: "
	markerFooter    = "---"
)

// Row is one line of the tabular views.
type Row struct {
	Rank       int
	Company    string
	FinalScore float64
	Reasoning  string
	Address    string
	Phone      string
}

// Rows converts entries for tabular rendering.
func Rows(entries []Entry) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{
			Rank:       e.Rank,
			Company:    e.Company,
			FinalScore: e.FinalScore,
			Reasoning:  e.Reasoning,
			Address:    e.Address,
			Phone:      e.Phone,
		})
	}
	return rows
}

// Markdown renders entries under title followed by the run summary.
func (r *Report) Markdown(title string, entries []Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, row := range Rows(entries) {
		fmt.Fprintf(&b, "%s%d. %s\n", markerCompany, row.Rank, oneLine(row.Company))
		fmt.Fprintf(&b, "%s%.1f\n", markerScore, row.FinalScore)
		fmt.Fprintf(&b, "%s%s\n", markerReasoning, oneLine(row.Reasoning))
		fmt.Fprintf(&b, "%s%s\n", markerAddress, oneLine(row.Address))
		fmt.Fprintf(&b, "%s%s\n\n", markerPhone, oneLine(row.Phone))
	}

	b.WriteString(markerFooter + "\n")
	fmt.Fprintf(&b, "Total Companies: %d\n\n", r.Candidates)
	fmt.Fprintf(&b, "Evaluated Companies: %d\n\n", r.Evaluated())
	fmt.Fprintf(&b, "Failed Companies: %d\n\n", r.FailedCount())
	if names := r.FailedNames(); len(names) > 0 {
		fmt.Fprintf(&b, "Failed: %s\n\n", oneLine(strings.Join(names, ", ")))
	}
	fmt.Fprintf(&b, "Total Input Tokens: %d\n\n", r.Usage.InputTokens)
	fmt.Fprintf(&b, "Total Output Tokens: %d\n\n", r.Usage.OutputTokens)
	fmt.Fprintf(&b, "Total Tokens: %d\n\n", r.Usage.Total())
	fmt.Fprintf(&b, "Estimated Cost: $%s\n", strconv.FormatFloat(r.Cost(), 'f', -1, 64))
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseMarkdown reads the ranked entries back from a rendered report. Rank is
// the position of the entry, as in the rendered numbering.
func ParseMarkdown(r io.Reader) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		rows    []Row
		current *Row
		lineNo  int
	)
	flush := func() {
		if current != nil {
			rows = append(rows, *current)
			current = nil
		}
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == markerFooter:
			flush()
			return rows, nil
		case strings.HasPrefix(line, markerCompany):
			flush()
			current = &Row{Rank: len(rows) + 1, Company: stripRank(strings.TrimPrefix(line, markerCompany))}
		case current == nil:
			continue
		case strings.HasPrefix(line, strings.TrimSpace(markerScore)):
			value := markerValue(line)
			score, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid final score %q: %w", lineNo, value, err)
			}
			current.FinalScore = score
		case strings.HasPrefix(line, strings.TrimSpace(markerReasoning)):
			current.Reasoning = markerValue(line)
		case strings.HasPrefix(line, strings.TrimSpace(markerAddress)):
			current.Address = markerValue(line)
		case strings.HasPrefix(line, strings.TrimSpace(markerPhone)):
			current.Phone = markerValue(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	flush()
	return rows, nil
}

func markerValue(line string) string {
	_, value, found := strings.Cut(line, ": ")
	if !found {
		return ""
	}
	return strings.TrimSpace(value)
}

func stripRank(heading string) string {
	number, rest, found := strings.Cut(heading, ". ")
	if !found {
		return heading
	}
	if _, err := strconv.Atoi(number); err != nil {
		return heading
	}
	return rest
}
