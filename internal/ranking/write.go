package ranking

import (
	"fmt"

	"github.com/spigell/leadscout/internal/artifacts"
)

const (
	AllMarkdownFile = "all_ranked_companies.md"
	TopMarkdownFile = "top_10_ranked_companies.md"
	AllXLSXFile     = "all_ranked_companies.xlsx"
	TopXLSXFile     = "top_10_ranked_companies.xlsx"
	JSONFile        = "all_ranked_companies.json"
)

// Paths lists the files written for one report.
type Paths struct {
	AllMarkdown string `json:"all_markdown"`
	TopMarkdown string `json:"top_markdown"`
	AllXLSX     string `json:"all_xlsx"`
	TopXLSX     string `json:"top_xlsx"`
	JSON        string `json:"json"`
}

type tokenUsage struct {
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

type excelPaths struct {
	Full  string `json:"full"`
	Top10 string `json:"top10"`
}

// Document is the JSON form of a report.
type Document struct {
	RankedCompanies []Entry    `json:"ranked_companies"`
	TokenUsage      tokenUsage `json:"token_usage"`
	ExcelPaths      excelPaths `json:"excel_paths"`
	Total           int        `json:"total_companies"`
	Evaluated       int        `json:"total_companies_evaluated"`
	FailedCount     int        `json:"total_companies_failed"`
	Failed          []string   `json:"failed_companies"`
}

// Document builds the JSON view. Ranked companies are the top-N prefix.
func (r *Report) Document(paths Paths) Document {
	return Document{
		RankedCompanies: r.Top(),
		TokenUsage: tokenUsage{
			InputTokens:      r.Usage.InputTokens,
			OutputTokens:     r.Usage.OutputTokens,
			TotalTokens:      r.Usage.Total(),
			EstimatedCostUSD: r.Cost(),
		},
		ExcelPaths:  excelPaths{Full: paths.AllXLSX, Top10: paths.TopXLSX},
		Total:       r.Candidates,
		Evaluated:   r.Evaluated(),
		FailedCount: r.FailedCount(),
		Failed:      r.FailedNames(),
	}
}

// Write renders every view of the report into folder, overwriting previous runs.
func (r *Report) Write(folder *artifacts.Folder) (*Paths, error) {
	paths := &Paths{}
	var err error

	if paths.AllMarkdown, err = folder.WriteFile(AllMarkdownFile, []byte(r.Markdown("Ranked Companies", r.Ranked))); err != nil {
		return nil, err
	}
	if paths.TopMarkdown, err = folder.WriteFile(TopMarkdownFile, []byte(r.Markdown(fmt.Sprintf("Top %d Ranked Companies", r.TopN), r.Top()))); err != nil {
		return nil, err
	}

	all, err := XLSX(Rows(r.Ranked))
	if err != nil {
		return nil, err
	}
	if paths.AllXLSX, err = folder.WriteFile(AllXLSXFile, all); err != nil {
		return nil, err
	}

	top, err := XLSX(Rows(r.Top()))
	if err != nil {
		return nil, err
	}
	if paths.TopXLSX, err = folder.WriteFile(TopXLSXFile, top); err != nil {
		return nil, err
	}

	paths.JSON = folder.Join(JSONFile)
	if _, err := folder.SaveJSON(JSONFile, r.Document(*paths)); err != nil {
		return nil, err
	}

	return paths, nil
}
