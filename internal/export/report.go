package export

import (
	"encoding/json"
	"fmt"

	"github.com/Veraticus/recon/internal/model"
)

// Report is the full JSON report of a matching run. Field order is the key order of
// the rendered document.
type Report struct {
	Summary           model.MatchSummary  `json:"summary"`
	Matches           []model.MatchRecord `json:"matches"`
	UnmatchedBank     []model.Row         `json:"unmatched_bank"`
	UnmatchedInvoices []model.Row         `json:"unmatched_invoices"`
	ColumnInfo        any                 `json:"column_info"`
}

// NewReport assembles a report from the backend's documents as received. Column info
// comes from the match response, then the identify response; missing collections
// become empty arrays and missing column info an empty object.
func NewReport(result *model.MatchingResult, columns *model.ColumnInfo) Report {
	report := Report{
		Matches:           []model.MatchRecord{},
		UnmatchedBank:     []model.Row{},
		UnmatchedInvoices: []model.Row{},
		ColumnInfo:        struct{}{},
	}
	if result != nil {
		report.Summary = result.Summary
		if result.Matches != nil {
			report.Matches = result.Matches
		}
		if result.UnmatchedA != nil {
			report.UnmatchedBank = result.UnmatchedA
		}
		if result.UnmatchedB != nil {
			report.UnmatchedInvoices = result.UnmatchedB
		}
	}
	if c := ColumnsFor(result, columns); c != nil {
		report.ColumnInfo = c
	}
	return report
}

// ColumnsFor prefers the column info carried by the match response over the one
// identified earlier.
func ColumnsFor(result *model.MatchingResult, identified *model.ColumnInfo) *model.ColumnInfo {
	if result != nil && result.ColumnInfo != nil {
		return result.ColumnInfo
	}
	return identified
}

// ToFullReport renders the indented JSON report.
func ToFullReport(result *model.MatchingResult, columns *model.ColumnInfo) ([]byte, error) {
	data, err := json.MarshalIndent(NewReport(result, columns), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return data, nil
}
