package importer

import (
	"fmt"
	"io"
)

// Outcome is the per-row result of an import run. RowNumber is the
// 1-based line in the original file, header row counted, so the first
// data row is row 2. Immutable once recorded.
type Outcome struct {
	RowNumber int    `json:"rowNumber"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason,omitempty"`
}

// Report aggregates the outcomes of a completed run. The conservation
// invariant SuccessCount + len(Errors) == TotalRows holds for every
// finished import, including complete failures.
type Report struct {
	TotalRows    int       `json:"totalRows"`
	SuccessCount int       `json:"successCount"`
	Errors       []Outcome `json:"errors"`
}

// BuildReport derives a report from the ordered outcome sequence. Errors
// keep the recording order, which equals ascending row order since rows
// are processed sequentially.
func BuildReport(outcomes []Outcome) Report {
	report := Report{
		TotalRows: len(outcomes),
		Errors:    []Outcome{},
	}
	for _, outcome := range outcomes {
		if outcome.Success {
			report.SuccessCount++
			continue
		}
		report.Errors = append(report.Errors, outcome)
	}
	return report
}

// WriteText renders the report as a plain-text artifact suitable for
// download.
func (r Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Import report\ntotal rows: %d\nimported: %d\nfailed: %d\n", r.TotalRows, r.SuccessCount, len(r.Errors)); err != nil {
		return err
	}
	if len(r.Errors) == 0 {
		return nil
	}
	if _, err := fmt.Fprint(w, "\nerrors:\n"); err != nil {
		return err
	}
	for _, outcome := range r.Errors {
		if _, err := fmt.Fprintf(w, "row %d: %s\n", outcome.RowNumber, outcome.Reason); err != nil {
			return err
		}
	}
	return nil
}
