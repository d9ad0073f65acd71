package output

import (
	"rundash/internal/runs"
)

// sampleResults returns one result per status, in completion order (not index order).
func sampleResults() []Result {
	return []Result{
		{
			Index: 2, RunID: "C", SummaryPath: "runs/C/summary.json", Status: runs.StatusFail,
			ReportURL: "https://store.example.com/runs/C/report/index.html",
			Summary: &runs.Summary{
				RunID: "C", JobID: "e2e-nightly", DurationMs: 65_000,
				Git:    &runs.Git{Ref: "main", SHA: "cccccccc11112222"},
				Env:    &runs.Env{Target: "staging"},
				Totals: &runs.Totals{Passed: 8, Failed: 2, Skipped: 1},
			},
		},
		{
			Index: 0, RunID: "A", SummaryPath: "runs/A/summary.json", Status: runs.StatusPass,
			Summary: &runs.Summary{
				RunID: "A", DurationMs: 1_500,
				Git:    &runs.Git{Ref: "main", SHA: "aaaaaaaa11112222"},
				Totals: &runs.Totals{Passed: 3},
			},
		},
		{
			Index: 1, RunID: "B", SummaryPath: "runs/B/summary.json", Status: runs.StatusError,
			Message: "Failed summary: Not Found (404)",
		},
	}
}
