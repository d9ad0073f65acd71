package runs

import "time"

// NoReportNote explains a disabled report link.
const NoReportNote = "No htmlIndex found in summary.report.htmlIndex"

// Detail is the view model of a single run's detail pane.
type Detail struct {
	Title     string `json:"title"`
	Env       string `json:"env"`
	BaseURL   string `json:"baseURL"`
	Git       string `json:"git"`
	Passed    int    `json:"passed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Flaky     int    `json:"flaky"`
	Duration  string `json:"duration"`
	Started   string `json:"started"`
	Finished  string `json:"finished"`
	ReportURL string `json:"reportURL,omitempty"`
	// HasReport is false when the summary carries no report link; the
	// "open report" affordance must then be disabled.
	HasReport bool `json:"hasReport"`
}

// NewDetail builds the detail pane for a summary. reportURL/hasReport come from
// the store, which knows how to resolve the report path against its base location.
func NewDetail(s *Summary, reportURL string, hasReport bool, now time.Time) Detail {
	d := Detail{
		Title:     s.Title(),
		Env:       Placeholder,
		BaseURL:   Placeholder,
		Git:       GitLabel(nil),
		Duration:  Placeholder,
		Started:   Placeholder,
		Finished:  Placeholder,
		ReportURL: reportURL,
		HasReport: hasReport && reportURL != "",
	}
	if s == nil {
		return d
	}
	if s.Env != nil {
		d.Env = orPlaceholder(s.Env.Target)
		d.BaseURL = orPlaceholder(s.Env.BaseURL)
	}
	d.Git = GitLabel(s.Git)

	c := s.Counts()
	d.Passed, d.Failed, d.Skipped, d.Flaky = c.Passed, c.Failed, c.Skipped, c.Flaky

	d.Duration = FormatDuration(s.DurationMs)
	d.Started = Timestamp(s.StartedAt, now)
	d.Finished = Timestamp(s.FinishedAt, now)
	return d
}
