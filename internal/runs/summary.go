package runs

// Summary is the per-run summary document written by the test pipeline.
// Every field is optional; producers omit what they do not know.
type Summary struct {
	JobID      string  `json:"jobId,omitempty"`
	RunID      string  `json:"runId,omitempty"`
	StartedAt  string  `json:"startedAt,omitempty"`
	FinishedAt string  `json:"finishedAt,omitempty"`
	DurationMs float64 `json:"durationMs,omitempty"`
	Git        *Git    `json:"git,omitempty"`
	Env        *Env    `json:"env,omitempty"`
	Totals     *Totals `json:"totals,omitempty"`
	Report     *Report `json:"report,omitempty"`
}

type Git struct {
	Repo string `json:"repo,omitempty"`
	Ref  string `json:"ref,omitempty"`
	SHA  string `json:"sha,omitempty"`
}

type Env struct {
	Target  string `json:"target,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`
}

type Totals struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Flaky   int `json:"flaky"`
}

type Report struct {
	HTMLIndex string `json:"htmlIndex,omitempty"`
}

// Index is the run index document listing every known run.
type Index struct {
	Runs []IndexEntry `json:"runs"`
}

type IndexEntry struct {
	RunID       string `json:"runId"`
	SummaryPath string `json:"summaryPath"`
}

// Counts returns the test totals, treating a missing totals block as all zero.
func (s *Summary) Counts() Totals {
	if s == nil || s.Totals == nil {
		return Totals{}
	}
	return *s.Totals
}

// HTMLIndex returns the relative path of the HTML report, or "" when absent.
func (s *Summary) HTMLIndex() string {
	if s == nil || s.Report == nil {
		return ""
	}
	return s.Report.HTMLIndex
}

// Title is the heading used for a run's detail view.
func (s *Summary) Title() string {
	if s == nil {
		return "Run"
	}
	if s.JobID != "" {
		return s.JobID
	}
	if s.RunID != "" {
		return s.RunID
	}
	return "Run"
}
