package runs

import "strconv"

// PendingNote is shown for a run whose summary has not arrived yet.
const PendingNote = "Loading summary…"

// TableRow is one line of the runs table. Count columns are strings so absent
// values can use the placeholder.
type TableRow struct {
	Index    int    `json:"index"`
	RunID    string `json:"runId"`
	Status   Status `json:"status"`
	Passed   string `json:"passed"`
	Failed   string `json:"failed"`
	Duration string `json:"duration"`
	Git      string `json:"git"`
	// Note is the failure message for ERROR rows and the pending note for LOADING rows.
	Note string `json:"note,omitempty"`
}

// NewTableRow renders one row. s is nil unless the fetch succeeded; message is
// the failure message for failed fetches.
func NewTableRow(index int, runID string, s *Summary, status Status, message string) TableRow {
	row := TableRow{
		Index:    index,
		RunID:    orPlaceholder(runID),
		Status:   status,
		Passed:   Placeholder,
		Failed:   Placeholder,
		Duration: Placeholder,
		Git:      Placeholder,
	}
	switch status {
	case StatusError:
		row.Note = message
	case StatusLoading:
		row.Note = PendingNote
	}
	if s == nil {
		return row
	}
	// A loaded summary without totals counts as zero, not absent.
	c := s.Counts()
	row.Passed = strconv.Itoa(c.Passed)
	row.Failed = strconv.Itoa(c.Failed)
	row.Duration = FormatDuration(s.DurationMs)
	if s.Git != nil && s.Git.SHA != "" {
		row.Git = ShortSHA(s.Git.SHA)
	}
	return row
}
