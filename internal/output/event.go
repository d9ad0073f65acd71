package output

import (
	"rundash/internal/metrics"
	"rundash/internal/runs"
)

// Lifecycle event types.
const (
	EventBatchStarted  = "batch.started"
	EventRunResult     = "run.result"
	EventBatchFinished = "batch.finished"
)

// Result is the outcome of one run's summary fetch as seen by the sinks.
// Results arrive in completion order; Index is the run's position in the index.
type Result struct {
	Index       int           `json:"index"`
	RunID       string        `json:"run_id"`
	SummaryPath string        `json:"summary_path"`
	Status      runs.Status   `json:"status"`
	Message     string        `json:"message,omitempty"`
	ReportURL   string        `json:"report_url,omitempty"`
	Summary     *runs.Summary `json:"summary,omitempty"`
}

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line), including:
// - batch.started
// - run.result
// - batch.finished
//
// JSON mode remains an aggregate of Result values in index order.
type Event struct {
	Type    string `json:"type"`
	BatchID string `json:"batch_id,omitempty"`
	*Result
	Runs     int                     `json:"runs,omitempty"`
	Counts   map[runs.Status]int     `json:"counts,omitempty"`
	Latency  *metrics.LatencySummary `json:"latency,omitempty"`
	ExitCode int                     `json:"exit_code,omitempty"`
}

func eventFromResult(r Result) Event {
	return Event{Type: EventRunResult, Result: &r}
}
