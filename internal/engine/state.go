package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"rundash/internal/runs"
)

// WorkItem is one run whose summary is fetched during a batch.
// SummaryPath is the item's identity in the store.
type WorkItem struct {
	RunID       string `json:"runId"`
	SummaryPath string `json:"summaryPath"`
}

// Row is the state of one work item. Index is its stable position in the batch.
type Row struct {
	Index  int
	Item   WorkItem
	Result Result[*runs.Summary]
}

func (r Row) Summary() *runs.Summary {
	if r.Result.State != Success {
		return nil
	}
	return r.Result.Value
}

func (r Row) Status() runs.Status {
	return runs.DeriveStatus(r.Summary(), r.Result.State == Failure)
}

type rowJSON struct {
	Index       int           `json:"index"`
	RunID       string        `json:"runId"`
	SummaryPath string        `json:"summaryPath"`
	State       string        `json:"state"`
	Status      runs.Status   `json:"status"`
	Summary     *runs.Summary `json:"summary,omitempty"`
	Error       string        `json:"error,omitempty"`
}

func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(rowJSON{
		Index:       r.Index,
		RunID:       r.Item.RunID,
		SummaryPath: r.Item.SummaryPath,
		State:       r.Result.State.String(),
		Status:      r.Status(),
		Summary:     r.Summary(),
		Error:       r.Result.Message,
	})
}

// State is an immutable snapshot of a batch. It is never modified after it has
// been published; Apply returns a new snapshot instead.
type State struct {
	BatchID    string    `json:"batchId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
	Rows       []Row     `json:"rows"`

	completed int
}

// Patch is the completion of one work item.
type Patch struct {
	Index  int
	Result Result[*runs.Summary]
}

func NewState(batchID string, items []WorkItem, startedAt time.Time) *State {
	rows := make([]Row, len(items))
	for i, it := range items {
		rows[i] = Row{Index: i, Item: it}
	}
	return &State{BatchID: batchID, StartedAt: startedAt, Rows: rows}
}

// Apply folds a patch into prev and returns the next snapshot. prev is not modified.
// A patch may only move a Pending row to Success or Failure.
func Apply(prev *State, p Patch) (*State, error) {
	if prev == nil {
		return nil, fmt.Errorf("apply: state is nil")
	}
	if p.Index < 0 || p.Index >= len(prev.Rows) {
		return nil, fmt.Errorf("apply: index %d out of range [0,%d)", p.Index, len(prev.Rows))
	}
	if p.Result.State == Pending {
		return nil, fmt.Errorf("apply: patch for index %d is still pending", p.Index)
	}
	if cur := prev.Rows[p.Index].Result.State; cur != Pending {
		return nil, fmt.Errorf("apply: index %d already %s", p.Index, cur)
	}

	next := *prev
	next.Rows = make([]Row, len(prev.Rows))
	copy(next.Rows, prev.Rows)
	next.Rows[p.Index].Result = p.Result
	next.completed = prev.completed + 1
	return &next, nil
}

// Finish returns a copy of s stamped with its completion time.
func (s *State) Finish(at time.Time) *State {
	next := *s
	next.FinishedAt = at
	return &next
}

func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Completed is the number of rows that have left Pending.
func (s *State) Completed() int {
	if s == nil {
		return 0
	}
	return s.completed
}

func (s *State) Done() bool {
	return s.Completed() == s.Len()
}

func (s *State) Row(i int) (Row, bool) {
	if s == nil || i < 0 || i >= len(s.Rows) {
		return Row{}, false
	}
	return s.Rows[i], true
}

// FindRun returns the first row with the given run ID.
func (s *State) FindRun(runID string) (Row, bool) {
	if s == nil {
		return Row{}, false
	}
	for _, r := range s.Rows {
		if r.Item.RunID == runID {
			return r, true
		}
	}
	return Row{}, false
}

// Counts tallies rows by derived status.
func (s *State) Counts() map[runs.Status]int {
	out := make(map[runs.Status]int, 4)
	if s == nil {
		return out
	}
	for _, r := range s.Rows {
		out[r.Status()]++
	}
	return out
}
