package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rundash/internal/runs"
)

func filterFixture() []Row {
	return []Row{
		{Index: 0, Item: WorkItem{RunID: "nightly-1"}, Result: Succeeded(&runs.Summary{
			Env: &runs.Env{Target: "staging"}, Git: &runs.Git{SHA: "abc123"}, Totals: &runs.Totals{Passed: 1},
		})},
		{Index: 1, Item: WorkItem{RunID: "nightly-2"}, Result: Succeeded(&runs.Summary{
			Env: &runs.Env{Target: "production"}, Totals: &runs.Totals{Failed: 1},
		})},
		{Index: 2, Item: WorkItem{RunID: "pr-9"}, Result: Failed[*runs.Summary]("Failed summary: Not Found (404)")},
		{Index: 3, Item: WorkItem{RunID: "pr-10"}},
	}
}

func rowIndexes(rows []Row) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Index)
	}
	return out
}

func TestFilterRows(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		statuses []runs.Status
		expected []int
	}{
		{"no filters", "", nil, []int{0, 1, 2, 3}},
		{"query on run id", "PR-", nil, []int{2, 3}},
		{"query on env", "staging", nil, []int{0}},
		{"query on sha", "ABC1", nil, []int{0}},
		{"failed rows only match run id", "not found", nil, []int{}},
		{"status filter", "", []runs.Status{runs.StatusFail, runs.StatusError}, []int{1, 2}},
		{"status and query", "nightly", []runs.Status{runs.StatusFail}, []int{1}},
		{"loading", "", []runs.Status{runs.StatusLoading}, []int{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rowIndexes(FilterRows(filterFixture(), tt.query, tt.statuses))
			assert.Equal(t, tt.expected, got)
		})
	}
}
