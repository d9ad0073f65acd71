package runs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSummary(t *testing.T) {
	body := []byte(`{
		"jobId": "job-1",
		"runId": "run-1",
		"startedAt": "2025-11-13T15:00:00Z",
		"durationMs": 1234.5,
		"git": {"repo": "org/app", "ref": "main", "sha": "abc123"},
		"env": {"target": "prod", "baseURL": "https://example.com"},
		"totals": {"passed": 5, "failed": 0, "skipped": 1, "flaky": 0},
		"report": {"htmlIndex": "runs/run-1/report/index.html"}
	}`)

	s, err := DecodeSummary(body)
	require.NoError(t, err)
	assert.Equal(t, "job-1", s.JobID)
	assert.Equal(t, 1234.5, s.DurationMs)
	assert.Equal(t, "abc123", s.Git.SHA)
	assert.Equal(t, 5, s.Counts().Passed)
	assert.Equal(t, "runs/run-1/report/index.html", s.HTMLIndex())
}

func TestDecodeSummary_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<Error><Code>NoSuchKey</Code></Error>`},
		{name: "array", body: `[1,2,3]`},
		{name: "string totals", body: `{"totals": {"failed": "two"}}`},
		{name: "negative duration", body: `{"durationMs": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSummary([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "malformed summary")
		})
	}
}

func TestDecodeSummary_Empty(t *testing.T) {
	s, err := DecodeSummary([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "", s.HTMLIndex())
	assert.Equal(t, Totals{}, s.Counts())
}

func TestDecodeSummary_NullFieldsAreAbsent(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "null report", body: `{"runId":"r1","totals":{"passed":5,"failed":0},"report":null}`},
		{name: "null htmlIndex", body: `{"runId":"r1","totals":{"passed":5,"failed":0},"report":{"htmlIndex":null}}`},
		{name: "null sha", body: `{"runId":"r1","totals":{"passed":5,"failed":0},"git":{"ref":"main","sha":null}}`},
		{name: "null duration", body: `{"runId":"r1","totals":{"passed":5,"failed":null},"durationMs":null}`},
		{name: "null blocks", body: `{"runId":"r1","jobId":null,"git":null,"env":null,"totals":{"passed":5}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeSummary([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, StatusPass, DeriveStatus(s, false))
			assert.Equal(t, 5, s.Counts().Passed)
			assert.Empty(t, s.HTMLIndex())

			d := NewDetail(s, "", s.HTMLIndex() != "", time.Now())
			assert.False(t, d.HasReport)
		})
	}
}

func TestDecodeIndex(t *testing.T) {
	idx, err := DecodeIndex([]byte(`{"runs":[
		{"runId":"a","summaryPath":"runs/a/summary.json"},
		{"runId":"broken","summaryPath":""},
		{"runId":"b","summaryPath":"runs/b/summary.json"}
	]}`))
	require.NoError(t, err)
	require.Len(t, idx.Runs, 2)
	assert.Equal(t, "a", idx.Runs[0].RunID)
	assert.Equal(t, "b", idx.Runs[1].RunID)

	_, err = DecodeIndex([]byte(`{"runs":`))
	require.Error(t, err)
}
