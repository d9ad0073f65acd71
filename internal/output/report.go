package output

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"rundash/internal/metrics"
	"rundash/internal/runs"
)

// ReportSink writes a Markdown summary of one batch on Close.
type ReportSink struct {
	path         string
	file         *os.File
	mu           sync.Mutex
	results      []Result
	batchID      string
	latency      *metrics.LatencySummary
	exitCode     int
	haveExitCode bool
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := createFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{
		path: path,
		file: f,
	}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case Result:
		s.results = append(s.results, t)
	case Event:
		if t.BatchID != "" {
			s.batchID = t.BatchID
		}
		if t.Type == EventBatchFinished {
			s.exitCode = t.ExitCode
			s.haveExitCode = true
			s.latency = t.Latency
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := renderMarkdownReport(s.batchID, sortedResults(s.results), s.latency, s.exitCode, s.haveExitCode)
	if _, err := s.file.WriteString(report); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func renderMarkdownReport(batchID string, results []Result, latency *metrics.LatencySummary, exitCode int, haveExitCode bool) string {
	counts := make(map[runs.Status]int)
	var failing []Result
	for _, r := range results {
		counts[r.Status]++
		if r.Status == runs.StatusFail {
			failing = append(failing, r)
		}
	}

	var b strings.Builder
	b.WriteString("# Test Runs Report\n\n")

	if batchID != "" {
		fmt.Fprintf(&b, "- Batch: `%s`\n", batchID)
	}
	fmt.Fprintf(&b, "- Runs: %d\n", len(results))
	fmt.Fprintf(&b, "- PASS: %d, FAIL: %d, ERROR: %d\n", counts[runs.StatusPass], counts[runs.StatusFail], counts[runs.StatusError])
	if haveExitCode {
		fmt.Fprintf(&b, "- Exit code: %d\n", exitCode)
	}
	if latency != nil && latency.Count > 0 {
		fmt.Fprintf(&b, "- Summary fetch latency: p50 %s, p95 %s, p99 %s, max %s\n",
			formatLatency(latency.P50), formatLatency(latency.P95), formatLatency(latency.P99), formatLatency(latency.Max))
	}
	b.WriteString("\n")

	// --- Runs table ---
	b.WriteString("## Runs\n")
	if len(results) == 0 {
		b.WriteString("- None\n\n")
	} else {
		b.WriteString("| Run | Status | Passed | Failed | Duration | Git | Report |\n")
		b.WriteString("| --- | --- | ---: | ---: | ---: | --- | --- |\n")
		for _, r := range results {
			row := runs.NewTableRow(r.Index, r.RunID, r.Summary, r.Status, r.Message)
			report := runs.Placeholder
			if r.ReportURL != "" {
				report = fmt.Sprintf("[open](%s)", r.ReportURL)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				markdownCell(row.RunID), row.Status, row.Passed, row.Failed, row.Duration, markdownCell(row.Git), report)
		}
		b.WriteString("\n")
	}

	// --- Failing runs ---
	b.WriteString("## Failing runs\n\n")
	if len(failing) == 0 {
		b.WriteString("- None\n\n")
	} else {
		for _, r := range failing {
			c := r.Summary.Counts()
			fmt.Fprintf(&b, "### %s\n", markdownCell(r.Summary.Title()))
			fmt.Fprintf(&b, "- Run: %s\n", markdownCell(r.RunID))
			if r.Summary.Env != nil && r.Summary.Env.Target != "" {
				fmt.Fprintf(&b, "- Env: %s\n", markdownCell(r.Summary.Env.Target))
			}
			fmt.Fprintf(&b, "- Git: %s\n", markdownCell(runs.GitLabel(r.Summary.Git)))
			fmt.Fprintf(&b, "- Failed: %d of %d (skipped %d, flaky %d)\n", c.Failed, c.Passed+c.Failed, c.Skipped, c.Flaky)
			if r.ReportURL != "" {
				fmt.Fprintf(&b, "- Report: %s\n", r.ReportURL)
			} else {
				fmt.Fprintf(&b, "- Report: %s\n", runs.NoReportNote)
			}
			b.WriteString("\n")
		}
	}

	// --- Errors ---
	b.WriteString("## Errors\n\n")
	groups := groupErrors(results)
	if len(groups) == 0 {
		b.WriteString("- None\n\n")
	} else {
		for _, g := range groups {
			fmt.Fprintf(&b, "- **%s**: %s\n", markdownCell(g.Reason), formatRunList(g.RunIDs, 5))
		}
		b.WriteString("\n")
	}

	return b.String()
}
