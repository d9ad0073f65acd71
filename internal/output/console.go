package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"rundash/internal/runs"
)

type ConsoleSink struct {
	writer          io.Writer
	format          string // "text", "table", "json", "ndjson"
	mu              sync.Mutex
	enc             structuredWriter
	results         []Result // For table output
	allowedStatuses map[runs.Status]bool
}

func NewConsoleSink(w io.Writer, format string, filterStatuses []string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	s := &ConsoleSink{
		writer: w,
		format: format,
		enc:    structuredWriter{w: w, format: format},
	}

	if len(filterStatuses) > 0 {
		s.allowedStatuses = make(map[runs.Status]bool)
		for _, raw := range filterStatuses {
			if st, ok := runs.ParseStatus(raw); ok {
				s.allowedStatuses[st] = true
			}
		}
	}

	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Apply filtering if configured
	if len(s.allowedStatuses) > 0 {
		if r, ok := v.(Result); ok && !s.allowedStatuses[r.Status] {
			return nil
		}
	}

	switch s.format {
	case "json", "ndjson":
		return s.enc.write(v)
	case "table":
		if r, ok := v.(Result); ok {
			s.results = append(s.results, r)
		}
		return nil
	case "text":
		r, ok := v.(Result)
		if !ok {
			// Ignore events in text mode.
			return nil
		}
		if _, err := fmt.Fprintln(s.writer, formatTextLine(r)); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json", "ndjson":
		return s.enc.close()
	case "table":
		renderTable(s.writer, sortedResults(s.results))
		return flushIfPossible(s.writer)
	case "text":
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

var statusColors = map[runs.Status]*color.Color{
	runs.StatusPass:    color.New(color.FgGreen, color.Bold),
	runs.StatusFail:    color.New(color.FgRed, color.Bold),
	runs.StatusError:   color.New(color.FgYellow, color.Bold),
	runs.StatusLoading: color.New(color.FgCyan),
}

func colorStatus(st runs.Status) string {
	c, ok := statusColors[st]
	if !ok {
		return string(st)
	}
	return c.Sprint(string(st))
}

// formatTextLine renders one streaming console line, e.g.
//
//	[PASS] run-42 passed=10 failed=0 1m 5s main 0123abcd
//	[ERROR] run-43 - Failed summary: Not Found (404)
func formatTextLine(r Result) string {
	row := runs.NewTableRow(r.Index, r.RunID, r.Summary, r.Status, r.Message)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", colorStatus(r.Status), row.RunID)
	if r.Status == runs.StatusError {
		if r.Message != "" {
			fmt.Fprintf(&b, " - %s", r.Message)
		}
		return b.String()
	}
	fmt.Fprintf(&b, " passed=%s failed=%s %s", row.Passed, row.Failed, row.Duration)
	if r.Summary != nil && r.Summary.Git != nil {
		fmt.Fprintf(&b, " %s", runs.GitLabel(r.Summary.Git))
	}
	if r.ReportURL != "" {
		fmt.Fprintf(&b, " %s", color.New(color.Faint).Sprint(r.ReportURL))
	}
	return b.String()
}

func renderTable(w io.Writer, results []Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Run", "Status", "Passed", "Failed", "Duration", "Git"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Run", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
	})

	counts := make(map[runs.Status]int)
	for _, r := range results {
		row := runs.NewTableRow(r.Index, r.RunID, r.Summary, r.Status, r.Message)
		counts[r.Status]++
		t.AppendRow(table.Row{row.RunID, colorStatus(row.Status), row.Passed, row.Failed, row.Duration, row.Git})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("TOTAL %d", len(results)),
		fmt.Sprintf("%d PASS / %d FAIL / %d ERROR", counts[runs.StatusPass], counts[runs.StatusFail], counts[runs.StatusError]),
		"", "", "", "",
	})
	t.Render()

	// Failure messages do not fit the table; list them underneath.
	for _, r := range results {
		if r.Status == runs.StatusError && r.Message != "" {
			fmt.Fprintf(w, "%s %s: %s\n", colorStatus(r.Status), r.RunID, r.Message)
		}
	}
}
