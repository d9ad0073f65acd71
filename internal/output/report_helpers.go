package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/acarl005/stripansi"

	"rundash/internal/runs"
)

// normalizeErrorReason strips ANSI escapes, collapses whitespace, and truncates long messages.
func normalizeErrorReason(errText string) string {
	s := stripansi.Strip(errText)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "unknown error"
	}

	// Fallback truncation
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}

type errorGroup struct {
	Reason string
	RunIDs []string
}

// groupErrors buckets failed runs by normalized reason, largest group first.
func groupErrors(results []Result) []errorGroup {
	byReason := make(map[string][]string)
	for _, r := range results {
		if r.Status != runs.StatusError {
			continue
		}
		reason := normalizeErrorReason(r.Message)
		byReason[reason] = append(byReason[reason], r.RunID)
	}

	groups := make([]errorGroup, 0, len(byReason))
	for reason, ids := range byReason {
		groups = append(groups, errorGroup{Reason: reason, RunIDs: ids})
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].RunIDs) != len(groups[j].RunIDs) {
			return len(groups[i].RunIDs) > len(groups[j].RunIDs)
		}
		return groups[i].Reason < groups[j].Reason
	})
	return groups
}

func formatRunList(ids []string, max int) string {
	if len(ids) == 0 {
		return ""
	}
	noun := "runs"
	if len(ids) == 1 {
		noun = "run"
	}
	if len(ids) <= max {
		return fmt.Sprintf("%d %s (%s)", len(ids), noun, strings.Join(ids, ", "))
	}
	return fmt.Sprintf("%d %s (%s, +%d more)", len(ids), noun, strings.Join(ids[:max], ", "), len(ids)-max)
}

// markdownCell makes s safe to place inside a Markdown table cell.
func markdownCell(s string) string {
	s = stripansi.Strip(s)
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func formatLatency(d time.Duration) string {
	if d <= 0 {
		return runs.Placeholder
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
