package runs

import "strings"

// Matches reports whether a row matches a free-text search query.
// The query is trimmed and compared case-insensitively as a substring of the
// run ID, commit sha and ref, environment target and base URL, and job ID.
// A blank query matches every row.
func Matches(runID string, s *Summary, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}

	fields := []string{runID}
	if s != nil {
		if s.Git != nil {
			fields = append(fields, s.Git.SHA, s.Git.Ref)
		}
		if s.Env != nil {
			fields = append(fields, s.Env.Target, s.Env.BaseURL)
		}
		fields = append(fields, s.JobID)
	}

	var parts []string
	for _, f := range fields {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Contains(strings.ToLower(strings.Join(parts, " ")), q)
}
