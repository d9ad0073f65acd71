package engine

import (
	"rundash/internal/runs"
)

// FilterRows returns the rows matching the free-text query and, when statuses is
// non-empty, one of the given statuses. Row order and indexes are preserved.
func FilterRows(rows []Row, query string, statuses []runs.Status) []Row {
	allowed := make(map[runs.Status]bool, len(statuses))
	for _, st := range statuses {
		allowed[st] = true
	}

	filtered := make([]Row, 0, len(rows))
	for _, r := range rows {
		if len(allowed) > 0 && !allowed[r.Status()] {
			continue
		}
		// Pending and failed rows can only match on their run ID.
		if !runs.Matches(r.Item.RunID, r.Summary(), query) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
