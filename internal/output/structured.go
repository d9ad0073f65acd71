package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// structuredWriter implements the json and ndjson encodings shared by the console,
// emit, and file sinks. Callers hold their own lock.
type structuredWriter struct {
	w       io.Writer
	format  string // "json" | "ndjson"
	results []Result
}

func (s *structuredWriter) write(v any) error {
	switch s.format {
	case "json":
		r, ok := v.(Result)
		if !ok {
			// Ignore lifecycle events in JSON aggregate mode.
			return nil
		}
		s.results = append(s.results, r)
		return nil
	case "ndjson":
		var e Event
		switch t := v.(type) {
		case Event:
			e = t
		case Result:
			e = eventFromResult(t)
		default:
			return nil
		}
		if err := json.NewEncoder(s.w).Encode(e); err != nil {
			return err
		}
		return flushIfPossible(s.w)
	default:
		return fmt.Errorf("unsupported structured format: %s", s.format)
	}
}

// close writes the JSON aggregate, ordered by index rather than completion.
func (s *structuredWriter) close() error {
	if s.format != "json" {
		return nil
	}
	sorted := sortedResults(s.results)
	encoder := json.NewEncoder(s.w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(sorted); err != nil {
		return err
	}
	return flushIfPossible(s.w)
}

func sortedResults(in []Result) []Result {
	out := make([]Result, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
