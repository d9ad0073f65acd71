package runs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Every optional field also accepts null, which decodes as absent.
const summarySchema = `{
  "type": "object",
  "properties": {
    "jobId":      {"type": ["string", "null"]},
    "runId":      {"type": ["string", "null"]},
    "startedAt":  {"type": ["string", "null"]},
    "finishedAt": {"type": ["string", "null"]},
    "durationMs": {"type": ["number", "null"], "minimum": 0},
    "git": {
      "type": ["object", "null"],
      "properties": {
        "repo": {"type": ["string", "null"]},
        "ref":  {"type": ["string", "null"]},
        "sha":  {"type": ["string", "null"]}
      }
    },
    "env": {
      "type": ["object", "null"],
      "properties": {
        "target":  {"type": ["string", "null"]},
        "baseURL": {"type": ["string", "null"]}
      }
    },
    "totals": {
      "type": ["object", "null"],
      "properties": {
        "passed":  {"type": ["integer", "null"], "minimum": 0},
        "failed":  {"type": ["integer", "null"], "minimum": 0},
        "skipped": {"type": ["integer", "null"], "minimum": 0},
        "flaky":   {"type": ["integer", "null"], "minimum": 0}
      }
    },
    "report": {
      "type": ["object", "null"],
      "properties": {
        "htmlIndex": {"type": ["string", "null"]}
      }
    }
  }
}`

var summarySchemaLoader = gojsonschema.NewStringLoader(summarySchema)

// DecodeSummary validates a summary body against the summary schema and decodes it.
func DecodeSummary(body []byte) (*Summary, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("malformed summary: body is not valid JSON")
	}

	result, err := gojsonschema.Validate(summarySchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("malformed summary: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, fmt.Errorf("malformed summary: %s", strings.Join(problems, "; "))
	}

	var s Summary
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("malformed summary: %w", err)
	}
	return &s, nil
}

// DecodeIndex decodes a run index body. Entries without a summary path are dropped.
func DecodeIndex(body []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(body, &idx); err != nil {
		return nil, fmt.Errorf("malformed runs index: %w", err)
	}
	kept := idx.Runs[:0]
	for _, r := range idx.Runs {
		if strings.TrimSpace(r.SummaryPath) == "" {
			continue
		}
		kept = append(kept, r)
	}
	idx.Runs = kept
	return &idx, nil
}
