package cli

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeStore serves an index plus one summary per run. Runs missing from summaries 404.
func fakeStore(t *testing.T, runIDs []string, summaries map[string]string) *httptest.Server {
	t.Helper()

	type entry struct {
		RunID       string `json:"runId"`
		SummaryPath string `json:"summaryPath"`
	}
	var idx struct {
		Runs []entry `json:"runs"`
	}
	for _, id := range runIDs {
		idx.Runs = append(idx.Runs, entry{RunID: id, SummaryPath: "runs/" + id + "/summary.json"})
	}
	indexBody, err := json.Marshal(idx)
	if err != nil {
		t.Fatalf("marshal index: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/index/runs.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(indexBody)
	})
	mux.HandleFunc("/runs/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/runs/"), "/summary.json")
		body, ok := summaries[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
