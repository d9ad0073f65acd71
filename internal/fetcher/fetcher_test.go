package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rundash/internal/fetcher"
	"rundash/internal/metrics"
	"rundash/internal/runs"
	"rundash/internal/store"
)

func newFetcher(t *testing.T, mux *http.ServeMux, m *metrics.Metrics) *fetcher.Fetcher {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := store.NewClient(context.Background(), srv.URL)
	require.NoError(t, err)
	return fetcher.NewFetcher(client, m)
}

func TestFetcher_NilChecks(t *testing.T) {
	var nilCtx context.Context
	var f *fetcher.Fetcher

	_, err := f.FetchSummary(context.Background(), "a.json")
	require.ErrorContains(t, err, "nil Fetcher")

	f = fetcher.NewFetcher(nil, nil)
	_, err = f.FetchIndex(context.Background())
	require.ErrorContains(t, err, "nil store client")

	_, err = f.FetchIndex(nilCtx)
	require.ErrorContains(t, err, "nil context")

	_, ok := f.ReportURL(&runs.Summary{Report: &runs.Report{HTMLIndex: "x/index.html"}})
	assert.False(t, ok)
}

func TestFetcher_FetchIndexAndSummary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/index/runs.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"runs":[{"runId":"A","summaryPath":"runs/A/summary.json"}]}`))
	})
	mux.HandleFunc("/runs/A/summary.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"runId":"A","durationMs":65000,"report":{"htmlIndex":"runs/A/report/index.html"}}`))
	})
	m := metrics.New()
	f := newFetcher(t, mux, m)

	idx, err := f.FetchIndex(context.Background())
	require.NoError(t, err)
	require.Len(t, idx.Runs, 1)

	s, err := f.FetchSummary(context.Background(), "/"+idx.Runs[0].SummaryPath)
	require.NoError(t, err)
	assert.Equal(t, "A", s.RunID)

	u, ok := f.ReportURL(s)
	require.True(t, ok)
	assert.Equal(t, f.Store().BaseURL+"/runs/A/report/index.html", u)

	_, err = f.FetchSummary(context.Background(), "runs/missing/summary.json")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, store.StatusCode(err))

	// index/success, summary/success, summary/failure
	n, err := testutil.GatherAndCount(m.Registry(), "rundash_fetch_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestFetcher_EmptyPath(t *testing.T) {
	f := newFetcher(t, http.NewServeMux(), nil)
	_, err := f.FetchSummary(context.Background(), "  ")
	require.ErrorContains(t, err, "empty summary path")
}

func TestFetcher_DedupesConcurrentSummaryRequests(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/runs/A/summary.json", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"runId":"A"}`))
	})
	f := newFetcher(t, mux, nil)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*runs.Summary, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := f.FetchSummary(context.Background(), "runs/A/summary.json")
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}

	// Give every caller time to join the in-flight request.
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for _, s := range results {
		require.NotNil(t, s)
		assert.Equal(t, "A", s.RunID)
	}

	// Not a cache: a later call goes to the store again.
	_, err := f.FetchSummary(context.Background(), "runs/A/summary.json")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}
