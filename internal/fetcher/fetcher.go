package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rundash/internal/metrics"
	"rundash/internal/runs"
	"rundash/internal/store"
)

// Fetcher is the single fetch boundary between the engine and the artifact store.
// Concurrent requests for the same summary path share one request.
type Fetcher struct {
	store   *store.Client
	group   Group[*runs.Summary]
	metrics *metrics.Metrics
}

// NewFetcher wires a store client and an optional metrics sink (nil disables metrics).
func NewFetcher(client *store.Client, m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		store:   client,
		metrics: m,
	}
}

func (f *Fetcher) Store() *store.Client {
	if f == nil {
		return nil
	}
	return f.store
}

func (f *Fetcher) check(op string, ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("%s: nil context", op)
	}
	if f == nil {
		return fmt.Errorf("%s: nil Fetcher", op)
	}
	if f.store == nil {
		return fmt.Errorf("%s: nil store client (use NewFetcher)", op)
	}
	return nil
}

// FetchIndex retrieves the run index.
func (f *Fetcher) FetchIndex(ctx context.Context) (*runs.Index, error) {
	if err := f.check("FetchIndex", ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	idx, err := f.store.FetchIndex(ctx)
	f.metrics.ObserveFetch(metrics.KindIndex, time.Since(start), err)
	return idx, err
}

// FetchSummary retrieves one run summary. A shared in-flight result is returned
// to every caller; the decoded Summary must be treated as read-only.
func (f *Fetcher) FetchSummary(ctx context.Context, path string) (*runs.Summary, error) {
	if err := f.check("FetchSummary", ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("FetchSummary: empty summary path")
	}

	key := strings.TrimLeft(path, "/")
	s, err, _ := f.group.Do(key, func() (*runs.Summary, error) {
		start := time.Now()
		s, err := f.store.FetchSummary(ctx, key)
		f.metrics.ObserveFetch(metrics.KindSummary, time.Since(start), err)
		return s, err
	})
	return s, err
}

// ReportURL resolves a summary's HTML report location, if it has one.
func (f *Fetcher) ReportURL(s *runs.Summary) (string, bool) {
	if f == nil || f.store == nil {
		return "", false
	}
	return f.store.ReportURL(s.HTMLIndex())
}
