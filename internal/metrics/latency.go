package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// LatencyStats records fetch latencies for one batch.
type LatencyStats struct {
	mu sync.Mutex
	// microseconds, 1us to 60s, 3 significant digits
	h *hdrhistogram.Histogram
}

// LatencySummary is a point-in-time view of recorded latencies.
type LatencySummary struct {
	Count int64         `json:"count"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

func NewLatencyStats() *LatencyStats {
	return &LatencyStats{h: hdrhistogram.New(1, 60_000_000, 3)}
}

func (l *LatencyStats) Record(d time.Duration) {
	if l == nil {
		return
	}
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// Values above the trackable range are clamped rather than dropped.
	if us > l.h.HighestTrackableValue() {
		us = l.h.HighestTrackableValue()
	}
	_ = l.h.RecordValue(us)
}

func (l *LatencyStats) Summary() LatencySummary {
	if l == nil {
		return LatencySummary{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.h.TotalCount() == 0 {
		return LatencySummary{}
	}
	toDur := func(us int64) time.Duration { return time.Duration(us) * time.Microsecond }
	return LatencySummary{
		Count: l.h.TotalCount(),
		P50:   toDur(l.h.ValueAtQuantile(50)),
		P95:   toDur(l.h.ValueAtQuantile(95)),
		P99:   toDur(l.h.ValueAtQuantile(99)),
		Max:   toDur(l.h.Max()),
	}
}
