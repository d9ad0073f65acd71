package output

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"rundash/internal/runs"
)

type recordingSink struct {
	writes   []any
	writeErr error
	closeErr error
	closed   bool
}

func (s *recordingSink) Write(v any) error {
	s.writes = append(s.writes, v)
	return s.writeErr
}

func (s *recordingSink) Close() error {
	s.closed = true
	return s.closeErr
}

func TestManager(t *testing.T) {
	t.Run("fans every event out to all sinks", func(t *testing.T) {
		a := &recordingSink{}
		b := &recordingSink{}

		mgr := NewManager()
		if err := mgr.AddSink("a", a); err != nil {
			t.Fatalf("AddSink(a) error: %v", err)
		}
		if err := mgr.AddSink("b", b); err != nil {
			t.Fatalf("AddSink(b) error: %v", err)
		}
		if got := mgr.Len(); got != 2 {
			t.Fatalf("Len: want 2, got %d", got)
		}

		events := []any{
			Event{Type: EventBatchStarted, BatchID: "b1", Runs: 1},
			Result{Index: 0, RunID: "A", Status: runs.StatusPass},
			Event{Type: EventBatchFinished, BatchID: "b1"},
		}
		for _, ev := range events {
			if err := mgr.Write(ev); err != nil {
				t.Fatalf("Write error: %v", err)
			}
		}
		if err := mgr.Close(); err != nil {
			t.Fatalf("Close() error: %v", err)
		}

		for name, s := range map[string]*recordingSink{"a": a, "b": b} {
			if got := len(s.writes); got != len(events) {
				t.Fatalf("sink %s writes: want %d, got %d", name, len(events), got)
			}
			if !s.closed {
				t.Fatalf("sink %s was not closed", name)
			}
		}
	})

	t.Run("AddSink rejects nil", func(t *testing.T) {
		mgr := NewManager()
		if err := mgr.AddSink("console", nil); err == nil {
			t.Fatalf("AddSink(nil) want error, got nil")
		}
		if mgr.Len() != 0 {
			t.Fatalf("Len after rejected sink: want 0, got %d", mgr.Len())
		}
	})

	t.Run("nil manager", func(t *testing.T) {
		var mgr *Manager
		if mgr.Len() != 0 {
			t.Fatalf("nil Len: want 0")
		}
		if err := mgr.Write(Result{}); err == nil {
			t.Fatalf("nil Write want error, got nil")
		}
	})

	t.Run("Write aggregates sink errors and keeps writing", func(t *testing.T) {
		a := &recordingSink{writeErr: errors.New("boom-a")}
		b := &recordingSink{writeErr: errors.New("boom-b")}
		mgr := NewManager()
		_ = mgr.AddSink("console", a)
		_ = mgr.AddSink("file out.json", b)

		err := mgr.Write(Result{RunID: "A"})
		if err == nil {
			t.Fatalf("Write want error, got nil")
		}
		msg := err.Error()
		for _, want := range []string{"errors writing to sinks", "write console: boom-a", "write file out.json: boom-b"} {
			if !strings.Contains(msg, want) {
				t.Fatalf("Write error missing %q; got: %s", want, msg)
			}
		}
		if len(b.writes) != 1 {
			t.Fatalf("second sink should still receive the write")
		}
	})

	t.Run("Close aggregates sink errors", func(t *testing.T) {
		a := &recordingSink{closeErr: errors.New("close-a")}
		b := &recordingSink{closeErr: errors.New("close-b")}
		mgr := NewManager()
		_ = mgr.AddSink("report", a)
		_ = mgr.AddSink("html", b)

		err := mgr.Close()
		if err == nil {
			t.Fatalf("Close want error, got nil")
		}
		msg := err.Error()
		for _, want := range []string{"errors closing sinks", "close report: close-a", "close html: close-b"} {
			if !strings.Contains(msg, want) {
				t.Fatalf("Close error missing %q; got: %s", want, msg)
			}
		}
		if !a.closed || !b.closed {
			t.Fatalf("every sink must be closed even when one fails")
		}
		if err := mgr.Close(); err != nil {
			t.Fatalf("second Close must be a no-op; got %v", err)
		}
	})

	t.Run("closed manager rejects writes and sinks", func(t *testing.T) {
		mgr := NewManager()
		_ = mgr.Close()
		if err := mgr.Write(Result{}); err == nil {
			t.Fatalf("Write after Close want error, got nil")
		}
		if err := mgr.AddSink("console", &recordingSink{}); err == nil {
			t.Fatalf("AddSink after Close want error, got nil")
		}
	})
}

func TestFlushIfPossible(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, _ = bw.WriteString("pending")
	if err := flushIfPossible(bw); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if buf.String() != "pending" {
		t.Fatalf("expected buffered bytes to be flushed; got %q", buf.String())
	}

	if err := flushIfPossible(&buf); err != nil {
		t.Fatalf("non-flusher must be a no-op; got %v", err)
	}
}
