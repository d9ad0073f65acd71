package output

import (
	"errors"
	"fmt"
	"io"
)

// Sink defines a destination for batch events and run results.
type Sink interface {
	Write(v any) error
	Close() error
}

type namedSink struct {
	name string
	Sink
}

// Manager fans every event of a batch out to its sinks. A failing sink does
// not stop the others from receiving the event.
type Manager struct {
	sinks  []namedSink
	closed bool
}

func NewManager() *Manager {
	return &Manager{}
}

// AddSink registers s under name; the name prefixes errors from s.
func (m *Manager) AddSink(name string, s Sink) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if s == nil {
		return fmt.Errorf("sink %q must not be nil", name)
	}
	if m.closed {
		return fmt.Errorf("output manager is closed")
	}
	m.sinks = append(m.sinks, namedSink{name: name, Sink: s})
	return nil
}

func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	return len(m.sinks)
}

func (m *Manager) Write(v any) error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if m.closed {
		return fmt.Errorf("output manager is closed")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(v); err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", s.name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors writing to sinks: %w", errors.Join(errs...))
	}
	return nil
}

// Close closes every sink once. Later calls are no-ops.
func (m *Manager) Close() error {
	if m == nil {
		return fmt.Errorf("output manager is nil")
	}
	if m.closed {
		return nil
	}
	m.closed = true
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing sinks: %w", errors.Join(errs...))
	}
	return nil
}

type flusher interface {
	Flush() error
}

func flushIfPossible(w io.Writer) error {
	f, ok := w.(flusher)
	if !ok {
		return nil
	}
	return f.Flush()
}
