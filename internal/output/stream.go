package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// StreamSink writes json or ndjson to a stream.
//
// Formats:
//   - json: collects run results and writes one array, in index order, on Close
//   - ndjson: writes every Event as it arrives, one JSON object per line
type StreamSink struct {
	mu     sync.Mutex
	enc    structuredWriter
	finish func() error
	closed bool
}

func newStreamSink(w io.Writer, format string, finish func() error) (*StreamSink, error) {
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return &StreamSink{enc: structuredWriter{w: w, format: format}, finish: finish}, nil
}

// NewEmitSink writes an additional structured stream to w (usually stdout).
func NewEmitSink(w io.Writer, format string) (*StreamSink, error) {
	if w == nil {
		return nil, fmt.Errorf("emit sink writer must not be nil")
	}
	return newStreamSink(w, format, nil)
}

// NewFileSink writes structured output to path. The output is staged next to
// path and moved into place on Close, so path never holds a partial batch.
// An empty format is inferred from the file extension.
func NewFileSink(path string, format string) (*StreamSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}
	if format == "" {
		var err error
		if format, err = formatForPath(path); err != nil {
			return nil, err
		}
	}
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	f, err := createStagingFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	buf := bufio.NewWriter(f)
	finish := func() error {
		err := buf.Flush()
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(f.Name())
			return err
		}
		return os.Rename(f.Name(), path)
	}
	return newStreamSink(buf, format, finish)
}

func (s *StreamSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("write to closed sink")
	}
	return s.enc.write(v)
}

func (s *StreamSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.enc.close()
	if s.finish != nil {
		if finishErr := s.finish(); finishErr != nil && err == nil {
			err = finishErr
		}
	}
	return err
}

func formatForPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return "json", nil
	case ".ndjson", ".jsonl":
		return "ndjson", nil
	default:
		return "", fmt.Errorf("cannot infer output format from file extension %q", ext)
	}
}

// createFile creates path, making its parent directory if needed.
func createFile(path string) (*os.File, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// createStagingFile creates a temporary file in path's directory.
func createStagingFile(path string) (*os.File, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, err
	}
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}
	return f, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
