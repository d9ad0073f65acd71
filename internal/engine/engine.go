package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"rundash/internal/config"
	"rundash/internal/errmsg"
	"rundash/internal/fetcher"
	"rundash/internal/metrics"
	"rundash/internal/output"
	"rundash/internal/runs"
	"rundash/internal/store"
)

// ErrRunNotFound is returned by Lookup when the index has no such run.
var ErrRunNotFound = errors.New("run not found in index")

func exitCodeForRun(fatal, partial, failures bool) int {
	// Exit code contract:
	// 0 = every run passed
	// 1 = failing runs detected
	// 2 = partial failure (some summaries could not be fetched)
	// 3 = fatal error (batch did not run)
	if fatal {
		return 3
	}
	if partial {
		return 2
	}
	if failures {
		return 1
	}
	return 0
}

func setupOutputManager(cfg *config.Config, stdout io.Writer) (*output.Manager, error) {
	outMgr := output.NewManager()
	add := func(name string, s output.Sink, err error) error {
		if err == nil {
			err = outMgr.AddSink(name, s)
		}
		if err != nil {
			_ = outMgr.Close()
			return fmt.Errorf("%s sink: %w", name, err)
		}
		return nil
	}

	if !cfg.Output.NoConsole {
		if err := add("console", output.NewConsoleSink(stdout, cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus), nil); err != nil {
			return nil, err
		}
	}

	// Additional structured streams on stdout.
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(stdout, emit)
		if err := add("emit "+emit, es, err); err != nil {
			return nil, err
		}
	}

	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err := add("file "+cfg.Output.Out, fs, err); err != nil {
			return nil, err
		}
	}

	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err := add("report "+cfg.Output.Report, rs, err); err != nil {
			return nil, err
		}
	}

	if cfg.Output.HTML != "" {
		hs, err := output.NewHTMLSink(cfg.Output.HTML)
		if err := add("html "+cfg.Output.HTML, hs, err); err != nil {
			return nil, err
		}
	}

	return outMgr, nil
}

type Engine struct {
	Fetcher *fetcher.Fetcher
	Metrics *metrics.Metrics

	// Stdout receives console and emit output; Stderr receives progress and errors.
	Stdout io.Writer
	Stderr io.Writer
}

func NewEngine(f *fetcher.Fetcher, m *metrics.Metrics) *Engine {
	return &Engine{
		Fetcher: f,
		Metrics: m,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (e *Engine) stderr() io.Writer {
	if e.Stderr == nil {
		return os.Stderr
	}
	return e.Stderr
}

func (e *Engine) stdout() io.Writer {
	if e.Stdout == nil {
		return os.Stdout
	}
	return e.Stdout
}

// NewResult converts a completed row into the record written to output sinks.
func NewResult(row Row, reportURL string) output.Result {
	return output.Result{
		Index:       row.Index,
		RunID:       row.Item.RunID,
		SummaryPath: row.Item.SummaryPath,
		Status:      row.Status(),
		Message:     row.Result.Message,
		ReportURL:   reportURL,
		Summary:     row.Summary(),
	}
}

func (e *Engine) resultFor(row Row) output.Result {
	reportURL, _ := e.Fetcher.ReportURL(row.Summary())
	return NewResult(row, reportURL)
}

// StartBatch fetches the run index and returns a batch ready to run.
func (e *Engine) StartBatch(ctx context.Context) (*Batch, error) {
	if e == nil || e.Fetcher == nil {
		return nil, fmt.Errorf("engine: nil fetcher")
	}
	idx, err := e.Fetcher.FetchIndex(ctx)
	if err != nil {
		return nil, err
	}
	b := NewBatch(ItemsFromIndex(idx))
	e.Metrics.BatchStarted()
	return b, nil
}

// RunBatch fetches every summary of b. observe, if set, sees every applied patch.
// Row metrics are left to the caller, which knows whether b is the batch on show.
func (e *Engine) RunBatch(ctx context.Context, b *Batch, concurrency int, observe Observer) error {
	if e == nil || e.Fetcher == nil {
		return fmt.Errorf("engine: nil fetcher")
	}
	return b.Run(ctx, concurrency, e.Fetcher.FetchSummary, observe)
}

// Run executes one batch for the list command and returns the process exit code.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	if !cfg.Output.NoConsole {
		fmt.Fprintln(e.stderr(), "Fetching run index...")
	}
	batch, err := e.StartBatch(ctx)
	if err != nil {
		fmt.Fprintf(e.stderr(), "Error fetching run index: %s\n", errmsg.Message(err))
		if store.StatusCode(err) == http.StatusNotFound {
			fmt.Fprintf(e.stderr(), "No index at %s; check --base-url and --index-path.\n", e.Fetcher.Store().URL(cfg.Store.IndexPath))
		}
		return exitCodeForRun(true, false, false)
	}
	if !cfg.Output.NoConsole {
		fmt.Fprintf(e.stderr(), "Found %d runs.\n", len(batch.Items()))
	}

	outMgr, err := setupOutputManager(cfg, e.stdout())
	if err != nil {
		fmt.Fprintf(e.stderr(), "Error creating output sinks: %v\n", err)
		return exitCodeForRun(true, false, false)
	}
	defer func() { _ = outMgr.Close() }()

	_ = outMgr.Write(output.Event{Type: output.EventBatchStarted, BatchID: batch.ID, Runs: len(batch.Items())})

	counts := make(map[runs.Status]int)
	query := cfg.Filter.Query
	start := time.Now()
	runErr := e.RunBatch(ctx, batch, cfg.Runtime.Concurrency, func(p Patch, next *State) {
		e.Metrics.SetRows(next.Counts())
		row := next.Rows[p.Index]
		if !runs.Matches(row.Item.RunID, row.Summary(), query) {
			return
		}
		counts[row.Status()]++
		_ = outMgr.Write(e.resultFor(row))
	})
	if runErr != nil {
		fmt.Fprintf(e.stderr(), "Error running batch: %v\n", runErr)
		return exitCodeForRun(true, false, false)
	}

	code := exitCodeForRun(false, counts[runs.StatusError] > 0, counts[runs.StatusFail] > 0)
	latency := batch.Latency()
	_ = outMgr.Write(output.Event{
		Type:     output.EventBatchFinished,
		BatchID:  batch.ID,
		Counts:   counts,
		Latency:  &latency,
		ExitCode: code,
	})
	if err := outMgr.Close(); err != nil {
		fmt.Fprintf(e.stderr(), "Error writing outputs: %v\n", err)
		return exitCodeForRun(true, false, false)
	}

	if cfg.Runtime.Verbose {
		fmt.Fprintf(e.stderr(), "[verbose] batch %s: %d runs in %s (p50 %s, p95 %s)\n",
			batch.ID, len(batch.Items()), time.Since(start).Round(time.Millisecond), latency.P50, latency.P95)
	}
	return code
}

// Lookup fetches the index and then the summary of the first run with runID.
// A failed summary fetch is reported in the row, not as an error.
func (e *Engine) Lookup(ctx context.Context, runID string) (Row, error) {
	if e == nil || e.Fetcher == nil {
		return Row{}, fmt.Errorf("engine: nil fetcher")
	}
	idx, err := e.Fetcher.FetchIndex(ctx)
	if err != nil {
		return Row{}, err
	}
	row, ok := NewState("", ItemsFromIndex(idx), time.Now()).FindRun(runID)
	if !ok {
		return Row{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	s, err := e.Fetcher.FetchSummary(ctx, row.Item.SummaryPath)
	if err != nil {
		row.Result = Failed[*runs.Summary](errmsg.Message(err))
	} else {
		row.Result = Succeeded(s)
	}
	return row, nil
}

// ReportURL resolves the HTML report location of a row, if it has one.
func (e *Engine) ReportURL(row Row) (string, bool) {
	if e == nil {
		return "", false
	}
	return e.Fetcher.ReportURL(row.Summary())
}
