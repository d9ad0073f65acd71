package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rundash/internal/engine"
	"rundash/internal/errmsg"
	"rundash/internal/flags"
	"rundash/internal/metrics"
	"rundash/internal/runs"
)

var showCmd = &cobra.Command{
	Use:   "show <runId>",
	Short: "Show the detail of one run",
	Long: `Fetch the run index, find the first run with the given id and print its summary.

Exit codes:
	0 = the run passed
	1 = the run failed
	2 = the run's summary could not be fetched
	3 = fatal error (index unavailable, run not in the index, or invalid configuration)

Examples:
  rundash show nightly-2024-05-01 --base-url https://reports.example.com
  rundash show nightly-2024-05-01 --console-format json
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := resolveConfig(cmd, cfg, os.Getenv); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}
		ctx := context.Background()
		eng, err := newEngine(ctx, cfg, metrics.New(), os.Stdout, os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create store client: %v\n", err)
			os.Exit(3)
		}
		os.Exit(runShow(ctx, eng, args[0], cfg.Output.ConsoleFormat == "json", os.Stdout, os.Stderr))
	},
}

// showJSON is the machine-readable form of the detail pane.
type showJSON struct {
	Index   int          `json:"index"`
	RunID   string       `json:"runId"`
	Status  runs.Status  `json:"status"`
	Message string       `json:"message,omitempty"`
	Detail  *runs.Detail `json:"detail,omitempty"`
}

func runShow(ctx context.Context, eng *engine.Engine, runID string, asJSON bool, stdout, stderr io.Writer) int {
	row, err := eng.Lookup(ctx, runID)
	if err != nil {
		if errors.Is(err, engine.ErrRunNotFound) {
			fmt.Fprintf(stderr, "Error: run %q is not in the index\n", runID)
		} else {
			fmt.Fprintf(stderr, "Error fetching run index: %s\n", errmsg.Message(err))
		}
		return 3
	}

	status := row.Status()
	var detail *runs.Detail
	if s := row.Summary(); s != nil {
		reportURL, ok := eng.ReportURL(row)
		d := runs.NewDetail(s, reportURL, ok, time.Now())
		detail = &d
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(showJSON{
			Index:   row.Index,
			RunID:   row.Item.RunID,
			Status:  status,
			Message: row.Result.Message,
			Detail:  detail,
		})
	} else {
		writeDetailText(stdout, row.Item.RunID, status, row.Result.Message, detail)
	}

	switch status {
	case runs.StatusError:
		return 2
	case runs.StatusFail:
		return 1
	default:
		return 0
	}
}

var showStatusColors = map[runs.Status]*color.Color{
	runs.StatusPass:  color.New(color.FgGreen, color.Bold),
	runs.StatusFail:  color.New(color.FgRed, color.Bold),
	runs.StatusError: color.New(color.FgYellow, color.Bold),
}

func writeDetailText(w io.Writer, runID string, status runs.Status, message string, d *runs.Detail) {
	label := string(status)
	if c, ok := showStatusColors[status]; ok {
		label = c.Sprint(status)
	}
	if d == nil {
		fmt.Fprintf(w, "%s\n  Status:   %s\n", runID, label)
		if message != "" {
			fmt.Fprintf(w, "  Error:    %s\n", message)
		}
		return
	}

	fmt.Fprintf(w, "%s\n", d.Title)
	fmt.Fprintf(w, "  Status:   %s\n", label)
	fmt.Fprintf(w, "  Env:      %s\n", d.Env)
	fmt.Fprintf(w, "  Base URL: %s\n", d.BaseURL)
	fmt.Fprintf(w, "  Git:      %s\n", d.Git)
	fmt.Fprintf(w, "  Tests:    passed %d, failed %d, skipped %d, flaky %d\n", d.Passed, d.Failed, d.Skipped, d.Flaky)
	fmt.Fprintf(w, "  Duration: %s\n", d.Duration)
	fmt.Fprintf(w, "  Started:  %s\n", d.Started)
	fmt.Fprintf(w, "  Finished: %s\n", d.Finished)
	if d.HasReport {
		fmt.Fprintf(w, "  Report:   %s\n", d.ReportURL)
	} else {
		fmt.Fprintf(w, "  Report:   %s\n", color.New(color.Faint).Sprint(runs.NoReportNote))
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Output format: text|json (default: text)")
}
