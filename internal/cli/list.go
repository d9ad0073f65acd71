package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"rundash/internal/config"
	"rundash/internal/flags"
	"rundash/internal/metrics"
)

const listHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	RUNDASH_BASE_URL sets the store base URL when --base-url is not given.

	Sources (lowest to highest precedence):
	1) built-in defaults
	2) the YAML file named by --config
	3) RUNDASH_BASE_URL
	4) command-line flags

  Examples:
    # macOS/Linux
    export RUNDASH_BASE_URL="https://reports.example.com"
    rundash list

    # Windows PowerShell
    $env:RUNDASH_BASE_URL = "https://reports.example.com"
    rundash list

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch every run summary once and report statuses",
	Long: `Fetch the run index and every run summary it lists, then report one status per run.

Summaries are fetched with a bounded number of concurrent requests
(--concurrency). A run whose summary cannot be fetched is reported as ERROR;
the other runs are unaffected.

Statuses:
	PASS  = summary loaded and no test failed
	FAIL  = summary loaded and at least one test failed
	ERROR = the summary could not be fetched or decoded

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report: write a Markdown report
	- --html: write a static HTML dashboard
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (batch.started, run.result, batch.finished). A run.result object
	carries the result fields (index, run_id, status, message, report_url, summary)
	at its top level, next to "type" and "batch_id".

Exit codes:
	0 = every listed run passed
	1 = at least one run failed
	2 = at least one summary could not be fetched
	3 = fatal error (the run index could not be fetched or the configuration is invalid)

Examples:
  rundash list --base-url https://reports.example.com

  # Only nightly runs, as a table
  rundash list --query nightly --console-format table

  # Stream machine-readable events to stdout
  rundash list --no-console --emit ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := resolveConfig(cmd, cfg, os.Getenv); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		eng, err := newEngine(ctx, cfg, metrics.New(), os.Stdout, os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create store client: %v\n", err)
			os.Exit(3)
		}
		code := eng.Run(ctx, cfg)
		stop()
		os.Exit(code)
	},
}

func addOutputFlags(cmd *cobra.Command, c *config.Config) {
	cmd.Flags().StringVar(&c.Filter.Query, flags.FlagQuery, "", "Only report runs whose id, commit, environment or job id contains this text (case-insensitive)")
	cmd.Flags().StringVar(&c.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|table|json|ndjson (default: text)")
	cmd.Flags().StringSliceVar(&c.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Filter console output by status (PASS, FAIL, ERROR). Comma-separated.")
	cmd.Flags().StringVar(&c.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	cmd.Flags().StringVar(&c.Output.HTML, flags.FlagHTML, "", "Write a static HTML dashboard to this path")
	cmd.Flags().StringVar(&c.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	cmd.Flags().StringVar(&c.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	cmd.Flags().StringSliceVar(&c.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	cmd.Flags().BoolVar(&c.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report/--html)")
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.SetHelpTemplate(listHelpTemplate)
	addOutputFlags(listCmd, cfg)
}
