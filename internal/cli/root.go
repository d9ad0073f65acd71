package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rundash/internal/config"
	"rundash/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var cfg = config.New()

var rootCmd = &cobra.Command{
	Use:   "rundash",
	Short: "Aggregate test run summaries from a static store into a dashboard",
	Long: `rundash reads a run index and the per-run summaries it points to from a
static HTTP store, and renders a status for every run.

rundash is read-only: it never writes to the store.

Examples:
	# Show available commands and global flags
	rundash --help

	# List every run in the store once
	rundash list --base-url https://reports.example.com

	# Show one run
	rundash show nightly-2024-05-01 --base-url https://reports.example.com

	# Serve a live dashboard
	rundash serve --base-url https://reports.example.com --addr 127.0.0.1:8080

	# Print build info
	rundash version

Output:
	By default, commands write human-readable output to stdout and progress to stderr.
	Some commands support structured output via emitter flags (see each command's --help).`,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every store request)")
	pf.StringVar(&cfg.File, flags.FlagConfig, "", "Read settings from this YAML file (flags override file values)")
	pf.BoolVar(&cfg.Output.NoColor, flags.FlagNoColor, false, "Disable ANSI colors in console output")

	// Store
	pf.StringVar(&cfg.Store.BaseURL, flags.FlagBaseURL, "", "Base URL of the report store (or set "+config.EnvBaseURL+")")
	pf.StringVar(&cfg.Store.IndexPath, flags.FlagIndexPath, cfg.Store.IndexPath, "Run index location relative to the base URL")

	// Runtime
	pf.IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Concurrent summary fetches")
	pf.DurationVar(&cfg.Runtime.HTTPTimeout, flags.FlagHTTPTimeout, cfg.Runtime.HTTPTimeout, "Timeout for each store request")
	pf.Float64Var(&cfg.Runtime.RateLimit, flags.FlagRateLimit, 0, "Maximum store requests per second (0 = unlimited)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
