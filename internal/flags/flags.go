package flags

// Package flags defines canonical CLI flag names shared across the CLI and config.
// Keeping these as constants helps avoid drift between Cobra flag wiring and the
// config file layering, which asks whether a flag was explicitly set.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Store.BaseURL, flags.FlagBaseURL, "", "...")
//	arg := "--" + flags.FlagBaseURL
const (
	// Store
	FlagBaseURL   = "base-url"
	FlagIndexPath = "index-path"
	FlagConfig    = "config"

	// Filter
	FlagQuery = "query"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagReport              = "report"
	FlagHTML                = "html"
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagEmit                = "emit"
	FlagNoConsole           = "no-console"
	FlagNoColor             = "no-color"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagHTTPTimeout = "http-timeout"
	FlagRateLimit   = "rate-limit"
	FlagVerbose     = "verbose"

	// Serve
	FlagAddr        = "addr"
	FlagCORSOrigin  = "cors-origin"
	FlagWatchConfig = "watch-config"
)
