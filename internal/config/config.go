package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"rundash/internal/runs"
)

// EnvBaseURL is the only environment variable rundash reads.
const EnvBaseURL = "RUNDASH_BASE_URL"

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in sync:
	// - CLI flags in internal/cli (list.go, serve.go, root.go)
	// - the YAML file shape in file.go
	Store   Store
	Filter  Filter
	Output  Output
	Runtime Runtime
	Serve   Serve

	// File is the YAML config file to load (see --config). Empty means none.
	File string
}

type Store struct {
	// BaseURL is the public base location of the artifact bucket (see --base-url).
	// Every document path is resolved relative to it.
	BaseURL string

	// IndexPath is the run index location relative to BaseURL (see --index-path).
	IndexPath string
}

type Filter struct {
	// Query is a free-text search over run ID, commit, environment and job ID (see --query).
	Query string
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, table, json, ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus filters console output by row status (see --console-filter-status).
	// Allowed values: PASS, FAIL, ERROR, LOADING.
	ConsoleFilterStatus []string

	// Report writes a Markdown report to this path (see --report).
	Report string

	// HTML writes a static HTML dashboard to this path (see --html).
	HTML string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool

	// NoColor disables ANSI colors in console output (see --no-color).
	NoColor bool
}

type Runtime struct {
	// Concurrency is the number of summary fetch workers (see --concurrency). Must be >= 1.
	Concurrency int

	// HTTPTimeout bounds each store request (see --http-timeout). Must be > 0.
	HTTPTimeout time.Duration

	// RateLimit caps store requests per second (see --rate-limit). 0 disables pacing.
	RateLimit float64

	// Verbose logs every store request to stderr.
	Verbose bool
}

type Serve struct {
	// Addr is the dashboard listen address (see --addr).
	Addr string

	// CORSOrigins are the origins allowed to read the JSON API (see --cors-origin).
	CORSOrigins []string

	// WatchConfig starts a new batch whenever the config file changes (see --watch-config).
	WatchConfig bool
}

func New() *Config {
	return &Config{
		Store: Store{
			IndexPath: "index/runs.json",
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency: 6,
			HTTPTimeout: 30 * time.Second,
		},
		Serve: Serve{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Output.ConsoleFilterStatus = append([]string(nil), c.Output.ConsoleFilterStatus...)
	out.Output.Emit = append([]string(nil), c.Output.Emit...)
	out.Serve.CORSOrigins = append([]string(nil), c.Serve.CORSOrigins...)
	return &out
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Output.ConsoleFilterStatus = splitCommaList(c.Output.ConsoleFilterStatus)
	c.Output.Emit = splitCommaList(c.Output.Emit)
	c.Serve.CORSOrigins = splitCommaList(c.Serve.CORSOrigins)

	// Store validation
	base, err := normalizeBaseURL(c.Store.BaseURL)
	if err != nil {
		return err
	}
	c.Store.BaseURL = base

	c.Store.IndexPath = strings.TrimLeft(strings.TrimSpace(c.Store.IndexPath), "/")
	if c.Store.IndexPath == "" {
		return errors.New("--index-path must not be empty")
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, table, json, ndjson")
	}
	switch c.Output.ConsoleFormat {
	case "text", "table", "json", "ndjson":
	default:
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, table, json, ndjson)", c.Output.ConsoleFormat)
	}

	for i, raw := range c.Output.ConsoleFilterStatus {
		st, ok := runs.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unsupported --console-filter-status value: %s (must be one of: PASS, FAIL, ERROR, LOADING)", raw)
		}
		c.Output.ConsoleFilterStatus[i] = string(st)
	}

	for i, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", emit)
		}
		c.Output.Emit[i] = v
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.HTTPTimeout <= 0 {
		return errors.New("--http-timeout must be > 0")
	}
	if c.Runtime.RateLimit < 0 {
		return errors.New("--rate-limit must be >= 0")
	}

	c.Filter.Query = strings.TrimSpace(c.Filter.Query)
	return nil
}

// ValidateServe checks the settings used only by the dashboard server.
func (c *Config) ValidateServe() error {
	c.Serve.Addr = strings.TrimSpace(c.Serve.Addr)
	if c.Serve.Addr == "" {
		return errors.New("--addr must not be empty")
	}
	if c.Serve.WatchConfig && c.File == "" {
		return errors.New("--watch-config requires --config")
	}
	return nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", fmt.Errorf("a store base URL is required (--base-url, %s, or base_url in the config file)", EnvBaseURL)
	}

	// Accept a bare bucket host such as storage.googleapis.com/my-bucket.
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid --base-url value %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid --base-url value %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid --base-url value %q: missing host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("invalid --base-url value %q: query and fragment are not allowed", raw)
	}
	return raw, nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
