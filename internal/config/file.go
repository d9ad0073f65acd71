package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"rundash/internal/flags"
)

// FileConfig is the YAML shape of a rundash config file. Pointer fields distinguish
// "absent" from zero values.
//
//	base_url: https://storage.googleapis.com/pw-artifacts
//	index_path: index/runs.json
//	concurrency: 6
//	http_timeout: 30s
//	rate_limit: 20
//	query: staging
//	console_format: table
//	serve:
//	  addr: 127.0.0.1:8080
//	  cors_origins: [https://grafana.example.com]
type FileConfig struct {
	BaseURL       *string        `yaml:"base_url"`
	IndexPath     *string        `yaml:"index_path"`
	Concurrency   *int           `yaml:"concurrency"`
	HTTPTimeout   *time.Duration `yaml:"http_timeout"`
	RateLimit     *float64       `yaml:"rate_limit"`
	Verbose       *bool          `yaml:"verbose"`
	Query         *string        `yaml:"query"`
	ConsoleFormat *string        `yaml:"console_format"`
	NoColor       *bool          `yaml:"no_color"`
	Serve         *FileServe     `yaml:"serve"`
}

type FileServe struct {
	Addr        *string  `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LoadFile reads and strictly decodes a YAML config file. Unknown keys are errors.
func LoadFile(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if len(bytes.TrimSpace(b)) == 0 {
			return &fc, nil
		}
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// Resolve layers the config file and environment under explicitly set flags.
// Precedence, lowest to highest: defaults, config file, RUNDASH_BASE_URL, flags.
// changed reports whether a flag was set on the command line; getenv reads the
// environment (os.Getenv in production).
func (c *Config) Resolve(changed func(flag string) bool, getenv func(string) string) error {
	if changed == nil {
		changed = func(string) bool { return false }
	}
	if c.File != "" {
		fc, err := LoadFile(c.File)
		if err != nil {
			return err
		}
		c.applyFile(fc, changed)
	}
	if getenv != nil && !changed(flags.FlagBaseURL) {
		if v := getenv(EnvBaseURL); v != "" {
			c.Store.BaseURL = v
		}
	}
	return nil
}

func (c *Config) applyFile(fc *FileConfig, changed func(string) bool) {
	setString := func(flag string, dst *string, v *string) {
		if v != nil && !changed(flag) {
			*dst = *v
		}
	}
	setString(flags.FlagBaseURL, &c.Store.BaseURL, fc.BaseURL)
	setString(flags.FlagIndexPath, &c.Store.IndexPath, fc.IndexPath)
	setString(flags.FlagQuery, &c.Filter.Query, fc.Query)
	setString(flags.FlagConsoleFormat, &c.Output.ConsoleFormat, fc.ConsoleFormat)

	if fc.Concurrency != nil && !changed(flags.FlagConcurrency) {
		c.Runtime.Concurrency = *fc.Concurrency
	}
	if fc.HTTPTimeout != nil && !changed(flags.FlagHTTPTimeout) {
		c.Runtime.HTTPTimeout = *fc.HTTPTimeout
	}
	if fc.RateLimit != nil && !changed(flags.FlagRateLimit) {
		c.Runtime.RateLimit = *fc.RateLimit
	}
	if fc.Verbose != nil && !changed(flags.FlagVerbose) {
		c.Runtime.Verbose = *fc.Verbose
	}
	if fc.NoColor != nil && !changed(flags.FlagNoColor) {
		c.Output.NoColor = *fc.NoColor
	}
	if fc.Serve != nil {
		setString(flags.FlagAddr, &c.Serve.Addr, fc.Serve.Addr)
		if len(fc.Serve.CORSOrigins) > 0 && !changed(flags.FlagCORSOrigin) {
			c.Serve.CORSOrigins = fc.Serve.CORSOrigins
		}
	}
}
