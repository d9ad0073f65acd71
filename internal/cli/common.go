package cli

import (
	"context"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rundash/internal/config"
	"rundash/internal/engine"
	"rundash/internal/fetcher"
	"rundash/internal/metrics"
	"rundash/internal/store"
)

// resolveConfig layers the config file and RUNDASH_BASE_URL under the flags
// explicitly set on cmd, then validates the result.
func resolveConfig(cmd *cobra.Command, c *config.Config, getenv func(string) string) error {
	var changed func(string) bool
	if cmd != nil {
		changed = cmd.Flags().Changed
	}
	if err := c.Resolve(changed, getenv); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Output.NoColor {
		color.NoColor = true
	}
	return nil
}

// newEngine builds the store client, fetcher and engine for c. Verbose store
// logging goes to stderr.
func newEngine(ctx context.Context, c *config.Config, m *metrics.Metrics, stdout, stderr io.Writer) (*engine.Engine, error) {
	client, err := store.NewClient(ctx, c.Store.BaseURL,
		store.WithVerbose(c.Runtime.Verbose, stderr),
		store.WithTimeout(c.Runtime.HTTPTimeout),
		store.WithRateLimit(c.Runtime.RateLimit),
		store.WithIndexPath(c.Store.IndexPath),
	)
	if err != nil {
		return nil, err
	}
	eng := engine.NewEngine(fetcher.NewFetcher(client, m), m)
	eng.Stdout = stdout
	eng.Stderr = stderr
	return eng, nil
}
