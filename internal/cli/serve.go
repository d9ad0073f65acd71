package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rundash/internal/config"
	"rundash/internal/flags"
	"rundash/internal/metrics"
	"rundash/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a live dashboard of every run",
	Long: `Start an HTTP dashboard that fetches the run index and every summary in the
background and shows rows as they resolve.

Routes:
	/                  dashboard (?q= filters rows)
	/runs/{index}      run detail pane
	/api/state         batch state as JSON (?q=, ?status=)
	/api/runs/{index}  one row as JSON
	/api/refresh       POST: start a new batch
	/healthz           liveness probe
	/metrics           Prometheus metrics

With --watch-config, saving the --config file starts a new batch with the
reloaded settings. --addr and --cors-origin changes need a restart.

Examples:
  rundash serve --base-url https://reports.example.com
  rundash serve --config rundash.yaml --watch-config --addr :8080
`,
	Run: func(cmd *cobra.Command, args []string) {
		// Snapshot before file and env values are layered in, so a reload
		// starts from the command line again.
		base := cfg.Clone()

		if err := resolveConfig(cmd, cfg, os.Getenv); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}
		if err := cfg.ValidateServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := log.New(os.Stderr, "", log.LstdFlags)
		if err := runServe(ctx, cmd, base, cfg, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			stop()
			os.Exit(3)
		}
	},
}

// runServe serves the dashboard for c until ctx is done. base is the
// command-line configuration that --watch-config reloads start from.
func runServe(ctx context.Context, cmd *cobra.Command, base, c *config.Config, logger *log.Logger) error {
	m := metrics.New()
	eng, err := newEngine(ctx, c, m, os.Stdout, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create store client: %w", err)
	}

	srv, err := server.New(ctx, eng, m, server.Options{
		Concurrency: c.Runtime.Concurrency,
		CORSOrigins: c.Serve.CORSOrigins,
		AccessLog:   accessLog(c),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	// An unreachable index is shown on the dashboard; the server still starts.
	_, _ = srv.Refresh()

	if c.Serve.WatchConfig {
		reload := func() {
			if err := reloadServer(ctx, cmd, base, srv, m); err != nil {
				logger.Printf("config reload failed: %v", err)
			}
		}
		go func() {
			if err := server.WatchFile(ctx, c.File, server.WatchDebounceDelay, reload, logger); err != nil {
				logger.Printf("config watch stopped: %v", err)
			}
		}()
	}

	return srv.ListenAndServe(ctx, c.Serve.Addr)
}

// reloadServer re-resolves the configuration from base and points srv at a new
// engine. The current batch keeps running until the new one replaces it.
func reloadServer(ctx context.Context, cmd *cobra.Command, base *config.Config, srv *server.Server, m *metrics.Metrics) error {
	next := base.Clone()
	if err := resolveConfig(cmd, next, os.Getenv); err != nil {
		return err
	}
	eng, err := newEngine(ctx, next, m, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	if err := srv.Reconfigure(eng, next.Runtime.Concurrency); err != nil {
		return err
	}
	_, err = srv.Refresh()
	return err
}

func accessLog(c *config.Config) io.Writer {
	if c.Runtime.Verbose {
		return os.Stderr
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&cfg.Serve.Addr, flags.FlagAddr, cfg.Serve.Addr, "Listen address")
	serveCmd.Flags().StringSliceVar(&cfg.Serve.CORSOrigins, flags.FlagCORSOrigin, nil, "Allow these origins to read /api (repeatable; comma-separated accepted)")
	serveCmd.Flags().BoolVar(&cfg.Serve.WatchConfig, flags.FlagWatchConfig, false, "Start a new batch when the --config file changes")
}
