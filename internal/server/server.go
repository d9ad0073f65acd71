package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"rundash/internal/engine"
	"rundash/internal/errmsg"
	"rundash/internal/metrics"
)

// Options configure a dashboard server.
type Options struct {
	Concurrency int
	CORSOrigins []string
	// AccessLog receives combined-format access logs. Nil disables them.
	AccessLog io.Writer
	Logger    *log.Logger
}

// Server renders the current batch over HTTP. A refresh starts a new batch that
// replaces the current one wholesale; the old batch finishes in the background
// but is no longer shown.
type Server struct {
	metrics *metrics.Metrics
	opts    Options
	logger  *log.Logger
	now     func() time.Time

	// ctx outlives individual requests; batches run under it.
	ctx context.Context

	mu          sync.RWMutex
	engine      *engine.Engine
	concurrency int
	current     *engine.Batch
	lastErr     error
}

func New(ctx context.Context, eng *engine.Engine, m *metrics.Metrics, opts Options) (*Server, error) {
	if ctx == nil {
		return nil, fmt.Errorf("server: ctx is nil")
	}
	if eng == nil {
		return nil, fmt.Errorf("server: engine is nil")
	}
	if opts.Concurrency < 1 {
		return nil, fmt.Errorf("server: concurrency must be >= 1")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Server{
		metrics:     m,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
		ctx:         ctx,
		engine:      eng,
		concurrency: opts.Concurrency,
	}, nil
}

// Reconfigure swaps the engine and concurrency used by later batches.
func (s *Server) Reconfigure(eng *engine.Engine, concurrency int) error {
	if eng == nil {
		return fmt.Errorf("server: engine is nil")
	}
	if concurrency < 1 {
		return fmt.Errorf("server: concurrency must be >= 1")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = eng
	s.concurrency = concurrency
	return nil
}

// Current returns the batch being shown, or nil before the first successful refresh.
func (s *Server) Current() *engine.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Server) lastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Refresh fetches the index and starts a new batch in the background. When the
// index fetch fails the current batch stays in place.
func (s *Server) Refresh() (*engine.Batch, error) {
	s.mu.RLock()
	eng, concurrency := s.engine, s.concurrency
	s.mu.RUnlock()

	b, err := eng.StartBatch(s.ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Printf("refresh failed: %s", errmsg.Message(err))
		return nil, err
	}

	s.mu.Lock()
	s.current = b
	s.lastErr = nil
	s.metrics.SetRows(b.Snapshot().Counts())
	s.mu.Unlock()

	s.logger.Printf("batch %s started: %d runs, concurrency %d", b.ID, len(b.Items()), concurrency)
	go func() {
		start := s.now()
		if err := eng.RunBatch(s.ctx, b, concurrency, s.publishRows(b)); err != nil {
			s.logger.Printf("batch %s: %v", b.ID, err)
			return
		}
		lat := b.Latency()
		s.logger.Printf("batch %s finished in %s (p50 %s, p95 %s, max %s)",
			b.ID, s.now().Sub(start).Round(time.Millisecond), lat.P50, lat.P95, lat.Max)
	}()
	return b, nil
}

// publishRows updates the row gauges from b's patches while b is the batch on
// show. A replaced batch keeps running but no longer touches the gauges.
func (s *Server) publishRows(b *engine.Batch) engine.Observer {
	return func(_ engine.Patch, next *engine.State) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.current == b {
			s.metrics.SetRows(next.Counts())
		}
	}
}

// Handler returns the HTTP handler with access logging and panic recovery.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)

	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/runs/{index:[0-9]+}", s.handleRun).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleAPIState).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/runs/{index:[0-9]+}", s.handleAPIRun).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/refresh", s.handleAPIRefresh).Methods(http.MethodPost, http.MethodOptions)
	if len(s.opts.CORSOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
		})
		api.Use(c.Handler)
	}

	var h http.Handler = router
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(s.logger), handlers.PrintRecoveryStack(true))(h)
	if s.opts.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(s.opts.AccessLog, h)
	}
	return h
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("dashboard listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Printf("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
