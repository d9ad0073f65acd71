package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"rundash/internal/runs"
)

// DefaultIndexPath is where the pipeline publishes the run index, relative to the base location.
const DefaultIndexPath = "index/runs.json"

const maxBodyBytes = 16 << 20

// Client reads documents from the remote artifact store. The store is read-only and
// addressed as a base location plus a relative path.
type Client struct {
	BaseURL   string
	IndexPath string
	HTTP      *http.Client

	limiter *rate.Limiter
}

type options struct {
	verbose bool
	// writer controls where verbose HTTP logs are written (typically stderr) so
	// structured output on stdout (e.g. NDJSON) stays clean and tests can capture logs.
	writer    io.Writer
	timeout   time.Duration
	rateLimit float64
	indexPath string
	transport http.RoundTripper
}

type Option func(*options)

func WithVerbose(enabled bool, writer io.Writer) Option {
	return func(o *options) {
		o.verbose = enabled
		o.writer = writer
	}
}

// WithTimeout sets the per-request timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithRateLimit paces outgoing requests to at most rps requests per second.
// Zero or negative disables pacing.
func WithRateLimit(rps float64) Option {
	return func(o *options) {
		o.rateLimit = rps
	}
}

func WithIndexPath(p string) Option {
	return func(o *options) {
		o.indexPath = p
	}
}

// WithTransport replaces the base transport (http.DefaultTransport).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// loggingRoundTripper wraps an underlying transport and emits one line per
// request and response (including latency) when verbose logging is enabled.
type loggingRoundTripper struct {
	base http.RoundTripper
	w    io.Writer
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	if t.w != nil {
		_, _ = fmt.Fprintf(t.w, "[verbose] store: %s %s\n", req.Method, req.URL.String())
	}
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start)
	if t.w != nil {
		if err != nil {
			_, _ = fmt.Fprintf(t.w, "[verbose] store: error after %s: %v\n", dur.Truncate(time.Millisecond), err)
		} else {
			_, _ = fmt.Fprintf(t.w, "[verbose] store: %d %s (%s)\n", resp.StatusCode, http.StatusText(resp.StatusCode), dur.Truncate(time.Millisecond))
		}
	}
	return resp, err
}

func NewClient(ctx context.Context, baseURL string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("store client: ctx is nil")
	}

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("store client: base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("store client: invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("store client: base URL %q must use http or https", baseURL)
	}

	o := &options{indexPath: DefaultIndexPath}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.verbose && o.writer == nil {
		o.writer = os.Stderr
	}

	transport := o.transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if o.verbose {
		transport = &loggingRoundTripper{base: transport, w: o.writer}
	}

	c := &Client{
		BaseURL:   base,
		IndexPath: strings.TrimLeft(o.indexPath, "/"),
		HTTP:      &http.Client{Transport: transport, Timeout: o.timeout},
	}
	if c.IndexPath == "" {
		c.IndexPath = DefaultIndexPath
	}
	if o.rateLimit > 0 {
		burst := int(o.rateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(o.rateLimit), burst)
	}
	return c, nil
}

// URL joins the base location and a relative path with exactly one slash.
func (c *Client) URL(path string) string {
	return c.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// ReportURL resolves a summary's report path against the base location.
// ok is false when the summary carries no report path.
func (c *Client) ReportURL(htmlIndex string) (string, bool) {
	if strings.TrimSpace(htmlIndex) == "" {
		return "", false
	}
	return c.URL(htmlIndex), true
}

// FetchIndex retrieves and decodes the run index.
func (c *Client) FetchIndex(ctx context.Context) (*runs.Index, error) {
	body, err := c.get(ctx, c.IndexPath, "runs index")
	if err != nil {
		return nil, err
	}
	return runs.DecodeIndex(body)
}

// FetchSummaryBody retrieves a summary document without decoding it.
func (c *Client) FetchSummaryBody(ctx context.Context, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("summary path is empty")
	}
	return c.get(ctx, path, "summary")
}

// FetchSummary retrieves, validates, and decodes a summary document.
func (c *Client) FetchSummary(ctx context.Context, path string) (*runs.Summary, error) {
	body, err := c.FetchSummaryBody(ctx, path)
	if err != nil {
		return nil, err
	}
	return runs.DecodeSummary(body)
}

func (c *Client) get(ctx context.Context, path, what string) ([]byte, error) {
	if c == nil || c.HTTP == nil {
		return nil, fmt.Errorf("store client is not initialized (use NewClient)")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", what, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", what, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", what, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(what, resp, body)
	}
	return body, nil
}
