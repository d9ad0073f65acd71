package output

import (
	"fmt"
	"html/template"
	"io"
	"sync"
	"time"

	"github.com/acarl005/stripansi"

	"rundash/internal/runs"
)

// DashboardView is the data behind the runs page. The same view renders the
// static --html file and the live server page.
type DashboardView struct {
	BatchID     string
	Query       string
	Rows        []runs.TableRow
	Details     []DetailView // static pages render every detail pane inline
	Total       int
	Completed   int
	Counts      map[runs.Status]int
	Live        bool
	GeneratedAt string
	// Error is shown above the table, e.g. when the latest index fetch failed.
	Error string
}

// Refreshing reports whether a live page should reload itself to pick up progress.
func (v DashboardView) Refreshing() bool { return v.Live && v.Completed < v.Total }

// DetailView is the data behind one run's detail pane.
type DetailView struct {
	Index   int
	RunID   string
	Status  runs.Status
	Detail  runs.Detail
	Message string
	Live    bool
}

func (v DetailView) Loaded() bool     { return v.Status == runs.StatusPass || v.Status == runs.StatusFail }
func (v DetailView) Pending() bool    { return v.Status == runs.StatusLoading }
func (v DetailView) Refreshing() bool { return v.Live && v.Pending() }

// NewDetailView builds a detail pane. s is nil unless the fetch succeeded.
func NewDetailView(index int, runID string, status runs.Status, s *runs.Summary, message, reportURL string, now time.Time) DetailView {
	return DetailView{
		Index:   index,
		RunID:   runID,
		Status:  status,
		Detail:  runs.NewDetail(s, reportURL, reportURL != "", now),
		Message: stripansi.Strip(message),
	}
}

var templateFuncs = template.FuncMap{
	"noReport": func() string { return runs.NoReportNote },
	"pending":  func() string { return runs.PendingNote },
	"count": func(m map[runs.Status]int, st string) int {
		return m[runs.Status(st)]
	},
}

const detailTemplate = `{{define "detail"}}
<section class="detail" id="run-{{.Index}}">
  {{if .Loaded}}
  <h2>{{.Detail.Title}}</h2>
  <dl>
    <dt>Env</dt><dd>{{.Detail.Env}}</dd>
    <dt>BaseURL</dt><dd>{{.Detail.BaseURL}}</dd>
    <dt>Git</dt><dd>{{.Detail.Git}}</dd>
  </dl>
  <ul class="stats">
    <li class="passed">Passed <b>{{.Detail.Passed}}</b></li>
    <li class="failed">Failed <b>{{.Detail.Failed}}</b></li>
    <li class="skipped">Skipped <b>{{.Detail.Skipped}}</b></li>
    <li class="flaky">Flaky <b>{{.Detail.Flaky}}</b></li>
  </ul>
  <dl>
    <dt>Duration</dt><dd>{{.Detail.Duration}}</dd>
    <dt>Started</dt><dd>{{.Detail.Started}}</dd>
    <dt>Finished</dt><dd>{{.Detail.Finished}}</dd>
  </dl>
  {{if .Detail.HasReport}}
  <a class="button" href="{{.Detail.ReportURL}}" target="_blank" rel="noopener">Open HTML Report</a>
  {{else}}
  <button class="button" disabled>Open HTML Report</button>
  <p class="note">{{noReport}}</p>
  {{end}}
  {{else if .Pending}}
  <h2>{{.RunID}}</h2>
  <p class="note">{{pending}}</p>
  {{else}}
  <h2>{{.RunID}}</h2>
  <pre class="error">{{.Message}}</pre>
  {{end}}
</section>
{{end}}`

const pageTemplate = `{{define "head"}}<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Test runs</title>
{{if .Refreshing}}<meta http-equiv="refresh" content="2">{{end}}
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: .35rem .6rem; border-bottom: 1px solid #ddd; }
td.num { text-align: right; }
.status-PASS { color: #1a7f37; font-weight: bold; }
.status-FAIL { color: #cf222e; font-weight: bold; }
.status-ERROR { color: #9a6700; font-weight: bold; }
.status-LOADING { color: #57606a; }
.note { color: #57606a; }
pre.error { background: #fff8c5; padding: .5rem; white-space: pre-wrap; }
.stats li { display: inline-block; margin-right: 1rem; }
</style>
</head>
<body>{{end}}

{{define "dashboard"}}{{template "head" .}}
<h1>Test runs</h1>
{{if .Error}}<pre class="error">{{.Error}}</pre>{{end}}
<p class="summary">
  {{.Completed}}/{{.Total}} loaded:
  <span class="status-PASS">{{count .Counts "PASS"}} PASS</span>,
  <span class="status-FAIL">{{count .Counts "FAIL"}} FAIL</span>,
  <span class="status-ERROR">{{count .Counts "ERROR"}} ERROR</span>
  {{if .BatchID}}<small>batch {{.BatchID}}</small>{{end}}
  {{if .GeneratedAt}}<small>generated {{.GeneratedAt}}</small>{{end}}
</p>
{{if .Live}}
<form method="get" action="/">
  <input type="search" name="q" value="{{.Query}}" placeholder="Search run, commit, env, job">
  <button type="submit">Search</button>
</form>
<form method="post" action="/api/refresh"><button type="submit">Refresh</button></form>
{{end}}
<table>
  <thead><tr><th>Run</th><th>Status</th><th>Passed</th><th>Failed</th><th>Duration</th><th>Git</th></tr></thead>
  <tbody>
  {{range .Rows}}
  <tr>
    <td>{{if $.Live}}<a href="/runs/{{.Index}}">{{.RunID}}</a>{{else}}<a href="#run-{{.Index}}">{{.RunID}}</a>{{end}}</td>
    <td class="status-{{.Status}}">{{.Status}}</td>
    <td class="num">{{.Passed}}</td>
    <td class="num">{{.Failed}}</td>
    <td class="num">{{.Duration}}</td>
    <td><code>{{.Git}}</code></td>
  </tr>
  {{else}}
  <tr><td colspan="6" class="note">No runs.</td></tr>
  {{end}}
  </tbody>
</table>
{{range .Details}}{{template "detail" .}}{{end}}
</body>
</html>
{{end}}

{{define "run"}}{{template "head" .}}
<p><a href="/">&larr; All runs</a></p>
{{template "detail" .}}
</body>
</html>
{{end}}`

var templates = template.Must(template.New("rundash").Funcs(templateFuncs).Parse(detailTemplate + pageTemplate))

// RenderDashboard writes the runs page.
func RenderDashboard(w io.Writer, v DashboardView) error {
	return templates.ExecuteTemplate(w, "dashboard", v)
}

// RenderDetail writes a standalone page for one run.
func RenderDetail(w io.Writer, v DetailView) error {
	return templates.ExecuteTemplate(w, "run", v)
}

// HTMLSink writes a static dashboard of the finished batch on Close.
type HTMLSink struct {
	path    string
	mu      sync.Mutex
	results []Result
	batchID string
	now     func() time.Time
}

func NewHTMLSink(path string) (*HTMLSink, error) {
	if path == "" {
		return nil, fmt.Errorf("html path required")
	}
	return &HTMLSink{path: path, now: time.Now}, nil
}

func (s *HTMLSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case Result:
		s.results = append(s.results, t)
	case Event:
		if t.BatchID != "" {
			s.batchID = t.BatchID
		}
	}
	return nil
}

func (s *HTMLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	results := sortedResults(s.results)
	view := DashboardView{
		BatchID:     s.batchID,
		Total:       len(results),
		Completed:   len(results),
		Counts:      make(map[runs.Status]int),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
	for _, r := range results {
		view.Counts[r.Status]++
		view.Rows = append(view.Rows, runs.NewTableRow(r.Index, r.RunID, r.Summary, r.Status, r.Message))
		view.Details = append(view.Details, NewDetailView(r.Index, r.RunID, r.Status, r.Summary, r.Message, r.ReportURL, now))
	}

	f, err := createFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to create html file: %w", err)
	}
	if err := RenderDashboard(f, view); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
