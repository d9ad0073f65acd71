package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"rundash/internal/engine"
	"rundash/internal/errmsg"
	"rundash/internal/output"
	"rundash/internal/runs"
)

type apiError struct {
	Error string `json:"error"`
}

type apiState struct {
	BatchID    string              `json:"batchId,omitempty"`
	StartedAt  *time.Time          `json:"startedAt,omitempty"`
	FinishedAt *time.Time          `json:"finishedAt,omitempty"`
	Total      int                 `json:"total"`
	Completed  int                 `json:"completed"`
	Counts     map[runs.Status]int `json:"counts"`
	Rows       []engine.Row        `json:"rows"`
	Error      string              `json:"error,omitempty"`
}

type apiRun struct {
	Row       engine.Row  `json:"row"`
	Detail    runs.Detail `json:"detail"`
	ReportURL string      `json:"reportUrl,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) snapshot() *engine.State {
	b := s.Current()
	if b == nil {
		return nil
	}
	return b.Snapshot()
}

func (s *Server) errorText() string {
	if err := s.lastError(); err != nil {
		return errmsg.Message(err)
	}
	return ""
}

// rowFromRequest resolves the {index} path variable against the current snapshot.
func (s *Server) rowFromRequest(r *http.Request) (engine.Row, bool) {
	i, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		return engine.Row{}, false
	}
	return s.snapshot().Row(i)
}

func (s *Server) detailView(row engine.Row) output.DetailView {
	s.mu.RLock()
	eng := s.engine
	s.mu.RUnlock()

	reportURL, _ := eng.ReportURL(row)
	v := output.NewDetailView(row.Index, row.Item.RunID, row.Status(), row.Summary(), row.Result.Message, reportURL, s.now())
	v.Live = true
	return v
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.snapshot()
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	view := output.DashboardView{
		Query:     query,
		Total:     st.Len(),
		Completed: st.Completed(),
		Counts:    st.Counts(),
		Live:      true,
		Error:     s.errorText(),
	}
	if st != nil {
		view.BatchID = st.BatchID
		for _, row := range engine.FilterRows(st.Rows, query, nil) {
			view.Rows = append(view.Rows, runs.NewTableRow(row.Index, row.Item.RunID, row.Summary(), row.Status(), row.Result.Message))
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := output.RenderDashboard(w, view); err != nil {
		s.logger.Printf("render dashboard: %v", err)
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	row, ok := s.rowFromRequest(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := output.RenderDetail(w, s.detailView(row)); err != nil {
		s.logger.Printf("render run %d: %v", row.Index, err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleAPIState(w http.ResponseWriter, r *http.Request) {
	st := s.snapshot()
	out := apiState{
		Total:     st.Len(),
		Completed: st.Completed(),
		Counts:    st.Counts(),
		Rows:      []engine.Row{},
		Error:     s.errorText(),
	}
	if st != nil {
		out.BatchID = st.BatchID
		started := st.StartedAt
		out.StartedAt = &started
		if !st.FinishedAt.IsZero() {
			finished := st.FinishedAt
			out.FinishedAt = &finished
		}
		out.Rows = engine.FilterRows(st.Rows, r.URL.Query().Get("q"), parseStatuses(r.URL.Query()["status"]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIRun(w http.ResponseWriter, r *http.Request) {
	row, ok := s.rowFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "run not found"})
		return
	}
	v := s.detailView(row)
	writeJSON(w, http.StatusOK, apiRun{Row: row, Detail: v.Detail, ReportURL: v.Detail.ReportURL})
}

func (s *Server) handleAPIRefresh(w http.ResponseWriter, r *http.Request) {
	b, err := s.Refresh()

	// The dashboard's refresh button is a plain form post; send browsers back to the table.
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, apiError{Error: errmsg.Message(err)})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"batchId": b.ID, "runs": len(b.Items())})
}

func parseStatuses(values []string) []runs.Status {
	var out []runs.Status
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if st, ok := runs.ParseStatus(part); ok {
				out = append(out, st)
			}
		}
	}
	return out
}
