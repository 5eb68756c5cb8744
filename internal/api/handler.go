// Package api exposes the query execution pipeline over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"chartly/internal/service/pipeline"
)

// Handler serves the public execution API.
type Handler struct {
	engine *pipeline.Engine
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(engine *pipeline.Engine, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// envelope is the single response shape shared by every outcome. Callers key
// off the error flag, never the message text.
type envelope struct {
	Error       bool        `json:"error"`
	Data        interface{} `json:"data"`
	Cached      bool        `json:"cached"`
	TimeElapsed float64     `json:"time_elapsed"`
}

// tabularResult is the success payload: column names plus one row per record.
type tabularResult struct {
	Columns []string        `json:"columns"`
	Data    [][]interface{} `json:"data"`
}

type runQueryBody struct {
	Parameters map[string]string `json:"parameters"`
	Cacheable  *bool             `json:"cacheable"`
}

type interactiveBody struct {
	QueryText  string `json:"query_text"`
	DatabaseID int64  `json:"db"`
}

// RunQuery executes a persisted query definition.
// GET carries parameters in the query string; POST in a JSON body.
func (h *Handler) RunQuery(w http.ResponseWriter, r *http.Request) {
	queryID, err := strconv.ParseInt(chi.URLParam(r, "queryID"), 10, 64)
	if err != nil {
		h.writeFailure(w, r, errBadQueryID)
		return
	}

	req := pipeline.Request{QueryID: queryID, Parameters: map[string]string{}}
	switch r.Method {
	case http.MethodPost:
		var body runQueryBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeFailure(w, r, errBadBody)
			return
		}
		if body.Parameters != nil {
			req.Parameters = body.Parameters
		}
		req.Cacheable = body.Cacheable
	default:
		for key, values := range r.URL.Query() {
			if key == "cacheable" {
				v := values[0] == "true"
				req.Cacheable = &v
				continue
			}
			req.Parameters[key] = values[0]
		}
	}

	outcome, err := h.engine.Run(r.Context(), req)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeSuccess(w, outcome)
}

// RunInteractive executes raw query text against a chosen database.
func (h *Handler) RunInteractive(w http.ResponseWriter, r *http.Request) {
	var body interactiveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeFailure(w, r, errBadBody)
		return
	}
	if body.QueryText == "" {
		h.writeFailure(w, r, errEmptyQuery)
		return
	}

	outcome, err := h.engine.RunAdhoc(r.Context(), body.QueryText, body.DatabaseID)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.writeSuccess(w, outcome)
}

func (h *Handler) writeSuccess(w http.ResponseWriter, outcome *pipeline.Outcome) {
	writeJSON(w, http.StatusOK, envelope{
		Data: tabularResult{
			Columns: outcome.Table.Columns,
			Data:    outcome.Table.Rows,
		},
		Cached:      outcome.Cached,
		TimeElapsed: outcome.Elapsed.Seconds(),
	})
}

// writeFailure renders any pipeline error in the shared envelope. The HTTP
// status stays 200 for domain failures so dashboard clients need only inspect
// the error flag; transport-level middleware owns the other status codes.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Info("query request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusOK, envelope{Error: true, Data: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
