package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/KaramelBytes/corrmatrix/internal/analysis"
	"github.com/KaramelBytes/corrmatrix/internal/parser"
)

// errorResponse is the {"detail": ...} body used for every failure.
type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	recs, err := parser.ReadEnvelope(body)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	start := time.Now()
	res, err := analysis.Analyze(recs, s.cfg.Analysis)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.metrics.observeAnalysis(res, time.Since(start))
	s.log.Debug().
		Str("request_id", RequestID(r.Context())).
		Int("rows", res.Rows).
		Int("columns", res.Columns).
		Int("kept", res.Matrix.Len()).
		Strs("pruned", res.Pruned).
		Msg("analysis complete")

	writeJSON(w, http.StatusOK, res.Matrix)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Not Found"})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Detail: "Method Not Allowed"})
}

// writeFailure maps input errors to status codes: 413 for oversized bodies,
// 422 for structural problems, 400 for anything the decoder rejected.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, analysis.ErrStructural):
		status = http.StatusUnprocessableEntity
		s.metrics.StructuralErrors.Inc()
	}
	s.log.Warn().
		Str("request_id", RequestID(r.Context())).
		Int("status", status).
		Err(err).
		Msg("analysis request rejected")
	writeJSON(w, status, errorResponse{Detail: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
