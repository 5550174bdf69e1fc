package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LorenzoCW/dnd-investments/internal/board"
	"github.com/LorenzoCW/dnd-investments/internal/core"
	"github.com/LorenzoCW/dnd-investments/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed encoding response", "error", err)
	}
}

// writeResult maps domain errors to status codes. A FallbackWarning is not a
// failure: the operation succeeded on local persistence, so the success body
// is sent with a marker header.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, status int, body any, err error) {
	var warning *board.FallbackWarning
	if errors.As(err, &warning) {
		s.logger.WarnContext(r.Context(), "Operation completed on local fallback",
			"path", r.URL.Path, "error", warning.Cause)
		w.Header().Set("X-Persistence-Degraded", "true")
		s.writeJSON(w, status, body)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrNotPermitted):
		s.writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrTooManyDecimals),
		errors.Is(err, core.ErrInsufficientFunds),
		errors.Is(err, core.ErrInvalidMonthRange),
		errors.Is(err, core.ErrEmptyTitle):
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("Unhandled error", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}
