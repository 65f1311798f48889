// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tkarami/elorank/internal/adapters/repository"
	service "github.com/tkarami/elorank/internal/app"
	"github.com/tkarami/elorank/internal/domain/model"
)

// MatchDependencies defines the interface for match reporting.
type MatchDependencies interface {
	ReportMatch(ctx context.Context, winnerID, loserID string, isDraw bool) (model.MatchResult, error)
}

// MatchHandler handles match report requests.
type MatchHandler struct {
	deps MatchDependencies
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps MatchDependencies) *MatchHandler {
	return &MatchHandler{deps: deps}
}

// HandleReportMatch handles POST /match requests.
//
// A malformed body or missing participant id maps to 400; a
// well-formed request naming an unknown competitor maps to 422 so
// callers can tell the two apart.
func (h *MatchHandler) HandleReportMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.report_match"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.ReportMatch(r.Context(), req.Winner, req.Loser, req.Draw)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusUnprocessableEntity, "unknown_competitor", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}
