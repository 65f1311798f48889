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

// CompetitorDependencies defines the interface for competitor creation.
type CompetitorDependencies interface {
	CreateCompetitor(ctx context.Context, id string, initialRating *int) (model.Competitor, error)
}

// CompetitorHandler handles competitor creation requests.
type CompetitorHandler struct {
	deps CompetitorDependencies
}

// NewCompetitorHandler creates a new competitor handler.
func NewCompetitorHandler(deps CompetitorDependencies) *CompetitorHandler {
	return &CompetitorHandler{deps: deps}
}

// HandleCreateCompetitor handles POST /competitor requests.
func (h *CompetitorHandler) HandleCreateCompetitor(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_competitor"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req competitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	c, err := h.deps.CreateCompetitor(r.Context(), req.ID, req.Rating)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		case errors.Is(err, repository.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "already_exists", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, c)
}
