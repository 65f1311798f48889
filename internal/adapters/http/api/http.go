// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tkarami/elorank/internal/adapters/broker"
	"github.com/tkarami/elorank/internal/domain/model"
	"github.com/tkarami/elorank/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to the service package.
type Dependencies interface {
	// CreateCompetitor registers a competitor; nil initialRating means
	// "use the store default".
	CreateCompetitor(ctx context.Context, id string, initialRating *int) (model.Competitor, error)

	// ReportMatch commits one match and emits ranking events.
	ReportMatch(ctx context.Context, winnerID, loserID string, isDraw bool) (model.MatchResult, error)

	// Ranking returns the full ladder, rating descending.
	Ranking(ctx context.Context) ([]model.Competitor, error)

	// Subscribe/Unsubscribe manage event stream subscriptions.
	Subscribe() (*broker.Subscriber, error)
	Unsubscribe(sub *broker.Subscriber)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	competitorHandler *CompetitorHandler
	matchHandler      *MatchHandler
	rankingHandler    *RankingHandler
	eventsHandler     *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		competitorHandler: NewCompetitorHandler(deps),
		matchHandler:      NewMatchHandler(deps),
		rankingHandler:    NewRankingHandler(deps),
		eventsHandler:     NewEventsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/competitor", MetricsMiddleware(s.competitorHandler.HandleCreateCompetitor, "competitor"))
	mux.HandleFunc("/match", MetricsMiddleware(s.matchHandler.HandleReportMatch, "match"))
	mux.HandleFunc("/ranking", MetricsMiddleware(s.rankingHandler.HandleGetRanking, "ranking"))
	mux.HandleFunc("/ranking/events", s.eventsHandler.HandleStream)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

// competitorRequest mirrors the POST /competitor body.
type competitorRequest struct {
	ID     string `json:"id"`
	Rating *int   `json:"rating,omitempty"`
}

// matchRequest mirrors the POST /match body.
type matchRequest struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
	Draw   bool   `json:"draw"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
