// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gavelhq/gavel/internal/adapters/repository"
	"github.com/gavelhq/gavel/internal/domain/model"
	"github.com/gavelhq/gavel/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PickDependencies
	ProjectionDependencies
	DraftDependencies
	StreamDependencies
	DepletionDependencies
	BoardDependencies
	RankDependencies
	ReadyDependencies
}

// Entry mirrors the read shape returned by draft board queries.
type Entry = types.BoardEntry

// Server wires HTTP routes for the auction API.
type Server struct {
	healthHandler      *HealthHandler
	readyHandler       *ReadyHandler
	metricsHandler     *MetricsHandler
	statsHandler       *StatsHandler
	picksHandler       *PicksHandler
	projectionsHandler *ProjectionsHandler
	draftHandler       *DraftHandler
	inflationHandler   *InflationHandler
	streamHandler      *StreamHandler
	depletionHandler   *DepletionHandler
	boardHandler       *BoardHandler
	rankHandler        *RankHandler
	dashboardHandler   *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxBoardLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		readyHandler:       NewReadyHandler(deps),
		metricsHandler:     NewMetricsHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		picksHandler:       NewPicksHandler(deps),
		projectionsHandler: NewProjectionsHandler(deps),
		draftHandler:       NewDraftHandler(deps),
		inflationHandler:   NewInflationHandler(deps),
		streamHandler:      NewStreamHandler(deps),
		depletionHandler:   NewDepletionHandler(deps),
		boardHandler:       NewBoardHandler(deps, maxBoardLimit),
		rankHandler:        NewRankHandler(deps),
		dashboardHandler:   newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/readyz", MetricsMiddleware(s.readyHandler.HandleReady, "readyz"))
	mux.HandleFunc("/metrics", s.metricsHandler.HandleMetrics)
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/api/v1/picks", MetricsMiddleware(RequestIDMiddleware(s.picksHandler.HandlePostPick), "picks"))
	mux.HandleFunc("/api/v1/projections", MetricsMiddleware(RequestIDMiddleware(s.projectionsHandler.HandlePutProjections), "projections"))
	mux.HandleFunc("/api/v1/draft", MetricsMiddleware(RequestIDMiddleware(s.draftHandler.HandlePostDraft), "draft"))
	mux.HandleFunc("/api/v1/inflation", MetricsMiddleware(s.inflationHandler.HandleGetInflation, "inflation"))
	// Long-lived SSE connections skip the latency middleware.
	mux.HandleFunc("/api/v1/inflation/stream", s.streamHandler.HandleStream)
	mux.HandleFunc("/api/v1/depletion", MetricsMiddleware(s.depletionHandler.HandleGetDepletion, "depletion"))
	mux.HandleFunc("/api/v1/board", MetricsMiddleware(s.boardHandler.HandleGetBoard, "board"))
	mux.HandleFunc("/api/v1/players/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/api/v1/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
}

// pickRequest mirrors the OpenAPI schema for POST /api/v1/picks.
type pickRequest struct {
	EventID  string  `json:"event_id"`
	PlayerID string  `json:"player_id"`
	Price    float64 `json:"price"`
	Tier     string  `json:"tier"`
	TS       string  `json:"ts"`
}

func (p pickRequest) validate() error {
	if strings.TrimSpace(p.PlayerID) == "" {
		return errors.New("missing player_id")
	}
	if p.Price < 0 {
		return errors.New("negative price")
	}
	if p.Tier != "" && !model.ValueTier(p.Tier).Valid() {
		return errors.New("invalid tier; must be ELITE, MID or LOWER")
	}
	if p.TS != "" {
		if _, err := time.Parse(time.RFC3339, p.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

// toEvent converts the request body into a domain pick event. EventID and
// TS may be empty here; the service assigns defaults.
func (p pickRequest) toEvent() model.PickEvent {
	e := model.PickEvent{
		EventID:  strings.TrimSpace(p.EventID),
		PlayerID: strings.TrimSpace(p.PlayerID),
		Price:    p.Price,
		Tier:     model.ValueTier(p.Tier),
	}
	if p.TS != "" {
		ts, err := time.Parse(time.RFC3339, p.TS)
		if err == nil {
			e.TS = ts
		}
	}
	return e
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Status string      `json:"status"`
	Error  errorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Status: "error", Error: errorDetail{Kind: kind, Message: msg}})
}

// isNotFound allows the API to translate store not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
