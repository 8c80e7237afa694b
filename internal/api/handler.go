// Package api provides the HTTP handlers of the webhook server.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
	"github.com/go-chi/chi/v5"
)

// EventHandler processes one inbound event to completion.
type EventHandler interface {
	Handle(ctx context.Context, ev domain.InboundEvent)
}

// StatsSource exposes the joke tally.
type StatsSource interface {
	Record() domain.CounterRecord
	TopN(n int) []domain.UserCount
}

// Pinger reports whether the state backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the webhook and the small read-only API.
type Handler struct {
	events      EventHandler
	stats       StatsSource
	state       Pinger
	verifyToken string
	logger      *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(events EventHandler, stats StatsSource, state Pinger, verifyToken string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		events:      events,
		stats:       stats,
		state:       state,
		verifyToken: verifyToken,
		logger:      logger,
	}
}

// RegisterRoutes mounts every route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Root)
	r.Get("/webhook", h.Verify)
	r.Post("/webhook", h.Receive)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/stats", h.Stats)
	})
}

// Root answers a bare liveness probe.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
