package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/GuilhermePossari/Lilabot/internal/domain"
)

const (
	defaultTop = 10
	maxTop     = 100
)

type rankEntry struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}

type statsResponse struct {
	Total      int                         `json:"total"`
	ByCategory map[domain.JokeCategory]int `json:"by_category"`
	Top        []rankEntry                 `json:"top"`
}

// Stats returns the joke tally with masked sender ids.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := defaultTop
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxTop {
			Error(w, http.StatusBadRequest, "top must be between 1 and 100")
			return
		}
		top = n
	}

	rec := h.stats.Record()
	resp := statsResponse{
		Total:      rec.Total,
		ByCategory: rec.ByCategory,
		Top:        []rankEntry{},
	}
	for _, uc := range h.stats.TopN(top) {
		resp.Top = append(resp.Top, rankEntry{Sender: domain.MaskSender(uc.Sender), Count: uc.Count})
	}
	JSON(w, http.StatusOK, resp)
}

// Health reports whether the state backend is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status": "healthy",
		"checks": map[string]string{"api": "ok", "state": "ok"},
	}
	statusCode := http.StatusOK

	if err := h.state.Ping(ctx); err != nil {
		h.logger.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		status["checks"].(map[string]string)["state"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	}

	JSON(w, statusCode, status)
}
