package handlers

import (
	"net/http"
	"time"

	"foodhub-be/internal/httpx"
	"foodhub-be/internal/metrics"
)

type HealthHandler struct {
	started time.Time
	stats   *metrics.WebhookStats
	now     func() time.Time
}

func NewHealthHandler(stats *metrics.WebhookStats) *HealthHandler {
	if stats == nil {
		stats = &metrics.WebhookStats{}
	}
	return &HealthHandler{started: time.Now(), stats: stats, now: time.Now}
}

// Healthz reports liveness along with webhook counters since start.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.started).Round(time.Second).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
		"webhooks":  h.stats.Snapshot(),
	})
}
