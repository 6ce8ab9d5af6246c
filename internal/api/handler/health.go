package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/ayo6706/currency-widget/internal/domain"
	"github.com/ayo6706/currency-widget/internal/models"
	"github.com/redis/go-redis/v9"
)

// RateStateReader exposes the rate state readiness depends on.
type RateStateReader interface {
	RateState() models.RateState
}

// HealthHandler exposes Kubernetes-style liveness and readiness endpoints.
type HealthHandler struct {
	redis redis.Cmdable
	rates RateStateReader
}

// NewHealthHandler builds the handler. redis is nil unless the redis
// storage backend is in use.
func NewHealthHandler(redis redis.Cmdable, rates RateStateReader) *HealthHandler {
	return &HealthHandler{redis: redis, rates: rates}
}

// Live always reports OK – if the process is up, it's live.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready checks storage and reports the rate state of the active base.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			RespondError(w, r, http.StatusServiceUnavailable, "health/redis-unavailable", "redis unavailable")
			return
		}
	}

	status := domain.RateStatusIdle
	if h.rates != nil {
		status = h.rates.RateState().Status
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ready", "rates": status})
}
