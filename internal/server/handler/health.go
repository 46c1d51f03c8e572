package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dtflabs/zapper/internal/provider"
	"github.com/dtflabs/zapper/internal/state"
)

// HealthHandler serves the engine liveness endpoint, including the last
// known backend health for the active chain.
type HealthHandler struct {
	store  *state.Store
	health *provider.HealthMonitor
	logger *slog.Logger
}

func NewHealthHandler(store *state.Store, health *provider.HealthMonitor, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, health: health, logger: logHandler(logger, "health")}
}

// HealthCheck responds with engine liveness and backend chain health.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	chainID := h.store.ChainID.Get()
	backendHealthy := true
	if h.health != nil {
		backendHealthy = h.health.Healthy(chainID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"chainId":        chainID,
		"backendHealthy": backendHealthy,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
