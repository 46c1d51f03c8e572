package handler

import (
	"log/slog"
	"net/http"

	"github.com/dtflabs/zapper/internal/domain"
)

// HistoryHandler lists recently settled zaps when persistence is enabled.
type HistoryHandler struct {
	history domain.HistoryStore
	logger  *slog.Logger
}

func NewHistoryHandler(history domain.HistoryStore, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, logger: logHandler(logger, "history")}
}

// ListRecent returns the most recent settled zaps.
// GET /api/history
func (h *HistoryHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "history persistence is not configured")
		return
	}

	limit := queryLimit(r, 50, 500)
	records, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list history failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(records),
		"zaps":  records,
	})
}
