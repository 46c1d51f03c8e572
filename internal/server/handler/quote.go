package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/orchestrator"
	"github.com/dtflabs/zapper/internal/state"
)

// QuoteHandler exposes the latest quote outcome and refresh controls.
type QuoteHandler struct {
	store  *state.Store
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

func NewQuoteHandler(store *state.Store, orch *orchestrator.Orchestrator, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{store: store, orch: orch, logger: logHandler(logger, "quote")}
}

type quoteResponse struct {
	Status    string            `json:"status"`
	Source    domain.Source     `json:"source,omitempty"`
	Result    *domain.ZapResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
	QuoteID   string            `json:"quoteId,omitempty"`
	RetryID   string            `json:"retryId,omitempty"`
	Fetching  bool              `json:"fetching"`
	Endpoint  string            `json:"endpoint,omitempty"`
	FetchedAt string            `json:"fetchedAt,omitempty"`
}

// GetQuote returns the latest quote outcome.
// GET /api/quote
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	out := h.orch.Outcome.Get()

	resp := quoteResponse{
		Fetching:  h.store.Fetching.Get(),
		SessionID: out.IDs.SessionID,
		QuoteID:   out.IDs.QuoteID,
		RetryID:   out.IDs.RetryID,
		Endpoint:  h.store.Endpoint.Get(),
	}
	if !out.FetchedAt.IsZero() {
		resp.FetchedAt = out.FetchedAt.UTC().Format(time.RFC3339)
	}

	switch {
	case out.Err != nil:
		resp.Status = "error"
		resp.Error = domain.DisplayError(out.Err.Error())
	case out.Result.OK():
		resp.Status = "success"
		resp.Source = out.Result.Source
		resp.Result = out.Result.Result
	case out.Result.Status == "error":
		resp.Status = "error"
		resp.Source = out.Result.Source
		resp.Error = domain.DisplayError(out.Result.Err)
	default:
		resp.Status = "empty"
	}

	writeJSON(w, http.StatusOK, resp)
}

// Refresh forces an immediate refetch.
// POST /api/quote/refresh
func (h *QuoteHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.orch.Refresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}
