package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/provider"
	"github.com/dtflabs/zapper/internal/state"
	"github.com/dtflabs/zapper/internal/trace"
)

// ReportHandler forwards user-initiated failure reports to the backend,
// filling in the trace identifiers server-side.
type ReportHandler struct {
	store    *state.Store
	trace    *trace.Tracker
	reporter *provider.Reporter
	logger   *slog.Logger
}

func NewReportHandler(store *state.Store, tr *trace.Tracker, reporter *provider.Reporter, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{store: store, trace: tr, reporter: reporter, logger: logHandler(logger, "report")}
}

type reportRequest struct {
	Error  string   `json:"error"`
	Amount string   `json:"amount"`
	Value  *float64 `json:"value"`
}

// SubmitReport sends a failed-zap report for the current quote attempt.
// POST /api/report
func (h *ReportHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Error == "" {
		writeError(w, http.StatusBadRequest, "error message is required")
		return
	}

	ids := h.trace.Current()
	tokenIn := h.store.TokenIn()
	tokenOut := h.store.TokenOut()

	report := provider.Report{
		SessionID: ids.SessionID,
		QuoteID:   ids.QuoteID,
		RetryID:   ids.RetryID,
		Error:     req.Error,
		TokenIn:   provider.ReportToken{Address: tokenIn.Address.Hex(), Symbol: tokenIn.Symbol},
		TokenOut:  provider.ReportToken{Address: tokenOut.Address.Hex(), Symbol: tokenOut.Symbol},
		Amount:    req.Amount,
		Value:     req.Value,
	}

	switch err := h.reporter.Submit(r.Context(), report); {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "reported"})
	case errors.Is(err, domain.ErrIncompleteTrace):
		writeError(w, http.StatusConflict, "no quote attempt to report yet")
	case errors.Is(err, domain.ErrDuplicateReport):
		writeError(w, http.StatusTooManyRequests, "report already submitted")
	default:
		h.logger.Error("report submit failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "report submission failed")
	}
}
