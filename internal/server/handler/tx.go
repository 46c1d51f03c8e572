package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/executor"
	"github.com/dtflabs/zapper/internal/orchestrator"
	"github.com/dtflabs/zapper/internal/state"
)

// TxHandler exposes the transaction state machine: status, submission,
// and the warning acknowledgements that unblock it.
type TxHandler struct {
	store  *state.Store
	exec   *executor.Executor
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

func NewTxHandler(store *state.Store, exec *executor.Executor, orch *orchestrator.Orchestrator, logger *slog.Logger) *TxHandler {
	return &TxHandler{store: store, exec: exec, orch: orch, logger: logHandler(logger, "tx")}
}

type txStatusResponse struct {
	State        domain.TxState `json:"state"`
	Gate         string         `json:"gate,omitempty"`
	Label        string         `json:"label,omitempty"`
	Error        string         `json:"error,omitempty"`
	TxHash       string         `json:"txHash,omitempty"`
	ApprovalHash string         `json:"approvalHash,omitempty"`
}

func txStatusView(st executor.Status) txStatusResponse {
	resp := txStatusResponse{
		State: st.State,
		Gate:  string(st.Gate),
		Label: st.Label,
		Error: st.Err,
	}
	if st.TxHash != (common.Hash{}) {
		resp.TxHash = st.TxHash.Hex()
	}
	if st.ApprovalHash != (common.Hash{}) {
		resp.ApprovalHash = st.ApprovalHash.Hex()
	}
	return resp
}

// GetStatus returns the current transaction lifecycle snapshot.
// GET /api/tx
func (h *TxHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, txStatusView(h.exec.Status.Get()))
}

// Submit drives the latest quote through approval, submission, and
// confirmation. The call returns immediately; progress streams through
// the status endpoint and the WebSocket hub.
// POST /api/tx/submit
func (h *TxHandler) Submit(w http.ResponseWriter, r *http.Request) {
	out := h.orch.Outcome.Get()
	if out.Err != nil || !out.Result.OK() {
		writeError(w, http.StatusConflict, "no usable quote to submit")
		return
	}
	if h.store.OngoingTx.Get() {
		writeError(w, http.StatusConflict, "a transaction is already in flight")
		return
	}

	go func() {
		if err := h.exec.Submit(context.Background(), out); err != nil {
			if errors.Is(err, domain.ErrOngoingTx) {
				return
			}
			h.logger.Warn("submission failed", slog.String("error", err.Error()))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "submitting"})
}

type ackRequest struct {
	PriceImpact *bool `json:"priceImpact"`
	Dust        *bool `json:"dust"`
}

// Acknowledge records the user's explicit acceptance of a price-impact or
// dust warning for the current quote.
// POST /api/tx/ack
func (h *TxHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.PriceImpact != nil {
		h.store.PriceImpactAck.Set(*req.PriceImpact)
	}
	if req.Dust != nil {
		h.store.DustAck.Set(*req.Dust)
	}
	h.exec.Evaluate(h.orch.Outcome.Get())
	writeJSON(w, http.StatusOK, txStatusView(h.exec.Status.Get()))
}
