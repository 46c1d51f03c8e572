package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/state"
	"github.com/dtflabs/zapper/internal/trace"
	"github.com/dtflabs/zapper/internal/widget"
)

// WidgetHandler exposes the controller surface and the shared state over
// HTTP for embedding frontends.
type WidgetHandler struct {
	store  *state.Store
	ctrl   *widget.Controller
	trace  *trace.Tracker
	logger *slog.Logger
}

func NewWidgetHandler(store *state.Store, ctrl *widget.Controller, tr *trace.Tracker, logger *slog.Logger) *WidgetHandler {
	return &WidgetHandler{store: store, ctrl: ctrl, trace: tr, logger: logHandler(logger, "widget")}
}

type stateResponse struct {
	Open          bool          `json:"open"`
	Tab           domain.Tab    `json:"tab"`
	ChainID       uint64        `json:"chainId"`
	Wallet        string        `json:"wallet"`
	DTF           string        `json:"dtf"`
	SelectedToken tokenView     `json:"selectedToken"`
	InputAmount   string        `json:"inputAmount"`
	Slippage      uint64        `json:"slippage"`
	QuoteSource   domain.Source `json:"quoteSource"`
	ForceMint     bool          `json:"forceMint"`
	OngoingTx     bool          `json:"ongoingTx"`
	TraceBundle   string        `json:"traceBundle,omitempty"`
}

type tokenView struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
}

// GetState returns a snapshot of the widget's shared state.
// GET /api/state
func (h *WidgetHandler) GetState(w http.ResponseWriter, r *http.Request) {
	tok := h.store.SelectedOrDefault()
	resp := stateResponse{
		Open:          h.ctrl.IsOpen(),
		Tab:           h.store.Tab.Get(),
		ChainID:       h.store.ChainID.Get(),
		Wallet:        h.store.Wallet.Get().Hex(),
		DTF:           h.store.DTF.Get().Address.Hex(),
		SelectedToken: tokenView{Address: tok.Address.Hex(), Symbol: tok.Symbol, Name: tok.Name},
		InputAmount:   h.store.InputAmount.Get(),
		Slippage:      h.store.SlippageBps(),
		QuoteSource:   h.store.QuoteSource.Get(),
		ForceMint:     h.store.ForceMint.Get(),
		OngoingTx:     h.store.OngoingTx.Get(),
	}
	if bundle, ok := h.trace.Bundle(); ok {
		resp.TraceBundle = bundle
	}
	writeJSON(w, http.StatusOK, resp)
}

type updateStateRequest struct {
	Tab         *string `json:"tab"`
	ChainID     *uint64 `json:"chainId"`
	Wallet      *string `json:"wallet"`
	Token       *string `json:"token"` // empty string resets to chain default
	InputAmount *string `json:"inputAmount"`
	Slippage    *string `json:"slippage"`
	QuoteSource *string `json:"quoteSource"`
	ForceMint   *bool   `json:"forceMint"`
}

// UpdateState applies a partial update to the shared state. Unknown token
// addresses and malformed wallets are rejected; everything else is set
// field by field.
// PATCH /api/state
func (h *WidgetHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	var req updateStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if req.ChainID != nil {
		h.store.SetChainID(*req.ChainID)
	}
	if req.Tab != nil {
		h.ctrl.SetTab(domain.Tab(*req.Tab))
	}
	if req.Wallet != nil {
		if *req.Wallet != "" && !common.IsHexAddress(*req.Wallet) {
			writeError(w, http.StatusBadRequest, "invalid wallet address")
			return
		}
		addr := common.HexToAddress(*req.Wallet)
		h.trace.ObserveWallet(addr)
		h.store.Wallet.Set(addr)
	}
	if req.Token != nil {
		if *req.Token == "" {
			h.store.SelectedToken.Set(nil)
		} else {
			tok, ok := findToken(h.store.ChainID.Get(), *req.Token)
			if !ok {
				writeError(w, http.StatusBadRequest, "token not zappable on this chain")
				return
			}
			h.store.SelectedToken.Set(&tok)
		}
	}
	if req.InputAmount != nil {
		h.store.InputAmount.Set(*req.InputAmount)
	}
	if req.Slippage != nil {
		h.store.Slippage.Set(*req.Slippage)
	}
	if req.QuoteSource != nil {
		switch src := domain.Source(*req.QuoteSource); src {
		case domain.SourceBest, domain.SourceZap, domain.SourceOdos:
			h.store.QuoteSource.Set(src)
		default:
			writeError(w, http.StatusBadRequest, "unknown quote source")
			return
		}
	}
	if req.ForceMint != nil {
		h.store.ForceMint.Set(*req.ForceMint)
	}

	h.GetState(w, r)
}

func findToken(chainID uint64, address string) (domain.Token, bool) {
	if !common.IsHexAddress(address) {
		return domain.Token{}, false
	}
	addr := common.HexToAddress(address)
	for _, tok := range domain.ZappableTokens[chainID] {
		if tok.Address == addr {
			return tok, true
		}
	}
	return domain.Token{}, false
}

// ListTokens returns the zappable token table for the active chain.
// GET /api/tokens
func (h *WidgetHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	chainID := h.store.ChainID.Get()
	tokens := domain.ZappableTokens[chainID]
	views := make([]tokenView, 0, len(tokens))
	for _, tok := range tokens {
		views = append(views, tokenView{Address: tok.Address.Hex(), Symbol: tok.Symbol, Name: tok.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chainId": chainID,
		"tokens":  views,
	})
}

// Open shows the modal.
// POST /api/widget/open
func (h *WidgetHandler) Open(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Open()
	writeJSON(w, http.StatusOK, map[string]bool{"open": h.ctrl.IsOpen()})
}

// Close hides the modal.
// POST /api/widget/close
func (h *WidgetHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Close()
	writeJSON(w, http.StatusOK, map[string]bool{"open": h.ctrl.IsOpen()})
}

// Toggle flips modal visibility.
// POST /api/widget/toggle
func (h *WidgetHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Toggle()
	writeJSON(w, http.StatusOK, map[string]bool{"open": h.ctrl.IsOpen()})
}
