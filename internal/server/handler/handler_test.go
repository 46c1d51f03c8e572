package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtflabs/zapper/internal/config"
	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/orchestrator"
	"github.com/dtflabs/zapper/internal/state"
	"github.com/dtflabs/zapper/internal/trace"
	"github.com/dtflabs/zapper/internal/widget"
)

type noopProvider struct{ source domain.Source }

func (p noopProvider) Source() domain.Source { return p.source }
func (p noopProvider) Endpoint(req domain.QuoteRequest) (string, bool) {
	return "https://stub/" + string(p.source), req.Valid()
}
func (p noopProvider) Fetch(context.Context, domain.QuoteRequest, domain.TraceIDs) (domain.QuoteResult, error) {
	return domain.QuoteResult{}, domain.ErrNoQuote
}

type testEnv struct {
	store *state.Store
	trace *trace.Tracker
	orch  *orchestrator.Orchestrator
}

func newTestEnv() testEnv {
	dtf := domain.Token{Address: common.HexToAddress("0x4444444444444444444444444444444444444444"), Symbol: "DTF", Decimals: 18}
	st := state.NewStore(domain.ChainMainnet, "https://api.reserve.org/", dtf, domain.SourceBest)
	tr := trace.NewTracker()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := orchestrator.New(st, tr, nil, nil, nil,
		noopProvider{source: domain.SourceZap}, noopProvider{source: domain.SourceOdos},
		config.QuoteConfig{}, logger)
	return testEnv{store: st, trace: tr, orch: orch}
}

func newWidgetHandler(env testEnv) *WidgetHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := widget.NewController(widget.ModeModal, env.store, env.trace, nil)
	return NewWidgetHandler(env.store, ctrl, env.trace, logger)
}

func TestGetState(t *testing.T) {
	env := newTestEnv()
	h := newWidgetHandler(env)

	rec := httptest.NewRecorder()
	h.GetState(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp stateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Open)
	assert.Equal(t, domain.TabBuy, resp.Tab)
	assert.Equal(t, uint64(1), resp.ChainID)
	assert.Equal(t, "ETH", resp.SelectedToken.Symbol)
	assert.Equal(t, uint64(100), resp.Slippage)
}

func TestUpdateState(t *testing.T) {
	env := newTestEnv()
	h := newWidgetHandler(env)

	body := `{"tab":"sell","wallet":"0x3333333333333333333333333333333333333333","inputAmount":"1000000","slippage":"250","quoteSource":"odos","forceMint":true}`
	rec := httptest.NewRecorder()
	h.UpdateState(rec, httptest.NewRequest(http.MethodPatch, "/api/state", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, domain.TabSell, env.store.Tab.Get())
	assert.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333"), env.store.Wallet.Get())
	assert.Equal(t, "1000000", env.store.InputAmount.Get())
	assert.Equal(t, uint64(250), env.store.SlippageBps())
	assert.Equal(t, domain.SourceOdos, env.store.QuoteSource.Get())
	assert.True(t, env.store.ForceMint.Get())
}

func TestUpdateStateChainSwitchResetsToken(t *testing.T) {
	env := newTestEnv()
	h := newWidgetHandler(env)

	usdc := domain.ZappableTokens[domain.ChainMainnet][2]
	env.store.SelectedToken.Set(&usdc)

	rec := httptest.NewRecorder()
	h.UpdateState(rec, httptest.NewRequest(http.MethodPatch, "/api/state", strings.NewReader(`{"chainId":8453}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, env.store.SelectedToken.Get())
}

func TestUpdateStateRejectsBadInput(t *testing.T) {
	env := newTestEnv()
	h := newWidgetHandler(env)

	cases := []string{
		`{"wallet":"not-an-address"}`,
		`{"token":"0x9999999999999999999999999999999999999999"}`,
		`{"quoteSource":"uniswap"}`,
		`not json`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		h.UpdateState(rec, httptest.NewRequest(http.MethodPatch, "/api/state", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestUpdateStateTokenSelection(t *testing.T) {
	env := newTestEnv()
	h := newWidgetHandler(env)

	weth := domain.ZappableTokens[domain.ChainMainnet][1]
	rec := httptest.NewRecorder()
	body := `{"token":"` + weth.Address.Hex() + `"}`
	h.UpdateState(rec, httptest.NewRequest(http.MethodPatch, "/api/state", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.store.SelectedToken.Get())
	assert.Equal(t, "WETH", env.store.SelectedToken.Get().Symbol)

	// Empty string resets to chain default.
	rec = httptest.NewRecorder()
	h.UpdateState(rec, httptest.NewRequest(http.MethodPatch, "/api/state", strings.NewReader(`{"token":""}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, env.store.SelectedToken.Get())
}

func TestListTokens(t *testing.T) {
	env := newTestEnv()
	h := newWidgetHandler(env)

	rec := httptest.NewRecorder()
	h.ListTokens(rec, httptest.NewRequest(http.MethodGet, "/api/tokens", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ChainID uint64      `json:"chainId"`
		Tokens  []tokenView `json:"tokens"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, uint64(1), resp.ChainID)
	require.Len(t, resp.Tokens, 3)
	assert.Equal(t, "ETH", resp.Tokens[0].Symbol)
}

func TestGetQuoteEmpty(t *testing.T) {
	env := newTestEnv()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewQuoteHandler(env.store, env.orch, logger)

	rec := httptest.NewRecorder()
	h.GetQuote(rec, httptest.NewRequest(http.MethodGet, "/api/quote", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp quoteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "empty", resp.Status)
}

func TestGetQuoteSuccess(t *testing.T) {
	env := newTestEnv()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewQuoteHandler(env.store, env.orch, logger)

	env.orch.Outcome.Set(orchestrator.Outcome{
		Result: domain.QuoteResult{
			Status: "success",
			Source: domain.SourceZap,
			Result: &domain.ZapResult{AmountOut: "990000", MinAmountOut: "980000"},
		},
		IDs: domain.TraceIDs{SessionID: "sess", QuoteID: "quote", RetryID: "retry"},
	})

	rec := httptest.NewRecorder()
	h.GetQuote(rec, httptest.NewRequest(http.MethodGet, "/api/quote", nil))

	var resp quoteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, domain.SourceZap, resp.Source)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "980000", resp.Result.MinAmountOut)
	assert.Equal(t, "quote", resp.QuoteID)
}

func TestGetQuoteErrorUsesDisplayCopy(t *testing.T) {
	env := newTestEnv()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewQuoteHandler(env.store, env.orch, logger)

	env.orch.Outcome.Set(orchestrator.Outcome{Err: errors.New("Zap error: 404")})

	rec := httptest.NewRecorder()
	h.GetQuote(rec, httptest.NewRequest(http.MethodGet, "/api/quote", nil))

	var resp quoteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, domain.DisplayError("Zap error: 404"), resp.Error)
}

func TestQueryLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	assert.Equal(t, 50, queryLimit(req, 50, 500))

	req = httptest.NewRequest(http.MethodGet, "/api/history?limit=10", nil)
	assert.Equal(t, 10, queryLimit(req, 50, 500))

	req = httptest.NewRequest(http.MethodGet, "/api/history?limit=9999", nil)
	assert.Equal(t, 500, queryLimit(req, 50, 500))

	req = httptest.NewRequest(http.MethodGet, "/api/history?limit=-3", nil)
	assert.Equal(t, 50, queryLimit(req, 50, 500))
}
