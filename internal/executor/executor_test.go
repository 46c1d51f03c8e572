package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/orchestrator"
	"github.com/dtflabs/zapper/internal/state"
)

type fakeChain struct {
	chainID     uint64
	gas         uint64
	estimateErr map[common.Address]error // keyed by call target
	revert      bool
	waitErr     error
}

func (c *fakeChain) ChainID() uint64 { return c.chainID }

func (c *fakeChain) EstimateGas(_ context.Context, _ common.Address, req domain.TxRequest) (uint64, error) {
	if err := c.estimateErr[req.To]; err != nil {
		return 0, err
	}
	return c.gas, nil
}

func (c *fakeChain) Simulate(ctx context.Context, from common.Address, req domain.TxRequest) error {
	_, err := c.EstimateGas(ctx, from, req)
	return err
}

func (c *fakeChain) WaitReceipt(_ context.Context, hash common.Hash) (*domain.TxReceipt, error) {
	if c.waitErr != nil {
		return nil, c.waitErr
	}
	return &domain.TxReceipt{TxHash: hash, Success: !c.revert, BlockNumber: 123, GasUsed: 90000}, nil
}

func (c *fakeChain) BalanceOf(context.Context, common.Address, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

type fakeWallet struct {
	addr    common.Address
	sent    []domain.TxRequest
	sendErr error
}

func (w *fakeWallet) Address() common.Address { return w.addr }

func (w *fakeWallet) SendTransaction(_ context.Context, req domain.TxRequest) (common.Hash, error) {
	if w.sendErr != nil {
		return common.Hash{}, w.sendErr
	}
	w.sent = append(w.sent, req)
	return common.BigToHash(big.NewInt(int64(len(w.sent)))), nil
}

type fakeHistory struct {
	records []domain.ZapRecord
}

func (h *fakeHistory) InsertZap(_ context.Context, rec domain.ZapRecord) error {
	h.records = append(h.records, rec)
	return nil
}

func (h *fakeHistory) ListRecent(context.Context, int) ([]domain.ZapRecord, error) {
	return h.records, nil
}

const (
	zapTarget       = "0x5555555555555555555555555555555555555555"
	approvalSpender = "0x6666666666666666666666666666666666666666"
	inputToken      = "0x1111111111111111111111111111111111111111"
)

func executableResult() *domain.ZapResult {
	out := 100.0
	return &domain.ZapResult{
		TokenIn:        inputToken,
		AmountIn:       "1000000",
		TokenOut:       "0x4444444444444444444444444444444444444444",
		AmountOut:      "990000",
		AmountOutValue: &out,
		Tx: &domain.TxPayload{
			To:    zapTarget,
			Data:  "0xdeadbeef",
			Value: "0",
		},
	}
}

func outcomeFor(res *domain.ZapResult) orchestrator.Outcome {
	return orchestrator.Outcome{
		Result: domain.QuoteResult{Status: "success", Source: domain.SourceZap, Result: res},
		IDs:    domain.TraceIDs{SessionID: "sess", QuoteID: "quote-1", RetryID: "retry-1", SourceID: "src-1"},
	}
}

func testExecutor(chain *fakeChain, wallet *fakeWallet, history *fakeHistory) (*Executor, *state.Store) {
	st := gateStore()
	st.Wallet.Set(wallet.addr)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var hs domain.HistoryStore
	if history != nil {
		hs = history
	}
	return New(st, chain, wallet, nil, hs, nil, testTxConfig(), logger), st
}

func TestBuildZapRequest(t *testing.T) {
	res := executableResult()
	res.Tx.Value = "0x1f4"

	req, err := buildZapRequest(res)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(zapTarget), req.To)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, req.Data)
	assert.Equal(t, "500", req.Value.String())

	res.Tx.Value = "500"
	req, err = buildZapRequest(res)
	require.NoError(t, err)
	assert.Equal(t, "500", req.Value.String())

	res.Tx.Value = "garbage"
	_, err = buildZapRequest(res)
	assert.Error(t, err)

	res.Tx.Value = "0"
	res.Tx.To = "not-an-address"
	_, err = buildZapRequest(res)
	assert.Error(t, err)

	_, err = buildZapRequest(&domain.ZapResult{})
	assert.ErrorIs(t, err, domain.ErrNoQuote)
}

func TestEvaluateRestingStates(t *testing.T) {
	exec, _ := testExecutor(&fakeChain{chainID: 1, gas: 100000}, &fakeWallet{addr: common.HexToAddress("0x3333333333333333333333333333333333333333")}, nil)

	exec.Evaluate(outcomeFor(executableResult()))
	assert.Equal(t, domain.TxReadyToSubmit, exec.Status.Get().State)

	res := executableResult()
	res.ApprovalNeeded = true
	exec.Evaluate(outcomeFor(res))
	assert.Equal(t, domain.TxNeedsApproval, exec.Status.Get().State)
}

func TestEvaluateMapsErrorCopy(t *testing.T) {
	exec, _ := testExecutor(&fakeChain{chainID: 1, gas: 100000}, &fakeWallet{addr: common.HexToAddress("0x3333333333333333333333333333333333333333")}, nil)

	out := orchestrator.Outcome{Err: errors.New("Zap error: 404")}
	exec.Evaluate(out)

	st := exec.Status.Get()
	assert.Equal(t, domain.TxIdle, st.State)
	assert.Equal(t, domain.DisplayError("Zap error: 404"), st.Err)
	assert.NotEqual(t, "Zap error: 404", st.Err)
}

func TestEvaluateSkipsWhileSubmitting(t *testing.T) {
	exec, _ := testExecutor(&fakeChain{chainID: 1, gas: 100000}, &fakeWallet{addr: common.HexToAddress("0x3333333333333333333333333333333333333333")}, nil)

	exec.Status.Set(Status{State: domain.TxMining})
	exec.Evaluate(outcomeFor(executableResult()))
	assert.Equal(t, domain.TxMining, exec.Status.Get().State)
}

func TestEvaluateNewQuoteClearsSimulationLatch(t *testing.T) {
	exec, _ := testExecutor(&fakeChain{chainID: 1, gas: 100000}, &fakeWallet{addr: common.HexToAddress("0x3333333333333333333333333333333333333333")}, nil)

	out := outcomeFor(executableResult())
	exec.Evaluate(out)
	exec.MarkSimulationFailed()
	assert.Equal(t, GateSimulationFailed, exec.Status.Get().Gate)

	// Same quote id keeps the latch.
	exec.Evaluate(out)
	assert.Equal(t, GateSimulationFailed, exec.Status.Get().Gate)

	// A fresh quote clears it.
	fresh := out
	fresh.IDs.QuoteID = "quote-2"
	exec.Evaluate(fresh)
	assert.Equal(t, GateNone, exec.Status.Get().Gate)
	assert.Equal(t, domain.TxReadyToSubmit, exec.Status.Get().State)
}

func TestSubmitHappyPath(t *testing.T) {
	chain := &fakeChain{chainID: 1, gas: 100000}
	wallet := &fakeWallet{addr: common.HexToAddress("0x3333333333333333333333333333333333333333")}
	history := &fakeHistory{}
	exec, st := testExecutor(chain, wallet, history)

	var settled []domain.ZapRecord
	exec.OnSettle(func(rec domain.ZapRecord) { settled = append(settled, rec) })

	require.NoError(t, exec.Submit(context.Background(), outcomeFor(executableResult())))

	require.Len(t, wallet.sent, 1)
	assert.Equal(t, uint64(200000), wallet.sent[0].Gas) // estimate times the primary multiplier

	status := exec.Status.Get()
	assert.Equal(t, domain.TxSettledSuccess, status.State)
	assert.NotEqual(t, common.Hash{}, status.TxHash)

	require.Len(t, history.records, 1)
	assert.Equal(t, "quote-1", history.records[0].QuoteID)
	assert.True(t, history.records[0].Success)

	require.Len(t, settled, 1)
	assert.True(t, settled[0].Success)
	assert.False(t, st.OngoingTx.Get())
}

func TestSubmitApprovalPath(t *testing.T) {
	chain := &fakeChain{chainID: 1, gas: 100000}
	wallet := &fakeWallet{addr: common.HexToAddress("0x3333333333333333333333333333333333333333")}
	exec, _ := testExecutor(chain, wallet, nil)

	res := executableResult()
	res.ApprovalNeeded = true
	res.ApprovalAddress = approvalSpender

	require.NoError(t, exec.Submit(context.Background(), outcomeFor(res)))
	require.Len(t, wallet.sent, 2)

	approveReq := wallet.sent[0]
	assert.Equal(t, common.HexToAddress(inputToken), approveReq.To)
	require.True(t, len(approveReq.Data) >= 4+64)
	assert.Equal(t, []byte{0x09, 0x5e, 0xa7, 0xb3}, approveReq.Data[:4])

	// 1000000 padded by the 120% headroom.
	granted := new(big.Int).SetBytes(approveReq.Data[len(approveReq.Data)-32:])
	assert.Equal(t, "1200000", granted.String())

	assert.Equal(t, common.HexToAddress(zapTarget), wallet.sent[1].To)
	assert.Equal(t, domain.TxSettledSuccess, exec.Status.Get().State)
	assert.NotEqual(t, common.Hash{}, exec.Status.Get().ApprovalHash)
}

func TestSubmitSimulationFailure(t *testing.T) {
	chain := &fakeChain{
		chainID:     1,
		gas:         100000,
		estimateErr: map[common.Address]error{common.HexToAddress(zapTarget): errors.New("execution reverted")},
	}
	wallet := &fakeWallet{addr: common.HexToAddress("0x3333333333333333333333333333333333333333")}
	exec, st := testExecutor(chain, wallet, nil)

	err := exec.Submit(context.Background(), outcomeFor(executableResult()))
	require.Error(t, err)
	assert.Empty(t, wallet.sent)

	status := exec.Status.Get()
	assert.Equal(t, GateSimulationFailed, status.Gate)
	assert.Equal(t, "Simulation failed - Refetching quote", status.Label)
	assert.False(t, st.OngoingTx.Get())
}

func TestSubmitBlockedByGate(t *testing.T) {
	chain := &fakeChain{chainID: 1, gas: 100000}
	wallet := &fakeWallet{addr: common.HexToAddress("0x3333333333333333333333333333333333333333")}
	exec, _ := testExecutor(chain, wallet, nil)

	res := executableResult()
	res.TruePriceImpact = 9

	err := exec.Submit(context.Background(), outcomeFor(res))
	require.Error(t, err)
	assert.Empty(t, wallet.sent)
	assert.Equal(t, GatePriceImpact, exec.Status.Get().Gate)
}

func TestSubmitRejectsConcurrentSubmission(t *testing.T) {
	chain := &fakeChain{chainID: 1, gas: 100000}
	wallet := &fakeWallet{addr: common.HexToAddress("0x3333333333333333333333333333333333333333")}
	exec, st := testExecutor(chain, wallet, nil)

	st.OngoingTx.Set(true)
	assert.ErrorIs(t, exec.Submit(context.Background(), outcomeFor(executableResult())), domain.ErrOngoingTx)
}

func TestSubmitRejectsMissingQuote(t *testing.T) {
	chain := &fakeChain{chainID: 1, gas: 100000}
	wallet := &fakeWallet{addr: common.HexToAddress("0x3333333333333333333333333333333333333333")}
	exec, _ := testExecutor(chain, wallet, nil)

	assert.ErrorIs(t, exec.Submit(context.Background(), orchestrator.Outcome{}), domain.ErrNoQuote)
	assert.ErrorIs(t, exec.Submit(context.Background(), orchestrator.Outcome{Err: errors.New("x")}), domain.ErrNoQuote)
}

func TestSubmitRevertedZap(t *testing.T) {
	chain := &fakeChain{chainID: 1, gas: 100000, revert: true}
	wallet := &fakeWallet{addr: common.HexToAddress("0x3333333333333333333333333333333333333333")}
	history := &fakeHistory{}
	exec, _ := testExecutor(chain, wallet, history)

	var settled []domain.ZapRecord
	exec.OnSettle(func(rec domain.ZapRecord) { settled = append(settled, rec) })

	err := exec.Submit(context.Background(), outcomeFor(executableResult()))
	require.Error(t, err)
	assert.Equal(t, domain.TxSettledReverted, exec.Status.Get().State)

	// The reverted zap is recorded and settle callbacks still fire, with
	// the failure visible on the record.
	require.Len(t, history.records, 1)
	assert.False(t, history.records[0].Success)
	require.Len(t, settled, 1)
	assert.False(t, settled[0].Success)
}

func TestGasMultiplierPerChain(t *testing.T) {
	wallet := &fakeWallet{addr: common.HexToAddress("0x3333333333333333333333333333333333333333")}

	exec, _ := testExecutor(&fakeChain{chainID: 1, gas: 100000}, wallet, nil)
	assert.Equal(t, uint64(2), exec.gasMultiplier())

	exec, _ = testExecutor(&fakeChain{chainID: 8453, gas: 100000}, wallet, nil)
	assert.Equal(t, uint64(3), exec.gasMultiplier())
}
