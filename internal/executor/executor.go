// Package executor drives a winning quote through approval, simulation,
// submission, and confirmation, publishing the transaction lifecycle as
// observable status.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dtflabs/zapper/internal/chain"
	"github.com/dtflabs/zapper/internal/config"
	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/orchestrator"
	"github.com/dtflabs/zapper/internal/state"
	"github.com/dtflabs/zapper/internal/track"
)

// Status is the externally visible transaction lifecycle snapshot.
type Status struct {
	State        domain.TxState
	Gate         Gate
	Label        string
	Err          string
	TxHash       common.Hash
	ApprovalHash common.Hash
}

// Executor owns the transaction state machine for one widget instance.
// One submission runs at a time; the OngoingTx flag also suspends the
// orchestrator's auto-refresh for the duration.
type Executor struct {
	store   *state.Store
	chain   domain.ChainReader
	wallet  domain.Wallet
	orch    *orchestrator.Orchestrator
	history domain.HistoryStore
	tracker track.Tracker
	cfg     config.TxConfig
	logger  *slog.Logger

	// Status carries lifecycle snapshots to subscribers.
	Status *state.Cell[Status]

	mu          sync.Mutex
	simFailed   bool
	lastQuoteID string
	onSettle    []func(domain.ZapRecord)
}

func New(
	store *state.Store,
	reader domain.ChainReader,
	wallet domain.Wallet,
	orch *orchestrator.Orchestrator,
	history domain.HistoryStore,
	tracker track.Tracker,
	cfg config.TxConfig,
	logger *slog.Logger,
) *Executor {
	if tracker == nil {
		tracker = track.Noop{}
	}
	return &Executor{
		store:   store,
		chain:   reader,
		wallet:  wallet,
		orch:    orch,
		history: history,
		tracker: tracker,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "executor")),
		Status:  state.NewCell(Status{State: domain.TxIdle}),
	}
}

// OnSettle registers a callback invoked after every settlement, success
// or revert; the record's Success flag tells them apart. Callbacks
// accumulate; there is no way to unregister.
func (e *Executor) OnSettle(fn func(domain.ZapRecord)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSettle = append(e.onSettle, fn)
}

// Evaluate recomputes the gate and resting state for a fresh quote
// outcome. A new quote id clears the simulation-failed latch; the
// orchestrator has already reset the acknowledgements.
func (e *Executor) Evaluate(out orchestrator.Outcome) {
	e.mu.Lock()
	if out.IDs.QuoteID != e.lastQuoteID {
		e.lastQuoteID = out.IDs.QuoteID
		e.simFailed = false
	}
	simFailed := e.simFailed
	e.mu.Unlock()

	cur := e.Status.Get()
	if cur.State != domain.TxIdle && !cur.State.Settled() {
		// A submission is in flight; the new quote does not apply to it.
		return
	}

	var res *domain.ZapResult
	if out.Err == nil && out.Result.OK() {
		res = out.Result.Result
	}

	gate := evaluateGate(res, e.store, e.cfg, simFailed, false)
	st := domain.TxIdle
	if res != nil && gate == GateNone {
		if res.ApprovalNeeded {
			st = domain.TxNeedsApproval
		} else {
			st = domain.TxReadyToSubmit
		}
	}

	errMsg := ""
	if out.Err != nil {
		errMsg = domain.DisplayError(out.Err.Error())
	} else if out.Result.Status == "error" {
		errMsg = domain.DisplayError(out.Result.Err)
	}

	e.Status.Set(Status{
		State: st,
		Gate:  gate,
		Label: gateLabel(gate),
		Err:   errMsg,
	})
}

// MarkSimulationFailed latches the simulation failure for the current
// quote, surfaces the refetching label, and triggers an evicting refetch.
func (e *Executor) MarkSimulationFailed() {
	e.mu.Lock()
	e.simFailed = true
	e.mu.Unlock()

	e.Status.Set(Status{
		State: domain.TxIdle,
		Gate:  GateSimulationFailed,
		Label: labelSimulationFailed,
	})
	if e.orch != nil {
		e.orch.EvictAndRefetch()
	}
}

func (e *Executor) gasMultiplier() uint64 {
	if e.chain.ChainID() == e.cfg.PrimaryChainID {
		return e.cfg.GasMultiplierPrimary
	}
	return e.cfg.GasMultiplierOther
}

// buildZapRequest converts the quote's transaction payload into a
// dispatchable request.
func buildZapRequest(res *domain.ZapResult) (domain.TxRequest, error) {
	if res == nil || res.Tx == nil {
		return domain.TxRequest{}, domain.ErrNoQuote
	}
	if !common.IsHexAddress(res.Tx.To) {
		return domain.TxRequest{}, fmt.Errorf("executor: bad tx target %q", res.Tx.To)
	}

	value := new(big.Int)
	if v := res.Tx.Value; v != "" {
		var ok bool
		if strings.HasPrefix(v, "0x") {
			_, ok = value.SetString(v[2:], 16)
		} else {
			_, ok = value.SetString(v, 10)
		}
		if !ok {
			return domain.TxRequest{}, fmt.Errorf("executor: bad tx value %q", res.Tx.Value)
		}
	}

	return domain.TxRequest{
		To:    common.HexToAddress(res.Tx.To),
		Data:  common.FromHex(res.Tx.Data),
		Value: value,
	}, nil
}

// Submit runs the full machine for the outcome: optional approval, gas
// estimation, submission, and confirmation. It blocks until settlement
// or failure.
func (e *Executor) Submit(ctx context.Context, out orchestrator.Outcome) error {
	if out.Err != nil || !out.Result.OK() {
		return domain.ErrNoQuote
	}
	res := out.Result.Result

	if e.store.OngoingTx.Get() {
		return domain.ErrOngoingTx
	}
	e.store.OngoingTx.Set(true)
	defer e.store.OngoingTx.Set(false)

	e.mu.Lock()
	simFailed := e.simFailed
	e.mu.Unlock()
	if gate := evaluateGate(res, e.store, e.cfg, simFailed, false); gate != GateNone {
		e.Status.Set(Status{State: domain.TxIdle, Gate: gate, Label: gateLabel(gate)})
		return fmt.Errorf("executor: submission blocked: %s", gate)
	}

	var approvalHash common.Hash
	if res.ApprovalNeeded {
		hash, err := e.approve(ctx, res)
		if err != nil {
			return err
		}
		approvalHash = hash
	}

	req, err := buildZapRequest(res)
	if err != nil {
		return err
	}

	// Estimation doubles as the pre-submission simulation. A revert here
	// means the quote no longer matches chain state.
	gas, err := e.chain.EstimateGas(ctx, e.wallet.Address(), req)
	if err != nil {
		e.MarkSimulationFailed()
		return fmt.Errorf("executor: zap simulation: %w", err)
	}
	req.Gas = gas * e.gasMultiplier()

	e.Status.Set(Status{State: domain.TxSubmitting, ApprovalHash: approvalHash})
	e.tracker.Track(track.EventTransactionSubmit, map[string]any{
		"quoteId": out.IDs.QuoteID,
		"source":  string(out.Result.Source),
		"chainId": e.chain.ChainID(),
	})

	hash, err := e.wallet.SendTransaction(ctx, req)
	if err != nil {
		e.Status.Set(Status{State: domain.TxIdle, Err: err.Error(), ApprovalHash: approvalHash})
		e.tracker.Track(track.EventTransactionError, map[string]any{
			"quoteId": out.IDs.QuoteID,
			"error":   err.Error(),
		})
		return fmt.Errorf("executor: send zap: %w", err)
	}

	e.Status.Set(Status{State: domain.TxMining, TxHash: hash, ApprovalHash: approvalHash})

	receipt, err := e.chain.WaitReceipt(ctx, hash)
	if err != nil {
		e.Status.Set(Status{State: domain.TxMining, TxHash: hash, Err: err.Error(), ApprovalHash: approvalHash})
		return fmt.Errorf("executor: confirm zap: %w", err)
	}

	return e.settle(ctx, out, res, receipt, approvalHash)
}

// approve requests the allowance with headroom, confirming before the
// zap proceeds. The zap call is not estimated until the allowance lands
// since it would revert without it.
func (e *Executor) approve(ctx context.Context, res *domain.ZapResult) (common.Hash, error) {
	if !common.IsHexAddress(res.ApprovalAddress) {
		return common.Hash{}, fmt.Errorf("executor: bad approval address %q", res.ApprovalAddress)
	}
	amount, ok := new(big.Int).SetString(res.AmountIn, 10)
	if !ok {
		return common.Hash{}, fmt.Errorf("executor: bad approval amount %q", res.AmountIn)
	}

	req, err := chain.ApproveRequest(
		common.HexToAddress(res.TokenIn),
		common.HexToAddress(res.ApprovalAddress),
		amount,
		e.cfg.ApproveHeadroomPct,
	)
	if err != nil {
		return common.Hash{}, err
	}

	gas, err := e.chain.EstimateGas(ctx, e.wallet.Address(), req)
	if err != nil {
		return common.Hash{}, fmt.Errorf("executor: estimate approve: %w", err)
	}
	req.Gas = gas * e.gasMultiplier()

	e.Status.Set(Status{State: domain.TxApproving, Gate: GateApprovalPending, Label: labelApprovalPending})

	hash, err := e.wallet.SendTransaction(ctx, req)
	if err != nil {
		e.Status.Set(Status{State: domain.TxNeedsApproval, Err: err.Error()})
		return common.Hash{}, fmt.Errorf("executor: send approve: %w", err)
	}

	e.Status.Set(Status{State: domain.TxApprovalConfirming, Gate: GateApprovalPending, Label: labelApprovalPending, ApprovalHash: hash})

	receipt, err := e.chain.WaitReceipt(ctx, hash)
	if err != nil {
		e.Status.Set(Status{State: domain.TxNeedsApproval, Err: err.Error(), ApprovalHash: hash})
		return common.Hash{}, fmt.Errorf("executor: confirm approve: %w", err)
	}
	if !receipt.Success {
		e.Status.Set(Status{State: domain.TxNeedsApproval, Err: "approval reverted", ApprovalHash: hash})
		return common.Hash{}, fmt.Errorf("executor: approval reverted in block %d", receipt.BlockNumber)
	}
	return hash, nil
}

func (e *Executor) settle(ctx context.Context, out orchestrator.Outcome, res *domain.ZapResult, receipt *domain.TxReceipt, approvalHash common.Hash) error {
	st := domain.TxSettledSuccess
	if !receipt.Success {
		st = domain.TxSettledReverted
	}
	e.Status.Set(Status{State: st, TxHash: receipt.TxHash, ApprovalHash: approvalHash})

	event := track.EventTransactionOK
	if !receipt.Success {
		event = track.EventTransactionError
	}
	e.tracker.Track(event, map[string]any{
		"quoteId": out.IDs.QuoteID,
		"txHash":  receipt.TxHash.Hex(),
		"gasUsed": receipt.GasUsed,
	})

	rec := domain.ZapRecord{
		SessionID: out.IDs.SessionID,
		QuoteID:   out.IDs.QuoteID,
		RetryID:   out.IDs.RetryID,
		Source:    out.Result.Source,
		Tab:       e.store.Tab.Get(),
		ChainID:   e.chain.ChainID(),
		TokenIn:   res.TokenIn,
		TokenOut:  res.TokenOut,
		AmountIn:  res.AmountIn,
		AmountOut: res.AmountOut,
		TxHash:    receipt.TxHash.Hex(),
		Success:   receipt.Success,
		GasUsed:   receipt.GasUsed,
		SettledAt: time.Now(),
	}
	if e.history != nil {
		if err := e.history.InsertZap(ctx, rec); err != nil {
			e.logger.Warn("history insert failed", slog.String("error", err.Error()))
		}
	}

	e.mu.Lock()
	callbacks := append([]func(domain.ZapRecord){}, e.onSettle...)
	e.mu.Unlock()
	for _, fn := range callbacks {
		fn(rec)
	}

	if !receipt.Success {
		return fmt.Errorf("executor: zap reverted in block %d", receipt.BlockNumber)
	}
	return nil
}
