// Package zapper is the embeddable swap widget engine for index DTFs:
// it quotes ERC-20 to DTF-share swaps from two sources, picks the best
// route, and drives the approval and submission lifecycle.
package zapper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dtflabs/zapper/internal/app"
	"github.com/dtflabs/zapper/internal/config"
	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/executor"
	"github.com/dtflabs/zapper/internal/orchestrator"
	"github.com/dtflabs/zapper/internal/widget"
)

// Re-exported collaborator and result types so embedders need not reach
// into internal packages.
type (
	Wallet      = domain.Wallet
	TxRequest   = domain.TxRequest
	Token       = domain.Token
	Tab         = domain.Tab
	Source      = domain.Source
	Outcome     = orchestrator.Outcome
	TxStatus    = executor.Status
	Controller  = widget.Controller
	Notice      = widget.Notice
	NoticeLevel = widget.NoticeLevel
)

const (
	TabBuy  = domain.TabBuy
	TabSell = domain.TabSell

	SourceBest = domain.SourceBest
	SourceZap  = domain.SourceZap
	SourceOdos = domain.SourceOdos

	NoticeInfo    = widget.NoticeInfo
	NoticeSuccess = widget.NoticeSuccess
	NoticeError   = widget.NoticeError
)

// Config is the host-facing widget configuration. Zero values fall back
// to the engine defaults.
type Config struct {
	// ChainID selects the chain the DTF lives on.
	ChainID uint64
	// DTFAddress is the index fund share token address. Required.
	DTFAddress string
	// DTFTicker labels the share token in UI surfaces.
	DTFTicker string
	// APIURL overrides the quoting service base URL.
	APIURL string
	// RPCURL is the JSON-RPC endpoint for simulation and confirmation.
	// Required.
	RPCURL string
	// Inline mounts the widget inline instead of as a modal.
	Inline bool
	// Debug requests backend debug payloads on primary quotes.
	Debug bool
	// DefaultSource pins the quote source; empty means "best".
	DefaultSource Source
	// Logger receives engine logs; nil means JSON to stdout.
	Logger *slog.Logger
}

// walletProxy lets the host connect a wallet after construction.
type walletProxy struct {
	mu    sync.RWMutex
	inner Wallet
}

func (p *walletProxy) get() Wallet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.inner
}

func (p *walletProxy) set(w Wallet) {
	p.mu.Lock()
	p.inner = w
	p.mu.Unlock()
}

func (p *walletProxy) Address() common.Address {
	if w := p.get(); w != nil {
		return w.Address()
	}
	return common.Address{}
}

func (p *walletProxy) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	if w := p.get(); w != nil {
		return w.SendTransaction(ctx, req)
	}
	return common.Hash{}, fmt.Errorf("zapper: no wallet connected")
}

// Widget is one embedded widget instance. Create it with New, connect a
// wallet, and subscribe to quote and transaction updates.
type Widget struct {
	cfg     *config.Config
	deps    *app.Dependencies
	proxy   *walletProxy
	cancel  context.CancelFunc
	cleanup func()
}

// New wires and starts a widget engine. The background loops (quoting,
// health polling, staleness watching) run until Close.
func New(ctx context.Context, cfg Config) (*Widget, error) {
	if cfg.DTFAddress == "" || !common.IsHexAddress(cfg.DTFAddress) {
		return nil, fmt.Errorf("zapper: a valid DTFAddress is required")
	}

	full := config.Defaults()
	if cfg.ChainID != 0 {
		full.Widget.ChainID = cfg.ChainID
	}
	full.Widget.DTFAddress = cfg.DTFAddress
	full.Widget.DTFTicker = cfg.DTFTicker
	full.Widget.Debug = cfg.Debug
	if cfg.Inline {
		full.Widget.Mode = string(widget.ModeInline)
	}
	if cfg.DefaultSource != "" {
		full.Widget.DefaultSource = string(cfg.DefaultSource)
	}
	if cfg.APIURL != "" {
		full.API.URL = cfg.APIURL
	}
	full.Chain.RPCURL = cfg.RPCURL
	if err := full.Validate(); err != nil {
		return nil, fmt.Errorf("zapper: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	proxy := &walletProxy{}
	deps, cleanup, err := app.Wire(ctx, &full, proxy, logger)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	go deps.Orchestrator.Run(runCtx)
	go deps.Health.Run(runCtx)
	go deps.Watcher.Run(runCtx)

	w := &Widget{
		cfg:     &full,
		deps:    deps,
		proxy:   proxy,
		cancel:  cancel,
		cleanup: cleanup,
	}
	if cfg.Debug {
		deps.Store.Debug.Set(true)
	}
	return w, nil
}

// Close stops the background loops and releases resources.
func (w *Widget) Close() {
	w.cancel()
	w.cleanup()
}

// Controller returns the modal and tab controller.
func (w *Widget) Controller() *Controller {
	return w.deps.Controller
}

// ConnectWallet attaches the signing collaborator and records the wallet
// address. Reconnecting with a different address starts a new session.
func (w *Widget) ConnectWallet(wallet Wallet) {
	w.proxy.set(wallet)
	addr := common.Address{}
	if wallet != nil {
		addr = wallet.Address()
	}
	w.deps.Trace.ObserveWallet(addr)
	w.deps.Store.Wallet.Set(addr)
}

// SetAPIURL redirects all subsequent quote, health, and report calls to
// a new base URL, without restarting the engine.
func (w *Widget) SetAPIURL(url string) {
	w.deps.Store.APIURL.Set(url)
}

// SetChain switches the active chain, resetting the token selection to
// the new chain's default.
func (w *Widget) SetChain(chainID uint64) {
	w.deps.Store.SetChainID(chainID)
}

// SetAmount updates the user input amount (base units of the input
// token as a decimal string).
func (w *Widget) SetAmount(amount string) {
	w.deps.Store.InputAmount.Set(amount)
}

// SelectToken picks the paired token by address, or resets to the chain
// default when addr is empty.
func (w *Widget) SelectToken(addr string) error {
	if addr == "" {
		w.deps.Store.SelectedToken.Set(nil)
		return nil
	}
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("zapper: invalid token address %q", addr)
	}
	want := common.HexToAddress(addr)
	for _, tok := range domain.ZappableTokens[w.deps.Store.ChainID.Get()] {
		if tok.Address == want {
			t := tok
			w.deps.Store.SelectedToken.Set(&t)
			return nil
		}
	}
	return fmt.Errorf("zapper: token %s is not zappable on chain %d", addr, w.deps.Store.ChainID.Get())
}

// SetSlippage sets the slippage tolerance in basis points (raw string;
// invalid input falls back to the default).
func (w *Widget) SetSlippage(bps string) {
	w.deps.Store.Slippage.Set(bps)
}

// SetForceMint pins the primary provider to mint routes only.
func (w *Widget) SetForceMint(force bool) {
	w.deps.Store.ForceMint.Set(force)
}

// SetQuoteSource pins quoting to one source, or back to best-of.
func (w *Widget) SetQuoteSource(src Source) error {
	switch src {
	case SourceBest, SourceZap, SourceOdos:
		w.deps.Store.QuoteSource.Set(src)
		return nil
	default:
		return fmt.Errorf("zapper: unknown quote source %q", src)
	}
}

// Refresh forces an immediate refetch, bypassing the debounce.
func (w *Widget) Refresh() {
	w.deps.Orchestrator.Refresh()
}

// Refocus signals that the host page regained visibility, triggering an
// immediate staleness check on any resting quote.
func (w *Widget) Refocus() {
	w.deps.Watcher.Refocus()
}

// Quote returns the latest quote outcome.
func (w *Widget) Quote() Outcome {
	return w.deps.Orchestrator.Outcome.Get()
}

// OnQuote subscribes to quote outcomes. The returned function cancels
// the subscription.
func (w *Widget) OnQuote(fn func(Outcome)) func() {
	return w.deps.Orchestrator.Outcome.Subscribe(fn)
}

// Tx returns the latest transaction lifecycle snapshot.
func (w *Widget) Tx() TxStatus {
	return w.deps.Executor.Status.Get()
}

// OnTx subscribes to transaction lifecycle updates.
func (w *Widget) OnTx(fn func(TxStatus)) func() {
	return w.deps.Executor.Status.Subscribe(fn)
}

// OnSuccess registers a callback invoked after a successful settlement.
func (w *Widget) OnSuccess(fn func(txHash string)) {
	w.deps.Executor.OnSettle(func(rec domain.ZapRecord) {
		if rec.Success {
			fn(rec.TxHash)
		}
	})
}

// OnNotice subscribes the host's toast renderer to the notice feed:
// quote failures and zap settlements, with user-facing copy. The
// returned function cancels the subscription.
func (w *Widget) OnNotice(fn func(Notice)) func() {
	return w.deps.Notices.Subscribe(fn)
}

// AcknowledgePriceImpact records the user's acceptance of the high
// price-impact warning for the current quote.
func (w *Widget) AcknowledgePriceImpact() {
	w.deps.Store.PriceImpactAck.Set(true)
	w.deps.Executor.Evaluate(w.Quote())
}

// AcknowledgeDust records the user's acceptance of the high dust warning
// for the current quote.
func (w *Widget) AcknowledgeDust() {
	w.deps.Store.DustAck.Set(true)
	w.deps.Executor.Evaluate(w.Quote())
}

// Submit drives the latest quote through approval, submission, and
// confirmation. It blocks until settlement or failure.
func (w *Widget) Submit(ctx context.Context) error {
	return w.deps.Executor.Submit(ctx, w.Quote())
}

// TraceBundle returns the copyable diagnostic id string for support
// flows, once a quote attempt has been made.
func (w *Widget) TraceBundle() (string, bool) {
	return w.deps.Trace.Bundle()
}
