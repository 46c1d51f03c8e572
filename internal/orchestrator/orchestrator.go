// Package orchestrator drives quote fetching: input debounce, two-source
// fan-out with transport retries, best-result selection, caching, and the
// periodic auto-refresh.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dtflabs/zapper/internal/config"
	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/provider"
	"github.com/dtflabs/zapper/internal/state"
	"github.com/dtflabs/zapper/internal/trace"
	"github.com/dtflabs/zapper/internal/track"
)

// Outcome is the published result of one quote cycle. Exactly one of
// Result and Err is meaningful; a zero Signature means no quote yet.
type Outcome struct {
	Result    domain.QuoteResult
	Err       error
	IDs       domain.TraceIDs
	Signature string
	FetchedAt time.Time
}

// Orchestrator owns the quote lifecycle for one widget instance. All
// fetch scheduling happens on the Run goroutine; results are published
// through the Outcome cell.
type Orchestrator struct {
	store     *state.Store
	trace     *trace.Tracker
	tracker   track.Tracker
	cache     domain.QuoteCache
	health    *provider.HealthMonitor
	primary   provider.QuoteProvider
	secondary provider.QuoteProvider
	cfg       config.QuoteConfig
	logger    *slog.Logger

	// Outcome carries the latest quote cycle result to subscribers.
	Outcome *state.Cell[Outcome]

	invalidated chan struct{}
	refresh     chan bool // payload: evict cache first

	gen        atomic.Uint64
	mu         sync.Mutex
	cancelPrev context.CancelFunc
	unsubs     []func()
}

func New(
	store *state.Store,
	tr *trace.Tracker,
	tracker track.Tracker,
	cache domain.QuoteCache,
	health *provider.HealthMonitor,
	primary, secondary provider.QuoteProvider,
	cfg config.QuoteConfig,
	logger *slog.Logger,
) *Orchestrator {
	if tracker == nil {
		tracker = track.Noop{}
	}
	return &Orchestrator{
		store:       store,
		trace:       tr,
		tracker:     tracker,
		cache:       cache,
		health:      health,
		primary:     primary,
		secondary:   secondary,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "orchestrator")),
		Outcome:     state.NewCell(Outcome{}),
		invalidated: make(chan struct{}, 1),
		refresh:     make(chan bool, 1),
	}
}

// Run wires input subscriptions and processes the fetch schedule until
// ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	o.subscribe()
	defer o.unsubscribe()

	debounce := time.NewTimer(time.Hour)
	if !debounce.Stop() {
		<-debounce.C
	}

	ticker := time.NewTicker(time.Duration(o.cfg.RefreshIntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.cancelInFlight()
			return
		case <-o.invalidated:
			debounce.Reset(time.Duration(o.cfg.DebounceMs) * time.Millisecond)
		case <-debounce.C:
			o.startFetch(ctx, false)
		case evict := <-o.refresh:
			o.tracker.Track(track.EventQuoteRefresh, nil)
			o.startFetch(ctx, evict)
		case <-ticker.C:
			// Auto-refresh never yanks the quote out from under an
			// in-flight transaction.
			if o.store.OngoingTx.Get() {
				continue
			}
			o.startFetch(ctx, false)
		}
	}
}

// Invalidate signals that a quote input changed. The fetch runs after
// the debounce window elapses without further changes.
func (o *Orchestrator) Invalidate() {
	select {
	case o.invalidated <- struct{}{}:
	default:
	}
}

// Refresh forces an immediate refetch, skipping the debounce.
func (o *Orchestrator) Refresh() {
	select {
	case o.refresh <- false:
	default:
	}
}

// EvictAndRefetch drops the cached quote for the current request and
// refetches immediately. Used when a simulated quote has gone stale.
func (o *Orchestrator) EvictAndRefetch() {
	select {
	case o.refresh <- true:
	default:
	}
}

func (o *Orchestrator) subscribe() {
	o.unsubs = append(o.unsubs,
		o.store.ChainID.Subscribe(func(uint64) { o.Invalidate() }),
		o.store.Wallet.Subscribe(func(addr common.Address) {
			if o.trace.ObserveWallet(addr) {
				o.logger.Debug("session regenerated on wallet change")
			}
			o.Invalidate()
		}),
		o.store.SelectedToken.Subscribe(func(*domain.Token) { o.Invalidate() }),
		o.store.InputAmount.Subscribe(func(string) { o.Invalidate() }),
		o.store.Slippage.Subscribe(func(string) { o.Invalidate() }),
		o.store.Tab.Subscribe(func(domain.Tab) { o.Invalidate() }),
		o.store.ForceMint.Subscribe(func(bool) { o.Invalidate() }),
		o.store.Debug.Subscribe(func(bool) { o.Invalidate() }),
		o.store.QuoteSource.Subscribe(func(domain.Source) { o.Invalidate() }),
		o.store.APIURL.Subscribe(func(string) { o.Invalidate() }),
	)
}

func (o *Orchestrator) unsubscribe() {
	for _, cancel := range o.unsubs {
		cancel()
	}
	o.unsubs = nil
}

func (o *Orchestrator) buildRequest() (domain.QuoteRequest, bool) {
	amount, ok := o.store.AmountInUnits()
	if !ok {
		return domain.QuoteRequest{}, false
	}
	req := domain.QuoteRequest{
		ChainID:   o.store.ChainID.Get(),
		TokenIn:   o.store.TokenIn().Address,
		TokenOut:  o.store.TokenOut().Address,
		AmountIn:  amount,
		Slippage:  o.store.SlippageBps(),
		Signer:    o.store.Wallet.Get(),
		ForceMint: o.store.ForceMint.Get(),
		Debug:     o.store.Debug.Get(),
	}
	return req, req.Valid()
}

// startFetch begins a new quote cycle. A previous in-flight cycle is
// cancelled and its result, if it still lands, is discarded by the
// generation check.
func (o *Orchestrator) startFetch(ctx context.Context, evict bool) {
	req, ok := o.buildRequest()
	if !ok {
		o.cancelInFlight()
		o.store.Fetching.Set(false)
		o.Outcome.Set(Outcome{})
		return
	}

	if o.health != nil && !o.health.Healthy(req.ChainID) {
		o.logger.Warn("chain reported unhealthy, quoting anyway",
			slog.Uint64("chain_id", req.ChainID))
	}

	gen := o.gen.Add(1)
	fetchCtx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	if o.cancelPrev != nil {
		o.cancelPrev()
	}
	o.cancelPrev = cancel
	o.mu.Unlock()

	sig := req.Signature()
	if evict && o.cache != nil {
		if err := o.cache.Evict(fetchCtx, sig); err != nil {
			o.logger.Warn("cache evict failed", slog.String("error", err.Error()))
		}
	}

	o.store.Fetching.Set(true)
	go o.runCycle(fetchCtx, gen, req, sig)
}

func (o *Orchestrator) cancelInFlight() {
	o.gen.Add(1)
	o.mu.Lock()
	if o.cancelPrev != nil {
		o.cancelPrev()
		o.cancelPrev = nil
	}
	o.mu.Unlock()
}

func (o *Orchestrator) runCycle(ctx context.Context, gen uint64, req domain.QuoteRequest, sig string) {
	// One quoteId/retryId pair covers the whole cycle; both providers
	// fetch under it, and only transport retries mint a fresh retry id.
	ids := o.trace.BeginAttempt(req)

	if o.cache != nil {
		if cached, ok := o.cache.Get(ctx, sig); ok {
			o.publish(gen, sig, Outcome{
				Result:    cached,
				IDs:       ids,
				Signature: sig,
				FetchedAt: time.Now(),
			}, cached.Source, req)
			return
		}
	}

	source := o.store.QuoteSource.Get()
	primary, secondary := o.fanOut(ctx, req, ids, source)

	best := pickBest(primary, secondary)
	out := Outcome{
		Signature: sig,
		FetchedAt: time.Now(),
	}
	if best.err != nil {
		out.Err = best.err
		out.IDs = best.ids
		o.publish(gen, sig, out, best.source, req)
		return
	}

	out.Result = best.res
	out.IDs = best.ids
	out.IDs.SourceID = trace.NewSourceID(best.source)

	if o.cache != nil {
		ttl := time.Duration(o.cfg.CacheTTLSec) * time.Second
		if err := o.cache.Set(ctx, sig, best.res, ttl); err != nil {
			o.logger.Warn("cache set failed", slog.String("error", err.Error()))
		}
	}
	o.publish(gen, sig, out, best.source, req)
}

// fanOut dispatches the enabled providers concurrently and waits for
// every one to settle. A forced source runs alone and its outcome also
// stands in for the primary slot.
func (o *Orchestrator) fanOut(ctx context.Context, req domain.QuoteRequest, ids domain.TraceIDs, source domain.Source) (settled, settled) {
	var primary, secondary settled
	primary.source = o.primary.Source()
	secondary.source = o.secondary.Source()
	primary.ids = ids
	secondary.ids = ids
	primary.err = domain.ErrNoQuote
	secondary.err = domain.ErrNoQuote

	var wg sync.WaitGroup
	if source == domain.SourceBest || source == o.primary.Source() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			primary.res, primary.ids, primary.err = o.fetchWithRetry(ctx, o.primary, req, ids)
		}()
	}
	if source == domain.SourceBest || source == o.secondary.Source() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			secondary.res, secondary.ids, secondary.err = o.fetchWithRetry(ctx, o.secondary, req, ids)
		}()
	}
	wg.Wait()

	if source == o.secondary.Source() {
		return secondary, secondary
	}
	return primary, secondary
}

// fetchWithRetry runs one provider with bounded transport retries. Only
// transport failures retry; a provider-reported quote error surfaces
// immediately. The first attempt goes out under the cycle's ids; each
// retry mints a fresh retry id before its request. The ids of the last
// attempt made are returned with the outcome.
func (o *Orchestrator) fetchWithRetry(ctx context.Context, p provider.QuoteProvider, req domain.QuoteRequest, ids domain.TraceIDs) (domain.QuoteResult, domain.TraceIDs, error) {
	base := time.Duration(o.cfg.BackoffBaseMs) * time.Millisecond
	max := time.Duration(o.cfg.BackoffCapMs) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= o.cfg.MaxTransportRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.QuoteResult{}, ids, ctx.Err()
			case <-time.After(backoff(attempt-1, base, max)):
			}
			ids.RetryID = trace.NewRetryID()
		}

		res, err := p.Fetch(ctx, req, ids)
		if err == nil {
			return res, ids, nil
		}
		lastErr = err
		if !provider.Retryable(err) || ctx.Err() != nil {
			return domain.QuoteResult{}, ids, err
		}
		o.logger.Debug("transport retry",
			slog.String("source", string(p.Source())),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))
	}
	return domain.QuoteResult{}, ids, lastErr
}

// publish installs the outcome unless a newer cycle superseded this one
// or the request changed while the fetch was in flight.
func (o *Orchestrator) publish(gen uint64, sig string, out Outcome, winner domain.Source, req domain.QuoteRequest) {
	if o.gen.Load() != gen {
		return
	}
	if cur, ok := o.buildRequest(); !ok || cur.Signature() != sig {
		return
	}

	// Later error reports and the diagnostic bundle must reference the
	// attempt that actually got published, not whichever provider's
	// fetch happened to finish last.
	o.trace.RecordAttempt(out.IDs)

	if out.Err == nil && out.Result.OK() {
		o.trace.RecordSource(winner)
		if ep, ok := o.providerFor(winner).Endpoint(req); ok {
			o.store.Endpoint.Set(ep)
		}
		o.tracker.Track(track.EventQuoteSourceWinner, map[string]any{
			"source":  string(winner),
			"chainId": req.ChainID,
		})
	}

	// New quote means old acknowledgements no longer apply.
	prev := o.Outcome.Get()
	if prev.IDs.QuoteID != out.IDs.QuoteID {
		o.store.ResetAcks()
	}

	o.Outcome.Set(out)
	o.store.Fetching.Set(false)
}

func (o *Orchestrator) providerFor(source domain.Source) provider.QuoteProvider {
	if source == o.secondary.Source() {
		return o.secondary
	}
	return o.primary
}
