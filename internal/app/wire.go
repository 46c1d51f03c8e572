package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dtflabs/zapper/internal/cache/memory"
	"github.com/dtflabs/zapper/internal/cache/redis"
	"github.com/dtflabs/zapper/internal/chain"
	"github.com/dtflabs/zapper/internal/config"
	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/executor"
	"github.com/dtflabs/zapper/internal/notify"
	"github.com/dtflabs/zapper/internal/orchestrator"
	"github.com/dtflabs/zapper/internal/provider"
	"github.com/dtflabs/zapper/internal/state"
	"github.com/dtflabs/zapper/internal/store/postgres"
	"github.com/dtflabs/zapper/internal/trace"
	"github.com/dtflabs/zapper/internal/track"
	"github.com/dtflabs/zapper/internal/widget"
)

// Dependencies bundles every engine component Wire constructs. It is torn
// down by the returned cleanup function.
type Dependencies struct {
	Store        *state.Store
	Trace        *trace.Tracker
	Track        track.Tracker
	Controller   *widget.Controller
	Notices      *widget.Notices
	Orchestrator *orchestrator.Orchestrator
	Executor     *executor.Executor
	Watcher      *executor.Watcher
	Health       *provider.HealthMonitor
	Reporter     *provider.Reporter
	History      domain.HistoryStore
	Chain        domain.ChainReader
	Wallet       domain.Wallet
}

// disconnectedWallet stands in when no wallet collaborator is supplied.
// Every submission attempt fails until a real wallet is wired.
type disconnectedWallet struct{}

func (disconnectedWallet) Address() common.Address { return common.Address{} }

func (disconnectedWallet) SendTransaction(context.Context, domain.TxRequest) (common.Hash, error) {
	return common.Hash{}, fmt.Errorf("wallet: not connected")
}

// Wire constructs the engine from configuration. wallet may be nil when
// the host has not connected one yet; quoting works without it but
// submission does not.
func Wire(ctx context.Context, cfg *config.Config, wallet domain.Wallet, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	dtf := domain.Token{
		Address:  common.HexToAddress(cfg.Widget.DTFAddress),
		Symbol:   cfg.Widget.DTFTicker,
		Name:     cfg.Widget.DTFTicker,
		Decimals: 18,
	}
	store := state.NewStore(cfg.Widget.ChainID, cfg.API.URL, dtf, domain.Source(cfg.Widget.DefaultSource))
	tr := trace.NewTracker()

	tracker := track.NewLogTracker(logger)
	tracker.Register("dtf", dtf.Address.Hex())
	tracker.Register("chainId", cfg.Widget.ChainID)

	baseURL := func() string { return store.APIURL.Get() }

	policy := provider.RetryPolicy{
		MaxDustRetries:        cfg.Quote.MaxDustRetries,
		MaxPriceImpactRetries: cfg.Quote.MaxPriceImpactRetries,
		DustThreshold:         cfg.Quote.DustRetryThreshold,
		PriceImpactThreshold:  cfg.Quote.PriceImpactRetryPct,
	}
	primary := provider.NewZapClient(baseURL, policy, tracker)
	secondary := provider.NewOdosClient(baseURL, tracker)

	health := provider.NewHealthMonitor(baseURL,
		time.Duration(cfg.Quote.HealthIntervalSec)*time.Second,
		time.Duration(cfg.Quote.HealthStaleSec)*time.Second,
		logger,
	)

	// Shared caches come from Redis when configured, otherwise in-process.
	var quoteCache domain.QuoteCache
	var reportDedup domain.ReportDedup
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		quoteCache = redis.NewQuoteCache(redisClient)
		reportDedup = redis.NewReportDedup(redisClient)
	} else {
		quoteCache = memory.NewQuoteCache()
		reportDedup = memory.NewReportDedup()
	}

	var history domain.HistoryStore
	if cfg.Postgres.DSN != "" || cfg.Postgres.Host != "" {
		pgClient, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
		history = postgres.NewHistoryStore(pgClient.Pool())
	}

	orch := orchestrator.New(store, tr, tracker, quoteCache, health, primary, secondary, cfg.Quote, logger)

	if cfg.Chain.RPCURL == "" {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain rpc_url is required")
	}
	chainClient, err := chain.NewClient(ctx, cfg.Chain.RPCURL,
		time.Duration(cfg.Tx.ReceiptPollMs)*time.Millisecond,
		time.Duration(cfg.Tx.ReceiptTimeoutSec)*time.Second,
		logger,
	)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain: %w", err)
	}
	closers = append(closers, chainClient.Close)

	if wallet == nil {
		wallet = disconnectedWallet{}
	}

	exec := executor.New(store, chainClient, wallet, orch, history, tracker, cfg.Tx, logger)
	watcher := executor.NewWatcher(exec, orch.Outcome.Get, cfg.StalenessInterval(), logger)
	reporter := provider.NewReporter(baseURL, reportDedup)
	ctrl := widget.NewController(widget.Mode(cfg.Widget.Mode), store, tr, tracker)
	notices := widget.NewNotices()

	// Every fresh outcome feeds the gate evaluation.
	orch.Outcome.Subscribe(exec.Evaluate)

	// Quote failures and settlements surface as host-facing notices.
	orch.Outcome.Subscribe(func(out orchestrator.Outcome) {
		if out.Err != nil {
			notices.Publish(widget.NoticeError, "Quote failed", domain.DisplayError(out.Err.Error()))
		}
	})
	exec.OnSettle(func(rec domain.ZapRecord) {
		if rec.Success {
			notices.Publish(widget.NoticeSuccess, "Zap settled", rec.TxHash)
		} else {
			notices.Publish(widget.NoticeError, "Zap reverted", rec.TxHash)
		}
	})

	// Optional operator notifications on settlement.
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	if len(senders) > 0 {
		notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)
		exec.OnSettle(func(rec domain.ZapRecord) {
			event, title, message := notify.SettlementMessage(rec)
			notifyCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := notifier.Notify(notifyCtx, event, title, message); err != nil {
				logger.Warn("settlement notification failed", slog.String("error", err.Error()))
			}
		})
	}

	deps := &Dependencies{
		Store:        store,
		Trace:        tr,
		Track:        tracker,
		Controller:   ctrl,
		Notices:      notices,
		Orchestrator: orch,
		Executor:     exec,
		Watcher:      watcher,
		Health:       health,
		Reporter:     reporter,
		History:      history,
		Chain:        chainClient,
		Wallet:       wallet,
	}
	return deps, cleanup, nil
}
