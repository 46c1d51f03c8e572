// Package app wires the widget engine together and manages its lifecycle:
// orchestrator, executor, health polling, staleness watching, and the
// optional embedding server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/dtflabs/zapper/internal/config"
	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/executor"
	"github.com/dtflabs/zapper/internal/orchestrator"
	"github.com/dtflabs/zapper/internal/server"
	"github.com/dtflabs/zapper/internal/server/handler"
	"github.com/dtflabs/zapper/internal/server/ws"
)

// App is the root application object for the server deployment. It owns
// the configuration, logger, and cleanup functions run on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	wallet  domain.Wallet
	closers []func()
}

// New creates an App. wallet may be nil for quote-only deployments.
func New(cfg *config.Config, wallet domain.Wallet, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		wallet: wallet,
	}
}

// Run wires the engine, starts the background loops and the server, and
// blocks until the context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting engine",
		slog.String("mode", a.cfg.Widget.Mode),
		slog.Uint64("chain_id", a.cfg.Widget.ChainID),
		slog.String("dtf", a.cfg.Widget.DTFAddress),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.wallet, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps.Orchestrator.Run(ctx)
		return nil
	})
	g.Go(func() error {
		deps.Health.Run(ctx)
		return nil
	})
	g.Go(func() error {
		deps.Watcher.Run(ctx)
		return nil
	})

	if a.cfg.Server.Enabled {
		hub := ws.NewHub(deps.Watcher.Refocus, a.logger)
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		})

		// Stream engine updates to connected frontends.
		deps.Orchestrator.Outcome.Subscribe(func(out orchestrator.Outcome) {
			hub.Publish(ws.ChannelQuote, quoteUpdate(out))
		})
		deps.Executor.Status.Subscribe(func(st executor.Status) {
			hub.Publish(ws.ChannelTx, txUpdate(st))
		})
		deps.Store.Fetching.Subscribe(func(fetching bool) {
			hub.Publish(ws.ChannelState, map[string]any{"fetching": fetching})
		})
		deps.Store.OngoingTx.Subscribe(func(ongoing bool) {
			hub.Publish(ws.ChannelState, map[string]any{"ongoingTx": ongoing})
		})

		srv := a.buildServer(deps, hub)

		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if err == context.Canceled {
		err = nil
	}
	return err
}

func (a *App) buildServer(deps *Dependencies, hub *ws.Hub) *server.Server {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Store, deps.Health, a.logger),
		Quote:  handler.NewQuoteHandler(deps.Store, deps.Orchestrator, a.logger),
		Widget: handler.NewWidgetHandler(deps.Store, deps.Controller, deps.Trace, a.logger),
		Tx:     handler.NewTxHandler(deps.Store, deps.Executor, deps.Orchestrator, a.logger),
		Report: handler.NewReportHandler(deps.Store, deps.Trace, deps.Reporter, a.logger),
	}
	if deps.History != nil {
		handlers.History = handler.NewHistoryHandler(deps.History, a.logger)
	}

	return server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, hub, a.logger)
}

// quoteUpdate shapes an outcome for the quote stream channel.
func quoteUpdate(out orchestrator.Outcome) map[string]any {
	update := map[string]any{
		"quoteId":   out.IDs.QuoteID,
		"sessionId": out.IDs.SessionID,
		"retryId":   out.IDs.RetryID,
	}
	switch {
	case out.Err != nil:
		update["status"] = "error"
		update["error"] = domain.DisplayError(out.Err.Error())
	case out.Result.OK():
		update["status"] = "success"
		update["source"] = string(out.Result.Source)
		update["result"] = out.Result.Result
	case out.Result.Status == "error":
		update["status"] = "error"
		update["source"] = string(out.Result.Source)
		update["error"] = domain.DisplayError(out.Result.Err)
	default:
		update["status"] = "empty"
	}
	return update
}

// txUpdate shapes an executor status for the tx stream channel.
func txUpdate(st executor.Status) map[string]any {
	update := map[string]any{
		"state": string(st.State),
	}
	if st.Gate != "" {
		update["gate"] = string(st.Gate)
		update["label"] = st.Label
	}
	if st.Err != "" {
		update["error"] = st.Err
	}
	if !isZeroHash(st.TxHash) {
		update["txHash"] = st.TxHash.Hex()
	}
	if !isZeroHash(st.ApprovalHash) {
		update["approvalHash"] = st.ApprovalHash.Hex()
	}
	return update
}

func isZeroHash(h common.Hash) bool { return h == (common.Hash{}) }

// Close tears down all resources in reverse registration order. It is
// safe to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down engine")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
