package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/orchestrator"
)

// Watcher re-simulates a resting quote so a stale payload is detected
// before the user submits it, not after. It also reacts to host refocus
// events with an immediate check.
type Watcher struct {
	exec    *Executor
	outcome func() orchestrator.Outcome
	every   time.Duration
	refocus chan struct{}
	logger  *slog.Logger
}

func NewWatcher(exec *Executor, outcome func() orchestrator.Outcome, every time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		exec:    exec,
		outcome: outcome,
		every:   every,
		refocus: make(chan struct{}, 1),
		logger:  logger.With(slog.String("component", "staleness")),
	}
}

// Refocus requests an immediate staleness check, as when the host page
// regains focus after being backgrounded.
func (w *Watcher) Refocus() {
	select {
	case w.refocus <- struct{}{}:
	default:
	}
}

// Run checks on the interval until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		case <-w.refocus:
			w.check(ctx)
		}
	}
}

// check simulates the resting zap payload. Only the ready state is
// checked: before approval the call would revert on allowance, and once
// submission starts the payload is committed.
func (w *Watcher) check(ctx context.Context) {
	if w.exec.Status.Get().State != domain.TxReadyToSubmit {
		return
	}
	out := w.outcome()
	if out.Err != nil || !out.Result.OK() {
		return
	}

	req, err := buildZapRequest(out.Result.Result)
	if err != nil {
		return
	}
	if err := w.exec.chain.Simulate(ctx, w.exec.wallet.Address(), req); err != nil {
		w.logger.Debug("resting quote went stale", slog.String("error", err.Error()))
		w.exec.MarkSimulationFailed()
	}
}
