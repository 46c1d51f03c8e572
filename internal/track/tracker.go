// Package track defines the analytics event collaborator. The engine only
// emits events through the Tracker interface; delivery to an actual
// analytics backend is the host application's concern. The default
// implementation writes events to the structured log so nothing is silently
// dropped when no backend is attached.
package track

import (
	"log/slog"
	"sync"
)

// Event names emitted by the engine.
const (
	EventQuoteRequested    = "Index DTF Quote Requested"
	EventQuote             = "Index DTF Quote"
	EventQuoteError        = "Index DTF Quote Error"
	EventQuoteSourceWinner = "Quote Source Winner"
	EventQuoteRefresh      = "Quote Refresh"
	EventTransactionSubmit = "Transaction Submit"
	EventTransactionOK     = "Transaction Success"
	EventTransactionError  = "Transaction Error"
	EventWidgetOpen        = "Zapper Open"
	EventWidgetClose       = "Zapper Close"
)

// Tracker receives analytics events. Implementations must be safe for
// concurrent use and must never block the caller on delivery.
type Tracker interface {
	// Track emits one event with its properties.
	Track(event string, props map[string]any)
	// Register stores a super-property attached to every subsequent event.
	Register(key string, value any)
}

// LogTracker is the default Tracker: events go to the debug log, enriched
// with registered super-properties.
type LogTracker struct {
	logger *slog.Logger

	mu    sync.RWMutex
	super map[string]any
}

// NewLogTracker creates a LogTracker writing through the given logger.
func NewLogTracker(logger *slog.Logger) *LogTracker {
	return &LogTracker{
		logger: logger.With(slog.String("component", "track")),
		super:  make(map[string]any),
	}
}

// Track logs the event at debug level with super-properties merged in.
func (t *LogTracker) Track(event string, props map[string]any) {
	t.mu.RLock()
	merged := make(map[string]any, len(props)+len(t.super))
	for k, v := range t.super {
		merged[k] = v
	}
	t.mu.RUnlock()
	for k, v := range props {
		merged[k] = v
	}
	attrs := make([]any, 0, len(merged))
	for k, v := range merged {
		attrs = append(attrs, slog.Any(k, v))
	}
	t.logger.Debug(event, attrs...)
}

// Register stores a super-property.
func (t *LogTracker) Register(key string, value any) {
	t.mu.Lock()
	t.super[key] = value
	t.mu.Unlock()
}

// Noop is a Tracker that discards everything.
type Noop struct{}

func (Noop) Track(string, map[string]any) {}
func (Noop) Register(string, any)         {}
