package notify

import (
	"fmt"

	"github.com/dtflabs/zapper/internal/domain"
)

// Event types emitted by the widget engine.
const (
	EventZapSettled = "zap_settled"
	EventZapFailed  = "zap_failed"
)

// SettlementMessage formats a settled zap for operator channels.
func SettlementMessage(rec domain.ZapRecord) (event, title, message string) {
	if rec.Success {
		event = EventZapSettled
		title = "Zap settled"
	} else {
		event = EventZapFailed
		title = "Zap reverted"
	}
	message = fmt.Sprintf(
		"chain %d, %s -> %s\namount in: %s\namount out: %s\nsource: %s, tab: %s\ntx: %s",
		rec.ChainID, rec.TokenIn, rec.TokenOut,
		rec.AmountIn, rec.AmountOut,
		rec.Source, rec.Tab, rec.TxHash,
	)
	return event, title, message
}
