package executor

import (
	"github.com/dtflabs/zapper/internal/config"
	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/state"
)

// Gate identifies the condition currently blocking submission. Gates are
// ordered by priority; the highest applicable one wins.
type Gate string

const (
	GateNone             Gate = ""
	GateSimulationFailed Gate = "simulation_failed"
	GatePriceImpact      Gate = "price_impact"
	GateDust             Gate = "dust"
	GateApprovalPending  Gate = "approval_pending"
	GateInsufficientBal  Gate = "insufficient_balance"
)

// Submit-button copy per gate.
const (
	labelSimulationFailed = "Simulation failed - Refetching quote"
	labelPriceImpact      = "High price impact"
	labelDust             = "High dust"
	labelApprovalPending  = "Approving..."
	labelInsufficientBal  = "Insufficient balance"
)

func gateLabel(g Gate) string {
	switch g {
	case GateSimulationFailed:
		return labelSimulationFailed
	case GatePriceImpact:
		return labelPriceImpact
	case GateDust:
		return labelDust
	case GateApprovalPending:
		return labelApprovalPending
	case GateInsufficientBal:
		return labelInsufficientBal
	default:
		return ""
	}
}

// evaluateGate derives the blocking gate for a quote. Simulation failure
// outranks everything; price impact and dust are dismissible by explicit
// acknowledgement; the rest follow in priority order.
func evaluateGate(res *domain.ZapResult, st *state.Store, cfg config.TxConfig, simFailed, approving bool) Gate {
	if simFailed {
		return GateSimulationFailed
	}
	if res == nil {
		return GateNone
	}

	highImpact := res.TruePriceImpact > cfg.PriceImpactBlockPct
	highDust := res.DustPercentage() > cfg.DustBlockPct
	st.HighPriceImpact.Set(highImpact)
	st.HighDust.Set(highDust)

	if highImpact && !st.PriceImpactAck.Get() {
		return GatePriceImpact
	}
	if highDust && !st.DustAck.Get() {
		return GateDust
	}
	if approving {
		return GateApprovalPending
	}
	if res.InsufficientFunds {
		return GateInsufficientBal
	}
	return GateNone
}
