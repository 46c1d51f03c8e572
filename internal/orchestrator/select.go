package orchestrator

import (
	"github.com/dtflabs/zapper/internal/domain"
)

// settled is the outcome of one provider's fetch, error included. ids
// carries the trace of the attempt that produced the outcome.
type settled struct {
	source domain.Source
	res    domain.QuoteResult
	ids    domain.TraceIDs
	err    error
}

func (s settled) ok() bool { return s.err == nil && s.res.OK() }

// pickBest chooses between the primary and secondary outcomes.
//
// When both answered, the strictly greater minAmountOut wins and a tie
// goes to the primary. When only one answered, it wins regardless of
// amounts. When both failed, the primary's error is surfaced.
func pickBest(primary, secondary settled) settled {
	switch {
	case primary.ok() && secondary.ok():
		po := primary.res.Result.MinOut()
		so := secondary.res.Result.MinOut()
		if so.Cmp(po) > 0 {
			return secondary
		}
		return primary
	case primary.ok():
		return primary
	case secondary.ok():
		return secondary
	default:
		return primary
	}
}
