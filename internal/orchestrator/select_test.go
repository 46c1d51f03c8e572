package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtflabs/zapper/internal/domain"
)

func okSettled(source domain.Source, minOut string) settled {
	return settled{
		source: source,
		res: domain.QuoteResult{
			Status: "success",
			Source: source,
			Result: &domain.ZapResult{MinAmountOut: minOut},
		},
	}
}

func failedSettled(source domain.Source, msg string) settled {
	return settled{source: source, err: errors.New(msg)}
}

func TestPickBestStrictlyGreaterWins(t *testing.T) {
	primary := okSettled(domain.SourceZap, "990000000000000000000")
	secondary := okSettled(domain.SourceOdos, "995000000000000000000")

	assert.Equal(t, domain.SourceOdos, pickBest(primary, secondary).source)
	assert.Equal(t, domain.SourceZap, pickBest(secondary, primary).source)
}

func TestPickBestTieGoesToPrimary(t *testing.T) {
	primary := okSettled(domain.SourceZap, "990000000000000000000")
	secondary := okSettled(domain.SourceOdos, "990000000000000000000")

	assert.Equal(t, domain.SourceZap, pickBest(primary, secondary).source)
}

func TestPickBestSingleSurvivorWins(t *testing.T) {
	// The lone success wins even with a worse amount than nothing.
	ok := okSettled(domain.SourceOdos, "1")
	failed := failedSettled(domain.SourceZap, "Zap error: 500")

	assert.Equal(t, domain.SourceOdos, pickBest(failed, ok).source)
	assert.Equal(t, domain.SourceZap, pickBest(okSettled(domain.SourceZap, "1"), failedSettled(domain.SourceOdos, "Odos error: 500")).source)
}

func TestPickBestBothFailedSurfacesPrimaryError(t *testing.T) {
	primary := failedSettled(domain.SourceZap, "Zap error: 404")
	secondary := failedSettled(domain.SourceOdos, "Odos error: 500")

	best := pickBest(primary, secondary)
	assert.Equal(t, domain.SourceZap, best.source)
	assert.EqualError(t, best.err, "Zap error: 404")
}

func TestPickBestMalformedMinOutLosesComparisons(t *testing.T) {
	primary := okSettled(domain.SourceZap, "not-a-number")
	secondary := okSettled(domain.SourceOdos, "1")

	assert.Equal(t, domain.SourceOdos, pickBest(primary, secondary).source)
}
