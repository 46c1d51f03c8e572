package provider

import "github.com/dtflabs/zapper/internal/domain"

// RetryPolicy bounds the primary provider's quality retries: after a
// successful response the client may re-request when the quote looks poor
// (too much dust, too much price impact). The shipped configuration sets
// both max counts to zero, which accepts the first successful response;
// that is a config value, not a separate code path.
type RetryPolicy struct {
	MaxDustRetries        int
	MaxPriceImpactRetries int
	// DustThreshold is a fraction of the output value (0.025 = 2.5%).
	DustThreshold float64
	// PriceImpactThreshold is a true-price-impact percentage.
	PriceImpactThreshold float64
}

// DefaultRetryPolicy mirrors the production configuration: the mechanism is
// armed with the usual thresholds but zero retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxDustRetries:        0,
		MaxPriceImpactRetries: 0,
		DustThreshold:         0.025,
		PriceImpactThreshold:  2,
	}
}

// ShouldRetryDust reports whether attempt may be re-requested because the
// dust value exceeds the configured fraction of the output value.
func (p RetryPolicy) ShouldRetryDust(attempt int, res *domain.ZapResult) bool {
	if attempt >= p.MaxDustRetries || res == nil || res.DustValue == nil {
		return false
	}
	out := 0.0
	if res.AmountOutValue != nil {
		out = *res.AmountOutValue
	}
	return *res.DustValue > p.DustThreshold*out
}

// ShouldRetryPriceImpact reports whether attempt may be re-requested
// because the true price impact exceeds the configured percentage.
func (p RetryPolicy) ShouldRetryPriceImpact(attempt int, res *domain.ZapResult) bool {
	if attempt >= p.MaxPriceImpactRetries || res == nil {
		return false
	}
	return res.TruePriceImpact > p.PriceImpactThreshold
}
