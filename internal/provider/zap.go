package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/track"
)

// ZapClient is the primary quote provider. Its URL shape carries the trade
// and bypassCache flags and, when requested, the backend debug switch.
type ZapClient struct {
	base    baseURL
	http    *http.Client
	policy  RetryPolicy
	tracker track.Tracker
}

// NewZapClient creates the primary provider client. base is read on every
// request so API URL swaps take effect immediately.
func NewZapClient(base func() string, policy RetryPolicy, tracker track.Tracker) *ZapClient {
	if tracker == nil {
		tracker = track.Noop{}
	}
	return &ZapClient{
		base:    baseURL(base),
		http:    &http.Client{Timeout: requestTimeout},
		policy:  policy,
		tracker: tracker,
	}
}

// Source identifies this provider on results and trace payloads.
func (c *ZapClient) Source() domain.Source { return domain.SourceZap }

// Endpoint builds the primary swap URL for the request, or returns false
// when the request is not dispatchable. Parameter order matches the
// backend contract; every value is URL-encoded.
func (c *ZapClient) Endpoint(req domain.QuoteRequest) (string, bool) {
	if !req.Valid() {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString(c.base.join("/zapper/swap"))
	sb.WriteString("?chainId=")
	sb.WriteString(fmt.Sprintf("%d", req.ChainID))
	sb.WriteString("&signer=")
	sb.WriteString(url.QueryEscape(req.Signer.Hex()))
	sb.WriteString("&tokenIn=")
	sb.WriteString(url.QueryEscape(req.TokenIn.Hex()))
	sb.WriteString("&amountIn=")
	sb.WriteString(url.QueryEscape(req.AmountIn))
	sb.WriteString("&tokenOut=")
	sb.WriteString(url.QueryEscape(req.TokenOut.Hex()))
	sb.WriteString("&slippage=")
	sb.WriteString(fmt.Sprintf("%d", req.Slippage))
	sb.WriteString("&trade=")
	sb.WriteString(fmt.Sprintf("%t", !req.ForceMint))
	sb.WriteString("&bypassCache=false")
	if req.Debug {
		sb.WriteString("&debug=true")
	}
	return sb.String(), true
}

// Fetch requests a quote, applying the bounded quality-retry policy: after
// a successful response the request may be re-issued while the dust or
// price-impact thresholds are exceeded and attempts remain.
func (c *ZapClient) Fetch(ctx context.Context, req domain.QuoteRequest, ids domain.TraceIDs) (domain.QuoteResult, error) {
	endpoint, ok := c.Endpoint(req)
	if !ok {
		return domain.QuoteResult{}, domain.ErrNoEndpoint
	}
	endpoint = appendTrace(endpoint, ids)

	dustAttempt := 0
	impactAttempt := 0

	for {
		c.tracker.Track(track.EventQuoteRequested, map[string]any{
			"source":   string(c.Source()),
			"endpoint": endpoint,
			"chainId":  req.ChainID,
		})

		res, err := doFetch(ctx, c.http, c.Source(), endpoint)
		if err != nil {
			c.tracker.Track(track.EventQuoteError, map[string]any{
				"source":   string(c.Source()),
				"endpoint": endpoint,
				"error":    err.Error(),
			})
			return domain.QuoteResult{}, err
		}

		c.tracker.Track(track.EventQuote, quoteProps(c.Source(), endpoint, res))

		if c.policy.ShouldRetryDust(dustAttempt, res.Result) {
			dustAttempt++
			continue
		}
		if c.policy.ShouldRetryPriceImpact(impactAttempt, res.Result) {
			impactAttempt++
			continue
		}
		return res, nil
	}
}

func quoteProps(source domain.Source, endpoint string, res domain.QuoteResult) map[string]any {
	props := map[string]any{
		"source":   string(source),
		"endpoint": endpoint,
		"status":   res.Status,
	}
	if r := res.Result; r != nil {
		props["amountInValue"] = r.AmountInValue
		props["amountOutValue"] = r.AmountOutValue
		props["dustValue"] = r.DustValue
		props["truePriceImpact"] = r.TruePriceImpact
	}
	return props
}
