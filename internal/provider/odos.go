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

// OdosClient is the secondary quote provider, routed through the Odos
// aggregator path. Its URL carries a smaller parameter set than the
// primary and no debug switch.
type OdosClient struct {
	base    baseURL
	http    *http.Client
	tracker track.Tracker
}

func NewOdosClient(base func() string, tracker track.Tracker) *OdosClient {
	if tracker == nil {
		tracker = track.Noop{}
	}
	return &OdosClient{
		base:    baseURL(base),
		http:    &http.Client{Timeout: requestTimeout},
		tracker: tracker,
	}
}

func (c *OdosClient) Source() domain.Source { return domain.SourceOdos }

// Endpoint builds the secondary swap URL. Parameter order matches the
// backend contract.
func (c *OdosClient) Endpoint(req domain.QuoteRequest) (string, bool) {
	if !req.Valid() {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString(c.base.join("/odos-zapper/swap"))
	sb.WriteString("?chainId=")
	sb.WriteString(fmt.Sprintf("%d", req.ChainID))
	sb.WriteString("&tokenIn=")
	sb.WriteString(url.QueryEscape(req.TokenIn.Hex()))
	sb.WriteString("&tokenOut=")
	sb.WriteString(url.QueryEscape(req.TokenOut.Hex()))
	sb.WriteString("&amountIn=")
	sb.WriteString(url.QueryEscape(req.AmountIn))
	sb.WriteString("&slippage=")
	sb.WriteString(fmt.Sprintf("%d", req.Slippage))
	sb.WriteString("&signer=")
	sb.WriteString(url.QueryEscape(req.Signer.Hex()))
	return sb.String(), true
}

func (c *OdosClient) Fetch(ctx context.Context, req domain.QuoteRequest, ids domain.TraceIDs) (domain.QuoteResult, error) {
	endpoint, ok := c.Endpoint(req)
	if !ok {
		return domain.QuoteResult{}, domain.ErrNoEndpoint
	}
	endpoint = appendTrace(endpoint, ids)

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
	return res, nil
}
