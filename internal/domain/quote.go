package domain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Source identifies which quote provider produced a result.
type Source string

const (
	// SourceBest asks the orchestrator to query every provider and pick the
	// winner; it never appears on a result.
	SourceBest Source = "best"
	// SourceZap is the primary in-house quote provider.
	SourceZap Source = "zap"
	// SourceOdos is the secondary aggregator-backed provider.
	SourceOdos Source = "odos"
)

// Tab is the active side of the widget: buying DTF shares or selling them.
type Tab string

const (
	TabBuy  Tab = "buy"
	TabSell Tab = "sell"
)

// QuoteRequest carries every input needed to request a swap quote. It is
// immutable once constructed; any input change produces a new request.
type QuoteRequest struct {
	ChainID   uint64
	TokenIn   common.Address
	TokenOut  common.Address
	AmountIn  string // integer string in tokenIn base units
	Slippage  uint64 // basis points
	Signer    common.Address
	ForceMint bool
	Debug     bool
}

// Valid reports whether the request can be dispatched at all. Invalid
// requests are never sent; they simply disable the widget action.
func (r QuoteRequest) Valid() bool {
	if r.TokenIn == (common.Address{}) || r.TokenOut == (common.Address{}) {
		return false
	}
	if r.Signer == (common.Address{}) {
		return false
	}
	n, ok := new(big.Int).SetString(r.AmountIn, 10)
	if !ok || n.Sign() == 0 {
		return false
	}
	return true
}

// Signature is the full request identity used to key the quote cache. Two
// requests with the same signature are interchangeable; a result arriving
// for a different signature must be discarded.
func (r QuoteRequest) Signature() string {
	return strings.Join([]string{
		strconv.FormatUint(r.ChainID, 10),
		strings.ToLower(r.TokenIn.Hex()),
		strings.ToLower(r.TokenOut.Hex()),
		r.AmountIn,
		strconv.FormatUint(r.Slippage, 10),
		strings.ToLower(r.Signer.Hex()),
		strconv.FormatBool(r.ForceMint),
		strconv.FormatBool(r.Debug),
	}, "|")
}

// QuoteTuple is the normalized subset of the request that the quote id is
// derived from. Identical tuples reproducibly share a quote id.
func (r QuoteRequest) QuoteTuple() string {
	return fmt.Sprintf("chainId=%d&tokenIn=%s&tokenOut=%s&amountIn=%s&slippage=%d",
		r.ChainID,
		strings.ToLower(r.TokenIn.Hex()),
		strings.ToLower(r.TokenOut.Hex()),
		r.AmountIn,
		r.Slippage,
	)
}

// DustEntry is a leftover basket asset the zap could not fully convert.
type DustEntry struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// TxPayload is the unsigned transaction returned with a successful quote.
// It is nil when the provider found no route.
type TxPayload struct {
	Data  string `json:"data"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// ZapResult is the quote payload shared by both providers.
type ZapResult struct {
	TokenIn           string      `json:"tokenIn"`
	AmountIn          string      `json:"amountIn"`
	AmountInValue     *float64    `json:"amountInValue"`
	TokenOut          string      `json:"tokenOut"`
	AmountOut         string      `json:"amountOut"`
	AmountOutValue    *float64    `json:"amountOutValue"`
	MinAmountOut      string      `json:"minAmountOut,omitempty"`
	ApprovalAddress   string      `json:"approvalAddress"`
	ApprovalNeeded    bool        `json:"approvalNeeded"`
	InsufficientFunds bool        `json:"insufficientFunds"`
	Dust              []DustEntry `json:"dust"`
	DustValue         *float64    `json:"dustValue"`
	Gas               string      `json:"gas"`
	// PriceImpact is a signed percentage; positive means unfavorable.
	PriceImpact     float64    `json:"priceImpact"`
	TruePriceImpact float64    `json:"truePriceImpact"`
	Tx              *TxPayload `json:"tx"`
}

// MinOut parses minAmountOut as an unsigned integer, treating a missing or
// malformed value as zero so comparisons stay total.
func (z *ZapResult) MinOut() *big.Int {
	if z == nil || z.MinAmountOut == "" {
		return new(big.Int)
	}
	n, ok := new(big.Int).SetString(z.MinAmountOut, 10)
	if !ok {
		return new(big.Int)
	}
	return n
}

// DustPercentage returns the dust value as a percentage of total output
// value (dust + amountOut). Zero totals yield zero.
func (z *ZapResult) DustPercentage() float64 {
	if z == nil || z.DustValue == nil {
		return 0
	}
	out := 0.0
	if z.AmountOutValue != nil {
		out = *z.AmountOutValue
	}
	total := *z.DustValue + out
	if total == 0 {
		return 0
	}
	return *z.DustValue / total * 100
}

// QuoteResult is the normalized outcome of one provider fetch. Application
// errors from the provider are captured in Err, never raised further.
type QuoteResult struct {
	Status string     `json:"status"` // "success" or "error"
	Source Source     `json:"source"`
	Result *ZapResult `json:"result,omitempty"`
	Err    string     `json:"error,omitempty"`
}

// OK reports a successful quote with a usable payload.
func (q QuoteResult) OK() bool {
	return q.Status == "success" && q.Result != nil
}

// TraceIDs groups the identifiers stamped on every quote attempt.
type TraceIDs struct {
	SessionID string
	QuoteID   string
	RetryID   string
	SourceID  string
}

// Complete reports whether every identifier is populated. Error reports may
// only be submitted with a complete trace.
func (t TraceIDs) Complete() bool {
	return t.SessionID != "" && t.QuoteID != "" && t.RetryID != "" && t.SourceID != ""
}
