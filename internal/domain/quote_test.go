package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() QuoteRequest {
	return QuoteRequest{
		ChainID:  1,
		TokenIn:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TokenOut: common.HexToAddress("0x2222222222222222222222222222222222222222"),
		AmountIn: "1000000000000000000",
		Slippage: 100,
		Signer:   common.HexToAddress("0x3333333333333333333333333333333333333333"),
	}
}

func TestQuoteRequestValid(t *testing.T) {
	assert.True(t, validRequest().Valid())

	req := validRequest()
	req.Signer = common.Address{}
	assert.False(t, req.Valid())

	req = validRequest()
	req.TokenIn = common.Address{}
	assert.False(t, req.Valid())

	req = validRequest()
	req.AmountIn = "0"
	assert.False(t, req.Valid())

	req = validRequest()
	req.AmountIn = "1.5"
	assert.False(t, req.Valid())

	req = validRequest()
	req.AmountIn = ""
	assert.False(t, req.Valid())
}

func TestQuoteTupleNormalized(t *testing.T) {
	req := validRequest()
	tuple := req.QuoteTuple()

	assert.Equal(t,
		"chainId=1&tokenIn=0x1111111111111111111111111111111111111111&tokenOut=0x2222222222222222222222222222222222222222&amountIn=1000000000000000000&slippage=100",
		tuple)

	// Signer, forceMint, and debug do not participate in quote identity.
	req.Signer = common.HexToAddress("0x4444444444444444444444444444444444444444")
	req.ForceMint = true
	req.Debug = true
	assert.Equal(t, tuple, req.QuoteTuple())

	req.AmountIn = "2000000000000000000"
	assert.NotEqual(t, tuple, req.QuoteTuple())
}

func TestSignatureCoversEveryField(t *testing.T) {
	base := validRequest()

	mutations := map[string]func(*QuoteRequest){
		"chainId":   func(r *QuoteRequest) { r.ChainID = 8453 },
		"tokenIn":   func(r *QuoteRequest) { r.TokenIn = common.HexToAddress("0x9999999999999999999999999999999999999999") },
		"tokenOut":  func(r *QuoteRequest) { r.TokenOut = common.HexToAddress("0x9999999999999999999999999999999999999999") },
		"amountIn":  func(r *QuoteRequest) { r.AmountIn = "5" },
		"slippage":  func(r *QuoteRequest) { r.Slippage = 200 },
		"signer":    func(r *QuoteRequest) { r.Signer = common.HexToAddress("0x9999999999999999999999999999999999999999") },
		"forceMint": func(r *QuoteRequest) { r.ForceMint = true },
		"debug":     func(r *QuoteRequest) { r.Debug = true },
	}
	for name, mutate := range mutations {
		req := base
		mutate(&req)
		assert.NotEqual(t, base.Signature(), req.Signature(), "mutating %s must change the signature", name)
	}

	assert.Equal(t, base.Signature(), validRequest().Signature())
}

func TestMinOut(t *testing.T) {
	res := &ZapResult{MinAmountOut: "995000000000000000000"}
	require.Equal(t, "995000000000000000000", res.MinOut().String())

	assert.Equal(t, "0", (&ZapResult{}).MinOut().String())
	assert.Equal(t, "0", (&ZapResult{MinAmountOut: "not-a-number"}).MinOut().String())
	assert.Equal(t, "0", (*ZapResult)(nil).MinOut().String())
}

func TestDustPercentage(t *testing.T) {
	dust := 15.0
	out := 90.0
	res := &ZapResult{DustValue: &dust, AmountOutValue: &out}
	assert.InDelta(t, 14.2857, res.DustPercentage(), 0.001)

	zero := 0.0
	res = &ZapResult{DustValue: &zero, AmountOutValue: &zero}
	assert.Zero(t, res.DustPercentage())

	assert.Zero(t, (&ZapResult{}).DustPercentage())
	assert.Zero(t, (*ZapResult)(nil).DustPercentage())
}

func TestQuoteResultOK(t *testing.T) {
	assert.True(t, QuoteResult{Status: "success", Result: &ZapResult{}}.OK())
	assert.False(t, QuoteResult{Status: "success"}.OK())
	assert.False(t, QuoteResult{Status: "error", Result: &ZapResult{}}.OK())
}

func TestTraceIDsComplete(t *testing.T) {
	ids := TraceIDs{SessionID: "s", QuoteID: "q", RetryID: "r", SourceID: "src"}
	assert.True(t, ids.Complete())

	ids.SourceID = ""
	assert.False(t, ids.Complete())
	assert.False(t, TraceIDs{}.Complete())
}
