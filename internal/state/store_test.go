package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtflabs/zapper/internal/domain"
)

func testDTF() domain.Token {
	return domain.Token{
		Address:  common.HexToAddress("0x4444444444444444444444444444444444444444"),
		Symbol:   "DTF",
		Name:     "Test Index",
		Decimals: 18,
	}
}

func TestSetChainIDResetsSelection(t *testing.T) {
	s := NewStore(domain.ChainMainnet, "https://api.reserve.org/", testDTF(), domain.SourceBest)

	usdc := domain.ZappableTokens[domain.ChainMainnet][2]
	s.SelectedToken.Set(&usdc)
	require.Equal(t, usdc, s.SelectedOrDefault())

	s.SetChainID(domain.ChainBase)
	assert.Nil(t, s.SelectedToken.Get())
	assert.Equal(t, domain.DefaultToken(domain.ChainBase), s.SelectedOrDefault())
}

func TestSetChainIDNoopOnSameChain(t *testing.T) {
	s := NewStore(domain.ChainMainnet, "https://api.reserve.org/", testDTF(), domain.SourceBest)

	usdc := domain.ZappableTokens[domain.ChainMainnet][2]
	s.SelectedToken.Set(&usdc)

	s.SetChainID(domain.ChainMainnet)
	assert.NotNil(t, s.SelectedToken.Get())
}

func TestTokenInOutPerTab(t *testing.T) {
	dtf := testDTF()
	s := NewStore(domain.ChainMainnet, "https://api.reserve.org/", dtf, domain.SourceBest)

	// Buying: payment token in, DTF shares out.
	require.Equal(t, domain.TabBuy, s.Tab.Get())
	assert.Equal(t, s.SelectedOrDefault(), s.TokenIn())
	assert.Equal(t, dtf, s.TokenOut())

	// Selling: DTF shares in, payment token out.
	s.Tab.Set(domain.TabSell)
	assert.Equal(t, dtf, s.TokenIn())
	assert.Equal(t, s.SelectedOrDefault(), s.TokenOut())
}

func TestSlippageBps(t *testing.T) {
	s := NewStore(domain.ChainMainnet, "https://api.reserve.org/", testDTF(), domain.SourceBest)
	assert.Equal(t, uint64(100), s.SlippageBps())

	s.Slippage.Set("250")
	assert.Equal(t, uint64(250), s.SlippageBps())

	s.Slippage.Set("garbage")
	assert.Equal(t, uint64(100), s.SlippageBps())

	s.Slippage.Set("0")
	assert.Equal(t, uint64(100), s.SlippageBps())
}

func TestAmountInUnits(t *testing.T) {
	s := NewStore(domain.ChainMainnet, "https://api.reserve.org/", testDTF(), domain.SourceBest)

	_, ok := s.AmountInUnits()
	assert.False(t, ok)

	s.InputAmount.Set("1000000000000000000")
	got, ok := s.AmountInUnits()
	require.True(t, ok)
	assert.Equal(t, "1000000000000000000", got)

	s.InputAmount.Set("0")
	_, ok = s.AmountInUnits()
	assert.False(t, ok)

	s.InputAmount.Set("1.5")
	_, ok = s.AmountInUnits()
	assert.False(t, ok)
}

func TestResetAcks(t *testing.T) {
	s := NewStore(domain.ChainMainnet, "https://api.reserve.org/", testDTF(), domain.SourceBest)
	s.PriceImpactAck.Set(true)
	s.DustAck.Set(true)

	s.ResetAcks()
	assert.False(t, s.PriceImpactAck.Get())
	assert.False(t, s.DustAck.Get())
}
