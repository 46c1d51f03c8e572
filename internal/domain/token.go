package domain

import "github.com/ethereum/go-ethereum/common"

// Token describes an ERC-20 (or the native placeholder) usable as the zap
// input or output.
type Token struct {
	Address  common.Address
	Symbol   string
	Name     string
	Decimals uint8
}

// Supported chain ids.
const (
	ChainMainnet  uint64 = 1
	ChainBase     uint64 = 8453
	ChainArbitrum uint64 = 42161
)

var nativePlaceholder = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// IsNative reports whether the address is the native-asset placeholder
// used in place of a real ERC-20 contract.
func IsNative(addr common.Address) bool {
	return addr == nativePlaceholder
}

// ZappableTokens lists the reduced token set offered per chain. The first
// entry is the chain's default selection.
var ZappableTokens = map[uint64][]Token{
	ChainMainnet: {
		{Address: nativePlaceholder, Symbol: "ETH", Name: "Ether", Decimals: 18},
		{Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},
		{Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Symbol: "USDC", Name: "USDC", Decimals: 6},
	},
	ChainBase: {
		{Address: nativePlaceholder, Symbol: "ETH", Name: "Ether", Decimals: 18},
		{Address: common.HexToAddress("0x4200000000000000000000000000000000000006"), Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},
		{Address: common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), Symbol: "USDC", Name: "USDC", Decimals: 6},
	},
	ChainArbitrum: {
		{Address: nativePlaceholder, Symbol: "ETH", Name: "Ether", Decimals: 18},
		{Address: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},
		{Address: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"), Symbol: "USDC", Name: "USDC", Decimals: 6},
	},
}

// DefaultToken returns the default zap input token for a chain. Unknown
// chains fall back to the Mainnet table.
func DefaultToken(chainID uint64) Token {
	if list, ok := ZappableTokens[chainID]; ok && len(list) > 0 {
		return list[0]
	}
	return ZappableTokens[ChainMainnet][0]
}
