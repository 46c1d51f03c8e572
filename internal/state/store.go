package state

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dtflabs/zapper/internal/domain"
)

// Store groups every shared state cell the widget components coordinate
// through. Each cell has a single writer role; updater components write,
// UI-facing readers subscribe. Derived values (default token, effective
// selection, tokenIn/tokenOut) are pure functions over base cells so they
// are recomputed on every dependency change.
type Store struct {
	// Environment
	ChainID *Cell[uint64]
	Wallet  *Cell[common.Address]
	APIURL  *Cell[string]
	DTF     *Cell[domain.Token] // DTF share token; Address is the DTF id

	// User inputs
	SelectedToken *Cell[*domain.Token] // nil means "use chain default"
	InputAmount   *Cell[string]        // raw user string, parsed lazily
	Slippage      *Cell[string]        // basis points, raw string
	Tab           *Cell[domain.Tab]
	ForceMint     *Cell[bool]
	QuoteSource   *Cell[domain.Source]
	Debug         *Cell[bool]

	// Widget lifecycle
	ModalOpen *Cell[bool]

	// In-flight coordination
	Fetching  *Cell[bool]
	OngoingTx *Cell[bool]

	// Diagnostics: last primary request URL, for the copy-to-clipboard
	// bundle and error reports.
	Endpoint *Cell[string]

	// Warning gates
	PriceImpactAck  *Cell[bool]
	DustAck         *Cell[bool]
	HighPriceImpact *Cell[bool]
	HighDust        *Cell[bool]
}

// NewStore creates a Store with the given environment defaults.
func NewStore(chainID uint64, apiURL string, dtf domain.Token, defaultSource domain.Source) *Store {
	return &Store{
		ChainID:         NewCell(chainID),
		Wallet:          NewCell(common.Address{}),
		APIURL:          NewCell(apiURL),
		DTF:             NewCell(dtf),
		SelectedToken:   NewCell[*domain.Token](nil),
		InputAmount:     NewCell(""),
		Slippage:        NewCell("100"),
		Tab:             NewCell(domain.TabBuy),
		ForceMint:       NewCell(false),
		QuoteSource:     NewCell(defaultSource),
		Debug:           NewCell(false),
		ModalOpen:       NewCell(false),
		Fetching:        NewCell(false),
		OngoingTx:       NewCell(false),
		Endpoint:        NewCell(""),
		PriceImpactAck:  NewCell(false),
		DustAck:         NewCell(false),
		HighPriceImpact: NewCell(false),
		HighDust:        NewCell(false),
	}
}

// SetChainID is the single entry point for chain switches. It resets the
// token selection to the new chain's default in the same update so no
// selection from the previous chain can survive the switch.
func (s *Store) SetChainID(chainID uint64) {
	if s.ChainID.Get() == chainID {
		return
	}
	s.SelectedToken.Set(nil)
	s.ChainID.Set(chainID)
}

// DefaultToken is the chain-derived default selection.
func (s *Store) DefaultToken() domain.Token {
	return domain.DefaultToken(s.ChainID.Get())
}

// SelectedOrDefault is the effective token selection.
func (s *Store) SelectedOrDefault() domain.Token {
	if t := s.SelectedToken.Get(); t != nil {
		return *t
	}
	return s.DefaultToken()
}

// TokenIn derives the swap input token from the active tab: the selected
// token when buying DTF shares, the DTF share token when selling.
func (s *Store) TokenIn() domain.Token {
	if s.Tab.Get() == domain.TabBuy {
		return s.SelectedOrDefault()
	}
	return s.DTF.Get()
}

// TokenOut derives the swap output token from the active tab.
func (s *Store) TokenOut() domain.Token {
	if s.Tab.Get() == domain.TabBuy {
		return s.DTF.Get()
	}
	return s.SelectedOrDefault()
}

// SlippageBps parses the raw slippage cell, falling back to the default
// 100 bps on garbage input.
func (s *Store) SlippageBps() uint64 {
	n, err := strconv.ParseUint(s.Slippage.Get(), 10, 64)
	if err != nil || n == 0 {
		return 100
	}
	return n
}

// AmountInUnits parses the raw input amount as an integer string in base
// units. The bool is false for absent, non-numeric, or zero amounts.
func (s *Store) AmountInUnits() (string, bool) {
	raw := s.InputAmount.Get()
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok || n.Sign() == 0 {
		return "", false
	}
	return n.String(), true
}

// ResetAcks clears both warning acknowledgements. Called whenever the
// active quote identity changes so a stale acknowledgement never gates a
// new quote.
func (s *Store) ResetAcks() {
	s.PriceImpactAck.Set(false)
	s.DustAck.Set(false)
}
