package widget

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtflabs/zapper/internal/domain"
	"github.com/dtflabs/zapper/internal/state"
	"github.com/dtflabs/zapper/internal/trace"
)

func testStore() *state.Store {
	dtf := domain.Token{Address: common.HexToAddress("0x4444444444444444444444444444444444444444"), Symbol: "DTF", Decimals: 18}
	return state.NewStore(domain.ChainMainnet, "https://api.reserve.org/", dtf, domain.SourceBest)
}

func TestInlineModeActivatesOnMount(t *testing.T) {
	tr := trace.NewTracker()
	c := NewController(ModeInline, testStore(), tr, nil)

	assert.True(t, c.IsOpen())
	assert.NotEmpty(t, tr.Current().SessionID)
}

func TestModalOpenStartsFreshSession(t *testing.T) {
	tr := trace.NewTracker()
	st := testStore()
	c := NewController(ModeModal, st, tr, nil)

	require.False(t, c.IsOpen())
	assert.Empty(t, tr.Current().SessionID)

	c.Open()
	require.True(t, c.IsOpen())
	first := tr.Current().SessionID
	require.NotEmpty(t, first)

	// Re-opening while open changes nothing.
	c.Open()
	assert.Equal(t, first, tr.Current().SessionID)

	// Close keeps the session; the next open rotates it.
	c.Close()
	assert.False(t, c.IsOpen())
	assert.Equal(t, first, tr.Current().SessionID)

	c.Open()
	assert.NotEqual(t, first, tr.Current().SessionID)
}

func TestInlineOpenCloseAreNoops(t *testing.T) {
	tr := trace.NewTracker()
	c := NewController(ModeInline, testStore(), tr, nil)
	session := tr.Current().SessionID

	c.Open()
	c.Close()
	assert.True(t, c.IsOpen())
	assert.Equal(t, session, tr.Current().SessionID)
}

func TestToggle(t *testing.T) {
	c := NewController(ModeModal, testStore(), trace.NewTracker(), nil)

	c.Toggle()
	assert.True(t, c.IsOpen())
	c.Toggle()
	assert.False(t, c.IsOpen())
}

func TestSetTabValidates(t *testing.T) {
	c := NewController(ModeModal, testStore(), trace.NewTracker(), nil)

	require.Equal(t, domain.TabBuy, c.CurrentTab())
	c.SetTab(domain.TabSell)
	assert.Equal(t, domain.TabSell, c.CurrentTab())

	c.SetTab("sideways")
	assert.Equal(t, domain.TabSell, c.CurrentTab())
}
