package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalAmount(t *testing.T) {
	got := ApprovalAmount(big.NewInt(1000000), 120)
	assert.Equal(t, "1200000", got.String())

	got = ApprovalAmount(big.NewInt(1), 120)
	assert.Equal(t, "1", got.String()) // integer division floors

	got = ApprovalAmount(big.NewInt(500), 100)
	assert.Equal(t, "500", got.String())
}

func TestPackApprove(t *testing.T) {
	spender := common.HexToAddress("0x6666666666666666666666666666666666666666")
	data, err := PackApprove(spender, big.NewInt(1200000))
	require.NoError(t, err)
	require.Len(t, data, 4+32+32)

	assert.Equal(t, []byte{0x09, 0x5e, 0xa7, 0xb3}, data[:4])
	assert.Equal(t, spender.Bytes(), data[4+12:4+32])
	assert.Equal(t, "1200000", new(big.Int).SetBytes(data[4+32:]).String())
}

func TestBalanceRoundTrip(t *testing.T) {
	owner := common.HexToAddress("0x3333333333333333333333333333333333333333")
	data, err := PackBalanceOf(owner)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, data[:4])

	ret := common.LeftPadBytes(big.NewInt(987654321).Bytes(), 32)
	bal, err := UnpackBalance(ret)
	require.NoError(t, err)
	assert.Equal(t, "987654321", bal.String())
}

func TestApproveRequest(t *testing.T) {
	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender := common.HexToAddress("0x6666666666666666666666666666666666666666")

	req, err := ApproveRequest(token, spender, big.NewInt(1000000), 120)
	require.NoError(t, err)
	assert.Equal(t, token, req.To)
	assert.Equal(t, "0", req.Value.String())
	assert.Equal(t, "1200000", new(big.Int).SetBytes(req.Data[len(req.Data)-32:]).String())
}
