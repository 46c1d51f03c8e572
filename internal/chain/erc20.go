package chain

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dtflabs/zapper/internal/domain"
)

const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

var (
	erc20Once   sync.Once
	erc20Parsed abi.ABI
	erc20Err    error
)

func erc20() (abi.ABI, error) {
	erc20Once.Do(func() {
		erc20Parsed, erc20Err = abi.JSON(strings.NewReader(erc20ABI))
	})
	return erc20Parsed, erc20Err
}

// ApprovalAmount returns the allowance to request for an approval of
// amount, padded by headroomPct. The pad absorbs quote drift between
// approval and submission.
func ApprovalAmount(amount *big.Int, headroomPct uint64) *big.Int {
	padded := new(big.Int).Mul(amount, new(big.Int).SetUint64(headroomPct))
	return padded.Div(padded, big.NewInt(100))
}

// PackApprove builds the approve(spender, amount) calldata.
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := erc20()
	if err != nil {
		return nil, fmt.Errorf("chain: parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("chain: pack approve: %w", err)
	}
	return data, nil
}

// PackBalanceOf builds the balanceOf(owner) calldata.
func PackBalanceOf(owner common.Address) ([]byte, error) {
	parsed, err := erc20()
	if err != nil {
		return nil, fmt.Errorf("chain: parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("chain: pack balanceOf: %w", err)
	}
	return data, nil
}

// UnpackBalance decodes the uint256 return of balanceOf or allowance.
func UnpackBalance(out []byte) (*big.Int, error) {
	parsed, err := erc20()
	if err != nil {
		return nil, fmt.Errorf("chain: parse erc20 abi: %w", err)
	}
	vals, err := parsed.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack balance: %w", err)
	}
	bal, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: unexpected balance type %T", vals[0])
	}
	return bal, nil
}

// ApproveRequest builds the full approval transaction for a quote that
// reported an allowance shortfall.
func ApproveRequest(token, spender common.Address, amount *big.Int, headroomPct uint64) (domain.TxRequest, error) {
	data, err := PackApprove(spender, ApprovalAmount(amount, headroomPct))
	if err != nil {
		return domain.TxRequest{}, err
	}
	return domain.TxRequest{
		To:    token,
		Data:  data,
		Value: big.NewInt(0),
	}, nil
}
