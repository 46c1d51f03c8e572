package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxState is the lifecycle position of a zap submission. The approval branch
// is entered only when the winning quote requires an allowance.
type TxState string

const (
	TxIdle               TxState = "idle"
	TxNeedsApproval      TxState = "needs_approval"
	TxApproving          TxState = "approving"
	TxApprovalConfirming TxState = "approval_confirming"
	TxReadyToSubmit      TxState = "ready_to_submit"
	TxSubmitting         TxState = "submitting"
	TxMining             TxState = "mining"
	TxSettledSuccess     TxState = "settled_success"
	TxSettledReverted    TxState = "settled_reverted"
)

// Settled reports whether the state is terminal.
func (s TxState) Settled() bool {
	return s == TxSettledSuccess || s == TxSettledReverted
}

// TxRequest is an unsigned call handed to the wallet collaborator.
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
	Gas   uint64
}

// TxReceipt is the minimal receipt surface the executor needs.
type TxReceipt struct {
	TxHash      common.Hash
	Success     bool
	BlockNumber uint64
	GasUsed     uint64
}

// ChainReader is the read side of the chain-interaction collaborator:
// gas estimation, call simulation, and receipt polling.
type ChainReader interface {
	ChainID() uint64
	EstimateGas(ctx context.Context, from common.Address, req TxRequest) (uint64, error)
	Simulate(ctx context.Context, from common.Address, req TxRequest) error
	WaitReceipt(ctx context.Context, hash common.Hash) (*TxReceipt, error)
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// Wallet is the external wallet-connection collaborator. Signing and
// broadcast happen on the other side of this interface.
type Wallet interface {
	Address() common.Address
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
}
