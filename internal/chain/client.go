// Package chain implements on-chain reads over an EVM JSON-RPC endpoint:
// gas estimation, call simulation, balance lookups, and receipt polling.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/dtflabs/zapper/internal/domain"
)

// Client wraps an ethclient connection and implements domain.ChainReader.
type Client struct {
	eth         *ethclient.Client
	chainID     uint64
	logger      *slog.Logger
	pollEvery   time.Duration
	pollTimeout time.Duration
}

func NewClient(ctx context.Context, rpcURL string, pollEvery, pollTimeout time.Duration, logger *slog.Logger) (*Client, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial rpc: %w", err)
	}
	id, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: fetch chain id: %w", err)
	}
	return &Client{
		eth:         eth,
		chainID:     id.Uint64(),
		logger:      logger.With(slog.String("component", "chain")),
		pollEvery:   pollEvery,
		pollTimeout: pollTimeout,
	}, nil
}

func (c *Client) Close() { c.eth.Close() }

func (c *Client) ChainID() uint64 { return c.chainID }

func (c *Client) callMsg(from common.Address, req domain.TxRequest) ethereum.CallMsg {
	return ethereum.CallMsg{
		From:  from,
		To:    &req.To,
		Data:  req.Data,
		Value: req.Value,
	}
}

// EstimateGas estimates the call, which doubles as a revert check before
// a transaction is offered to the wallet.
func (c *Client) EstimateGas(ctx context.Context, from common.Address, req domain.TxRequest) (uint64, error) {
	gas, err := c.eth.EstimateGas(ctx, c.callMsg(from, req))
	if err != nil {
		return 0, fmt.Errorf("chain: estimate gas: %w", err)
	}
	return gas, nil
}

// Simulate performs an eth_call of the transaction at the latest block.
// A non-nil error means the call would revert with the current state.
func (c *Client) Simulate(ctx context.Context, from common.Address, req domain.TxRequest) error {
	if _, err := c.eth.CallContract(ctx, c.callMsg(from, req), nil); err != nil {
		return fmt.Errorf("chain: simulate call: %w", err)
	}
	return nil
}

// WaitReceipt polls until the transaction is mined or the poll timeout
// elapses.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash) (*domain.TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return &domain.TxReceipt{
				TxHash:      receipt.TxHash,
				Success:     receipt.Status == 1,
				BlockNumber: receipt.BlockNumber.Uint64(),
				GasUsed:     receipt.GasUsed,
			}, nil
		}
		if err != ethereum.NotFound {
			c.logger.Debug("receipt poll", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("chain: wait receipt %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// BalanceOf returns the owner's balance of the token, reading the chain
// balance directly when the token is the native placeholder.
func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if domain.IsNative(token) {
		bal, err := c.eth.BalanceAt(ctx, owner, nil)
		if err != nil {
			return nil, fmt.Errorf("chain: native balance: %w", err)
		}
		return bal, nil
	}

	data, err := PackBalanceOf(owner)
	if err != nil {
		return nil, err
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: balanceOf call: %w", err)
	}
	return UnpackBalance(out)
}
