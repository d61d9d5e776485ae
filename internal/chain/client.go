package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrTxFailed is returned when a mined transaction reports a failed status.
var ErrTxFailed = errors.New("transaction failed")

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	pollInterval    time.Duration
	maxPollInterval time.Duration
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient:       rpcClient,
		ethClient:       ethclient.NewClient(rpcClient),
		pollInterval:    time.Second,
		maxPollInterval: 8 * time.Second,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// CallContract performs an eth_call against the latest block when blockNumber is nil.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// PendingNonceAt returns the next nonce for the account including pending transactions.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.ethClient.PendingNonceAt(ctx, account)
}

// EstimateGas runs eth_estimateGas for the message.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.ethClient.EstimateGas(ctx, msg)
}

// SendRawTransaction broadcasts an externally signed transaction as-is.
// The payload is not decoded locally, so wallet-specific envelopes pass through untouched.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	if err := c.rpcClient.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// TransactionReceipt returns the receipt or ethereum.NotFound while the tx is pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return c.ethClient.TransactionReceipt(ctx, hash)
}

// WaitReceipt polls until the transaction is mined. A reverted transaction yields ErrTxFailed.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return waitReceipt(ctx, c.TransactionReceipt, hash, c.pollInterval, c.maxPollInterval)
}

type receiptFunc func(ctx context.Context, hash common.Hash) (*types.Receipt, error)

func waitReceipt(ctx context.Context, fetch receiptFunc, hash common.Hash, baseDelay, maxDelay time.Duration) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := pollUntil(ctx, baseDelay, maxDelay, func(ctx context.Context) (bool, error) {
		r, err := fetch(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}
		receipt = r
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTxFailed, hash.Hex())
	}
	return receipt, nil
}
