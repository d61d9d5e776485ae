package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestWaitReceiptPollsUntilMined(t *testing.T) {
	hash := common.HexToHash("0x01")
	calls := 0
	fetch := func(ctx context.Context, h common.Hash) (*types.Receipt, error) {
		calls++
		if calls < 3 {
			return nil, ethereum.NotFound
		}
		return &types.Receipt{TxHash: h, Status: types.ReceiptStatusSuccessful}, nil
	}

	receipt, err := waitReceipt(context.Background(), fetch, hash, time.Millisecond, 2*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.TxHash != hash || calls != 3 {
		t.Fatalf("unexpected receipt %v after %d calls", receipt.TxHash, calls)
	}
}

func TestWaitReceiptFailedStatus(t *testing.T) {
	fetch := func(ctx context.Context, h common.Hash) (*types.Receipt, error) {
		return &types.Receipt{TxHash: h, Status: types.ReceiptStatusFailed}, nil
	}

	_, err := waitReceipt(context.Background(), fetch, common.HexToHash("0x02"), time.Millisecond, time.Millisecond)
	if !errors.Is(err, ErrTxFailed) {
		t.Fatalf("expected ErrTxFailed, got %v", err)
	}
}

func TestWaitReceiptDoesNotRetryErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	fetch := func(ctx context.Context, h common.Hash) (*types.Receipt, error) {
		calls++
		return nil, boom
	}

	_, err := waitReceipt(context.Background(), fetch, common.HexToHash("0x03"), time.Millisecond, time.Millisecond)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestWaitReceiptContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(ctx context.Context, h common.Hash) (*types.Receipt, error) {
		cancel()
		return nil, ethereum.NotFound
	}

	_, err := waitReceipt(ctx, fetch, common.HexToHash("0x04"), time.Hour, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
