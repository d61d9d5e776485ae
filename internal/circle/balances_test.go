package circle

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"savingsCircle/internal/contract"
)

func TestBalancesReadsGoldAndDollar(t *testing.T) {
	dollar := common.HexToAddress("0x00000000000000000000000000000000000000d0")
	resolver := staticResolver{contract.GoldToken: gold, contract.StableToken: dollar}
	values := map[common.Address]*big.Int{
		gold:   new(big.Int).Mul(big.NewInt(15), big.NewInt(1e17)),
		dollar: big.NewInt(3e18),
	}
	b := NewBalances(resolver, func(_ context.Context, token, owner common.Address) (*big.Int, error) {
		if owner != alice {
			return nil, errors.New("unexpected owner " + owner.Hex())
		}
		return values[token], nil
	})

	got, err := b.AccountBalances(context.Background(), alice)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if got.Address != alice.Hex() || got.Gold != "1.5" || got.Dollar != "3" {
		t.Fatalf("unexpected balances: %+v", got)
	}
}

func TestBalancesPropagatesReadError(t *testing.T) {
	resolver := staticResolver{contract.GoldToken: gold}
	b := NewBalances(resolver, func(context.Context, common.Address, common.Address) (*big.Int, error) {
		return big.NewInt(1), nil
	})
	if _, err := b.AccountBalances(context.Background(), alice); err == nil {
		t.Fatalf("expected error for unregistered stable token")
	}

	boom := errors.New("boom")
	resolver[contract.StableToken] = common.HexToAddress("0xd0")
	b = NewBalances(resolver, func(context.Context, common.Address, common.Address) (*big.Int, error) {
		return nil, boom
	})
	if _, err := b.AccountBalances(context.Background(), alice); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
}
