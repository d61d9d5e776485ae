package circle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"savingsCircle/internal/amount"
	"savingsCircle/internal/contract"
	"savingsCircle/internal/model"
	"savingsCircle/internal/wallet"
)

// TokenBalancer reads an ERC20 balance of the token at address.
type TokenBalancer func(ctx context.Context, token, owner common.Address) (*big.Int, error)

// Balances reads the account's gold and dollar balances.
type Balances struct {
	registry wallet.AddressResolver
	balance  TokenBalancer
}

func NewBalances(registry wallet.AddressResolver, balance TokenBalancer) *Balances {
	return &Balances{registry: registry, balance: balance}
}

// ContractBalancer reads balances through a contract.Token bound to caller.
func ContractBalancer(caller contract.Caller) TokenBalancer {
	return func(ctx context.Context, token, owner common.Address) (*big.Int, error) {
		t, err := contract.NewToken(token, caller)
		if err != nil {
			return nil, err
		}
		return t.BalanceOf(ctx, owner)
	}
}

func (b *Balances) AccountBalances(ctx context.Context, owner common.Address) (model.AccountBalances, error) {
	var gold, dollar *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := b.tokenBalance(gctx, contract.GoldToken, owner)
		gold = v
		return err
	})
	g.Go(func() error {
		v, err := b.tokenBalance(gctx, contract.StableToken, owner)
		dollar = v
		return err
	})
	if err := g.Wait(); err != nil {
		return model.AccountBalances{}, err
	}
	return model.AccountBalances{
		Address: owner.Hex(),
		Gold:    amount.ToDisplay(gold),
		Dollar:  amount.ToDisplay(dollar),
	}, nil
}

func (b *Balances) tokenBalance(ctx context.Context, name string, owner common.Address) (*big.Int, error) {
	token, err := b.registry.AddressFor(ctx, name)
	if err != nil {
		return nil, err
	}
	v, err := b.balance(ctx, token, owner)
	if err != nil {
		return nil, fmt.Errorf("read %s balance: %w", name, err)
	}
	return v, nil
}
