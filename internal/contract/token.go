package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Token is a minimal ERC20 binding.
type Token struct {
	address common.Address
	caller  Caller
	abi     abi.ABI
}

func NewToken(address common.Address, caller Caller) (*Token, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &Token{address: address, caller: caller, abi: parsed}, nil
}

func (t *Token) Address() common.Address {
	return t.address
}

// PackApprove encodes approve(spender, value).
func (t *Token) PackApprove(spender common.Address, value *big.Int) ([]byte, error) {
	data, err := t.abi.Pack("approve", spender, value)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}
	return data, nil
}

// BalanceOf returns the owner's balance in base units.
func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	value, err := callSingle(ctx, t.caller, t.address, t.abi, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	balance, err := asBigInt(value)
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	return balance, nil
}
