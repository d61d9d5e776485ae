package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"savingsCircle/internal/model"
)

// SavingsCircle is a typed binding for the savings circle contract.
type SavingsCircle struct {
	address common.Address
	caller  Caller
	abi     abi.ABI
}

// circleInfoOutput mirrors the named outputs of circleInfo.
type circleInfoOutput struct {
	Name          string
	Members       []common.Address
	TokenAddress  common.Address
	DepositAmount *big.Int
	Timestamp     *big.Int
	CurrentIndex  *big.Int
}

// balancesOutput mirrors the named outputs of balancesForCircle.
type balancesOutput struct {
	Members  []common.Address
	Balances []*big.Int
}

// NewSavingsCircle binds the contract deployed at address.
func NewSavingsCircle(address common.Address, caller Caller) (*SavingsCircle, error) {
	parsed, err := SavingsCircleABI()
	if err != nil {
		return nil, fmt.Errorf("parse savings circle abi: %w", err)
	}
	return &SavingsCircle{address: address, caller: caller, abi: parsed}, nil
}

// Address returns the contract address.
func (s *SavingsCircle) Address() common.Address {
	return s.address
}

// CirclesFor lists the circles the member belongs to, in contract order.
func (s *SavingsCircle) CirclesFor(ctx context.Context, member common.Address) ([]common.Hash, error) {
	value, err := callSingle(ctx, s.caller, s.address, s.abi, "circlesFor", member)
	if err != nil {
		return nil, err
	}
	hashes, err := asHashes(value)
	if err != nil {
		return nil, fmt.Errorf("circlesFor: %w", err)
	}
	return hashes, nil
}

// CircleInfo reads circle metadata.
func (s *SavingsCircle) CircleInfo(ctx context.Context, circleHash common.Hash) (model.RawCircleInfo, error) {
	var out circleInfoOutput
	if err := callInto(ctx, s.caller, s.address, s.abi, &out, "circleInfo", circleHash); err != nil {
		return model.RawCircleInfo{}, err
	}
	if out.DepositAmount == nil || out.Timestamp == nil || out.CurrentIndex == nil {
		return model.RawCircleInfo{}, fmt.Errorf("circleInfo: missing numeric output")
	}
	return model.RawCircleInfo{
		Name:          out.Name,
		Members:       out.Members,
		TokenAddress:  out.TokenAddress,
		DepositAmount: out.DepositAmount,
		Timestamp:     out.Timestamp.String(),
		CurrentIndex:  out.CurrentIndex.String(),
	}, nil
}

// BalancesForCircle reads the parallel member and balance arrays.
func (s *SavingsCircle) BalancesForCircle(ctx context.Context, circleHash common.Hash) (model.CircleBalances, error) {
	var out balancesOutput
	if err := callInto(ctx, s.caller, s.address, s.abi, &out, "balancesForCircle", circleHash); err != nil {
		return model.CircleBalances{}, err
	}
	if len(out.Members) != len(out.Balances) {
		return model.CircleBalances{}, fmt.Errorf("balancesForCircle: %d members but %d balances", len(out.Members), len(out.Balances))
	}
	return model.CircleBalances{Addresses: out.Members, Balances: out.Balances}, nil
}

// Withdrawable reports whether the current recipient may withdraw now.
func (s *SavingsCircle) Withdrawable(ctx context.Context, circleHash common.Hash) (bool, error) {
	value, err := callSingle(ctx, s.caller, s.address, s.abi, "withdrawable", circleHash)
	if err != nil {
		return false, err
	}
	ok, isBool := value.(bool)
	if !isBool {
		return false, fmt.Errorf("withdrawable: unsupported type %T", value)
	}
	return ok, nil
}

// CircleMembers reads the member list of a circle.
func (s *SavingsCircle) CircleMembers(ctx context.Context, circleHash common.Hash) ([]common.Address, error) {
	value, err := callSingle(ctx, s.caller, s.address, s.abi, "circleMembers", circleHash)
	if err != nil {
		return nil, err
	}
	members, err := asAddresses(value)
	if err != nil {
		return nil, fmt.Errorf("circleMembers: %w", err)
	}
	return members, nil
}

// PackAddCircle encodes addCircle(name, members, token, deposit).
func (s *SavingsCircle) PackAddCircle(name string, members []common.Address, token common.Address, deposit *big.Int) ([]byte, error) {
	data, err := s.abi.Pack("addCircle", name, members, token, deposit)
	if err != nil {
		return nil, fmt.Errorf("pack addCircle: %w", err)
	}
	return data, nil
}

// PackContribute encodes contribute(circleHash, value).
func (s *SavingsCircle) PackContribute(circleHash common.Hash, value *big.Int) ([]byte, error) {
	data, err := s.abi.Pack("contribute", circleHash, value)
	if err != nil {
		return nil, fmt.Errorf("pack contribute: %w", err)
	}
	return data, nil
}

// PackWithdraw encodes withdraw(circleHash).
func (s *SavingsCircle) PackWithdraw(circleHash common.Hash) ([]byte, error) {
	data, err := s.abi.Pack("withdraw", circleHash)
	if err != nil {
		return nil, fmt.Errorf("pack withdraw: %w", err)
	}
	return data, nil
}
