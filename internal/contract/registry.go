package contract

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Core contract identifiers known to the registry.
const (
	GoldToken   = "GoldToken"
	StableToken = "StableToken"
)

// DefaultRegistryAddress is the registry's fixed address on Celo networks.
var DefaultRegistryAddress = common.HexToAddress("0x000000000000000000000000000000000000ce10")

// Registry resolves core contract addresses by name and caches the results.
type Registry struct {
	address common.Address
	caller  Caller
	abi     abi.ABI

	mu    sync.RWMutex
	cache map[string]common.Address
}

func NewRegistry(address common.Address, caller Caller) (*Registry, error) {
	parsed, err := RegistryABI()
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}
	return &Registry{
		address: address,
		caller:  caller,
		abi:     parsed,
		cache:   make(map[string]common.Address),
	}, nil
}

// AddressFor returns the address registered under name. An unregistered name is an error.
func (r *Registry) AddressFor(ctx context.Context, name string) (common.Address, error) {
	r.mu.RLock()
	addr, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return addr, nil
	}

	value, err := callSingle(ctx, r.caller, r.address, r.abi, "getAddressForString", name)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolve %s: %w", name, err)
	}
	addr, err = asAddress(value)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolve %s: %w", name, err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("resolve %s: not registered", name)
	}

	r.mu.Lock()
	r.cache[name] = addr
	r.mu.Unlock()
	return addr, nil
}
