// Package contracttest provides an in-memory contract caller for tests.
package contracttest

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"savingsCircle/internal/contract"
)

// Handler answers one contract method. It receives the decoded inputs and returns
// the values to ABI-encode as outputs.
type Handler func(to common.Address, args []interface{}) ([]interface{}, error)

// Caller dispatches eth_call messages to handlers by method selector.
type Caller struct {
	mu       sync.Mutex
	abis     []abi.ABI
	handlers map[string]Handler
	calls    map[string]int
}

// NewCaller builds a Caller that knows every ABI in the contract package.
func NewCaller() *Caller {
	c := &Caller{
		handlers: make(map[string]Handler),
		calls:    make(map[string]int),
	}
	for _, load := range []func() (abi.ABI, error){contract.SavingsCircleABI, contract.ERC20ABI, contract.RegistryABI} {
		parsed, err := load()
		if err != nil {
			panic(err)
		}
		c.abis = append(c.abis, parsed)
	}
	return c
}

// Handle registers a handler for method.
func (c *Caller) Handle(method string, h Handler) {
	c.mu.Lock()
	c.handlers[method] = h
	c.mu.Unlock()
}

// Return registers a handler that always returns values.
func (c *Caller) Return(method string, values ...interface{}) {
	c.Handle(method, func(common.Address, []interface{}) ([]interface{}, error) {
		return values, nil
	})
}

// Calls returns how many times method was called.
func (c *Caller) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// CallContract implements contract.Caller.
func (c *Caller) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if len(msg.Data) < 4 || msg.To == nil {
		return nil, fmt.Errorf("malformed call")
	}
	method, err := c.lookup(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s inputs: %w", method.Name, err)
	}

	c.mu.Lock()
	c.calls[method.Name]++
	h := c.handlers[method.Name]
	c.mu.Unlock()
	if h == nil {
		return nil, fmt.Errorf("no handler for %s", method.Name)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values, err := h(*msg.To, args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(values...)
}

func (c *Caller) lookup(selector []byte) (*abi.Method, error) {
	for _, parsed := range c.abis {
		for _, m := range parsed.Methods {
			if bytes.Equal(m.ID, selector) {
				method := m
				return &method, nil
			}
		}
	}
	return nil, fmt.Errorf("unknown selector %x", selector)
}
