package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Caller performs read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

func callMethod(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]byte, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return resp, nil
}

func callSingle(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, method string, args ...interface{}) (interface{}, error) {
	resp, err := callMethod(ctx, caller, to, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 output, got %d", method, len(values))
	}
	return values[0], nil
}

func callInto(ctx context.Context, caller Caller, to common.Address, parsed abi.ABI, out interface{}, method string, args ...interface{}) error {
	resp, err := callMethod(ctx, caller, to, parsed, method, args...)
	if err != nil {
		return err
	}
	if err := parsed.UnpackIntoInterface(out, method, resp); err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asAddresses(value interface{}) ([]common.Address, error) {
	switch v := value.(type) {
	case []common.Address:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported address list type %T", value)
	}
}

func asHashes(value interface{}) ([]common.Hash, error) {
	switch v := value.(type) {
	case [][32]byte:
		out := make([]common.Hash, len(v))
		for i, h := range v {
			out[i] = common.Hash(h)
		}
		return out, nil
	case []common.Hash:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported bytes32 list type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
