package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RawCircleInfo maps the named outputs of circleInfo(bytes32).
// Timestamp and CurrentIndex keep their decimal encodings; they are parsed by the deserializer.
type RawCircleInfo struct {
	Name          string
	Members       []common.Address
	TokenAddress  common.Address
	DepositAmount *big.Int
	Timestamp     string
	CurrentIndex  string
}

// CircleBalances maps the two parallel outputs of balancesForCircle(bytes32).
type CircleBalances struct {
	Addresses []common.Address
	Balances  []*big.Int
}
