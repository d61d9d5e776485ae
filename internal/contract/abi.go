package contract

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const savingsCircleABIJSON = `[
  {
    "inputs": [
      {"internalType": "string", "name": "name", "type": "string"},
      {"internalType": "address[]", "name": "members", "type": "address[]"},
      {"internalType": "address", "name": "tokenAddress", "type": "address"},
      {"internalType": "uint256", "name": "depositAmount", "type": "uint256"}
    ],
    "name": "addCircle",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes32", "name": "circleHash", "type": "bytes32"},
      {"internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "contribute",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "circleHash", "type": "bytes32"}],
    "name": "withdraw",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "circleHash", "type": "bytes32"}],
    "name": "withdrawable",
    "outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "circleHash", "type": "bytes32"}],
    "name": "circleMembers",
    "outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "member", "type": "address"}],
    "name": "circlesFor",
    "outputs": [{"internalType": "bytes32[]", "name": "", "type": "bytes32[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "circleHash", "type": "bytes32"}],
    "name": "circleInfo",
    "outputs": [
      {"internalType": "string", "name": "name", "type": "string"},
      {"internalType": "address[]", "name": "members", "type": "address[]"},
      {"internalType": "address", "name": "tokenAddress", "type": "address"},
      {"internalType": "uint256", "name": "depositAmount", "type": "uint256"},
      {"internalType": "uint256", "name": "timestamp", "type": "uint256"},
      {"internalType": "uint256", "name": "currentIndex", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "circleHash", "type": "bytes32"}],
    "name": "balancesForCircle",
    "outputs": [
      {"internalType": "address[]", "name": "members", "type": "address[]"},
      {"internalType": "uint256[]", "name": "balances", "type": "uint256[]"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const erc20ABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "spender", "type": "address"},
      {"internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "approve",
    "outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "owner", "type": "address"}],
    "name": "balanceOf",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const registryABIJSON = `[
  {
    "inputs": [{"internalType": "string", "name": "identifier", "type": "string"}],
    "name": "getAddressForString",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	savingsCircleABI     abi.ABI
	savingsCircleABIOnce sync.Once
	savingsCircleABIErr  error
	erc20ABI             abi.ABI
	erc20ABIOnce         sync.Once
	erc20ABIErr          error
	registryABI          abi.ABI
	registryABIOnce      sync.Once
	registryABIErr       error
)

// SavingsCircleABI returns the parsed savings circle ABI.
func SavingsCircleABI() (abi.ABI, error) {
	savingsCircleABIOnce.Do(func() {
		savingsCircleABI, savingsCircleABIErr = abi.JSON(strings.NewReader(savingsCircleABIJSON))
	})
	return savingsCircleABI, savingsCircleABIErr
}

// ERC20ABI returns the parsed subset of ERC20 used for approvals and balances.
func ERC20ABI() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

// RegistryABI returns the parsed core contract registry ABI.
func RegistryABI() (abi.ABI, error) {
	registryABIOnce.Do(func() {
		registryABI, registryABIErr = abi.JSON(strings.NewReader(registryABIJSON))
	})
	return registryABI, registryABIErr
}
