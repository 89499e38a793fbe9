package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// OrderClass distinguishes the contract-level order variants. Each class
// carries the two values the pipeline needs per kind: the gas-limit table key
// and the on-chain order type.
type OrderClass int

const (
	ClassIncrease OrderClass = iota + 1
	ClassDecrease
	ClassSwap
)

// Venue order type constants as the contracts define them.
const (
	orderTypeMarketSwap     uint8 = 0
	orderTypeMarketIncrease uint8 = 2
	orderTypeMarketDecrease uint8 = 4
)

// GasLimitKey names this class's entry in the on-chain gas-limit table.
func (c OrderClass) GasLimitKey() string {
	switch c {
	case ClassIncrease:
		return "increaseOrderGasLimit"
	case ClassDecrease:
		return "decreaseOrderGasLimit"
	case ClassSwap:
		return "swapOrderGasLimit"
	}
	return ""
}

func (c OrderClass) orderType() uint8 {
	switch c {
	case ClassIncrease:
		return orderTypeMarketIncrease
	case ClassDecrease:
		return orderTypeMarketDecrease
	default:
		return orderTypeMarketSwap
	}
}

func (c OrderClass) String() string {
	switch c {
	case ClassIncrease:
		return "increase_order"
	case ClassDecrease:
		return "decrease_order"
	case ClassSwap:
		return "swap_order"
	}
	return "unknown"
}

// Addresses is the deployed contract set a gateway talks to on one chain.
type Addresses struct {
	ExchangeRouter   common.Address
	SyntheticsRouter common.Address
	DataStore        common.Address
	OrderVault       common.Address
	WrappedNative    common.Address
}

// CreateOrderAddresses is the address block of the createOrder tuple. Field
// order and names must match the ABI components.
type CreateOrderAddresses struct {
	Receiver               common.Address
	CallbackContract       common.Address
	UiFeeReceiver          common.Address
	Market                 common.Address
	InitialCollateralToken common.Address
	SwapPath               []common.Address
}

// CreateOrderNumbers is the numeric block of the createOrder tuple.
type CreateOrderNumbers struct {
	SizeDeltaUsd                 *big.Int
	InitialCollateralDeltaAmount *big.Int
	TriggerPrice                 *big.Int
	AcceptablePrice              *big.Int
	ExecutionFee                 *big.Int
	CallbackGasLimit             *big.Int
	MinOutputAmount              *big.Int
}

// CreateOrderParams mirrors the router's createOrder argument struct.
type CreateOrderParams struct {
	Addresses                CreateOrderAddresses
	Numbers                  CreateOrderNumbers
	OrderType                uint8
	DecreasePositionSwapType uint8
	IsLong                   bool
	ShouldUnwrapNativeToken  bool
	ReferralCode             [32]byte
}

// ERC20 ABI for the balance, allowance and approval surface.
const erc20ABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "spender", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"type": "function"
	}
]`

// DataStore ABI for the on-chain configuration store the gas-limit table
// lives in.
const dataStoreABIJSON = `[
	{
		"inputs": [{"name": "key", "type": "bytes32"}],
		"name": "getUint",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ExchangeRouter ABI: the multicall entry point plus the calls batched
// inside it.
const exchangeRouterABIJSON = `[
	{
		"inputs": [{"name": "data", "type": "bytes[]"}],
		"name": "multicall",
		"outputs": [{"name": "results", "type": "bytes[]"}],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "receiver", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "sendWnt",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "token", "type": "address"},
			{"name": "receiver", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "sendTokens",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"components": [
					{
						"components": [
							{"name": "receiver", "type": "address"},
							{"name": "callbackContract", "type": "address"},
							{"name": "uiFeeReceiver", "type": "address"},
							{"name": "market", "type": "address"},
							{"name": "initialCollateralToken", "type": "address"},
							{"name": "swapPath", "type": "address[]"}
						],
						"name": "addresses",
						"type": "tuple"
					},
					{
						"components": [
							{"name": "sizeDeltaUsd", "type": "uint256"},
							{"name": "initialCollateralDeltaAmount", "type": "uint256"},
							{"name": "triggerPrice", "type": "uint256"},
							{"name": "acceptablePrice", "type": "uint256"},
							{"name": "executionFee", "type": "uint256"},
							{"name": "callbackGasLimit", "type": "uint256"},
							{"name": "minOutputAmount", "type": "uint256"}
						],
						"name": "numbers",
						"type": "tuple"
					},
					{"name": "orderType", "type": "uint8"},
					{"name": "decreasePositionSwapType", "type": "uint8"},
					{"name": "isLong", "type": "bool"},
					{"name": "shouldUnwrapNativeToken", "type": "bool"},
					{"name": "referralCode", "type": "bytes32"}
				],
				"name": "params",
				"type": "tuple"
			}
		],
		"name": "createOrder",
		"outputs": [{"name": "", "type": "bytes32"}],
		"stateMutability": "payable",
		"type": "function"
	}
]`

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("failed to parse ABI: " + err.Error())
	}
	return parsed
}

var (
	erc20ABI          = mustParseABI(erc20ABIJSON)
	dataStoreABI      = mustParseABI(dataStoreABIJSON)
	exchangeRouterABI = mustParseABI(exchangeRouterABIJSON)
)
