package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// OrderSpec is the fully-resolved, fully-priced order the envelope is built
// from. All numbers are already in on-chain integer units.
type OrderSpec struct {
	Class           OrderClass
	Market          common.Address
	CollateralToken common.Address
	SwapPath        []common.Address
	SizeDeltaUSD    *big.Int
	CollateralDelta *big.Int
	AcceptablePrice *big.Int
	MinOutputAmount *big.Int
	ExecutionFee    *big.Int
	IsLong          bool
}

// TransactionEnvelope is the fully-specified transaction before signing:
// destination router, the batched multicall payload, and every fee field.
// It is immutable once signed.
type TransactionEnvelope struct {
	To                   common.Address
	Calls                [][]byte
	Data                 []byte
	Value                *big.Int
	ChainID              *big.Int
	Gas                  uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Nonce                uint64
}

// BuildEnvelope assembles the multicall payload for one order: the execution
// fee transfer, the collateral transfer where one is needed, and the order
// creation itself, batched atomically. The nonce is read fresh here,
// immediately before assembly.
func (g *Gateway) BuildEnvelope(ctx context.Context, spec OrderSpec, plan *GasPlan) (*TransactionEnvelope, error) {
	vault := g.contracts.OrderVault

	wntAmount := new(big.Int).Set(spec.ExecutionFee)
	value := new(big.Int).Set(spec.ExecutionFee)

	var calls [][]byte

	nativeCollateral := spec.Class != ClassDecrease && spec.CollateralToken == g.contracts.WrappedNative
	if nativeCollateral {
		// Native collateral rides along with the execution fee instead
		// of a token transfer.
		wntAmount.Add(wntAmount, spec.CollateralDelta)
		value.Add(value, spec.CollateralDelta)
	}

	sendWnt, err := exchangeRouterABI.Pack("sendWnt", vault, wntAmount)
	if err != nil {
		return nil, fmt.Errorf("pack sendWnt: %w", err)
	}
	calls = append(calls, sendWnt)

	if spec.Class != ClassDecrease && !nativeCollateral {
		sendTokens, err := exchangeRouterABI.Pack("sendTokens", spec.CollateralToken, vault, spec.CollateralDelta)
		if err != nil {
			return nil, fmt.Errorf("pack sendTokens: %w", err)
		}
		calls = append(calls, sendTokens)
	}

	createOrder, err := exchangeRouterABI.Pack("createOrder", g.orderParams(spec))
	if err != nil {
		return nil, fmt.Errorf("pack createOrder: %w", err)
	}
	calls = append(calls, createOrder)

	data, err := exchangeRouterABI.Pack("multicall", calls)
	if err != nil {
		return nil, fmt.Errorf("pack multicall: %w", err)
	}

	nonce, err := g.PendingNonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	env := &TransactionEnvelope{
		To:                   g.contracts.ExchangeRouter,
		Calls:                calls,
		Data:                 data,
		Value:                value,
		ChainID:              g.ChainID(),
		Gas:                  plan.Ceiling,
		MaxFeePerGas:         plan.MaxFeePerGas,
		MaxPriorityFeePerGas: plan.MaxPriorityFeePerGas,
		Nonce:                nonce,
	}

	g.log.Debug("envelope built",
		zap.String("class", spec.Class.String()),
		zap.Int("calls", len(calls)),
		zap.Uint64("nonce", nonce),
		zap.String("value", value.String()))

	return env, nil
}

func (g *Gateway) orderParams(spec OrderSpec) CreateOrderParams {
	sizeDelta := spec.SizeDeltaUSD
	if sizeDelta == nil {
		sizeDelta = big.NewInt(0)
	}
	acceptable := spec.AcceptablePrice
	if acceptable == nil {
		acceptable = big.NewInt(0)
	}
	minOut := spec.MinOutputAmount
	if minOut == nil {
		minOut = big.NewInt(0)
	}
	swapPath := spec.SwapPath
	if swapPath == nil {
		swapPath = []common.Address{}
	}

	return CreateOrderParams{
		Addresses: CreateOrderAddresses{
			Receiver:               g.SignerAddress(),
			CallbackContract:       common.Address{},
			UiFeeReceiver:          common.Address{},
			Market:                 spec.Market,
			InitialCollateralToken: spec.CollateralToken,
			SwapPath:               swapPath,
		},
		Numbers: CreateOrderNumbers{
			SizeDeltaUsd:                 sizeDelta,
			InitialCollateralDeltaAmount: spec.CollateralDelta,
			TriggerPrice:                 big.NewInt(0),
			AcceptablePrice:              acceptable,
			ExecutionFee:                 spec.ExecutionFee,
			CallbackGasLimit:             big.NewInt(0),
			MinOutputAmount:              minOut,
		},
		OrderType:                spec.Class.orderType(),
		DecreasePositionSwapType: 0,
		IsLong:                   spec.IsLong,
		ShouldUnwrapNativeToken:  false,
		ReferralCode:             [32]byte{},
	}
}

// Sign turns an envelope into an immutable signed transaction.
func (g *Gateway) Sign(env *TransactionEnvelope) (*types.Transaction, error) {
	return g.signTx(&types.DynamicFeeTx{
		ChainID:   env.ChainID,
		Nonce:     env.Nonce,
		To:        &env.To,
		Value:     env.Value,
		Gas:       env.Gas,
		GasFeeCap: env.MaxFeePerGas,
		GasTipCap: env.MaxPriorityFeePerGas,
		Data:      env.Data,
	})
}
