package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// baseFeeMultiplier is applied to the chain's current base fee when the
// caller does not supply a max fee explicitly.
var baseFeeMultiplier = decimal.NewFromFloat(1.35)

// GasPlan is the gas budget for one order submission.
type GasPlan struct {
	// Base is the per-order-kind estimator read from the gas-limit table.
	Base *big.Int
	// Ceiling is the call-gas limit put on the envelope: the base
	// estimator evaluated twice and summed. Deliberately conservative,
	// since exact usage depends on contract storage state at execution.
	Ceiling uint64
	// MaxFeePerGas caps the total per-gas price.
	MaxFeePerGas *big.Int
	// MaxPriorityFeePerGas is always zero: no tip bidding.
	MaxPriorityFeePerGas *big.Int
}

var stringArgs = abi.Arguments{{Type: mustNewType("string")}}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic("abi type " + t + ": " + err.Error())
	}
	return typ
}

// hashString derives a configuration-store key the way the venue contracts
// do: keccak over the ABI-encoded string.
func hashString(s string) [32]byte {
	packed, err := stringArgs.Pack(s)
	if err != nil {
		panic("pack gas key: " + err.Error())
	}
	var key [32]byte
	copy(key[:], crypto.Keccak256(packed))
	return key
}

// Budget resolves the gas plan for one order class. maxFeePerGas may be nil,
// in which case it defaults to 1.35x the current base fee.
func (g *Gateway) Budget(ctx context.Context, class OrderClass, maxFeePerGas *big.Int) (*GasPlan, error) {
	key := class.GasLimitKey()
	if key == "" {
		return nil, fmt.Errorf("no gas-limit key for order class %d", class)
	}

	base, err := g.getUint(ctx, hashString(key))
	if err != nil {
		return nil, fmt.Errorf("gas limit for %s: %w", class, err)
	}

	if maxFeePerGas == nil {
		maxFeePerGas, err = g.defaultMaxFeePerGas(ctx)
		if err != nil {
			return nil, err
		}
	}

	ceiling := new(big.Int).Add(base, base)

	plan := &GasPlan{
		Base:                 base,
		Ceiling:              ceiling.Uint64(),
		MaxFeePerGas:         maxFeePerGas,
		MaxPriorityFeePerGas: big.NewInt(0),
	}

	g.log.Debug("gas plan resolved",
		zap.String("class", class.String()),
		zap.String("base", base.String()),
		zap.Uint64("ceiling", plan.Ceiling),
		zap.String("max_fee_per_gas", maxFeePerGas.String()))

	return plan, nil
}

func (g *Gateway) defaultMaxFeePerGas(ctx context.Context) (*big.Int, error) {
	baseFee, err := g.BaseFee(ctx)
	if err != nil {
		return nil, err
	}
	return decimal.NewFromBigInt(baseFee, 0).Mul(baseFeeMultiplier).Truncate(0).BigInt(), nil
}

// ExecutionFee computes the native amount attached to cover keeper execution:
// the base estimator priced at the plan's fee cap, padded by the buffer.
func ExecutionFee(plan *GasPlan, buffer float64) *big.Int {
	fee := decimal.NewFromBigInt(plan.Base, 0).
		Mul(decimal.NewFromBigInt(plan.MaxFeePerGas, 0)).
		Mul(decimal.NewFromFloat(buffer))
	return fee.Truncate(0).BigInt()
}
