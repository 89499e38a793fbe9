package gmxsdk

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// USDDecimals is the venue's fixed-point scale for USD amounts.
const USDDecimals = 30

// normalizeAddr canonicalizes a hex address to its checksummed form so map
// lookups are case-insensitive.
func normalizeAddr(addr string) string {
	return common.HexToAddress(addr).Hex()
}

// ScaleToUnits converts a human-scale amount into on-chain integer units,
// truncating anything finer than the token's decimal count. The result is
// non-negative for non-negative input.
func ScaleToUnits(amount decimal.Decimal, decimals int) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount must be non-negative, got %s", amount)
	}
	if decimals < 0 || decimals > USDDecimals {
		return nil, fmt.Errorf("decimals must be between 0 and %d, got %d", USDDecimals, decimals)
	}
	return amount.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// DescaleFromUnits is the inverse of ScaleToUnits.
func DescaleFromUnits(units *big.Int, decimals int) decimal.Decimal {
	return decimal.NewFromBigInt(units, 0).Shift(int32(-decimals))
}

// ScaleUSD converts a USD amount into the venue's 30-decimal fixed point.
func ScaleUSD(amount decimal.Decimal) (*big.Int, error) {
	return ScaleToUnits(amount, USDDecimals)
}
