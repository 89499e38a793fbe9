package gmxsdk

import (
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// ExecutionPriceFor derives the slippage-bounded execution price for one
// order from an oracle quote.
//
// The adjustment direction always works against the trader: opening a long or
// closing a short tolerates a higher price, opening a short or closing a long
// tolerates a lower one. Swaps take the median untouched.
func ExecutionPriceFor(tokenDecimals int, quote PriceQuote, isLong bool, intent PriceIntent, slippage decimal.Decimal) ExecutionPrice {
	median := quote.Median()

	var adjusted decimal.Decimal
	switch intent {
	case PriceIntentOpen:
		if isLong {
			adjusted = median.Mul(one.Add(slippage))
		} else {
			adjusted = median.Mul(one.Sub(slippage))
		}
	case PriceIntentClose:
		if isLong {
			adjusted = median.Mul(one.Sub(slippage))
		} else {
			adjusted = median.Mul(one.Add(slippage))
		}
	default:
		adjusted = median
	}

	floored := adjusted.Floor()

	return ExecutionPrice{
		Median:        median,
		Adjusted:      adjusted,
		AcceptableRaw: floored.BigInt(),
		// The exponent is negative for any token with fewer than 30
		// decimals; Shift keeps the full precision either way.
		AcceptableUSD: floored.Shift(int32(tokenDecimals - USDDecimals)),
	}
}

// ExecutionPriceFromSnapshot looks the token up in a snapshot before pricing,
// returning PriceUnavailableError when the feed has no entry for it.
func ExecutionPriceFromSnapshot(snapshot OracleSnapshot, tokenAddr string, tokenDecimals int, isLong bool, intent PriceIntent, slippage decimal.Decimal) (ExecutionPrice, error) {
	quote, ok := snapshot.Quote(tokenAddr)
	if !ok {
		return ExecutionPrice{}, &PriceUnavailableError{TokenAddr: tokenAddr}
	}
	return ExecutionPriceFor(tokenDecimals, quote, isLong, intent, slippage), nil
}

// intentFor maps an order kind onto its pricing intent: increase orders open
// exposure, decrease orders close it.
func intentFor(kind OrderKind) PriceIntent {
	switch kind {
	case OrderKindIncrease:
		return PriceIntentOpen
	case OrderKindDecrease:
		return PriceIntentClose
	default:
		return PriceIntentSwap
	}
}
