package gmxsdk

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// OrderKind selects which pipeline variant a request runs through.
type OrderKind int

const (
	OrderKindIncrease OrderKind = iota + 1
	OrderKindDecrease
	OrderKindSwap
)

func (k OrderKind) String() string {
	switch k {
	case OrderKindIncrease:
		return "increase"
	case OrderKindDecrease:
		return "decrease"
	case OrderKindSwap:
		return "swap"
	}
	return "unknown"
}

// SubmitMode controls whether a built envelope reaches the chain.
type SubmitMode int

const (
	// SubmitModeLive signs and broadcasts the transaction.
	SubmitModeLive SubmitMode = iota
	// SubmitModeSimulate runs the full pipeline, including signing, but
	// returns the envelope instead of broadcasting it. The envelope is
	// identical to what live mode would have sent.
	SubmitModeSimulate
)

// OrderRequest is the caller-facing trading intent. Optional fields that are
// left zero are filled in by the resolver where a derivation exists; fields
// that cannot be derived surface as a MissingFieldError.
type OrderRequest struct {
	Chain            string
	Kind             OrderKind
	IndexTokenSymbol string
	IndexTokenAddr   string
	MarketKey        string
	StartTokenAddr   string
	OutTokenSymbol   string
	OutTokenAddr     string
	CollateralAddr   string
	SwapPath         []string
	// IsLong is a pointer so that "not supplied" is distinguishable from
	// "short". Position orders with a nil IsLong are rejected.
	IsLong *bool
	// SizeDeltaUSD is the position size change in USD. When zero and
	// Leverage is set, the size is implied from collateral value.
	SizeDeltaUSD decimal.Decimal
	// Leverage optionally implies SizeDeltaUSD from collateral value.
	Leverage decimal.Decimal
	// InitialCollateralDelta is the collateral amount in human units of the
	// start token.
	InitialCollateralDelta decimal.Decimal
	// SlippagePercent is a fraction, e.g. 0.003. Zero means "use default".
	SlippagePercent decimal.Decimal
}

// ResolvedOrder is an OrderRequest with every required field present plus the
// integer fields the contract call needs. It is produced once by the resolver
// and never mutated afterwards.
type ResolvedOrder struct {
	OrderRequest

	TokenDecimals int

	// SizeDeltaScaled is SizeDeltaUSD scaled to the venue's 30-decimal USD
	// fixed point. Nil for swap orders.
	SizeDeltaScaled *big.Int
	// CollateralDeltaScaled is InitialCollateralDelta scaled by the start
	// token's decimals.
	CollateralDeltaScaled *big.Int
}

// TokenInfo is the registry's view of a tradable token.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// MarketInfo is the registry's view of a perp market.
type MarketInfo struct {
	MarketKey  string `json:"marketToken"`
	IndexToken string `json:"indexToken"`
	LongToken  string `json:"longToken"`
	ShortToken string `json:"shortToken"`
}

// PriceQuote is one token's entry in an oracle snapshot. Min and Max are the
// raw 30-decimal bid/ask as reported by the feed.
type PriceQuote struct {
	TokenAddr string
	Min       decimal.Decimal
	Max       decimal.Decimal
}

// Median returns (min+max)/2 in the oracle's raw scale.
func (q PriceQuote) Median() decimal.Decimal {
	return q.Min.Add(q.Max).Div(decimal.NewFromInt(2))
}

// OracleSnapshot is a point-in-time read of the price feed, keyed by
// normalized token address.
type OracleSnapshot map[string]PriceQuote

// Quote looks up a token's quote in the snapshot.
func (s OracleSnapshot) Quote(tokenAddr string) (PriceQuote, bool) {
	q, ok := s[normalizeAddr(tokenAddr)]
	return q, ok
}

// PriceIntent distinguishes how slippage is applied.
type PriceIntent int

const (
	PriceIntentOpen PriceIntent = iota + 1
	PriceIntentClose
	PriceIntentSwap
)

// ExecutionPrice carries the reference price and its slippage-adjusted
// derivatives for one order. It is computed fresh per submission and never
// cached, so the envelope always reflects the price at submission time.
type ExecutionPrice struct {
	// Median is the raw oracle median, 30-decimal scale.
	Median decimal.Decimal
	// Adjusted is the median moved by the slippage tolerance in the
	// direction that works against the trader.
	Adjusted decimal.Decimal
	// AcceptableRaw is floor(Adjusted) as the integer the contract takes.
	AcceptableRaw *big.Int
	// AcceptableUSD is AcceptableRaw rescaled by 10^(decimals-30) for
	// display. The exponent is negative for tokens with fewer than 30
	// decimals.
	AcceptableUSD decimal.Decimal
}
