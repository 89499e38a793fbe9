package gmxsdk

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// indexSymbolAliases remaps one ticker to the registry symbol it is actually
// listed under. The venue lists wrapped bridged BTC as "WBTC.b" while callers
// say "BTC". This is a deliberate one-entry compatibility shim, not a general
// remapping mechanism; confirm the rationale with the venue registry before
// adding entries.
var indexSymbolAliases = map[string]string{
	"BTC": "WBTC.b",
}

// marketLookupAliases substitutes the index-token address used for display
// with the address the market registry actually keys on. Same narrow-shim
// policy as indexSymbolAliases: the single entry covers the synthetic BTC
// market on Arbitrum.
var marketLookupAliases = map[string]string{
	"0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f": "0x47904963fc8b2340414262125aF798B9655E58Cd",
}

// minCollateralUSD is the venue's floor on collateral backing an increase
// order.
var minCollateralUSD = decimal.NewFromInt(2)

// defaultSlippage is applied when the request leaves the tolerance unset.
var defaultSlippage = decimal.NewFromFloat(0.003)

// fieldTag enumerates every request field the resolver knows how to check or
// derive. A fixed switch over this type replaces the original's runtime
// lookup table so the dispatch is exhaustive at compile time.
type fieldTag int

const (
	fieldChain fieldTag = iota
	fieldIndexTokenAddr
	fieldMarketKey
	fieldStartTokenAddr
	fieldOutTokenAddr
	fieldCollateralAddr
	fieldSwapPath
	fieldIsLong
	fieldSizeDelta
	fieldCollateralDelta
	fieldSlippage
)

// String names fields the way callers supply them.
func (f fieldTag) String() string {
	switch f {
	case fieldChain:
		return "chain"
	case fieldIndexTokenAddr:
		return "index_token_address"
	case fieldMarketKey:
		return "market_key"
	case fieldStartTokenAddr:
		return "start_token_address"
	case fieldOutTokenAddr:
		return "out_token_address"
	case fieldCollateralAddr:
		return "collateral_address"
	case fieldSwapPath:
		return "swap_path"
	case fieldIsLong:
		return "is_long"
	case fieldSizeDelta:
		return "size_delta_usd"
	case fieldCollateralDelta:
		return "initial_collateral_delta"
	case fieldSlippage:
		return "slippage_percent"
	}
	return "unknown"
}

// requiredFields lists what each order kind must end up with. Mirrors the
// venue's per-kind parameter contracts.
func requiredFields(kind OrderKind) []fieldTag {
	switch kind {
	case OrderKindIncrease:
		return []fieldTag{
			fieldChain, fieldIndexTokenAddr, fieldMarketKey,
			fieldStartTokenAddr, fieldCollateralAddr, fieldSwapPath,
			fieldIsLong, fieldSizeDelta, fieldCollateralDelta, fieldSlippage,
		}
	case OrderKindDecrease:
		return []fieldTag{
			fieldChain, fieldIndexTokenAddr, fieldMarketKey,
			fieldStartTokenAddr, fieldCollateralAddr,
			fieldIsLong, fieldSizeDelta, fieldCollateralDelta, fieldSlippage,
		}
	case OrderKindSwap:
		return []fieldTag{
			fieldChain, fieldStartTokenAddr, fieldOutTokenAddr,
			fieldSwapPath, fieldCollateralDelta, fieldSlippage,
		}
	}
	return nil
}

// Resolver completes and validates partially-specified order requests against
// the token registry, market registry and oracle feed.
type Resolver struct {
	tokens      TokenSource
	markets     MarketSource
	oracle      OracleSource
	maxLeverage decimal.Decimal
	log         *zap.Logger
}

// NewResolver wires a resolver against the given registries and oracle feed.
func NewResolver(tokens TokenSource, markets MarketSource, oracle OracleSource, cfg *Config, log *zap.Logger) *Resolver {
	return &Resolver{
		tokens:      tokens,
		markets:     markets,
		oracle:      oracle,
		maxLeverage: decimal.NewFromInt(cfg.MaxLeverage),
		log:         log,
	}
}

// Resolve fills in every derivable missing field, validates business rules
// and scales amounts to on-chain integer units. The returned order is
// complete; it is not mutated afterwards.
func (r *Resolver) Resolve(ctx context.Context, req OrderRequest) (*ResolvedOrder, error) {
	if req.Kind < OrderKindIncrease || req.Kind > OrderKindSwap {
		return nil, fmt.Errorf("unknown order kind %d", req.Kind)
	}

	// A missing chain is never derivable, and nothing else can be looked up
	// without one.
	if req.Chain == "" {
		return nil, &MissingFieldError{Fields: []string{fieldChain.String()}}
	}
	if _, ok := ChainIDs[req.Chain]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedChain, req.Chain)
	}

	snap, tokens, markets, err := r.fetchSources(ctx, req.Kind)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, field := range requiredFields(req.Kind) {
		if r.present(&req, field) {
			continue
		}
		if err := r.derive(&req, field, tokens, markets); err != nil {
			r.log.Debug("field underivable",
				zap.String("field", field.String()), zap.Error(err))
			missing = append(missing, field.String())
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFieldError{Fields: missing}
	}

	startToken, ok := tokens[normalizeAddr(req.StartTokenAddr)]
	if !ok {
		return nil, fmt.Errorf("start token %s not in registry", req.StartTokenAddr)
	}

	if req.Kind != OrderKindSwap {
		if err := r.checkPositionSize(&req, snap, startToken); err != nil {
			return nil, err
		}
	}

	// Formatting runs unconditionally, even when no fields were missing.
	return r.format(req, tokens, startToken)
}

// fetchSources reads the registries (and, for position orders, the oracle)
// concurrently across the bounded pool and joins before resolution proceeds.
func (r *Resolver) fetchSources(ctx context.Context, kind OrderKind) (OracleSnapshot, map[string]TokenInfo, map[string]MarketInfo, error) {
	var (
		snap    OracleSnapshot
		tokens  map[string]TokenInfo
		markets map[string]MarketInfo
	)

	fetches := []func(context.Context) error{
		func(ctx context.Context) error {
			var err error
			tokens, err = r.tokens.Tokens(ctx)
			return err
		},
		func(ctx context.Context) error {
			var err error
			markets, err = r.markets.Markets(ctx)
			return err
		},
	}
	if kind != OrderKindSwap {
		fetches = append(fetches, func(ctx context.Context) error {
			var err error
			snap, err = r.oracle.OraclePrices(ctx)
			return err
		})
	}

	if err := fanOut(ctx, defaultFanOutWorkers, fetches...); err != nil {
		return nil, nil, nil, err
	}
	return snap, tokens, markets, nil
}

func (r *Resolver) present(req *OrderRequest, field fieldTag) bool {
	switch field {
	case fieldChain:
		return req.Chain != ""
	case fieldIndexTokenAddr:
		return req.IndexTokenAddr != ""
	case fieldMarketKey:
		return req.MarketKey != ""
	case fieldStartTokenAddr:
		return req.StartTokenAddr != ""
	case fieldOutTokenAddr:
		return req.OutTokenAddr != ""
	case fieldCollateralAddr:
		return req.CollateralAddr != ""
	case fieldSwapPath:
		return req.SwapPath != nil
	case fieldIsLong:
		return req.IsLong != nil
	case fieldSizeDelta:
		// Size may instead be implied from leverage after derivation.
		return req.SizeDeltaUSD.IsPositive() || req.Leverage.IsPositive()
	case fieldCollateralDelta:
		return req.InitialCollateralDelta.IsPositive()
	case fieldSlippage:
		return req.SlippagePercent.IsPositive()
	}
	return false
}

// derive fills in one absent field. Derivations are conservative: when the
// inputs are ambiguous the field fails rather than being guessed.
func (r *Resolver) derive(req *OrderRequest, field fieldTag, tokens map[string]TokenInfo, markets map[string]MarketInfo) error {
	switch field {
	case fieldIndexTokenAddr:
		if req.IndexTokenSymbol == "" {
			return fmt.Errorf("neither index token address nor symbol provided")
		}
		symbol := req.IndexTokenSymbol
		if alias, ok := indexSymbolAliases[symbol]; ok {
			symbol = alias
		}
		for _, t := range tokens {
			if t.Symbol == symbol {
				req.IndexTokenAddr = t.Address
				return nil
			}
		}
		return fmt.Errorf("symbol %q not in token registry", symbol)

	case fieldMarketKey:
		lookup := normalizeAddr(req.IndexTokenAddr)
		for display, key := range marketLookupAliases {
			if normalizeAddr(display) == lookup {
				lookup = normalizeAddr(key)
			}
		}
		market, ok := markets[lookup]
		if !ok {
			return fmt.Errorf("no market for index token %s", req.IndexTokenAddr)
		}
		req.MarketKey = market.MarketKey
		return nil

	case fieldStartTokenAddr:
		if req.CollateralAddr == "" {
			return fmt.Errorf("no start token and no collateral to default from")
		}
		req.StartTokenAddr = req.CollateralAddr
		return nil

	case fieldOutTokenAddr:
		if req.OutTokenSymbol == "" {
			return fmt.Errorf("neither out token address nor symbol provided")
		}
		for _, t := range tokens {
			if t.Symbol == req.OutTokenSymbol {
				req.OutTokenAddr = t.Address
				return nil
			}
		}
		return fmt.Errorf("symbol %q not in token registry", req.OutTokenSymbol)

	case fieldCollateralAddr:
		if req.StartTokenAddr == "" {
			return fmt.Errorf("no collateral and no start token to default from")
		}
		req.CollateralAddr = req.StartTokenAddr
		return nil

	case fieldSwapPath:
		return r.deriveSwapPath(req, markets)

	case fieldIsLong:
		return fmt.Errorf("direction cannot be guessed")

	case fieldSizeDelta:
		return fmt.Errorf("neither size nor leverage provided")

	case fieldCollateralDelta:
		return fmt.Errorf("collateral delta not provided")

	case fieldSlippage:
		req.SlippagePercent = defaultSlippage
		return nil
	}
	return fmt.Errorf("no derivation for %s", field)
}

func (r *Resolver) deriveSwapPath(req *OrderRequest, markets map[string]MarketInfo) error {
	if req.Kind != OrderKindSwap {
		// Collateral already in the right token needs no swap.
		if req.StartTokenAddr != "" && req.CollateralAddr != "" &&
			normalizeAddr(req.StartTokenAddr) == normalizeAddr(req.CollateralAddr) {
			req.SwapPath = []string{}
			return nil
		}
		return ErrAmbiguousSwapPath
	}

	// A swap between the two sides of a single market is one hop through
	// that market. Anything longer must be supplied by the caller.
	start := normalizeAddr(req.StartTokenAddr)
	out := normalizeAddr(req.OutTokenAddr)
	if start == "" || out == "" {
		return ErrAmbiguousSwapPath
	}
	for _, m := range markets {
		if (m.LongToken == start && m.ShortToken == out) ||
			(m.LongToken == out && m.ShortToken == start) {
			req.SwapPath = []string{m.MarketKey}
			return nil
		}
	}
	return ErrAmbiguousSwapPath
}

// checkPositionSize implies whichever of size and leverage is absent, then
// enforces the leverage ceiling and, for increase orders, the collateral
// floor. Everything here runs before any on-chain call.
func (r *Resolver) checkPositionSize(req *OrderRequest, snap OracleSnapshot, startToken TokenInfo) error {
	collateralUSD, err := collateralValueUSD(snap, startToken, req.InitialCollateralDelta)
	if err != nil {
		return err
	}

	// A zero quote values the collateral at nothing, which would divide by
	// zero below. Worthless collateral fails the floor on the way in; on
	// the way out the quote itself is unusable.
	if !collateralUSD.IsPositive() {
		if req.Kind == OrderKindIncrease {
			return &CollateralTooLowError{CollateralUSD: collateralUSD, MinimumUSD: minCollateralUSD}
		}
		return &PriceUnavailableError{TokenAddr: startToken.Address}
	}

	if !req.SizeDeltaUSD.IsPositive() {
		req.SizeDeltaUSD = req.Leverage.Mul(collateralUSD)
		r.log.Debug("size implied from leverage",
			zap.String("leverage", req.Leverage.String()),
			zap.String("size_usd", req.SizeDeltaUSD.String()))
	}

	implied := req.SizeDeltaUSD.Div(collateralUSD)
	if implied.GreaterThan(r.maxLeverage) {
		return &LeverageExceededError{Implied: implied, Maximum: r.maxLeverage}
	}

	if req.Kind == OrderKindIncrease && collateralUSD.LessThan(minCollateralUSD) {
		return &CollateralTooLowError{CollateralUSD: collateralUSD, MinimumUSD: minCollateralUSD}
	}

	return nil
}

// collateralValueUSD values a human-scale collateral amount via the oracle
// median and the token's decimal count.
func collateralValueUSD(snap OracleSnapshot, token TokenInfo, amount decimal.Decimal) (decimal.Decimal, error) {
	quote, ok := snap.Quote(token.Address)
	if !ok {
		return decimal.Zero, &PriceUnavailableError{TokenAddr: token.Address}
	}
	unitPrice := quote.Median().Shift(int32(token.Decimals - USDDecimals))
	return unitPrice.Mul(amount), nil
}

// format scales the size and collateral deltas into on-chain integer units.
func (r *Resolver) format(req OrderRequest, tokens map[string]TokenInfo, startToken TokenInfo) (*ResolvedOrder, error) {
	resolved := &ResolvedOrder{OrderRequest: req}

	if req.Kind != OrderKindSwap {
		sizeScaled, err := ScaleUSD(req.SizeDeltaUSD)
		if err != nil {
			return nil, fmt.Errorf("scale size delta: %w", err)
		}
		resolved.SizeDeltaScaled = sizeScaled

		indexToken, ok := tokens[normalizeAddr(req.IndexTokenAddr)]
		if !ok {
			return nil, fmt.Errorf("index token %s not in registry", req.IndexTokenAddr)
		}
		resolved.TokenDecimals = indexToken.Decimals
	} else {
		resolved.TokenDecimals = startToken.Decimals
	}

	collateralScaled, err := ScaleToUnits(req.InitialCollateralDelta, startToken.Decimals)
	if err != nil {
		return nil, fmt.Errorf("scale collateral delta: %w", err)
	}
	resolved.CollateralDeltaScaled = collateralScaled

	fields := []zap.Field{
		zap.String("kind", req.Kind.String()),
		zap.String("collateral_scaled", collateralScaled.String()),
	}
	if resolved.SizeDeltaScaled != nil {
		fields = append(fields,
			zap.String("market", req.MarketKey),
			zap.String("size_scaled", resolved.SizeDeltaScaled.String()))
	}
	r.log.Debug("order resolved", fields...)

	return resolved, nil
}
