package gmxsdk

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/Dynameik/gmx-go-sdk/chain"
)

// Ledger is the gateway surface the pipeline consumes. *chain.Gateway
// satisfies it; tests substitute a fake.
type Ledger interface {
	SignerAddress() common.Address
	EnsureAllowance(ctx context.Context, token common.Address, required, maxFeePerGas *big.Int, autoApprove bool) error
	Budget(ctx context.Context, class chain.OrderClass, maxFeePerGas *big.Int) (*chain.GasPlan, error)
	BuildEnvelope(ctx context.Context, spec chain.OrderSpec, plan *chain.GasPlan) (*chain.TransactionEnvelope, error)
	Sign(env *chain.TransactionEnvelope) (*types.Transaction, error)
	Submit(ctx context.Context, tx *types.Transaction) (string, error)
}

// PipelineState tracks one submission through its one-way state machine.
// States never revisit; a failure in any state aborts the whole run, and a
// retry means a fresh pipeline with fresh nonce, price and gas reads.
type PipelineState int

const (
	StateInitialized PipelineState = iota
	StateResolved
	StatePriced
	StateBudgeted
	StateEnveloped
	StateSigned
	StateBroadcast
	StateDiscarded
)

func (s PipelineState) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateResolved:
		return "resolved"
	case StatePriced:
		return "priced"
	case StateBudgeted:
		return "budgeted"
	case StateEnveloped:
		return "enveloped"
	case StateSigned:
		return "signed"
	case StateBroadcast:
		return "broadcast"
	case StateDiscarded:
		return "discarded"
	}
	return "unknown"
}

// SubmitOutcome is the terminal result of one pipeline run: either a
// broadcast transaction id, or, in simulate mode, the discarded envelope,
// identical to what live mode would have sent.
type SubmitOutcome struct {
	State    PipelineState
	TxID     string
	Envelope *chain.TransactionEnvelope
	Price    ExecutionPrice
	Plan     *chain.GasPlan
}

// Client runs the order-construction pipeline: resolution, allowance,
// pricing, gas budgeting, assembly, signing and submission.
type Client struct {
	cfg      *Config
	resolver *Resolver
	oracle   OracleSource
	ledger   Ledger
	log      *zap.Logger
}

// NewClient wires a client from configuration: registry and oracle over the
// chain's info API, gateway over the configured RPC endpoint.
func NewClient(ctx context.Context, cfg *Config, log *zap.Logger) (*Client, error) {
	return NewClientWithOracle(ctx, cfg, nil, log)
}

// NewClientWithOracle is NewClient with the oracle feed swapped out, so
// orders can be priced from a connected PriceStream instead of the REST
// snapshot endpoint. A nil oracle falls back to the registry.
func NewClientWithOracle(ctx context.Context, cfg *Config, oracle OracleSource, log *zap.Logger) (*Client, error) {
	chainID, err := cfg.ChainID()
	if err != nil {
		return nil, err
	}
	contracts, err := cfg.Contracts()
	if err != nil {
		return nil, err
	}

	registry, err := NewRegistry(cfg.Chain, log)
	if err != nil {
		return nil, err
	}
	if oracle == nil {
		oracle = registry
	}

	gateway, err := chain.Dial(ctx, cfg.RPCURL, cfg.PrivateKey, chainID, chain.Addresses{
		ExchangeRouter:   common.HexToAddress(contracts.ExchangeRouter),
		SyntheticsRouter: common.HexToAddress(contracts.SyntheticsRouter),
		DataStore:        common.HexToAddress(contracts.DataStore),
		OrderVault:       common.HexToAddress(contracts.OrderVault),
		WrappedNative:    common.HexToAddress(contracts.WrappedNative),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("connect gateway: %w", err)
	}

	// A configured wallet address must match the key actually held.
	if cfg.WalletAddress != "" {
		if got := gateway.SignerAddress(); got != common.HexToAddress(cfg.WalletAddress) {
			gateway.Close()
			return nil, fmt.Errorf("private key controls %s, config names %s", got.Hex(), cfg.WalletAddress)
		}
	}

	return &Client{
		cfg:      cfg,
		resolver: NewResolver(registry, registry, oracle, cfg, log),
		oracle:   oracle,
		ledger:   gateway,
		log:      log,
	}, nil
}

// Close releases the gateway connection.
func (c *Client) Close() {
	if gw, ok := c.ledger.(*chain.Gateway); ok {
		gw.Close()
	}
}

// ResolveOrder completes and validates a partial request.
func (c *Client) ResolveOrder(ctx context.Context, req OrderRequest) (*ResolvedOrder, error) {
	return c.resolver.Resolve(ctx, req)
}

// EnsureAllowance runs the allowance pre-flight for the given token and
// amount against the venue's spender, honoring the configured auto-approve
// policy.
func (c *Client) EnsureAllowance(ctx context.Context, tokenAddr string, amount, maxFeePerGas *big.Int) error {
	return c.ledger.EnsureAllowance(ctx, common.HexToAddress(tokenAddr), amount, maxFeePerGas, c.cfg.AutoApprove)
}

// CreateOrder resolves a request and runs it through the full pipeline.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest, mode SubmitMode) (*SubmitOutcome, error) {
	resolved, err := c.ResolveOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.BuildAndSubmit(ctx, resolved, mode)
}

// BuildAndSubmit drives one resolved order through pricing, budgeting,
// assembly, signing and, in live mode, broadcast. Simulate mode stops
// after signing and returns the envelope for inspection.
func (c *Client) BuildAndSubmit(ctx context.Context, resolved *ResolvedOrder, mode SubmitMode) (*SubmitOutcome, error) {
	state := StateResolved
	class := classFor(resolved.Kind)
	log := c.log.With(zap.String("kind", resolved.Kind.String()))

	// The allowance step must be accepted before anything else is read:
	// the gas and price inputs below have to reflect post-approval state.
	if resolved.Kind == OrderKindIncrease {
		if err := c.ledger.EnsureAllowance(ctx,
			common.HexToAddress(resolved.CollateralAddr),
			resolved.CollateralDeltaScaled, nil, c.cfg.AutoApprove); err != nil {
			return nil, err
		}
	}

	snapshot, err := c.oracle.OraclePrices(ctx)
	if err != nil {
		return nil, err
	}

	pricingToken := resolved.IndexTokenAddr
	if resolved.Kind == OrderKindSwap {
		pricingToken = resolved.StartTokenAddr
	}
	isLong := resolved.IsLong != nil && *resolved.IsLong

	price, err := ExecutionPriceFromSnapshot(snapshot, pricingToken,
		resolved.TokenDecimals, isLong, intentFor(resolved.Kind), resolved.SlippagePercent)
	if err != nil {
		return nil, err
	}
	state = StatePriced
	log.Debug("pipeline advanced", zap.String("state", state.String()),
		zap.String("median", price.Median.String()),
		zap.String("adjusted", price.Adjusted.String()))

	plan, err := c.ledger.Budget(ctx, class, nil)
	if err != nil {
		return nil, err
	}
	state = StateBudgeted
	log.Debug("pipeline advanced", zap.String("state", state.String()))

	collateralToken := resolved.CollateralAddr
	if resolved.Kind == OrderKindSwap {
		collateralToken = resolved.StartTokenAddr
	}

	spec := chain.OrderSpec{
		Class:           class,
		Market:          common.HexToAddress(resolved.MarketKey),
		CollateralToken: common.HexToAddress(collateralToken),
		SwapPath:        toAddresses(resolved.SwapPath),
		SizeDeltaUSD:    resolved.SizeDeltaScaled,
		CollateralDelta: resolved.CollateralDeltaScaled,
		ExecutionFee:    chain.ExecutionFee(plan, c.cfg.ExecutionBuffer),
		IsLong:          isLong,
	}
	if resolved.Kind != OrderKindSwap {
		spec.AcceptablePrice = price.AcceptableRaw
	}

	env, err := c.ledger.BuildEnvelope(ctx, spec, plan)
	if err != nil {
		return nil, err
	}
	state = StateEnveloped
	log.Debug("pipeline advanced", zap.String("state", state.String()),
		zap.Uint64("nonce", env.Nonce))

	signed, err := c.ledger.Sign(env)
	if err != nil {
		return nil, err
	}
	state = StateSigned

	if mode == SubmitModeSimulate {
		log.Info("simulate mode, envelope discarded before broadcast")
		return &SubmitOutcome{State: StateDiscarded, Envelope: env, Price: price, Plan: plan}, nil
	}

	txID, err := c.ledger.Submit(ctx, signed)
	if err != nil {
		return nil, &SubmissionFailedError{Err: err}
	}

	log.Info("order submitted", zap.String("tx", txID))
	return &SubmitOutcome{State: StateBroadcast, TxID: txID, Envelope: env, Price: price, Plan: plan}, nil
}

func classFor(kind OrderKind) chain.OrderClass {
	switch kind {
	case OrderKindIncrease:
		return chain.ClassIncrease
	case OrderKindDecrease:
		return chain.ClassDecrease
	default:
		return chain.ClassSwap
	}
}

func toAddresses(path []string) []common.Address {
	out := make([]common.Address, 0, len(path))
	for _, p := range path {
		out = append(out, common.HexToAddress(p))
	}
	return out
}
