package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// legacyTokenAliases substitutes one retired token address for its current
// canonical address before any balance or allowance query. Single-entry
// compatibility shim for the synthetic BTC listing on Arbitrum; do not
// generalize.
var legacyTokenAliases = map[common.Address]common.Address{
	common.HexToAddress("0x47904963fc8b2340414262125aF798B9655E58Cd"): common.HexToAddress("0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"),
}

// approveGasLimit is a deliberately generous fixed limit for approval calls.
const approveGasLimit = 4_000_000

// InsufficientBalanceError fails the pre-flight balance check; no on-chain
// call was attempted.
type InsufficientBalanceError struct {
	Token    common.Address
	Balance  *big.Int
	Required *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance of %s: have %s, need %s",
		e.Token.Hex(), e.Balance, e.Required)
}

// AllowanceTooLowError fails the pre-flight allowance check when auto-approve
// is off; the caller must raise the allowance out of band.
type AllowanceTooLowError struct {
	Token     common.Address
	Spender   common.Address
	Allowance *big.Int
	Required  *big.Int
}

func (e *AllowanceTooLowError) Error() string {
	return fmt.Sprintf("allowance for %s on %s too low: have %s, need %s",
		e.Spender.Hex(), e.Token.Hex(), e.Allowance, e.Required)
}

// EnsureAllowance verifies the signer can move the required amount of token
// through the synthetics router, raising the allowance when autoApprove is
// set. The allowance raise approves exactly the required amount, never an
// unlimited one. The call is idempotent: once the allowance is sufficient it
// reads state and returns with no side effect.
func (g *Gateway) EnsureAllowance(ctx context.Context, token common.Address, required *big.Int, maxFeePerGas *big.Int, autoApprove bool) error {
	if alias, ok := legacyTokenAliases[token]; ok {
		g.log.Debug("remapping legacy token address",
			zap.String("from", token.Hex()), zap.String("to", alias.Hex()))
		token = alias
	}

	owner := g.SignerAddress()
	spender := g.contracts.SyntheticsRouter

	var (
		balance *big.Int
		err     error
	)
	if token == g.contracts.WrappedNative {
		// Wrapped-native collateral is paid from native balance.
		balance, err = g.backend.BalanceAt(ctx, owner, nil)
	} else {
		balance, err = g.tokenBalance(ctx, token, owner)
	}
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	if balance.Cmp(required) < 0 {
		return &InsufficientBalanceError{Token: token, Balance: balance, Required: required}
	}

	allowance, err := g.tokenAllowance(ctx, token, owner, spender)
	if err != nil {
		return fmt.Errorf("read allowance: %w", err)
	}
	if allowance.Cmp(required) >= 0 {
		g.log.Debug("allowance sufficient",
			zap.String("token", token.Hex()), zap.String("allowance", allowance.String()))
		return nil
	}
	if !autoApprove {
		return &AllowanceTooLowError{Token: token, Spender: spender, Allowance: allowance, Required: required}
	}

	return g.approve(ctx, token, spender, required, maxFeePerGas)
}

// approve submits an exact-amount approval and returns once the node accepts
// it. It does not wait for finality.
func (g *Gateway) approve(ctx context.Context, token, spender common.Address, amount, maxFeePerGas *big.Int) error {
	if maxFeePerGas == nil {
		var err error
		maxFeePerGas, err = g.defaultMaxFeePerGas(ctx)
		if err != nil {
			return err
		}
	}

	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return fmt.Errorf("pack approve: %w", err)
	}

	nonce, err := g.PendingNonce(ctx)
	if err != nil {
		return fmt.Errorf("read nonce: %w", err)
	}

	signed, err := g.signTx(&types.DynamicFeeTx{
		ChainID:   g.chainID,
		Nonce:     nonce,
		To:        &token,
		Value:     big.NewInt(0),
		Gas:       approveGasLimit,
		GasFeeCap: maxFeePerGas,
		GasTipCap: big.NewInt(0),
		Data:      data,
	})
	if err != nil {
		return err
	}

	txID, err := g.Submit(ctx, signed)
	if err != nil {
		return fmt.Errorf("submit approval: %w", err)
	}

	g.log.Info("approval submitted",
		zap.String("token", token.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("amount", amount.String()),
		zap.String("tx", txID))
	return nil
}
