package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Backend is the RPC surface the gateway consumes. *ethclient.Client
// satisfies it; tests substitute a fake.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	ChainID(ctx context.Context) (*big.Int, error)
}

// Gateway is the ledger-side collaborator of the order pipeline: balance,
// allowance and gas-table reads, transaction assembly, signing and broadcast.
// It holds the signing credential; one sign operation is a single-writer use
// of that credential.
type Gateway struct {
	backend   Backend
	key       *ecdsa.PrivateKey
	chainID   *big.Int
	contracts Addresses
	log       *zap.Logger
	closer    interface{ Close() }
}

// Dial connects to an RPC endpoint and verifies, once at startup, that the
// node serves the expected chain. This replaces any per-call capability
// sniffing: a gateway either matches its configuration or fails construction.
func Dial(ctx context.Context, rpcURL, privateKeyHex string, expectedChainID int64, contracts Addresses, log *zap.Logger) (*Gateway, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	gw, err := NewGateway(ctx, client, privateKeyHex, expectedChainID, contracts, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	gw.closer = client
	return gw, nil
}

// Close releases the underlying RPC connection, when the gateway owns one.
func (g *Gateway) Close() {
	if g.closer != nil {
		g.closer.Close()
	}
}

// NewGateway builds a gateway over an existing backend.
func NewGateway(ctx context.Context, backend Backend, privateKeyHex string, expectedChainID int64, contracts Addresses, log *zap.Logger) (*Gateway, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if chainID.Int64() != expectedChainID {
		return nil, fmt.Errorf("node serves chain %d, config expects %d", chainID.Int64(), expectedChainID)
	}

	return &Gateway{
		backend:   backend,
		key:       key,
		chainID:   chainID,
		contracts: contracts,
		log:       log,
	}, nil
}

// SignerAddress returns the address of the held credential.
func (g *Gateway) SignerAddress() common.Address {
	pub, _ := g.key.Public().(*ecdsa.PublicKey)
	return crypto.PubkeyToAddress(*pub)
}

// ChainID returns the verified chain id.
func (g *Gateway) ChainID() *big.Int {
	return new(big.Int).Set(g.chainID)
}

// PendingNonce reads the signer's next nonce. Each signed transaction takes a
// nonce read immediately before assembly; a stale nonce is rejected by the
// node, not by this component.
func (g *Gateway) PendingNonce(ctx context.Context) (uint64, error) {
	return g.backend.PendingNonceAt(ctx, g.SignerAddress())
}

// BaseFee reads the current base fee from the head block.
func (g *Gateway) BaseFee(ctx context.Context) (*big.Int, error) {
	header, err := g.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("read head block: %w", err)
	}
	if header.BaseFee == nil {
		return nil, fmt.Errorf("node reports no base fee, chain %d is not EIP-1559", g.chainID)
	}
	return header.BaseFee, nil
}

// tokenBalance reads an ERC-20 balance.
func (g *Gateway) tokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, err
	}

	result, err := g.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", token.Hex(), err)
	}

	var balance *big.Int
	if err := erc20ABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, err
	}
	return balance, nil
}

// tokenAllowance reads an ERC-20 allowance.
func (g *Gateway) tokenAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}

	result, err := g.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("allowance %s: %w", token.Hex(), err)
	}

	var allowance *big.Int
	if err := erc20ABI.UnpackIntoInterface(&allowance, "allowance", result); err != nil {
		return nil, err
	}
	return allowance, nil
}

// getUint reads one slot of the on-chain configuration store.
func (g *Gateway) getUint(ctx context.Context, key [32]byte) (*big.Int, error) {
	data, err := dataStoreABI.Pack("getUint", key)
	if err != nil {
		return nil, err
	}

	result, err := g.backend.CallContract(ctx, ethereum.CallMsg{To: &g.contracts.DataStore, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("datastore getUint: %w", err)
	}

	var value *big.Int
	if err := dataStoreABI.UnpackIntoInterface(&value, "getUint", result); err != nil {
		return nil, err
	}
	return value, nil
}

// signTx signs a raw dynamic-fee transaction with the held credential.
func (g *Gateway) signTx(inner *types.DynamicFeeTx) (*types.Transaction, error) {
	signed, err := types.SignNewTx(g.key, types.LatestSignerForChainID(g.chainID), inner)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

// Submit broadcasts a signed transaction and returns its id. The pipeline's
// responsibility ends here; finality tracking is the caller's concern.
func (g *Gateway) Submit(ctx context.Context, tx *types.Transaction) (string, error) {
	if err := g.backend.SendTransaction(ctx, tx); err != nil {
		return "", err
	}
	g.log.Info("transaction submitted", zap.String("tx", tx.Hash().Hex()))
	return tx.Hash().Hex(), nil
}
