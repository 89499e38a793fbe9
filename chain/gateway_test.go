package chain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Well-known throwaway development key; address 0xf39F...2266.
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const testChainID = 42161

var testContracts = Addresses{
	ExchangeRouter:   common.HexToAddress("0x7C68C7866A64FA2160F78EEaE12217FFbf871fa8"),
	SyntheticsRouter: common.HexToAddress("0x7452c558d45f8afC8c83dAe62C3f8A5BE19c71f6"),
	DataStore:        common.HexToAddress("0xFD70de6b91282D8017aA4E741e9Ae325CAb992d8"),
	OrderVault:       common.HexToAddress("0x31eF83a530Fde1B38EE9A18093A333D8Bbbc40D5"),
	WrappedNative:    common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
}

// fakeBackend answers the handful of RPC calls the gateway makes from
// in-memory state.
type fakeBackend struct {
	chainID    *big.Int
	baseFee    *big.Int
	nonce      uint64
	nativeBal  *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]*big.Int
	uints      map[[32]byte]*big.Int
	sent       []*types.Transaction
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:    big.NewInt(testChainID),
		baseFee:    big.NewInt(1_000_000_000),
		nativeBal:  big.NewInt(0),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]*big.Int),
		uints:      make(map[[32]byte]*big.Int),
	}
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	return new(big.Int).Set(f.nativeBal), nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: f.baseFee}, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	f.nonce++
	return nil
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	sel := msg.Data[:4]
	switch {
	case bytes.Equal(sel, erc20ABI.Methods["balanceOf"].ID):
		return encodeUint(f.balances[*msg.To]), nil
	case bytes.Equal(sel, erc20ABI.Methods["allowance"].ID):
		return encodeUint(f.allowances[*msg.To]), nil
	case bytes.Equal(sel, dataStoreABI.Methods["getUint"].ID):
		var key [32]byte
		copy(key[:], msg.Data[4:36])
		return encodeUint(f.uints[key]), nil
	}
	return nil, fmt.Errorf("unexpected call to %s", msg.To.Hex())
}

func encodeUint(v *big.Int) []byte {
	if v == nil {
		v = big.NewInt(0)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

func newTestGateway(t *testing.T, backend *fakeBackend) *Gateway {
	t.Helper()
	gw, err := NewGateway(context.Background(), backend, testKey, testChainID, testContracts, zap.NewNop())
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	return gw
}

func TestNewGatewayRejectsWrongChain(t *testing.T) {
	backend := newFakeBackend()
	backend.chainID = big.NewInt(1)

	_, err := NewGateway(context.Background(), backend, testKey, testChainID, testContracts, zap.NewNop())
	if err == nil {
		t.Fatal("NewGateway() accepted a mismatched chain id")
	}
}

func TestNewGatewayRejectsBadKey(t *testing.T) {
	_, err := NewGateway(context.Background(), newFakeBackend(), "not-a-key", testChainID, testContracts, zap.NewNop())
	if err == nil {
		t.Fatal("NewGateway() accepted a malformed private key")
	}
}

func TestSignerAddress(t *testing.T) {
	gw := newTestGateway(t, newFakeBackend())

	want := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	if got := gw.SignerAddress(); got != want {
		t.Errorf("SignerAddress() = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestBaseFee(t *testing.T) {
	backend := newFakeBackend()
	backend.baseFee = big.NewInt(123)
	gw := newTestGateway(t, backend)

	got, err := gw.BaseFee(context.Background())
	if err != nil {
		t.Fatalf("BaseFee() error = %v", err)
	}
	if got.Int64() != 123 {
		t.Errorf("BaseFee() = %s, want 123", got)
	}
}

func TestBaseFeeRequiresEIP1559(t *testing.T) {
	backend := newFakeBackend()
	backend.baseFee = nil
	gw := newTestGateway(t, backend)

	if _, err := gw.BaseFee(context.Background()); err == nil {
		t.Error("BaseFee() succeeded against a pre-1559 header")
	}
}

func TestSubmitReturnsHash(t *testing.T) {
	backend := newFakeBackend()
	gw := newTestGateway(t, backend)

	signed, err := gw.signTx(&types.DynamicFeeTx{
		ChainID:   gw.ChainID(),
		Nonce:     0,
		To:        &testContracts.ExchangeRouter,
		Value:     big.NewInt(0),
		Gas:       21000,
		GasFeeCap: big.NewInt(1),
		GasTipCap: big.NewInt(0),
	})
	if err != nil {
		t.Fatalf("signTx() error = %v", err)
	}

	id, err := gw.Submit(context.Background(), signed)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id != signed.Hash().Hex() {
		t.Errorf("Submit() = %s, want %s", id, signed.Hash().Hex())
	}
	if len(backend.sent) != 1 {
		t.Errorf("sent %d transactions, want 1", len(backend.sent))
	}
}
