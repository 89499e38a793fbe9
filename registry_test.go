package gmxsdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T, handler http.Handler) (*Registry, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r := &Registry{
		baseURL:  srv.URL,
		client:   srv.Client(),
		log:      zap.NewNop(),
		cacheTTL: 5 * time.Minute,
	}
	return r, srv
}

func TestRegistryTokens(t *testing.T) {
	var hits int32
	r, _ := testRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/tokens" {
			t.Errorf("path = %s, want /tokens", req.URL.Path)
		}
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"tokens":[
			{"address":"0x2f2a2543b76a4166549f7aab2e75bef0aefc5b0f","symbol":"WBTC.b","decimals":8},
			{"address":"0xaf88d065e77c8cc2239327c5edb3a432268e5831","symbol":"USDC","decimals":6}
		]}`))
	}))

	tokens, err := r.Tokens(context.Background())
	if err != nil {
		t.Fatalf("Tokens() error = %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("len(tokens) = %d, want 2", len(tokens))
	}

	// Keys are checksummed regardless of the API's casing.
	got, ok := tokens[normalizeAddr(wbtcAddr)]
	if !ok {
		t.Fatal("WBTC.b missing under its normalized address")
	}
	if got.Symbol != "WBTC.b" || got.Decimals != 8 {
		t.Errorf("token = %+v, want WBTC.b with 8 decimals", got)
	}

	// Second read is served from cache.
	if _, err := r.Tokens(context.Background()); err != nil {
		t.Fatalf("Tokens() error = %v", err)
	}
	if hits != 1 {
		t.Errorf("API hit %d times, want 1 within the TTL", hits)
	}
}

func TestRegistryTokenBySymbol(t *testing.T) {
	r, _ := testRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"tokens":[{"address":"0xaf88d065e77c8cc2239327c5edb3a432268e5831","symbol":"USDC","decimals":6}]}`))
	}))

	token, err := r.TokenBySymbol(context.Background(), "USDC")
	if err != nil {
		t.Fatalf("TokenBySymbol() error = %v", err)
	}
	if token.Decimals != 6 {
		t.Errorf("Decimals = %d, want 6", token.Decimals)
	}

	if _, err := r.TokenBySymbol(context.Background(), "DOGE"); err == nil {
		t.Error("TokenBySymbol() found a symbol the registry does not list")
	}
}

func TestRegistryMarkets(t *testing.T) {
	r, _ := testRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/markets" {
			t.Errorf("path = %s, want /markets", req.URL.Path)
		}
		w.Write([]byte(`{"markets":[{
			"marketToken":"0x47c031236e19d024b42f8ae6780e44a573170703",
			"indexToken":"0x47904963fc8b2340414262125af798b9655e58cd",
			"longToken":"0x2f2a2543b76a4166549f7aab2e75bef0aefc5b0f",
			"shortToken":"0xaf88d065e77c8cc2239327c5edb3a432268e5831"
		}]}`))
	}))

	markets, err := r.Markets(context.Background())
	if err != nil {
		t.Fatalf("Markets() error = %v", err)
	}

	market, ok := markets[normalizeAddr(syntheticBTC)]
	if !ok {
		t.Fatal("market missing under its normalized index-token address")
	}
	if market.MarketKey != normalizeAddr(btcMarketKey) {
		t.Errorf("MarketKey = %s, want %s", market.MarketKey, normalizeAddr(btcMarketKey))
	}
}

func TestRegistryOraclePricesNeverCached(t *testing.T) {
	var hits int32
	r, _ := testRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/prices/tickers" {
			t.Errorf("path = %s, want /prices/tickers", req.URL.Path)
		}
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`[{
			"tokenAddress":"0x2f2a2543b76a4166549f7aab2e75bef0aefc5b0f",
			"tokenSymbol":"WBTC.b",
			"minPrice":"600000000000000000000000000",
			"maxPrice":"600100000000000000000000000"
		}]`))
	}))

	snap, err := r.OraclePrices(context.Background())
	if err != nil {
		t.Fatalf("OraclePrices() error = %v", err)
	}
	quote, ok := snap.Quote(wbtcAddr)
	if !ok {
		t.Fatal("quote missing for WBTC.b")
	}
	if !quote.Min.Equal(decimal.RequireFromString("600000000000000000000000000")) {
		t.Errorf("Min = %s, want the raw feed value", quote.Min)
	}

	if _, err := r.OraclePrices(context.Background()); err != nil {
		t.Fatalf("OraclePrices() error = %v", err)
	}
	if hits != 2 {
		t.Errorf("API hit %d times, want a fresh read per call", hits)
	}
}

func TestRegistryHTTPError(t *testing.T) {
	r, _ := testRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))

	if _, err := r.Tokens(context.Background()); err == nil {
		t.Error("Tokens() succeeded against a 502")
	}
}

func TestNewRegistryUnsupportedChain(t *testing.T) {
	if _, err := NewRegistry("fantom", zap.NewNop()); err == nil {
		t.Error("NewRegistry() accepted an unsupported chain")
	}
}
