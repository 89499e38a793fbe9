package gmxsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TokenSource supplies token metadata keyed by normalized address.
type TokenSource interface {
	Tokens(ctx context.Context) (map[string]TokenInfo, error)
}

// MarketSource supplies market metadata keyed by normalized index-token
// address.
type MarketSource interface {
	Markets(ctx context.Context) (map[string]MarketInfo, error)
}

// OracleSource supplies a fresh oracle price snapshot.
type OracleSource interface {
	OraclePrices(ctx context.Context) (OracleSnapshot, error)
}

// Registry fetches token metadata, market metadata and oracle prices from the
// venue's info API for one chain. Token and market responses are cached with
// a TTL; oracle prices are always fetched fresh because execution prices must
// reflect the price at submission time.
type Registry struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger

	cacheTTL  time.Duration
	mu        sync.RWMutex
	tokens    map[string]TokenInfo
	tokensAt  time.Time
	markets   map[string]MarketInfo
	marketsAt time.Time
}

// NewRegistry creates a registry client for the given chain.
func NewRegistry(chainName string, log *zap.Logger) (*Registry, error) {
	baseURL, ok := APIBaseURLs[chainName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedChain, chainName)
	}

	return &Registry{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      log,
		cacheTTL: 5 * time.Minute,
	}, nil
}

func (r *Registry) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := string(body)
		if detail == "" {
			detail = resp.Status
		}
		return fmt.Errorf("%s: HTTP %d: %s", endpoint, resp.StatusCode, detail)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	return nil
}

// Tokens returns the token registry keyed by normalized address.
func (r *Registry) Tokens(ctx context.Context) (map[string]TokenInfo, error) {
	r.mu.RLock()
	if r.tokens != nil && time.Since(r.tokensAt) < r.cacheTTL {
		cached := r.tokens
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	var payload struct {
		Tokens []TokenInfo `json:"tokens"`
	}
	if err := r.get(ctx, "/tokens", &payload); err != nil {
		return nil, err
	}

	tokens := make(map[string]TokenInfo, len(payload.Tokens))
	for _, t := range payload.Tokens {
		t.Address = normalizeAddr(t.Address)
		tokens[t.Address] = t
	}

	r.mu.Lock()
	r.tokens = tokens
	r.tokensAt = time.Now()
	r.mu.Unlock()

	r.log.Debug("token registry refreshed", zap.Int("tokens", len(tokens)))
	return tokens, nil
}

// TokenBySymbol finds a token by its ticker symbol.
func (r *Registry) TokenBySymbol(ctx context.Context, symbol string) (TokenInfo, error) {
	tokens, err := r.Tokens(ctx)
	if err != nil {
		return TokenInfo{}, err
	}
	for _, t := range tokens {
		if t.Symbol == symbol {
			return t, nil
		}
	}
	return TokenInfo{}, fmt.Errorf("token symbol %q not found in registry", symbol)
}

// Markets returns the market registry keyed by normalized index-token
// address.
func (r *Registry) Markets(ctx context.Context) (map[string]MarketInfo, error) {
	r.mu.RLock()
	if r.markets != nil && time.Since(r.marketsAt) < r.cacheTTL {
		cached := r.markets
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	var payload struct {
		Markets []MarketInfo `json:"markets"`
	}
	if err := r.get(ctx, "/markets", &payload); err != nil {
		return nil, err
	}

	markets := make(map[string]MarketInfo, len(payload.Markets))
	for _, m := range payload.Markets {
		m.MarketKey = normalizeAddr(m.MarketKey)
		m.IndexToken = normalizeAddr(m.IndexToken)
		m.LongToken = normalizeAddr(m.LongToken)
		m.ShortToken = normalizeAddr(m.ShortToken)
		markets[m.IndexToken] = m
	}

	r.mu.Lock()
	r.markets = markets
	r.marketsAt = time.Now()
	r.mu.Unlock()

	r.log.Debug("market registry refreshed", zap.Int("markets", len(markets)))
	return markets, nil
}

// OraclePrices fetches the current bid/ask per token. Never cached.
func (r *Registry) OraclePrices(ctx context.Context) (OracleSnapshot, error) {
	var payload []struct {
		TokenAddress string `json:"tokenAddress"`
		TokenSymbol  string `json:"tokenSymbol"`
		MinPrice     string `json:"minPrice"`
		MaxPrice     string `json:"maxPrice"`
	}
	if err := r.get(ctx, "/prices/tickers", &payload); err != nil {
		return nil, err
	}

	snapshot := make(OracleSnapshot, len(payload))
	for _, p := range payload {
		min, err := decimal.NewFromString(p.MinPrice)
		if err != nil {
			return nil, fmt.Errorf("parse min price for %s: %w", p.TokenSymbol, err)
		}
		max, err := decimal.NewFromString(p.MaxPrice)
		if err != nil {
			return nil, fmt.Errorf("parse max price for %s: %w", p.TokenSymbol, err)
		}
		addr := normalizeAddr(p.TokenAddress)
		snapshot[addr] = PriceQuote{TokenAddr: addr, Min: min, Max: max}
	}

	r.log.Debug("oracle snapshot fetched", zap.Int("quotes", len(snapshot)))
	return snapshot, nil
}
