package gmxsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	heartbeatInterval           = 30 * time.Second
	defaultReconnectInterval    = 5 * time.Second
	defaultMaxReconnectAttempts = 10
)

// Price stream action types.
const (
	streamActionHeartbeat   = "HEARTBEAT"
	streamActionSubscribe   = "SUBSCRIBE"
	streamActionUnsubscribe = "UNSUBSCRIBE"
)

type streamSubscribeMessage struct {
	Action string   `json:"action"`
	Tokens []string `json:"tokens"`
}

type streamHeartbeatMessage struct {
	Action string `json:"action"`
}

type streamTicker struct {
	TokenAddress string `json:"tokenAddress"`
	TokenSymbol  string `json:"tokenSymbol"`
	MinPrice     string `json:"minPrice"`
	MaxPrice     string `json:"maxPrice"`
}

// PriceStreamConfig holds configuration for the streaming oracle feed.
type PriceStreamConfig struct {
	Endpoint             string
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	OnQuote              func(PriceQuote)
	OnError              func(err error)
	OnConnect            func()
	OnDisconnect         func()
}

// PriceStream maintains a websocket subscription to the oracle price feed
// and keeps the latest quote per subscribed token. It satisfies OracleSource,
// so a Client can price orders from the stream instead of polling the REST
// snapshot endpoint.
type PriceStream struct {
	config PriceStreamConfig
	conn   *websocket.Conn
	mu     sync.RWMutex

	isConnected      bool
	reconnectAttempt int
	ctx              context.Context
	cancel           context.CancelFunc
	heartbeatTicker  *time.Ticker

	subMu  sync.RWMutex
	tokens map[string]struct{}

	quoteMu sync.RWMutex
	quotes  OracleSnapshot
}

// NewPriceStream creates a price stream client.
func NewPriceStream(config PriceStreamConfig) *PriceStream {
	if config.ReconnectInterval == 0 {
		config.ReconnectInterval = defaultReconnectInterval
	}
	if config.MaxReconnectAttempts == 0 {
		config.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}

	return &PriceStream{
		config: config,
		tokens: make(map[string]struct{}),
		quotes: make(OracleSnapshot),
	}
}

// Connect establishes the websocket connection and starts the read and
// heartbeat loops.
func (ps *PriceStream) Connect(ctx context.Context) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.isConnected {
		return nil
	}

	ps.ctx, ps.cancel = context.WithCancel(ctx)

	conn, _, err := websocket.DefaultDialer.DialContext(ps.ctx, ps.config.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to price stream: %w", err)
	}

	ps.conn = conn
	ps.isConnected = true
	ps.reconnectAttempt = 0

	ps.startHeartbeat()
	go ps.readLoop()

	if ps.config.OnConnect != nil {
		go ps.config.OnConnect()
	}

	return nil
}

// Disconnect closes the connection.
func (ps *PriceStream) Disconnect() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.isConnected {
		return nil
	}
	ps.isConnected = false

	if ps.cancel != nil {
		ps.cancel()
	}
	if ps.heartbeatTicker != nil {
		ps.heartbeatTicker.Stop()
	}

	var err error
	if ps.conn != nil {
		err = ps.conn.Close()
		ps.conn = nil
	}

	if ps.config.OnDisconnect != nil {
		go ps.config.OnDisconnect()
	}

	return err
}

// IsConnected returns the current connection status.
func (ps *PriceStream) IsConnected() bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.isConnected
}

// Subscribe starts streaming quotes for the given token addresses.
func (ps *PriceStream) Subscribe(tokenAddrs ...string) error {
	normalized := make([]string, 0, len(tokenAddrs))
	for _, addr := range tokenAddrs {
		normalized = append(normalized, normalizeAddr(addr))
	}

	if err := ps.sendMessage(streamSubscribeMessage{
		Action: streamActionSubscribe,
		Tokens: normalized,
	}); err != nil {
		return err
	}

	ps.subMu.Lock()
	for _, addr := range normalized {
		ps.tokens[addr] = struct{}{}
	}
	ps.subMu.Unlock()

	return nil
}

// Unsubscribe stops streaming quotes for the given token addresses.
func (ps *PriceStream) Unsubscribe(tokenAddrs ...string) error {
	normalized := make([]string, 0, len(tokenAddrs))
	for _, addr := range tokenAddrs {
		normalized = append(normalized, normalizeAddr(addr))
	}

	if err := ps.sendMessage(streamSubscribeMessage{
		Action: streamActionUnsubscribe,
		Tokens: normalized,
	}); err != nil {
		return err
	}

	ps.subMu.Lock()
	for _, addr := range normalized {
		delete(ps.tokens, addr)
	}
	ps.subMu.Unlock()

	return nil
}

// OraclePrices returns a copy of the latest streamed quotes, satisfying
// OracleSource.
func (ps *PriceStream) OraclePrices(ctx context.Context) (OracleSnapshot, error) {
	ps.quoteMu.RLock()
	defer ps.quoteMu.RUnlock()

	if len(ps.quotes) == 0 {
		return nil, fmt.Errorf("price stream has no quotes yet")
	}

	snapshot := make(OracleSnapshot, len(ps.quotes))
	for addr, quote := range ps.quotes {
		snapshot[addr] = quote
	}
	return snapshot, nil
}

func (ps *PriceStream) sendMessage(msg interface{}) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if !ps.isConnected || ps.conn == nil {
		return fmt.Errorf("price stream not connected")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := ps.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (ps *PriceStream) startHeartbeat() {
	ps.heartbeatTicker = time.NewTicker(heartbeatInterval)

	go func() {
		for {
			select {
			case <-ps.heartbeatTicker.C:
				if err := ps.sendMessage(streamHeartbeatMessage{Action: streamActionHeartbeat}); err != nil {
					if ps.config.OnError != nil {
						ps.config.OnError(fmt.Errorf("heartbeat failed: %w", err))
					}
				}
			case <-ps.ctx.Done():
				return
			}
		}
	}()
}

func (ps *PriceStream) readLoop() {
	for {
		select {
		case <-ps.ctx.Done():
			return
		default:
			ps.mu.RLock()
			conn := ps.conn
			ps.mu.RUnlock()

			if conn == nil {
				return
			}

			_, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
					ps.config.OnError != nil {
					ps.config.OnError(fmt.Errorf("read error: %w", err))
				}
				ps.handleDisconnect()
				return
			}

			ps.handleTicker(data)
		}
	}
}

func (ps *PriceStream) handleTicker(data []byte) {
	var ticker streamTicker
	if err := json.Unmarshal(data, &ticker); err != nil {
		if ps.config.OnError != nil {
			ps.config.OnError(fmt.Errorf("decode ticker: %w", err))
		}
		return
	}
	if ticker.TokenAddress == "" {
		// Heartbeat acks and subscription confirmations carry no ticker.
		return
	}

	min, err := decimal.NewFromString(ticker.MinPrice)
	if err != nil {
		if ps.config.OnError != nil {
			ps.config.OnError(fmt.Errorf("parse min price for %s: %w", ticker.TokenSymbol, err))
		}
		return
	}
	max, err := decimal.NewFromString(ticker.MaxPrice)
	if err != nil {
		if ps.config.OnError != nil {
			ps.config.OnError(fmt.Errorf("parse max price for %s: %w", ticker.TokenSymbol, err))
		}
		return
	}

	quote := PriceQuote{TokenAddr: normalizeAddr(ticker.TokenAddress), Min: min, Max: max}

	ps.quoteMu.Lock()
	ps.quotes[quote.TokenAddr] = quote
	ps.quoteMu.Unlock()

	if ps.config.OnQuote != nil {
		ps.config.OnQuote(quote)
	}
}

func (ps *PriceStream) handleDisconnect() {
	ps.mu.Lock()
	wasConnected := ps.isConnected
	ps.isConnected = false
	if ps.heartbeatTicker != nil {
		ps.heartbeatTicker.Stop()
	}
	ps.mu.Unlock()

	if wasConnected && ps.config.OnDisconnect != nil {
		ps.config.OnDisconnect()
	}

	go ps.attemptReconnect()
}

func (ps *PriceStream) attemptReconnect() {
	// Connect writes ctx and the attempt counter under the lock; snapshot
	// both here instead of racing it.
	ps.mu.RLock()
	ctx := ps.ctx
	attempt := ps.reconnectAttempt
	ps.mu.RUnlock()

	for attempt < ps.config.MaxReconnectAttempts {
		attempt++
		ps.mu.Lock()
		ps.reconnectAttempt = attempt
		ps.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(ps.config.ReconnectInterval):
		}

		if err := ps.Connect(context.Background()); err != nil {
			if ps.config.OnError != nil {
				ps.config.OnError(fmt.Errorf("reconnect attempt %d failed: %w", attempt, err))
			}
			continue
		}

		ps.resubscribe()
		return
	}

	if ps.config.OnError != nil {
		ps.config.OnError(fmt.Errorf("max reconnect attempts (%d) reached", ps.config.MaxReconnectAttempts))
	}
}

func (ps *PriceStream) resubscribe() {
	ps.subMu.RLock()
	tokens := make([]string, 0, len(ps.tokens))
	for addr := range ps.tokens {
		tokens = append(tokens, addr)
	}
	ps.subMu.RUnlock()

	if len(tokens) == 0 {
		return
	}

	if err := ps.sendMessage(streamSubscribeMessage{
		Action: streamActionSubscribe,
		Tokens: tokens,
	}); err != nil && ps.config.OnError != nil {
		ps.config.OnError(fmt.Errorf("resubscribe failed: %w", err))
	}
}
