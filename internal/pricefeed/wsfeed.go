package pricefeed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// WebSocket price feed — JSON price ticks with automatic reconnect
// ---------------------------------------------------------------------------

// WSFeedConfig configures the websocket price feed.
type WSFeedConfig struct {
	Endpoint         string `yaml:"endpoint"`
	ReconnectDelayMs int    `yaml:"reconnect_delay_ms"`
	PingIntervalS    int    `yaml:"ping_interval_s"`
	StaleAfterS      int    `yaml:"stale_after_s"`
}

// DefaultWSFeedConfig returns defaults suitable for public tick streams.
func DefaultWSFeedConfig() WSFeedConfig {
	return WSFeedConfig{
		ReconnectDelayMs: 1000,
		PingIntervalS:    30,
		StaleAfterS:      120,
	}
}

// priceTick is one inbound JSON message.
type priceTick struct {
	Token string  `json:"token"`
	Chain string  `json:"chain"`
	Price float64 `json:"price_usd"`
}

// WSFeed consumes a JSON price-tick stream and serves the last tick per
// (token, chain). CurrentPrice fails for tokens with no fresh tick, so
// callers fall back to their configured feed.
type WSFeed struct {
	config WSFeedConfig

	mu    sync.RWMutex
	conn  *websocket.Conn
	last  map[string]decimal.Decimal
	seen  map[string]time.Time

	connected  atomic.Bool
	ticksRecv  atomic.Int64
	reconnects atomic.Int64
}

var _ Feed = (*WSFeed)(nil)

// NewWSFeed creates a feed for the given tick stream endpoint.
func NewWSFeed(config WSFeedConfig) *WSFeed {
	if config.ReconnectDelayMs == 0 {
		config.ReconnectDelayMs = 1000
	}
	if config.StaleAfterS == 0 {
		config.StaleAfterS = 120
	}
	return &WSFeed{
		config: config,
		last:   make(map[string]decimal.Decimal),
		seen:   make(map[string]time.Time),
	}
}

// Start runs the connect/read/reconnect loop until ctx is cancelled.
func (f *WSFeed) Start(ctx context.Context) {
	reconnectDelay := time.Duration(f.config.ReconnectDelayMs) * time.Millisecond
	maxDelay := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			f.disconnect()
			return
		default:
		}

		if err := f.connect(ctx); err != nil {
			log.Warn().Err(err).Str("endpoint", f.config.Endpoint).Msg("pricefeed: ws connect failed")
			f.reconnects.Add(1)
			select {
			case <-time.After(reconnectDelay):
				reconnectDelay *= 2
				if reconnectDelay > maxDelay {
					reconnectDelay = maxDelay
				}
			case <-ctx.Done():
				return
			}
			continue
		}
		reconnectDelay = time.Duration(f.config.ReconnectDelayMs) * time.Millisecond

		f.readLoop(ctx)
	}
}

func (f *WSFeed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.config.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("pricefeed: dial: %w", err)
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	f.connected.Store(true)

	log.Info().Str("endpoint", f.config.Endpoint).Msg("pricefeed: ws connected")
	return nil
}

func (f *WSFeed) disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connected.Store(false)
}

func (f *WSFeed) readLoop(ctx context.Context) {
	pingInterval := time.Duration(f.config.PingIntervalS) * time.Second
	if pingInterval == 0 {
		pingInterval = 30 * time.Second
	}
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-pingTicker.C:
				f.mu.RLock()
				conn := f.conn
				f.mu.RUnlock()
				if conn != nil {
					conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			f.disconnect()
			return
		default:
		}

		f.mu.RLock()
		conn := f.conn
		f.mu.RUnlock()
		if conn == nil {
			return
		}

		var tick priceTick
		if err := conn.ReadJSON(&tick); err != nil {
			log.Warn().Err(err).Msg("pricefeed: ws read failed, reconnecting")
			f.disconnect()
			f.reconnects.Add(1)
			return
		}
		f.ticksRecv.Add(1)

		if tick.Token == "" || tick.Price <= 0 {
			continue
		}
		key := feedKey(tick.Token, tick.Chain)
		f.mu.Lock()
		f.last[key] = decimal.NewFromFloat(tick.Price)
		f.seen[key] = time.Now()
		f.mu.Unlock()
	}
}

// CurrentPrice returns the last tick for (token, chain), failing when no
// tick arrived or the last one is stale.
func (f *WSFeed) CurrentPrice(_ context.Context, token, chain string) (decimal.Decimal, error) {
	key := feedKey(token, chain)
	f.mu.RLock()
	price, ok := f.last[key]
	at := f.seen[key]
	f.mu.RUnlock()

	if !ok {
		return decimal.Zero, fmt.Errorf("pricefeed: no tick for %s on %s", token, chain)
	}
	if time.Since(at) > time.Duration(f.config.StaleAfterS)*time.Second {
		return decimal.Zero, fmt.Errorf("pricefeed: stale tick for %s on %s", token, chain)
	}
	return price, nil
}

// FeedStats is a snapshot of feed health.
type FeedStats struct {
	Connected  bool  `json:"connected"`
	TicksRecv  int64 `json:"ticks_recv"`
	Reconnects int64 `json:"reconnects"`
	Tracked    int   `json:"tracked"`
}

// Stats returns feed counters.
func (f *WSFeed) Stats() FeedStats {
	f.mu.RLock()
	tracked := len(f.last)
	f.mu.RUnlock()
	return FeedStats{
		Connected:  f.connected.Load(),
		TicksRecv:  f.ticksRecv.Load(),
		Reconnects: f.reconnects.Load(),
		Tracked:    tracked,
	}
}
