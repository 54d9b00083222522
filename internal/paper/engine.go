package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rughunter/rughunter/internal/pricefeed"
)

// ---------------------------------------------------------------------------
// Paper Engine — simulated trade execution with per-chain balances
// ---------------------------------------------------------------------------

// Config controls the simulated execution environment.
type Config struct {
	// SlippageBps is applied on both sides of a round trip: buys fill at
	// price*(1+bps/10000), sells at price*(1-bps/10000).
	SlippageBps float64 `yaml:"slippage_bps"`

	// Balances seeds the per-chain native balance, in whole native units.
	Balances map[string]float64 `yaml:"balances"`
}

// DefaultConfig returns the stock paper environment.
func DefaultConfig() Config {
	return Config{
		SlippageBps: 50,
		Balances: map[string]float64{
			"ethereum": 1.0,
			"bsc":      0.5,
		},
	}
}

// Position is one simulated holding. RemainingPct is the share of the
// original size still held; 0 means closed.
type Position struct {
	ID           string          `json:"position_id"`
	Token        common.Address  `json:"token"`
	Chain        string          `json:"chain"`
	EntryPrice   decimal.Decimal `json:"entry_price"` // USD per token, slippage included
	Tokens       decimal.Decimal `json:"tokens"`      // original token amount
	AmountNative decimal.Decimal `json:"amount_native"`
	RemainingPct float64         `json:"remaining_pct"`
	Closed       bool            `json:"closed"`
	OpenedAt     time.Time       `json:"opened_at"`
	ClosedAt     time.Time       `json:"closed_at,omitempty"`
}

// BuyResult reports a simulated fill.
type BuyResult struct {
	PositionID     string          `json:"position_id"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	TokensReceived decimal.Decimal `json:"tokens_received"`
	AmountUSD      decimal.Decimal `json:"amount_usd"`
}

// SellResult reports a simulated (partial) exit.
type SellResult struct {
	PositionID  string          `json:"position_id"`
	TokensSold  decimal.Decimal `json:"tokens_sold"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	PnLPercent  float64         `json:"pnl_percent"`
	PnLUSD      decimal.Decimal `json:"pnl_usd"`
	PercentSold float64         `json:"percent_sold"` // of the original size
	Reason      string          `json:"reason"`
	Closed      bool            `json:"closed"`
}

// Engine holds paper balances and open positions. Prices come from the
// feed at fill time; nothing touches a chain.
type Engine struct {
	config Config
	feed   pricefeed.Feed
	native pricefeed.NativeSource

	mu        sync.Mutex
	balances  map[string]decimal.Decimal
	positions map[string]*Position
}

// NewEngine creates a paper engine seeded with the configured balances.
func NewEngine(config Config, feed pricefeed.Feed, native pricefeed.NativeSource) *Engine {
	balances := make(map[string]decimal.Decimal, len(config.Balances))
	for chain, bal := range config.Balances {
		balances[chain] = decimal.NewFromFloat(bal)
	}
	log.Info().
		Float64("slippage_bps", config.SlippageBps).
		Int("chains", len(balances)).
		Msg("paper: engine initialized")
	return &Engine{
		config:    config,
		feed:      feed,
		native:    native,
		balances:  balances,
		positions: make(map[string]*Position),
	}
}

// Buy opens a simulated position, spending amountNative from the chain's
// paper balance at the feed price plus slippage.
func (e *Engine) Buy(ctx context.Context, token common.Address, chain string, amountNative decimal.Decimal) (*BuyResult, error) {
	if !amountNative.IsPositive() {
		return nil, fmt.Errorf("paper buy: non-positive amount %s", amountNative)
	}

	price, err := e.feed.CurrentPrice(ctx, token.Hex(), chain)
	if err != nil {
		return nil, fmt.Errorf("paper buy: price unavailable: %w", err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("paper buy: zero price for %s", token.Hex())
	}

	nativeUSD := e.native.PriceUSD(chain)
	if !nativeUSD.IsPositive() {
		return nil, fmt.Errorf("paper buy: no native price for chain %q", chain)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	balance, ok := e.balances[chain]
	if !ok || balance.LessThan(amountNative) {
		return nil, fmt.Errorf("paper buy: insufficient %s balance (%s < %s)",
			chain, balance, amountNative)
	}
	e.balances[chain] = balance.Sub(amountNative)

	entryPrice := price.Mul(decimal.NewFromFloat(1 + e.config.SlippageBps/10_000))
	amountUSD := amountNative.Mul(nativeUSD)
	tokens := amountUSD.Div(entryPrice)

	pos := &Position{
		ID:           uuid.New().String(),
		Token:        token,
		Chain:        chain,
		EntryPrice:   entryPrice,
		Tokens:       tokens,
		AmountNative: amountNative,
		RemainingPct: 100,
		OpenedAt:     time.Now(),
	}
	e.positions[pos.ID] = pos

	log.Info().
		Str("position_id", pos.ID).
		Str("token", token.Hex()).
		Str("chain", chain).
		Str("entry_price", entryPrice.String()).
		Str("tokens", tokens.String()).
		Str("amount_native", amountNative.String()).
		Msg("paper: position opened")

	return &BuyResult{
		PositionID:     pos.ID,
		EntryPrice:     entryPrice,
		TokensReceived: tokens,
		AmountUSD:      amountUSD,
	}, nil
}

// Sell closes percent of the ORIGINAL position size at the current feed
// price minus slippage, capped by whatever is still held. Selling an
// already-closed position is a no-op, not an error.
func (e *Engine) Sell(ctx context.Context, positionID string, percent float64, reason string) (*SellResult, error) {
	if percent <= 0 {
		return nil, fmt.Errorf("paper sell: non-positive percent %.2f", percent)
	}

	e.mu.Lock()
	pos, ok := e.positions[positionID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("paper sell: unknown position %s", positionID)
	}

	price, err := e.feed.CurrentPrice(ctx, pos.Token.Hex(), pos.Chain)
	if err != nil {
		return nil, fmt.Errorf("paper sell: price unavailable: %w", err)
	}

	nativeUSD := e.native.PriceUSD(pos.Chain)
	if !nativeUSD.IsPositive() {
		return nil, fmt.Errorf("paper sell: no native price for chain %q", pos.Chain)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if pos.Closed {
		return &SellResult{PositionID: positionID, Reason: reason, Closed: true}, nil
	}

	if percent > pos.RemainingPct {
		percent = pos.RemainingPct
	}

	exitPrice := price.Mul(decimal.NewFromFloat(1 - e.config.SlippageBps/10_000))
	tokensSold := pos.Tokens.Mul(decimal.NewFromFloat(percent / 100))
	proceedsUSD := tokensSold.Mul(exitPrice)
	costUSD := tokensSold.Mul(pos.EntryPrice)
	pnlUSD := proceedsUSD.Sub(costUSD)
	pnlPct, _ := exitPrice.Sub(pos.EntryPrice).
		Div(pos.EntryPrice).
		Mul(decimal.NewFromInt(100)).Float64()

	e.balances[pos.Chain] = e.balances[pos.Chain].Add(proceedsUSD.Div(nativeUSD))

	pos.RemainingPct -= percent
	closed := pos.RemainingPct <= 0
	if closed {
		pos.RemainingPct = 0
		pos.Closed = true
		pos.ClosedAt = time.Now()
	}

	log.Info().
		Str("position_id", positionID).
		Str("exit_price", exitPrice.String()).
		Float64("percent", percent).
		Float64("pnl_percent", pnlPct).
		Str("pnl_usd", pnlUSD.StringFixed(2)).
		Str("reason", reason).
		Bool("closed", closed).
		Msg("paper: position sold")

	return &SellResult{
		PositionID:  positionID,
		TokensSold:  tokensSold,
		ExitPrice:   exitPrice,
		PnLPercent:  pnlPct,
		PnLUSD:      pnlUSD,
		PercentSold: percent,
		Reason:      reason,
		Closed:      closed,
	}, nil
}

// Balance returns the paper balance for a chain in native units.
func (e *Engine) Balance(chain string) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[chain]
}

// Position returns a copy of the position, or nil when unknown.
func (e *Engine) Position(positionID string) *Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.positions[positionID]
	if !ok {
		return nil
	}
	snapshot := *pos
	return &snapshot
}

// OpenPositions returns copies of every position still holding tokens.
func (e *Engine) OpenPositions() []*Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Position, 0, len(e.positions))
	for _, pos := range e.positions {
		if !pos.Closed {
			snapshot := *pos
			out = append(out, &snapshot)
		}
	}
	return out
}
