package monitor

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rughunter/rughunter/internal/pricefeed"
)

// ---------------------------------------------------------------------------
// Position Monitor — trailing stop + staged take-profit supervisor
// ---------------------------------------------------------------------------

// SellReceipt reports the realized outcome of one executed sell.
type SellReceipt struct {
	PnLPercent float64
	PnLUSD     decimal.Decimal
}

// Executor executes (partial) exits. percent is a share of the ORIGINAL
// position size.
type Executor interface {
	Sell(ctx context.Context, positionID string, percent float64, reason string) (SellReceipt, error)
}

// Config controls the supervision loop.
type Config struct {
	TickInterval time.Duration `yaml:"tick_interval"`

	// TrailingActivationPct is the unrealized gain (percent over entry)
	// required before the trailing stop starts ratcheting.
	TrailingActivationPct float64 `yaml:"trailing_activation_pct"`

	// TrailingDistancePct is the stop's distance below the highest seen
	// price once trailing is active.
	TrailingDistancePct float64 `yaml:"trailing_distance_pct"`

	// ClosedRetention caps how many closed positions stay queryable via
	// PositionStatus; older ones are pruned each tick.
	ClosedRetention int `yaml:"closed_retention"`
}

// DefaultConfig returns the stock supervision settings.
func DefaultConfig() Config {
	return Config{
		TickInterval:          5 * time.Second,
		TrailingActivationPct: 10,
		TrailingDistancePct:   5,
		ClosedRetention:       256,
	}
}

// ClosedPosition is emitted on the Closed channel when a position ends.
type ClosedPosition struct {
	ID             string
	Token          common.Address
	Chain          string
	Reason         string
	RealizedPnLUSD decimal.Decimal
}

// Stats is a snapshot of the monitor's counters.
type Stats struct {
	ActivePositions int    `json:"active_positions"`
	ClosedPositions int    `json:"closed_positions"`
	Ticks           uint64 `json:"ticks"`
	SellsExecuted   uint64 `json:"sells_executed"`
	StopLosses      uint64 `json:"stop_losses"`
}

// Monitor supervises open positions: one loop ticks them all, each
// position carries its own lock.
type Monitor struct {
	config Config
	feed   pricefeed.Feed
	exec   Executor

	mu        sync.RWMutex
	positions map[string]*Position

	closedCh chan ClosedPosition

	ticks       atomic.Uint64
	sells       atomic.Uint64
	stopLosses  atomic.Uint64
	closedTotal atomic.Uint64
	lastTickNs  atomic.Int64
}

// New creates a monitor. Run starts the loop.
func New(config Config, feed pricefeed.Feed, exec Executor) *Monitor {
	if config.ClosedRetention == 0 {
		config.ClosedRetention = 256
	}
	return &Monitor{
		config:    config,
		feed:      feed,
		exec:      exec,
		positions: make(map[string]*Position),
		closedCh:  make(chan ClosedPosition, 64),
	}
}

// Track registers a position for supervision. Steps are sorted by trigger
// price so one tick that jumps several levels executes them in order.
func (m *Monitor) Track(id string, token common.Address, chain, symbol string, entry, stop decimal.Decimal, steps []ExitStep) *Position {
	sorted := make([]ExitStep, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Price.LessThan(sorted[j].Price)
	})

	p := &Position{
		ID:           id,
		Token:        token,
		Chain:        chain,
		Symbol:       symbol,
		EntryPrice:   entry,
		StopPrice:    stop,
		HighestPrice: entry,
		Steps:        sorted,
		RemainingPct: 100,
		Status:       StatusActive,
		OpenedAt:     time.Now(),
	}

	m.mu.Lock()
	m.positions[id] = p
	m.mu.Unlock()

	log.Info().
		Str("position_id", id).
		Str("token", token.Hex()).
		Str("chain", chain).
		Str("symbol", symbol).
		Str("entry", entry.String()).
		Str("stop", stop.String()).
		Int("exit_steps", len(sorted)).
		Msg("monitor: position tracked")
	return p
}

// Run ticks all active positions until the context ends.
func (m *Monitor) Run(ctx context.Context) error {
	log.Info().
		Dur("tick_interval", m.config.TickInterval).
		Msg("monitor: started")

	ticker := time.NewTicker(m.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("monitor: stopped")
			return nil
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick runs one supervision pass over every active position.
func (m *Monitor) tick(ctx context.Context) {
	m.ticks.Add(1)
	m.lastTickNs.Store(time.Now().UnixNano())

	m.mu.RLock()
	active := make([]*Position, 0, len(m.positions))
	for _, p := range m.positions {
		active = append(active, p)
	}
	m.mu.RUnlock()

	for _, p := range active {
		if ctx.Err() != nil {
			return
		}
		m.checkPosition(ctx, p)
	}

	m.pruneClosed()
}

// pruneClosed drops the oldest closed positions beyond the retention cap
// so the map stays bounded over a long run. Runs outside any position
// lock held by a tick.
func (m *Monitor) pruneClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	type closedEntry struct {
		id string
		at time.Time
	}
	var closed []closedEntry
	for id, p := range m.positions {
		p.mu.Lock()
		if p.Status == StatusClosed {
			closed = append(closed, closedEntry{id: id, at: p.ClosedAt})
		}
		p.mu.Unlock()
	}
	if len(closed) <= m.config.ClosedRetention {
		return
	}

	sort.Slice(closed, func(i, j int) bool {
		return closed[i].at.Before(closed[j].at)
	})
	for _, entry := range closed[:len(closed)-m.config.ClosedRetention] {
		delete(m.positions, entry.id)
	}
}

// checkPosition applies one tick to a single position: ratchet the
// trailing stop on new highs, close fully on a stop hit, otherwise
// execute any reached exit steps in ascending trigger order.
func (m *Monitor) checkPosition(ctx context.Context, p *Position) {
	price, err := m.feed.CurrentPrice(ctx, p.Token.Hex(), p.Chain)
	if err != nil {
		log.Debug().
			Str("position_id", p.ID).
			Err(err).
			Msg("monitor: price unavailable, skipping tick")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Status != StatusActive {
		return
	}

	if price.GreaterThan(p.HighestPrice) {
		p.HighestPrice = price
		m.ratchetStop(p)
	}

	if price.LessThanOrEqual(p.StopPrice) {
		m.sellAndReduce(ctx, p, p.RemainingPct, "STOP_LOSS")
		return
	}

	for i := range p.Steps {
		step := &p.Steps[i]
		if step.Executed || price.LessThan(step.Price) {
			continue
		}
		pct := step.SellPercent
		if pct > p.RemainingPct {
			pct = p.RemainingPct
		}
		if pct > 0 {
			if !m.sellAndReduce(ctx, p, pct, step.Reason) {
				// Execution failed; leave the step pending for the next tick.
				return
			}
		}
		step.Executed = true
		if p.Status == StatusClosed {
			return
		}
	}

	// A ladder that sums below 100 still ends the position once every
	// step has fired.
	if p.RemainingPct > 0 && allExecuted(p.Steps) && len(p.Steps) > 0 {
		m.sellAndReduce(ctx, p, p.RemainingPct, "EXITS_COMPLETE")
	}
}

// ratchetStop raises the stop toward the new high once the activation
// gain is reached. The stop never moves down. Callers hold p.mu.
func (m *Monitor) ratchetStop(p *Position) {
	if !p.EntryPrice.IsPositive() {
		return
	}

	if !p.TrailingActive {
		gainPct := p.HighestPrice.Sub(p.EntryPrice).
			Div(p.EntryPrice).
			Mul(decimal.NewFromInt(100))
		if gainPct.LessThan(decimal.NewFromFloat(m.config.TrailingActivationPct)) {
			return
		}
		p.TrailingActive = true
		log.Info().
			Str("position_id", p.ID).
			Str("highest", p.HighestPrice.String()).
			Msg("monitor: trailing stop activated")
	}

	candidate := p.HighestPrice.Mul(decimal.NewFromFloat(1 - m.config.TrailingDistancePct/100))
	if candidate.GreaterThan(p.StopPrice) {
		p.StopPrice = candidate
		log.Debug().
			Str("position_id", p.ID).
			Str("stop", p.StopPrice.String()).
			Msg("monitor: stop ratcheted")
	}
}

// sellAndReduce executes a sell of pct (of the original size), reduces
// RemainingPct, and closes the position when nothing remains. Returns
// false when the executor failed. Callers hold p.mu.
func (m *Monitor) sellAndReduce(ctx context.Context, p *Position, pct float64, reason string) bool {
	receipt, err := m.exec.Sell(ctx, p.ID, pct, reason)
	if err != nil {
		log.Error().
			Str("position_id", p.ID).
			Float64("percent", pct).
			Str("reason", reason).
			Err(err).
			Msg("monitor: sell failed, will retry")
		return false
	}

	m.sells.Add(1)
	if reason == "STOP_LOSS" {
		m.stopLosses.Add(1)
	}

	p.RealizedPnLUSD = p.RealizedPnLUSD.Add(receipt.PnLUSD)
	p.RemainingPct -= pct
	if p.RemainingPct <= 0 {
		p.RemainingPct = 0
		m.closePosition(p, reason)
	}
	return true
}

// closePosition marks the position closed and emits it. Callers hold p.mu.
func (m *Monitor) closePosition(p *Position, reason string) {
	p.Status = StatusClosed
	p.CloseReason = reason
	p.ClosedAt = time.Now()
	m.closedTotal.Add(1)

	log.Info().
		Str("position_id", p.ID).
		Str("symbol", p.Symbol).
		Str("reason", reason).
		Str("realized_pnl_usd", p.RealizedPnLUSD.StringFixed(2)).
		Msg("monitor: position closed")

	select {
	case m.closedCh <- ClosedPosition{
		ID:             p.ID,
		Token:          p.Token,
		Chain:          p.Chain,
		Reason:         reason,
		RealizedPnLUSD: p.RealizedPnLUSD,
	}:
	default:
		log.Warn().Str("position_id", p.ID).Msg("monitor: closed channel full, dropping event")
	}
}

// Closed delivers positions as they finish.
func (m *Monitor) Closed() <-chan ClosedPosition {
	return m.closedCh
}

// PositionStatus returns a snapshot of one position.
func (m *Monitor) PositionStatus(id string) (View, bool) {
	m.mu.RLock()
	p, ok := m.positions[id]
	m.mu.RUnlock()
	if !ok {
		return View{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view(), true
}

// ActivePositions returns snapshots of every position still open.
func (m *Monitor) ActivePositions() []View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]View, 0, len(m.positions))
	for _, p := range m.positions {
		p.mu.Lock()
		if p.Status == StatusActive {
			out = append(out, p.view())
		}
		p.mu.Unlock()
	}
	return out
}

// LastTick reports when the loop last ran, zero before the first tick.
func (m *Monitor) LastTick() time.Time {
	ns := m.lastTickNs.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// CurrentStats returns the monitor counters. ClosedPositions is a
// lifetime total and survives pruning.
func (m *Monitor) CurrentStats() Stats {
	m.mu.RLock()
	active := 0
	for _, p := range m.positions {
		p.mu.Lock()
		if p.Status == StatusActive {
			active++
		}
		p.mu.Unlock()
	}
	m.mu.RUnlock()

	return Stats{
		ActivePositions: active,
		ClosedPositions: int(m.closedTotal.Load()),
		Ticks:           m.ticks.Load(),
		SellsExecuted:   m.sells.Load(),
		StopLosses:      m.stopLosses.Load(),
	}
}

func allExecuted(steps []ExitStep) bool {
	for _, s := range steps {
		if !s.Executed {
			return false
		}
	}
	return true
}
