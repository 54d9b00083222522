package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Risk Manager — loss limits, trade-rate limits, circuit breaker
// ---------------------------------------------------------------------------

// Config carries the risk limits enforced before any position opens.
type Config struct {
	MaxPositionSizeUSD     float64       `yaml:"max_position_size_usd"`
	MaxConcurrentPositions int           `yaml:"max_concurrent_positions"`
	MaxDailyLossUSD        float64       `yaml:"max_daily_loss_usd"`
	MaxTradesPerHour       int           `yaml:"max_trades_per_hour"`
	MaxTradesPerDay        int           `yaml:"max_trades_per_day"`
	LossCooldown           time.Duration `yaml:"loss_cooldown"`
	CircuitBreakerFor      time.Duration `yaml:"circuit_breaker_for"`
}

// DefaultConfig returns the MODERATE risk limits.
func DefaultConfig() Config {
	return Config{
		MaxPositionSizeUSD:     500,
		MaxConcurrentPositions: 5,
		MaxDailyLossUSD:        500,
		MaxTradesPerHour:       5,
		MaxTradesPerDay:        20,
		LossCooldown:           2 * time.Hour,
		CircuitBreakerFor:      time.Hour,
	}
}

// Manager tracks rolling losses and trade counts and gates new positions.
// Counters reset on external daily/weekly scheduling triggers.
type Manager struct {
	config Config

	mu                sync.Mutex
	dailyLoss         float64
	weeklyLoss        float64
	tradesToday       int
	tradesThisHour    int
	hourWindowStart   time.Time
	activePositions   int
	consecutiveLosses int
	lastLossAt        time.Time
	breakerUntil      time.Time

	now func() time.Time
}

// NewManager creates a risk manager with the given limits.
func NewManager(config Config) *Manager {
	return &Manager{
		config: config,
		now:    time.Now,
	}
}

// CanOpenPosition runs the ordered gate checks. The first failing check
// rejects with its reason; a rejection is a verdict, never an error.
func (m *Manager) CanOpenPosition(sizeUSD float64) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollHourWindow()

	if sizeUSD > m.config.MaxPositionSizeUSD {
		return false, fmt.Sprintf("position too large (max: $%.0f)", m.config.MaxPositionSizeUSD)
	}
	if m.activePositions >= m.config.MaxConcurrentPositions {
		return false, fmt.Sprintf("too many active positions (max: %d)", m.config.MaxConcurrentPositions)
	}
	if m.dailyLoss >= m.config.MaxDailyLossUSD {
		return false, fmt.Sprintf("daily loss limit reached ($%.2f)", m.dailyLoss)
	}
	if m.tradesThisHour >= m.config.MaxTradesPerHour {
		return false, fmt.Sprintf("hourly trade limit reached (%d trades/h)", m.config.MaxTradesPerHour)
	}
	if m.tradesToday >= m.config.MaxTradesPerDay {
		return false, fmt.Sprintf("daily trade limit reached (%d trades/day)", m.config.MaxTradesPerDay)
	}
	if m.consecutiveLosses >= 3 && m.now().Sub(m.lastLossAt) < m.config.LossCooldown {
		return false, fmt.Sprintf("cooldown active after %d consecutive losses", m.consecutiveLosses)
	}
	return true, "OK"
}

// RecordTrade updates counters for a closed trade. Losses accumulate and
// extend the streak; a win resets the streak.
func (m *Manager) RecordTrade(pnlUSD decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollHourWindow()

	m.tradesToday++
	m.tradesThisHour++

	pnl, _ := pnlUSD.Float64()
	if pnl < 0 {
		loss := -pnl
		m.dailyLoss += loss
		m.weeklyLoss += loss
		m.consecutiveLosses++
		m.lastLossAt = m.now()

		if m.consecutiveLosses >= 3 && m.config.CircuitBreakerFor > 0 {
			m.breakerUntil = m.now().Add(m.config.CircuitBreakerFor)
			log.Warn().
				Int("consecutive_losses", m.consecutiveLosses).
				Time("until", m.breakerUntil).
				Msg("risk: circuit breaker tripped")
		}
	} else {
		m.consecutiveLosses = 0
	}
}

// CircuitBreakerActive reports whether the trading pause is in force.
func (m *Manager) CircuitBreakerActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Before(m.breakerUntil)
}

// PositionOpened bumps the active-position count.
func (m *Manager) PositionOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activePositions++
}

// PositionClosed drops the active-position count.
func (m *Manager) PositionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activePositions > 0 {
		m.activePositions--
	}
}

// ResetDaily clears the daily counters (external scheduler trigger).
func (m *Manager) ResetDaily() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyLoss = 0
	m.tradesToday = 0
	log.Info().Msg("risk: daily counters reset")
}

// ResetWeekly clears the weekly loss (external scheduler trigger).
func (m *Manager) ResetWeekly() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weeklyLoss = 0
}

// rollHourWindow resets the hourly counter once the window expires.
// Callers hold m.mu.
func (m *Manager) rollHourWindow() {
	now := m.now()
	if m.hourWindowStart.IsZero() || now.Sub(m.hourWindowStart) >= time.Hour {
		m.hourWindowStart = now
		m.tradesThisHour = 0
	}
}

// PositionSize returns a rug-risk-tiered position size in USD, capped at
// the configured maximum. A rug risk over 80 sizes to zero.
func (m *Manager) PositionSize(portfolioUSD, rugRisk float64, strategy string) decimal.Decimal {
	if rugRisk > 80 {
		return decimal.Zero
	}

	var basePct float64
	switch {
	case rugRisk < 25:
		basePct = 6
	case rugRisk < 40:
		basePct = 4
	case rugRisk < 55:
		basePct = 2
	case rugRisk < 70:
		basePct = 1
	default:
		basePct = 0.8
	}

	switch strategy {
	case "scalping":
		basePct *= 0.8
	case "momentum":
		basePct *= 1.1
	}

	size := portfolioUSD * basePct / 100
	if size > m.config.MaxPositionSizeUSD {
		size = m.config.MaxPositionSizeUSD
	}
	return decimal.NewFromFloat(size)
}

// State is a snapshot of the manager's rolling counters.
type State struct {
	DailyLossUSD      float64   `json:"daily_loss_usd"`
	WeeklyLossUSD     float64   `json:"weekly_loss_usd"`
	TradesToday       int       `json:"trades_today"`
	TradesThisHour    int       `json:"trades_this_hour"`
	ActivePositions   int       `json:"active_positions"`
	ConsecutiveLosses int       `json:"consecutive_losses"`
	BreakerUntil      time.Time `json:"breaker_until,omitempty"`
}

// Snapshot returns the current counters.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		DailyLossUSD:      m.dailyLoss,
		WeeklyLossUSD:     m.weeklyLoss,
		TradesToday:       m.tradesToday,
		TradesThisHour:    m.tradesThisHour,
		ActivePositions:   m.activePositions,
		ConsecutiveLosses: m.consecutiveLosses,
		BreakerUntil:      m.breakerUntil,
	}
}
