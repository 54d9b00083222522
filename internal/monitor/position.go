package monitor

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Status is the position lifecycle state.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

// ExitStep is one staged take-profit level. SellPercent is a share of the
// ORIGINAL position size, not of what remains.
type ExitStep struct {
	Price       decimal.Decimal `json:"price"`
	SellPercent float64         `json:"sell_percent"`
	Reason      string          `json:"reason"`
	Executed    bool            `json:"executed"`
}

// Position is one supervised holding. RemainingPct is tracked explicitly
// and is the single source of truth for how much is still held; it is
// never re-derived from the step flags. All fields are guarded by mu.
type Position struct {
	mu sync.Mutex

	ID             string
	Token          common.Address
	Chain          string
	Symbol         string
	EntryPrice     decimal.Decimal
	StopPrice      decimal.Decimal
	HighestPrice   decimal.Decimal
	TrailingActive bool
	Steps          []ExitStep
	RemainingPct   float64
	Status         Status
	CloseReason    string
	RealizedPnLUSD decimal.Decimal
	OpenedAt       time.Time
	ClosedAt       time.Time
}

// View is a point-in-time snapshot of a position.
type View struct {
	ID             string          `json:"position_id"`
	Token          common.Address  `json:"token"`
	Chain          string          `json:"chain"`
	Symbol         string          `json:"symbol"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	StopPrice      decimal.Decimal `json:"current_stop"`
	HighestPrice   decimal.Decimal `json:"highest_price"`
	TrailingActive bool            `json:"trailing_active"`
	Steps          []ExitStep      `json:"exit_steps"`
	RemainingPct   float64         `json:"remaining_pct"`
	Status         Status          `json:"status"`
	CloseReason    string          `json:"close_reason,omitempty"`
	RealizedPnLUSD decimal.Decimal `json:"realized_pnl_usd"`
	AgeSeconds     float64         `json:"age_seconds"`
}

// view builds a snapshot. Callers hold p.mu.
func (p *Position) view() View {
	steps := make([]ExitStep, len(p.Steps))
	copy(steps, p.Steps)
	return View{
		ID:             p.ID,
		Token:          p.Token,
		Chain:          p.Chain,
		Symbol:         p.Symbol,
		EntryPrice:     p.EntryPrice,
		StopPrice:      p.StopPrice,
		HighestPrice:   p.HighestPrice,
		TrailingActive: p.TrailingActive,
		Steps:          steps,
		RemainingPct:   p.RemainingPct,
		Status:         p.Status,
		CloseReason:    p.CloseReason,
		RealizedPnLUSD: p.RealizedPnLUSD,
		AgeSeconds:     time.Since(p.OpenedAt).Seconds(),
	}
}
