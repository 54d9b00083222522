package recommend

import "github.com/shopspring/decimal"

// ---------------------------------------------------------------------------
// Plan types — the concrete trade instruction attached to a recommendation
// ---------------------------------------------------------------------------

// Action is one of the six trade decisions.
type Action string

const (
	ActionAvoid         Action = "AVOID"
	ActionAvoidHoneypot Action = "AVOID_HONEYPOT"
	ActionMonitor       Action = "MONITOR"
	ActionBuyCautious   Action = "BUY_CAUTIOUS"
	ActionBuyModerate   Action = "BUY_MODERATE"
	ActionBuyAggressive Action = "BUY_AGGRESSIVE"
)

// IsBuy reports whether the action opens a position.
func (a Action) IsBuy() bool {
	switch a {
	case ActionBuyCautious, ActionBuyModerate, ActionBuyAggressive:
		return true
	}
	return false
}

// PositionSizing fixes the trade size and execution aggressiveness.
type PositionSizing struct {
	AmountNative decimal.Decimal `json:"amount_native"`
	AmountUSD    decimal.Decimal `json:"amount_usd"`
	MaxSlippage  string          `json:"max_slippage"`
	GasPriority  string          `json:"gas_priority"` // LOW|MEDIUM|HIGH
}

// EntryPlan is the target entry window.
type EntryPlan struct {
	Timing      string          `json:"timing"`
	PriceTarget decimal.Decimal `json:"price_target"`
	RangeMin    decimal.Decimal `json:"price_range_min"`
	RangeMax    decimal.Decimal `json:"price_range_max"`
	Method      string          `json:"method"`
}

// ExitStep is one staged take-profit level.
type ExitStep struct {
	Label       string          `json:"label"`
	Price       decimal.Decimal `json:"price"`
	SellPercent float64         `json:"sell_percent"` // of the original size
	Reason      string          `json:"reason"`
}

// StopLoss is the protective exit.
type StopLoss struct {
	Price   decimal.Decimal `json:"price"`
	Percent float64         `json:"percent"` // negative
	Type    string          `json:"type"`
}

// RiskManagement summarizes the plan's loss/gain envelope.
type RiskManagement struct {
	MaxLossUSD          decimal.Decimal `json:"max_loss_usd"`
	PotentialGainUSD    decimal.Decimal `json:"potential_gain_usd"`
	RiskRewardRatio     float64         `json:"risk_reward_ratio"`
	PortfolioAllocation string          `json:"portfolio_allocation"`
}

// Monitoring is the contract a position supervisor is expected to honor.
type Monitoring struct {
	CheckFrequency string   `json:"check_frequency"`
	KeyMetrics     []string `json:"key_metrics"`
	RedFlags       []string `json:"red_flags"`
}

// Plan is the actionable output of the decision table. Non-buy actions
// fill only Action, ConfidenceLabel, Reasons/Warnings, and ReconsiderIf.
type Plan struct {
	Action          Action         `json:"action"`
	ConfidenceLabel string         `json:"confidence"`
	Sizing          PositionSizing `json:"position_sizing,omitempty"`
	Entry           EntryPlan      `json:"entry,omitempty"`
	ExitSteps       []ExitStep     `json:"exit_strategy,omitempty"`
	StopLoss        StopLoss       `json:"stop_loss,omitempty"`
	HoldDuration    string         `json:"hold_duration,omitempty"`
	RiskMgmt        RiskManagement `json:"risk_management,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	Monitoring      Monitoring     `json:"monitoring,omitempty"`
	Reasons         []string       `json:"reasons,omitempty"`
	ReconsiderIf    []string       `json:"reconsider_if,omitempty"`
}
