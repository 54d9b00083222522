package recommend

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rughunter/rughunter/internal/evm"
	"github.com/rughunter/rughunter/internal/ml"
)

// ---------------------------------------------------------------------------
// Recommendation Engine — weighted scoring and the trade decision table
// ---------------------------------------------------------------------------

// Final score weights.
const (
	weightSecurity  = 0.35
	weightLiquidity = 0.25
	weightMomentum  = 0.20
	weightProfit    = 0.15
	weightRisk      = 0.05
)

// FinalScore is the weighted combination of all analyses.
type FinalScore struct {
	Overall    float64 `json:"overall_score"`
	Security   float64 `json:"security_score"`
	Liquidity  float64 `json:"liquidity_score"`
	Momentum   float64 `json:"momentum_score"`
	Profit     float64 `json:"profit_score"`
	Risk       float64 `json:"risk_score"` // inverted: 100 - risk deduction
	Confidence float64 `json:"confidence"`
}

// Recommendation is the engine's full output for one detection.
type Recommendation struct {
	BaseScores ml.Scores         `json:"base_scores"`
	Security   SecurityAnalysis  `json:"security_analysis"`
	Liquidity  LiquidityAnalysis `json:"liquidity_analysis"`
	Momentum   MomentumAnalysis  `json:"momentum_analysis"`
	Risk       RiskAnalysis      `json:"risk_analysis"`
	Final      FinalScore        `json:"final_score"`
	Plan       Plan              `json:"plan"`
}

// Engine produces trade recommendations from token profiles.
type Engine struct {
	scorer ml.Scorer
}

// NewEngine creates an engine over the given scorer.
func NewEngine(scorer ml.Scorer) *Engine {
	return &Engine{scorer: scorer}
}

// Recommend runs every analysis and the decision table for one token.
func (e *Engine) Recommend(p *evm.TokenProfile, window ml.TradeWindow) *Recommendation {
	ind := ml.BuildIndicators(p, window)
	base := e.scorer.Predict(ind)

	sec := analyzeSecurity(ind)
	liq := analyzeLiquidity(ind)
	mom := analyzeMomentum(ind)
	risk := analyzeRisk(ind)

	final := combine(base, sec, liq, mom, risk)

	rec := &Recommendation{
		BaseScores: base,
		Security:   sec,
		Liquidity:  liq,
		Momentum:   mom,
		Risk:       risk,
		Final:      final,
	}
	rec.Plan = e.decide(p, rec)
	return rec
}

// combine computes the weighted final score and its confidence.
func combine(base ml.Scores, sec SecurityAnalysis, liq LiquidityAnalysis, mom MomentumAnalysis, risk RiskAnalysis) FinalScore {
	invertedRisk := 100 - risk.Score

	overall := sec.Score*weightSecurity +
		liq.Score*weightLiquidity +
		mom.Score*weightMomentum +
		base.ProfitPotential*weightProfit +
		invertedRisk*weightRisk

	var confidence float64
	switch {
	case sec.IsHoneypot:
		confidence = 0
	case sec.Score < 50:
		confidence = 20
	case liq.LiquidityUSD < 5000:
		confidence = 30
	default:
		confidence = 50 + overall/2
		if confidence > 95 {
			confidence = 95
		}
	}

	return FinalScore{
		Overall:    overall,
		Security:   sec.Score,
		Liquidity:  liq.Score,
		Momentum:   mom.Score,
		Profit:     base.ProfitPotential,
		Risk:       invertedRisk,
		Confidence: confidence,
	}
}

// decide walks the decision table in strict order; the first match wins.
func (e *Engine) decide(p *evm.TokenProfile, rec *Recommendation) Plan {
	score := rec.Final.Overall
	confidence := rec.Final.Confidence

	switch {
	case rec.Security.IsHoneypot:
		return honeypotPlan()
	case score < 40:
		return avoidPlan(score, rec.Security)
	case score >= 75 && confidence >= 70:
		return buyPlan(ActionBuyAggressive, p.PriceUSD, rec.Liquidity)
	case score >= 60 && confidence >= 60:
		return buyPlan(ActionBuyModerate, p.PriceUSD, rec.Liquidity)
	case score >= 45:
		return buyPlan(ActionBuyCautious, p.PriceUSD, rec.Liquidity)
	default:
		return monitorPlan(score, rec.Security, rec.Liquidity)
	}
}

// positionSize returns the native/USD size for a buy tier by liquidity.
func positionSize(action Action, liquidityUSD float64) (decimal.Decimal, decimal.Decimal) {
	switch action {
	case ActionBuyAggressive:
		switch {
		case liquidityUSD >= 100_000:
			return decimal.NewFromFloat(1.0), decimal.NewFromInt(2000)
		case liquidityUSD >= 50_000:
			return decimal.NewFromFloat(0.5), decimal.NewFromInt(1000)
		case liquidityUSD >= 25_000:
			return decimal.NewFromFloat(0.3), decimal.NewFromInt(600)
		default:
			return decimal.NewFromFloat(0.2), decimal.NewFromInt(400)
		}
	case ActionBuyModerate:
		switch {
		case liquidityUSD >= 50_000:
			return decimal.NewFromFloat(0.3), decimal.NewFromInt(600)
		case liquidityUSD >= 25_000:
			return decimal.NewFromFloat(0.2), decimal.NewFromInt(400)
		default:
			return decimal.NewFromFloat(0.15), decimal.NewFromInt(300)
		}
	default:
		return decimal.NewFromFloat(0.1), decimal.NewFromInt(200)
	}
}

// exitLadder returns the staged exits and stop multiple for a buy tier.
// Sell percentages always sum to 100.
func exitLadder(action Action, entry decimal.Decimal) ([]ExitStep, decimal.Decimal, float64) {
	mul := func(m float64) decimal.Decimal {
		return entry.Mul(decimal.NewFromFloat(m))
	}

	switch action {
	case ActionBuyAggressive:
		steps := []ExitStep{
			{Label: "TP1 (+50%)", Price: mul(1.5), SellPercent: 30, Reason: "secure initial profit"},
			{Label: "TP2 (+100%)", Price: mul(2.0), SellPercent: 40, Reason: "take major profit"},
			{Label: "TP3 (+200%)", Price: mul(3.0), SellPercent: 30, Reason: "moon bag"},
		}
		return steps, mul(0.85), -15
	case ActionBuyModerate:
		steps := []ExitStep{
			{Label: "TP1 (+30%)", Price: mul(1.3), SellPercent: 40, Reason: "secure early profit"},
			{Label: "TP2 (+80%)", Price: mul(1.8), SellPercent: 40, Reason: "take profit"},
			{Label: "TP3 (+150%)", Price: mul(2.5), SellPercent: 20, Reason: "let winners run"},
		}
		return steps, mul(0.90), -10
	default:
		steps := []ExitStep{
			{Label: "TP1 (+20%)", Price: mul(1.2), SellPercent: 50, Reason: "quick profit"},
			{Label: "TP2 (+50%)", Price: mul(1.5), SellPercent: 50, Reason: "exit completely"},
		}
		return steps, mul(0.92), -8
	}
}

// buyPlan assembles the full plan for one of the three buy tiers.
func buyPlan(action Action, entry decimal.Decimal, liq LiquidityAnalysis) Plan {
	sizeNative, sizeUSD := positionSize(action, liq.LiquidityUSD)
	steps, stopPrice, stopPct := exitLadder(action, entry)

	plan := Plan{
		Action: action,
		Sizing: PositionSizing{
			AmountNative: sizeNative,
			AmountUSD:    sizeUSD,
		},
		Entry: EntryPlan{
			PriceTarget: entry,
		},
		ExitSteps: steps,
		StopLoss: StopLoss{
			Price:   stopPrice,
			Percent: stopPct,
		},
	}

	usd, _ := sizeUSD.Float64()
	switch action {
	case ActionBuyAggressive:
		plan.ConfidenceLabel = "VERY_HIGH (85-95%)"
		plan.Sizing.MaxSlippage = "3-5%"
		plan.Sizing.GasPriority = "HIGH"
		plan.Entry.Timing = "immediate - within 30 seconds"
		plan.Entry.RangeMin = entry.Mul(decimal.NewFromFloat(0.97))
		plan.Entry.RangeMax = entry.Mul(decimal.NewFromFloat(1.03))
		plan.Entry.Method = "market order with slippage protection"
		plan.StopLoss.Type = "hard stop (automatic)"
		plan.HoldDuration = "2-6 hours (scalping)"
		plan.RiskMgmt = riskFigures(usd, 0.15, 1.0, "5-8%")
		plan.Warnings = []string{
			fmt.Sprintf("price impact for this size: %.2f%%", liq.PriceImpactHalfETH),
			fmt.Sprintf("total liquidity: $%.0f", liq.LiquidityUSD),
			"very young token - extreme volatility risk",
			"watch the first minutes for a rug",
		}
		plan.Monitoring = Monitoring{
			CheckFrequency: "every 30 seconds",
			KeyMetrics:     []string{"price", "volume", "holder count", "top holders"},
			RedFlags: []string{
				"owner sells more than 5% of supply",
				"liquidity drops more than 20%",
				"sell volume over 3x buy volume",
			},
		}
	case ActionBuyModerate:
		plan.ConfidenceLabel = "HIGH (70-85%)"
		plan.Sizing.MaxSlippage = "2-3%"
		plan.Sizing.GasPriority = "MEDIUM"
		plan.Entry.Timing = "within 1-2 minutes - observe first"
		plan.Entry.RangeMin = entry.Mul(decimal.NewFromFloat(0.98))
		plan.Entry.RangeMax = entry.Mul(decimal.NewFromFloat(1.02))
		plan.Entry.Method = "limit order recommended"
		plan.StopLoss.Type = "trailing stop recommended"
		plan.HoldDuration = "4-12 hours"
		plan.RiskMgmt = riskFigures(usd, 0.10, 0.6, "3-5%")
		plan.Warnings = []string{
			fmt.Sprintf("price impact: %.2f%%", liq.PriceImpactHalfETH),
			"wait for momentum confirmation",
			"check for immediate dumping",
		}
		plan.Monitoring = Monitoring{
			CheckFrequency: "every 5 minutes",
			KeyMetrics:     []string{"volume trend", "holder growth", "lp changes"},
			RedFlags: []string{
				"volume shrinking fast",
				"concentration increasing",
				"liquidity unlocks",
			},
		}
	default:
		plan.ConfidenceLabel = "MEDIUM (60-70%)"
		plan.Sizing.MaxSlippage = "2%"
		plan.Sizing.GasPriority = "LOW"
		plan.Entry.Timing = "wait 5-10 minutes for confirmation"
		plan.Entry.RangeMin = entry.Mul(decimal.NewFromFloat(0.95))
		plan.Entry.RangeMax = entry.Mul(decimal.NewFromFloat(1.05))
		plan.Entry.Method = "small limit order"
		plan.StopLoss.Type = "strict stop loss"
		plan.HoldDuration = "2-6 hours max"
		plan.RiskMgmt = riskFigures(usd, 0.08, 0.35, "1-2%")
		plan.Warnings = []string{
			"elevated risks detected",
			"test position only",
			"exit quickly on negative signals",
		}
		plan.Monitoring = Monitoring{
			CheckFrequency: "constant (every minute)",
			KeyMetrics:     []string{"immediate price action", "selling pressure"},
			RedFlags:       []string{"any suspicious activity"},
		}
	}

	return plan
}

func riskFigures(sizeUSD, maxLossFrac, gainFrac float64, allocation string) RiskManagement {
	maxLoss := sizeUSD * maxLossFrac
	gain := sizeUSD * gainFrac
	ratio := 0.0
	if maxLoss > 0 {
		ratio = gain / maxLoss
	}
	return RiskManagement{
		MaxLossUSD:          decimal.NewFromFloat(maxLoss).Round(2),
		PotentialGainUSD:    decimal.NewFromFloat(gain).Round(2),
		RiskRewardRatio:     ratio,
		PortfolioAllocation: allocation,
	}
}

func honeypotPlan() Plan {
	return Plan{
		Action:          ActionAvoidHoneypot,
		ConfidenceLabel: "100%",
		Warnings: []string{
			"HONEYPOT DETECTED - never buy",
			"you will NOT be able to sell this token",
		},
	}
}

func avoidPlan(score float64, sec SecurityAnalysis) Plan {
	return Plan{
		Action:          ActionAvoid,
		ConfidenceLabel: "VERY_HIGH (90%+)",
		Reasons: append([]string{
			fmt.Sprintf("score too low: %.0f/100", score),
			fmt.Sprintf("critical security issues: %d", len(sec.Issues)),
		}, sec.Issues...),
	}
}

func monitorPlan(score float64, sec SecurityAnalysis, liq LiquidityAnalysis) Plan {
	return Plan{
		Action:          ActionMonitor,
		ConfidenceLabel: "LOW (<60%)",
		Reasons: []string{
			fmt.Sprintf("overall score too low: %.0f/100", score),
			fmt.Sprintf("security: %.0f/100", sec.Score),
			fmt.Sprintf("liquidity: %.0f/100", liq.Score),
		},
		ReconsiderIf: []string{
			"liquidity > $25,000",
			"lp locked for 90+ days",
			"owner renounced",
			"buying momentum increases",
		},
	}
}
