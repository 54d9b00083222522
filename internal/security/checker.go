package security

import (
	"fmt"

	"github.com/rughunter/rughunter/internal/evm"
)

// ---------------------------------------------------------------------------
// Security & Risk Scorer — weighted category scoring over a token profile
// ---------------------------------------------------------------------------

// RiskLevel is an ordered risk tier.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "VERY_LOW"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Category weights. They sum to 1 and cap the weighted score near 100.
const (
	weightHoneypot  = 0.30
	weightLiquidity = 0.20
	weightHolders   = 0.15
	weightContract  = 0.15
	weightTrading   = 0.10
	weightAge       = 0.10
)

// CategoryScores are the raw per-category contributions before weighting.
type CategoryScores struct {
	Honeypot  float64 `json:"honeypot"`
	Liquidity float64 `json:"liquidity"`
	Holders   float64 `json:"holders"`
	Contract  float64 `json:"contract"`
	Trading   float64 `json:"trading"`
	Age       float64 `json:"age"`
}

// Assessment is the scorer's verdict for one token profile. Pure function
// of profile + policy; never mutated after creation.
type Assessment struct {
	Chain string `json:"chain"`
	Token string `json:"token"`

	Score      float64        `json:"risk_score"` // 0 safe .. 100 dangerous
	Level      RiskLevel      `json:"risk_level"`
	Categories CategoryScores `json:"categories"`

	Blockers []string `json:"blockers"`
	Warnings []string `json:"warnings"`

	IsSafe         bool   `json:"is_safe"`
	Recommendation string `json:"recommendation"`
}

// Checker scores token profiles against one policy.
type Checker struct {
	config Config
}

// NewChecker creates a scorer with the given policy.
func NewChecker(config Config) *Checker {
	return &Checker{config: config}
}

// Assess computes the full weighted risk assessment for a profile.
func (c *Checker) Assess(p *evm.TokenProfile) *Assessment {
	a := &Assessment{
		Chain: p.Chain,
		Token: p.Token.Hex(),
	}

	a.Categories = CategoryScores{
		Honeypot:  c.scoreHoneypot(p, a),
		Liquidity: c.scoreLiquidity(p, a),
		Holders:   c.scoreHolders(p, a),
		Contract:  c.scoreContract(p, a),
		Trading:   c.scoreTrading(p, a),
		Age:       c.scoreAge(p, a),
	}

	a.Score = a.Categories.Honeypot*weightHoneypot +
		a.Categories.Liquidity*weightLiquidity +
		a.Categories.Holders*weightHolders +
		a.Categories.Contract*weightContract +
		a.Categories.Trading*weightTrading +
		a.Categories.Age*weightAge

	switch {
	case a.Score >= 80:
		a.Level = RiskCritical
	case a.Score >= 60:
		a.Level = RiskHigh
	case a.Score >= 40:
		a.Level = RiskMedium
	case a.Score >= 20:
		a.Level = RiskLow
	default:
		a.Level = RiskVeryLow
	}
	a.IsSafe = a.Score < 60
	a.Recommendation = recommendationFor(a.Level)

	return a
}

// scoreHoneypot covers taxes and the ability to sell.
func (c *Checker) scoreHoneypot(p *evm.TokenProfile, a *Assessment) float64 {
	score := 0.0

	if p.BuyTaxPct > c.config.MaxBuyTaxPct {
		score += 30
		a.Blockers = append(a.Blockers, fmt.Sprintf("buy tax too high: %.1f%%", p.BuyTaxPct))
	} else if p.BuyTaxPct > c.config.MaxBuyTaxPct*0.7 {
		score += 15
		a.Warnings = append(a.Warnings, fmt.Sprintf("buy tax elevated: %.1f%%", p.BuyTaxPct))
	}

	if p.SellTaxPct > c.config.MaxSellTaxPct {
		score += 30
		a.Blockers = append(a.Blockers, fmt.Sprintf("sell tax too high: %.1f%%", p.SellTaxPct))
	} else if p.SellTaxPct > c.config.MaxSellTaxPct*0.7 {
		score += 15
		a.Warnings = append(a.Warnings, fmt.Sprintf("sell tax elevated: %.1f%%", p.SellTaxPct))
	}

	if !p.CanSell {
		score += 50
		a.Blockers = append(a.Blockers, "cannot sell - honeypot confirmed")
	}

	return score
}

// scoreLiquidity covers the USD floor and the liquidity/market-cap ratio.
func (c *Checker) scoreLiquidity(p *evm.TokenProfile, a *Assessment) float64 {
	score := 0.0
	liq, _ := p.LiquidityUSD.Float64()

	if liq < c.config.MinLiquidityUSD {
		score += 40
		a.Blockers = append(a.Blockers, fmt.Sprintf("liquidity too low: $%.0f", liq))
	} else if liq < c.config.MinLiquidityUSD*2 {
		score += 20
		a.Warnings = append(a.Warnings, fmt.Sprintf("liquidity low: $%.0f", liq))
	}

	if mc, _ := p.MarketCapUSD.Float64(); mc > 0 {
		ratio := liq / mc
		if ratio < c.config.MinLiquidityRatio {
			score += 15
			a.Warnings = append(a.Warnings, fmt.Sprintf("low liquidity/mcap ratio: %.2f", ratio))
		}
	}

	return score
}

// scoreHolders covers holder count and top-10 concentration. An unknown
// concentration counts as fully concentrated.
func (c *Checker) scoreHolders(p *evm.TokenProfile, a *Assessment) float64 {
	score := 0.0

	if p.HolderCount < c.config.MinHolders {
		score += 25
		a.Warnings = append(a.Warnings, fmt.Sprintf("few holders: %d", p.HolderCount))
	}

	top10 := p.Top10Pct
	if top10 == 0 {
		top10 = 100
	}
	if top10 > c.config.MaxTop10Pct {
		score += 20
		a.Warnings = append(a.Warnings, fmt.Sprintf("top 10 holders: %.1f%%", top10))
	}

	return score
}

// scoreContract covers verification, renouncement, and audit requirements.
func (c *Checker) scoreContract(p *evm.TokenProfile, a *Assessment) float64 {
	score := 0.0

	if c.config.RequireVerified && !p.Verified {
		score += 30
		a.Blockers = append(a.Blockers, "contract not verified")
	}
	if c.config.RequireRenounced && !p.Renounced {
		score += 15
		a.Warnings = append(a.Warnings, "ownership not renounced")
	}
	if c.config.RequireAudit && !p.Audited {
		score += 20
		a.Warnings = append(a.Warnings, "no audit")
	}

	return score
}

// scoreTrading covers 24h volume and 1h volatility.
func (c *Checker) scoreTrading(p *evm.TokenProfile, a *Assessment) float64 {
	score := 0.0

	if p.Volume24hUSD < c.config.MinVolume24hUSD {
		score += 15
		a.Warnings = append(a.Warnings, fmt.Sprintf("low volume: $%.0f", p.Volume24hUSD))
	}

	vol := p.Volatility1hPct
	if vol < 0 {
		vol = -vol
	}
	if vol > c.config.MaxVolatility1hPct {
		score += 20
		a.Warnings = append(a.Warnings, fmt.Sprintf("high volatility: %.1f%%", vol))
	}

	return score
}

// scoreAge penalizes both brand-new and stale tokens.
func (c *Checker) scoreAge(p *evm.TokenProfile, a *Assessment) float64 {
	score := 0.0
	age := p.AgeMinutes()

	if age < float64(c.config.MinTokenAgeMin) {
		score += 25
		a.Warnings = append(a.Warnings, fmt.Sprintf("token very young: %.0fmin", age))
	} else if age > float64(c.config.MaxTokenAgeMin) {
		score += 10
		a.Warnings = append(a.Warnings, fmt.Sprintf("token too old: %.0fmin", age))
	}

	return score
}

func recommendationFor(level RiskLevel) string {
	switch level {
	case RiskCritical:
		return "do not trade - critical risk"
	case RiskHigh:
		return "discouraged - high risk"
	case RiskMedium:
		return "caution - manual trade only"
	case RiskLow:
		return "acceptable - trade with care"
	default:
		return "excellent - good auto-trade candidate"
	}
}
