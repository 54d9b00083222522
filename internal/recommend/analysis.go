package recommend

import (
	"github.com/rughunter/rughunter/internal/ml"
)

// ---------------------------------------------------------------------------
// Sub-analyses — security, liquidity, momentum, risk
// ---------------------------------------------------------------------------

// SecurityAnalysis is a 100-minus-deductions view over contract signals.
type SecurityAnalysis struct {
	Score      float64  `json:"score"`
	Issues     []string `json:"issues"`
	Warnings   []string `json:"warnings"`
	IsHoneypot bool     `json:"is_honeypot"`
	IsSafe     bool     `json:"is_safe"`
}

func analyzeSecurity(ind ml.Indicators) SecurityAnalysis {
	score := 100.0
	var issues, warnings []string

	if ind["ownership_renounced"] == 0 {
		score -= 20
		issues = append(issues, "owner not renounced - can modify contract")
	}
	if ind["has_mint_function"] == 1 {
		score -= 15
		issues = append(issues, "mint function present - supply can be inflated")
	}
	if ind["has_pause_function"] == 1 {
		score -= 10
		warnings = append(warnings, "pause function present - trading can be stopped")
	}
	if ind["has_blacklist_function"] == 1 {
		score -= 25
		issues = append(issues, "blacklist function - wallets can be blocked")
	}
	if ind["has_proxy_pattern"] == 1 {
		score -= 15
		issues = append(issues, "proxy pattern - contract can be changed")
	}
	if ind["has_selfdestruct"] == 1 {
		score -= 30
		issues = append(issues, "selfdestruct present - contract can be destroyed")
	}
	if ind["contract_verified"] == 0 {
		score -= 10
		warnings = append(warnings, "contract not verified on explorer")
	}
	if ind["can_sell"] == 0 {
		score -= 50
		issues = append(issues, "HONEYPOT DETECTED - cannot sell")
	}
	if ind["can_buy"] == 0 {
		score -= 50
		issues = append(issues, "cannot buy - trading blocked")
	}

	if score < 0 {
		score = 0
	}
	return SecurityAnalysis{
		Score:      score,
		Issues:     issues,
		Warnings:   warnings,
		IsHoneypot: ind["can_sell"] == 0,
		IsSafe:     score >= 70,
	}
}

// LiquidityAnalysis grades depth, LP lock, and AMM price impact.
type LiquidityAnalysis struct {
	Score              float64 `json:"score"`
	Level              string  `json:"level"`
	LiquidityUSD       float64 `json:"liquidity_usd"`
	LPLocked           bool    `json:"lp_locked"`
	LPLockDays         int     `json:"lp_lock_days"`
	LockScore          float64 `json:"lock_score"`
	PriceImpact1ETH    float64 `json:"price_impact_1_eth"`
	PriceImpactHalfETH float64 `json:"price_impact_05_eth"`
	IsSufficient       bool    `json:"is_sufficient"`
}

func analyzeLiquidity(ind ml.Indicators) LiquidityAnalysis {
	liq := ind["liquidity_usd"]

	var score float64
	var level string
	switch {
	case liq >= 100_000:
		score, level = 100, "EXCELLENT"
	case liq >= 50_000:
		score, level = 85, "VERY_GOOD"
	case liq >= 25_000:
		score, level = 70, "GOOD"
	case liq >= 10_000:
		score, level = 55, "MEDIUM"
	case liq >= 5_000:
		score, level = 40, "LOW"
	default:
		score, level = 20, "VERY_LOW"
	}

	locked := ind["lp_locked"] == 1
	lockDays := int(ind["lp_lock_duration_days"])
	var lockScore float64
	switch {
	case locked && lockDays >= 365:
		lockScore = 100
	case locked && lockDays >= 180:
		lockScore = 80
	case locked && lockDays >= 90:
		lockScore = 60
	case locked:
		lockScore = 40
	}

	return LiquidityAnalysis{
		Score:              score,
		Level:              level,
		LiquidityUSD:       liq,
		LPLocked:           locked,
		LPLockDays:         lockDays,
		LockScore:          lockScore,
		PriceImpact1ETH:    priceImpact(liq, 2000),
		PriceImpactHalfETH: priceImpact(liq, 1000),
		IsSufficient:       liq >= 10_000,
	}
}

// priceImpact is the simplified constant-product estimate: doubled linear
// share of the pool, capped at 100.
func priceImpact(liquidityUSD, tradeSizeUSD float64) float64 {
	if liquidityUSD == 0 {
		return 100
	}
	impact := tradeSizeUSD / liquidityUSD * 100 * 2
	if impact > 100 {
		return 100
	}
	return impact
}

// MomentumAnalysis grades the trailing 5-minute buy/sell pressure.
type MomentumAnalysis struct {
	Score        float64 `json:"score"`
	Level        string  `json:"level"`
	BuySellRatio float64 `json:"buy_sell_ratio"`
	VolumeUSD    float64 `json:"volume_5min_usd"`
	UniqueBuyers int     `json:"unique_buyers"`
	IsBullish    bool    `json:"is_bullish"`
}

func analyzeMomentum(ind ml.Indicators) MomentumAnalysis {
	buys := ind["buy_count_5min"]
	sells := ind["sell_count_5min"]
	buyers := ind["unique_buyers_5min"]

	var ratio float64
	switch {
	case sells > 0:
		ratio = buys / sells
	case buys > 0:
		ratio = buys
	default:
		ratio = 1
	}

	score := 50.0
	var level string
	switch {
	case ratio > 3:
		score += 30
		level = "STRONG_BUY"
	case ratio > 2:
		score += 20
		level = "BUY"
	case ratio > 1:
		score += 10
		level = "MODERATE"
	case ratio > 0.5:
		score -= 10
		level = "WEAK"
	default:
		score -= 20
		level = "SELL_PRESSURE"
	}

	switch {
	case buyers > 50:
		score += 15
	case buyers > 20:
		score += 10
	case buyers < 5:
		score -= 10
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return MomentumAnalysis{
		Score:        score,
		Level:        level,
		BuySellRatio: ratio,
		VolumeUSD:    ind["volume_5min_usd"],
		UniqueBuyers: int(buyers),
		IsBullish:    ratio > 1.5,
	}
}

// RiskAnalysis turns concentration, age, and tax tiers into a deduction.
type RiskAnalysis struct {
	Score             float64 `json:"risk_score"`
	ConcentrationRisk string  `json:"concentration_risk"`
	AgeRisk           string  `json:"age_risk"`
	TaxRisk           string  `json:"tax_risk"`
	OwnerPct          float64 `json:"owner_balance_percent"`
	Top10Pct          float64 `json:"top10_holders_percent"`
	HolderCount       int     `json:"holder_count"`
	BuyTaxPct         float64 `json:"buy_tax"`
	SellTaxPct        float64 `json:"sell_tax"`
}

func analyzeRisk(ind ml.Indicators) RiskAnalysis {
	ownerPct := ind["owner_balance_percent"]
	top10 := ind["top10_holders_percent"]

	var concentration string
	switch {
	case ownerPct > 20 || top10 > 70:
		concentration = "HIGH"
	case ownerPct > 10 || top10 > 50:
		concentration = "MEDIUM"
	default:
		concentration = "LOW"
	}

	age := ind["age_minutes"]
	var ageRisk string
	switch {
	case age < 5:
		ageRisk = "VERY_HIGH"
	case age < 15:
		ageRisk = "HIGH"
	case age < 30:
		ageRisk = "MEDIUM"
	default:
		ageRisk = "LOW"
	}

	buyTax := ind["buy_tax_real"]
	sellTax := ind["sell_tax_real"]
	var taxRisk string
	switch {
	case buyTax > 15 || sellTax > 15:
		taxRisk = "HIGH"
	case buyTax > 10 || sellTax > 10:
		taxRisk = "MEDIUM"
	default:
		taxRisk = "LOW"
	}

	score := 0.0
	switch concentration {
	case "HIGH":
		score += 25
	case "MEDIUM":
		score += 15
	}
	switch ageRisk {
	case "VERY_HIGH":
		score += 20
	case "HIGH":
		score += 10
	}
	switch taxRisk {
	case "HIGH":
		score += 15
	case "MEDIUM":
		score += 8
	}
	if score > 100 {
		score = 100
	}

	return RiskAnalysis{
		Score:             score,
		ConcentrationRisk: concentration,
		AgeRisk:           ageRisk,
		TaxRisk:           taxRisk,
		OwnerPct:          ownerPct,
		Top10Pct:          top10,
		HolderCount:       int(ind["holder_count"]),
		BuyTaxPct:         buyTax,
		SellTaxPct:        sellTax,
	}
}
