package security

import "strings"

// ---------------------------------------------------------------------------
// Security policy configuration and presets
// ---------------------------------------------------------------------------

// Config is the scoring policy applied to every token profile.
type Config struct {
	// Honeypot thresholds.
	MaxBuyTaxPct  float64 `yaml:"max_buy_tax_pct"`
	MaxSellTaxPct float64 `yaml:"max_sell_tax_pct"`

	// Contract requirements.
	RequireVerified  bool `yaml:"require_verified"`
	RequireRenounced bool `yaml:"require_renounced"`
	RequireAudit     bool `yaml:"require_audit"`

	// Liquidity.
	MinLiquidityUSD   float64 `yaml:"min_liquidity_usd"`
	MinLiquidityRatio float64 `yaml:"min_liquidity_ratio"` // liquidity / market cap

	// Holder distribution.
	MinHolders  int     `yaml:"min_holders"`
	MaxTop10Pct float64 `yaml:"max_top10_pct"`

	// Trading activity.
	MinVolume24hUSD    float64 `yaml:"min_volume_24h_usd"`
	MaxVolatility1hPct float64 `yaml:"max_volatility_1h_pct"`

	// Token age window, minutes.
	MinTokenAgeMin int `yaml:"min_token_age_min"`
	MaxTokenAgeMin int `yaml:"max_token_age_min"`

	// Auto-trading knobs carried by the presets.
	MaxPositionSizeUSD float64 `yaml:"max_position_size_usd"`
	MaxDailyLossPct    float64 `yaml:"max_daily_loss_pct"`
	MinConfidenceScore float64 `yaml:"min_confidence_score"`
	MaxTradesPerHour   int     `yaml:"max_trades_per_hour"`
}

// DefaultConfig returns the MODERATE preset.
func DefaultConfig() Config {
	return Config{
		MaxBuyTaxPct:       10,
		MaxSellTaxPct:      15,
		RequireVerified:    true,
		RequireRenounced:   false,
		RequireAudit:       false,
		MinLiquidityUSD:    10000,
		MinLiquidityRatio:  1.0,
		MinHolders:         50,
		MaxTop10Pct:        50,
		MinVolume24hUSD:    1000,
		MaxVolatility1hPct: 50,
		MinTokenAgeMin:     5,
		MaxTokenAgeMin:     30,
		MaxPositionSizeUSD: 500,
		MaxDailyLossPct:    15,
		MinConfidenceScore: 75,
		MaxTradesPerHour:   5,
	}
}

// Preset returns a named policy preset; unknown names fall back to MODERATE.
func Preset(name string) Config {
	switch strings.ToUpper(name) {
	case "CONSERVATIVE":
		cfg := DefaultConfig()
		cfg.MaxBuyTaxPct = 5
		cfg.MaxSellTaxPct = 10
		cfg.RequireRenounced = true
		cfg.MinLiquidityUSD = 20000
		cfg.MinHolders = 100
		cfg.MaxPositionSizeUSD = 300
		cfg.MaxDailyLossPct = 10
		cfg.MinConfidenceScore = 85
		cfg.MaxTradesPerHour = 3
		return cfg
	case "AGGRESSIVE":
		cfg := DefaultConfig()
		cfg.MaxBuyTaxPct = 15
		cfg.MaxSellTaxPct = 20
		cfg.RequireVerified = false
		cfg.MinLiquidityUSD = 5000
		cfg.MinHolders = 20
		cfg.MaxPositionSizeUSD = 1000
		cfg.MaxDailyLossPct = 20
		cfg.MinConfidenceScore = 65
		cfg.MaxTradesPerHour = 10
		return cfg
	default:
		return DefaultConfig()
	}
}
