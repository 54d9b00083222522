package ml

import (
	"github.com/rughunter/rughunter/internal/evm"
)

// ---------------------------------------------------------------------------
// Indicator contract — the fixed 54-key feature map fed to scorers
// ---------------------------------------------------------------------------

// IndicatorKeys is the fixed feature contract. Scorer implementations may
// ignore keys but the set itself never changes; absent values are 0.
var IndicatorKeys = []string{
	// Contract analysis.
	"contract_verified", "ownership_renounced", "has_mint_function",
	"has_pause_function", "has_blacklist_function", "has_proxy_pattern",
	"has_selfdestruct", "admin_functions_count", "compiler_version_recent",
	"bytecode_suspicious", "external_calls_safe", "reentrancy_protected",
	// Trade simulation.
	"can_buy", "can_sell", "buy_gas_used", "sell_gas_used",
	"buy_tax_real", "sell_tax_real", "slippage_tolerance", "max_transaction_limit",
	// Supply and liquidity.
	"liquidity_eth", "liquidity_usd", "market_cap_usd", "total_supply",
	"circulating_supply", "burned_percent", "holder_count", "lp_locked",
	"lp_lock_duration_days", "price_usd", "age_minutes", "pair_creation_block",
	// Deployer and ownership history.
	"deployer_address_age", "deployer_previous_tokens", "owner_is_deployer",
	"ownership_transfers_count", "owner_eth_balance", "contract_eth_balance",
	"top10_holders_percent", "owner_balance_percent",
	// Trailing 5-minute window.
	"volume_5min_usd", "buy_count_5min", "sell_count_5min", "unique_buyers_5min",
	"price_change_5min_percent", "price_volatility_5min", "largest_buy_usd", "largest_sell_usd",
	// Behavioral signals.
	"owner_sells_post_launch", "whale_buys_count", "whale_sells_count",
	"suspicious_wallet_funding", "bot_wallets_detected", "coordinated_buying_detected",
}

// Indicators is one feature map over IndicatorKeys. Booleans are encoded
// as 0/1.
type Indicators map[string]float64

// TradeWindow summarizes trading over the trailing five minutes.
type TradeWindow struct {
	VolumeUSD      float64 `json:"volume_usd"`
	BuyCount       int     `json:"buy_count"`
	SellCount      int     `json:"sell_count"`
	UniqueBuyers   int     `json:"unique_buyers"`
	PriceChangePct float64 `json:"price_change_pct"`
	VolatilityPct  float64 `json:"volatility_pct"`
	LargestBuyUSD  float64 `json:"largest_buy_usd"`
	LargestSellUSD float64 `json:"largest_sell_usd"`
}

// BuildIndicators populates the 54-key contract from a token profile and
// its trailing trade window. Keys without a known source stay 0.
func BuildIndicators(p *evm.TokenProfile, w TradeWindow) Indicators {
	ind := make(Indicators, len(IndicatorKeys))
	for _, k := range IndicatorKeys {
		ind[k] = 0
	}

	ind["contract_verified"] = boolTo01(p.Verified)
	ind["ownership_renounced"] = boolTo01(p.Renounced)
	ind["has_mint_function"] = boolTo01(p.Bytecode.CanMint)
	ind["has_pause_function"] = boolTo01(p.Bytecode.CanPause)
	ind["has_blacklist_function"] = boolTo01(p.Bytecode.HasBlacklist)
	ind["has_proxy_pattern"] = boolTo01(p.Bytecode.IsProxy)
	ind["bytecode_suspicious"] = boolTo01(p.Bytecode.CanMint || p.Bytecode.HasBlacklist)

	ind["can_buy"] = boolTo01(p.CanBuy)
	ind["can_sell"] = boolTo01(p.CanSell)
	ind["buy_tax_real"] = p.BuyTaxPct
	ind["sell_tax_real"] = p.SellTaxPct

	ind["liquidity_eth"], _ = p.LiquidityNative.Float64()
	ind["liquidity_usd"], _ = p.LiquidityUSD.Float64()
	ind["market_cap_usd"], _ = p.MarketCapUSD.Float64()
	ind["total_supply"], _ = p.TotalSupply.Float64()
	ind["holder_count"] = float64(p.HolderCount)
	ind["price_usd"], _ = p.PriceUSD.Float64()
	ind["age_minutes"] = p.AgeMinutes()
	ind["pair_creation_block"] = float64(p.BlockNumber)

	ind["top10_holders_percent"] = p.Top10Pct
	ind["owner_balance_percent"] = p.OwnerPct

	ind["volume_5min_usd"] = w.VolumeUSD
	ind["buy_count_5min"] = float64(w.BuyCount)
	ind["sell_count_5min"] = float64(w.SellCount)
	ind["unique_buyers_5min"] = float64(w.UniqueBuyers)
	ind["price_change_5min_percent"] = w.PriceChangePct
	ind["price_volatility_5min"] = w.VolatilityPct
	ind["largest_buy_usd"] = w.LargestBuyUSD
	ind["largest_sell_usd"] = w.LargestSellUSD

	return ind
}

func boolTo01(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
