package evm

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Token profile — the shared on-chain picture of a newly paired token
// ---------------------------------------------------------------------------

// BytecodeFlags are heuristic danger signals extracted from deployed
// bytecode. Substring/selector matching only; a flag is a hint to the
// scorer, never a verdict.
type BytecodeFlags struct {
	CanMint      bool `json:"can_mint"`
	CanPause     bool `json:"can_pause"`
	HasBlacklist bool `json:"has_blacklist"`
	IsProxy      bool `json:"is_proxy"`
}

// TokenProfile describes one newly paired token. Built once per unique
// (chain, token); the honeypot checker later fills in the tax and
// tradability fields, everything else is fixed at build time.
type TokenProfile struct {
	Chain string         `json:"chain"`
	Token common.Address `json:"token"`
	Pair  common.Address `json:"pair"`
	DEX   string         `json:"dex"`

	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Decimals    uint8           `json:"decimals"`
	TotalSupply decimal.Decimal `json:"total_supply"` // whole units

	Owner     common.Address `json:"owner"`
	OwnerPct  float64        `json:"owner_pct"` // owner balance / total supply * 100
	Renounced bool           `json:"renounced"`

	LiquidityNative decimal.Decimal `json:"liquidity_native"`
	LiquidityUSD    decimal.Decimal `json:"liquidity_usd"`
	PriceUSD        decimal.Decimal `json:"price_usd"`
	MarketCapUSD    decimal.Decimal `json:"market_cap_usd"`

	Bytecode BytecodeFlags `json:"bytecode"`

	BlockNumber  uint64    `json:"block_number"`
	DiscoveredAt time.Time `json:"discovered_at"`

	// Filled in by the honeypot check, consumed by the security scorer.
	BuyTaxPct  float64 `json:"buy_tax_pct"`
	SellTaxPct float64 `json:"sell_tax_pct"`
	CanBuy     bool    `json:"can_buy"`
	CanSell    bool    `json:"can_sell"`
	Verified   bool    `json:"verified"`
	Audited    bool    `json:"audited"`

	// Off-chain figures when an enrichment source provides them; zero
	// values mean unknown.
	HolderCount     int     `json:"holder_count"`
	Top10Pct        float64 `json:"top10_pct"`
	Volume24hUSD    float64 `json:"volume_24h_usd"`
	Volatility1hPct float64 `json:"volatility_1h_pct"`
}

// AgeMinutes returns minutes since discovery.
func (p *TokenProfile) AgeMinutes() float64 {
	return time.Since(p.DiscoveredAt).Minutes()
}
