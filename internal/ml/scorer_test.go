package ml

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rughunter/rughunter/internal/evm"
)

func TestIndicatorContract(t *testing.T) {
	assert.Len(t, IndicatorKeys, 54, "the indicator contract is fixed at 54 keys")

	seen := make(map[string]struct{}, len(IndicatorKeys))
	for _, k := range IndicatorKeys {
		_, dup := seen[k]
		assert.False(t, dup, "duplicate key %s", k)
		seen[k] = struct{}{}
	}
}

func TestBuildIndicators(t *testing.T) {
	p := &evm.TokenProfile{
		Chain:        "ethereum",
		Verified:     true,
		Renounced:    true,
		CanBuy:       true,
		CanSell:      true,
		SellTaxPct:   3,
		LiquidityUSD: decimal.NewFromInt(40_000),
		TotalSupply:  decimal.NewFromInt(1_000_000),
		HolderCount:  120,
		DiscoveredAt: time.Now(),
		Bytecode:     evm.BytecodeFlags{CanMint: true},
	}
	w := TradeWindow{VolumeUSD: 12_000, BuyCount: 30, SellCount: 10, UniqueBuyers: 25}

	ind := BuildIndicators(p, w)

	assert.Len(t, ind, 54, "every contract key is present")
	assert.Equal(t, 1.0, ind["contract_verified"])
	assert.Equal(t, 1.0, ind["has_mint_function"])
	assert.Equal(t, 0.0, ind["has_pause_function"])
	assert.Equal(t, 3.0, ind["sell_tax_real"])
	assert.Equal(t, 40000.0, ind["liquidity_usd"])
	assert.Equal(t, 30.0, ind["buy_count_5min"])
	assert.Equal(t, 0.0, ind["lp_locked"], "unsourced keys stay zero")
}

func TestHeuristicPredict(t *testing.T) {
	t.Run("scores stay in range", func(t *testing.T) {
		s := NewHeuristic().Predict(Indicators{})
		for _, v := range []float64{s.RugRisk, s.ProfitPotential, s.Confidence} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	})

	t.Run("honeypot dominates rug risk", func(t *testing.T) {
		h := NewHeuristic()
		safe := h.Predict(Indicators{"can_sell": 1, "contract_verified": 1, "ownership_renounced": 1, "liquidity_usd": 50_000})
		trap := h.Predict(Indicators{"can_sell": 0, "contract_verified": 1, "ownership_renounced": 1, "liquidity_usd": 50_000})
		assert.Greater(t, trap.RugRisk, safe.RugRisk+40)
	})

	t.Run("deterministic for equal input", func(t *testing.T) {
		h := NewHeuristic()
		ind := Indicators{"can_sell": 1, "liquidity_usd": 30_000, "buy_count_5min": 12, "sell_count_5min": 4}
		assert.Equal(t, h.Predict(ind), h.Predict(ind))
	})
}
