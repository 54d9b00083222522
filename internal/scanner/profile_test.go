package scanner

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rughunter/rughunter/internal/evm"
	"github.com/rughunter/rughunter/internal/pricefeed"
)

func newTestBuilder(stub *evm.StubReader) *ProfileBuilder {
	native := pricefeed.NewStaticTable(map[string]float64{"ethereum": 2000})
	return NewProfileBuilder(stub, native)
}

func TestProfileBuilder(t *testing.T) {
	owner := common.HexToAddress("0x4444444444444444444444444444444444444444")

	t.Run("computes liquidity, price, and market cap", func(t *testing.T) {
		stub := evm.NewStubReader()
		seedToken(stub, testToken, testPair)
		b := newTestBuilder(stub)

		p := b.Build(context.Background(), "ethereum", "uniswap_v2", testToken, testPair, testWETH, 100)

		// 20 WETH * $2000.
		assert.Equal(t, "40000", p.LiquidityUSD.StringFixed(0))
		// (20 / 100000) * 2000 = $0.40.
		assert.Equal(t, "0.4000", p.PriceUSD.StringFixed(4))
		// 1M supply * $0.40.
		assert.Equal(t, "400000", p.MarketCapUSD.StringFixed(0))
		assert.Equal(t, uint64(100), p.BlockNumber)
	})

	t.Run("reserve ordering follows pair token0", func(t *testing.T) {
		stub := evm.NewStubReader()
		stub.AddToken(testToken, evm.TokenMetadata{
			Name: "Flip", Symbol: "FLIP", Decimals: 18, TotalSupply: eth(1000),
		})
		// Token is reserve0, native is reserve1.
		stub.SetReserves(testPair, evm.Reserves{
			Token0:   testToken,
			Reserve0: eth(100_000),
			Reserve1: eth(20),
		})
		b := newTestBuilder(stub)

		p := b.Build(context.Background(), "ethereum", "uniswap_v2", testToken, testPair, testWETH, 100)
		assert.Equal(t, "40000", p.LiquidityUSD.StringFixed(0))
	})

	t.Run("zero total supply yields zero owner pct and market cap", func(t *testing.T) {
		stub := evm.NewStubReader()
		stub.AddToken(testToken, evm.TokenMetadata{
			Name: "Empty", Symbol: "EMPT", Decimals: 18, TotalSupply: big.NewInt(0),
		})
		stub.SetOwner(testToken, owner)
		stub.SetReserves(testPair, evm.Reserves{
			Token0:   testWETH,
			Reserve0: eth(20),
			Reserve1: eth(100_000),
		})
		b := newTestBuilder(stub)

		p := b.Build(context.Background(), "ethereum", "uniswap_v2", testToken, testPair, testWETH, 100)
		assert.Zero(t, p.OwnerPct)
		assert.True(t, p.MarketCapUSD.IsZero())
		assert.False(t, p.Renounced)
	})

	t.Run("owner fraction from balance", func(t *testing.T) {
		stub := evm.NewStubReader()
		seedToken(stub, testToken, testPair)
		stub.SetOwner(testToken, owner)
		stub.SetBalance(testToken, owner, eth(250_000)) // 25% of 1M
		b := newTestBuilder(stub)

		p := b.Build(context.Background(), "ethereum", "uniswap_v2", testToken, testPair, testWETH, 100)
		assert.InDelta(t, 25.0, p.OwnerPct, 0.001)
		assert.False(t, p.Renounced)
	})

	t.Run("zero owner address means renounced", func(t *testing.T) {
		stub := evm.NewStubReader()
		seedToken(stub, testToken, testPair)
		b := newTestBuilder(stub)

		p := b.Build(context.Background(), "ethereum", "uniswap_v2", testToken, testPair, testWETH, 100)
		assert.True(t, p.Renounced)
		assert.Zero(t, p.OwnerPct)
	})

	t.Run("fetch failure degrades to zero liquidity", func(t *testing.T) {
		stub := evm.NewStubReader()
		stub.FailReads(true)
		b := newTestBuilder(stub)

		p := b.Build(context.Background(), "ethereum", "uniswap_v2", testToken, testPair, testWETH, 100)
		require.NotNil(t, p)
		assert.True(t, p.LiquidityUSD.IsZero())
		assert.Equal(t, "ethereum", p.Chain)
	})
}

func TestScanBytecode(t *testing.T) {
	t.Run("empty bytecode has no flags", func(t *testing.T) {
		assert.Equal(t, evm.BytecodeFlags{}, ScanBytecode(nil))
	})

	t.Run("mint selector", func(t *testing.T) {
		code, _ := hex.DecodeString("60806040" + "40c10f19" + "00")
		flags := ScanBytecode(code)
		assert.True(t, flags.CanMint)
		assert.False(t, flags.CanPause)
	})

	t.Run("pause selector", func(t *testing.T) {
		code, _ := hex.DecodeString("8456cb59")
		assert.True(t, ScanBytecode(code).CanPause)
	})

	t.Run("blacklist marker string", func(t *testing.T) {
		flags := ScanBytecode([]byte("xxblacklistxx"))
		assert.True(t, flags.HasBlacklist)
	})

	t.Run("minimal proxy prefix", func(t *testing.T) {
		code, _ := hex.DecodeString("363d3d373d3d3d363d73")
		assert.True(t, ScanBytecode(code).IsProxy)
	})

	t.Run("plain bytecode is clean", func(t *testing.T) {
		code, _ := hex.DecodeString("6080604052600080fd")
		assert.Equal(t, evm.BytecodeFlags{}, ScanBytecode(code))
	})
}
