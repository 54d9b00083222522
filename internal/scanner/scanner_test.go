package scanner

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rughunter/rughunter/internal/evm"
	"github.com/rughunter/rughunter/internal/honeypot"
	"github.com/rughunter/rughunter/internal/pricefeed"
	"github.com/rughunter/rughunter/internal/security"
)

var (
	testWETH    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	testFactory = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	testToken   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testPair    = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// eth converts whole units to a raw 18-decimal amount.
func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func newTestScanner(t *testing.T, stub *evm.StubReader, out chan Detection) *Scanner {
	t.Helper()
	native := pricefeed.NewStaticTable(map[string]float64{"ethereum": 2000})
	builder := NewProfileBuilder(stub, native)
	hp := honeypot.NewStatic(honeypot.Result{CanBuy: true, CanSell: true})
	checker := security.NewChecker(security.Preset("MODERATE"))

	cfg := DefaultConfig("ethereum")
	return New(cfg, []Factory{{Name: "uniswap_v2", Address: testFactory}},
		testWETH, stub, builder, hp, checker, NewSeenSet(), out)
}

// seedToken registers a healthy token with ~$40k liquidity on the stub.
func seedToken(stub *evm.StubReader, token, pair common.Address) {
	stub.AddToken(token, evm.TokenMetadata{
		Name:        "Test Token",
		Symbol:      "TEST",
		Decimals:    18,
		TotalSupply: eth(1_000_000),
	})
	stub.SetReserves(pair, evm.Reserves{
		Token0:   testWETH,
		Reserve0: eth(20), // 20 WETH * $2000 = $40k
		Reserve1: eth(100_000),
	})
}

func TestScannerHandleEvent(t *testing.T) {
	t.Run("emits a detection for a native quoted pair", func(t *testing.T) {
		stub := evm.NewStubReader()
		seedToken(stub, testToken, testPair)
		out := make(chan Detection, 4)
		s := newTestScanner(t, stub, out)

		s.handleEvent(context.Background(), "uniswap_v2", evm.PairCreated{
			Factory: testFactory, Token0: testWETH, Token1: testToken,
			Pair: testPair, BlockNumber: 100,
		})

		require.Len(t, out, 1)
		d := <-out
		assert.Equal(t, "TEST", d.Profile.Symbol)
		assert.Equal(t, "ethereum", d.Profile.Chain)
		assert.True(t, d.Profile.LiquidityUSD.Equal(d.Profile.LiquidityNative.Mul(decimal.NewFromInt(2000))))
		assert.NotNil(t, d.Assessment)
		assert.Contains(t, d.Links, "dexscreener")
	})

	t.Run("same token twice yields exactly one detection", func(t *testing.T) {
		stub := evm.NewStubReader()
		seedToken(stub, testToken, testPair)
		out := make(chan Detection, 4)
		s := newTestScanner(t, stub, out)

		ev := evm.PairCreated{
			Factory: testFactory, Token0: testWETH, Token1: testToken,
			Pair: testPair, BlockNumber: 100,
		}
		s.handleEvent(context.Background(), "uniswap_v2", ev)
		s.handleEvent(context.Background(), "uniswap_v2", ev)

		assert.Len(t, out, 1)
		assert.Equal(t, int64(1), s.Stats().Detections)
	})

	t.Run("skips pairs without the wrapped native asset", func(t *testing.T) {
		stub := evm.NewStubReader()
		out := make(chan Detection, 4)
		s := newTestScanner(t, stub, out)

		other := common.HexToAddress("0x3333333333333333333333333333333333333333")
		s.handleEvent(context.Background(), "uniswap_v2", evm.PairCreated{
			Factory: testFactory, Token0: other, Token1: testToken,
			Pair: testPair, BlockNumber: 100,
		})

		assert.Empty(t, out)
		assert.Equal(t, int64(1), s.Stats().PairsSkipped)
	})

	t.Run("discards below the liquidity floor", func(t *testing.T) {
		stub := evm.NewStubReader()
		stub.AddToken(testToken, evm.TokenMetadata{
			Name: "Dust", Symbol: "DUST", Decimals: 18, TotalSupply: eth(1000),
		})
		stub.SetReserves(testPair, evm.Reserves{
			Token0:   testWETH,
			Reserve0: eth(1), // $2000 < $10k floor
			Reserve1: eth(500),
		})
		out := make(chan Detection, 4)
		s := newTestScanner(t, stub, out)

		s.handleEvent(context.Background(), "uniswap_v2", evm.PairCreated{
			Factory: testFactory, Token0: testWETH, Token1: testToken,
			Pair: testPair, BlockNumber: 100,
		})

		assert.Empty(t, out)
	})

	t.Run("metadata failure degrades to a filtered zero-liquidity profile", func(t *testing.T) {
		stub := evm.NewStubReader()
		stub.FailReads(true)
		out := make(chan Detection, 4)
		s := newTestScanner(t, stub, out)

		s.handleEvent(context.Background(), "uniswap_v2", evm.PairCreated{
			Factory: testFactory, Token0: testWETH, Token1: testToken,
			Pair: testPair, BlockNumber: 100,
		})

		assert.Empty(t, out)
		assert.Equal(t, int64(1), s.Stats().PairsSeen)
	})
}

func TestScannerCycle(t *testing.T) {
	t.Run("processes forward from start height in capped batches", func(t *testing.T) {
		stub := evm.NewStubReader()
		seedToken(stub, testToken, testPair)
		stub.SetHeight(100)
		out := make(chan Detection, 16)
		s := newTestScanner(t, stub, out)
		s.lastScanned = 100

		// An event in an already-scanned block is never revisited.
		stub.AddPairCreated(testFactory, evm.PairCreated{
			Factory: testFactory, Token0: testWETH, Token1: testToken,
			Pair: testPair, BlockNumber: 99,
		})

		// Chain jumps 25 blocks; only 10 are processed this cycle.
		stub.SetHeight(125)
		require.NoError(t, s.scanCycle(context.Background()))
		assert.Equal(t, int64(10), s.Stats().BlocksScanned)
		assert.Equal(t, uint64(125), s.Status().LastScannedBlock)
		assert.Empty(t, out)
	})

	t.Run("picks up events in newly scanned blocks", func(t *testing.T) {
		stub := evm.NewStubReader()
		seedToken(stub, testToken, testPair)
		stub.SetHeight(100)
		out := make(chan Detection, 16)
		s := newTestScanner(t, stub, out)
		s.lastScanned = 100

		stub.AddPairCreated(testFactory, evm.PairCreated{
			Factory: testFactory, Token0: testWETH, Token1: testToken,
			Pair: testPair, BlockNumber: 103,
		})
		stub.SetHeight(105)

		require.NoError(t, s.scanCycle(context.Background()))
		assert.Len(t, out, 1)
	})

	t.Run("height failure surfaces as a cycle error", func(t *testing.T) {
		stub := evm.NewStubReader()
		out := make(chan Detection, 4)
		s := newTestScanner(t, stub, out)
		stub.FailBlockNumber(true)

		assert.Error(t, s.scanCycle(context.Background()))
	})
}

func TestSeenSet(t *testing.T) {
	s := NewSeenSet()
	assert.True(t, s.Add("ethereum", "0xAbC"))
	assert.False(t, s.Add("ethereum", "0xabc"), "address compare is case-insensitive")
	assert.True(t, s.Add("bsc", "0xabc"), "chains are independent")
	assert.Equal(t, 2, s.Len())
}
