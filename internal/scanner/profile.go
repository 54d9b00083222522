package scanner

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/rughunter/rughunter/internal/evm"
	"github.com/rughunter/rughunter/internal/pricefeed"
)

// ---------------------------------------------------------------------------
// Token Profile Builder — on-chain metadata, reserves, ownership, bytecode
// ---------------------------------------------------------------------------

// ProfileBuilder turns a discovered pair into a TokenProfile. Every fetch
// failure degrades to a zero-liquidity profile so the floor filter drops
// the token downstream; building never aborts the scan loop.
type ProfileBuilder struct {
	reader evm.ChainReader
	native pricefeed.NativeSource
}

// NewProfileBuilder creates a profile builder over one chain reader.
func NewProfileBuilder(reader evm.ChainReader, native pricefeed.NativeSource) *ProfileBuilder {
	return &ProfileBuilder{reader: reader, native: native}
}

// Build assembles the profile for token paired with the wrapped native
// asset at pair. The returned profile is never nil.
func (b *ProfileBuilder) Build(ctx context.Context, chain, dex string, token, pair, wrappedNative common.Address, block uint64) *evm.TokenProfile {
	profile := &evm.TokenProfile{
		Chain:        chain,
		Token:        token,
		Pair:         pair,
		DEX:          dex,
		BlockNumber:  block,
		DiscoveredAt: time.Now().UTC(),
		CanBuy:       true,
		CanSell:      true,
	}

	meta, err := b.reader.TokenMetadata(ctx, token)
	if err != nil {
		log.Warn().
			Str("chain", chain).
			Str("token", token.Hex()).
			Err(err).
			Msg("profile: metadata fetch failed, emitting zero-liquidity profile")
		return profile
	}
	profile.Name = meta.Name
	profile.Symbol = meta.Symbol
	profile.Decimals = meta.Decimals
	profile.TotalSupply = wholeUnits(meta.TotalSupply, meta.Decimals)

	b.readOwnership(ctx, profile, meta.TotalSupply)

	if err := b.readLiquidity(ctx, profile, wrappedNative); err != nil {
		log.Warn().
			Str("chain", chain).
			Str("token", token.Hex()).
			Err(err).
			Msg("profile: reserve fetch failed, emitting zero-liquidity profile")
		profile.LiquidityNative = decimal.Zero
		profile.LiquidityUSD = decimal.Zero
		profile.PriceUSD = decimal.Zero
		profile.MarketCapUSD = decimal.Zero
		return profile
	}

	if code, err := b.reader.Code(ctx, token); err == nil {
		profile.Bytecode = ScanBytecode(code)
	}

	return profile
}

// readOwnership resolves owner(), the renounced flag, and the owner's
// share of supply. A missing owner function is not suspicious.
func (b *ProfileBuilder) readOwnership(ctx context.Context, profile *evm.TokenProfile, rawSupply *big.Int) {
	owner, err := b.reader.TokenOwner(ctx, profile.Token)
	if err != nil || owner == evm.ZeroAddress {
		profile.Renounced = true
		return
	}
	profile.Owner = owner

	if rawSupply == nil || rawSupply.Sign() == 0 {
		return
	}
	balance, err := b.reader.BalanceOf(ctx, profile.Token, owner)
	if err != nil {
		return
	}
	frac := new(big.Float).Quo(new(big.Float).SetInt(balance), new(big.Float).SetInt(rawSupply))
	pct, _ := new(big.Float).Mul(frac, big.NewFloat(100)).Float64()
	profile.OwnerPct = pct
}

// readLiquidity splits the pair reserves by token ordering and derives
// liquidity, spot price, and market cap in USD.
func (b *ProfileBuilder) readLiquidity(ctx context.Context, profile *evm.TokenProfile, wrappedNative common.Address) error {
	reserves, err := b.reader.PairReserves(ctx, profile.Pair)
	if err != nil {
		return err
	}

	var nativeRaw, tokenRaw *big.Int
	if reserves.Token0 == wrappedNative {
		nativeRaw, tokenRaw = reserves.Reserve0, reserves.Reserve1
	} else {
		nativeRaw, tokenRaw = reserves.Reserve1, reserves.Reserve0
	}

	// Wrapped native assets are 18-decimal on every supported chain.
	nativeReserve := wholeUnits(nativeRaw, 18)
	tokenReserve := wholeUnits(tokenRaw, profile.Decimals)

	nativePrice := b.native.PriceUSD(profile.Chain)
	profile.LiquidityNative = nativeReserve
	profile.LiquidityUSD = nativeReserve.Mul(nativePrice)

	if tokenReserve.IsPositive() {
		profile.PriceUSD = nativeReserve.Div(tokenReserve).Mul(nativePrice)
	} else {
		profile.PriceUSD = decimal.Zero
	}
	profile.MarketCapUSD = profile.TotalSupply.Mul(profile.PriceUSD)
	return nil
}

// wholeUnits converts a raw integer token amount to whole units.
func wholeUnits(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, 0).Shift(-int32(decimals))
}
