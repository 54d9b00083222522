package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ---------------------------------------------------------------------------
// EVM chain types
// ---------------------------------------------------------------------------

// PairCreated is a decoded UniswapV2-style factory PairCreated event.
type PairCreated struct {
	Factory     common.Address `json:"factory"`
	Token0      common.Address `json:"token0"`
	Token1      common.Address `json:"token1"`
	Pair        common.Address `json:"pair"`
	BlockNumber uint64         `json:"block_number"`
}

// TokenMetadata is the on-chain ERC-20 metadata for a token contract.
type TokenMetadata struct {
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Decimals    uint8    `json:"decimals"`
	TotalSupply *big.Int `json:"total_supply"`
}

// Reserves is the state of a UniswapV2-style pair.
// Token0 is the pair's token0 so callers can map reserve0/reserve1
// onto the native and token sides.
type Reserves struct {
	Reserve0 *big.Int       `json:"reserve0"`
	Reserve1 *big.Int       `json:"reserve1"`
	Token0   common.Address `json:"token0"`
}

// ZeroAddress is the burn/renounce target for owner() checks.
var ZeroAddress = common.Address{}
