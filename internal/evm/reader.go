package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ---------------------------------------------------------------------------
// Chain Reader Interface
// ---------------------------------------------------------------------------

// ChainReader is the read-only view of one EVM chain used by the scanner
// and profile builder. Implementations: LiveReader (ethclient through the
// endpoint pool), StubReader (testing).
type ChainReader interface {
	// BlockNumber returns the current chain height.
	BlockNumber(ctx context.Context) (uint64, error)

	// FilterPairCreated returns the PairCreated events emitted by the
	// factory in exactly the given block.
	FilterPairCreated(ctx context.Context, factory common.Address, block uint64) ([]PairCreated, error)

	// TokenMetadata reads name/symbol/decimals/totalSupply from a token.
	TokenMetadata(ctx context.Context, token common.Address) (*TokenMetadata, error)

	// TokenOwner reads owner(). Returns the zero address when the token
	// has no owner function or the call reverts.
	TokenOwner(ctx context.Context, token common.Address) (common.Address, error)

	// BalanceOf reads the token balance of holder.
	BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error)

	// PairReserves reads getReserves() and token0() from a pair contract.
	PairReserves(ctx context.Context, pair common.Address) (*Reserves, error)

	// Code returns the deployed bytecode of a contract.
	Code(ctx context.Context, contract common.Address) ([]byte, error)
}
