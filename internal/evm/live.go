package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ---------------------------------------------------------------------------
// Live Chain Reader — eth_call / eth_getLogs through the endpoint pool
// ---------------------------------------------------------------------------

// LiveReader implements ChainReader against real RPC nodes. Every call goes
// through the pool's retry/failover policy.
type LiveReader struct {
	pool       *Pool
	maxRetries int
}

// NewLiveReader creates a ChainReader backed by the given endpoint pool.
func NewLiveReader(pool *Pool, maxRetries int) *LiveReader {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &LiveReader{pool: pool, maxRetries: maxRetries}
}

var _ ChainReader = (*LiveReader)(nil)

// BlockNumber returns the current chain height.
func (r *LiveReader) BlockNumber(ctx context.Context) (uint64, error) {
	var height uint64
	err := r.pool.Call(ctx, func(ctx context.Context, client *ethclient.Client) error {
		n, err := client.BlockNumber(ctx)
		if err != nil {
			return err
		}
		height = n
		return nil
	}, r.maxRetries)
	return height, err
}

// FilterPairCreated fetches PairCreated logs from the factory in one block.
func (r *LiveReader) FilterPairCreated(ctx context.Context, factory common.Address, block uint64) ([]PairCreated, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(block),
		ToBlock:   new(big.Int).SetUint64(block),
		Addresses: []common.Address{factory},
		Topics:    [][]common.Hash{{pairCreatedTopic}},
	}

	var events []PairCreated
	err := r.pool.Call(ctx, func(ctx context.Context, client *ethclient.Client) error {
		logs, err := client.FilterLogs(ctx, query)
		if err != nil {
			return err
		}
		events = events[:0]
		for _, lg := range logs {
			if len(lg.Topics) < 3 || len(lg.Data) < 32 {
				continue
			}
			events = append(events, PairCreated{
				Factory:     lg.Address,
				Token0:      common.BytesToAddress(lg.Topics[1].Bytes()),
				Token1:      common.BytesToAddress(lg.Topics[2].Bytes()),
				Pair:        common.BytesToAddress(lg.Data[12:32]),
				BlockNumber: lg.BlockNumber,
			})
		}
		return nil
	}, r.maxRetries)
	return events, err
}

// TokenMetadata reads the ERC-20 metadata set from a token contract.
func (r *LiveReader) TokenMetadata(ctx context.Context, token common.Address) (*TokenMetadata, error) {
	meta := &TokenMetadata{}

	if err := r.callString(ctx, token, "name", &meta.Name); err != nil {
		return nil, fmt.Errorf("token name: %w", err)
	}
	if err := r.callString(ctx, token, "symbol", &meta.Symbol); err != nil {
		return nil, fmt.Errorf("token symbol: %w", err)
	}

	var decimals uint8
	if err := r.callUnpack(ctx, token, erc20ABI, "decimals", &decimals); err != nil {
		return nil, fmt.Errorf("token decimals: %w", err)
	}
	meta.Decimals = decimals

	supply := new(big.Int)
	if err := r.callUnpack(ctx, token, erc20ABI, "totalSupply", &supply); err != nil {
		return nil, fmt.Errorf("token totalSupply: %w", err)
	}
	meta.TotalSupply = supply

	return meta, nil
}

// TokenOwner reads owner(). A revert or missing function is not an error:
// the zero address is returned and callers treat the token as renounced.
func (r *LiveReader) TokenOwner(ctx context.Context, token common.Address) (common.Address, error) {
	var owner common.Address
	if err := r.callUnpack(ctx, token, erc20ABI, "owner", &owner); err != nil {
		return ZeroAddress, nil
	}
	return owner, nil
}

// BalanceOf reads the token balance of holder.
func (r *LiveReader) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", holder)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	balance := new(big.Int)
	err = r.pool.Call(ctx, func(ctx context.Context, client *ethclient.Client) error {
		out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		if err != nil {
			return err
		}
		return erc20ABI.UnpackIntoInterface(&balance, "balanceOf", out)
	}, r.maxRetries)
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// PairReserves reads getReserves() and token0() from a pair contract.
func (r *LiveReader) PairReserves(ctx context.Context, pair common.Address) (*Reserves, error) {
	reservesData, err := pairABI.Pack("getReserves")
	if err != nil {
		return nil, fmt.Errorf("pack getReserves: %w", err)
	}
	token0Data, err := pairABI.Pack("token0")
	if err != nil {
		return nil, fmt.Errorf("pack token0: %w", err)
	}

	res := &Reserves{}
	err = r.pool.Call(ctx, func(ctx context.Context, client *ethclient.Client) error {
		out, err := client.CallContract(ctx, ethereum.CallMsg{To: &pair, Data: reservesData}, nil)
		if err != nil {
			return err
		}
		vals, err := pairABI.Unpack("getReserves", out)
		if err != nil {
			return err
		}
		if len(vals) < 2 {
			return fmt.Errorf("getReserves: short return")
		}
		r0, ok0 := vals[0].(*big.Int)
		r1, ok1 := vals[1].(*big.Int)
		if !ok0 || !ok1 {
			return fmt.Errorf("getReserves: unexpected types")
		}
		res.Reserve0 = r0
		res.Reserve1 = r1

		out, err = client.CallContract(ctx, ethereum.CallMsg{To: &pair, Data: token0Data}, nil)
		if err != nil {
			return err
		}
		return pairABI.UnpackIntoInterface(&res.Token0, "token0", out)
	}, r.maxRetries)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Code returns the deployed bytecode of a contract.
func (r *LiveReader) Code(ctx context.Context, contract common.Address) ([]byte, error) {
	var code []byte
	err := r.pool.Call(ctx, func(ctx context.Context, client *ethclient.Client) error {
		out, err := client.CodeAt(ctx, contract, nil)
		if err != nil {
			return err
		}
		code = out
		return nil
	}, r.maxRetries)
	return code, err
}

func (r *LiveReader) callString(ctx context.Context, to common.Address, method string, dst *string) error {
	return r.callUnpack(ctx, to, erc20ABI, method, dst)
}

// callUnpack packs a no-argument call, executes it through the pool and
// unpacks the single return value into dst.
func (r *LiveReader) callUnpack(ctx context.Context, to common.Address, contractABI abi.ABI, method string, dst interface{}) error {
	data, err := contractABI.Pack(method)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	return r.pool.Call(ctx, func(ctx context.Context, client *ethclient.Client) error {
		out, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			return err
		}
		if len(out) == 0 {
			return fmt.Errorf("%s: empty return", method)
		}
		return contractABI.UnpackIntoInterface(dst, method, out)
	}, r.maxRetries)
}
