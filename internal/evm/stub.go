package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ---------------------------------------------------------------------------
// Stub Chain Reader (for testing and offline development)
// ---------------------------------------------------------------------------

// StubReader is an in-memory ChainReader for tests.
type StubReader struct {
	mu       sync.RWMutex
	height   uint64
	events   map[string][]PairCreated // "factory:block" -> events
	tokens   map[common.Address]*TokenMetadata
	owners   map[common.Address]common.Address
	balances map[string]*big.Int // "token:holder" -> balance
	reserves map[common.Address]*Reserves
	code     map[common.Address][]byte

	failBlockNumber bool
	failReads       bool
}

// NewStubReader creates an empty stub reader.
func NewStubReader() *StubReader {
	return &StubReader{
		events:   make(map[string][]PairCreated),
		tokens:   make(map[common.Address]*TokenMetadata),
		owners:   make(map[common.Address]common.Address),
		balances: make(map[string]*big.Int),
		reserves: make(map[common.Address]*Reserves),
		code:     make(map[common.Address][]byte),
	}
}

var _ ChainReader = (*StubReader)(nil)

// SetHeight sets the current chain height.
func (s *StubReader) SetHeight(h uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.height = h
}

// AddPairCreated registers a PairCreated event for a factory/block.
func (s *StubReader) AddPairCreated(factory common.Address, ev PairCreated) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := eventKey(factory, ev.BlockNumber)
	s.events[key] = append(s.events[key], ev)
}

// AddToken registers token metadata.
func (s *StubReader) AddToken(token common.Address, meta TokenMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = &meta
}

// SetOwner registers the owner() result for a token.
func (s *StubReader) SetOwner(token, owner common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[token] = owner
}

// SetBalance registers a balanceOf result.
func (s *StubReader) SetBalance(token, holder common.Address, balance *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[balanceKey(token, holder)] = balance
}

// SetReserves registers a pair's reserves.
func (s *StubReader) SetReserves(pair common.Address, r Reserves) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserves[pair] = &r
}

// SetCode registers deployed bytecode for a contract.
func (s *StubReader) SetCode(contract common.Address, code []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code[contract] = code
}

// FailBlockNumber makes every BlockNumber call fail (scanner error paths).
func (s *StubReader) FailBlockNumber(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failBlockNumber = fail
}

// FailReads makes token/pair reads fail (profile degradation paths).
func (s *StubReader) FailReads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = fail
}

func (s *StubReader) BlockNumber(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failBlockNumber {
		return 0, fmt.Errorf("stub: block number unavailable")
	}
	return s.height, nil
}

func (s *StubReader) FilterPairCreated(_ context.Context, factory common.Address, block uint64) ([]PairCreated, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events[eventKey(factory, block)], nil
}

func (s *StubReader) TokenMetadata(_ context.Context, token common.Address) (*TokenMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failReads {
		return nil, fmt.Errorf("stub: reads disabled")
	}
	meta, ok := s.tokens[token]
	if !ok {
		return nil, fmt.Errorf("stub: unknown token %s", token.Hex())
	}
	cp := *meta
	return &cp, nil
}

func (s *StubReader) TokenOwner(_ context.Context, token common.Address) (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owners[token], nil
}

func (s *StubReader) BalanceOf(_ context.Context, token, holder common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.balances[balanceKey(token, holder)]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (s *StubReader) PairReserves(_ context.Context, pair common.Address) (*Reserves, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failReads {
		return nil, fmt.Errorf("stub: reads disabled")
	}
	r, ok := s.reserves[pair]
	if !ok {
		return nil, fmt.Errorf("stub: unknown pair %s", pair.Hex())
	}
	cp := *r
	return &cp, nil
}

func (s *StubReader) Code(_ context.Context, contract common.Address) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code[contract], nil
}

func eventKey(factory common.Address, block uint64) string {
	return fmt.Sprintf("%s:%d", strings.ToLower(factory.Hex()), block)
}

func balanceKey(token, holder common.Address) string {
	return strings.ToLower(token.Hex()) + ":" + strings.ToLower(holder.Hex())
}
