package pricefeed

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Native-currency USD price source
// ---------------------------------------------------------------------------

// NativeSource supplies the USD price of a chain's native currency.
// Profiles are valued with it; a configured table is an acknowledged
// stand-in for a live oracle.
type NativeSource interface {
	PriceUSD(chain string) decimal.Decimal
}

// StaticTable is a NativeSource backed by configured per-chain prices.
type StaticTable struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

var _ NativeSource = (*StaticTable)(nil)

// NewStaticTable builds a table from chain -> USD price.
func NewStaticTable(prices map[string]float64) *StaticTable {
	t := &StaticTable{prices: make(map[string]decimal.Decimal, len(prices))}
	for chain, usd := range prices {
		t.prices[strings.ToLower(chain)] = decimal.NewFromFloat(usd)
	}
	return t
}

// PriceUSD returns the configured price, zero for unknown chains.
func (t *StaticTable) PriceUSD(chain string) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.prices[strings.ToLower(chain)]
}

// Set updates one chain's price.
func (t *StaticTable) Set(chain string, usd float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prices[strings.ToLower(chain)] = decimal.NewFromFloat(usd)
}
