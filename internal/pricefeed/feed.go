package pricefeed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Per-token price feed
// ---------------------------------------------------------------------------

// Feed supplies the current price of an open position's token.
type Feed interface {
	CurrentPrice(ctx context.Context, token, chain string) (decimal.Decimal, error)
}

// Stub is a settable in-memory feed for tests and offline runs.
type Stub struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

var _ Feed = (*Stub)(nil)

// NewStub creates an empty stub feed.
func NewStub() *Stub {
	return &Stub{prices: make(map[string]decimal.Decimal)}
}

// Set fixes the price returned for (token, chain).
func (s *Stub) Set(token, chain string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[feedKey(token, chain)] = price
}

// CurrentPrice returns the last set price.
func (s *Stub) CurrentPrice(_ context.Context, token, chain string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[feedKey(token, chain)]
	if !ok {
		return decimal.Zero, fmt.Errorf("pricefeed: no price for %s on %s", token, chain)
	}
	return price, nil
}

func feedKey(token, chain string) string {
	return strings.ToLower(chain) + ":" + strings.ToLower(token)
}

// Seeder is a feed that accepts externally supplied prices. Freshly
// detected tokens have no tick history, so their discovery price is
// seeded until live ticks arrive.
type Seeder interface {
	Set(token, chain string, price decimal.Decimal)
}

var _ Seeder = (*Stub)(nil)

// Fallback queries feeds in order and returns the first price found.
type Fallback struct {
	feeds []Feed
}

var _ Feed = (*Fallback)(nil)

// NewFallback chains feeds; earlier feeds win.
func NewFallback(feeds ...Feed) *Fallback {
	return &Fallback{feeds: feeds}
}

// CurrentPrice returns the first feed's answer, falling through on error.
func (f *Fallback) CurrentPrice(ctx context.Context, token, chain string) (decimal.Decimal, error) {
	var lastErr error
	for _, feed := range f.feeds {
		price, err := feed.CurrentPrice(ctx, token, chain)
		if err == nil {
			return price, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("pricefeed: no feeds configured")
	}
	return decimal.Zero, lastErr
}
