package scanner

import (
	"strings"
	"sync"
)

// SeenSet is the cross-chain dedup set of (chain, token) pairs. Keys are
// case-insensitive on the address. The only operation is an atomic
// insert-if-absent, which is what guarantees at-most-once processing per
// token even with concurrent chain scanners.
type SeenSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewSeenSet creates an empty dedup set.
func NewSeenSet() *SeenSet {
	return &SeenSet{keys: make(map[string]struct{})}
}

// Add inserts (chain, token) and reports whether it was absent.
func (s *SeenSet) Add(chain, token string) bool {
	key := strings.ToLower(chain) + ":" + strings.ToLower(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// Len returns the number of tracked tokens.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
