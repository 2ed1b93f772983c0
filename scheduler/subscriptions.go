package scheduler

import (
	"sort"
	"strings"
	"sync"
)

// SubscriptionSet is the set of symbols currently being refreshed. Lifetime
// is bound to process uptime; nothing is persisted.
type SubscriptionSet struct {
	mu      sync.RWMutex
	symbols map[string]struct{}
}

// NewSubscriptionSet creates an empty set
func NewSubscriptionSet() *SubscriptionSet {
	return &SubscriptionSet{symbols: make(map[string]struct{})}
}

// Subscribe adds a symbol. Subscribing twice is a no-op.
func (s *SubscriptionSet) Subscribe(symbol string) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return
	}
	s.mu.Lock()
	s.symbols[normalized] = struct{}{}
	s.mu.Unlock()
}

// Unsubscribe removes a symbol. Removing an absent symbol is a no-op.
func (s *SubscriptionSet) Unsubscribe(symbol string) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	s.mu.Lock()
	delete(s.symbols, normalized)
	s.mu.Unlock()
}

// Contains reports whether a symbol is currently subscribed
func (s *SubscriptionSet) Contains(symbol string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.symbols[normalized]
	return ok
}

// Len returns the number of subscribed symbols
func (s *SubscriptionSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symbols)
}

// Snapshot returns a sorted copy of the current symbols. Tick loops iterate
// the copy, never the live set.
func (s *SubscriptionSet) Snapshot() []string {
	s.mu.RLock()
	symbols := make([]string, 0, len(s.symbols))
	for symbol := range s.symbols {
		symbols = append(symbols, symbol)
	}
	s.mu.RUnlock()

	sort.Strings(symbols)
	return symbols
}
