package bot

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nebulamarket/autotrader/market"
)

// EnabledSet is the set of instruments the decision loop trades. It only
// changes through explicit Enable/Disable calls.
type EnabledSet struct {
	mu      sync.RWMutex
	symbols map[string]struct{}
}

func NewEnabledSet(symbols ...string) (*EnabledSet, error) {
	s := &EnabledSet{symbols: make(map[string]struct{})}
	for _, sym := range symbols {
		if err := s.Enable(sym); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *EnabledSet) Enable(symbol string) error {
	if _, ok := market.Meta(symbol); !ok {
		return fmt.Errorf("enable: unknown symbol %q", symbol)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols[symbol] = struct{}{}
	return nil
}

func (s *EnabledSet) Disable(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.symbols, symbol)
}

func (s *EnabledSet) Contains(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.symbols[symbol]
	return ok
}

// List returns the enabled symbols in sorted order.
func (s *EnabledSet) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
