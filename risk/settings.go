package risk

import (
	"fmt"
	"sync"

	"github.com/nebulamarket/autotrader/market"
)

// MaxRiskPercentage caps how much of the balance a single trade may risk.
const MaxRiskPercentage = 5.0

// Settings is the per-symbol risk policy read by the position sizer and
// used as the default for automated opens.
type Settings struct {
	RiskPercentage     float64 `yaml:"risk_percentage" json:"riskPercentage"`
	StopLossDistance   float64 `yaml:"stop_loss_distance" json:"stopLossDistance"`
	TakeProfitDistance float64 `yaml:"take_profit_distance" json:"takeProfitDistance"`
}

func (s Settings) Validate() error {
	if s.RiskPercentage <= 0 || s.RiskPercentage > MaxRiskPercentage {
		return fmt.Errorf("risk percentage must be in (0, %g], got %g", MaxRiskPercentage, s.RiskPercentage)
	}
	if s.StopLossDistance <= 0 {
		return fmt.Errorf("stop loss distance must be positive, got %g", s.StopLossDistance)
	}
	if s.TakeProfitDistance < 0 {
		return fmt.Errorf("take profit distance must not be negative, got %g", s.TakeProfitDistance)
	}
	return nil
}

// Store holds the current risk settings per symbol. Reads and updates may
// come from different goroutines (decision loop vs user updates).
type Store struct {
	mu       sync.RWMutex
	settings map[string]Settings
}

// NewStore seeds every registered instrument with 1% risk and its default
// stop/take distances.
func NewStore() *Store {
	s := &Store{settings: make(map[string]Settings, len(market.Instruments))}
	for sym, meta := range market.Instruments {
		s.settings[sym] = Settings{
			RiskPercentage:     1.0,
			StopLossDistance:   meta.DefaultStopLossDistance,
			TakeProfitDistance: meta.DefaultTakeProfitDistance,
		}
	}
	return s
}

func (s *Store) Get(symbol string) (Settings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.settings[symbol]
	return set, ok
}

func (s *Store) Update(symbol string, set Settings) error {
	if _, ok := market.Meta(symbol); !ok {
		return fmt.Errorf("unknown symbol %q", symbol)
	}
	if err := set.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[symbol] = set
	return nil
}

// All returns a copy of the settings for every symbol.
func (s *Store) All() map[string]Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Settings, len(s.settings))
	for sym, set := range s.settings {
		out[sym] = set
	}
	return out
}
