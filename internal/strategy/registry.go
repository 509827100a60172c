package strategy

import (
	"fmt"
	"sort"
)

// Registry holds the available strategies keyed by name
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates a registry with all built-in strategies installed
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	for _, s := range []Strategy{
		NewBreakout(),
		NewScalping(),
		NewTrendFollowing(),
		NewFundingArbitrage(),
		NewGrid(),
		NewLongShortSwitch(),
		NewVolatilityBreakout(),
	} {
		r.strategies[s.GetName()] = s
	}
	return r
}

// Get returns the strategy registered under name
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
	return s, nil
}

// Names returns all registered strategy names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered strategies in name order
func (r *Registry) All() []Strategy {
	out := make([]Strategy, 0, len(r.strategies))
	for _, name := range r.Names() {
		out = append(out, r.strategies[name])
	}
	return out
}
