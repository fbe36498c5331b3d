// Package strategy holds the registry collections resolve allocation strategies from.
package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/schoolfees/backend/internal/domain/shared/strategy"
)

// StrategyRegistry maps allocation strategy names to implementations and
// remembers which one a collection uses when it names none
type StrategyRegistry struct {
	mu                sync.RWMutex
	allocation        map[string]strategy.BillAllocationStrategy
	defaultAllocation string
}

// NewStrategyRegistry creates an empty registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		allocation: make(map[string]strategy.BillAllocationStrategy),
	}
}

// RegisterAllocationStrategy adds s under its name
func (r *StrategyRegistry) RegisterAllocationStrategy(s strategy.BillAllocationStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.allocation[name]; exists {
		return fmt.Errorf("%w: allocation strategy %q already registered", shared.ErrAlreadyExists, name)
	}
	r.allocation[name] = s
	return nil
}

// GetAllocationStrategy returns the strategy called name; an empty name means the default
func (r *StrategyRegistry) GetAllocationStrategy(name string) (strategy.BillAllocationStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		if r.defaultAllocation == "" {
			return nil, fmt.Errorf("%w: no default allocation strategy set", shared.ErrNotFound)
		}
		name = r.defaultAllocation
	}
	s, ok := r.allocation[name]
	if !ok {
		return nil, fmt.Errorf("%w: allocation strategy %q not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// GetAllocationStrategyOrDefault falls back to the default for unknown names.
// It returns nil only when no default is set.
func (r *StrategyRegistry) GetAllocationStrategyOrDefault(name string) strategy.BillAllocationStrategy {
	s, err := r.GetAllocationStrategy(name)
	if err != nil {
		s, _ = r.GetAllocationStrategy("")
	}
	return s
}

// ListAllocationStrategies returns the registered names in sorted order
func (r *StrategyRegistry) ListAllocationStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.allocation))
	for name := range r.allocation {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDefaultAllocation selects the strategy used when a collection names none
func (r *StrategyRegistry) SetDefaultAllocation(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.allocation[name]; !ok {
		return fmt.Errorf("%w: allocation strategy %q not found", shared.ErrNotFound, name)
	}
	r.defaultAllocation = name
	return nil
}

// DefaultAllocation returns the default strategy name, empty when unset
func (r *StrategyRegistry) DefaultAllocation() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultAllocation
}
