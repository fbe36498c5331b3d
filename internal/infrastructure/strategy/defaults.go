package strategy

import (
	"github.com/schoolfees/backend/internal/infrastructure/strategy/allocation"
)

// NewRegistryWithDefaults creates a registry with the bill allocation
// strategies registered and defaultAllocation selected. An empty name
// selects FIFO.
func NewRegistryWithDefaults(defaultAllocation string) (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	fifoAlloc := allocation.NewFIFOAllocationStrategy()
	if err := r.RegisterAllocationStrategy(fifoAlloc); err != nil {
		return nil, err
	}
	if err := r.RegisterAllocationStrategy(allocation.NewOldestBillStrategy()); err != nil {
		return nil, err
	}

	if defaultAllocation == "" {
		defaultAllocation = fifoAlloc.Name()
	}
	if err := r.SetDefaultAllocation(defaultAllocation); err != nil {
		return nil, err
	}
	return r, nil
}
