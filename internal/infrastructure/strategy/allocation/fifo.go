package allocation

import (
	"context"
	"sort"

	"github.com/schoolfees/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// FIFOAllocationStrategy spreads a payment over bills, oldest period first
type FIFOAllocationStrategy struct{}

// NewFIFOAllocationStrategy creates a new FIFO allocation strategy
func NewFIFOAllocationStrategy() *FIFOAllocationStrategy {
	return &FIFOAllocationStrategy{}
}

func (s *FIFOAllocationStrategy) Name() string { return "fifo" }

func (s *FIFOAllocationStrategy) Description() string {
	return "Allocate payments to the oldest bills first"
}

// Allocate allocates payment to bills in FIFO order
func (s *FIFOAllocationStrategy) Allocate(
	ctx context.Context,
	allocCtx strategy.AllocationContext,
	bills []strategy.PendingBill,
) (strategy.AllocationResult, error) {
	sorted := sortByPeriod(bills)

	remainingAmount := allocCtx.PaymentAmount
	allocations := make([]strategy.Allocation, 0)
	totalAllocated := decimal.Zero

	for _, bill := range sorted {
		if !remainingAmount.IsPositive() {
			break
		}
		if !bill.Balance.IsPositive() {
			continue
		}

		allocatedAmount := decimal.Min(remainingAmount, bill.Balance)
		allocations = append(allocations, strategy.Allocation{
			BillNo:          bill.BillNo,
			AllocatedAmount: allocatedAmount,
			BalanceBefore:   bill.Balance,
			BalanceAfter:    bill.Balance.Sub(allocatedAmount),
		})

		remainingAmount = remainingAmount.Sub(allocatedAmount)
		totalAllocated = totalAllocated.Add(allocatedAmount)
	}

	return strategy.AllocationResult{
		Allocations:    allocations,
		TotalAllocated: totalAllocated,
		Remaining:      remainingAmount,
	}, nil
}

// sortByPeriod orders bills by (year, month), then due date
func sortByPeriod(bills []strategy.PendingBill) []strategy.PendingBill {
	sorted := make([]strategy.PendingBill, len(bills))
	copy(sorted, bills)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.DueDate.Before(b.DueDate)
	})
	return sorted
}
