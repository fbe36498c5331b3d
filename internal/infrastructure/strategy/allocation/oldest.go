package allocation

import (
	"context"

	"github.com/schoolfees/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// OldestBillStrategy applies the whole payment to the oldest open bill.
// Whatever that bill cannot absorb is left unallocated.
type OldestBillStrategy struct{}

// NewOldestBillStrategy creates a new oldest-bill strategy
func NewOldestBillStrategy() *OldestBillStrategy {
	return &OldestBillStrategy{}
}

func (s *OldestBillStrategy) Name() string { return "oldest_bill" }

func (s *OldestBillStrategy) Description() string {
	return "Allocate the whole payment to the oldest open bill"
}

// Allocate allocates payment to the oldest bill only
func (s *OldestBillStrategy) Allocate(
	ctx context.Context,
	allocCtx strategy.AllocationContext,
	bills []strategy.PendingBill,
) (strategy.AllocationResult, error) {
	result := strategy.AllocationResult{
		Allocations:    make([]strategy.Allocation, 0, 1),
		TotalAllocated: decimal.Zero,
		Remaining:      allocCtx.PaymentAmount,
	}
	if !allocCtx.PaymentAmount.IsPositive() {
		return result, nil
	}

	for _, bill := range sortByPeriod(bills) {
		if !bill.Balance.IsPositive() {
			continue
		}
		allocated := decimal.Min(allocCtx.PaymentAmount, bill.Balance)
		result.Allocations = append(result.Allocations, strategy.Allocation{
			BillNo:          bill.BillNo,
			AllocatedAmount: allocated,
			BalanceBefore:   bill.Balance,
			BalanceAfter:    bill.Balance.Sub(allocated),
		})
		result.TotalAllocated = allocated
		result.Remaining = allocCtx.PaymentAmount.Sub(allocated)
		break
	}
	return result, nil
}
