package fee

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdvanceDraw is advance money moved from one earlier collection onto a bill
type AdvanceDraw struct {
	TransactionID uuid.UUID
	Allocation    BillAllocation
}

// AvailableAdvance returns what a student can still draw onto a new bill:
// collected money not yet allocated to any bill, capped by the advance
// balance over the student's existing bills.
func AvailableAdvance(bills []DemandBill, txns []FeeTransaction) decimal.Decimal {
	unallocated := decimal.Zero
	for i := range txns {
		if u := txns[i].UnallocatedAmount(); u.IsPositive() {
			unallocated = unallocated.Add(u)
		}
	}
	return decimal.Min(unallocated, AdvanceBalance(bills, txns))
}

// DrawAdvance applies up to limit of the transactions' unallocated money to
// a bill that has not been saved yet, oldest collection first. It returns
// one draw per collection touched.
func DrawAdvance(bill *DemandBill, txns []FeeTransaction, limit decimal.Decimal) []AdvanceDraw {
	order := make([]int, len(txns))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return txns[order[a]].Date.Before(txns[order[b]].Date)
	})

	draws := make([]AdvanceDraw, 0)
	remaining := decimal.Min(limit, bill.Balance())
	for _, i := range order {
		if !remaining.IsPositive() {
			break
		}
		free := txns[i].UnallocatedAmount()
		if !free.IsPositive() {
			continue
		}
		take := decimal.Min(free, remaining)
		before := bill.Balance()
		bill.drawAdvance(take)
		remaining = remaining.Sub(take)
		draws = append(draws, AdvanceDraw{
			TransactionID: txns[i].ID,
			Allocation: BillAllocation{
				BillNo:        bill.BillNo,
				Amount:        take,
				BalanceBefore: before,
				BalanceAfter:  bill.Balance(),
			},
		})
	}
	return draws
}

// AdvanceUsed sums the draws
func AdvanceUsed(draws []AdvanceDraw) decimal.Decimal {
	total := decimal.Zero
	for _, d := range draws {
		total = total.Add(d.Allocation.Amount)
	}
	return total
}
