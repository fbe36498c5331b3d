// Package strategy defines how a collected amount is spread over pending bills.
package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PendingBill is the allocation view of a demand bill with an open balance
type PendingBill struct {
	BillNo  string
	Month   int
	Year    int
	DueDate time.Time
	Balance decimal.Decimal
}

// Allocation is the share of a payment applied to one bill
type Allocation struct {
	BillNo          string
	AllocatedAmount decimal.Decimal
	BalanceBefore   decimal.Decimal
	BalanceAfter    decimal.Decimal
}

// AllocationContext describes the payment being spread over bills
type AllocationContext struct {
	StudentID     string
	SessionID     int
	PaymentAmount decimal.Decimal
	PaymentDate   time.Time
}

// AllocationResult contains the result of payment allocation.
// Remaining is the part of the payment no bill could absorb.
type AllocationResult struct {
	Allocations    []Allocation
	TotalAllocated decimal.Decimal
	Remaining      decimal.Decimal
}

// BillAllocationStrategy spreads one collected amount across a student's pending bills.
// Name is the value collections and the billing config select it by.
type BillAllocationStrategy interface {
	Name() string
	Description() string
	Allocate(ctx context.Context, allocCtx AllocationContext, bills []PendingBill) (AllocationResult, error)
}
