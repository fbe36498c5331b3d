package fee

import (
	"fmt"
	"strings"
	"time"

	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BillStatus represents the status of a demand bill
type BillStatus string

const (
	BillStatusPending       BillStatus = "PENDING"
	BillStatusSent          BillStatus = "SENT"
	BillStatusPartiallyPaid BillStatus = "PARTIALLY_PAID"
	BillStatusPaid          BillStatus = "PAID"
	BillStatusOverdue       BillStatus = "OVERDUE"
	BillStatusCancelled     BillStatus = "CANCELLED"
)

// IsValid checks if the status is a valid BillStatus
func (s BillStatus) IsValid() bool {
	switch s {
	case BillStatusPending, BillStatusSent, BillStatusPartiallyPaid,
		BillStatusPaid, BillStatusOverdue, BillStatusCancelled:
		return true
	}
	return false
}

// OpenBillStatuses are the stored statuses of bills that can still take payments
var OpenBillStatuses = []BillStatus{
	BillStatusPending,
	BillStatusSent,
	BillStatusPartiallyPaid,
	BillStatusOverdue,
}

// BillItem is one fee line of a demand bill
type BillItem struct {
	FeeTypeID      int64
	FeeTypeName    string
	Amount         decimal.Decimal
	DiscountAmount decimal.Decimal
}

// DemandBill is a monthly statement of fees owed by one student.
// PaidAmount is cumulative; how it splits across items is derived, never stored.
// AdvanceApplied is the part of PaidAmount drawn from earlier overpayments
// when the bill was generated.
type DemandBill struct {
	shared.BaseAggregateRoot
	BillNo     string
	StudentID  string
	SessionID  int
	Month      int
	Year       int
	BillDate   time.Time
	DueDate    time.Time
	Items      []BillItem
	PaidAmount     decimal.Decimal
	AdvanceApplied decimal.Decimal
	Status         BillStatus
	PaidDate       *time.Time
}

// NewDemandBill creates a pending bill
func NewDemandBill(billNo, studentID string, sessionID, month, year int, billDate, dueDate time.Time, items []BillItem) (*DemandBill, error) {
	if strings.TrimSpace(billNo) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Bill number cannot be empty")
	}
	if strings.TrimSpace(studentID) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Student ID cannot be empty")
	}
	if month < 1 || month > 12 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Month must be between 1 and 12")
	}
	if year < 2000 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Year is out of range")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Bill must have at least one item")
	}
	for _, item := range items {
		if item.Amount.IsNegative() || item.DiscountAmount.IsNegative() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Bill amounts cannot be negative")
		}
		if item.DiscountAmount.GreaterThan(item.Amount) {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Discount exceeds amount for fee type %s", item.FeeTypeName))
		}
	}

	return &DemandBill{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BillNo:            billNo,
		StudentID:         studentID,
		SessionID:         sessionID,
		Month:             month,
		Year:              year,
		BillDate:          billDate,
		DueDate:           dueDate,
		Items:             append([]BillItem(nil), items...),
		PaidAmount:        decimal.Zero,
		AdvanceApplied:    decimal.Zero,
		Status:            BillStatusPending,
	}, nil
}

// GrossAmount returns the sum of item amounts
func (b *DemandBill) GrossAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.Amount)
	}
	return total
}

// TotalDiscount returns the sum of item discounts
func (b *DemandBill) TotalDiscount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.DiscountAmount)
	}
	return total
}

// NetAmount returns gross minus discount
func (b *DemandBill) NetAmount() decimal.Decimal {
	return b.GrossAmount().Sub(b.TotalDiscount())
}

// Balance returns what is still owed, never below zero
func (b *DemandBill) Balance() decimal.Decimal {
	balance := b.NetAmount().Sub(b.PaidAmount)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// DynamicStatus derives the display status at now from amounts and due date
func (b *DemandBill) DynamicStatus(now time.Time) BillStatus {
	if b.Status == BillStatusCancelled {
		return BillStatusCancelled
	}
	if !b.Balance().IsPositive() {
		return BillStatusPaid
	}
	if b.PaidAmount.IsPositive() {
		return BillStatusPartiallyPaid
	}
	if b.DueDate.Before(now) {
		return BillStatusOverdue
	}
	return BillStatusPending
}

// IsOpen returns true if the bill can still take payments
func (b *DemandBill) IsOpen() bool {
	return b.Status != BillStatusCancelled && b.Balance().IsPositive()
}

// CanDelete returns true if no collection has been applied to the bill.
// Advance drawn at generation does not count; deleting returns it.
func (b *DemandBill) CanDelete() bool {
	return !b.PaidAmount.GreaterThan(b.AdvanceApplied)
}

// ApplyPayment adds amount to the paid total and moves the stored status
func (b *DemandBill) ApplyPayment(amount decimal.Decimal, at time.Time) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Payment amount must be positive")
	}
	if b.Status == BillStatusCancelled {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot apply payment to a cancelled bill")
	}

	b.addPaid(amount, at)
	b.IncrementVersion()
	return nil
}

// drawAdvance credits advance to a bill that has not been saved yet
func (b *DemandBill) drawAdvance(amount decimal.Decimal) {
	b.AdvanceApplied = b.AdvanceApplied.Add(amount)
	b.addPaid(amount, b.BillDate)
}

func (b *DemandBill) addPaid(amount decimal.Decimal, at time.Time) {
	b.PaidAmount = b.PaidAmount.Add(amount)
	if b.PaidAmount.GreaterThanOrEqual(b.NetAmount()) {
		b.Status = BillStatusPaid
		paidAt := at
		b.PaidDate = &paidAt
	} else {
		b.Status = BillStatusPartiallyPaid
		b.PaidDate = nil
	}
}

// Ledger returns the bill in the shape the waterfall reader consumes
func (b *DemandBill) Ledger() LedgerBill {
	items := make([]LineItem, len(b.Items))
	for i, item := range b.Items {
		items[i] = LineItem{
			FeeType:  item.FeeTypeName,
			Amount:   item.Amount,
			Discount: item.DiscountAmount,
		}
	}
	return LedgerBill{
		BillNo:  b.BillNo,
		Items:   items,
		Paid:    b.PaidAmount,
		Balance: b.Balance(),
	}
}

// Outstanding returns the bill's per-item outstanding dues
func (b *DemandBill) Outstanding() []OutstandingEntry {
	return OutstandingItems(b.Ledger())
}
