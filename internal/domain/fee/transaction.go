package fee

import (
	"fmt"
	"strings"
	"time"

	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMode is how a fee was paid
type PaymentMode string

const (
	PaymentModeCash    PaymentMode = "cash"
	PaymentModeCheque  PaymentMode = "cheque"
	PaymentModeOnline  PaymentMode = "online"
	PaymentModeCard    PaymentMode = "card"
	PaymentModeUPI     PaymentMode = "upi"
	PaymentModeAdvance PaymentMode = "advance"
)

// IsValid checks if the mode is known
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeCheque, PaymentModeOnline,
		PaymentModeCard, PaymentModeUPI, PaymentModeAdvance:
		return true
	}
	return false
}

// PaymentDetail is the per-fee-type breakdown of a collection
type PaymentDetail struct {
	FeeTypeID      int64
	FeeTypeName    string
	Amount         decimal.Decimal
	DiscountAmount decimal.Decimal
	NetAmount      decimal.Decimal
}

// BillAllocation records how much of a collection went to one bill
type BillAllocation struct {
	BillNo        string
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
}

// FeeTransaction is one fee collection, the receipt of record
type FeeTransaction struct {
	shared.BaseEntity
	TransactionID string
	ReceiptNo     string
	StudentID     string
	SessionID     int
	Amount        decimal.Decimal
	Description   string
	PaymentMode   PaymentMode
	Date          time.Time
	Remarks       string
	CollectedBy   string
	Details       []PaymentDetail
	Allocations   []BillAllocation
}

// NewFeeTransaction builds a transaction from form rows. No row may discount
// more than its amount, and the net sum of the rows must be positive.
func NewFeeTransaction(studentID string, sessionID int, mode PaymentMode, rows []FeeDetailDraft, date time.Time) (*FeeTransaction, error) {
	if strings.TrimSpace(studentID) == "" || sessionID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Student and session are required")
	}
	if len(rows) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Fee details cannot be empty")
	}
	if !mode.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown payment mode: "+string(mode))
	}

	details := make([]PaymentDetail, 0, len(rows))
	total := decimal.Zero
	for _, row := range rows {
		if row.FeeTypeID <= 0 {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Each fee detail requires a fee type")
		}
		if row.Amount.IsNegative() || row.DiscountAmount.IsNegative() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Fee detail amounts cannot be negative")
		}
		if row.DiscountAmount.GreaterThan(row.Amount) {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Discount exceeds amount for fee type %d", row.FeeTypeID))
		}
		net := row.NetAmount()
		details = append(details, PaymentDetail{
			FeeTypeID:      row.FeeTypeID,
			Amount:         row.Amount,
			DiscountAmount: row.DiscountAmount,
			NetAmount:      net,
		})
		total = total.Add(net)
	}
	if !total.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Total amount must be greater than zero")
	}

	return &FeeTransaction{
		BaseEntity:  shared.NewBaseEntity(),
		StudentID:   studentID,
		SessionID:   sessionID,
		Amount:      total,
		PaymentMode: mode,
		Date:        date,
		Details:     details,
	}, nil
}

// IsAdvance returns true for payments made ahead of any bill
func (t *FeeTransaction) IsAdvance() bool {
	return t.PaymentMode == PaymentModeAdvance
}

// AllocatedAmount returns the part of the transaction applied to bills
func (t *FeeTransaction) AllocatedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, a := range t.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// UnallocatedAmount returns the part held as advance
func (t *FeeTransaction) UnallocatedAmount() decimal.Decimal {
	return t.Amount.Sub(t.AllocatedAmount())
}
