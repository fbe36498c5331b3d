package fee

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// FeeHead is the status of one fee type across all of a student's bills
type FeeHead struct {
	FeeTypeID   int64           `json:"fee_type_id"`
	FeeType     string          `json:"fee_type"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
	Discount    decimal.Decimal `json:"discount"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	Paid        decimal.Decimal `json:"paid"`
	Balance     decimal.Decimal `json:"balance"`
}

// Summary totals a student's fee position for a session
type Summary struct {
	TotalGross     decimal.Decimal `json:"total_gross"`
	TotalDiscount  decimal.Decimal `json:"total_discount"`
	TotalNet       decimal.Decimal `json:"total_net"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalDues      decimal.Decimal `json:"total_dues"`
	AdvanceBalance decimal.Decimal `json:"advance_balance"`
}

// BuildFeeHeads groups bill items by fee type and charges each head with the
// payment details collected against it. Heads keep first-seen order.
func BuildFeeHeads(bills []DemandBill, txns []FeeTransaction) []FeeHead {
	heads := make([]FeeHead, 0)
	index := make(map[int64]int)

	for _, bill := range bills {
		for _, item := range bill.Items {
			i, ok := index[item.FeeTypeID]
			if !ok {
				i = len(heads)
				index[item.FeeTypeID] = i
				heads = append(heads, FeeHead{FeeTypeID: item.FeeTypeID, FeeType: item.FeeTypeName})
			}
			heads[i].GrossAmount = heads[i].GrossAmount.Add(item.Amount)
			heads[i].Discount = heads[i].Discount.Add(item.DiscountAmount)
		}
	}

	for _, txn := range txns {
		for _, d := range txn.Details {
			if i, ok := index[d.FeeTypeID]; ok {
				heads[i].Paid = heads[i].Paid.Add(d.NetAmount)
			}
		}
	}

	for i := range heads {
		heads[i].NetAmount = heads[i].GrossAmount.Sub(heads[i].Discount)
		balance := heads[i].NetAmount.Sub(heads[i].Paid)
		if balance.IsNegative() {
			balance = decimal.Zero
		}
		heads[i].Balance = balance
	}
	return heads
}

// Summarize totals the fee heads. Money collected beyond the total billed net
// is reported as advance.
func Summarize(heads []FeeHead, bills []DemandBill, txns []FeeTransaction) Summary {
	s := Summary{}
	for _, h := range heads {
		s.TotalGross = s.TotalGross.Add(h.GrossAmount)
		s.TotalDiscount = s.TotalDiscount.Add(h.Discount)
		s.TotalNet = s.TotalNet.Add(h.NetAmount)
		s.TotalPaid = s.TotalPaid.Add(h.Paid)
		s.TotalDues = s.TotalDues.Add(h.Balance)
	}

	s.AdvanceBalance = AdvanceBalance(bills, txns)
	return s
}

// AdvanceBalance returns what has been collected beyond everything billed,
// never below zero
func AdvanceBalance(bills []DemandBill, txns []FeeTransaction) decimal.Decimal {
	collected := decimal.Zero
	for _, t := range txns {
		collected = collected.Add(t.Amount)
	}
	billed := decimal.Zero
	for i := range bills {
		billed = billed.Add(bills[i].NetAmount())
	}
	if advance := collected.Sub(billed); advance.IsPositive() {
		return advance
	}
	return decimal.Zero
}

// OutstandingDues sums the balances of the given bills, skipping cancelled ones
func OutstandingDues(bills []DemandBill) decimal.Decimal {
	total := decimal.Zero
	for i := range bills {
		if bills[i].Status == BillStatusCancelled {
			continue
		}
		total = total.Add(bills[i].Balance())
	}
	return total
}

// PendingBills returns bills that still carry a balance, ordered by due date
func PendingBills(bills []DemandBill) []DemandBill {
	pending := make([]DemandBill, 0, len(bills))
	for _, b := range bills {
		if b.IsOpen() {
			pending = append(pending, b)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].DueDate.Before(pending[j].DueDate)
	})
	return pending
}

// Snapshot builds the dues snapshot a prefill is computed from
func Snapshot(studentID string, sessionID int, bills []DemandBill, feeTypes []FeeType) DuesSnapshot {
	pending := PendingBills(bills)
	ledgers := make([]LedgerBill, len(pending))
	for i := range pending {
		ledgers[i] = pending[i].Ledger()
	}
	return DuesSnapshot{
		StudentID:    studentID,
		SessionID:    sessionID,
		PendingBills: ledgers,
		FeeTypes:     Refs(feeTypes),
	}
}

// DateRange bounds a statement query. Zero values are open ends.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range, inclusive
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}
