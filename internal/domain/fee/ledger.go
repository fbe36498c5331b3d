// Package fee holds the school-fee domain: fee types, demand bills, collections,
// and the pure ledger functions that turn a bill's cumulative payment into
// per-item outstanding dues.
package fee

import (
	"github.com/shopspring/decimal"
)

// LineItem is one fee line of a bill as read by the ledger.
// FeeType is the fee-type name, not its ID.
type LineItem struct {
	FeeType  string          `json:"fee_type"`
	Amount   decimal.Decimal `json:"amount"`
	Discount decimal.Decimal `json:"discount"`
}

// Net returns amount minus discount, floored at zero
func (i LineItem) Net() decimal.Decimal {
	net := i.Amount.Sub(i.Discount)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// LedgerBill is a bill reduced to what the waterfall needs: ordered items and
// one cumulative paid figure with no per-item breakdown.
type LedgerBill struct {
	BillNo  string          `json:"bill_no"`
	Items   []LineItem      `json:"items"`
	Paid    decimal.Decimal `json:"paid"`
	Balance decimal.Decimal `json:"balance"`
}

// OutstandingEntry is the unpaid part of one line item.
//
// When nothing was paid toward the item FullyUnpaid is set and Amount/Discount
// carry the original gross and discount. Otherwise Amount is the remaining due
// and Discount is zero.
type OutstandingEntry struct {
	BillNo      string          `json:"bill_no"`
	FeeType     string          `json:"fee_type"`
	Amount      decimal.Decimal `json:"amount"`
	Discount    decimal.Decimal `json:"discount"`
	FullyUnpaid bool            `json:"fully_unpaid"`
}

// Due returns the net amount still owed for the entry
func (e OutstandingEntry) Due() decimal.Decimal {
	return e.Amount.Sub(e.Discount)
}

// OutstandingItems applies bill.Paid to the items front to back and returns
// the items that still carry a balance, in item order. Items whose net is zero
// never appear. Paid beyond the bill's total net is ignored.
func OutstandingItems(bill LedgerBill) []OutstandingEntry {
	remaining := bill.Paid
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	entries := make([]OutstandingEntry, 0, len(bill.Items))
	for _, item := range bill.Items {
		net := item.Net()
		allocated := decimal.Min(remaining, net)
		remaining = remaining.Sub(allocated)

		due := net.Sub(allocated)
		if !due.IsPositive() {
			continue
		}

		if due.Equal(net) {
			entries = append(entries, OutstandingEntry{
				BillNo:      bill.BillNo,
				FeeType:     item.FeeType,
				Amount:      item.Amount,
				Discount:    item.Discount,
				FullyUnpaid: true,
			})
			continue
		}

		entries = append(entries, OutstandingEntry{
			BillNo:   bill.BillNo,
			FeeType:  item.FeeType,
			Amount:   due,
			Discount: decimal.Zero,
		})
	}
	return entries
}

// TotalNet returns the sum of item nets
func (b LedgerBill) TotalNet() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.Net())
	}
	return total
}
