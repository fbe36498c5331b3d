package fee

import (
	"github.com/shopspring/decimal"
)

// FeeTypeRef identifies a fee type by ID and display name
type FeeTypeRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FeeDetailDraft is one row of a collection form: a fee type with the amount
// and discount about to be collected.
type FeeDetailDraft struct {
	FeeTypeID      int64           `json:"fee_type_id"`
	Amount         decimal.Decimal `json:"amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// NetAmount returns amount minus discount
func (d FeeDetailDraft) NetAmount() decimal.Decimal {
	return d.Amount.Sub(d.DiscountAmount)
}

// UnmatchedItem is an outstanding entry whose fee-type name is unknown
type UnmatchedItem struct {
	BillNo  string          `json:"bill_no"`
	FeeType string          `json:"fee_type"`
	Due     decimal.Decimal `json:"due"`
}

// Aggregation is the merged outstanding dues of one or more bills
type Aggregation struct {
	Drafts    []FeeDetailDraft `json:"drafts"`
	Unmatched []UnmatchedItem  `json:"unmatched,omitempty"`
}

// Total returns the net sum of all drafts
func (a Aggregation) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range a.Drafts {
		total = total.Add(d.NetAmount())
	}
	return total
}

// UnmatchedTotal returns the dues that could not be placed on any draft
func (a Aggregation) UnmatchedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, u := range a.Unmatched {
		total = total.Add(u.Due)
	}
	return total
}

// AggregateOutstanding runs OutstandingItems over bills in order and merges
// the entries by fee type. Amounts always add; a discount is added only for
// entries that were fully unpaid. Drafts keep first-seen order. Entries whose
// fee-type name has no reference are returned in Unmatched.
func AggregateOutstanding(bills []LedgerBill, feeTypes []FeeTypeRef) Aggregation {
	byName := make(map[string]int64, len(feeTypes))
	for _, ft := range feeTypes {
		if _, exists := byName[ft.Name]; !exists {
			byName[ft.Name] = ft.ID
		}
	}

	agg := Aggregation{Drafts: make([]FeeDetailDraft, 0)}
	index := make(map[int64]int)

	for _, bill := range bills {
		for _, entry := range OutstandingItems(bill) {
			feeTypeID, ok := byName[entry.FeeType]
			if !ok {
				agg.Unmatched = append(agg.Unmatched, UnmatchedItem{
					BillNo:  entry.BillNo,
					FeeType: entry.FeeType,
					Due:     entry.Due(),
				})
				continue
			}

			discount := decimal.Zero
			if entry.FullyUnpaid {
				discount = entry.Discount
			}

			if i, seen := index[feeTypeID]; seen {
				agg.Drafts[i].Amount = agg.Drafts[i].Amount.Add(entry.Amount)
				agg.Drafts[i].DiscountAmount = agg.Drafts[i].DiscountAmount.Add(discount)
				continue
			}

			index[feeTypeID] = len(agg.Drafts)
			agg.Drafts = append(agg.Drafts, FeeDetailDraft{
				FeeTypeID:      feeTypeID,
				Amount:         entry.Amount,
				DiscountAmount: discount,
			})
		}
	}
	return agg
}
