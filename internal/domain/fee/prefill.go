package fee

import (
	"strings"
	"time"

	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ErrStaleStudent is returned when a prefill computed for one student is
// applied to a form that now belongs to another student or session.
var ErrStaleStudent = shared.NewDomainError(shared.CodeStaleStudent, "Prefill was computed for a different student or session")

// CollectionForm is the editable payment form a collector reviews before submitting
type CollectionForm struct {
	StudentID   string           `json:"student_id"`
	SessionID   int              `json:"session_id"`
	BillNo      string           `json:"bill_no,omitempty"`
	FeeDetails  []FeeDetailDraft `json:"fee_details"`
	Remarks     string           `json:"remarks,omitempty"`
	PaymentMode PaymentMode      `json:"payment_mode,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	ReceiptNo   string           `json:"receipt_no,omitempty"`
	CollectedBy string           `json:"collected_by,omitempty"`
}

// Total returns the net sum of the form's rows
func (f *CollectionForm) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range f.FeeDetails {
		total = total.Add(d.NetAmount())
	}
	return total
}

// PrefillMode names what triggered a prefill
type PrefillMode string

const (
	PrefillModeBill        PrefillMode = "bill"
	PrefillModeAllPending  PrefillMode = "all_pending"
	PrefillModeFirstUnpaid PrefillMode = "first_unpaid"
)

// IsValid reports whether m is a known mode
func (m PrefillMode) IsValid() bool {
	switch m {
	case PrefillModeBill, PrefillModeAllPending, PrefillModeFirstUnpaid:
		return true
	}
	return false
}

// DuesSnapshot is everything a prefill is computed from. It is tagged with the
// student and session it was loaded for.
type DuesSnapshot struct {
	StudentID    string
	SessionID    int
	PendingBills []LedgerBill
	FeeTypes     []FeeTypeRef
}

// Prefill is a computed, not yet applied, form update
type Prefill struct {
	StudentID  string           `json:"student_id"`
	SessionID  int              `json:"session_id"`
	Mode       PrefillMode      `json:"mode"`
	BillNos    []string         `json:"bill_nos"`
	FeeDetails []FeeDetailDraft `json:"fee_details"`
	Unmatched  []UnmatchedItem  `json:"unmatched,omitempty"`
}

// Applicable reports whether applying the prefill would change the form.
// A prefill with no rows leaves the form as it was.
func (p Prefill) Applicable() bool {
	return len(p.FeeDetails) > 0
}

// Remarks returns the traceability note written into the form
func (p Prefill) Remarks() string {
	if len(p.BillNos) == 0 {
		return ""
	}
	if p.Mode == PrefillModeAllPending {
		return "Payment for Bills: " + strings.Join(p.BillNos, ", ")
	}
	return "Payment for Bill: " + p.BillNos[0]
}

// targetBillNo is the bill the form should be tied to, or empty when the
// prefill spans several bills.
func (p Prefill) targetBillNo() string {
	if p.Mode == PrefillModeAllPending || len(p.BillNos) != 1 {
		return ""
	}
	return p.BillNos[0]
}

// collectible reports whether a bill is worth prefilling from
func collectible(b LedgerBill) bool {
	return b.Balance.IsPositive() && len(b.Items) > 0
}

// PrefillForBill computes the dues of the pending bill with the given number.
// A missing, settled or empty bill yields a prefill that is not applicable.
func PrefillForBill(s DuesSnapshot, billNo string) Prefill {
	p := Prefill{StudentID: s.StudentID, SessionID: s.SessionID, Mode: PrefillModeBill, FeeDetails: []FeeDetailDraft{}}
	for _, b := range s.PendingBills {
		if b.BillNo != billNo {
			continue
		}
		if !collectible(b) {
			return p
		}
		agg := AggregateOutstanding([]LedgerBill{b}, s.FeeTypes)
		p.BillNos = []string{b.BillNo}
		p.FeeDetails = agg.Drafts
		p.Unmatched = agg.Unmatched
		return p
	}
	return p
}

// PrefillAllPending merges the dues of every collectible pending bill
func PrefillAllPending(s DuesSnapshot) Prefill {
	p := Prefill{StudentID: s.StudentID, SessionID: s.SessionID, Mode: PrefillModeAllPending, FeeDetails: []FeeDetailDraft{}}

	bills := make([]LedgerBill, 0, len(s.PendingBills))
	for _, b := range s.PendingBills {
		if collectible(b) {
			bills = append(bills, b)
			p.BillNos = append(p.BillNos, b.BillNo)
		}
	}
	agg := AggregateOutstanding(bills, s.FeeTypes)
	p.FeeDetails = agg.Drafts
	p.Unmatched = agg.Unmatched
	return p
}

// PrefillFirstUnpaid computes the dues of the first pending bill with a balance
func PrefillFirstUnpaid(s DuesSnapshot) Prefill {
	for _, b := range s.PendingBills {
		if b.Balance.IsPositive() {
			p := PrefillForBill(s, b.BillNo)
			p.Mode = PrefillModeFirstUnpaid
			return p
		}
	}
	return Prefill{StudentID: s.StudentID, SessionID: s.SessionID, Mode: PrefillModeFirstUnpaid, FeeDetails: []FeeDetailDraft{}}
}

// ApplyPrefill writes p into form, replacing its rows and remarks. It refuses
// when the form belongs to another student or session, and does nothing when p
// is not applicable. Applying the same prefill twice gives the same form.
func ApplyPrefill(form *CollectionForm, p Prefill) (bool, error) {
	if form.StudentID != p.StudentID || form.SessionID != p.SessionID {
		return false, ErrStaleStudent
	}
	if !p.Applicable() {
		return false, nil
	}

	details := make([]FeeDetailDraft, len(p.FeeDetails))
	copy(details, p.FeeDetails)

	form.FeeDetails = details
	form.Remarks = p.Remarks()
	form.BillNo = p.targetBillNo()
	return true, nil
}

// FillFeeHeadRow sets row index of the form from a fee head's status. An
// unpaid head fills its gross amount and discount; a partly paid head fills
// its balance with no discount. Heads with nothing due are ignored. An index
// equal to the row count appends a row.
func FillFeeHeadRow(form *CollectionForm, index int, head FeeHead) bool {
	if !head.Balance.IsPositive() || index < 0 || index > len(form.FeeDetails) {
		return false
	}

	row := FeeDetailDraft{FeeTypeID: head.FeeTypeID}
	if head.Paid.IsZero() {
		row.Amount = head.GrossAmount
		row.DiscountAmount = head.Discount
	} else {
		row.Amount = head.Balance
		row.DiscountAmount = decimal.Zero
	}

	if index == len(form.FeeDetails) {
		form.FeeDetails = append(form.FeeDetails, row)
	} else {
		form.FeeDetails[index] = row
	}
	return true
}
