package fee

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// LateFeeName is the fee type charged per earlier bill left unpaid
const LateFeeName = "Late Fee"

// GenerationOptions control how a student's bill items are derived
type GenerationOptions struct {
	// SelectedFeeTypeIDs limits billing to these fee types; empty bills all
	SelectedFeeTypeIDs []int64
	AutoLateFees       bool
	LateFeeName        string
	// UnpaidEarlierBills is the count of earlier bills still carrying a balance
	UnpaidEarlierBills int
}

func (o GenerationOptions) selected(feeTypeID int64) bool {
	if len(o.SelectedFeeTypeIDs) == 0 {
		return true
	}
	for _, id := range o.SelectedFeeTypeIDs {
		if id == feeTypeID {
			return true
		}
	}
	return false
}

func (o GenerationOptions) lateFeeName() string {
	if o.LateFeeName == "" {
		return LateFeeName
	}
	return o.LateFeeName
}

// BuildBillItems turns a class fee structure into bill items for one student.
// The late-fee item is never billed at face value; it is multiplied by the
// number of unpaid earlier bills and only added when that number is positive.
func BuildBillItems(structure *FeeStructure, discounts []StudentDiscount, opts GenerationOptions) []BillItem {
	byFeeType := make(map[int64]StudentDiscount, len(discounts))
	for _, d := range discounts {
		byFeeType[d.FeeTypeID] = d
	}

	items := make([]BillItem, 0, len(structure.Items))
	for _, si := range structure.Items {
		if !opts.selected(si.FeeTypeID) {
			continue
		}

		amount := si.Amount
		if si.FeeTypeName == opts.lateFeeName() {
			if !opts.AutoLateFees || opts.UnpaidEarlierBills <= 0 {
				continue
			}
			amount = amount.Mul(decimal.NewFromInt(int64(opts.UnpaidEarlierBills)))
		}
		if !amount.IsPositive() {
			continue
		}

		discount := decimal.Zero
		if d, ok := byFeeType[si.FeeTypeID]; ok {
			discount = d.Apply(amount)
		}
		items = append(items, BillItem{
			FeeTypeID:      si.FeeTypeID,
			FeeTypeName:    si.FeeTypeName,
			Amount:         amount,
			DiscountAmount: discount,
		})
	}
	return items
}

// DefaultDueDate is the given day of the month after the bill month
func DefaultDueDate(month, year, day int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if day < 1 || day > 28 {
		day = 10
	}
	return time.Date(year, time.Month(month)+1, day, 0, 0, 0, 0, loc)
}

// CountUnpaidBefore counts bills dated before (month, year) that still carry a balance
func CountUnpaidBefore(bills []DemandBill, month, year int) int {
	count := 0
	for i := range bills {
		b := &bills[i]
		if b.Year > year || (b.Year == year && b.Month >= month) {
			continue
		}
		if b.IsOpen() {
			count++
		}
	}
	return count
}

// BillNumberGenerator issues BILL{year}{month}{seq} numbers. seq is a
// millisecond clock forced to move forward, so numbers from one generator
// never repeat.
type BillNumberGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewBillNumberGenerator creates a generator on the wall clock
func NewBillNumberGenerator() *BillNumberGenerator {
	return &BillNumberGenerator{now: time.Now}
}

// Next returns the next bill number for the period
func (g *BillNumberGenerator) Next(month, year int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	seq := g.now().UnixMilli()
	if seq <= g.last {
		seq = g.last + 1
	}
	g.last = seq
	return fmt.Sprintf("BILL%d%02d%d", year, month, seq)
}

var billNoPattern = regexp.MustCompile(`BILL\d+`)

// ParseBillNoFromRemarks extracts the bill number written by a single-bill
// prefill. Remarks from other sources yield "".
func ParseBillNoFromRemarks(remarks string) string {
	if !strings.Contains(remarks, "Payment for Bill:") {
		return ""
	}
	return billNoPattern.FindString(remarks)
}

// GenerationStatus is the outcome of billing one student
type GenerationStatus string

const (
	GenerationGenerated GenerationStatus = "generated"
	GenerationSkipped   GenerationStatus = "skipped"
	GenerationFailed    GenerationStatus = "failed"
)

// GenerationResult is the outcome for one student
type GenerationResult struct {
	StudentID   string           `json:"student_id"`
	BillNo      string           `json:"bill_no,omitempty"`
	Status      GenerationStatus `json:"status"`
	Amount      decimal.Decimal  `json:"amount"`
	AdvanceUsed decimal.Decimal  `json:"advance_used"`
	Reason      string           `json:"reason,omitempty"`
}

// GenerationReport totals a generation run
type GenerationReport struct {
	Total     int                `json:"total"`
	Generated int                `json:"generated"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
	Results   []GenerationResult `json:"results"`
}

// Add records a result and updates the counters
func (r *GenerationReport) Add(res GenerationResult) {
	r.Total++
	switch res.Status {
	case GenerationGenerated:
		r.Generated++
	case GenerationSkipped:
		r.Skipped++
	case GenerationFailed:
		r.Failed++
	}
	r.Results = append(r.Results, res)
}
