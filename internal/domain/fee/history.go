package fee

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Generation batch types, by how widely the batch reached
const (
	BatchSingleStudent   = "Single Student"
	BatchEntireSection   = "Entire Section"
	BatchEntireClass     = "Entire Class"
	BatchMultipleClasses = "Multiple Classes"
)

// GenerationBatch is the set of bills created in the same minute
type GenerationBatch struct {
	GeneratedAt  time.Time       `json:"generated_at"`
	Type         string          `json:"type"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	Classes      []string        `json:"classes"`
	Sections     []string        `json:"sections"`
	FeeTypes     []string        `json:"fee_types"`
	StudentCount int             `json:"student_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	HasPayments  bool            `json:"has_payments"`
	BillNos      []string        `json:"bill_nos"`
}

// GroupGenerationHistory groups bills by creation time truncated to the
// minute, newest batch first. students maps student codes to their records
// for class and section lookups.
func GroupGenerationHistory(bills []DemandBill, students map[string]Student) []GenerationBatch {
	type acc struct {
		batch    GenerationBatch
		classes  map[string]bool
		sections map[string]bool
		feeTypes map[string]bool
		students map[string]bool
	}

	groups := make(map[time.Time]*acc)
	order := make([]time.Time, 0)

	for i := range bills {
		b := &bills[i]
		key := b.CreatedAt.Truncate(time.Minute)
		g, ok := groups[key]
		if !ok {
			g = &acc{
				batch:    GenerationBatch{GeneratedAt: key, Month: b.Month, Year: b.Year},
				classes:  map[string]bool{},
				sections: map[string]bool{},
				feeTypes: map[string]bool{},
				students: map[string]bool{},
			}
			groups[key] = g
			order = append(order, key)
		}

		g.batch.BillNos = append(g.batch.BillNos, b.BillNo)
		g.batch.TotalAmount = g.batch.TotalAmount.Add(b.GrossAmount())
		if !b.CanDelete() {
			g.batch.HasPayments = true
		}
		g.students[b.StudentID] = true

		if s, found := students[b.StudentID]; found {
			if !g.classes[s.ClassName] {
				g.classes[s.ClassName] = true
				g.batch.Classes = append(g.batch.Classes, s.ClassName)
			}
			if s.Section != "" && !g.sections[s.Section] {
				g.sections[s.Section] = true
				g.batch.Sections = append(g.batch.Sections, s.Section)
			}
		}
		for _, item := range b.Items {
			if !g.feeTypes[item.FeeTypeName] {
				g.feeTypes[item.FeeTypeName] = true
				g.batch.FeeTypes = append(g.batch.FeeTypes, item.FeeTypeName)
			}
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].After(order[j]) })

	batches := make([]GenerationBatch, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.batch.StudentCount = len(g.students)
		g.batch.Type = batchType(g.batch)
		batches = append(batches, g.batch)
	}
	return batches
}

func batchType(b GenerationBatch) string {
	switch {
	case b.StudentCount == 1:
		return BatchSingleStudent
	case len(b.Classes) > 1:
		return BatchMultipleClasses
	case len(b.Sections) == 1:
		return BatchEntireSection
	default:
		return BatchEntireClass
	}
}
