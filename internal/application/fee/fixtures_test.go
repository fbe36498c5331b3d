package fee

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/schoolfees/backend/internal/domain/fee"
)

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testStudent(t *testing.T, id, className string) *fee.Student {
	t.Helper()
	s, err := fee.NewStudent(id, "Student "+id, className, "A", 1)
	require.NoError(t, err)
	return s
}

func testFeeTypes() []fee.FeeType {
	return []fee.FeeType{
		{ID: 1, Name: "Tuition Fee", IsActive: true},
		{ID: 2, Name: "Transport Fee", IsActive: true},
		{ID: 3, Name: "Late Fee", IsActive: true},
	}
}

// testBill builds a bill for S1 in session 1. items are (name, amount, discount)
// triples and fee type ids follow testFeeTypes.
func testBill(t *testing.T, billNo string, month int, paid string, items ...[3]string) fee.DemandBill {
	t.Helper()
	ids := map[string]int64{"Tuition Fee": 1, "Transport Fee": 2, "Late Fee": 3}
	billItems := make([]fee.BillItem, len(items))
	for i, it := range items {
		billItems[i] = fee.BillItem{
			FeeTypeID:      ids[it[0]],
			FeeTypeName:    it[0],
			Amount:         dec(it[1]),
			DiscountAmount: dec(it[2]),
		}
	}
	due := time.Date(2024, time.Month(month)+1, 10, 0, 0, 0, 0, time.UTC)
	b, err := fee.NewDemandBill(billNo, "S1", 1, month, 2024, due.AddDate(0, -1, 0), due, billItems)
	require.NoError(t, err)
	if p := dec(paid); p.IsPositive() {
		b.PaidAmount = p
		b.Status = fee.BillStatusPartiallyPaid
		if !b.Balance().IsPositive() {
			b.Status = fee.BillStatusPaid
		}
	}
	return *b
}
