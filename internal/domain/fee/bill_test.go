package fee

import (
	"testing"
	"time"

	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBill(t *testing.T, billNo string, month int, items ...BillItem) *DemandBill {
	t.Helper()
	if len(items) == 0 {
		items = []BillItem{
			{FeeTypeID: 1, FeeTypeName: "Tuition Fee", Amount: dec(1000), DiscountAmount: dec(100)},
			{FeeTypeID: 2, FeeTypeName: "Transport Fee", Amount: dec(500), DiscountAmount: decimal.Zero},
		}
	}
	billDate := time.Date(2024, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	bill, err := NewDemandBill(billNo, "STU001", 2024, month, 2024, billDate, DefaultDueDate(month, 2024, 10, time.UTC), items)
	require.NoError(t, err)
	return bill
}

func TestNewDemandBill_Validation(t *testing.T) {
	now := time.Now()
	good := []BillItem{{FeeTypeID: 1, FeeTypeName: "Tuition Fee", Amount: dec(100)}}

	tests := []struct {
		name    string
		billNo  string
		month   int
		items   []BillItem
		wantErr bool
	}{
		{"valid", "BILL1", 4, good, false},
		{"empty bill no", "", 4, good, true},
		{"month zero", "BILL1", 0, good, true},
		{"month thirteen", "BILL1", 13, good, true},
		{"no items", "BILL1", 4, nil, true},
		{"discount over amount", "BILL1", 4, []BillItem{{FeeTypeID: 1, Amount: dec(10), DiscountAmount: dec(20)}}, true},
		{"negative amount", "BILL1", 4, []BillItem{{FeeTypeID: 1, Amount: dec(-10)}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bill, err := NewDemandBill(tt.billNo, "STU001", 2024, tt.month, 2024, now, now, tt.items)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, shared.IsCode(err, shared.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, BillStatusPending, bill.Status)
			assert.Equal(t, 1, bill.Version)
		})
	}
}

func TestDemandBill_Amounts(t *testing.T) {
	bill := createTestBill(t, "BILL1", 4)

	assert.True(t, bill.GrossAmount().Equal(dec(1500)))
	assert.True(t, bill.TotalDiscount().Equal(dec(100)))
	assert.True(t, bill.NetAmount().Equal(dec(1400)))
	assert.True(t, bill.Balance().Equal(dec(1400)))

	bill.PaidAmount = dec(2000)
	assert.True(t, bill.Balance().IsZero())
}

func TestDemandBill_DynamicStatus(t *testing.T) {
	due := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	before := due.AddDate(0, 0, -1)
	after := due.AddDate(0, 0, 1)

	tests := []struct {
		name   string
		paid   float64
		status BillStatus
		now    time.Time
		want   BillStatus
	}{
		{"pending before due", 0, BillStatusPending, before, BillStatusPending},
		{"overdue after due", 0, BillStatusPending, after, BillStatusOverdue},
		{"partial wins over overdue", 100, BillStatusPartiallyPaid, after, BillStatusPartiallyPaid},
		{"paid", 1400, BillStatusPartiallyPaid, after, BillStatusPaid},
		{"cancelled is sticky", 1400, BillStatusCancelled, before, BillStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bill := createTestBill(t, "BILL1", 4)
			bill.DueDate = due
			bill.PaidAmount = dec(tt.paid)
			bill.Status = tt.status
			assert.Equal(t, tt.want, bill.DynamicStatus(tt.now))
		})
	}
}

func TestDemandBill_ApplyPayment(t *testing.T) {
	bill := createTestBill(t, "BILL1", 4)
	at := time.Date(2024, 4, 20, 10, 0, 0, 0, time.UTC)

	require.NoError(t, bill.ApplyPayment(dec(400), at))
	assert.Equal(t, BillStatusPartiallyPaid, bill.Status)
	assert.Nil(t, bill.PaidDate)
	assert.Equal(t, 2, bill.Version)
	assert.False(t, bill.CanDelete())

	require.NoError(t, bill.ApplyPayment(dec(1000), at))
	assert.Equal(t, BillStatusPaid, bill.Status)
	require.NotNil(t, bill.PaidDate)
	assert.Equal(t, at, *bill.PaidDate)
	assert.False(t, bill.IsOpen())

	assert.Error(t, bill.ApplyPayment(decimal.Zero, at))

	bill.Status = BillStatusCancelled
	err := bill.ApplyPayment(dec(1), at)
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
}

func TestDemandBill_Ledger(t *testing.T) {
	bill := createTestBill(t, "BILL1", 4)
	bill.PaidAmount = dec(1000)

	entries := bill.Outstanding()

	// 900 tuition net + 100 into transport
	require.Len(t, entries, 1)
	assert.Equal(t, "Transport Fee", entries[0].FeeType)
	assert.True(t, entries[0].Amount.Equal(dec(400)))
	assert.True(t, bill.Ledger().Balance.Equal(dec(400)))
}

func TestBillStatus_IsValid(t *testing.T) {
	for _, s := range []BillStatus{BillStatusPending, BillStatusSent, BillStatusPartiallyPaid, BillStatusPaid, BillStatusOverdue, BillStatusCancelled} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, BillStatus("DRAFT").IsValid())
}
