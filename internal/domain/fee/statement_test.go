package fee

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTxn(amount float64, details ...PaymentDetail) FeeTransaction {
	return FeeTransaction{Amount: dec(amount), Details: details, Date: time.Now()}
}

func TestBuildFeeHeads(t *testing.T) {
	april := createTestBill(t, "BILL1", 4)
	may := createTestBill(t, "BILL2", 5,
		BillItem{FeeTypeID: 2, FeeTypeName: "Transport Fee", Amount: dec(500)},
		BillItem{FeeTypeID: 3, FeeTypeName: "Library Fee", Amount: dec(200), DiscountAmount: dec(50)},
	)
	txns := []FeeTransaction{
		testTxn(900, PaymentDetail{FeeTypeID: 1, NetAmount: dec(900)}),
		testTxn(700, PaymentDetail{FeeTypeID: 2, NetAmount: dec(700)}),
		testTxn(10, PaymentDetail{FeeTypeID: 99, NetAmount: dec(10)}),
	}

	heads := BuildFeeHeads([]DemandBill{*april, *may}, txns)

	require.Len(t, heads, 3)
	assert.Equal(t, "Tuition Fee", heads[0].FeeType)
	assert.True(t, heads[0].NetAmount.Equal(dec(900)))
	assert.True(t, heads[0].Balance.IsZero())

	assert.Equal(t, "Transport Fee", heads[1].FeeType)
	assert.True(t, heads[1].GrossAmount.Equal(dec(1000)))
	assert.True(t, heads[1].Paid.Equal(dec(700)))
	assert.True(t, heads[1].Balance.Equal(dec(300)))

	assert.Equal(t, "Library Fee", heads[2].FeeType)
	assert.True(t, heads[2].Balance.Equal(dec(150)))

	summary := Summarize(heads, []DemandBill{*april, *may}, txns)
	assert.True(t, summary.TotalGross.Equal(dec(2200)))
	assert.True(t, summary.TotalDiscount.Equal(dec(150)))
	assert.True(t, summary.TotalNet.Equal(dec(2050)))
	assert.True(t, summary.TotalPaid.Equal(dec(1600)))
	assert.True(t, summary.TotalDues.Equal(dec(450)))
	assert.True(t, summary.AdvanceBalance.IsZero())
}

func TestSummarize_AdvanceBalance(t *testing.T) {
	bill := createTestBill(t, "BILL1", 4)
	txns := []FeeTransaction{testTxn(2000)}

	summary := Summarize(BuildFeeHeads([]DemandBill{*bill}, txns), []DemandBill{*bill}, txns)

	assert.True(t, summary.AdvanceBalance.Equal(dec(600)))
}

func TestPendingBills_OrderedByDueDate(t *testing.T) {
	june := createTestBill(t, "BILL6", 6)
	april := createTestBill(t, "BILL4", 4)
	paid := createTestBill(t, "BILL5", 5)
	paid.PaidAmount = paid.NetAmount()

	pending := PendingBills([]DemandBill{*june, *paid, *april})

	require.Len(t, pending, 2)
	assert.Equal(t, "BILL4", pending[0].BillNo)
	assert.Equal(t, "BILL6", pending[1].BillNo)
	assert.True(t, OutstandingDues(pending).Equal(dec(2800)))
}

func TestOutstandingDues_SkipsCancelledBills(t *testing.T) {
	open := createTestBill(t, "BILL4", 4)
	cancelled := createTestBill(t, "BILL5", 5)
	cancelled.Status = BillStatusCancelled

	assert.True(t, OutstandingDues([]DemandBill{*open, *cancelled}).Equal(dec(1400)))
	assert.True(t, OutstandingDues([]DemandBill{*cancelled}).IsZero())
}

func TestSnapshot(t *testing.T) {
	bill := createTestBill(t, "BILL4", 4)
	snapshot := Snapshot("STU001", 2024, []DemandBill{*bill}, []FeeType{{ID: 1, Name: "Tuition Fee"}})

	assert.Equal(t, "STU001", snapshot.StudentID)
	require.Len(t, snapshot.PendingBills, 1)
	assert.Equal(t, []FeeTypeRef{{ID: 1, Name: "Tuition Fee"}}, snapshot.FeeTypes)
}

func TestDateRange_Contains(t *testing.T) {
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

	assert.True(t, DateRange{}.Contains(from))
	assert.True(t, DateRange{From: from, To: to}.Contains(from))
	assert.False(t, DateRange{From: from}.Contains(from.Add(-time.Second)))
	assert.False(t, DateRange{To: to}.Contains(to.Add(time.Second)))
}
