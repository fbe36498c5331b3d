package fee

import (
	"testing"
	"time"

	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func advanceTxn(amount float64, date time.Time, allocated ...BillAllocation) FeeTransaction {
	return FeeTransaction{
		BaseEntity:  shared.NewBaseEntity(),
		Amount:      dec(amount),
		PaymentMode: PaymentModeAdvance,
		Date:        date,
		Allocations: allocated,
	}
}

func TestAvailableAdvance(t *testing.T) {
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	paidApril := createTestBill(t, "BILL1", 4)
	require.NoError(t, paidApril.ApplyPayment(dec(1400), feb))
	openApril := createTestBill(t, "BILL1", 4)

	tests := []struct {
		name  string
		bills []DemandBill
		txns  []FeeTransaction
		want  decimal.Decimal
	}{
		{
			name: "advance with no bills",
			txns: []FeeTransaction{advanceTxn(2000, feb)},
			want: dec(2000),
		},
		{
			name:  "open dues absorb the advance",
			bills: []DemandBill{*openApril},
			txns:  []FeeTransaction{advanceTxn(500, feb)},
			want:  decimal.Zero,
		},
		{
			name:  "overpayment left after settling a bill",
			bills: []DemandBill{*paidApril},
			txns: []FeeTransaction{advanceTxn(2000, feb,
				BillAllocation{BillNo: "BILL1", Amount: dec(1400)})},
			want: dec(600),
		},
		{
			name: "fully allocated collections leave nothing",
			txns: []FeeTransaction{advanceTxn(300, feb,
				BillAllocation{BillNo: "BILL0", Amount: dec(300)})},
			want: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AvailableAdvance(tt.bills, tt.txns)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestDrawAdvance_OldestCollectionFirst(t *testing.T) {
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	late := advanceTxn(500, mar)
	early := advanceTxn(300, feb)
	spent := advanceTxn(200, feb, BillAllocation{BillNo: "BILL0", Amount: dec(200)})
	bill := createTestBill(t, "BILL5", 5)

	draws := DrawAdvance(bill, []FeeTransaction{late, spent, early}, dec(1000))

	require.Len(t, draws, 2)
	assert.Equal(t, early.ID, draws[0].TransactionID)
	assert.True(t, draws[0].Allocation.Amount.Equal(dec(300)))
	assert.True(t, draws[0].Allocation.BalanceBefore.Equal(dec(1400)))
	assert.True(t, draws[0].Allocation.BalanceAfter.Equal(dec(1100)))
	assert.Equal(t, late.ID, draws[1].TransactionID)
	assert.True(t, draws[1].Allocation.BalanceAfter.Equal(dec(600)))
	assert.Equal(t, "BILL5", draws[1].Allocation.BillNo)

	assert.True(t, AdvanceUsed(draws).Equal(dec(800)))
	assert.True(t, bill.AdvanceApplied.Equal(dec(800)))
	assert.True(t, bill.Balance().Equal(dec(600)))
	assert.Equal(t, BillStatusPartiallyPaid, bill.Status)
	assert.Equal(t, 1, bill.Version, "an unsaved bill keeps its first version")
	assert.True(t, bill.CanDelete())
}

func TestDrawAdvance_Limits(t *testing.T) {
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		limit      decimal.Decimal
		wantUsed   decimal.Decimal
		wantStatus BillStatus
	}{
		{name: "capped by the available advance", limit: dec(1000), wantUsed: dec(1000), wantStatus: BillStatusPartiallyPaid},
		{name: "capped by the bill balance", limit: dec(5000), wantUsed: dec(1400), wantStatus: BillStatusPaid},
		{name: "nothing available", limit: decimal.Zero, wantUsed: decimal.Zero, wantStatus: BillStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bill := createTestBill(t, "BILL5", 5)
			draws := DrawAdvance(bill, []FeeTransaction{advanceTxn(2000, feb)}, tt.limit)

			assert.True(t, tt.wantUsed.Equal(AdvanceUsed(draws)))
			assert.True(t, tt.wantUsed.Equal(bill.PaidAmount))
			assert.Equal(t, tt.wantStatus, bill.Status)
			if tt.wantStatus == BillStatusPaid {
				require.NotNil(t, bill.PaidDate)
				assert.Equal(t, bill.BillDate, *bill.PaidDate)
			}
		})
	}
}

func TestDemandBill_CanDeleteWithCollection(t *testing.T) {
	bill := createTestBill(t, "BILL5", 5)
	DrawAdvance(bill, []FeeTransaction{advanceTxn(400, time.Now())}, dec(400))
	require.True(t, bill.CanDelete())

	require.NoError(t, bill.ApplyPayment(dec(100), time.Now()))
	assert.False(t, bill.CanDelete())
}
