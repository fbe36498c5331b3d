package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/schoolfees/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupFeeTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// one connection so every query sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func seedFeeTypes(t *testing.T, repo *GormFeeTypeRepository, names ...string) []fee.FeeType {
	ctx := context.Background()
	types := make([]fee.FeeType, 0, len(names))
	for _, name := range names {
		ft, err := fee.NewFeeType(name, "")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, ft))
		require.NotZero(t, ft.ID)
		types = append(types, *ft)
	}
	return types
}

func newBill(t *testing.T, billNo, studentID string, month int, items ...fee.BillItem) *fee.DemandBill {
	billDate := time.Date(2024, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	bill, err := fee.NewDemandBill(billNo, studentID, 2024, month, 2024, billDate, fee.DefaultDueDate(month, 2024, 10, time.UTC), items)
	require.NoError(t, err)
	return bill
}

func TestGormFeeTypeRepository(t *testing.T) {
	db := setupFeeTestDB(t)
	repo := NewGormFeeTypeRepository(db)
	ctx := context.Background()

	types := seedFeeTypes(t, repo, "Tuition Fee", "Library Fee", "Exam Fee")

	inactive := types[2]
	inactive.IsActive = false
	require.NoError(t, repo.Save(ctx, &inactive))

	t.Run("lists by name", func(t *testing.T) {
		all, err := repo.FindAll(ctx, false)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Exam Fee", all[0].Name)
		assert.Equal(t, "Tuition Fee", all[2].Name)
	})

	t.Run("active only", func(t *testing.T) {
		active, err := repo.FindAll(ctx, true)
		require.NoError(t, err)
		assert.Len(t, active, 2)
	})

	t.Run("find by name and id", func(t *testing.T) {
		found, err := repo.FindByName(ctx, "Library Fee")
		require.NoError(t, err)
		assert.Equal(t, types[1].ID, found.ID)

		byID, err := repo.FindByID(ctx, types[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "Tuition Fee", byID.Name)
	})

	t.Run("missing returns not found", func(t *testing.T) {
		_, err := repo.FindByName(ctx, "Nope")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormStudentRepository(t *testing.T) {
	db := setupFeeTestDB(t)
	repo := NewGormStudentRepository(db)
	ctx := context.Background()

	for _, s := range []struct{ id, name, class, section string }{
		{"STU001", "Asha Rao", "Class 5", "A"},
		{"STU002", "Bilal Khan", "Class 5", "B"},
		{"STU003", "Chen Li", "Class 6", "A"},
	} {
		student, err := fee.NewStudent(s.id, s.name, s.class, s.section, 2024)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, student))
	}

	t.Run("find by code", func(t *testing.T) {
		s, err := repo.FindByStudentID(ctx, "STU002")
		require.NoError(t, err)
		assert.Equal(t, "Bilal Khan", s.Name)

		_, err = repo.FindByStudentID(ctx, "STU999")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("find by codes", func(t *testing.T) {
		students, err := repo.FindByStudentIDs(ctx, []string{"STU001", "STU003", "STU999"})
		require.NoError(t, err)
		assert.Len(t, students, 2)
	})

	t.Run("filter by class and section", func(t *testing.T) {
		students, total, err := repo.FindAll(ctx, fee.StudentFilter{Filter: shared.DefaultFilter(), SessionID: 2024, ClassName: "Class 5"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, students, 2)

		students, total, err = repo.FindAll(ctx, fee.StudentFilter{ClassName: "Class 5", Section: "B"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "STU002", students[0].StudentID)
	})
}

func TestGormFeeStructureRepository(t *testing.T) {
	db := setupFeeTestDB(t)
	types := seedFeeTypes(t, NewGormFeeTypeRepository(db), "Tuition Fee", "Transport Fee")
	repo := NewGormFeeStructureRepository(db)
	ctx := context.Background()

	structure, err := fee.NewFeeStructure(2024, "Class 5", []fee.FeeStructureItem{
		{FeeTypeID: types[1].ID, Amount: decimal.NewFromInt(500)},
		{FeeTypeID: types[0].ID, Amount: decimal.NewFromInt(1000)},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, structure))

	found, err := repo.FindBySessionAndClass(ctx, 2024, "Class 5")
	require.NoError(t, err)
	require.Len(t, found.Items, 2)
	assert.Equal(t, "Transport Fee", found.Items[0].FeeTypeName)
	assert.Equal(t, "Tuition Fee", found.Items[1].FeeTypeName)

	require.NoError(t, found.ReplaceItems([]fee.FeeStructureItem{{FeeTypeID: types[0].ID, Amount: decimal.NewFromInt(1200)}}))
	require.NoError(t, repo.Save(ctx, found))

	replaced, err := repo.FindBySessionAndClass(ctx, 2024, "Class 5")
	require.NoError(t, err)
	require.Len(t, replaced.Items, 1)
	assert.True(t, replaced.Items[0].Amount.Equal(decimal.NewFromInt(1200)))

	_, err = repo.FindBySessionAndClass(ctx, 2024, "Class 9")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormDiscountRepository_Upsert(t *testing.T) {
	db := setupFeeTestDB(t)
	repo := NewGormDiscountRepository(db)
	ctx := context.Background()

	first, err := fee.NewStudentDiscount("STU001", 2024, 1, fee.DiscountTypePercentage, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	second, err := fee.NewStudentDiscount("STU001", 2024, 1, fee.DiscountTypeFixed, decimal.NewFromInt(250))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, second))

	discounts, err := repo.FindForStudent(ctx, "STU001", 2024)
	require.NoError(t, err)
	require.Len(t, discounts, 1)
	assert.Equal(t, fee.DiscountTypeFixed, discounts[0].Type)
	assert.True(t, discounts[0].Value.Equal(decimal.NewFromInt(250)))
}

func TestGormDemandBillRepository(t *testing.T) {
	db := setupFeeTestDB(t)
	repo := NewGormDemandBillRepository(db)
	ctx := context.Background()

	tuition := fee.BillItem{FeeTypeID: 1, FeeTypeName: "Tuition Fee", Amount: decimal.NewFromInt(1000)}
	transport := fee.BillItem{FeeTypeID: 2, FeeTypeName: "Transport Fee", Amount: decimal.NewFromInt(500)}

	may := newBill(t, "BILL202405", "STU001", 5, tuition)
	april := newBill(t, "BILL202404", "STU001", 4, tuition, transport)
	require.NoError(t, repo.Save(ctx, may))
	require.NoError(t, repo.Save(ctx, april))

	t.Run("items keep their order", func(t *testing.T) {
		bill, err := repo.FindByBillNo(ctx, "BILL202404")
		require.NoError(t, err)
		require.Len(t, bill.Items, 2)
		assert.Equal(t, "Tuition Fee", bill.Items[0].FeeTypeName)
		assert.Equal(t, "Transport Fee", bill.Items[1].FeeTypeName)
		assert.Equal(t, 1, bill.Version)
	})

	t.Run("student bills oldest first", func(t *testing.T) {
		bills, err := repo.FindForStudent(ctx, "STU001", 2024)
		require.NoError(t, err)
		require.Len(t, bills, 2)
		assert.Equal(t, "BILL202404", bills[0].BillNo)
	})

	t.Run("period uniqueness", func(t *testing.T) {
		exists, err := repo.ExistsForPeriod(ctx, "STU001", 2024, 4, 2024)
		require.NoError(t, err)
		assert.True(t, exists)

		dup := newBill(t, "BILL202404B", "STU001", 4, tuition)
		err = repo.Save(ctx, dup)
		assert.True(t, shared.IsCode(err, shared.CodeAlreadyExists))
	})

	t.Run("delete batch", func(t *testing.T) {
		n, err := repo.DeleteByBillNos(ctx, []string{"BILL202405", "BILL404"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = repo.FindByBillNo(ctx, "BILL202405")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		var items int64
		require.NoError(t, db.Model(&models.DemandBillItemModel{}).Where("bill_id = ?", may.ID).Count(&items).Error)
		assert.Zero(t, items)
	})
}

func TestGormFeeTransactionRepository_SaveWithBills(t *testing.T) {
	db := setupFeeTestDB(t)
	bills := NewGormDemandBillRepository(db)
	repo := NewGormFeeTransactionRepository(db)
	ctx := context.Background()

	require.NoError(t, NewGormStudentRepository(db).Save(ctx, mustStudent(t, "STU001", "Asha Rao", "Class 5", "A")))

	bill := newBill(t, "BILL202404", "STU001", 4, fee.BillItem{FeeTypeID: 1, FeeTypeName: "Tuition Fee", Amount: decimal.NewFromInt(1000)})
	require.NoError(t, bills.Save(ctx, bill))

	paidAt := time.Date(2024, 4, 20, 10, 0, 0, 0, time.UTC)
	txn := mustTransaction(t, "TXN1", "REC1", 600, paidAt)
	require.NoError(t, bill.ApplyPayment(decimal.NewFromInt(600), paidAt))
	txn.Allocations = []fee.BillAllocation{{BillNo: bill.BillNo, Amount: decimal.NewFromInt(600), BalanceBefore: decimal.NewFromInt(1000), BalanceAfter: decimal.NewFromInt(400)}}

	require.NoError(t, repo.SaveWithBills(ctx, txn, []*fee.DemandBill{bill}))

	stored, err := bills.FindByBillNo(ctx, "BILL202404")
	require.NoError(t, err)
	assert.True(t, stored.PaidAmount.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, fee.BillStatusPartiallyPaid, stored.Status)
	assert.Equal(t, 2, stored.Version)

	t.Run("stale bill version rolls everything back", func(t *testing.T) {
		stale := *bill
		stale.Version = 1 // as loaded before the first payment
		require.NoError(t, stale.ApplyPayment(decimal.NewFromInt(100), paidAt))

		second := mustTransaction(t, "TXN2", "REC2", 100, paidAt)
		err := repo.SaveWithBills(ctx, second, []*fee.DemandBill{&stale})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		txns, err := repo.FindForStudent(ctx, "STU001", 2024, fee.DateRange{})
		require.NoError(t, err)
		assert.Len(t, txns, 1)
	})

	t.Run("lines load back", func(t *testing.T) {
		txns, err := repo.FindRecent(ctx, "STU001", 2024, 10)
		require.NoError(t, err)
		require.Len(t, txns, 1)
		require.Len(t, txns[0].Details, 1)
		require.Len(t, txns[0].Allocations, 1)
		assert.Equal(t, "BILL202404", txns[0].Allocations[0].BillNo)
		assert.True(t, txns[0].Details[0].NetAmount.Equal(decimal.NewFromInt(600)))
	})

	t.Run("filters join students", func(t *testing.T) {
		txns, total, err := repo.FindAll(ctx, fee.TransactionFilter{Filter: shared.DefaultFilter(), ClassName: "Class 5", StudentName: "asha"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, txns, 1)

		_, total, err = repo.FindAll(ctx, fee.TransactionFilter{ClassName: "Class 6"})
		require.NoError(t, err)
		assert.Zero(t, total)

		from := paidAt.Add(time.Hour)
		_, total, err = repo.FindAll(ctx, fee.TransactionFilter{From: &from})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestGormDemandBillRepository_SaveWithAdvance(t *testing.T) {
	db := setupFeeTestDB(t)
	bills := NewGormDemandBillRepository(db)
	txnRepo := NewGormFeeTransactionRepository(db)
	ctx := context.Background()

	paidAt := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	advance := mustTransaction(t, "TXN1", "REC1", 700, paidAt)
	advance.PaymentMode = fee.PaymentModeAdvance
	require.NoError(t, txnRepo.SaveWithBills(ctx, advance, nil))

	txns, err := txnRepo.FindForStudent(ctx, "STU001", 2024, fee.DateRange{})
	require.NoError(t, err)
	bill := newBill(t, "BILL202404", "STU001", 4, fee.BillItem{FeeTypeID: 1, FeeTypeName: "Tuition Fee", Amount: decimal.NewFromInt(1000)})
	draws := fee.DrawAdvance(bill, txns, fee.AvailableAdvance(nil, txns))
	require.Len(t, draws, 1)

	require.NoError(t, bills.SaveWithAdvance(ctx, bill, draws))

	stored, err := bills.FindByBillNo(ctx, "BILL202404")
	require.NoError(t, err)
	assert.True(t, stored.AdvanceApplied.Equal(decimal.NewFromInt(700)))
	assert.True(t, stored.Balance().Equal(decimal.NewFromInt(300)))
	assert.Equal(t, fee.BillStatusPartiallyPaid, stored.Status)
	assert.Equal(t, 1, stored.Version)
	assert.True(t, stored.CanDelete())

	txns, err = txnRepo.FindForStudent(ctx, "STU001", 2024, fee.DateRange{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Len(t, txns[0].Allocations, 1)
	assert.True(t, txns[0].UnallocatedAmount().IsZero())

	t.Run("deleting the bill returns the advance", func(t *testing.T) {
		n, err := bills.DeleteByBillNos(ctx, []string{"BILL202404"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		txns, err := txnRepo.FindForStudent(ctx, "STU001", 2024, fee.DateRange{})
		require.NoError(t, err)
		require.Len(t, txns, 1)
		assert.Empty(t, txns[0].Allocations)
		assert.True(t, txns[0].UnallocatedAmount().Equal(decimal.NewFromInt(700)))
	})
}

func mustStudent(t *testing.T, id, name, class, section string) *fee.Student {
	s, err := fee.NewStudent(id, name, class, section, 2024)
	require.NoError(t, err)
	return s
}

func mustTransaction(t *testing.T, txnID, receiptNo string, amount int64, at time.Time) *fee.FeeTransaction {
	txn, err := fee.NewFeeTransaction("STU001", 2024, fee.PaymentModeCash,
		[]fee.FeeDetailDraft{{FeeTypeID: 1, Amount: decimal.NewFromInt(amount)}}, at)
	require.NoError(t, err)
	txn.TransactionID = txnID
	txn.ReceiptNo = receiptNo
	return txn
}
