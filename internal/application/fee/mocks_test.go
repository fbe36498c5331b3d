package fee

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/schoolfees/backend/internal/domain/fee"
)

// MockFeeTypeRepository is a mock implementation of fee.FeeTypeRepository
type MockFeeTypeRepository struct {
	mock.Mock
}

func (m *MockFeeTypeRepository) FindAll(ctx context.Context, activeOnly bool) ([]fee.FeeType, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fee.FeeType), args.Error(1)
}

func (m *MockFeeTypeRepository) FindByID(ctx context.Context, id int64) (*fee.FeeType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.FeeType), args.Error(1)
}

func (m *MockFeeTypeRepository) FindByName(ctx context.Context, name string) (*fee.FeeType, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.FeeType), args.Error(1)
}

func (m *MockFeeTypeRepository) Save(ctx context.Context, feeType *fee.FeeType) error {
	args := m.Called(ctx, feeType)
	return args.Error(0)
}

// MockStudentRepository is a mock implementation of fee.StudentRepository
type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) FindByStudentID(ctx context.Context, studentID string) (*fee.Student, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.Student), args.Error(1)
}

func (m *MockStudentRepository) FindByStudentIDs(ctx context.Context, studentIDs []string) ([]fee.Student, error) {
	args := m.Called(ctx, studentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fee.Student), args.Error(1)
}

func (m *MockStudentRepository) FindAll(ctx context.Context, filter fee.StudentFilter) ([]fee.Student, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]fee.Student), args.Get(1).(int64), args.Error(2)
}

func (m *MockStudentRepository) Save(ctx context.Context, student *fee.Student) error {
	args := m.Called(ctx, student)
	return args.Error(0)
}

// MockFeeStructureRepository is a mock implementation of fee.FeeStructureRepository
type MockFeeStructureRepository struct {
	mock.Mock
}

func (m *MockFeeStructureRepository) FindBySessionAndClass(ctx context.Context, sessionID int, className string) (*fee.FeeStructure, error) {
	args := m.Called(ctx, sessionID, className)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.FeeStructure), args.Error(1)
}

func (m *MockFeeStructureRepository) Save(ctx context.Context, structure *fee.FeeStructure) error {
	args := m.Called(ctx, structure)
	return args.Error(0)
}

// MockDiscountRepository is a mock implementation of fee.DiscountRepository
type MockDiscountRepository struct {
	mock.Mock
}

func (m *MockDiscountRepository) FindForStudent(ctx context.Context, studentID string, sessionID int) ([]fee.StudentDiscount, error) {
	args := m.Called(ctx, studentID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fee.StudentDiscount), args.Error(1)
}

func (m *MockDiscountRepository) Save(ctx context.Context, discount *fee.StudentDiscount) error {
	args := m.Called(ctx, discount)
	return args.Error(0)
}

// MockDemandBillRepository is a mock implementation of fee.DemandBillRepository
type MockDemandBillRepository struct {
	mock.Mock
}

func (m *MockDemandBillRepository) FindByBillNo(ctx context.Context, billNo string) (*fee.DemandBill, error) {
	args := m.Called(ctx, billNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fee.DemandBill), args.Error(1)
}

func (m *MockDemandBillRepository) FindByBillNos(ctx context.Context, billNos []string) ([]fee.DemandBill, error) {
	args := m.Called(ctx, billNos)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fee.DemandBill), args.Error(1)
}

func (m *MockDemandBillRepository) FindForStudent(ctx context.Context, studentID string, sessionID int) ([]fee.DemandBill, error) {
	args := m.Called(ctx, studentID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fee.DemandBill), args.Error(1)
}

func (m *MockDemandBillRepository) FindBySession(ctx context.Context, sessionID int) ([]fee.DemandBill, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fee.DemandBill), args.Error(1)
}

func (m *MockDemandBillRepository) ExistsForPeriod(ctx context.Context, studentID string, sessionID, month, year int) (bool, error) {
	args := m.Called(ctx, studentID, sessionID, month, year)
	return args.Bool(0), args.Error(1)
}

func (m *MockDemandBillRepository) Save(ctx context.Context, bill *fee.DemandBill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

func (m *MockDemandBillRepository) SaveWithAdvance(ctx context.Context, bill *fee.DemandBill, draws []fee.AdvanceDraw) error {
	args := m.Called(ctx, bill, draws)
	return args.Error(0)
}

func (m *MockDemandBillRepository) DeleteByBillNos(ctx context.Context, billNos []string) (int64, error) {
	args := m.Called(ctx, billNos)
	return args.Get(0).(int64), args.Error(1)
}

// MockTransactionRepository is a mock implementation of fee.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) SaveWithBills(ctx context.Context, txn *fee.FeeTransaction, bills []*fee.DemandBill) error {
	args := m.Called(ctx, txn, bills)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindForStudent(ctx context.Context, studentID string, sessionID int, period fee.DateRange) ([]fee.FeeTransaction, error) {
	args := m.Called(ctx, studentID, sessionID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fee.FeeTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindRecent(ctx context.Context, studentID string, sessionID int, limit int) ([]fee.FeeTransaction, error) {
	args := m.Called(ctx, studentID, sessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fee.FeeTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindAll(ctx context.Context, filter fee.TransactionFilter) ([]fee.FeeTransaction, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]fee.FeeTransaction), args.Get(1).(int64), args.Error(2)
}

// MockDashboardCache is a mock implementation of DashboardCache
type MockDashboardCache struct {
	mock.Mock
}

func (m *MockDashboardCache) Get(ctx context.Context, studentID string, sessionID int, dst any) (bool, error) {
	args := m.Called(ctx, studentID, sessionID, dst)
	return args.Bool(0), args.Error(1)
}

func (m *MockDashboardCache) Set(ctx context.Context, studentID string, sessionID int, v any) error {
	args := m.Called(ctx, studentID, sessionID, v)
	return args.Error(0)
}

func (m *MockDashboardCache) Invalidate(ctx context.Context, studentID string, sessionID int) error {
	args := m.Called(ctx, studentID, sessionID)
	return args.Error(0)
}
