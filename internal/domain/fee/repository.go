package fee

import (
	"context"
	"time"

	"github.com/schoolfees/backend/internal/domain/shared"
)

// FeeTypeRepository persists fee types
type FeeTypeRepository interface {
	FindAll(ctx context.Context, activeOnly bool) ([]FeeType, error)
	FindByID(ctx context.Context, id int64) (*FeeType, error)
	FindByName(ctx context.Context, name string) (*FeeType, error)
	Save(ctx context.Context, feeType *FeeType) error
}

// StudentFilter narrows student listings
type StudentFilter struct {
	shared.Filter
	SessionID int
	ClassName string
	Section   string
}

// StudentRepository persists students
type StudentRepository interface {
	FindByStudentID(ctx context.Context, studentID string) (*Student, error)
	FindByStudentIDs(ctx context.Context, studentIDs []string) ([]Student, error)
	FindAll(ctx context.Context, filter StudentFilter) ([]Student, int64, error)
	Save(ctx context.Context, student *Student) error
}

// FeeStructureRepository persists class fee structures
type FeeStructureRepository interface {
	FindBySessionAndClass(ctx context.Context, sessionID int, className string) (*FeeStructure, error)
	Save(ctx context.Context, structure *FeeStructure) error
}

// DiscountRepository persists student discounts
type DiscountRepository interface {
	FindForStudent(ctx context.Context, studentID string, sessionID int) ([]StudentDiscount, error)
	// Save inserts or replaces the discount for (student, session, fee type)
	Save(ctx context.Context, discount *StudentDiscount) error
}

// DemandBillRepository persists demand bills
type DemandBillRepository interface {
	FindByBillNo(ctx context.Context, billNo string) (*DemandBill, error)
	FindByBillNos(ctx context.Context, billNos []string) ([]DemandBill, error)
	// FindForStudent returns the student's bills for a session, oldest period first
	FindForStudent(ctx context.Context, studentID string, sessionID int) ([]DemandBill, error)
	FindBySession(ctx context.Context, sessionID int) ([]DemandBill, error)
	ExistsForPeriod(ctx context.Context, studentID string, sessionID, month, year int) (bool, error)
	Save(ctx context.Context, bill *DemandBill) error
	// SaveWithAdvance stores a new bill and the advance drawn onto it atomically
	SaveWithAdvance(ctx context.Context, bill *DemandBill, draws []AdvanceDraw) error
	// DeleteByBillNos removes bills along with any allocations made to them
	DeleteByBillNos(ctx context.Context, billNos []string) (int64, error)
}

// TransactionFilter narrows transaction listings
type TransactionFilter struct {
	shared.Filter
	From        *time.Time
	To          *time.Time
	StudentID   string
	SessionID   int
	ClassName   string
	Section     string
	StudentName string
}

// TransactionRepository persists fee collections
type TransactionRepository interface {
	// SaveWithBills stores the transaction and the paid-up bills atomically.
	// A bill whose stored version moved on fails the whole write with
	// shared.ErrConcurrencyConflict.
	SaveWithBills(ctx context.Context, txn *FeeTransaction, bills []*DemandBill) error
	FindForStudent(ctx context.Context, studentID string, sessionID int, period DateRange) ([]FeeTransaction, error)
	FindRecent(ctx context.Context, studentID string, sessionID int, limit int) ([]FeeTransaction, error)
	FindAll(ctx context.Context, filter TransactionFilter) ([]FeeTransaction, int64, error)
}
