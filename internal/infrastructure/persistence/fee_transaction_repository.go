package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormFeeTransactionRepository implements TransactionRepository using GORM
type GormFeeTransactionRepository struct {
	db *gorm.DB
}

// NewGormFeeTransactionRepository creates a new GormFeeTransactionRepository
func NewGormFeeTransactionRepository(db *gorm.DB) *GormFeeTransactionRepository {
	return &GormFeeTransactionRepository{db: db}
}

func preloadTransactionLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// SaveWithBills stores the transaction, its lines and the paid-up bills in
// one database transaction
func (r *GormFeeTransactionRepository) SaveWithBills(ctx context.Context, txn *fee.FeeTransaction, bills []*fee.DemandBill) error {
	m := models.FeeTransactionModelFromDomain(txn)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			return fmt.Errorf("failed to save fee transaction: %w", err)
		}
		if len(m.Details) > 0 {
			if err := tx.Create(&m.Details).Error; err != nil {
				return fmt.Errorf("failed to save payment details: %w", err)
			}
		}
		if len(m.Allocations) > 0 {
			if err := tx.Create(&m.Allocations).Error; err != nil {
				return fmt.Errorf("failed to save bill allocations: %w", err)
			}
		}
		for _, bill := range bills {
			if err := applyPayment(tx, bill); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindForStudent returns a student's transactions for a session, oldest first
func (r *GormFeeTransactionRepository) FindForStudent(ctx context.Context, studentID string, sessionID int, period fee.DateRange) ([]fee.FeeTransaction, error) {
	query := preloadTransactionLines(r.db.WithContext(ctx)).
		Where("student_id = ? AND session_id = ?", studentID, sessionID)
	if !period.From.IsZero() {
		query = query.Where("payment_date >= ?", period.From)
	}
	if !period.To.IsZero() {
		query = query.Where("payment_date <= ?", period.To)
	}

	var ms []models.FeeTransactionModel
	if err := query.Order("payment_date ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return models.FeeTransactionModelsToDomain(ms), nil
}

// FindRecent returns the latest transactions of a student, newest first
func (r *GormFeeTransactionRepository) FindRecent(ctx context.Context, studentID string, sessionID int, limit int) ([]fee.FeeTransaction, error) {
	var ms []models.FeeTransactionModel
	if err := preloadTransactionLines(r.db.WithContext(ctx)).
		Where("student_id = ? AND session_id = ?", studentID, sessionID).
		Order("payment_date DESC, created_at DESC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return models.FeeTransactionModelsToDomain(ms), nil
}

// FindAll lists transactions matching the filter with the total count.
// Class, section and name filters join the students table.
func (r *GormFeeTransactionRepository) FindAll(ctx context.Context, filter fee.TransactionFilter) ([]fee.FeeTransaction, int64, error) {
	page := filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.FeeTransactionModel{})

	if filter.ClassName != "" || filter.Section != "" || filter.StudentName != "" {
		query = query.Joins("JOIN students ON students.student_id = fee_transactions.student_id")
		if filter.ClassName != "" {
			query = query.Where("students.class_name = ?", filter.ClassName)
		}
		if filter.Section != "" {
			query = query.Where("students.section = ?", filter.Section)
		}
		if filter.StudentName != "" {
			query = query.Where("LOWER(students.name) LIKE ?", "%"+strings.ToLower(filter.StudentName)+"%")
		}
	}
	if filter.StudentID != "" {
		query = query.Where("fee_transactions.student_id = ?", filter.StudentID)
	}
	if filter.SessionID > 0 {
		query = query.Where("fee_transactions.session_id = ?", filter.SessionID)
	}
	if filter.From != nil {
		query = query.Where("fee_transactions.payment_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("fee_transactions.payment_date <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.FeeTransactionModel
	if err := preloadTransactionLines(query).
		Select("fee_transactions.*").
		Order(transactionSort.order(page.OrderBy, page.OrderDir)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return models.FeeTransactionModelsToDomain(ms), total, nil
}

// Ensure GormFeeTransactionRepository implements TransactionRepository
var _ fee.TransactionRepository = (*GormFeeTransactionRepository)(nil)
