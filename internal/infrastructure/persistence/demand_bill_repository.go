package persistence

import (
	"context"
	"errors"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/schoolfees/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDemandBillRepository implements DemandBillRepository using GORM
type GormDemandBillRepository struct {
	db *gorm.DB
}

// NewGormDemandBillRepository creates a new GormDemandBillRepository
func NewGormDemandBillRepository(db *gorm.DB) *GormDemandBillRepository {
	return &GormDemandBillRepository{db: db}
}

func preloadBillItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
}

// FindByBillNo finds a bill by its number
func (r *GormDemandBillRepository) FindByBillNo(ctx context.Context, billNo string) (*fee.DemandBill, error) {
	var m models.DemandBillModel
	if err := preloadBillItems(r.db.WithContext(ctx)).Where("bill_no = ?", billNo).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByBillNos finds bills by number. Unknown numbers are skipped.
func (r *GormDemandBillRepository) FindByBillNos(ctx context.Context, billNos []string) ([]fee.DemandBill, error) {
	if len(billNos) == 0 {
		return []fee.DemandBill{}, nil
	}
	var ms []models.DemandBillModel
	if err := preloadBillItems(r.db.WithContext(ctx)).
		Where("bill_no IN ?", billNos).
		Order("year ASC, month ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return models.DemandBillModelsToDomain(ms), nil
}

// FindForStudent returns the student's bills for a session, oldest period first
func (r *GormDemandBillRepository) FindForStudent(ctx context.Context, studentID string, sessionID int) ([]fee.DemandBill, error) {
	var ms []models.DemandBillModel
	if err := preloadBillItems(r.db.WithContext(ctx)).
		Where("student_id = ? AND session_id = ?", studentID, sessionID).
		Order("year ASC, month ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return models.DemandBillModelsToDomain(ms), nil
}

// FindBySession returns every bill of a session, newest first
func (r *GormDemandBillRepository) FindBySession(ctx context.Context, sessionID int) ([]fee.DemandBill, error) {
	var ms []models.DemandBillModel
	if err := preloadBillItems(r.db.WithContext(ctx)).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return models.DemandBillModelsToDomain(ms), nil
}

// ExistsForPeriod checks if the student already has a bill for the month
func (r *GormDemandBillRepository) ExistsForPeriod(ctx context.Context, studentID string, sessionID, month, year int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DemandBillModel{}).
		Where("student_id = ? AND session_id = ? AND month = ? AND year = ?", studentID, sessionID, month, year).
		Count(&count).Error
	return count > 0, err
}

// Save inserts a new bill with its items
func (r *GormDemandBillRepository) Save(ctx context.Context, bill *fee.DemandBill) error {
	return r.SaveWithAdvance(ctx, bill, nil)
}

// SaveWithAdvance inserts a new bill with its items and records each advance
// draw as an allocation of its source collection, in one transaction
func (r *GormDemandBillRepository) SaveWithAdvance(ctx context.Context, bill *fee.DemandBill, draws []fee.AdvanceDraw) error {
	m := models.DemandBillModelFromDomain(bill)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.NewDomainError(shared.CodeAlreadyExists, "A bill already exists for this student and period")
			}
			return err
		}
		if len(m.Items) > 0 {
			if err := tx.Create(&m.Items).Error; err != nil {
				return err
			}
		}
		if len(draws) == 0 {
			return nil
		}
		allocations := make([]models.FeeBillAllocationModel, len(draws))
		for i, d := range draws {
			allocations[i] = models.FeeBillAllocationModel{
				FeeTransactionID: d.TransactionID,
				BillNo:           d.Allocation.BillNo,
				Amount:           d.Allocation.Amount,
				BalanceBefore:    d.Allocation.BalanceBefore,
				BalanceAfter:     d.Allocation.BalanceAfter,
			}
		}
		return tx.Create(&allocations).Error
	})
}

// DeleteByBillNos deletes bills and their items. Allocations pointing at the
// bills go too, which returns drawn advance to its collections.
func (r *GormDemandBillRepository) DeleteByBillNos(ctx context.Context, billNos []string) (int64, error) {
	if len(billNos) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&models.DemandBillModel{}).Select("id").Where("bill_no IN ?", billNos)
		if err := tx.Where("bill_id IN (?)", ids).Delete(&models.DemandBillItemModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bill_no IN ?", billNos).Delete(&models.FeeBillAllocationModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("bill_no IN ?", billNos).Delete(&models.DemandBillModel{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}

// applyPayment writes a bill's paid state with a version check. It runs
// inside the caller's transaction.
func applyPayment(tx *gorm.DB, bill *fee.DemandBill) error {
	// the domain already bumped the version once for this payment
	expected := bill.Version - 1

	result := tx.Model(&models.DemandBillModel{}).
		Where("id = ? AND version = ?", bill.ID, expected).
		Updates(map[string]any{
			"paid_amount": bill.PaidAmount,
			"status":      bill.Status,
			"paid_date":   bill.PaidDate,
			"version":     bill.Version,
			"updated_at":  bill.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithDetails(map[string]any{"bill_no": bill.BillNo})
	}
	return nil
}

// Ensure GormDemandBillRepository implements DemandBillRepository
var _ fee.DemandBillRepository = (*GormDemandBillRepository)(nil)
