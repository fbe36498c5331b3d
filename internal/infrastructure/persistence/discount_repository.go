package persistence

import (
	"context"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDiscountRepository implements DiscountRepository using GORM
type GormDiscountRepository struct {
	db *gorm.DB
}

// NewGormDiscountRepository creates a new GormDiscountRepository
func NewGormDiscountRepository(db *gorm.DB) *GormDiscountRepository {
	return &GormDiscountRepository{db: db}
}

// FindForStudent returns a student's discounts for a session
func (r *GormDiscountRepository) FindForStudent(ctx context.Context, studentID string, sessionID int) ([]fee.StudentDiscount, error) {
	var ms []models.StudentDiscountModel
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND session_id = ?", studentID, sessionID).
		Order("fee_type_id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	discounts := make([]fee.StudentDiscount, len(ms))
	for i := range ms {
		discounts[i] = *ms[i].ToDomain()
	}
	return discounts, nil
}

// Save upserts on (student, session, fee type)
func (r *GormDiscountRepository) Save(ctx context.Context, discount *fee.StudentDiscount) error {
	m := models.StudentDiscountModelFromDomain(discount)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "session_id"}, {Name: "fee_type_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"discount_type", "value", "updated_at"}),
	}).Create(m).Error
}

// Ensure GormDiscountRepository implements DiscountRepository
var _ fee.DiscountRepository = (*GormDiscountRepository)(nil)
