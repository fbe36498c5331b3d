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

// GormFeeStructureRepository implements FeeStructureRepository using GORM
type GormFeeStructureRepository struct {
	db *gorm.DB
}

// NewGormFeeStructureRepository creates a new GormFeeStructureRepository
func NewGormFeeStructureRepository(db *gorm.DB) *GormFeeStructureRepository {
	return &GormFeeStructureRepository{db: db}
}

// FindBySessionAndClass finds the structure of a class with item fee types loaded
func (r *GormFeeStructureRepository) FindBySessionAndClass(ctx context.Context, sessionID int, className string) (*fee.FeeStructure, error) {
	var m models.FeeStructureModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Items.FeeType").
		Where("session_id = ? AND class_name = ?", sessionID, className).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Save writes the structure and replaces its items
func (r *GormFeeStructureRepository) Save(ctx context.Context, structure *fee.FeeStructure) error {
	m := models.FeeStructureModelFromDomain(structure)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
			return err
		}
		if err := tx.Where("structure_id = ?", m.ID).Delete(&models.FeeStructureItemModel{}).Error; err != nil {
			return err
		}
		if len(m.Items) == 0 {
			return nil
		}
		return tx.Omit("FeeType").Create(&m.Items).Error
	})
}

// Ensure GormFeeStructureRepository implements FeeStructureRepository
var _ fee.FeeStructureRepository = (*GormFeeStructureRepository)(nil)
