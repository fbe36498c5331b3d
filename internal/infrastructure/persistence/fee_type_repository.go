package persistence

import (
	"context"
	"errors"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/schoolfees/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormFeeTypeRepository implements FeeTypeRepository using GORM
type GormFeeTypeRepository struct {
	db *gorm.DB
}

// NewGormFeeTypeRepository creates a new GormFeeTypeRepository
func NewGormFeeTypeRepository(db *gorm.DB) *GormFeeTypeRepository {
	return &GormFeeTypeRepository{db: db}
}

// FindAll returns fee types ordered by name
func (r *GormFeeTypeRepository) FindAll(ctx context.Context, activeOnly bool) ([]fee.FeeType, error) {
	query := r.db.WithContext(ctx).Model(&models.FeeTypeModel{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var ms []models.FeeTypeModel
	if err := query.Order("name ASC").Find(&ms).Error; err != nil {
		return nil, err
	}

	types := make([]fee.FeeType, len(ms))
	for i := range ms {
		types[i] = *ms[i].ToDomain()
	}
	return types, nil
}

// FindByID finds a fee type by ID
func (r *GormFeeTypeRepository) FindByID(ctx context.Context, id int64) (*fee.FeeType, error) {
	var m models.FeeTypeModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByName finds a fee type by its unique name
func (r *GormFeeTypeRepository) FindByName(ctx context.Context, name string) (*fee.FeeType, error) {
	var m models.FeeTypeModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Save creates or updates a fee type. A new fee type gets its ID assigned.
func (r *GormFeeTypeRepository) Save(ctx context.Context, feeType *fee.FeeType) error {
	m := models.FeeTypeModelFromDomain(feeType)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	feeType.ID = m.ID
	return nil
}

// Ensure GormFeeTypeRepository implements FeeTypeRepository
var _ fee.FeeTypeRepository = (*GormFeeTypeRepository)(nil)
