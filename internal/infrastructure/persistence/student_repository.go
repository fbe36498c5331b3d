package persistence

import (
	"context"
	"errors"

	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/schoolfees/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStudentRepository implements StudentRepository using GORM
type GormStudentRepository struct {
	db *gorm.DB
}

// NewGormStudentRepository creates a new GormStudentRepository
func NewGormStudentRepository(db *gorm.DB) *GormStudentRepository {
	return &GormStudentRepository{db: db}
}

// FindByStudentID finds a student by code
func (r *GormStudentRepository) FindByStudentID(ctx context.Context, studentID string) (*fee.Student, error) {
	var m models.StudentModel
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByStudentIDs finds students by code. Unknown codes are skipped.
func (r *GormStudentRepository) FindByStudentIDs(ctx context.Context, studentIDs []string) ([]fee.Student, error) {
	if len(studentIDs) == 0 {
		return []fee.Student{}, nil
	}

	var ms []models.StudentModel
	if err := r.db.WithContext(ctx).Where("student_id IN ?", studentIDs).Find(&ms).Error; err != nil {
		return nil, err
	}

	students := make([]fee.Student, len(ms))
	for i := range ms {
		students[i] = *ms[i].ToDomain()
	}
	return students, nil
}

// FindAll lists students matching the filter with the total count
func (r *GormStudentRepository) FindAll(ctx context.Context, filter fee.StudentFilter) ([]fee.Student, int64, error) {
	page := filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.StudentModel{})

	if filter.SessionID > 0 {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.ClassName != "" {
		query = query.Where("class_name = ?", filter.ClassName)
	}
	if filter.Section != "" {
		query = query.Where("section = ?", filter.Section)
	}
	if page.Search != "" {
		search := "%" + page.Search + "%"
		query = query.Where("name LIKE ? OR student_id LIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.StudentModel
	if err := query.Order(studentSort.order(page.OrderBy, page.OrderDir)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	students := make([]fee.Student, len(ms))
	for i := range ms {
		students[i] = *ms[i].ToDomain()
	}
	return students, total, nil
}

// Save creates or updates a student
func (r *GormStudentRepository) Save(ctx context.Context, student *fee.Student) error {
	return r.db.WithContext(ctx).Save(models.StudentModelFromDomain(student)).Error
}

// Ensure GormStudentRepository implements StudentRepository
var _ fee.StudentRepository = (*GormStudentRepository)(nil)
