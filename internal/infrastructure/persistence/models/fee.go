package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/shopspring/decimal"
)

// FeeTypeModel is the persistence model for fee types
type FeeTypeModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description string    `gorm:"type:text"`
	IsActive    bool      `gorm:"not null;default:true;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FeeTypeModel) TableName() string {
	return "fee_types"
}

// ToDomain converts the persistence model to a domain FeeType
func (m *FeeTypeModel) ToDomain() *fee.FeeType {
	return &fee.FeeType{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FeeTypeModelFromDomain creates a persistence model from a domain FeeType
func FeeTypeModelFromDomain(f *fee.FeeType) *FeeTypeModel {
	return &FeeTypeModel{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		IsActive:    f.IsActive,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// StudentModel is the persistence model for students
type StudentModel struct {
	BaseModel
	StudentID  string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name       string            `gorm:"type:varchar(200);not null;index"`
	FatherName string            `gorm:"type:varchar(200)"`
	ClassName  string            `gorm:"type:varchar(50);not null;index:idx_student_class"`
	Section    string            `gorm:"type:varchar(20);index:idx_student_class"`
	SessionID  int               `gorm:"not null;index"`
	Status     fee.StudentStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (StudentModel) TableName() string {
	return "students"
}

// ToDomain converts the persistence model to a domain Student
func (m *StudentModel) ToDomain() *fee.Student {
	return &fee.Student{
		BaseEntity: m.BaseModel.ToDomain(),
		StudentID:  m.StudentID,
		Name:       m.Name,
		FatherName: m.FatherName,
		ClassName:  m.ClassName,
		Section:    m.Section,
		SessionID:  m.SessionID,
		Status:     m.Status,
	}
}

// FromDomain populates the persistence model from a domain Student
func (m *StudentModel) FromDomain(s *fee.Student) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.StudentID = s.StudentID
	m.Name = s.Name
	m.FatherName = s.FatherName
	m.ClassName = s.ClassName
	m.Section = s.Section
	m.SessionID = s.SessionID
	m.Status = s.Status
}

// StudentModelFromDomain creates a persistence model from a domain Student
func StudentModelFromDomain(s *fee.Student) *StudentModel {
	m := &StudentModel{}
	m.FromDomain(s)
	return m
}

// FeeStructureModel is the persistence model for class fee structures
type FeeStructureModel struct {
	BaseModel
	SessionID int                     `gorm:"not null;uniqueIndex:idx_fee_structure_session_class"`
	ClassName string                  `gorm:"type:varchar(50);not null;uniqueIndex:idx_fee_structure_session_class"`
	Items     []FeeStructureItemModel `gorm:"foreignKey:StructureID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (FeeStructureModel) TableName() string {
	return "fee_structures"
}

// FeeStructureItemModel is one fee type line of a structure
type FeeStructureItemModel struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	StructureID uuid.UUID       `gorm:"type:uuid;not null;index"`
	FeeTypeID   int64           `gorm:"not null"`
	FeeType     FeeTypeModel    `gorm:"foreignKey:FeeTypeID"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Position    int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (FeeStructureItemModel) TableName() string {
	return "fee_structure_items"
}

// ToDomain converts the persistence model to a domain FeeStructure.
// Item names come from the preloaded FeeType.
func (m *FeeStructureModel) ToDomain() *fee.FeeStructure {
	items := make([]fee.FeeStructureItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = fee.FeeStructureItem{
			FeeTypeID:   item.FeeTypeID,
			FeeTypeName: item.FeeType.Name,
			Amount:      item.Amount,
		}
	}
	return &fee.FeeStructure{
		BaseEntity: m.BaseModel.ToDomain(),
		SessionID:  m.SessionID,
		ClassName:  m.ClassName,
		Items:      items,
	}
}

// FeeStructureModelFromDomain creates a persistence model from a domain FeeStructure
func FeeStructureModelFromDomain(s *fee.FeeStructure) *FeeStructureModel {
	m := &FeeStructureModel{
		SessionID: s.SessionID,
		ClassName: s.ClassName,
		Items:     make([]FeeStructureItemModel, len(s.Items)),
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	for i, item := range s.Items {
		m.Items[i] = FeeStructureItemModel{
			StructureID: s.ID,
			FeeTypeID:   item.FeeTypeID,
			Amount:      item.Amount,
			Position:    i,
		}
	}
	return m
}

// StudentDiscountModel is the persistence model for student discounts
type StudentDiscountModel struct {
	BaseModel
	StudentID string           `gorm:"type:varchar(50);not null;uniqueIndex:idx_discount_student_fee"`
	SessionID int              `gorm:"not null;uniqueIndex:idx_discount_student_fee"`
	FeeTypeID int64            `gorm:"not null;uniqueIndex:idx_discount_student_fee"`
	Type      fee.DiscountType `gorm:"column:discount_type;type:varchar(20);not null"`
	Value     decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (StudentDiscountModel) TableName() string {
	return "student_fee_discounts"
}

// ToDomain converts the persistence model to a domain StudentDiscount
func (m *StudentDiscountModel) ToDomain() *fee.StudentDiscount {
	return &fee.StudentDiscount{
		BaseEntity: m.BaseModel.ToDomain(),
		StudentID:  m.StudentID,
		SessionID:  m.SessionID,
		FeeTypeID:  m.FeeTypeID,
		Type:       m.Type,
		Value:      m.Value,
	}
}

// StudentDiscountModelFromDomain creates a persistence model from a domain StudentDiscount
func StudentDiscountModelFromDomain(d *fee.StudentDiscount) *StudentDiscountModel {
	m := &StudentDiscountModel{
		StudentID: d.StudentID,
		SessionID: d.SessionID,
		FeeTypeID: d.FeeTypeID,
		Type:      d.Type,
		Value:     d.Value,
	}
	m.FromDomainBaseEntity(d.BaseEntity)
	return m
}
