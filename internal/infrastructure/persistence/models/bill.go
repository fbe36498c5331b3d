package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/shopspring/decimal"
)

// DemandBillModel is the persistence model for the DemandBill aggregate root
type DemandBillModel struct {
	AggregateModel
	BillNo         string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	StudentID      string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_bill_period"`
	SessionID      int                   `gorm:"not null;uniqueIndex:idx_bill_period;index"`
	Month          int                   `gorm:"not null;uniqueIndex:idx_bill_period"`
	Year           int                   `gorm:"not null;uniqueIndex:idx_bill_period"`
	BillDate       time.Time             `gorm:"not null"`
	DueDate        time.Time             `gorm:"not null"`
	PaidAmount     decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	AdvanceApplied decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Status         fee.BillStatus        `gorm:"type:varchar(20);not null;default:'PENDING'"`
	PaidDate       *time.Time            `gorm:"default:null"`
	Items          []DemandBillItemModel `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (DemandBillModel) TableName() string {
	return "demand_bills"
}

// DemandBillItemModel is one fee line of a demand bill
type DemandBillItemModel struct {
	ID             uint            `gorm:"primaryKey;autoIncrement"`
	BillID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	FeeTypeID      int64           `gorm:"not null"`
	FeeTypeName    string          `gorm:"type:varchar(100);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Position       int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (DemandBillItemModel) TableName() string {
	return "demand_bill_items"
}

// ToDomain converts the persistence model to a domain DemandBill
func (m *DemandBillModel) ToDomain() *fee.DemandBill {
	items := make([]fee.BillItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = fee.BillItem{
			FeeTypeID:      item.FeeTypeID,
			FeeTypeName:    item.FeeTypeName,
			Amount:         item.Amount,
			DiscountAmount: item.DiscountAmount,
		}
	}
	return &fee.DemandBill{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		BillNo:            m.BillNo,
		StudentID:         m.StudentID,
		SessionID:         m.SessionID,
		Month:             m.Month,
		Year:              m.Year,
		BillDate:          m.BillDate,
		DueDate:           m.DueDate,
		Items:             items,
		PaidAmount:        m.PaidAmount,
		AdvanceApplied:    m.AdvanceApplied,
		Status:            m.Status,
		PaidDate:          m.PaidDate,
	}
}

// DemandBillModelFromDomain creates a persistence model from a domain DemandBill
func DemandBillModelFromDomain(b *fee.DemandBill) *DemandBillModel {
	m := &DemandBillModel{
		BillNo:         b.BillNo,
		StudentID:      b.StudentID,
		SessionID:      b.SessionID,
		Month:          b.Month,
		Year:           b.Year,
		BillDate:       b.BillDate,
		DueDate:        b.DueDate,
		PaidAmount:     b.PaidAmount,
		AdvanceApplied: b.AdvanceApplied,
		Status:         b.Status,
		PaidDate:       b.PaidDate,
		Items:          make([]DemandBillItemModel, len(b.Items)),
	}
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	for i, item := range b.Items {
		m.Items[i] = DemandBillItemModel{
			BillID:         b.ID,
			FeeTypeID:      item.FeeTypeID,
			FeeTypeName:    item.FeeTypeName,
			Amount:         item.Amount,
			DiscountAmount: item.DiscountAmount,
			Position:       i,
		}
	}
	return m
}

// DemandBillModelsToDomain converts a slice of models
func DemandBillModelsToDomain(ms []DemandBillModel) []fee.DemandBill {
	bills := make([]fee.DemandBill, len(ms))
	for i := range ms {
		bills[i] = *ms[i].ToDomain()
	}
	return bills
}
