package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfees/backend/internal/domain/fee"
	"github.com/shopspring/decimal"
)

// FeeTransactionModel is the persistence model for fee collections
type FeeTransactionModel struct {
	BaseModel
	TransactionID string                   `gorm:"type:varchar(50);not null;uniqueIndex"`
	ReceiptNo     string                   `gorm:"type:varchar(50);not null;uniqueIndex"`
	StudentID     string                   `gorm:"type:varchar(50);not null;index:idx_txn_student_session"`
	SessionID     int                      `gorm:"not null;index:idx_txn_student_session"`
	Amount        decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Description   string                   `gorm:"type:text"`
	PaymentMode   fee.PaymentMode          `gorm:"type:varchar(20);not null"`
	PaymentDate   time.Time                `gorm:"not null;index"`
	Remarks       string                   `gorm:"type:text"`
	CollectedBy   string                   `gorm:"type:varchar(100)"`
	IsAdvance     bool                     `gorm:"not null;default:false"`
	Details       []FeePaymentDetailModel  `gorm:"foreignKey:FeeTransactionID;constraint:OnDelete:CASCADE"`
	Allocations   []FeeBillAllocationModel `gorm:"foreignKey:FeeTransactionID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (FeeTransactionModel) TableName() string {
	return "fee_transactions"
}

// FeePaymentDetailModel is the per-fee-type breakdown of a collection
type FeePaymentDetailModel struct {
	ID               uint            `gorm:"primaryKey;autoIncrement"`
	FeeTransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	FeeTypeID        int64           `gorm:"not null;index"`
	FeeTypeName      string          `gorm:"type:varchar(100)"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	NetAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (FeePaymentDetailModel) TableName() string {
	return "fee_payment_details"
}

// FeeBillAllocationModel records the share of a collection applied to a bill
type FeeBillAllocationModel struct {
	ID               uint            `gorm:"primaryKey;autoIncrement"`
	FeeTransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	BillNo           string          `gorm:"type:varchar(50);not null;index"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceBefore    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceAfter     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (FeeBillAllocationModel) TableName() string {
	return "fee_bill_allocations"
}

// ToDomain converts the persistence model to a domain FeeTransaction
func (m *FeeTransactionModel) ToDomain() *fee.FeeTransaction {
	details := make([]fee.PaymentDetail, len(m.Details))
	for i, d := range m.Details {
		details[i] = fee.PaymentDetail{
			FeeTypeID:      d.FeeTypeID,
			FeeTypeName:    d.FeeTypeName,
			Amount:         d.Amount,
			DiscountAmount: d.DiscountAmount,
			NetAmount:      d.NetAmount,
		}
	}
	allocations := make([]fee.BillAllocation, len(m.Allocations))
	for i, a := range m.Allocations {
		allocations[i] = fee.BillAllocation{
			BillNo:        a.BillNo,
			Amount:        a.Amount,
			BalanceBefore: a.BalanceBefore,
			BalanceAfter:  a.BalanceAfter,
		}
	}
	return &fee.FeeTransaction{
		BaseEntity:    m.BaseModel.ToDomain(),
		TransactionID: m.TransactionID,
		ReceiptNo:     m.ReceiptNo,
		StudentID:     m.StudentID,
		SessionID:     m.SessionID,
		Amount:        m.Amount,
		Description:   m.Description,
		PaymentMode:   m.PaymentMode,
		Date:          m.PaymentDate,
		Remarks:       m.Remarks,
		CollectedBy:   m.CollectedBy,
		Details:       details,
		Allocations:   allocations,
	}
}

// FeeTransactionModelFromDomain creates a persistence model from a domain FeeTransaction
func FeeTransactionModelFromDomain(t *fee.FeeTransaction) *FeeTransactionModel {
	m := &FeeTransactionModel{
		TransactionID: t.TransactionID,
		ReceiptNo:     t.ReceiptNo,
		StudentID:     t.StudentID,
		SessionID:     t.SessionID,
		Amount:        t.Amount,
		Description:   t.Description,
		PaymentMode:   t.PaymentMode,
		PaymentDate:   t.Date,
		Remarks:       t.Remarks,
		CollectedBy:   t.CollectedBy,
		IsAdvance:     t.IsAdvance(),
		Details:       make([]FeePaymentDetailModel, len(t.Details)),
		Allocations:   make([]FeeBillAllocationModel, len(t.Allocations)),
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	for i, d := range t.Details {
		m.Details[i] = FeePaymentDetailModel{
			FeeTransactionID: t.ID,
			FeeTypeID:        d.FeeTypeID,
			FeeTypeName:      d.FeeTypeName,
			Amount:           d.Amount,
			DiscountAmount:   d.DiscountAmount,
			NetAmount:        d.NetAmount,
		}
	}
	for i, a := range t.Allocations {
		m.Allocations[i] = FeeBillAllocationModel{
			FeeTransactionID: t.ID,
			BillNo:           a.BillNo,
			Amount:           a.Amount,
			BalanceBefore:    a.BalanceBefore,
			BalanceAfter:     a.BalanceAfter,
		}
	}
	return m
}

// FeeTransactionModelsToDomain converts a slice of models
func FeeTransactionModelsToDomain(ms []FeeTransactionModel) []fee.FeeTransaction {
	txns := make([]fee.FeeTransaction, len(ms))
	for i := range ms {
		txns[i] = *ms[i].ToDomain()
	}
	return txns
}

// AllModels lists every model, in dependency order, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&FeeTypeModel{},
		&StudentModel{},
		&FeeStructureModel{},
		&FeeStructureItemModel{},
		&StudentDiscountModel{},
		&DemandBillModel{},
		&DemandBillItemModel{},
		&FeeTransactionModel{},
		&FeePaymentDetailModel{},
		&FeeBillAllocationModel{},
	}
}
