package fee

import (
	"strings"

	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FeeStructureItem is the monthly charge of one fee type for a class
type FeeStructureItem struct {
	FeeTypeID   int64
	FeeTypeName string
	Amount      decimal.Decimal
}

// FeeStructure lists what a class is billed each month in a session
type FeeStructure struct {
	shared.BaseEntity
	SessionID int
	ClassName string
	Items     []FeeStructureItem
}

// NewFeeStructure creates a fee structure for a class
func NewFeeStructure(sessionID int, className string, items []FeeStructureItem) (*FeeStructure, error) {
	className = strings.TrimSpace(className)
	if sessionID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Session ID must be positive")
	}
	if className == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Class name cannot be empty")
	}
	s := &FeeStructure{
		BaseEntity: shared.NewBaseEntity(),
		SessionID:  sessionID,
		ClassName:  className,
	}
	if err := s.ReplaceItems(items); err != nil {
		return nil, err
	}
	return s, nil
}

// ReplaceItems swaps the item list after validating it
func (s *FeeStructure) ReplaceItems(items []FeeStructureItem) error {
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if item.FeeTypeID <= 0 {
			return shared.NewDomainError(shared.CodeInvalidInput, "Fee structure item requires a fee type")
		}
		if item.Amount.IsNegative() {
			return shared.NewDomainError(shared.CodeInvalidInput, "Fee structure amount cannot be negative")
		}
		if seen[item.FeeTypeID] {
			return shared.NewDomainError(shared.CodeInvalidInput, "Fee type appears more than once in the structure")
		}
		seen[item.FeeTypeID] = true
	}
	s.Items = append([]FeeStructureItem(nil), items...)
	s.Touch()
	return nil
}

// ItemByName finds the structure item for a fee-type name
func (s *FeeStructure) ItemByName(name string) (FeeStructureItem, bool) {
	for _, item := range s.Items {
		if item.FeeTypeName == name {
			return item, true
		}
	}
	return FeeStructureItem{}, false
}

// DiscountType is how a student discount value is interpreted
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeFixed      DiscountType = "FIXED"
)

var hundred = decimal.NewFromInt(100)

// StudentDiscount is a concession on one fee type for one student and session
type StudentDiscount struct {
	shared.BaseEntity
	StudentID string
	SessionID int
	FeeTypeID int64
	Type      DiscountType
	Value     decimal.Decimal
}

// NewStudentDiscount creates a discount
func NewStudentDiscount(studentID string, sessionID int, feeTypeID int64, discountType DiscountType, value decimal.Decimal) (*StudentDiscount, error) {
	if strings.TrimSpace(studentID) == "" || sessionID <= 0 || feeTypeID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Discount requires student, session and fee type")
	}
	switch discountType {
	case DiscountTypePercentage:
		if value.IsNegative() || value.GreaterThan(hundred) {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Percentage discount must be between 0 and 100")
		}
	case DiscountTypeFixed:
		if value.IsNegative() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Fixed discount cannot be negative")
		}
	default:
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Discount type must be PERCENTAGE or FIXED")
	}
	return &StudentDiscount{
		BaseEntity: shared.NewBaseEntity(),
		StudentID:  strings.TrimSpace(studentID),
		SessionID:  sessionID,
		FeeTypeID:  feeTypeID,
		Type:       discountType,
		Value:      value,
	}, nil
}

// Apply returns the discount on amount, never more than amount itself
func (d StudentDiscount) Apply(amount decimal.Decimal) decimal.Decimal {
	var off decimal.Decimal
	if d.Type == DiscountTypePercentage {
		off = amount.Mul(d.Value).Div(hundred).Round(2)
	} else {
		off = d.Value
	}
	if off.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(off, amount)
}
